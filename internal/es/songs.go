package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/velmark/soundwave/internal/models"
)

// SongIndex mirrors the song catalog into a search index.
type SongIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewSongIndex(client *elasticsearch.Client, index string) *SongIndex {
	return &SongIndex{ES: client, Index: index}
}

func (i *SongIndex) IndexSong(ctx context.Context, song *models.Song) error {
	doc := map[string]any{
		"id":     song.ID,
		"name":   song.Name,
		"artist": song.Artist,
		"lyrics": song.Lyrics,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return err
	}

	res, err := i.ES.Index(
		i.Index,
		&buf,
		i.ES.Index.WithContext(ctx),
		i.ES.Index.WithDocumentID(strconv.FormatUint(uint64(song.ID), 10)),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index song: %s", res.Status())
	}
	return nil
}

func (i *SongIndex) DeleteSong(ctx context.Context, id uint) error {
	res, err := i.ES.Delete(
		i.Index,
		strconv.FormatUint(uint64(id), 10),
		i.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	// a missing document is fine, the catalog is the source of truth
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete song: %s", res.Status())
	}
	return nil
}

func (i *SongIndex) Search(ctx context.Context, query string, from, size int) (int64, []models.Song, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "artist", "lyrics"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := i.ES.Search(
		i.ES.Search.WithContext(ctx),
		i.ES.Search.WithIndex(i.Index),
		i.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search songs: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Song `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	songs := make([]models.Song, len(r.Hits.Hits))
	for n, hit := range r.Hits.Hits {
		songs[n] = hit.Source
	}
	return r.Hits.Total.Value, songs, nil
}
