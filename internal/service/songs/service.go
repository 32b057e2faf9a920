// Package songs implements the catalog: song CRUD and rebinding of the two
// media references each song carries.
package songs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/velmark/soundwave/internal/logging"
	"github.com/velmark/soundwave/internal/mediastore"
	"github.com/velmark/soundwave/internal/models"
	"github.com/velmark/soundwave/internal/repository"
)

var ErrNotFound = errors.New("song not found")

const MsgSongDeleted = "Song deleted successfully"

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event interface{}) error
}

// SongIndexer mirrors catalog writes into the search index, best-effort.
type SongIndexer interface {
	IndexSong(ctx context.Context, song *models.Song) error
	DeleteSong(ctx context.Context, id uint) error
}

type Service struct {
	Repo   *repository.SongRepo
	Media  mediastore.Store
	Index  SongIndexer
	Events EventPublisher
}

type CreateParams struct {
	Name         string
	Artist       string
	ReleasedDate time.Time
	// Duration in minutes.
	Duration float64
	Lyrics   string
	AudioURL string
	ImageURL string
}

// Create expects both media references already uploaded by the caller.
// The title is normalized to lowercase on write.
func (s *Service) Create(ctx context.Context, params CreateParams, ownerID uint) (*models.Song, error) {
	song := models.Song{
		Name:         strings.ToLower(params.Name),
		Artist:       params.Artist,
		ReleasedDate: params.ReleasedDate,
		Duration:     params.Duration,
		Lyrics:       params.Lyrics,
		AudioURL:     params.AudioURL,
		ImageURL:     params.ImageURL,
		UserID:       ownerID,
	}
	if err := s.Repo.Create(ctx, &song); err != nil {
		return nil, err
	}

	s.reindex(ctx, &song)
	s.publish(ctx, song.ID, map[string]interface{}{
		"type":   "song_created",
		"songID": song.ID,
		"name":   song.Name,
	})

	return &song, nil
}

func (s *Service) GetAll(ctx context.Context, name, artist string) ([]models.Song, error) {
	return s.Repo.GetAll(ctx, strings.ToLower(name), artist)
}

func (s *Service) GetByID(ctx context.Context, id uint) (*models.Song, error) {
	song, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return song, nil
}

type UpdateParams struct {
	Name         *string
	Artist       *string
	ReleasedDate *time.Time
	Lyrics       *string
}

// Update overwrites only the provided fields.
func (s *Service) Update(ctx context.Context, id uint, params UpdateParams) (*models.Song, error) {
	song, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		song.Name = strings.ToLower(*params.Name)
	}
	if params.Artist != nil {
		song.Artist = *params.Artist
	}
	if params.ReleasedDate != nil {
		song.ReleasedDate = *params.ReleasedDate
	}
	if params.Lyrics != nil {
		song.Lyrics = *params.Lyrics
	}

	if err := s.Repo.Save(ctx, song); err != nil {
		return nil, err
	}

	s.reindex(ctx, song)
	s.publish(ctx, song.ID, map[string]interface{}{
		"type":   "song_updated",
		"songID": song.ID,
		"name":   song.Name,
	})

	return song, nil
}

func (s *Service) Delete(ctx context.Context, id uint) (string, error) {
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}

	if s.Index != nil {
		if err := s.Index.DeleteSong(ctx, id); err != nil {
			logging.FromContext(ctx).Error("search index delete failed", "song_id", id, "error", err)
		}
	}
	s.publish(ctx, id, map[string]interface{}{
		"type":   "song_deleted",
		"songID": id,
	})

	return MsgSongDeleted, nil
}

// ReplaceImage rebinds the cover image, releasing the previous object from
// the media store first when one exists.
func (s *Service) ReplaceImage(ctx context.Context, id uint, newImageURL string) (*models.Song, error) {
	l := logging.FromContext(ctx).With("svc", "songs.replace_image")

	song, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if song.ImageURL != "" {
		s.deleteMedia(ctx, l, song.ImageURL, mediastore.KindImage)
	}
	song.ImageURL = newImageURL
	if err := s.Repo.Save(ctx, song); err != nil {
		return nil, err
	}
	return song, nil
}

// ReplaceAudio rebinds the audio track. The prior check inspects the audio
// reference, not the image reference.
func (s *Service) ReplaceAudio(ctx context.Context, id uint, newAudioURL string) (*models.Song, error) {
	l := logging.FromContext(ctx).With("svc", "songs.replace_audio")

	song, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if song.AudioURL != "" {
		s.deleteMedia(ctx, l, song.AudioURL, mediastore.KindAudio)
	}
	song.AudioURL = newAudioURL
	if err := s.Repo.Save(ctx, song); err != nil {
		return nil, err
	}
	return song, nil
}

// deleteMedia is best-effort: a failed release never blocks rebinding.
func (s *Service) deleteMedia(ctx context.Context, l *slog.Logger, mediaURL string, kind mediastore.Kind) {
	publicID, err := mediastore.PublicIDFromURL(mediaURL)
	if err != nil {
		l.Error("media url parse failed", "url", mediaURL, "error", err)
		return
	}
	if err := s.Media.Delete(ctx, publicID, kind); err != nil {
		l.Error("media delete failed", "public_id", publicID, "error", err)
	}
}

func (s *Service) reindex(ctx context.Context, song *models.Song) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexSong(ctx, song); err != nil {
		logging.FromContext(ctx).Error("search index failed", "song_id", song.ID, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, key uint, event map[string]interface{}) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishEvent(ctx, "song_events", fmt.Sprint(key), event); err != nil {
		logging.FromContext(ctx).Error("event publish failed", "topic", "song_events", "error", err)
	}
}
