// Package mediastore binds song audio, cover images and profile images to
// an external media host that returns durable URLs.
package mediastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
)

type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

var (
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrMalformedURL    = errors.New("malformed media URL")
	// ErrUpstream wraps provider failures so their internals never reach clients.
	ErrUpstream = errors.New("media store failure")
)

type UploadResult struct {
	PublicID  string
	SecureURL string
	// Duration in seconds, set for audio uploads only.
	Duration float64
}

type Store interface {
	Upload(ctx context.Context, r io.Reader, filename string, kind Kind) (*UploadResult, error)
	// Delete tolerates an already-absent object: callers treat it as a no-op.
	Delete(ctx context.Context, publicID string, kind Kind) error
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// PublicIDFromURL extracts the host's object identifier from a delivery URL,
// e.g. https://res.example.com/demo/image/upload/v123/songs/cover.png -> "songs/cover".
func PublicIDFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, rawURL)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// <cloud>/<resource>/<delivery>/v<version>/<public id...>
	if len(parts) < 5 || !versionSegment.MatchString(parts[3]) {
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, rawURL)
	}

	id := strings.Join(parts[4:], "/")
	if dot := strings.LastIndex(id, "."); dot > 0 {
		id = id[:dot]
	}
	if id == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, rawURL)
	}
	return id, nil
}
