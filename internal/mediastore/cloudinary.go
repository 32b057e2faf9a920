package mediastore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}
var audioExts = map[string]bool{".mp3": true, ".wav": true, ".ogg": true, ".m4a": true, ".flac": true}

// Client talks to a Cloudinary-compatible media host.
type Client struct {
	http      *resty.Client
	cloud     string
	apiKey    string
	apiSecret string
}

func NewClient(cloud, apiKey, apiSecret string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL("https://api.cloudinary.com/v1_1/" + cloud).
			SetTimeout(2 * time.Minute),
		cloud:     cloud,
		apiKey:    apiKey,
		apiSecret: apiSecret,
	}
}

type uploadResponse struct {
	PublicID  string  `json:"public_id"`
	SecureURL string  `json:"secure_url"`
	Duration  float64 `json:"duration"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) Upload(ctx context.Context, r io.Reader, filename string, kind Kind) (*UploadResult, error) {
	resource, folder, err := resolveKind(kind, filename)
	if err != nil {
		return nil, err
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	params := map[string]string{
		"timestamp": ts,
		"folder":    folder,
	}

	var out uploadResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filename, r).
		SetFormData(map[string]string{
			"api_key":   c.apiKey,
			"timestamp": ts,
			"folder":    folder,
			"signature": c.sign(params),
		}).
		SetResult(&out).
		SetError(&out).
		Post("/" + resource + "/upload")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.IsError() {
		if resp.StatusCode() == 400 {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, out.Error.Message)
		}
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode())
	}

	return &UploadResult{
		PublicID:  out.PublicID,
		SecureURL: out.SecureURL,
		Duration:  out.Duration,
	}, nil
}

type destroyResponse struct {
	Result string `json:"result"`
}

func (c *Client) Delete(ctx context.Context, publicID string, kind Kind) error {
	resource := "image"
	if kind == KindAudio {
		resource = "video"
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	params := map[string]string{
		"public_id": publicID,
		"timestamp": ts,
	}

	var out destroyResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"api_key":   c.apiKey,
			"public_id": publicID,
			"timestamp": ts,
			"signature": c.sign(params),
		}).
		SetResult(&out).
		Post("/" + resource + "/destroy")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode())
	}
	// "not found" is reported in the body with a 200; callers treat it as a no-op.
	return nil
}

// sign implements the host's request signing: SHA-1 over the sorted
// key=value pairs joined with '&', followed by the API secret.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}

func resolveKind(kind Kind, filename string) (resource, folder string, err error) {
	ext := strings.ToLower(path.Ext(filename))
	switch kind {
	case KindImage:
		if !imageExts[ext] {
			return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
		}
		return "image", "images", nil
	case KindAudio:
		if !audioExts[ext] {
			return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
		}
		// the host files audio under its video pipeline
		return "video", "songs", nil
	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, kind)
	}
}
