package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	appLog "skillsched/internal/log"
)

// maxFeedSize bounds a downloaded feed.
const maxFeedSize = 10 << 20

// Source is a remote ICS feed to import scheduled actions from.
type Source struct {
	ID  string
	URL string
}

// FetchResult is the body of a feed and where it came from.
type FetchResult struct {
	Source    Source
	Body      []byte
	FromCache bool
}

type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads feeds with conditional requests and keeps the last good
// body on disk, so an unreachable feed still imports.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher returns a Fetcher caching under cacheDir. A nil client gets a
// 15 second timeout.
func NewFetcher(cacheDir string, client *http.Client) *Fetcher {
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "skillsched-ics")
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, cacheDir: cacheDir}
}

// Fetch downloads src, sending If-None-Match / If-Modified-Since from the
// cache. On 304, network errors and non-OK statuses it falls back to the
// cached body when there is one.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("ics: source URL is empty")
	}
	dir := f.cacheDir
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return FetchResult{}, fmt.Errorf("ics: cache dir: %w", err)
	}
	key := cacheKey(src.URL)
	meta := f.loadMeta(key)
	cached, _ := os.ReadFile(filepath.Join(dir, key+".ics"))

	fallback := func(cause error) (FetchResult, error) {
		if len(cached) == 0 {
			return FetchResult{}, cause
		}
		appLog.Error("ics fetch failed, using cached body", cause, "id", src.ID, "url", redactURL(src.URL))
		return FetchResult{Source: src, Body: cached, FromCache: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, fmt.Errorf("ics: request: %w", err)
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Debug("ics fetch start", "id", src.ID, "url", redactURL(src.URL))
	resp, err := f.client.Do(req)
	if err != nil {
		return fallback(fmt.Errorf("ics: fetch: %w", err))
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
		if err != nil {
			return fallback(fmt.Errorf("ics: read body: %w", err))
		}
		meta = cacheMeta{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := f.save(key, meta, body); err != nil {
			appLog.Error("ics cache save failed", err, "id", src.ID)
		}
		appLog.Info("ics fetch success", "id", src.ID, "url", redactURL(src.URL), "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil
	case http.StatusNotModified:
		if len(cached) == 0 {
			return FetchResult{}, errors.New("ics: 304 Not Modified without a cached body")
		}
		appLog.Info("ics fetch not modified", "id", src.ID, "url", redactURL(src.URL))
		return FetchResult{Source: src, Body: cached, FromCache: true}, nil
	default:
		return fallback(fmt.Errorf("ics: fetch: %s", resp.Status))
	}
}

func cacheKey(u string) string {
	sum := sha256.Sum256([]byte(u))
	return hex.EncodeToString(sum[:8])
}

func (f *Fetcher) loadMeta(key string) cacheMeta {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(f.cacheDir, key+".json"))
	if err != nil {
		return meta
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}
	}
	return meta
}

// save writes the body before the metadata so metadata never points at a
// missing body.
func (f *Fetcher) save(key string, meta cacheMeta, body []byte) error {
	if err := os.WriteFile(filepath.Join(f.cacheDir, key+".ics"), body, 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(f.cacheDir, key+".json"), data, 0o600)
}

// redactURL keeps scheme and host; feed paths and queries often carry
// secret tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
