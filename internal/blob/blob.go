// Package blob is a minimal client for Vercel-style blob object
// storage: PUT a file under a pathname, list what is stored. Progress
// photos are the only payload.
package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tidehunter/translog/internal/httpkit"
)

// Timeouts differ per operation: an upload carries megabytes of photo,
// a listing is a small JSON page.
const (
	uploadTimeout = 30 * time.Second
	listTimeout   = 10 * time.Second
)

// Photo is one stored object.
type Photo struct {
	URL  string `json:"url"`
	Date string `json:"date"`
}

// Client talks to one blob store.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *slog.Logger
}

// New builds a Client. A nil logger means slog.Default.
func New(logger *slog.Logger, baseURL, token string) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		// Per-request timeouts are set via context; the client-level
		// timeout is the larger upload bound.
		httpClient: httpkit.NewClient(httpkit.WithTimeout(uploadTimeout)),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		logger:     logger.With("component", "blob"),
	}
}

// Configured reports whether a store token is present.
func (c *Client) Configured() bool {
	return c.token != ""
}

// Upload stores data under filename with public access and returns the
// object's URL.
func (c *Client) Upload(ctx context.Context, filename, contentType string, data io.Reader) (string, error) {
	if c.token == "" {
		return "", fmt.Errorf("blob store token not configured")
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	target := fmt.Sprintf("%s/%s?access=public", c.baseURL, url.PathEscape(filename))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, data)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("blob upload: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("blob upload returned %d: %s",
			resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 4096))
	}

	// Field names vary across store API versions.
	var result struct {
		URL         string `json:"url"`
		DownloadURL string `json:"downloadUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.Warn("blob upload response undecodable, synthesizing URL", "error", err)
	}
	blobURL := result.URL
	if blobURL == "" {
		blobURL = result.DownloadURL
	}
	if blobURL == "" {
		blobURL = c.baseURL + "/" + filename
	}
	c.logger.Info("photo uploaded", "url", blobURL)
	return blobURL, nil
}

// List returns stored photos, newest first. The store's list response
// has shipped in several shapes; every known spelling of the object
// array, the URL field and the timestamp field is tried before giving
// up on an entry.
func (c *Client) List(ctx context.Context) ([]Photo, error) {
	if c.token == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/list?limit=100", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blob list: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blob list returned %d: %s",
			resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 4096))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("blob list: %w", err)
	}

	photos := decodeList(raw, c.baseURL)
	sort.Slice(photos, func(i, j int) bool { return photos[i].Date > photos[j].Date })
	return photos, nil
}

func decodeList(raw []byte, baseURL string) []Photo {
	var entries []map[string]any

	// The array arrives either bare or under "blobs" or "data".
	if err := json.Unmarshal(raw, &entries); err != nil {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil
		}
		for _, key := range []string{"blobs", "data"} {
			if inner, ok := wrapped[key]; ok {
				if json.Unmarshal(inner, &entries) == nil {
					break
				}
			}
		}
	}

	var photos []Photo
	for _, e := range entries {
		u := firstString(e, "url", "downloadUrl", "pathname", "key")
		if u == "" {
			continue
		}
		if !strings.HasPrefix(u, "http") {
			u = baseURL + "/" + u
		}
		date := firstString(e, "uploadedAt", "createdAt", "uploaded")
		if date == "" {
			date = time.Now().UTC().Format(time.RFC3339)
		}
		photos = append(photos, Photo{URL: u, Date: date})
	}
	return photos
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
