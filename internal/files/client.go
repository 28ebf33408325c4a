package files

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gilbertlabs/gilbert/internal/config"
	"github.com/gilbertlabs/gilbert/internal/llm"
)

// Kind distinguishes files from folders.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// Entry is one stored file or folder. Constructed per search call, not
// persisted.
type Entry struct {
	Name       string
	Path       string
	Kind       Kind
	Modified   time.Time
	SharedLink string
}

// Client is the file-storage collaborator.
type Client interface {
	// Search returns entries matching the query.
	Search(ctx context.Context, query string) ([]Entry, error)
	// ListFolder returns the entries directly under path.
	ListFolder(ctx context.Context, path string) ([]Entry, error)
	// SharedLink returns a public URL for path, creating one if none
	// exists yet.
	SharedLink(ctx context.Context, path string) (string, error)
}

// HTTPClient talks to a Dropbox-style v2 HTTP API.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a storage client from config.
func NewHTTPClient(cfg config.FilesConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type storageMeta struct {
	Tag            string `json:".tag"`
	Name           string `json:"name"`
	PathDisplay    string `json:"path_display"`
	ServerModified string `json:"server_modified"`
}

type searchResponse struct {
	Matches []struct {
		Metadata struct {
			Metadata storageMeta `json:"metadata"`
		} `json:"metadata"`
	} `json:"matches"`
}

type listFolderResponse struct {
	Entries []storageMeta `json:"entries"`
}

type sharedLinkResponse struct {
	URL string `json:"url"`
}

type listSharedLinksResponse struct {
	Links []sharedLinkResponse `json:"links"`
}

func (c *HTTPClient) Search(ctx context.Context, query string) ([]Entry, error) {
	body := map[string]any{
		"query":   query,
		"options": map[string]any{"max_results": 25},
	}

	var resp searchResponse
	if err := c.post(ctx, "/files/search_v2", body, &resp); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		entries = append(entries, toEntry(m.Metadata.Metadata))
	}
	return entries, nil
}

func (c *HTTPClient) ListFolder(ctx context.Context, path string) ([]Entry, error) {
	var resp listFolderResponse
	if err := c.post(ctx, "/files/list_folder", map[string]any{"path": path}, &resp); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(resp.Entries))
	for _, m := range resp.Entries {
		entries = append(entries, toEntry(m))
	}
	return entries, nil
}

// SharedLink creates a shared link for path. When the storage API
// reports a link already exists (HTTP 409), the existing link is looked
// up instead.
func (c *HTTPClient) SharedLink(ctx context.Context, path string) (string, error) {
	var created sharedLinkResponse
	err := c.post(ctx, "/sharing/create_shared_link_with_settings", map[string]any{"path": path}, &created)
	if err == nil {
		return created.URL, nil
	}

	var statusErr *statusError
	if !errors.As(err, &statusErr) || statusErr.code != http.StatusConflict {
		return "", err
	}

	var existing listSharedLinksResponse
	lookup := map[string]any{"path": path, "direct_only": true}
	if err := c.post(ctx, "/sharing/list_shared_links", lookup, &existing); err != nil {
		return "", err
	}
	if len(existing.Links) == 0 {
		return "", &llm.ProviderError{Provider: "storage", Err: fmt.Errorf("no shared link for %s", path)}
	}
	return existing.Links[0].URL, nil
}

// Ping verifies the API is reachable by listing the root folder.
func (c *HTTPClient) Ping(ctx context.Context) error {
	_, err := c.ListFolder(ctx, "")
	return err
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("storage API returned %d: %s", e.code, e.body)
}

func (c *HTTPClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &llm.ProviderError{Provider: "storage", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &llm.ProviderError{Provider: "storage", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &llm.ProviderError{Provider: "storage", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &llm.ProviderError{
			Provider: "storage",
			Err:      &statusError{code: resp.StatusCode, body: string(bytes.TrimSpace(raw))},
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &llm.ProviderError{Provider: "storage", Err: err}
	}
	return nil
}

func toEntry(m storageMeta) Entry {
	e := Entry{
		Name: m.Name,
		Path: m.PathDisplay,
		Kind: KindFile,
	}
	if m.Tag == "folder" {
		e.Kind = KindFolder
	}
	if m.ServerModified != "" {
		if ts, err := time.Parse(time.RFC3339, m.ServerModified); err == nil {
			e.Modified = ts
		}
	}
	return e
}
