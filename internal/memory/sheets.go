// Package memory implements Gilbert's long-term note store: an append-only
// spreadsheet of (timestamp, author, note) rows with a local SQLite mirror
// for when the sheet is unreachable.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gilbertlabs/gilbert/internal/config"
)

// SheetClient is the low-level adapter for the spreadsheet values API.
type SheetClient interface {
	// Append adds rows to the end of a sheet.
	Append(ctx context.Context, sheet string, rows [][]string) error

	// Read returns the rows in a range, e.g. "Memory!A:C".
	Read(ctx context.Context, rng string) ([][]string, error)

	// Ping checks reachability of the spreadsheet.
	Ping(ctx context.Context) error
}

// HTTPSheetClient talks to a Google-Sheets-style values API.
type HTTPSheetClient struct {
	cfg    config.SheetsConfig
	client *http.Client
}

// NewHTTPSheetClient creates a client from configuration.
func NewHTTPSheetClient(cfg config.SheetsConfig) *HTTPSheetClient {
	return &HTTPSheetClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type valueRange struct {
	Range  string     `json:"range,omitempty"`
	Values [][]string `json:"values"`
}

// Append posts rows to the values append endpoint with RAW input.
func (c *HTTPSheetClient) Append(ctx context.Context, sheet string, rows [][]string) error {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s:append?valueInputOption=RAW",
		c.cfg.BaseURL, c.cfg.SpreadsheetID, url.PathEscape(sheet+"!A:C"))

	body, err := json.Marshal(valueRange{Values: rows})
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuthHeader(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sheet append failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sheet append error %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Read fetches a value range.
func (c *HTTPSheetClient) Read(ctx context.Context, rng string) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s",
		c.cfg.BaseURL, c.cfg.SpreadsheetID, url.PathEscape(rng))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setAuthHeader(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheet read failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sheet read error %d: %s", resp.StatusCode, string(respBody))
	}

	var vr valueRange
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("failed to decode sheet response: %w", err)
	}

	return vr.Values, nil
}

// Ping fetches spreadsheet metadata to verify reachability and auth.
func (c *HTTPSheetClient) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s", c.cfg.BaseURL, c.cfg.SpreadsheetID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	c.setAuthHeader(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("spreadsheet unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("spreadsheet unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

func (c *HTTPSheetClient) setAuthHeader(req *http.Request) {
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
}
