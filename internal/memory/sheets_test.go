package memory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gilbertlabs/gilbert/internal/config"
)

func newTestSheetClient(srv *httptest.Server) *HTTPSheetClient {
	return NewHTTPSheetClient(config.SheetsConfig{
		SpreadsheetID: "sheet-123",
		Token:         "test-token",
		BaseURL:       srv.URL,
	})
}

func TestHTTPSheetClient_Read(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if !strings.Contains(r.URL.Path, "/spreadsheets/sheet-123/values/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(valueRange{
			Range:  "Memory!A:C",
			Values: [][]string{{"t1", "U1", "note one"}},
		})
	}))
	defer srv.Close()

	rows, err := newTestSheetClient(srv).Read(context.Background(), "Memory!A:C")
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if len(rows) != 1 || rows[0][2] != "note one" {
		t.Errorf("rows = %v", rows)
	}
}

func TestHTTPSheetClient_Append(t *testing.T) {
	var gotBody valueRange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.URL.Query().Get("valueInputOption"); got != "RAW" {
			t.Errorf("valueInputOption = %q, want RAW", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	err := newTestSheetClient(srv).Append(context.Background(), "Memory",
		[][]string{{"t1", "U1", "remember this"}})
	if err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if len(gotBody.Values) != 1 || gotBody.Values[0][2] != "remember this" {
		t.Errorf("posted values = %v", gotBody.Values)
	}
}

func TestHTTPSheetClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	client := newTestSheetClient(srv)
	if _, err := client.Read(context.Background(), "Memory!A:C"); err == nil {
		t.Error("Read() should fail on 403")
	}
	if err := client.Append(context.Background(), "Memory", [][]string{{"a", "b", "c"}}); err == nil {
		t.Error("Append() should fail on 403")
	}
	if err := client.Ping(context.Background()); err == nil {
		t.Error("Ping() should fail on 403")
	}
}

func TestHTTPSheetClient_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"spreadsheetId":"sheet-123"}`))
	}))
	defer srv.Close()

	if err := newTestSheetClient(srv).Ping(context.Background()); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}
}
