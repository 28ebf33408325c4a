package memory

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Record is one remembered note. Rows are append-only: never mutated or
// deleted, ordered by insertion time in the backing sheet.
type Record struct {
	Timestamp string
	Author    string
	Note      string
}

// Store reads and appends memory records. Every append also lands in the
// local mirror so recall keeps working when the sheet is unreachable.
type Store struct {
	sheets SheetClient
	mirror *Mirror // optional
	sheet  string
	logger *slog.Logger
}

// NewStore creates a store over the given sheet client. mirror may be nil.
func NewStore(sheets SheetClient, mirror *Mirror, sheetName string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sheets: sheets,
		mirror: mirror,
		sheet:  sheetName,
		logger: logger.With("component", "memory"),
	}
}

// AppendNote stores a timestamped note. The sheet append failing is not
// fatal as long as the mirror write succeeds; the note is then flagged for
// attention in the log.
func (s *Store) AppendNote(ctx context.Context, author, note string) error {
	rec := Record{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Author:    author,
		Note:      note,
	}

	sheetErr := s.sheets.Append(ctx, s.sheet, [][]string{{rec.Timestamp, rec.Author, rec.Note}})
	if sheetErr != nil {
		s.logger.Warn("sheet append failed", "error", sheetErr)
	}

	if s.mirror != nil {
		if err := s.mirror.Append(ctx, rec); err != nil {
			s.logger.Warn("mirror append failed", "error", err)
			if sheetErr != nil {
				return sheetErr
			}
		}
		return nil
	}

	return sheetErr
}

// Recall returns the most recent limit records whose note matches the
// query, oldest first. Matching is a case-insensitive token containment
// test. A sheet read failure degrades to the local mirror; with no mirror
// it degrades to an empty result rather than an error.
func (s *Store) Recall(ctx context.Context, query string, limit int) []Record {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.sheets.Read(ctx, s.sheet+"!A:C")
	if err != nil {
		s.logger.Warn("sheet read failed, falling back to mirror", "error", err)
		return s.recallFromMirror(ctx, query, limit)
	}

	records := make([]Record, 0, limit)
	for _, row := range rows {
		rec, ok := parseRow(row)
		if !ok {
			// Malformed row: skip, never fail the whole recall
			continue
		}
		if noteMatches(rec.Note, query) {
			records = append(records, rec)
		}
	}

	// Newer notes supersede older ones, so the tail wins once the
	// match set outgrows the limit.
	if len(records) > limit {
		records = records[len(records)-limit:]
	}

	return records
}

// Ping reports backing-store reachability for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.sheets.Ping(ctx)
}

// Close releases the mirror, if any.
func (s *Store) Close() error {
	if s.mirror != nil {
		return s.mirror.Close()
	}
	return nil
}

func (s *Store) recallFromMirror(ctx context.Context, query string, limit int) []Record {
	if s.mirror == nil {
		return nil
	}
	records, err := s.mirror.Search(ctx, query, limit)
	if err != nil {
		s.logger.Warn("mirror search failed", "error", err)
		return nil
	}
	return records
}

// parseRow converts a raw sheet row into a Record. Rows missing any of the
// three expected fields are rejected.
func parseRow(row []string) (Record, bool) {
	if len(row) < 3 {
		return Record{}, false
	}
	rec := Record{Timestamp: row[0], Author: row[1], Note: row[2]}
	if rec.Note == "" {
		return Record{}, false
	}
	return rec, true
}

// noteMatches reports whether any query token appears in the note,
// case-insensitively. An empty query matches everything.
func noteMatches(note, query string) bool {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return true
	}
	lowered := strings.ToLower(note)
	for _, tok := range tokens {
		if strings.Contains(lowered, tok) {
			return true
		}
	}
	return false
}
