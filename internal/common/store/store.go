// Package store provides uniform list/fetch/save operations over the two
// origins holding raw posting batches: the local filesystem tree and the
// remote object store. Batches are JSON files named
// {source}_{query_tag}_{YYYYMMDD}_{HHMMSS}[_p{page}].json; the 8-digit date
// token is the only signal used for date filtering.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/datapole/go-etl/internal/domain"
)

// Store is one origin of raw batches.
type Store interface {
	// List returns references to the raw batches of a source that fall in
	// the given range. Names without a date token are kept only when the
	// range is unbounded.
	List(ctx context.Context, source domain.Source, dr DateRange) ([]domain.BatchRef, error)
	// Fetch reads one batch. Remote fetches write a local cache copy so
	// later runs can skip the download.
	Fetch(ctx context.Context, ref domain.BatchRef) (*domain.RawBatch, error)
	// SaveRaw stores one raw batch payload under the raw tree and returns
	// its key.
	SaveRaw(ctx context.Context, source domain.Source, name string, payload []byte) (string, error)
	// SaveProcessed stores normalized output under the processed tree and
	// returns its key.
	SaveProcessed(ctx context.Context, source domain.Source, name string, payload []byte) (string, error)
	// Origin tells which origin this store serves.
	Origin() domain.Origin
}

// DateRange bounds a listing by the YYYYMMDD tokens embedded in batch
// names. Bounds are inclusive; an empty bound is unbounded. The zero value
// selects everything ("all" mode).
type DateRange struct {
	Start string
	End   string
}

// IsAll reports whether the range selects everything.
func (r DateRange) IsAll() bool {
	return r.Start == "" && r.End == ""
}

// Contains reports whether a date token falls in the range. Tokens compare
// lexically, which matches calendar order for YYYYMMDD. Empty tokens match
// only the unbounded range.
func (r DateRange) Contains(token string) bool {
	if r.IsAll() {
		return true
	}
	if token == "" {
		return false
	}
	if r.Start != "" && token < r.Start {
		return false
	}
	if r.End != "" && token > r.End {
		return false
	}
	return true
}

// BatchName builds the canonical batch filename. Pages start at 1; zero
// omits the page suffix.
func BatchName(source domain.Source, queryTag string, ts time.Time, page int) string {
	stamp := ts.Format("20060102_150405")
	if page > 0 {
		return fmt.Sprintf("%s_%s_%s_p%d.json", source, queryTag, stamp, page)
	}
	return fmt.Sprintf("%s_%s_%s.json", source, queryTag, stamp)
}

// QueryTag normalizes search keywords into the tag embedded in batch names.
// Empty keywords collect under the "all" tag.
func QueryTag(keywords string) string {
	if keywords == "" {
		return "all"
	}
	return strings.ToLower(strings.ReplaceAll(keywords, " ", "_"))
}

// DateToken returns the first underscore-delimited 8-digit token of a batch
// name, or empty when the name carries none or the token is not a calendar
// date.
func DateToken(name string) string {
	base := strings.TrimSuffix(name, ".json")
	for _, part := range strings.Split(base, "_") {
		if len(part) == 8 && isDigits(part) {
			if _, err := time.Parse("20060102", part); err != nil {
				return ""
			}
			return part
		}
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// decodeRecords parses a raw batch payload. Payloads are either an object
// with a "resultats" array or a bare array of records.
func decodeRecords(payload []byte) ([]map[string]any, error) {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("decoding batch payload: %w", err)
	}
	switch data := v.(type) {
	case map[string]any:
		arr, _ := data["resultats"].([]any)
		return toRecords(arr), nil
	case []any:
		return toRecords(data), nil
	default:
		return nil, fmt.Errorf("unexpected batch payload shape %T", v)
	}
}

func toRecords(arr []any) []map[string]any {
	records := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if rec, ok := item.(map[string]any); ok {
			records = append(records, rec)
		}
	}
	return records
}
