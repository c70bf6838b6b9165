package domain

import "time"

// Origin tells whether a batch currently resides in the local cache or only
// in remote object storage.
type Origin string

const (
	OriginLocal  Origin = "LOCAL"
	OriginRemote Origin = "REMOTE"
)

// BatchRef identifies one raw batch file in one origin. Name is the base
// filename; Key is the full path (local) or object key (remote). DateToken
// holds the YYYYMMDD substring parsed from Name, empty when the name
// carries none.
type BatchRef struct {
	Source    Source `json:"source"`
	Origin    Origin `json:"origin"`
	Key       string `json:"key"`
	Name      string `json:"name"`
	DateToken string `json:"date_token,omitempty"`
}

// RawBatch is one fetched unit of source data. Immutable once read.
type RawBatch struct {
	Ref     BatchRef
	Records []map[string]any
}

// RawPosting wraps one raw record for normalization.
type RawPosting struct {
	Source      Source         `json:"source"`
	RawData     map[string]any `json:"raw_data"`
	ExtractedAt time.Time      `json:"extracted_at"`
}
