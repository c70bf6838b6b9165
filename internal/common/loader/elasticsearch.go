package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/datapole/go-etl/internal/domain"
)

// ElasticsearchLoader mirrors postings into an Elasticsearch index for
// full-text search. It is an optional secondary backend next to Postgres.
type ElasticsearchLoader struct {
	client    *elasticsearch.Client
	indexName string
}

// NewElasticsearchLoader creates the client and verifies the cluster is
// reachable.
func NewElasticsearchLoader(addresses []string, indexName string) (*ElasticsearchLoader, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("create es client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("es info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("es error: %s", res.Status())
	}

	return &ElasticsearchLoader{client: client, indexName: indexName}, nil
}

// EnsureSchema creates the index with French-friendly analysis settings if
// it doesn't exist.
func (l *ElasticsearchLoader) EnsureSchema(ctx context.Context) error {
	res, err := l.client.Indices.Exists([]string{l.indexName})
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	mapping := `{
		"settings": {
			"analysis": {
				"analyzer": {
					"french_text": {
						"type": "custom",
						"tokenizer": "standard",
						"filter": ["lowercase", "asciifolding", "elision"]
					}
				}
			}
		},
		"mappings": {
			"properties": {
				"external_id": {"type": "keyword"},
				"title": {
					"type": "text",
					"analyzer": "french_text",
					"fields": {"keyword": {"type": "keyword"}}
				},
				"description": {"type": "text", "analyzer": "french_text"},
				"company": {"type": "text", "analyzer": "french_text"},
				"location": {
					"properties": {
						"label": {"type": "text", "analyzer": "french_text"},
						"city": {"type": "keyword"},
						"postal_code": {"type": "keyword"},
						"department": {"type": "keyword"},
						"region": {"type": "keyword"},
						"country": {"type": "keyword"}
					}
				},
				"contract_type_raw": {"type": "keyword"},
				"contract_type_std": {"type": "keyword"},
				"salary": {
					"properties": {
						"min": {"type": "double"},
						"max": {"type": "double"},
						"currency": {"type": "keyword"},
						"period": {"type": "keyword"}
					}
				},
				"experience": {
					"properties": {
						"min_years": {"type": "integer"},
						"max_years": {"type": "integer"},
						"level": {"type": "keyword"}
					}
				},
				"keywords": {"type": "keyword"},
				"source": {"type": "keyword"},
				"url": {"type": "keyword"},
				"date_creation": {"type": "date"},
				"date_actualisation": {"type": "date"},
				"collected_at": {"type": "date"}
			}
		}
	}`

	res, err = l.client.Indices.Create(
		l.indexName,
		l.client.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
		l.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index error: %s", res.Status())
	}
	return nil
}

// Load bulk-writes postings using the create op, so documents already in
// the index are left untouched. Returns how many documents were created.
func (l *ElasticsearchLoader) Load(ctx context.Context, postings []*domain.Posting) (int, error) {
	if len(postings) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	for _, p := range postings {
		// Marshal the document first; a meta line without its document
		// would desync every following pair in the bulk body.
		docBytes, err := json.Marshal(p)
		if err != nil {
			log.Printf("[Loader] Marshal posting %s: %v", p.ExternalID, err)
			continue
		}
		meta := map[string]any{
			"create": map[string]any{
				"_index": l.indexName,
				"_id":    p.ExternalID,
			},
		}
		metaBytes, _ := json.Marshal(meta)
		buf.Write(metaBytes)
		buf.WriteByte('\n')
		buf.Write(docBytes)
		buf.WriteByte('\n')
	}

	res, err := l.client.Bulk(bytes.NewReader(buf.Bytes()), l.client.Bulk.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("bulk error: %s", res.Status())
	}

	var bulkRes struct {
		Errors bool `json:"errors"`
		Items  []struct {
			Create struct {
				ID     string `json:"_id"`
				Status int    `json:"status"`
				Error  struct {
					Type   string `json:"type"`
					Reason string `json:"reason"`
				} `json:"error"`
			} `json:"create"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkRes); err != nil {
		return 0, fmt.Errorf("parse bulk response: %w", err)
	}

	created := 0
	for _, item := range bulkRes.Items {
		switch {
		case item.Create.Status == 201:
			created++
		case item.Create.Status == 409:
			// Document already indexed by a previous run.
		case item.Create.Status >= 400:
			log.Printf("[Loader] Bulk create error for %s: %s - %s",
				item.Create.ID, item.Create.Error.Type, item.Create.Error.Reason)
		}
	}
	return created, nil
}

// Close is a no-op; the ES client has no persistent connection to release.
func (l *ElasticsearchLoader) Close() error {
	return nil
}
