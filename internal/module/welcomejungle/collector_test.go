package welcomejungle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/datapole/go-etl/internal/common/store"
	"github.com/datapole/go-etl/internal/domain"
)

type savedBatch struct {
	name    string
	payload []byte
}

type fakeStore struct {
	saves []savedBatch
}

func (f *fakeStore) List(ctx context.Context, source domain.Source, dr store.DateRange) ([]domain.BatchRef, error) {
	return nil, nil
}

func (f *fakeStore) Fetch(ctx context.Context, ref domain.BatchRef) (*domain.RawBatch, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) SaveRaw(ctx context.Context, source domain.Source, name string, payload []byte) (string, error) {
	f.saves = append(f.saves, savedBatch{name: name, payload: payload})
	return "data/raw/" + string(source) + "/" + name, nil
}

func (f *fakeStore) SaveProcessed(ctx context.Context, source domain.Source, name string, payload []byte) (string, error) {
	return name, nil
}

func (f *fakeStore) Origin() domain.Origin { return domain.OriginLocal }

const detailedJobHTML = `<html><body>
	<h1 data-testid="job-title">Data Engineer H/F</h1>
	<a data-testid="company-link">Acme</a>
	<div data-testid="job-location">Paris, France</div>
	<div data-testid="job-contract">CDI</div>
	<div data-testid="job-description"><p>Pipelines Python.</p></div>
</body></html>`

const minimalJobHTML = `<html><body><main><p>Nous recherchons un profil data.</p></main></body></html>`

func newJungleServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/fr/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") != "data analyst" {
			t.Errorf("query param = %q, want %q", r.URL.Query().Get("query"), "data analyst")
		}
		if r.URL.Query().Get("page") != "1" {
			w.Write([]byte(`<html><body></body></html>`))
			return
		}
		fmt.Fprintf(w, `<html><body>
			<div data-testid="job-card"><a href="/fr/companies/acme/jobs/data-engineer_paris_AbC123">Data engineer</a></div>
			<div data-testid="job-card"><a data-testid="job-link" href="http://%s/fr/companies/globex-corp/jobs/data-scientist_lyon_XyZ789">Data scientist</a></div>
		</body></html>`, r.Host)
	})
	mux.HandleFunc("/fr/companies/acme/jobs/data-engineer_paris_AbC123", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(detailedJobHTML))
	})
	mux.HandleFunc("/fr/companies/globex-corp/jobs/data-scientist_lyon_XyZ789", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(minimalJobHTML))
	})
	return httptest.NewServer(mux)
}

func TestCollectScrapesListingAndJobPages(t *testing.T) {
	ts := newJungleServer(t)
	defer ts.Close()

	st := &fakeStore{}
	c := NewCollector(Config{
		BaseURL:      ts.URL,
		Keywords:     "data analyst",
		MaxPages:     3,
		RequestDelay: time.Millisecond,
	}, st, nil)

	var counts []int
	err := c.CollectWithCallback(context.Background(), func(ref domain.BatchRef, count int) error {
		counts = append(counts, count)
		return nil
	})
	if err != nil {
		t.Fatalf("CollectWithCallback: %v", err)
	}

	if len(st.saves) != 1 {
		t.Fatalf("saved %d batches, want 1", len(st.saves))
	}
	if !strings.HasPrefix(st.saves[0].name, "welcome_jungle_data_analyst_") || !strings.HasSuffix(st.saves[0].name, "_p1.json") {
		t.Errorf("batch name = %q", st.saves[0].name)
	}
	if len(counts) != 1 || counts[0] != 2 {
		t.Fatalf("handler counts = %v, want [2]", counts)
	}

	var records []map[string]any
	if err := json.Unmarshal(st.saves[0].payload, &records); err != nil {
		t.Fatalf("decode batch payload: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("batch holds %d records, want 2", len(records))
	}
	if records[0]["reference"] != "data-engineer_paris_AbC123" || records[0]["title"] != "Data Engineer H/F" {
		t.Errorf("first record = %v", records[0])
	}
	if records[1]["company"] != "Globex Corp" || records[1]["location"] != "Lyon" {
		t.Errorf("second record = %v", records[1])
	}
}

func TestCollectStopsWhenListingFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fr/jobs", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	st := &fakeStore{}
	c := NewCollector(Config{
		BaseURL:      ts.URL,
		MaxPages:     3,
		RequestDelay: time.Millisecond,
	}, st, nil)

	refs, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(refs) != 0 || len(st.saves) != 0 {
		t.Errorf("refs=%d saves=%d, want none after a listing error", len(refs), len(st.saves))
	}
}

func TestCollectSkipsJobPagesThatFail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fr/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			w.Write([]byte(`<html><body></body></html>`))
			return
		}
		w.Write([]byte(`<html><body>
			<div data-testid="job-card"><a href="/fr/companies/acme/jobs/broken_paris_Zz9">x</a></div>
			<div data-testid="job-card"><a href="/fr/companies/acme/jobs/data-engineer_paris_AbC123">ok</a></div>
		</body></html>`))
	})
	mux.HandleFunc("/fr/companies/acme/jobs/broken_paris_Zz9", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	mux.HandleFunc("/fr/companies/acme/jobs/data-engineer_paris_AbC123", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(detailedJobHTML))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	st := &fakeStore{}
	c := NewCollector(Config{
		BaseURL:      ts.URL,
		MaxPages:     1,
		RequestDelay: time.Millisecond,
	}, st, nil)

	refs, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("saved %d batches, want 1", len(refs))
	}

	var records []map[string]any
	if err := json.Unmarshal(st.saves[0].payload, &records); err != nil {
		t.Fatalf("decode batch payload: %v", err)
	}
	if len(records) != 1 || records[0]["reference"] != "data-engineer_paris_AbC123" {
		t.Errorf("records = %v, want only the reachable job", records)
	}
}
