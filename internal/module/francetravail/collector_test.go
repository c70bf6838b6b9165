package francetravail

import (
	"context"
	"errors"
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
	saves    []savedBatch
	failSave bool
}

func (f *fakeStore) List(ctx context.Context, source domain.Source, dr store.DateRange) ([]domain.BatchRef, error) {
	return nil, nil
}

func (f *fakeStore) Fetch(ctx context.Context, ref domain.BatchRef) (*domain.RawBatch, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) SaveRaw(ctx context.Context, source domain.Source, name string, payload []byte) (string, error) {
	if f.failSave {
		return "", errors.New("disk full")
	}
	f.saves = append(f.saves, savedBatch{name: name, payload: payload})
	return "data/raw/" + string(source) + "/" + name, nil
}

func (f *fakeStore) SaveProcessed(ctx context.Context, source domain.Source, name string, payload []byte) (string, error) {
	return name, nil
}

func (f *fakeStore) Origin() domain.Origin { return domain.OriginLocal }

func authHandler(calls *int, failAfterFirst bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*calls++
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if failAfterFirst && *calls > 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":1499}`))
	}
}

func TestCollectPaginatesAndSavesBatches(t *testing.T) {
	authCalls := 0
	var ranges, motsCles []string

	mux := http.NewServeMux()
	mux.HandleFunc("/token", authHandler(&authCalls, false))
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		ranges = append(ranges, r.URL.Query().Get("range"))
		motsCles = append(motsCles, r.URL.Query().Get("motsCles"))
		switch r.URL.Query().Get("range") {
		case "0-1":
			w.Header().Set("Content-Range", "offres 0-1/3")
			w.WriteHeader(http.StatusPartialContent)
			w.Write([]byte(`{"resultats":[{"id":"a1"},{"id":"a2"}]}`))
		default:
			w.Write([]byte(`{"resultats":[{"id":"a3"}]}`))
		}
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	st := &fakeStore{}
	c := NewCollector(Config{
		ClientID:     "id",
		ClientSecret: "secret",
		AuthURL:      ts.URL + "/token",
		APIURL:       ts.URL + "/search",
		Keywords:     "data analyst",
		MaxPages:     5,
		PageSize:     2,
		RequestDelay: time.Millisecond,
	}, st)

	var refs []domain.BatchRef
	var counts []int
	err := c.CollectWithCallback(context.Background(), func(ref domain.BatchRef, count int) error {
		refs = append(refs, ref)
		counts = append(counts, count)
		return nil
	})
	if err != nil {
		t.Fatalf("CollectWithCallback: %v", err)
	}

	if authCalls != 1 {
		t.Errorf("auth calls = %d, want 1", authCalls)
	}
	if len(ranges) != 2 || ranges[0] != "0-1" || ranges[1] != "2-3" {
		t.Fatalf("requested ranges = %v, want [0-1 2-3]", ranges)
	}
	if motsCles[0] != "data analyst" {
		t.Errorf("motsCles = %q, want %q", motsCles[0], "data analyst")
	}

	if len(st.saves) != 2 {
		t.Fatalf("saved %d batches, want 2", len(st.saves))
	}
	if !strings.HasPrefix(st.saves[0].name, "france_travail_data_analyst_") || !strings.HasSuffix(st.saves[0].name, "_p1.json") {
		t.Errorf("first batch name = %q", st.saves[0].name)
	}
	if !strings.HasSuffix(st.saves[1].name, "_p2.json") {
		t.Errorf("second batch name = %q", st.saves[1].name)
	}
	if !strings.Contains(string(st.saves[0].payload), `"resultats"`) {
		t.Errorf("first batch payload does not carry the raw response: %s", st.saves[0].payload)
	}

	if len(refs) != 2 || counts[0] != 2 || counts[1] != 1 {
		t.Fatalf("handler saw refs=%d counts=%v, want 2 refs with counts [2 1]", len(refs), counts)
	}
	if refs[0].Origin != domain.OriginLocal || refs[0].DateToken == "" {
		t.Errorf("first ref = %+v, want local origin with a date token", refs[0])
	}
	if refs[0].Key != "data/raw/france_travail/"+refs[0].Name {
		t.Errorf("first ref key = %q, want the store key", refs[0].Key)
	}
}

func TestCollectFailsWithoutToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := NewCollector(Config{
		ClientID:     "id",
		ClientSecret: "bad",
		AuthURL:      ts.URL + "/token",
		APIURL:       ts.URL + "/search",
		RequestDelay: time.Millisecond,
	}, &fakeStore{})

	err := c.CollectWithCallback(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "authenticating") {
		t.Fatalf("CollectWithCallback error = %v, want authentication failure", err)
	}
}

func TestCollectStopsOnSearchError(t *testing.T) {
	authCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/token", authHandler(&authCalls, false))
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	st := &fakeStore{}
	c := NewCollector(Config{
		ClientID:     "id",
		ClientSecret: "secret",
		AuthURL:      ts.URL + "/token",
		APIURL:       ts.URL + "/search",
		RequestDelay: time.Millisecond,
	}, st)

	refs, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(refs) != 0 || len(st.saves) != 0 {
		t.Errorf("refs=%d saves=%d, want none after a page error", len(refs), len(st.saves))
	}
}

func TestCollectRefreshesTokenEveryTenPages(t *testing.T) {
	authCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/token", authHandler(&authCalls, true))
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"resultats":[{"id":"x"}]}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	st := &fakeStore{}
	c := NewCollector(Config{
		ClientID:     "id",
		ClientSecret: "secret",
		AuthURL:      ts.URL + "/token",
		APIURL:       ts.URL + "/search",
		MaxPages:     11,
		PageSize:     1,
		RequestDelay: time.Millisecond,
	}, st)

	refs, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	// Initial auth plus one refresh attempt at page 11; the failed refresh
	// keeps the first token so every page still lands.
	if authCalls != 2 {
		t.Errorf("auth calls = %d, want 2", authCalls)
	}
	if len(refs) != 11 {
		t.Errorf("saved %d batches, want 11", len(refs))
	}
}

func TestCollectContinuesWhenSaveFails(t *testing.T) {
	authCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/token", authHandler(&authCalls, false))
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultats":[{"id":"x"}]}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := NewCollector(Config{
		ClientID:     "id",
		ClientSecret: "secret",
		AuthURL:      ts.URL + "/token",
		APIURL:       ts.URL + "/search",
		PageSize:     2,
		RequestDelay: time.Millisecond,
	}, &fakeStore{failSave: true})

	handlerCalls := 0
	err := c.CollectWithCallback(context.Background(), func(ref domain.BatchRef, count int) error {
		handlerCalls++
		return nil
	})
	if err != nil {
		t.Fatalf("CollectWithCallback: %v", err)
	}
	if handlerCalls != 0 {
		t.Errorf("handler ran %d times for unsaved batches, want 0", handlerCalls)
	}
}
