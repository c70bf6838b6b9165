package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/datapole/go-etl/internal/common/store"
	"github.com/datapole/go-etl/internal/domain"
)

type fakeStore struct {
	origin    domain.Origin
	refs      []domain.BatchRef
	failList  bool
	listCalls int
}

func (f *fakeStore) List(ctx context.Context, source domain.Source, dr store.DateRange) ([]domain.BatchRef, error) {
	f.listCalls++
	if f.failList {
		return nil, errors.New("listing unavailable")
	}
	var out []domain.BatchRef
	for _, r := range f.refs {
		if r.Source == source && dr.Contains(r.DateToken) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) Fetch(ctx context.Context, ref domain.BatchRef) (*domain.RawBatch, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) SaveRaw(ctx context.Context, source domain.Source, name string, payload []byte) (string, error) {
	f.refs = append(f.refs, domain.BatchRef{
		Source: source, Origin: f.origin, Key: name, Name: name, DateToken: store.DateToken(name),
	})
	return name, nil
}

func (f *fakeStore) SaveProcessed(ctx context.Context, source domain.Source, name string, payload []byte) (string, error) {
	return name, nil
}

func (f *fakeStore) Origin() domain.Origin { return f.origin }

func ref(origin domain.Origin, name string) domain.BatchRef {
	return domain.BatchRef{
		Source:    domain.SourceFranceTravail,
		Origin:    origin,
		Key:       name,
		Name:      name,
		DateToken: store.DateToken(name),
	}
}

func TestResolvePrefersLocal(t *testing.T) {
	shared := "france_travail_all_20250812_143000_p1.json"
	local := &fakeStore{origin: domain.OriginLocal, refs: []domain.BatchRef{
		ref(domain.OriginLocal, shared),
		ref(domain.OriginLocal, "france_travail_all_20250811_090000_p1.json"),
	}}
	remote := &fakeStore{origin: domain.OriginRemote, refs: []domain.BatchRef{
		ref(domain.OriginRemote, shared),
		ref(domain.OriginRemote, "france_travail_all_20250810_090000_p1.json"),
	}}

	refs, err := NewEngine(local, remote).Resolve(context.Background(), domain.SourceFranceTravail, store.DateRange{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("Resolve returned %d refs, want 3", len(refs))
	}

	byName := map[string]domain.Origin{}
	for _, r := range refs {
		if _, dup := byName[r.Name]; dup {
			t.Errorf("Resolve returned duplicate name %q", r.Name)
		}
		byName[r.Name] = r.Origin
	}
	if byName[shared] != domain.OriginLocal {
		t.Errorf("shared name resolved to %s, want LOCAL", byName[shared])
	}
}

func TestResolveRemoteFailureDegrades(t *testing.T) {
	local := &fakeStore{origin: domain.OriginLocal, refs: []domain.BatchRef{
		ref(domain.OriginLocal, "france_travail_all_20250812_143000_p1.json"),
	}}
	remote := &fakeStore{origin: domain.OriginRemote, failList: true}

	refs, err := NewEngine(local, remote).Resolve(context.Background(), domain.SourceFranceTravail, store.DateRange{})
	if err != nil {
		t.Fatalf("Resolve with failing remote: %v", err)
	}
	if len(refs) != 1 {
		t.Errorf("Resolve returned %d refs, want 1 local", len(refs))
	}
}

func TestResolveWithoutRemote(t *testing.T) {
	local := &fakeStore{origin: domain.OriginLocal, refs: []domain.BatchRef{
		ref(domain.OriginLocal, "france_travail_all_20250812_143000_p1.json"),
	}}

	refs, err := NewEngine(local, nil).Resolve(context.Background(), domain.SourceFranceTravail, store.DateRange{})
	if err != nil {
		t.Fatalf("Resolve without remote: %v", err)
	}
	if len(refs) != 1 {
		t.Errorf("Resolve returned %d refs, want 1", len(refs))
	}
}

func TestResolveAppliesRange(t *testing.T) {
	local := &fakeStore{origin: domain.OriginLocal, refs: []domain.BatchRef{
		ref(domain.OriginLocal, "france_travail_all_20250705_090000_p1.json"),
		ref(domain.OriginLocal, "france_travail_all_20250812_143000_p1.json"),
		ref(domain.OriginLocal, "france_travail_backup.json"), // dateless
	}}
	engine := NewEngine(local, nil)

	ranged, err := engine.Resolve(context.Background(), domain.SourceFranceTravail, store.DateRange{Start: "20250801", End: "20250831"})
	if err != nil {
		t.Fatalf("Resolve ranged: %v", err)
	}
	if len(ranged) != 1 {
		t.Fatalf("ranged resolve returned %d refs, want 1", len(ranged))
	}

	all, err := engine.Resolve(context.Background(), domain.SourceFranceTravail, store.DateRange{})
	if err != nil {
		t.Fatalf("Resolve all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all resolve returned %d refs, want 3 including dateless", len(all))
	}
}

func TestHasCollected(t *testing.T) {
	ctx := context.Background()
	local := &fakeStore{origin: domain.OriginLocal}
	remote := &fakeStore{origin: domain.OriginRemote, refs: []domain.BatchRef{
		ref(domain.OriginRemote, "france_travail_data_engineer_20250812_090000_p1.json"),
	}}
	engine := NewEngine(local, remote)

	// Matching tag and token found remotely
	ok, names := engine.HasCollected(ctx, domain.SourceFranceTravail, "20250812", "data_engineer")
	if !ok || len(names) != 1 {
		t.Errorf("HasCollected = %v (%d names), want true with 1 name", ok, len(names))
	}

	// Same token, different tag
	if ok, _ := engine.HasCollected(ctx, domain.SourceFranceTravail, "20250812", "all"); ok {
		t.Error("HasCollected matched a different query tag")
	}

	// Same tag, different token
	if ok, _ := engine.HasCollected(ctx, domain.SourceFranceTravail, "20250813", "data_engineer"); ok {
		t.Error("HasCollected matched a different date token")
	}
}

func TestHasCollectedEnumeratesFreshly(t *testing.T) {
	ctx := context.Background()
	local := &fakeStore{origin: domain.OriginLocal}
	engine := NewEngine(local, nil)

	if ok, _ := engine.HasCollected(ctx, domain.SourceFranceTravail, "20250812", "all"); ok {
		t.Fatal("HasCollected true before any batch saved")
	}

	// A write between calls must be seen on the next check
	if _, err := local.SaveRaw(ctx, domain.SourceFranceTravail, "france_travail_all_20250812_143000_p1.json", nil); err != nil {
		t.Fatalf("SaveRaw: %v", err)
	}
	if ok, _ := engine.HasCollected(ctx, domain.SourceFranceTravail, "20250812", "all"); !ok {
		t.Error("HasCollected did not see a batch saved after the first call")
	}
	if local.listCalls < 2 {
		t.Errorf("listings enumerated %d times, want one per call", local.listCalls)
	}
}
