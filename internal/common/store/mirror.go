package store

import (
	"context"
	"log"

	"github.com/datapole/go-etl/internal/domain"
)

// MirrorStore is a write-through pair of origins. Reads come from the
// primary; saves land on the primary and are copied to the mirror best
// effort, so a failed upload never loses the batch. Collectors save
// through it to reach both the local tree and the bucket.
type MirrorStore struct {
	primary Store
	mirror  Store
}

// NewMirrorStore wraps primary with a best-effort mirror. A nil mirror
// leaves the store primary-only.
func NewMirrorStore(primary, mirror Store) *MirrorStore {
	return &MirrorStore{primary: primary, mirror: mirror}
}

// Origin implements Store.
func (s *MirrorStore) Origin() domain.Origin {
	return s.primary.Origin()
}

// List implements Store.
func (s *MirrorStore) List(ctx context.Context, source domain.Source, dr DateRange) ([]domain.BatchRef, error) {
	return s.primary.List(ctx, source, dr)
}

// Fetch implements Store.
func (s *MirrorStore) Fetch(ctx context.Context, ref domain.BatchRef) (*domain.RawBatch, error) {
	return s.primary.Fetch(ctx, ref)
}

// SaveRaw implements Store.
func (s *MirrorStore) SaveRaw(ctx context.Context, source domain.Source, name string, payload []byte) (string, error) {
	key, err := s.primary.SaveRaw(ctx, source, name, payload)
	if err != nil {
		return "", err
	}
	if s.mirror != nil {
		if _, err := s.mirror.SaveRaw(ctx, source, name, payload); err != nil {
			log.Printf("[Store] Mirror upload failed for %s: %v", name, err)
		}
	}
	return key, nil
}

// SaveProcessed implements Store.
func (s *MirrorStore) SaveProcessed(ctx context.Context, source domain.Source, name string, payload []byte) (string, error) {
	key, err := s.primary.SaveProcessed(ctx, source, name, payload)
	if err != nil {
		return "", err
	}
	if s.mirror != nil {
		if _, err := s.mirror.SaveProcessed(ctx, source, name, payload); err != nil {
			log.Printf("[Store] Mirror upload failed for %s: %v", name, err)
		}
	}
	return key, nil
}
