package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/datapole/go-etl/internal/domain"
)

// LocalStore reads and writes batches under {dataDir}/raw/{source} and
// {dataDir}/processed/{source}.
type LocalStore struct {
	dataDir string
}

// NewLocalStore creates a store rooted at dataDir. Directories are created
// lazily on first save.
func NewLocalStore(dataDir string) *LocalStore {
	return &LocalStore{dataDir: dataDir}
}

// Origin implements Store.
func (s *LocalStore) Origin() domain.Origin {
	return domain.OriginLocal
}

// List implements Store. A missing source directory is an empty listing,
// not an error.
func (s *LocalStore) List(ctx context.Context, source domain.Source, dr DateRange) ([]domain.BatchRef, error) {
	dir := s.rawDir(source)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var refs []domain.BatchRef
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		token := DateToken(entry.Name())
		if !dr.Contains(token) {
			continue
		}
		refs = append(refs, domain.BatchRef{
			Source:    source,
			Origin:    domain.OriginLocal,
			Key:       filepath.Join(dir, entry.Name()),
			Name:      entry.Name(),
			DateToken: token,
		})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// Fetch implements Store.
func (s *LocalStore) Fetch(ctx context.Context, ref domain.BatchRef) (*domain.RawBatch, error) {
	payload, err := os.ReadFile(ref.Key)
	if err != nil {
		return nil, fmt.Errorf("reading batch %s: %w", ref.Name, err)
	}
	records, err := decodeRecords(payload)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", ref.Name, err)
	}
	return &domain.RawBatch{Ref: ref, Records: records}, nil
}

// SaveRaw implements Store.
func (s *LocalStore) SaveRaw(ctx context.Context, source domain.Source, name string, payload []byte) (string, error) {
	return s.save(s.rawDir(source), name, payload)
}

// SaveProcessed implements Store.
func (s *LocalStore) SaveProcessed(ctx context.Context, source domain.Source, name string, payload []byte) (string, error) {
	return s.save(filepath.Join(s.dataDir, "processed", string(source)), name, payload)
}

func (s *LocalStore) rawDir(source domain.Source) string {
	return filepath.Join(s.dataDir, "raw", string(source))
}

func (s *LocalStore) save(dir, name string, payload []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
