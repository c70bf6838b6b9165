package francetravail

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/datapole/go-etl/internal/common/store"
	"github.com/datapole/go-etl/internal/domain"
	"github.com/datapole/go-etl/internal/module"
)

const (
	DefaultAuthURL = "https://francetravail.io/connexion/oauth2/access_token?realm=%2Fpartenaire"
	DefaultAPIURL  = "https://api.francetravail.io/partenaire/offresdemploi/v2/offres/search"
	DefaultScope   = "o2dsoffre api_offresdemploiv2"

	// Access tokens expire after about 25 minutes; refreshing every ten
	// pages keeps long backfills from running into a stale token.
	tokenRefreshPages = 10
)

// Collector implements posting collection from the France Travail offres
// d'emploi API
type Collector struct {
	client *http.Client
	store  store.Store
	config Config
}

// NewCollector creates a new France Travail collector saving batches
// through the given store
func NewCollector(cfg Config, st store.Store) *Collector {
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 150
	}
	if cfg.RequestDelay <= 0 {
		cfg.RequestDelay = 2 * time.Second
	}

	return &Collector{
		client: &http.Client{Timeout: 30 * time.Second},
		store:  st,
		config: cfg,
	}
}

// Collect fetches offers from the API and returns the saved batch references
func (c *Collector) Collect(ctx context.Context) ([]domain.BatchRef, error) {
	var refs []domain.BatchRef
	err := c.CollectWithCallback(ctx, func(ref domain.BatchRef, count int) error {
		refs = append(refs, ref)
		return nil
	})
	return refs, err
}

// CollectWithCallback fetches offers page by page, saves each page as a raw
// batch and calls handler after each save
func (c *Collector) CollectWithCallback(ctx context.Context, handler module.BatchHandler) error {
	token, err := c.authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}

	tag := store.QueryTag(c.config.Keywords)
	totalOffers := 0

	for page := 1; page <= c.config.MaxPages; page++ {
		log.Printf("[FranceTravail] Fetching page %d/%d", page, c.config.MaxPages)

		if page > 1 && (page-1)%tokenRefreshPages == 0 {
			if fresh, err := c.authenticate(ctx); err != nil {
				log.Printf("[FranceTravail] Token refresh failed, keeping current token: %v", err)
			} else {
				token = fresh
			}
		}

		payload, count, err := c.searchPage(ctx, token, page)
		if err != nil {
			log.Printf("[FranceTravail] Error on page %d: %v", page, err)
			break
		}

		if count == 0 {
			log.Printf("[FranceTravail] No more offers on page %d", page)
			break
		}
		totalOffers += count

		name := store.BatchName(domain.SourceFranceTravail, tag, time.Now(), page)
		key, err := c.store.SaveRaw(ctx, domain.SourceFranceTravail, name, payload)
		if err != nil {
			log.Printf("[FranceTravail] Error saving page %d: %v", page, err)
		} else {
			ref := domain.BatchRef{
				Source:    domain.SourceFranceTravail,
				Origin:    c.store.Origin(),
				Key:       key,
				Name:      name,
				DateToken: store.DateToken(name),
			}
			if handler != nil {
				if err := handler(ref, count); err != nil {
					log.Printf("[FranceTravail] Handler error on page %d: %v", page, err)
				}
			}
			log.Printf("[FranceTravail] Page %d: %d offers saved as %s", page, count, name)
		}

		// A page shorter than the page size is the last one
		if count < c.config.PageSize {
			log.Printf("[FranceTravail] Short page (%d of %d), ending pagination", count, c.config.PageSize)
			break
		}

		time.Sleep(c.config.RequestDelay)
	}

	log.Printf("[FranceTravail] Collected %d offers total", totalOffers)
	return nil
}

// Source returns the source identifier
func (c *Collector) Source() domain.Source {
	return domain.SourceFranceTravail
}
