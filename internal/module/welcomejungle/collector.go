package welcomejungle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/datapole/go-etl/internal/common/dedup"
	"github.com/datapole/go-etl/internal/common/store"
	"github.com/datapole/go-etl/internal/domain"
	"github.com/datapole/go-etl/internal/module"
)

// Collector implements posting collection from Welcome to the Jungle by
// scraping search result pages and the job pages they link to
type Collector struct {
	collector *colly.Collector
	store     store.Store
	dedup     *dedup.Deduplicator
	config    Config
}

// NewCollector creates a new Welcome to the Jungle collector saving batches
// through the given store. The deduplicator is optional; when present, job
// pages scraped within its TTL are skipped.
func NewCollector(cfg Config, st store.Store, deduplicator *dedup.Deduplicator) *Collector {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SearchURL == "" {
		cfg.SearchURL = cfg.BaseURL + "/fr/jobs"
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 3
	}
	if cfg.RequestDelay <= 0 {
		cfg.RequestDelay = 2 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}

	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       cfg.RequestDelay,
		RandomDelay: cfg.RequestDelay / 2,
	})

	return &Collector{
		collector: c,
		store:     st,
		dedup:     deduplicator,
		config:    cfg,
	}
}

// Collect scrapes job pages and returns the saved batch references
func (c *Collector) Collect(ctx context.Context) ([]domain.BatchRef, error) {
	var refs []domain.BatchRef
	err := c.CollectWithCallback(ctx, func(ref domain.BatchRef, count int) error {
		refs = append(refs, ref)
		return nil
	})
	return refs, err
}

// CollectWithCallback scrapes search pages one by one, saves each page of
// job records as a raw batch and calls handler after each save
func (c *Collector) CollectWithCallback(ctx context.Context, handler module.BatchHandler) error {
	tag := store.QueryTag(c.config.Keywords)
	totalJobs := 0

	for page := 1; page <= c.config.MaxPages; page++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		log.Printf("[WelcomeJungle] Scraping page %d/%d for %q", page, c.config.MaxPages, c.config.Keywords)

		links, err := c.listJobLinks(page)
		if err != nil {
			log.Printf("[WelcomeJungle] Error on page %d: %v", page, err)
			break
		}
		if len(links) == 0 {
			log.Printf("[WelcomeJungle] No more offers on page %d", page)
			break
		}

		records, seen := c.scrapeJobs(ctx, links)
		log.Printf("[WelcomeJungle] Page %d summary: %d links | %d scraped | %d seen",
			page, len(links), len(records), seen)

		if len(records) == 0 {
			continue
		}
		totalJobs += len(records)

		payload, err := json.Marshal(records)
		if err != nil {
			log.Printf("[WelcomeJungle] Error encoding page %d: %v", page, err)
			continue
		}

		name := store.BatchName(domain.SourceWelcomeJungle, tag, time.Now(), page)
		key, err := c.store.SaveRaw(ctx, domain.SourceWelcomeJungle, name, payload)
		if err != nil {
			log.Printf("[WelcomeJungle] Error saving page %d: %v", page, err)
			continue
		}

		ref := domain.BatchRef{
			Source:    domain.SourceWelcomeJungle,
			Origin:    c.store.Origin(),
			Key:       key,
			Name:      name,
			DateToken: store.DateToken(name),
		}
		if handler != nil {
			if err := handler(ref, len(records)); err != nil {
				log.Printf("[WelcomeJungle] Handler error on page %d: %v", page, err)
			}
		}
		log.Printf("[WelcomeJungle] Page %d: %d offers saved as %s", page, len(records), name)
	}

	log.Printf("[WelcomeJungle] Collected %d offers total", totalJobs)
	return nil
}

// listJobLinks scrapes one search result page and returns the job page URLs
func (c *Collector) listJobLinks(page int) ([]string, error) {
	var links []string
	var visitErr error

	collector := c.collector.Clone()
	collector.OnHTML(`div[data-testid="job-card"]`, func(el *colly.HTMLElement) {
		link := el.ChildAttr(`a[href^="/fr/companies"]`, "href")
		if link == "" {
			link = el.ChildAttr(`a[data-testid="job-link"]`, "href")
		}
		if link == "" {
			return
		}
		if !strings.HasPrefix(link, "http") {
			link = el.Request.AbsoluteURL(link)
		}
		links = append(links, link)
	})
	collector.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("fetch listing: %w (status: %d)", err, r.StatusCode)
	})

	searchURL := fmt.Sprintf("%s?query=%s&page=%d", c.config.SearchURL, url.QueryEscape(c.config.Keywords), page)
	if err := collector.Visit(searchURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", searchURL, err)
	}
	if visitErr != nil {
		return nil, visitErr
	}
	return links, nil
}

// scrapeJobs fetches each job page and parses it into a raw record.
// Failures are logged and skipped; the second return value counts pages the
// deduplicator already knew.
func (c *Collector) scrapeJobs(ctx context.Context, links []string) ([]map[string]any, int) {
	var records []map[string]any
	seen := 0

	for _, link := range links {
		select {
		case <-ctx.Done():
			return records, seen
		default:
		}

		if c.dedup != nil {
			known, err := c.dedup.IsSeenByContent(ctx, string(domain.SourceWelcomeJungle), link)
			if err != nil {
				log.Printf("[WelcomeJungle] Dedup check error for %s: %v", link, err)
			} else if known {
				seen++
				continue
			}
		}

		record, err := c.scrapeJob(link)
		if err != nil {
			log.Printf("[WelcomeJungle] Error scraping %s: %v", link, err)
			continue
		}
		records = append(records, record)

		if c.dedup != nil {
			if err := c.dedup.MarkSeenByContent(ctx, string(domain.SourceWelcomeJungle), link); err != nil {
				log.Printf("[WelcomeJungle] Dedup mark error for %s: %v", link, err)
			}
		}
	}
	return records, seen
}

// scrapeJob fetches one job page and parses it into a raw record
func (c *Collector) scrapeJob(jobURL string) (map[string]any, error) {
	var record map[string]any
	var visitErr error

	collector := c.collector.Clone()
	collector.OnHTML("html", func(el *colly.HTMLElement) {
		record = parseJobPage(jobURL, el.DOM)
	})
	collector.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("fetch job page: %w (status: %d)", err, r.StatusCode)
	})

	if err := collector.Visit(jobURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", jobURL, err)
	}
	if visitErr != nil {
		return nil, visitErr
	}
	if record == nil {
		return nil, fmt.Errorf("no data extracted from %s", jobURL)
	}
	return record, nil
}

// Source returns the source identifier
func (c *Collector) Source() domain.Source {
	return domain.SourceWelcomeJungle
}
