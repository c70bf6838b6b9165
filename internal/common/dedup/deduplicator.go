// Package dedup tracks which postings a collector has already seen, so
// repeated runs don't re-publish unchanged records. State lives in Redis
// with a TTL; a lost key only costs one redundant fetch.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduplicator checks and records seen postings.
type Deduplicator struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

// NewDeduplicator creates a Redis-backed deduplicator.
func NewDeduplicator(client *redis.Client, prefix string, defaultTTL time.Duration) *Deduplicator {
	if prefix == "" {
		prefix = "etl:seen"
	}
	if defaultTTL == 0 {
		defaultTTL = 24 * time.Hour * 30
	}
	return &Deduplicator{
		client:     client,
		prefix:     prefix,
		defaultTTL: defaultTTL,
	}
}

// CheckResult classifies a posting against the seen-set.
type CheckResult int

const (
	// ResultNew - the posting has never been seen.
	ResultNew CheckResult = iota
	// ResultUpdated - seen before, but its refresh timestamp changed.
	ResultUpdated
	// ResultUnchanged - seen before with the same refresh timestamp.
	ResultUnchanged
)

// CheckPosting compares a posting's refresh timestamp against the stored
// one. Redis being unreachable degrades to ResultNew with the error, so a
// caller that ignores the error re-processes rather than drops.
func (d *Deduplicator) CheckPosting(ctx context.Context, source, id, lastUpdated string) (CheckResult, error) {
	key := d.makeKey(source, id)

	stored, err := d.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return ResultNew, nil
	}
	if err != nil {
		return ResultNew, fmt.Errorf("redis get: %w", err)
	}

	if stored != lastUpdated {
		return ResultUpdated, nil
	}
	return ResultUnchanged, nil
}

// MarkPosting stores the posting's refresh timestamp for later checks.
func (d *Deduplicator) MarkPosting(ctx context.Context, source, id, lastUpdated string) error {
	key := d.makeKey(source, id)
	if err := d.client.Set(ctx, key, lastUpdated, d.defaultTTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// IsSeen reports whether an id has been marked before.
func (d *Deduplicator) IsSeen(ctx context.Context, source, id string) (bool, error) {
	exists, err := d.client.Exists(ctx, d.makeKey(source, id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return exists > 0, nil
}

// MarkSeen marks an id with the default TTL.
func (d *Deduplicator) MarkSeen(ctx context.Context, source, id string) error {
	key := d.makeKey(source, id)
	if err := d.client.Set(ctx, key, time.Now().Unix(), d.defaultTTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// IsSeenByContent checks a content hash instead of an id, for scraped
// pages that carry no stable identifier.
func (d *Deduplicator) IsSeenByContent(ctx context.Context, source, content string) (bool, error) {
	return d.IsSeen(ctx, source, "content:"+d.hashContent(content))
}

// MarkSeenByContent marks a content hash as seen.
func (d *Deduplicator) MarkSeenByContent(ctx context.Context, source, content string) error {
	return d.MarkSeen(ctx, source, "content:"+d.hashContent(content))
}

func (d *Deduplicator) makeKey(source, id string) string {
	return fmt.Sprintf("%s:%s:%s", d.prefix, source, id)
}

func (d *Deduplicator) hashContent(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:16])
}
