// Package repository defines the data-access-layer interfaces the core consumes.
package repository

import (
	"context"
	"time"
)

// JobRegistry is a keyed flag service with TTL semantics (spec §4.1).
//
// Keys are advisory: they optimize behavior (dedup, negative caching) but
// never gate correctness. Implementations must treat transient backend
// errors as "unknown" and let callers fall through to ChapterStore.
type JobRegistry interface {
	// TrySet sets key if absent, with the given TTL. Returns true if this
	// call won the set (the caller now owns the flag).
	TrySet(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Exists reports whether key is currently set.
	Exists(ctx context.Context, key string) (bool, error)

	// Refresh resets key's TTL without changing its value. No-op if absent.
	Refresh(ctx context.Context, key string, ttl time.Duration) error

	// Clear deletes key.
	Clear(ctx context.Context, key string) error
}

// SummarizingKey builds the "in-flight" flag key for a video.
func SummarizingKey(vid string) string { return "summarizing:" + vid }

// NoCaptionsKey builds the negative-cache flag key for a video.
func NoCaptionsKey(vid string) string { return "no_captions:" + vid }
