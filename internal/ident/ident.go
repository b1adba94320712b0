// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ident generates short, human-legible entity identifiers: a
// fixed 3-character kind tag followed by a random suffix drawn from an
// alphabet without visually confusable characters. Identifiers are
// assigned once at creation and never reused; the storage-level unique
// constraint on the id column is the authoritative guard, the allocator's
// existence probe only keeps collisions rare.
package ident

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"prepstack/internal/models"
)

// Kind tags one identifier namespace per entity type.
type Kind string

const (
	KindCategory Kind = "cat"
	KindLabel    Kind = "lbl"
	KindQuestion Kind = "qsn"
	KindArticle  Kind = "art"
	KindMCQ      Kind = "mcq"
	KindDesign   Kind = "sys"
)

const (
	// alphabet excludes 0, 1, I, L and O.
	alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

	// SuffixLen is the random suffix length. 31^8 candidate suffixes per
	// kind, so collisions stay negligible at catalog scale.
	SuffixLen = 8

	// maxAttempts bounds the collision retry loop. Hitting the bound
	// means the suffix space for a kind is saturated, which is an
	// operational alert, not something callers retry.
	maxAttempts = 5
)

// Valid reports whether k is a known kind tag.
func (k Kind) Valid() bool {
	switch k {
	case KindCategory, KindLabel, KindQuestion, KindArticle, KindMCQ, KindDesign:
		return true
	}
	return false
}

// Generate returns a fresh identifier for the kind without any uniqueness
// probe. Use Allocator.Allocate when a backing store is available.
func Generate(kind Kind) string {
	var b strings.Builder
	b.Grow(len(kind) + SuffixLen)
	b.WriteString(string(kind))
	for i := 0; i < SuffixLen; i++ {
		b.WriteByte(alphabet[randIndex()])
	}
	return b.String()
}

// HasKind reports whether id carries the given kind tag and a
// well-formed suffix.
func HasKind(id string, kind Kind) bool {
	if len(id) != len(kind)+SuffixLen || !strings.HasPrefix(id, string(kind)) {
		return false
	}
	for _, c := range id[len(kind):] {
		if !strings.ContainsRune(alphabet, c) {
			return false
		}
	}
	return true
}

// randIndex returns a uniform index into the alphabet. Rejection sampling
// avoids the modulo bias of 256 % len(alphabet).
func randIndex() int {
	max := byte(256 - 256%len(alphabet))
	var buf [1]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			// crypto/rand failing means the platform entropy source is
			// broken; nothing sensible to do.
			panic(fmt.Sprintf("ident: crypto/rand: %v", err))
		}
		if buf[0] < max {
			return int(buf[0]) % len(alphabet)
		}
	}
}

// ExistsFunc probes the backing store for an identifier already in use.
type ExistsFunc func(ctx context.Context, id string) (bool, error)

// Allocator produces identifiers not currently in use, retrying on
// collision up to a bounded attempt count. Allocation reserves nothing:
// the id is only claimed when the caller persists a row with it.
type Allocator struct {
	exists ExistsFunc
}

// NewAllocator returns an allocator probing uniqueness through exists.
func NewAllocator(exists ExistsFunc) *Allocator {
	return &Allocator{exists: exists}
}

// errCollision marks an in-use candidate so the retry loop tries again.
var errCollision = errors.New("identifier collision")

// Allocate returns an identifier for the kind that the existence probe
// did not find in use. Exceeding the retry bound returns
// models.ErrAllocationExhausted.
func (a *Allocator) Allocate(ctx context.Context, kind Kind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("allocate: unknown kind %q", kind)
	}

	var id string
	backoff := retry.WithMaxRetries(maxAttempts-1, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		candidate := Generate(kind)
		taken, err := a.exists(ctx, candidate)
		if err != nil {
			return fmt.Errorf("existence probe: %w", err)
		}
		if taken {
			return retry.RetryableError(errCollision)
		}
		id = candidate
		return nil
	})
	if err != nil {
		if errors.Is(err, errCollision) {
			return "", fmt.Errorf("allocate %q after %d attempts: %w", kind, maxAttempts, models.ErrAllocationExhausted)
		}
		return "", fmt.Errorf("allocate %q: %w", kind, err)
	}
	return id, nil
}
