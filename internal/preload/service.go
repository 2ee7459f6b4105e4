package preload

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Service owns the single live cache generation. All access goes
// through the mutex so readers see either the old generation or the
// new one in full, never a torn swap. One Service serves one wallet;
// preloading a new token replaces whatever was cached before.
type Service struct {
	builder *Builder
	ttl     time.Duration
	logger  *log.Logger
	now     func() time.Time

	mu    sync.Mutex
	cache *Cache
}

// ServiceOptions configures a Service. Zero values select the defaults.
type ServiceOptions struct {
	TTL    time.Duration
	Logger *log.Logger
	Now    func() time.Time // test hook
}

// NewService creates a Service around the builder.
func NewService(builder *Builder, opts ServiceOptions) *Service {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		builder: builder,
		ttl:     opts.TTL,
		logger:  opts.Logger,
		now:     opts.Now,
	}
}

// TTL returns the configured generation lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Preload builds a fresh generation for mint and installs it wholesale,
// replacing any previous generation for any token. Partial venue
// failures reduce coverage but never fail the preload; the only error
// path is the balance oracle itself.
func (s *Service) Preload(ctx context.Context, mint string) (*BuildResult, error) {
	res, err := s.builder.Build(ctx, mint)
	if err != nil {
		return nil, err
	}
	if n := res.FailureCount(); n > 0 {
		s.logger.Printf("preload for %s installed with %d of %d artifacts missing", mint, n, res.Cache.Count()+n)
	}

	s.mu.Lock()
	s.cache = res.Cache
	s.mu.Unlock()
	return res, nil
}

// Refresh rebuilds the current generation in place. It returns false
// when the refresh loop should stop: the cached token no longer matches
// mint, or the generation expired before the tick. A build failure
// keeps the loop alive and must never touch the existing generation,
// which is still valid; the error is returned for logging only.
func (s *Service) Refresh(ctx context.Context, mint string) (bool, error) {
	s.mu.Lock()
	current := s.cache
	if current != nil && current.Mint == mint && current.Expired(s.now(), s.ttl) {
		s.cache = nil
		current = nil
	}
	s.mu.Unlock()

	if current == nil || current.Mint != mint {
		return false, nil
	}

	res, err := s.builder.Build(ctx, mint)
	if err != nil {
		return true, err
	}
	if res.Cache.Count() == 0 && current.Count() > 0 {
		// A venue outage can strip a rebuild bare. The generation we
		// already hold is better than an empty one.
		return true, fmt.Errorf("rebuild produced no artifacts for %s, keeping previous generation", mint)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil || s.cache.Mint != mint {
		// Token switched while the rebuild was in flight.
		return false, nil
	}
	s.cache = res.Cache
	return true, nil
}

// Snapshot returns the live generation, or nil when none exists. An
// expired generation is dropped on read rather than waiting for the
// refresh loop to notice.
func (s *Service) Snapshot() *Cache {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil {
		return nil
	}
	if s.cache.Expired(s.now(), s.ttl) {
		s.cache = nil
		return nil
	}
	return s.cache
}

// Clear drops the generation if it belongs to mint. A generation for a
// different token is someone else's and stays.
func (s *Service) Clear(mint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil && s.cache.Mint == mint {
		s.cache = nil
	}
}

// ActiveMint returns the token of the live generation, or empty.
func (s *Service) ActiveMint() string {
	if c := s.Snapshot(); c != nil {
		return c.Mint
	}
	return ""
}
