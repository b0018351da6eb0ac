/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/trustbloc/edge-attest/pkg/cache"
)

var logger = log.New("edge-attest/session")

const defaultSweepInterval = time.Minute

// MemOption configures a MemStore.
type MemOption func(s *MemStore)

// WithSweepInterval sets how often expired sessions are dropped.
func WithSweepInterval(d time.Duration) MemOption {
	return func(s *MemStore) {
		s.sweepInterval = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemOption {
	return func(s *MemStore) {
		s.now = now
	}
}

// MemStore keeps sessions in a bounded in-process cache. Live sessions are never evicted: when
// every slot holds one, Put fails with ErrStoreFull until sessions are consumed or expire.
type MemStore struct {
	cache         *cache.Cache
	sweepInterval time.Duration
	now           func() time.Time

	stop     chan struct{}
	done     chan struct{}
	startMu  sync.Mutex
	started  bool
	stopOnce sync.Once
}

// NewMemStore returns a store for up to capacity sessions.
func NewMemStore(capacity int, opts ...MemOption) *MemStore {
	s := &MemStore{
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.cache = cache.New(capacity, 0, cache.WithClock(s.now), cache.WithEvictCallback(func(key string, _ interface{}) {
		logger.Debugf("session %s dropped", key)
	}))

	return s
}

// Put stores a session until its ttl elapses.
func (s *MemStore) Put(_ context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("session id is mandatory")
	}

	if sess.TTL <= 0 {
		return fmt.Errorf("session %s has no ttl", sess.ID)
	}

	ttl := sess.ExpiresAt().Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("%w: %s", ErrSessionExpired, sess.ID)
	}

	if err := s.cache.AddWithTTL(sess.ID, sess, ttl); err != nil {
		if errors.Is(err, cache.ErrFull) {
			logger.Warnf("session store full, rejecting session %s", sess.ID)

			return fmt.Errorf("%w: %s", ErrStoreFull, sess.ID)
		}

		return err
	}

	return nil
}

// Take removes and returns the session.
func (s *MemStore) Take(_ context.Context, id string) (*Session, error) {
	v, err := s.cache.Take(id)

	switch {
	case errors.Is(err, cache.ErrExpired):
		return nil, fmt.Errorf("%w: %s", ErrSessionExpired, id)
	case err != nil:
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	sess, ok := v.(*Session)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	return sess, nil
}

// Exists reports whether an unexpired session is stored under id.
func (s *MemStore) Exists(_ context.Context, id string) bool {
	_, ok := s.cache.Peek(id)

	return ok
}

// Len returns the number of stored sessions, including expired ones not yet swept.
func (s *MemStore) Len() int {
	return s.cache.Len()
}

// Sweep drops expired sessions.
func (s *MemStore) Sweep() int {
	return s.cache.Sweep(s.now())
}

// Start runs the background sweep until Close.
func (s *MemStore) Start() {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.started {
		return
	}

	s.started = true

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					logger.Debugf("swept %d expired sessions", n)
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Close stops the background sweep.
func (s *MemStore) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})

	s.startMu.Lock()
	started := s.started
	s.startMu.Unlock()

	if started {
		<-s.done
	}
}
