package service

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"dubbot/internal/core/domain"
)

// SessionStore keeps one ConversationSession per user. Sessions untouched for
// longer than the ttl are dropped; a zero ttl keeps them forever.
type SessionStore struct {
	cache *ttlcache.Cache[int64, domain.ConversationSession]
}

// NewSessionStore creates an empty store whose entries expire after ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		cache: ttlcache.New(ttlcache.WithTTL[int64, domain.ConversationSession](ttl)),
	}
}

// Get returns the user's session, or a fresh Idle one when absent or expired.
func (s *SessionStore) Get(userID int64) domain.ConversationSession {
	item := s.cache.Get(userID)
	if item == nil || item.IsExpired() {
		return domain.ConversationSession{State: domain.StateIdle}
	}
	return item.Value()
}

// Put stores sess for the user and restarts its expiry.
func (s *SessionStore) Put(userID int64, sess domain.ConversationSession) {
	sess.UpdatedAt = time.Now()
	s.cache.Set(userID, sess, ttlcache.DefaultTTL)
}

// Len returns the number of stored sessions, expired ones not yet swept included.
func (s *SessionStore) Len() int {
	return s.cache.Len()
}

// Run sweeps expired sessions until ctx is cancelled.
func (s *SessionStore) Run(ctx context.Context) {
	go s.cache.Start()
	<-ctx.Done()
	s.cache.Stop()
}
