package storegw

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/becomeliminal/agentmemory/internal/agerr"
)

func sessionCacheKey(id string) string { return "session:" + id }

// GetSession returns the session row, or a not-found error.
func (g *Gateway) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	if cached, ok := g.hotCache.get(sessionCacheKey(sessionID)); ok {
		s := cached.(Session)
		return &s, nil
	}

	g.sessionMu.RLock()
	s, ok := g.sessions[sessionID]
	g.sessionMu.RUnlock()
	if !ok {
		return nil, agerr.NotFound(nil, "session %q not found", sessionID)
	}
	cp := *s
	g.hotCache.set(sessionCacheKey(sessionID), cp)
	return &cp, nil
}

// InitOrResumeSession returns the existing session if present and live, or
// creates a new one with the given owner/capacity. A session past its expiry
// is treated as absent and a fresh one is created in its place.
func (g *Gateway) InitOrResumeSession(ctx context.Context, sessionID, userID, orgID string, maxTokens int) (*Session, error) {
	now := time.Now()
	var result Session
	err := g.withWrite(ctx, func() error {
		g.sessionMu.Lock()
		defer g.sessionMu.Unlock()

		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		if existing, ok := g.sessions[sessionID]; ok {
			if existing.ExpiresAt == nil || existing.ExpiresAt.After(now) {
				existing.LastActivityAt = now
				result = *existing
				return nil
			}
			delete(g.sessions, sessionID)
		}

		if maxTokens <= 0 {
			maxTokens = 8000
		}
		s := &Session{
			SessionID:      sessionID,
			UserID:         userID,
			OrgID:          orgID,
			MaxTokens:      maxTokens,
			TokenTotal:     0,
			CreatedAt:      now,
			LastActivityAt: now,
			Config:         map[string]any{},
		}
		g.sessions[sessionID] = s
		result = *s
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.hotCache.del(sessionCacheKey(result.SessionID))
	return &result, nil
}

// touchSession updates last-activity and persists a token-total delta under
// the caller's already-held write-mutex scope.
func (g *Gateway) touchSession(sessionID string, tokenDelta int) error {
	g.sessionMu.Lock()
	defer g.sessionMu.Unlock()

	s, ok := g.sessions[sessionID]
	if !ok {
		return agerr.NotFound(nil, "session %q not found", sessionID)
	}
	s.TokenTotal += tokenDelta
	s.LastActivityAt = time.Now()
	g.hotCache.del(sessionCacheKey(sessionID))
	return nil
}

// ClearSessionItems deletes a session's working-memory items and resets its
// token total to zero.
func (g *Gateway) ClearSessionItems(ctx context.Context, sessionID string) error {
	return g.withWrite(ctx, func() error {
		g.sessionMu.Lock()
		s, ok := g.sessions[sessionID]
		if !ok {
			g.sessionMu.Unlock()
			return agerr.NotFound(nil, "session %q not found", sessionID)
		}
		s.TokenTotal = 0
		s.LastActivityAt = time.Now()
		g.sessionMu.Unlock()
		g.hotCache.del(sessionCacheKey(sessionID))

		g.wmMu.Lock()
		delete(g.wmItems, sessionID)
		g.wmMu.Unlock()
		return nil
	})
}
