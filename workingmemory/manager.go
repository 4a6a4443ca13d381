// Package workingmemory implements the working-memory manager:
// session-scoped, token-budgeted scratch storage with priority-based
// eviction and promotion into long-term memory.
package workingmemory

import (
	"context"
	"sort"
	"time"

	"github.com/becomeliminal/agentmemory/internal/agerr"
	"github.com/becomeliminal/agentmemory/longterm"
	"github.com/becomeliminal/agentmemory/security"
	"github.com/becomeliminal/agentmemory/storegw"
)

// Config holds the Manager's tunable defaults.
type Config struct {
	DefaultCapacity     int
	PromotionThreshold  float64 // eviction promotion, default 0.6
	ClearPromotionFloor float64 // clear-session promotion, default 0.5
}

// DefaultConfig returns the default capacity and thresholds.
func DefaultConfig() Config {
	return Config{
		DefaultCapacity:     8000,
		PromotionThreshold:  0.6,
		ClearPromotionFloor: 0.5,
	}
}

// Manager implements the Working-Memory Manager.
type Manager struct {
	store     *storegw.Gateway
	validator *security.Validator
	longTerm  *longterm.Manager
	cfg       Config
}

// New constructs a Manager.
func New(store *storegw.Gateway, validator *security.Validator, longTerm *longterm.Manager, cfg Config) *Manager {
	return &Manager{store: store, validator: validator, longTerm: longTerm, cfg: cfg}
}

// InitOrResumeSession initializes a session or returns the existing one.
func (m *Manager) InitOrResumeSession(ctx context.Context, sessionID, userID, orgID string, maxTokens int) (*storegw.Session, error) {
	if maxTokens <= 0 {
		maxTokens = m.cfg.DefaultCapacity
	}
	return m.store.InitOrResumeSession(ctx, sessionID, userID, orgID, maxTokens)
}

// AppendResult is Append's response: the stored item plus any items evicted
// to make room for it.
type AppendResult struct {
	Item    *storegw.WorkingMemoryItem
	Evicted []*storegw.WorkingMemoryItem
}

// Append security-checks non-system content, tokenizes it, and inserts it,
// running eviction first if the session would overflow.
func (m *Manager) Append(ctx context.Context, sessionID string, contentType storegw.ContentType, content string, relevance float64, pinned bool) (*AppendResult, error) {
	if contentType != storegw.ContentSystem {
		if matches := m.validator.Check(content); len(matches) > 0 {
			return nil, agerr.SecurityViolation(matches)
		}
	}

	session, err := m.store.GetSession(ctx, sessionID)
	if agerr.CodeOf(err) == agerr.CodeNotFound {
		// A not-found session is recovered locally by creating it on first
		// reference rather than surfacing the error.
		session, err = m.store.InitOrResumeSession(ctx, sessionID, "", "", m.cfg.DefaultCapacity)
	}
	if err != nil {
		return nil, err
	}

	tokens := CountTokens(content)
	var evicted []*storegw.WorkingMemoryItem
	if session.TokenTotal+tokens > session.MaxTokens {
		evicted, err = m.evict(ctx, session, tokens)
		if err != nil {
			return nil, err
		}
	}

	item, err := m.store.AppendWorkingMemoryItem(ctx, &storegw.WorkingMemoryItem{
		SessionID:   sessionID,
		ContentType: contentType,
		Content:     content,
		Tokens:      tokens,
		Relevance:   relevance,
		Pinned:      pinned,
	})
	if err != nil {
		return nil, err
	}
	return &AppendResult{Item: item, Evicted: evicted}, nil
}

// priority scores an eviction candidate: relevance dominates, with a decay
// bonus for fresh items and a flat bump for task state.
func priority(item *storegw.WorkingMemoryItem, now time.Time) float64 {
	ageSeconds := now.Sub(item.CreatedAt).Seconds()
	p := 100*item.Relevance + 10/(1+ageSeconds/3600)
	if item.ContentType == storegw.ContentTaskState {
		p += 10
	}
	return p
}

// evict removes the lowest-priority unpinned items until the session can
// absorb the incoming item, promoting qualifying items to long-term memory
// first.
func (m *Manager) evict(ctx context.Context, session *storegw.Session, needed int) ([]*storegw.WorkingMemoryItem, error) {
	items, err := m.store.ListWorkingMemoryItems(ctx, session.SessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var candidates []*storegw.WorkingMemoryItem
	for _, it := range items {
		if !it.Pinned {
			candidates = append(candidates, it)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return priority(candidates[i], now) < priority(candidates[j], now)
	})

	freed := 0
	toEvict := session.MaxTokens - session.TokenTotal
	if toEvict < 0 {
		toEvict = 0
	}
	var evicted []*storegw.WorkingMemoryItem
	var evictIDs []string
	for _, it := range candidates {
		if freed >= needed-toEvict {
			break
		}
		freed += it.Tokens
		evicted = append(evicted, it)
		evictIDs = append(evictIDs, it.ItemID)
	}

	for _, it := range evicted {
		if it.Relevance >= m.cfg.PromotionThreshold || it.ContentType == storegw.ContentTaskState {
			if _, err := m.longTerm.Store(ctx, session.UserID, session.SessionID, it.Content, longterm.StoreHints{
				Importance: &it.Relevance,
				Source:     storegw.SourcePromotedWM,
			}); err != nil {
				return nil, err
			}
		}
	}

	if len(evictIDs) > 0 {
		if err := m.store.RemoveWorkingMemoryItems(ctx, session.SessionID, evictIDs); err != nil {
			return nil, err
		}
	}
	return evicted, nil
}

// UpdateItem mutates an item's pinned flag and/or relevance score.
func (m *Manager) UpdateItem(ctx context.Context, sessionID, itemID string, pinned *bool, relevance *float64) (*storegw.WorkingMemoryItem, error) {
	return m.store.UpdateWorkingMemoryItem(ctx, sessionID, itemID, pinned, relevance)
}

// GetItems returns items ordered by (pinned desc, relevance desc, sequence
// desc), greedy-filled up to tokenBudget. Items that don't fit stay
// persisted; they just aren't returned.
func (m *Manager) GetItems(ctx context.Context, sessionID string, tokenBudget int) ([]*storegw.WorkingMemoryItem, error) {
	items, err := m.store.ListWorkingMemoryItems(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Pinned != items[j].Pinned {
			return items[i].Pinned
		}
		if items[i].Relevance != items[j].Relevance {
			return items[i].Relevance > items[j].Relevance
		}
		return items[i].Sequence > items[j].Sequence
	})

	var out []*storegw.WorkingMemoryItem
	used := 0
	for _, it := range items {
		if used+it.Tokens > tokenBudget {
			continue
		}
		out = append(out, it)
		used += it.Tokens
	}
	return out, nil
}

// promote runs the checkpoint/clear promotion pass: every item with
// relevance >= floor or pinned is stored to long-term memory.
func (m *Manager) promote(ctx context.Context, session *storegw.Session, floor float64) error {
	items, err := m.store.ListWorkingMemoryItems(ctx, session.SessionID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.Relevance >= floor || it.Pinned {
			relevance := it.Relevance
			if _, err := m.longTerm.Store(ctx, session.UserID, session.SessionID, it.Content, longterm.StoreHints{
				Importance: &relevance,
				Source:     storegw.SourcePromotedWM,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Checkpoint runs the promotion pass without deleting any item.
func (m *Manager) Checkpoint(ctx context.Context, sessionID string) error {
	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	return m.promote(ctx, session, m.cfg.ClearPromotionFloor)
}

// ClearSession promotes qualifying items (if checkpointFirst) then deletes
// all items and resets the session's token total.
func (m *Manager) ClearSession(ctx context.Context, sessionID string, checkpointFirst bool) error {
	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if checkpointFirst {
		if err := m.promote(ctx, session, m.cfg.ClearPromotionFloor); err != nil {
			return err
		}
	}
	return m.store.ClearSessionItems(ctx, sessionID)
}
