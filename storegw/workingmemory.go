package storegw

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/becomeliminal/agentmemory/internal/agerr"
)

// sessionSeqMutex locks the per-session mutex that orders sequence-number
// assignment. Callers that also need the insert itself ordered against
// concurrent appends hold this lock across both steps;
// AppendWorkingMemoryItem does so internally.
func (g *Gateway) sessionSeqMutex(sessionID string) func() {
	mu := g.sessionMutex(sessionID)
	mu.Lock()
	return mu.Unlock
}

func (g *Gateway) nextSequenceLocked(sessionID string) int64 {
	g.wmMu.RLock()
	items := g.wmItems[sessionID]
	g.wmMu.RUnlock()

	var max int64 = -1
	for _, it := range items {
		if it.Sequence > max {
			max = it.Sequence
		}
	}
	return max + 1
}

// AppendWorkingMemoryItem inserts item, assigning it a fresh sequence number
// under the session's per-session mutex, and increments the session's token
// total. The caller (workingmemory.Manager) is responsible for running
// eviction first when the session would overflow; this method is a
// structural insert only.
func (g *Gateway) AppendWorkingMemoryItem(ctx context.Context, item *WorkingMemoryItem) (*WorkingMemoryItem, error) {
	unlock := g.sessionSeqMutex(item.SessionID)
	defer unlock()

	if item.ItemID == "" {
		item.ItemID = uuid.NewString()
	}
	now := time.Now()
	item.Sequence = g.nextSequenceLocked(item.SessionID)
	item.CreatedAt = now
	item.AccessedAt = now

	var stored WorkingMemoryItem
	err := g.withWrite(ctx, func() error {
		g.wmMu.Lock()
		if g.wmItems[item.SessionID] == nil {
			g.wmItems[item.SessionID] = make(map[string]*WorkingMemoryItem)
		}
		cp := *item
		g.wmItems[item.SessionID][item.ItemID] = &cp
		g.wmMu.Unlock()

		if err := g.touchSession(item.SessionID, item.Tokens); err != nil {
			return err
		}
		stored = cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListWorkingMemoryItems returns every live item for sessionID, unordered.
func (g *Gateway) ListWorkingMemoryItems(ctx context.Context, sessionID string) ([]*WorkingMemoryItem, error) {
	g.wmMu.RLock()
	defer g.wmMu.RUnlock()

	items := g.wmItems[sessionID]
	out := make([]*WorkingMemoryItem, 0, len(items))
	for _, it := range items {
		cp := *it
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

// UpdateWorkingMemoryItem mutates the pinned flag and/or relevance score of
// an existing item. Passing a nil pointer for either field leaves it
// unchanged.
func (g *Gateway) UpdateWorkingMemoryItem(ctx context.Context, sessionID, itemID string, pinned *bool, relevance *float64) (*WorkingMemoryItem, error) {
	var result WorkingMemoryItem
	err := g.withWrite(ctx, func() error {
		g.wmMu.Lock()
		defer g.wmMu.Unlock()

		items := g.wmItems[sessionID]
		it, ok := items[itemID]
		if !ok {
			return agerr.NotFound(nil, "working-memory item %q not found in session %q", itemID, sessionID)
		}
		if pinned != nil {
			it.Pinned = *pinned
		}
		if relevance != nil {
			it.Relevance = *relevance
		}
		it.AccessedAt = time.Now()
		result = *it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RemoveWorkingMemoryItems deletes the named items from sessionID and
// decrements the session's token total by their combined token count — used
// by eviction and by promotion-then-delete during clear/checkpoint.
func (g *Gateway) RemoveWorkingMemoryItems(ctx context.Context, sessionID string, itemIDs []string) error {
	return g.withWrite(ctx, func() error {
		g.wmMu.Lock()
		items := g.wmItems[sessionID]
		var freed int
		for _, id := range itemIDs {
			if it, ok := items[id]; ok {
				freed += it.Tokens
				delete(items, id)
			}
		}
		g.wmMu.Unlock()

		if freed == 0 {
			return nil
		}
		return g.touchSession(sessionID, -freed)
	})
}
