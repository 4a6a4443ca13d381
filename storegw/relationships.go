package storegw

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/becomeliminal/agentmemory/internal/agerr"
)

// InsertRelationship adds a directed edge between two memories owned by the
// same user. Both endpoints must already exist as rows.
func (g *Gateway) InsertRelationship(ctx context.Context, rel *MemoryRelationship) (*MemoryRelationship, error) {
	var result MemoryRelationship
	err := g.withWrite(ctx, func() error {
		g.ltm.mu.RLock()
		src, srcOK := g.ltm.rows[rel.SourceMemoryID]
		dst, dstOK := g.ltm.rows[rel.TargetMemoryID]
		g.ltm.mu.RUnlock()
		if !srcOK || !dstOK {
			return agerr.NotFound(nil, "relationship endpoint not found")
		}
		if src.UserID != dst.UserID {
			return agerr.Validation(nil, "relationship endpoints belong to different users")
		}

		if rel.RelationshipID == "" {
			rel.RelationshipID = uuid.NewString()
		}
		rel.CreatedAt = time.Now()

		g.relMu.Lock()
		cp := *rel
		g.rels[rel.RelationshipID] = &cp
		g.relMu.Unlock()
		result = cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListRelationshipsForUser returns every relationship whose endpoints are
// both owned by userID (used by find-contradictions and quality-report).
func (g *Gateway) ListRelationshipsForUser(ctx context.Context, userID string) ([]*MemoryRelationship, error) {
	g.ltm.mu.RLock()
	owned := make(map[string]bool)
	for id, row := range g.ltm.rows {
		if row.UserID == userID {
			owned[id] = true
		}
	}
	g.ltm.mu.RUnlock()

	g.relMu.RLock()
	defer g.relMu.RUnlock()
	var out []*MemoryRelationship
	for _, rel := range g.rels {
		if owned[rel.SourceMemoryID] || owned[rel.TargetMemoryID] {
			cp := *rel
			out = append(out, &cp)
		}
	}
	return out, nil
}
