package storegw

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"github.com/google/uuid"

	"github.com/becomeliminal/agentmemory/internal/agerr"
)

// longTermStore backs the long-term-memories table. chromem-go provides one
// collection per user for namespace isolation and the nearest-neighbor
// search itself; the authoritative row data — including every mutable field
// chromem has no update-in-place story for, such as access_count,
// decay_factor, and deleted_at — lives in a guarded map.
type longTermStore struct {
	db *chromem.DB

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
	rows        map[string]*LongTermMemory // memoryID -> authoritative row
}

func newLongTermStore(db *chromem.DB) *longTermStore {
	return &longTermStore{
		db:          db,
		collections: make(map[string]*chromem.Collection),
		rows:        make(map[string]*LongTermMemory),
	}
}

func collectionName(userID string) string {
	if userID == "" {
		return "global"
	}
	return "user_" + userID
}

func (s *longTermStore) collectionFor(userID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, ok := s.collections[userID]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[userID]; ok {
		return col, nil
	}
	col, err := s.db.CreateCollection(collectionName(userID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[userID] = col
	return col, nil
}

// insertLocked performs the row + vector-document insert. Callers must hold
// the process-wide write mutex (via withWrite).
func (g *Gateway) insertLocked(ctx context.Context, mem *LongTermMemory) (*LongTermMemory, error) {
	col, err := g.ltm.collectionFor(mem.UserID)
	if err != nil {
		return nil, agerr.TransientStore(err, "create collection for user %q", mem.UserID)
	}

	if mem.MemoryID == "" {
		mem.MemoryID = uuid.NewString()
	}
	now := time.Now()
	mem.CreatedAt, mem.LastAccessAt, mem.UpdatedAt = now, now, now

	doc := chromem.Document{
		ID:        mem.MemoryID,
		Content:   mem.Content,
		Embedding: mem.Embedding,
		Metadata: map[string]string{
			"owner_id": mem.UserID,
			"category": mem.Category,
			"subtype":  mem.Subtype,
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return nil, agerr.TransientStore(err, "add document to vector index")
	}

	g.ltm.mu.Lock()
	cp := *mem
	g.ltm.rows[mem.MemoryID] = &cp
	g.ltm.mu.Unlock()

	return &cp, nil
}

// InsertLongTermMemory stores mem as a new row plus its vector document.
func (g *Gateway) InsertLongTermMemory(ctx context.Context, mem *LongTermMemory) (*LongTermMemory, error) {
	if len(mem.Embedding) == 0 {
		return nil, agerr.Validation(nil, "long-term memory embedding must be non-empty")
	}
	var result LongTermMemory
	err := g.withWrite(ctx, func() error {
		row, err := g.insertLocked(ctx, mem)
		if err != nil {
			return err
		}
		result = *row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DedupInsertLongTermMemory runs the duplicate check and the insert in a
// single write-mutex scope, so two concurrent near-duplicate writes cannot
// both slip past the similarity gate. If an existing live memory owned by
// mem.UserID has cosine similarity >= sigmaMin to mem.Embedding, that row's
// last-access timestamp is bumped and it is returned with merged=true;
// otherwise mem is inserted and returned with merged=false.
func (g *Gateway) DedupInsertLongTermMemory(ctx context.Context, mem *LongTermMemory, sigmaMin float64, k int) (*LongTermMemory, bool, error) {
	if len(mem.Embedding) == 0 {
		return nil, false, agerr.Validation(nil, "long-term memory embedding must be non-empty")
	}
	if k <= 0 {
		k = 3
	}
	var (
		result LongTermMemory
		merged bool
	)
	err := g.withWrite(ctx, func() error {
		dupes, err := g.VectorSearch(ctx, mem.UserID, mem.Embedding, Filters{}, sigmaMin, k)
		if err != nil {
			return err
		}
		if len(dupes) > 0 {
			existing := dupes[0].Memory
			g.ltm.mu.Lock()
			if row, ok := g.ltm.rows[existing.MemoryID]; ok {
				row.LastAccessAt = time.Now()
				result = *row
			} else {
				result = *existing
			}
			g.ltm.mu.Unlock()
			g.hotCache.del("ltm:" + existing.MemoryID)
			merged = true
			return nil
		}

		row, err := g.insertLocked(ctx, mem)
		if err != nil {
			return err
		}
		result = *row
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &result, merged, nil
}

// GetLongTermMemory returns the authoritative row for memoryID, or a
// not-found error. Soft-deleted rows are treated as absent.
func (g *Gateway) GetLongTermMemory(ctx context.Context, userID, memoryID string) (*LongTermMemory, error) {
	key := "ltm:" + memoryID
	if cached, ok := g.hotCache.get(key); ok {
		m := cached.(LongTermMemory)
		if m.UserID != userID {
			return nil, agerr.NotFound(nil, "memory %q not found", memoryID)
		}
		cp := m
		return &cp, nil
	}

	g.ltm.mu.RLock()
	row, ok := g.ltm.rows[memoryID]
	g.ltm.mu.RUnlock()
	if !ok || row.UserID != userID {
		return nil, agerr.NotFound(nil, "memory %q not found", memoryID)
	}
	cp := *row
	g.hotCache.set(key, cp)
	return &cp, nil
}

// UpdateLongTermMemory overwrites the stored row for mem.MemoryID. If
// reembed is true, the chromem document is replaced with mem's new
// embedding/content (chromem-go has no in-place vector update).
func (g *Gateway) UpdateLongTermMemory(ctx context.Context, mem *LongTermMemory, reembed bool) (*LongTermMemory, error) {
	var result LongTermMemory
	err := g.withWrite(ctx, func() error {
		g.ltm.mu.Lock()
		existing, ok := g.ltm.rows[mem.MemoryID]
		if !ok {
			g.ltm.mu.Unlock()
			return agerr.NotFound(nil, "memory %q not found", mem.MemoryID)
		}
		mem.CreatedAt = existing.CreatedAt
		mem.UpdatedAt = time.Now()
		cp := *mem
		g.ltm.rows[mem.MemoryID] = &cp
		g.ltm.mu.Unlock()
		g.hotCache.del("ltm:" + mem.MemoryID)

		if reembed {
			col, err := g.ltm.collectionFor(mem.UserID)
			if err != nil {
				return agerr.TransientStore(err, "fetch collection for user %q", mem.UserID)
			}
			_ = col.Delete(ctx, nil, nil, mem.MemoryID)
			doc := chromem.Document{
				ID:        mem.MemoryID,
				Content:   mem.Content,
				Embedding: mem.Embedding,
				Metadata: map[string]string{
					"owner_id": mem.UserID,
					"category": mem.Category,
					"subtype":  mem.Subtype,
				},
			}
			if err := col.AddDocument(ctx, doc); err != nil {
				return agerr.TransientStore(err, "re-add document to vector index")
			}
		}
		result = cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SoftDeleteLongTermMemory sets deleted_at on memoryID.
func (g *Gateway) SoftDeleteLongTermMemory(ctx context.Context, userID, memoryID string) error {
	return g.withWrite(ctx, func() error {
		g.ltm.mu.Lock()
		defer g.ltm.mu.Unlock()
		row, ok := g.ltm.rows[memoryID]
		if !ok || row.UserID != userID {
			return agerr.NotFound(nil, "memory %q not found", memoryID)
		}
		now := time.Now()
		row.DeletedAt = &now
		g.hotCache.del("ltm:" + memoryID)
		return nil
	})
}

// RestoreLongTermMemory clears deleted_at on memoryID (administrative
// restoration; only possible until a hard delete runs).
func (g *Gateway) RestoreLongTermMemory(ctx context.Context, userID, memoryID string) error {
	return g.withWrite(ctx, func() error {
		g.ltm.mu.Lock()
		defer g.ltm.mu.Unlock()
		row, ok := g.ltm.rows[memoryID]
		if !ok || row.UserID != userID {
			return agerr.NotFound(nil, "memory %q not found", memoryID)
		}
		row.DeletedAt = nil
		g.hotCache.del("ltm:" + memoryID)
		return nil
	})
}

// HardDeleteLongTermMemory removes memoryID's row, its chromem document, and
// every relationship referencing it.
func (g *Gateway) HardDeleteLongTermMemory(ctx context.Context, userID, memoryID string) error {
	return g.withWrite(ctx, func() error {
		g.ltm.mu.Lock()
		row, ok := g.ltm.rows[memoryID]
		if !ok || row.UserID != userID {
			g.ltm.mu.Unlock()
			return agerr.NotFound(nil, "memory %q not found", memoryID)
		}
		delete(g.ltm.rows, memoryID)
		g.ltm.mu.Unlock()
		g.hotCache.del("ltm:" + memoryID)

		if col, err := g.ltm.collectionFor(userID); err == nil {
			_ = col.Delete(ctx, nil, nil, memoryID)
		}

		g.relMu.Lock()
		for id, rel := range g.rels {
			if rel.SourceMemoryID == memoryID || rel.TargetMemoryID == memoryID {
				delete(g.rels, id)
			}
		}
		g.relMu.Unlock()
		return nil
	})
}

// ListLongTermMemoriesForUser returns every live row owned by userID,
// unordered — used by find-contradictions, apply-decay, and quality-report.
func (g *Gateway) ListLongTermMemoriesForUser(ctx context.Context, userID string) ([]*LongTermMemory, error) {
	g.ltm.mu.RLock()
	defer g.ltm.mu.RUnlock()

	var out []*LongTermMemory
	for _, row := range g.ltm.rows {
		if row.UserID == userID && row.IsLive() {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

// PurgeAllForUser hard-deletes every row, relationship, and collection
// belonging to userID.
func (g *Gateway) PurgeAllForUser(ctx context.Context, userID string) error {
	return g.withWrite(ctx, func() error {
		g.ltm.mu.Lock()
		for id, row := range g.ltm.rows {
			if row.UserID == userID {
				delete(g.ltm.rows, id)
			}
		}
		delete(g.ltm.collections, userID)
		g.ltm.mu.Unlock()

		g.relMu.Lock()
		for id, rel := range g.rels {
			if rel.CreatedBy == userID {
				delete(g.rels, id)
			}
		}
		g.relMu.Unlock()
		return nil
	})
}

// ScoredMemory pairs a live long-term memory with the cosine similarity
// that surfaced it.
type ScoredMemory struct {
	Memory     *LongTermMemory
	Similarity float64
}

// VectorSearch returns up to limit live memories owned by userID matching
// filters with cosine similarity >= sigmaMin, descending by similarity.
// chromem's `where` clause only expresses string equality, so
// category/subtype are pushed down to chromem and every other filter
// (entities, temporal range, confidence floor) is applied as an exact
// post-filter over the hydrated rows.
func (g *Gateway) VectorSearch(ctx context.Context, userID string, embedding []float32, filters Filters, sigmaMin float64, limit int) ([]ScoredMemory, error) {
	if limit <= 0 {
		limit = 10
	}
	col, err := g.ltm.collectionFor(userID)
	if err != nil {
		return nil, agerr.TransientStore(err, "fetch collection for user %q", userID)
	}

	where := map[string]string{"owner_id": userID}
	if len(filters.Categories) == 1 {
		where["category"] = filters.Categories[0]
	}
	if len(filters.Subtypes) == 1 {
		where["subtype"] = filters.Subtypes[0]
	}

	// Over-fetch to leave room for post-filtering and the soft-delete scan.
	fetch := limit * 4
	if fetch < 20 {
		fetch = 20
	}

	g.ltm.mu.RLock()
	docCount := 0
	for _, row := range g.ltm.rows {
		if row.UserID == userID {
			docCount++
		}
	}
	g.ltm.mu.RUnlock()
	if docCount == 0 {
		return nil, nil
	}
	if fetch > docCount {
		fetch = docCount
	}

	var results []chromem.Result
	for n := fetch; n >= 1; n-- {
		results, err = col.QueryEmbedding(ctx, embedding, n, where, nil)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, agerr.TransientStore(err, "vector query")
	}

	out := make([]ScoredMemory, 0, len(results))
	for _, r := range results {
		if float64(r.Similarity) < sigmaMin {
			continue
		}
		g.ltm.mu.RLock()
		row, ok := g.ltm.rows[r.ID]
		g.ltm.mu.RUnlock()
		if !ok || !row.IsLive() || row.UserID != userID {
			continue
		}
		if !matchesFilters(row, filters) {
			continue
		}
		cp := *row
		out = append(out, ScoredMemory{Memory: &cp, Similarity: float64(r.Similarity)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesFilters(row *LongTermMemory, f Filters) bool {
	if len(f.Categories) > 0 && !contains(f.Categories, row.Category) {
		return false
	}
	if len(f.Subtypes) > 0 && !contains(f.Subtypes, row.Subtype) {
		return false
	}
	if row.Confidence < f.ConfidenceFloor {
		return false
	}
	if f.TemporalFrom != nil || f.TemporalTo != nil {
		if row.EventAt == nil {
			return false
		}
		if f.TemporalFrom != nil && row.EventAt.Before(*f.TemporalFrom) {
			return false
		}
		if f.TemporalTo != nil && row.EventAt.After(*f.TemporalTo) {
			return false
		}
	}
	if len(f.Entities) > 0 {
		found := false
		for _, want := range f.Entities {
			if contains(row.Entities, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func contains(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

// BatchUpdateAccess increments access_count and sets last_accessed=now for
// every memory ID in ids, in a single write-mutex scope.
func (g *Gateway) BatchUpdateAccess(ctx context.Context, ids []string) error {
	return g.withWrite(ctx, func() error {
		g.ltm.mu.Lock()
		defer g.ltm.mu.Unlock()
		now := time.Now()
		for _, id := range ids {
			if row, ok := g.ltm.rows[id]; ok {
				row.AccessCount++
				row.LastAccessAt = now
				g.hotCache.del("ltm:" + id)
			}
		}
		return nil
	})
}

// ApplyDecay multiplies the importance of every live memory owned by userID
// whose last_accessed is older than inactiveSince by rate, clamped to
// floor. Returns the number of rows touched.
func (g *Gateway) ApplyDecay(ctx context.Context, userID string, rate, floor float64, inactiveSince time.Time) (int, error) {
	touched := 0
	err := g.withWrite(ctx, func() error {
		g.ltm.mu.Lock()
		defer g.ltm.mu.Unlock()
		for _, row := range g.ltm.rows {
			if row.UserID != userID || !row.IsLive() {
				continue
			}
			if row.LastAccessAt.After(inactiveSince) {
				continue
			}
			row.Importance *= rate
			if row.Importance < floor {
				row.Importance = floor
			}
			g.hotCache.del("ltm:" + row.MemoryID)
			touched++
		}
		return nil
	})
	return touched, err
}
