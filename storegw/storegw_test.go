package storegw_test

import (
	"context"
	"testing"

	"github.com/becomeliminal/agentmemory/storegw"
)

func newGateway(t *testing.T) *storegw.Gateway {
	t.Helper()
	cfg := storegw.DefaultConfig()
	cfg.HotRowCacheCapacity = 0 // keep cache out of the way for deterministic assertions
	return storegw.New(cfg)
}

func TestInitOrResumeSession_CreatesThenResumes(t *testing.T) {
	ctx := context.Background()
	gw := newGateway(t)

	s1, err := gw.InitOrResumeSession(ctx, "", "user-1", "", 8000)
	if err != nil {
		t.Fatalf("init session: %v", err)
	}
	if s1.TokenTotal != 0 {
		t.Fatalf("expected fresh session token total 0, got %d", s1.TokenTotal)
	}

	s2, err := gw.InitOrResumeSession(ctx, s1.SessionID, "user-1", "", 8000)
	if err != nil {
		t.Fatalf("resume session: %v", err)
	}
	if s2.SessionID != s1.SessionID {
		t.Fatalf("expected resumed session to keep id %q, got %q", s1.SessionID, s2.SessionID)
	}
}

func TestAppendWorkingMemoryItem_SequenceAndTokenTotal(t *testing.T) {
	ctx := context.Background()
	gw := newGateway(t)

	session, err := gw.InitOrResumeSession(ctx, "", "user-1", "", 8000)
	if err != nil {
		t.Fatalf("init session: %v", err)
	}

	var lastSeq int64 = -1
	for i := 0; i < 3; i++ {
		item, err := gw.AppendWorkingMemoryItem(ctx, &storegw.WorkingMemoryItem{
			SessionID:   session.SessionID,
			ContentType: storegw.ContentMessage,
			Content:     "hello",
			Tokens:      10,
		})
		if err != nil {
			t.Fatalf("append item %d: %v", i, err)
		}
		if item.Sequence <= lastSeq {
			t.Fatalf("expected strictly increasing sequence, got %d after %d", item.Sequence, lastSeq)
		}
		lastSeq = item.Sequence
	}

	got, err := gw.GetSession(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.TokenTotal != 30 {
		t.Fatalf("expected token total 30, got %d", got.TokenTotal)
	}
}

func TestVectorSearch_RespectsUserIsolation(t *testing.T) {
	ctx := context.Background()
	gw := newGateway(t)

	embA := make([]float32, 8)
	embA[0] = 1
	_, err := gw.InsertLongTermMemory(ctx, &storegw.LongTermMemory{
		UserID:    "user-a",
		Category:  "semantic",
		Subtype:   "domain",
		Content:   "x",
		Embedding: embA,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	results, err := gw.VectorSearch(ctx, "user-b", embA, storegw.Filters{}, 0, 10)
	if err != nil {
		t.Fatalf("vector search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected zero cross-user results, got %d", len(results))
	}

	own, err := gw.VectorSearch(ctx, "user-a", embA, storegw.Filters{}, 0, 10)
	if err != nil {
		t.Fatalf("vector search: %v", err)
	}
	if len(own) != 1 {
		t.Fatalf("expected one own-user result, got %d", len(own))
	}
}

func TestSoftDelete_ExcludedFromSearch(t *testing.T) {
	ctx := context.Background()
	gw := newGateway(t)

	emb := make([]float32, 8)
	emb[0] = 1
	mem, err := gw.InsertLongTermMemory(ctx, &storegw.LongTermMemory{
		UserID:    "user-a",
		Category:  "semantic",
		Subtype:   "domain",
		Content:   "x",
		Embedding: emb,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := gw.SoftDeleteLongTermMemory(ctx, "user-a", mem.MemoryID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	results, err := gw.VectorSearch(ctx, "user-a", emb, storegw.Filters{}, 0, 10)
	if err != nil {
		t.Fatalf("vector search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected soft-deleted memory excluded from search, got %d results", len(results))
	}
}

func TestDedupInsert_MergesNearDuplicates(t *testing.T) {
	ctx := context.Background()
	gw := newGateway(t)

	emb := make([]float32, 8)
	emb[0] = 1

	first, merged, err := gw.DedupInsertLongTermMemory(ctx, &storegw.LongTermMemory{
		UserID:    "user-a",
		Category:  "semantic",
		Subtype:   "project",
		Content:   "x",
		Embedding: emb,
	}, 0.95, 3)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if merged {
		t.Fatal("first insert must not merge")
	}

	second, merged, err := gw.DedupInsertLongTermMemory(ctx, &storegw.LongTermMemory{
		UserID:    "user-a",
		Category:  "semantic",
		Subtype:   "project",
		Content:   "x",
		Embedding: emb,
	}, 0.95, 3)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if !merged {
		t.Fatal("identical embedding must merge with the existing row")
	}
	if second.MemoryID != first.MemoryID {
		t.Fatalf("expected the existing row returned, got %q and %q", first.MemoryID, second.MemoryID)
	}
}

func TestHardDelete_PrunesRelationships(t *testing.T) {
	ctx := context.Background()
	gw := newGateway(t)

	emb := make([]float32, 8)
	emb[0] = 1
	a, err := gw.InsertLongTermMemory(ctx, &storegw.LongTermMemory{
		UserID: "user-a", Category: "semantic", Subtype: "project", Content: "a", Embedding: emb,
	})
	if err != nil {
		t.Fatalf("insert a: %v", err)
	}
	emb2 := make([]float32, 8)
	emb2[1] = 1
	b, err := gw.InsertLongTermMemory(ctx, &storegw.LongTermMemory{
		UserID: "user-a", Category: "semantic", Subtype: "project", Content: "b", Embedding: emb2,
	})
	if err != nil {
		t.Fatalf("insert b: %v", err)
	}

	if _, err := gw.InsertRelationship(ctx, &storegw.MemoryRelationship{
		SourceMemoryID: a.MemoryID,
		TargetMemoryID: b.MemoryID,
		Tag:            storegw.RelRelatedTo,
		Strength:       0.5,
		CreatedBy:      "user-a",
	}); err != nil {
		t.Fatalf("insert relationship: %v", err)
	}

	if err := gw.HardDeleteLongTermMemory(ctx, "user-a", a.MemoryID); err != nil {
		t.Fatalf("hard delete: %v", err)
	}

	rels, err := gw.ListRelationshipsForUser(ctx, "user-a")
	if err != nil {
		t.Fatalf("list relationships: %v", err)
	}
	if len(rels) != 0 {
		t.Fatalf("expected relationships pruned with their endpoint, got %d", len(rels))
	}
}

func TestInsertRelationship_RejectsCrossUserEdges(t *testing.T) {
	ctx := context.Background()
	gw := newGateway(t)

	emb := make([]float32, 8)
	emb[0] = 1
	a, err := gw.InsertLongTermMemory(ctx, &storegw.LongTermMemory{
		UserID: "user-a", Category: "semantic", Subtype: "project", Content: "a", Embedding: emb,
	})
	if err != nil {
		t.Fatalf("insert a: %v", err)
	}
	b, err := gw.InsertLongTermMemory(ctx, &storegw.LongTermMemory{
		UserID: "user-b", Category: "semantic", Subtype: "project", Content: "b", Embedding: emb,
	})
	if err != nil {
		t.Fatalf("insert b: %v", err)
	}

	if _, err := gw.InsertRelationship(ctx, &storegw.MemoryRelationship{
		SourceMemoryID: a.MemoryID,
		TargetMemoryID: b.MemoryID,
		Tag:            storegw.RelRelatedTo,
	}); err == nil {
		t.Fatal("expected cross-user relationship rejected")
	}
}
