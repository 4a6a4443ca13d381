package contextassembler_test

import (
	"context"
	"testing"

	"github.com/becomeliminal/agentmemory/contextassembler"
	"github.com/becomeliminal/agentmemory/longterm"
	"github.com/becomeliminal/agentmemory/modelgateway"
	"github.com/becomeliminal/agentmemory/security"
	"github.com/becomeliminal/agentmemory/storegw"
	"github.com/becomeliminal/agentmemory/workingmemory"
)

// unitEmbedder maps every text to the same unit vector, making every stored
// memory a perfect cosine match for every query. Retrieval order then
// depends only on weights, importance, and entity boosts — exactly what
// these tests pin down.
type unitEmbedder struct{ dim int }

func (u unitEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, u.dim)
	v[0] = 1
	return v, nil
}

func (u unitEmbedder) Dimensions() int { return u.dim }

type fakeChat struct{ intent string }

func (f fakeChat) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	return f.intent, nil
}

type fixture struct {
	assembler *contextassembler.Assembler
	working   *workingmemory.Manager
	store     *storegw.Gateway
}

func newFixture(t *testing.T, intent string) *fixture {
	t.Helper()
	storeCfg := storegw.DefaultConfig()
	storeCfg.HotRowCacheCapacity = 0
	store := storegw.New(storeCfg)
	gw := modelgateway.New(unitEmbedder{dim: 64}, fakeChat{intent: intent}, 100)
	validator := security.New()
	ltm := longterm.New(store, gw, validator, longterm.DefaultConfig())
	wm := workingmemory.New(store, validator, ltm, workingmemory.DefaultConfig())
	return &fixture{
		assembler: contextassembler.New(wm, gw, store),
		working:   wm,
		store:     store,
	}
}

func seedMemory(t *testing.T, store *storegw.Gateway, userID, category, subtype, content string, importance float64, entities []string) *storegw.LongTermMemory {
	t.Helper()
	emb := make([]float32, 64)
	emb[0] = 1
	mem, err := store.InsertLongTermMemory(context.Background(), &storegw.LongTermMemory{
		UserID:     userID,
		Category:   category,
		Subtype:    subtype,
		Content:    content,
		Embedding:  emb,
		Importance: importance,
		Entities:   entities,
		Confidence: 0.8,
	})
	if err != nil {
		t.Fatalf("seed memory: %v", err)
	}
	return mem
}

func TestGetRelevantContext_HowToDrawsFromProcedural(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "how-to")

	seedMemory(t, f.store, "user-1", "procedural", "workflow",
		"Add a column with a migration file, then run make db-migrate", 0.9, nil)
	seedMemory(t, f.store, "user-1", "episodic", "conversation",
		"We chatted about lunch", 0.9, nil)

	session, err := f.working.InitOrResumeSession(ctx, "", "user-1", "", 8000)
	if err != nil {
		t.Fatalf("init session: %v", err)
	}
	if _, err := f.working.Append(ctx, session.SessionID, storegw.ContentMessage, "working on the users table", 0.8, false); err != nil {
		t.Fatalf("append: %v", err)
	}

	result, err := f.assembler.GetRelevantContext(ctx, session.SessionID, "user-1", "How do I add a field to the users table?", 2000, "", nil)
	if err != nil {
		t.Fatalf("get relevant context: %v", err)
	}

	if result.DetectedIntent != "how-to" {
		t.Fatalf("expected how-to intent, got %q", result.DetectedIntent)
	}
	if result.TotalTokensUsed > 2000 {
		t.Fatalf("total tokens %d exceed the budget", result.TotalTokensUsed)
	}

	foundWorkflow := false
	foundConversation := false
	for _, it := range result.Items {
		if it.Source == contextassembler.SourceLongTerm && it.Category == "procedural" && it.Subtype == "workflow" {
			foundWorkflow = true
		}
		if it.Subtype == "conversation" {
			foundConversation = true
		}
	}
	if !foundWorkflow {
		t.Fatal("expected a procedural.workflow item under the how-to profile")
	}
	// episodic.conversation has no weight under how-to, so its sub-budget is
	// never allocated.
	if foundConversation {
		t.Fatal("expected no episodic.conversation item under the how-to profile")
	}
}

func TestGetRelevantContext_RecordsAccessLog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "general")

	mem := seedMemory(t, f.store, "user-1", "semantic", "project",
		"The service is a Go monolith behind nginx", 0.9, nil)

	session, err := f.working.InitOrResumeSession(ctx, "", "user-1", "", 8000)
	if err != nil {
		t.Fatalf("init session: %v", err)
	}

	result, err := f.assembler.GetRelevantContext(ctx, session.SessionID, "user-1", "what is this service?", 2000, "", nil)
	if err != nil {
		t.Fatalf("get relevant context: %v", err)
	}

	returned := false
	for _, it := range result.Items {
		if it.MemoryID == mem.MemoryID {
			returned = true
		}
	}
	if !returned {
		t.Fatal("expected the seeded memory in the result")
	}

	log := f.store.AccessLogForUser(ctx, "user-1")
	found := false
	for _, e := range log {
		if e.MemoryID == mem.MemoryID && e.SessionID == session.SessionID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an access-log row for the returned long-term item")
	}
}

func TestGetRelevantContext_HonorsIntentHint(t *testing.T) {
	ctx := context.Background()
	// The fake chat would answer "how-to"; a valid hint must win without a
	// model round trip.
	f := newFixture(t, "how-to")

	session, err := f.working.InitOrResumeSession(ctx, "", "user-1", "", 8000)
	if err != nil {
		t.Fatalf("init session: %v", err)
	}

	result, err := f.assembler.GetRelevantContext(ctx, session.SessionID, "user-1", "why is this broken?", 1000, "debug", nil)
	if err != nil {
		t.Fatalf("get relevant context: %v", err)
	}
	if result.DetectedIntent != "debug" {
		t.Fatalf("expected the debug hint honored, got %q", result.DetectedIntent)
	}
}

func TestGetRelevantContext_EntityBoostReorders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "what-is")

	plain := seedMemory(t, f.store, "user-1", "semantic", "entity",
		"The billing service owns invoices", 0.8, []string{"service:billing"})
	boosted := seedMemory(t, f.store, "user-1", "semantic", "entity",
		"The checkout service owns carts", 0.8, []string{"service:checkout"})

	session, err := f.working.InitOrResumeSession(ctx, "", "user-1", "", 8000)
	if err != nil {
		t.Fatalf("init session: %v", err)
	}

	result, err := f.assembler.GetRelevantContext(ctx, session.SessionID, "user-1", "which service owns carts?", 2000, "", []string{"service:checkout"})
	if err != nil {
		t.Fatalf("get relevant context: %v", err)
	}

	var firstLongTerm string
	var plainScore, boostedScore float64
	for _, it := range result.Items {
		if it.Source != contextassembler.SourceLongTerm {
			continue
		}
		if firstLongTerm == "" {
			firstLongTerm = it.MemoryID
		}
		switch it.MemoryID {
		case plain.MemoryID:
			plainScore = it.Score
		case boosted.MemoryID:
			boostedScore = it.Score
		}
	}
	if firstLongTerm != boosted.MemoryID {
		t.Fatalf("expected the entity-boosted memory ranked first")
	}
	if boostedScore <= plainScore {
		t.Fatalf("expected boosted score %f > plain score %f", boostedScore, plainScore)
	}
}

func TestGetRelevantContext_SkipsOversizedItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "general")

	bigContent := make([]byte, 4000)
	for i := range bigContent {
		bigContent[i] = 'z'
	}
	seedMemory(t, f.store, "user-1", "semantic", "project", string(bigContent), 0.99, nil)
	small := seedMemory(t, f.store, "user-1", "episodic", "decision",
		"We chose Postgres over Mongo", 0.5, nil)

	session, err := f.working.InitOrResumeSession(ctx, "", "user-1", "", 8000)
	if err != nil {
		t.Fatalf("init session: %v", err)
	}

	// Budget 600: the 1000-token project memory can't fit; the greedy pass
	// must skip it and still take the small decision rather than truncating.
	result, err := f.assembler.GetRelevantContext(ctx, session.SessionID, "user-1", "history?", 600, "", nil)
	if err != nil {
		t.Fatalf("get relevant context: %v", err)
	}
	if result.TotalTokensUsed > 600 {
		t.Fatalf("total tokens %d exceed the budget", result.TotalTokensUsed)
	}
	foundSmall := false
	for _, it := range result.Items {
		if it.MemoryID == small.MemoryID {
			foundSmall = true
		}
		if it.Tokens > 600 {
			t.Fatalf("oversized item of %d tokens selected", it.Tokens)
		}
	}
	if !foundSmall {
		t.Fatal("expected the small decision memory selected after skipping the oversized one")
	}
}
