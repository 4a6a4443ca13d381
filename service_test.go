package agentmemory_test

import (
	"context"
	"errors"
	"testing"

	agentmemory "github.com/becomeliminal/agentmemory"
	"github.com/becomeliminal/agentmemory/modelgateway/embedder/mock"
)

// fakeChat is a canned model service: classification JSON for Classify and
// ExtractEntities prompts, a single word for DetectIntent.
type fakeChat struct{}

func (fakeChat) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	switch {
	case len(systemPrompt) > 0 && systemPrompt[0] == 'Y': // classify prompt starts "You classify..."
		return `{"category":"semantic","subtype":"project","importance":0.7,"entities":["project:demo"],"is_temporal":false}`, nil
	case len(systemPrompt) > 0 && systemPrompt[0] == 'E': // entities prompt
		return `["project:demo"]`, nil
	default:
		return "general", nil
	}
}

func newService(t *testing.T) *agentmemory.Service {
	t.Helper()
	return agentmemory.New(mock.New(256), fakeChat{}, agentmemory.DefaultConfig())
}

func TestInitSession_RequiresUser(t *testing.T) {
	svc := newService(t)
	_, err := svc.InitSession(context.Background(), agentmemory.InitSessionRequest{})
	if agentmemory.CodeOf(err) != agentmemory.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWorkingMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	session, err := svc.InitSession(ctx, agentmemory.InitSessionRequest{UserID: "user-1"})
	if err != nil {
		t.Fatalf("init session: %v", err)
	}

	added, err := svc.AddToWorkingMemory(ctx, agentmemory.AddToWorkingMemoryRequest{
		SessionID:   session.SessionID,
		ContentType: "message",
		Content:     "the deploy pipeline is green",
		Relevance:   0.7,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.Item.Tokens == 0 {
		t.Fatal("expected a nonzero token count")
	}

	items, err := svc.GetWorkingMemory(ctx, agentmemory.GetWorkingMemoryRequest{
		SessionID:   session.SessionID,
		TokenBudget: 1000,
	})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(items) != 1 || items[0].ItemID != added.Item.ItemID {
		t.Fatalf("expected the appended item back, got %+v", items)
	}

	pinned := true
	updated, err := svc.UpdateWorkingMemoryItem(ctx, agentmemory.UpdateWorkingMemoryItemRequest{
		SessionID: session.SessionID,
		ItemID:    added.Item.ItemID,
		Pinned:    &pinned,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Pinned {
		t.Fatal("expected the pinned flag set")
	}

	if err := svc.ClearWorkingMemory(ctx, agentmemory.ClearWorkingMemoryRequest{SessionID: session.SessionID}); err != nil {
		t.Fatalf("clear: %v", err)
	}
	after, err := svc.GetWorkingMemory(ctx, agentmemory.GetWorkingMemoryRequest{
		SessionID:   session.SessionID,
		TokenBudget: 1000,
	})
	if err != nil {
		t.Fatalf("get after clear: %v", err)
	}
	if len(after) != 0 {
		t.Fatalf("expected no items after clear, got %d", len(after))
	}
}

func TestStoreMemory_SecurityViolationNamesPattern(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.StoreMemory(ctx, agentmemory.StoreMemoryRequest{
		UserID:  "user-1",
		Content: "OPENAI_API_KEY=sk-abc123def456ghi789jkl",
	})
	if agentmemory.CodeOf(err) != agentmemory.CodeSecurityViolation {
		t.Fatalf("expected security-violation, got %v", err)
	}
	var e *agentmemory.Error
	if !errors.As(err, &e) {
		t.Fatal("expected a typed error")
	}
	if e.Hint == "" {
		t.Fatal("expected a hint advising a reference instead of the secret")
	}

	// The rejection lands in the tool-error-log table.
	errorLog := svc.Store().ToolErrorLog()
	if len(errorLog) == 0 || errorLog[0].Code != string(agentmemory.CodeSecurityViolation) {
		t.Fatalf("expected a tool-error-log row, got %+v", errorLog)
	}

	rows, err := svc.RecallMemories(ctx, agentmemory.RecallMemoriesRequest{
		UserID:   "user-1",
		Query:    "OPENAI_API_KEY",
		SigmaMin: f64(0),
	})
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(rows) != 0 {
		t.Fatal("expected nothing written after the security rejection")
	}
}

func TestStoreThenRecallAndAnalytics(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	stored, err := svc.StoreMemory(ctx, agentmemory.StoreMemoryRequest{
		UserID:  "user-1",
		Content: "The demo project deploys to Fly.io on merge",
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if stored.Action != "created" {
		t.Fatalf("expected created, got %q", stored.Action)
	}

	again, err := svc.StoreMemory(ctx, agentmemory.StoreMemoryRequest{
		UserID:  "user-1",
		Content: "The demo project deploys to Fly.io on merge",
	})
	if err != nil {
		t.Fatalf("store again: %v", err)
	}
	if again.Action != "merged-with-existing" || again.MemoryID != stored.MemoryID {
		t.Fatalf("expected dedup merge, got %+v", again)
	}

	rows, err := svc.RecallMemories(ctx, agentmemory.RecallMemoriesRequest{
		UserID: "user-1",
		Query:  "The demo project deploys to Fly.io on merge",
	})
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}

	analytics, err := svc.GetMemoryAnalytics(ctx, "user-1")
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if analytics.TotalLive != 1 {
		t.Fatalf("expected one live memory, got %d", analytics.TotalLive)
	}
	if analytics.CountByCategory["semantic"] != 1 {
		t.Fatalf("expected the classified category counted, got %+v", analytics.CountByCategory)
	}

	stats := svc.GetStats(ctx)
	if stats["embed"].Count == 0 {
		t.Fatal("expected embed calls recorded in stats")
	}
	recent := svc.GetRecentCalls(ctx, 10)
	if len(recent) == 0 {
		t.Fatal("expected recent calls recorded")
	}
}

func TestGetRelevantContext_StaysWithinBudget(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	session, err := svc.InitSession(ctx, agentmemory.InitSessionRequest{UserID: "user-1"})
	if err != nil {
		t.Fatalf("init session: %v", err)
	}
	if _, err := svc.AddToWorkingMemory(ctx, agentmemory.AddToWorkingMemoryRequest{
		SessionID:   session.SessionID,
		ContentType: "message",
		Content:     "current task: wire the context assembler",
		Relevance:   0.9,
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.StoreMemory(ctx, agentmemory.StoreMemoryRequest{
		UserID:  "user-1",
		Content: "wire the context assembler",
	}); err != nil {
		t.Fatalf("store: %v", err)
	}

	resp, err := svc.GetRelevantContext(ctx, agentmemory.GetRelevantContextRequest{
		SessionID:   session.SessionID,
		UserID:      "user-1",
		Query:       "wire the context assembler",
		TokenBudget: 500,
	})
	if err != nil {
		t.Fatalf("get relevant context: %v", err)
	}
	if resp.TotalTokensUsed > 500 {
		t.Fatalf("total tokens %d exceed the budget", resp.TotalTokensUsed)
	}
	if resp.DetectedIntent != "general" {
		t.Fatalf("expected the fallback intent, got %q", resp.DetectedIntent)
	}
	if len(resp.Items) == 0 {
		t.Fatal("expected at least the working-memory item")
	}

	if _, err := svc.GetRelevantContext(ctx, agentmemory.GetRelevantContextRequest{
		SessionID:   session.SessionID,
		UserID:      "user-1",
		Query:       "q",
		TokenBudget: -1,
	}); agentmemory.CodeOf(err) != agentmemory.CodeValidation {
		t.Fatalf("expected validation error for a negative budget, got %v", err)
	}
}

func TestForgetAllUserMemories_RequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	if _, err := svc.StoreMemory(ctx, agentmemory.StoreMemoryRequest{
		UserID:  "user-1",
		Content: "ephemeral",
	}); err != nil {
		t.Fatalf("store: %v", err)
	}

	err := svc.ForgetAllUserMemories(ctx, agentmemory.ForgetAllUserMemoriesRequest{
		UserID:  "user-1",
		Confirm: "CONFIRM",
	})
	if agentmemory.CodeOf(err) != agentmemory.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	if err := svc.ForgetAllUserMemories(ctx, agentmemory.ForgetAllUserMemoriesRequest{
		UserID:  "user-1",
		Confirm: "CONFIRM_DELETE_ALL",
	}); err != nil {
		t.Fatalf("forget all: %v", err)
	}

	rows, err := svc.RecallMemories(ctx, agentmemory.RecallMemoriesRequest{
		UserID:   "user-1",
		Query:    "ephemeral",
		SigmaMin: f64(0),
	})
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected zero rows after erasure, got %d", len(rows))
	}
}

func f64(v float64) *float64 { return &v }
