package modelgateway_test

import (
	"context"
	"errors"
	"testing"

	"github.com/becomeliminal/agentmemory/modelgateway"
	"github.com/becomeliminal/agentmemory/modelgateway/embedder/mock"
)

// countingEmbedder wraps the mock embedder and counts upstream calls so the
// cache's hit behavior is observable.
type countingEmbedder struct {
	inner *mock.Embedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) Dimensions() int { return c.inner.Dimensions() }

// fakeChat returns a canned response (or error) for every Complete call.
type fakeChat struct {
	response string
	err      error
}

func (f *fakeChat) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	return f.response, f.err
}

func TestEmbed_ServesRepeatsFromCache(t *testing.T) {
	emb := &countingEmbedder{inner: mock.New(64)}
	gw := modelgateway.New(emb, &fakeChat{}, 10)
	ctx := context.Background()

	first, err := gw.Embed(ctx, "hello")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	second, err := gw.Embed(ctx, "hello")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if emb.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", emb.calls)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatal("expected identical vectors for identical text")
		}
	}
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	emb := &countingEmbedder{inner: mock.New(16)}
	gw := modelgateway.New(emb, &fakeChat{}, 10)

	texts := []string{"a", "b", "a", "c"}
	vecs, err := gw.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("embed batch: %v", err)
	}
	if len(vecs) != 4 {
		t.Fatalf("expected 4 vectors, got %d", len(vecs))
	}
	// "a" repeats, so only three distinct upstream calls happen.
	if emb.calls != 3 {
		t.Fatalf("expected 3 upstream calls, got %d", emb.calls)
	}
	for i := range vecs[0] {
		if vecs[0][i] != vecs[2][i] {
			t.Fatal("expected repeated text to produce the identical vector")
		}
	}
}

func TestClassify_ParsesStrictJSON(t *testing.T) {
	chat := &fakeChat{response: `{"category":"procedural","subtype":"workflow","importance":0.8,"entities":["tool:migrate"],"is_temporal":false}`}
	gw := modelgateway.New(mock.New(16), chat, 10)

	c, err := gw.Classify(context.Background(), "Run migrations with make db-up", "")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if c.Category != "procedural" || c.Subtype != "workflow" {
		t.Fatalf("unexpected classification %+v", c)
	}
	if c.Importance != 0.8 {
		t.Fatalf("expected importance 0.8, got %f", c.Importance)
	}
}

func TestClassify_StripsCodeFences(t *testing.T) {
	chat := &fakeChat{response: "```json\n{\"category\":\"semantic\",\"subtype\":\"project\",\"importance\":0.6,\"entities\":[],\"is_temporal\":false}\n```"}
	gw := modelgateway.New(mock.New(16), chat, 10)

	c, err := gw.Classify(context.Background(), "x", "")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if c.Category != "semantic" || c.Subtype != "project" {
		t.Fatalf("unexpected classification %+v", c)
	}
}

func TestClassify_FallsBackOnGarbage(t *testing.T) {
	chat := &fakeChat{response: "I think this is probably about databases?"}
	gw := modelgateway.New(mock.New(16), chat, 10)

	c, err := gw.Classify(context.Background(), "x", "")
	if err != nil {
		t.Fatalf("classify must recover parse failures, got %v", err)
	}
	if c.Category != "semantic" || c.Subtype != "domain" || c.Importance != 0.5 {
		t.Fatalf("expected fallback classification, got %+v", c)
	}
}

func TestClassify_FallsBackOnUpstreamError(t *testing.T) {
	chat := &fakeChat{err: errors.New("connection refused")}
	gw := modelgateway.New(mock.New(16), chat, 10)

	c, err := gw.Classify(context.Background(), "x", "")
	if err != nil {
		t.Fatalf("classify must recover upstream errors, got %v", err)
	}
	if c.Category != "semantic" || c.Subtype != "domain" {
		t.Fatalf("expected fallback classification, got %+v", c)
	}
}

func TestExtractEntities_EmptyOnParseFailure(t *testing.T) {
	chat := &fakeChat{response: "no entities here"}
	gw := modelgateway.New(mock.New(16), chat, 10)

	entities, err := gw.ExtractEntities(context.Background(), "x")
	if err != nil {
		t.Fatalf("extract entities: %v", err)
	}
	if len(entities) != 0 {
		t.Fatalf("expected empty entity list, got %v", entities)
	}
}

func TestDetectIntent_RecognizedWord(t *testing.T) {
	chat := &fakeChat{response: "How-To.\n"}
	gw := modelgateway.New(mock.New(16), chat, 10)
	if intent := gw.DetectIntent(context.Background(), "how do I deploy?"); intent != "how-to" {
		t.Fatalf("expected how-to, got %q", intent)
	}
}

func TestDetectIntent_DefaultsToGeneral(t *testing.T) {
	gw := modelgateway.New(mock.New(16), &fakeChat{response: "banana"}, 10)
	if intent := gw.DetectIntent(context.Background(), "?"); intent != "general" {
		t.Fatalf("expected general on unknown word, got %q", intent)
	}

	gw = modelgateway.New(mock.New(16), &fakeChat{err: errors.New("down")}, 10)
	if intent := gw.DetectIntent(context.Background(), "?"); intent != "general" {
		t.Fatalf("expected general on upstream error, got %q", intent)
	}
}

func TestMetrics_RecordedPerCall(t *testing.T) {
	metrics := modelgateway.NewMetricsRingBuffer(8)
	gw := modelgateway.New(mock.New(16), &fakeChat{response: "general"}, 10, modelgateway.WithMetrics(metrics))

	_, _ = gw.Embed(context.Background(), "a")
	gw.DetectIntent(context.Background(), "q")

	stats := metrics.StatsByOperation()
	if stats["embed"].Count != 1 {
		t.Fatalf("expected 1 embed sample, got %d", stats["embed"].Count)
	}
	if stats["detect_intent"].Count != 1 {
		t.Fatalf("expected 1 detect_intent sample, got %d", stats["detect_intent"].Count)
	}
}

func TestMetricsRingBuffer_Wraps(t *testing.T) {
	rb := modelgateway.NewMetricsRingBuffer(4)
	for i := 0; i < 6; i++ {
		rb.Record(modelgateway.MetricSample{Operation: "op", Tokens: i})
	}
	snap := rb.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("expected 4 retained samples, got %d", len(snap))
	}
	if snap[0].Tokens != 2 || snap[3].Tokens != 5 {
		t.Fatalf("expected oldest-first window [2..5], got %d..%d", snap[0].Tokens, snap[3].Tokens)
	}
}
