// Package modelgateway implements embedding generation with an in-process
// cache, content classification, entity extraction, and intent detection,
// each routed to an external model service and each falling back to a safe
// default on unparseable output.
package modelgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// Embedder converts text to a fixed-dimension vector. Implementations:
// modelgateway/embedder/mock (testing), modelgateway/embedder/onnx (local,
// build-tag gated), or modelgateway/httpembed for a remote embedding
// endpoint.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// ChatClient is the subset of a chat-completion client the gateway needs for
// Classify, ExtractEntities, and DetectIntent. A real implementation wraps
// github.com/anthropics/anthropic-sdk-go (see AnthropicChatClient); tests use
// a hand-written fake.
type ChatClient interface {
	// Complete sends systemPrompt + userContent and returns the raw text
	// response. Implementations must honor ctx cancellation.
	Complete(ctx context.Context, systemPrompt, userContent string) (string, error)
}

// Classification is the structured result of Classify.
type Classification struct {
	Category   string   `json:"category"`
	Subtype    string   `json:"subtype"`
	Importance float64  `json:"importance"`
	Entities   []string `json:"entities"`
	IsTemporal bool     `json:"is_temporal"`
	Summary    *string  `json:"summary,omitempty"`
}

// defaultClassification is the fallback used when the model's output can't
// be parsed as strict JSON.
func defaultClassification() Classification {
	return Classification{
		Category:   "semantic",
		Subtype:    "domain",
		Importance: 0.5,
		Entities:   []string{},
		IsTemporal: false,
		Summary:    nil,
	}
}

// MetricsSink receives a copy of every recorded sample, best-effort. A sink
// failure never fails the user operation, so the callback has no error
// return; implementations must not block.
type MetricsSink func(MetricSample)

// Pool is a connection-pool wrapper. The in-process embedder and chat
// clients don't borrow from it; it exists so a pooled production backend can
// sit behind the same Gateway without a caller-visible change.
type Pool struct {
	min, max int
}

// NewPool constructs a Pool, defaulting non-positive bounds to 4 and 32.
func NewPool(min, max int) *Pool {
	if min <= 0 {
		min = 4
	}
	if max <= 0 {
		max = 32
	}
	return &Pool{min: min, max: max}
}

// Bounds returns the pool's configured min and max size.
func (p *Pool) Bounds() (int, int) { return p.min, p.max }

// Gateway routes embedding, classification, entity-extraction, and
// intent-detection calls to the configured model service.
type Gateway struct {
	embedder Embedder
	chat     ChatClient
	cache    *embeddingCache
	metrics  *MetricsRingBuffer
	sink     MetricsSink
	pool     *Pool
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithMetrics attaches a shared metrics ring buffer.
func WithMetrics(m *MetricsRingBuffer) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithPool overrides the default connection-pool bounds.
func WithPool(p *Pool) Option {
	return func(g *Gateway) { g.pool = p }
}

// WithMetricsSink forwards every sample to sink in addition to the ring
// buffer — typically the store's service-metrics table.
func WithMetricsSink(sink MetricsSink) Option {
	return func(g *Gateway) { g.sink = sink }
}

// New constructs a Gateway. A cacheCapacity <= 0 falls back to the default
// of 1000 entries.
func New(embedder Embedder, chat ChatClient, cacheCapacity int, opts ...Option) *Gateway {
	if cacheCapacity <= 0 {
		cacheCapacity = 1000
	}
	g := &Gateway{
		embedder: embedder,
		chat:     chat,
		cache:    newEmbeddingCache(cacheCapacity),
		metrics:  NewMetricsRingBuffer(256),
		pool:     NewPool(4, 32),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Pool returns the Gateway's connection-pool wrapper.
func (g *Gateway) Pool() *Pool { return g.pool }

// Dimensions reports the embedding dimension of the underlying embedder.
func (g *Gateway) Dimensions() int {
	return g.embedder.Dimensions()
}

// Embed returns the embedding for text, serving from the in-process FIFO
// cache when present.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := g.cache.get(text); ok {
		return v, nil
	}

	start := time.Now()
	vec, err := g.embedder.Embed(ctx, text)
	g.record("embed", start, err == nil, 0)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	g.cache.put(text, vec)
	return vec, nil
}

// EmbedBatch embeds every text in order, populating the cache as it goes and
// reusing cache hits within the same batch.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := g.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embed batch item %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

const classifySystemPrompt = `You classify a piece of memory content for a long-term agent memory store.
Legal categories and subtypes are exactly:
  episodic: event, decision, conversation, outcome
  semantic: user, project, environment, domain, entity
  procedural: workflow, pattern, tool-usage, debugging
  preference: communication, style, tools, boundaries
Respond with ONLY a single JSON object, no prose, matching this shape:
{"category":"...","subtype":"...","importance":0.0,"entities":["type:name"],"is_temporal":false,"summary":"..."}
importance is a float in [0,1]. summary may be omitted or null if the content is already short.`

// Classify routes content to the model service for classification. On any
// parse failure it logs a warning and returns the fixed fallback default
// rather than surfacing an error — Classify itself never fails the caller's
// write due to an unparseable model response.
func (g *Gateway) Classify(ctx context.Context, content, contextHint string) (Classification, error) {
	start := time.Now()
	raw, err := g.chat.Complete(ctx, classifySystemPrompt, content+"\n\ncontext: "+contextHint)
	ok := err == nil
	g.record("classify", start, ok, 0)
	if err != nil {
		log.Printf("[MODELGATEWAY] classify upstream error: %v", err)
		return defaultClassification(), nil
	}

	var c Classification
	if jerr := json.Unmarshal([]byte(extractJSON(raw)), &c); jerr != nil {
		log.Printf("[MODELGATEWAY] classify: failed to parse model output as JSON: %v", jerr)
		return defaultClassification(), nil
	}
	if c.Entities == nil {
		c.Entities = []string{}
	}
	return c, nil
}

const entitiesSystemPrompt = `Extract named entities from the content. Respond with ONLY a JSON array of
strings in the form "type:name" (e.g. "person:Alice", "project:checkout-service"). No prose.
If there are no entities, respond with [].`

// ExtractEntities extracts "type:name" entity strings from content. Returns
// an empty list (not an error) on parse failure.
func (g *Gateway) ExtractEntities(ctx context.Context, content string) ([]string, error) {
	start := time.Now()
	raw, err := g.chat.Complete(ctx, entitiesSystemPrompt, content)
	ok := err == nil
	g.record("extract_entities", start, ok, 0)
	if err != nil {
		log.Printf("[MODELGATEWAY] extract_entities upstream error: %v", err)
		return []string{}, nil
	}

	var entities []string
	if jerr := json.Unmarshal([]byte(extractJSON(raw)), &entities); jerr != nil {
		log.Printf("[MODELGATEWAY] extract_entities: failed to parse model output as JSON: %v", jerr)
		return []string{}, nil
	}
	if entities == nil {
		entities = []string{}
	}
	return entities, nil
}

const intentSystemPrompt = `Classify the user's query intent as exactly one word from this set:
how-to, what-happened, what-is, debug, general
Respond with ONLY that single word.`

// DetectIntent classifies a query's intent. Any ambiguity — an upstream
// error, an empty response, or a word outside the five legal intents —
// defaults to "general"; DetectIntent has no retryable failure class.
func (g *Gateway) DetectIntent(ctx context.Context, query string) string {
	start := time.Now()
	raw, err := g.chat.Complete(ctx, intentSystemPrompt, query)
	ok := err == nil
	g.record("detect_intent", start, ok, 0)
	if err != nil {
		return "general"
	}

	word := normalizeIntentWord(raw)
	switch word {
	case "how-to", "what-happened", "what-is", "debug", "general":
		return word
	default:
		return "general"
	}
}

func (g *Gateway) record(op string, start time.Time, success bool, tokens int) {
	sample := MetricSample{
		Operation: op,
		Latency:   time.Since(start),
		Success:   success,
		Tokens:    tokens,
		At:        time.Now(),
	}
	if g.metrics != nil {
		g.metrics.Record(sample)
	}
	if g.sink != nil {
		g.sink(sample)
	}
}
