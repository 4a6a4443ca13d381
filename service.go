// Package agentmemory is a memory service for conversational LLM agents:
// persistent, semantically retrievable memory across sessions, assembled
// under a strict token budget. Working memory is session-scoped and subject
// to eviction; long-term memory is user-scoped, vector-indexed, and
// deduplicated on write. The Service type below is the single entry point —
// one method per named tool operation — wired over a vector store and a
// model service it treats as pluggable infrastructure.
package agentmemory

import (
	"context"
	"log"
	"time"

	"github.com/becomeliminal/agentmemory/contextassembler"
	"github.com/becomeliminal/agentmemory/internal/agerr"
	"github.com/becomeliminal/agentmemory/longterm"
	"github.com/becomeliminal/agentmemory/modelgateway"
	"github.com/becomeliminal/agentmemory/security"
	"github.com/becomeliminal/agentmemory/storegw"
	"github.com/becomeliminal/agentmemory/tools"
	"github.com/becomeliminal/agentmemory/workingmemory"
)

// Config aggregates every tunable the service recognizes. Secrets and
// endpoints arrive only through this struct (and the embedder/chat clients
// the caller constructs); the service never reads the process environment.
type Config struct {
	Store         storegw.Config
	WorkingMemory workingmemory.Config
	LongTerm      longterm.Config

	// EmbeddingCacheCapacity bounds the in-process embedding cache
	// (default 1000 entries, FIFO).
	EmbeddingCacheCapacity int

	// MetricsCapacity bounds the in-process metrics ring buffer.
	MetricsCapacity int
}

// DefaultConfig returns the default tuning for every component.
func DefaultConfig() Config {
	return Config{
		Store:                  storegw.DefaultConfig(),
		WorkingMemory:          workingmemory.DefaultConfig(),
		LongTerm:               longterm.DefaultConfig(),
		EmbeddingCacheCapacity: 1000,
		MetricsCapacity:        256,
	}
}

// Service exposes the fifteen named tool operations plus the maintenance
// operations (supersede, find-contradictions, apply-decay). Construct one
// per process with New and share it across concurrent callers; all internal
// state is mutex-guarded.
type Service struct {
	store     *storegw.Gateway
	models    *modelgateway.Gateway
	validator *security.Validator
	working   *workingmemory.Manager
	longTerm  *longterm.Manager
	assembler *contextassembler.Assembler
	metrics   *modelgateway.MetricsRingBuffer
}

// New wires the full component graph over the supplied embedder and chat
// client. Both may be shared with other services; the Service adds its own
// embedding cache and metrics buffer on top.
func New(embedder modelgateway.Embedder, chat modelgateway.ChatClient, cfg Config) *Service {
	store := storegw.New(cfg.Store)

	metrics := modelgateway.NewMetricsRingBuffer(cfg.MetricsCapacity)
	models := modelgateway.New(embedder, chat, cfg.EmbeddingCacheCapacity,
		modelgateway.WithMetrics(metrics),
		modelgateway.WithMetricsSink(func(s modelgateway.MetricSample) {
			store.RecordServiceMetric(storegw.ServiceMetricEntry{
				Operation: s.Operation,
				LatencyMS: s.Latency.Milliseconds(),
				Success:   s.Success,
				Tokens:    s.Tokens,
				At:        s.At,
			})
		}),
	)

	validator := security.New()
	ltm := longterm.New(store, models, validator, cfg.LongTerm)
	wm := workingmemory.New(store, validator, ltm, cfg.WorkingMemory)
	assembler := contextassembler.New(wm, models, store)

	return &Service{
		store:     store,
		models:    models,
		validator: validator,
		working:   wm,
		longTerm:  ltm,
		assembler: assembler,
		metrics:   metrics,
	}
}

// Store returns the underlying store gateway, for maintenance tooling that
// needs direct table access.
func (s *Service) Store() *storegw.Gateway { return s.store }

// surface records err in the tool-error-log table before handing it back to
// the caller. Recovered errors never reach here; everything that does is a
// surfaced failure per the propagation policy.
func (s *Service) surface(op, sessionID, userID string, err error) error {
	if err == nil {
		return nil
	}
	code := agerr.CodeOf(err)
	s.store.RecordToolError(storegw.ToolErrorLogEntry{
		Code:      string(code),
		Operation: op,
		SessionID: sessionID,
		UserID:    userID,
		Detail:    err.Error(),
		At:        time.Now(),
	})
	if code == agerr.CodeInternal {
		log.Printf("[SERVICE] %s failed: %v", op, err)
	}
	return err
}

// ---------------------------------------------------------------------------
// Working memory
// ---------------------------------------------------------------------------

// InitSessionRequest is the input shape of init_session.
type InitSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id"`
	OrgID     string `json:"org_id,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

// SessionInfo is the session row as returned to callers.
type SessionInfo struct {
	SessionID      string     `json:"session_id"`
	UserID         string     `json:"user_id"`
	OrgID          string     `json:"org_id,omitempty"`
	MaxTokens      int        `json:"max_tokens"`
	TokenTotal     int        `json:"token_total"`
	CreatedAt      time.Time  `json:"created_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

func sessionInfo(s *storegw.Session) *SessionInfo {
	return &SessionInfo{
		SessionID:      s.SessionID,
		UserID:         s.UserID,
		OrgID:          s.OrgID,
		MaxTokens:      s.MaxTokens,
		TokenTotal:     s.TokenTotal,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
		ExpiresAt:      s.ExpiresAt,
	}
}

// InitSession implements init_session.
func (s *Service) InitSession(ctx context.Context, req InitSessionRequest) (*SessionInfo, error) {
	if req.UserID == "" {
		return nil, s.surface("init_session", req.SessionID, req.UserID,
			agerr.Validation(nil, "user_id is required"))
	}
	session, err := s.working.InitOrResumeSession(ctx, req.SessionID, req.UserID, req.OrgID, req.MaxTokens)
	if err != nil {
		return nil, s.surface("init_session", req.SessionID, req.UserID, err)
	}
	return sessionInfo(session), nil
}

// AddToWorkingMemoryRequest is the input shape of add_to_working_memory.
type AddToWorkingMemoryRequest struct {
	tools.BaseInput

	SessionID   string  `json:"session_id"`
	ContentType string  `json:"content_type"`
	Content     string  `json:"content"`
	Relevance   float64 `json:"relevance,omitempty"`
	Pinned      bool    `json:"pinned,omitempty"`
}

// WorkingMemoryItemInfo is a working-memory item as returned to callers.
type WorkingMemoryItemInfo struct {
	ItemID      string    `json:"item_id"`
	SessionID   string    `json:"session_id"`
	ContentType string    `json:"content_type"`
	Content     string    `json:"content"`
	Tokens      int       `json:"tokens"`
	Relevance   float64   `json:"relevance"`
	Pinned      bool      `json:"pinned"`
	Sequence    int64     `json:"sequence"`
	CreatedAt   time.Time `json:"created_at"`
}

func itemInfo(it *storegw.WorkingMemoryItem) *WorkingMemoryItemInfo {
	return &WorkingMemoryItemInfo{
		ItemID:      it.ItemID,
		SessionID:   it.SessionID,
		ContentType: string(it.ContentType),
		Content:     it.Content,
		Tokens:      it.Tokens,
		Relevance:   it.Relevance,
		Pinned:      it.Pinned,
		Sequence:    it.Sequence,
		CreatedAt:   it.CreatedAt,
	}
}

// AddToWorkingMemoryResponse reports the stored item and anything evicted to
// make room for it.
type AddToWorkingMemoryResponse struct {
	Item    *WorkingMemoryItemInfo   `json:"item"`
	Evicted []*WorkingMemoryItemInfo `json:"evicted,omitempty"`
}

var validContentTypes = map[storegw.ContentType]bool{
	storegw.ContentMessage:         true,
	storegw.ContentTaskState:       true,
	storegw.ContentScratchpad:      true,
	storegw.ContentSystem:          true,
	storegw.ContentRetrievedMemory: true,
}

// AddToWorkingMemory implements add_to_working_memory. Unknown sessions are
// auto-created for the empty user, matching the manager's recover-locally
// policy for not-found sessions.
func (s *Service) AddToWorkingMemory(ctx context.Context, req AddToWorkingMemoryRequest) (*AddToWorkingMemoryResponse, error) {
	ct := storegw.ContentType(req.ContentType)
	if !validContentTypes[ct] {
		return nil, s.surface("add_to_working_memory", req.SessionID, "",
			agerr.Validation(nil, "unknown content_type %q", req.ContentType))
	}
	if req.Relevance < 0 || req.Relevance > 1 {
		return nil, s.surface("add_to_working_memory", req.SessionID, "",
			agerr.Validation(nil, "relevance must be in [0,1]"))
	}
	result, err := s.working.Append(ctx, req.SessionID, ct, req.Content, req.Relevance, req.Pinned)
	if err != nil {
		return nil, s.surface("add_to_working_memory", req.SessionID, "", err)
	}
	resp := &AddToWorkingMemoryResponse{Item: itemInfo(result.Item)}
	for _, ev := range result.Evicted {
		resp.Evicted = append(resp.Evicted, itemInfo(ev))
	}
	return resp, nil
}

// GetWorkingMemoryRequest is the input shape of get_working_memory.
type GetWorkingMemoryRequest struct {
	SessionID   string `json:"session_id"`
	TokenBudget int    `json:"token_budget"`
}

// GetWorkingMemory implements get_working_memory.
func (s *Service) GetWorkingMemory(ctx context.Context, req GetWorkingMemoryRequest) ([]*WorkingMemoryItemInfo, error) {
	if req.TokenBudget < 0 {
		return nil, s.surface("get_working_memory", req.SessionID, "",
			agerr.Validation(nil, "token_budget must be nonnegative"))
	}
	items, err := s.working.GetItems(ctx, req.SessionID, req.TokenBudget)
	if err != nil {
		return nil, s.surface("get_working_memory", req.SessionID, "", err)
	}
	out := make([]*WorkingMemoryItemInfo, 0, len(items))
	for _, it := range items {
		out = append(out, itemInfo(it))
	}
	return out, nil
}

// UpdateWorkingMemoryItemRequest is the input shape of
// update_working_memory_item. Nil fields are left unchanged.
type UpdateWorkingMemoryItemRequest struct {
	SessionID string   `json:"session_id"`
	ItemID    string   `json:"item_id"`
	Pinned    *bool    `json:"pinned,omitempty"`
	Relevance *float64 `json:"relevance,omitempty"`
}

// UpdateWorkingMemoryItem implements update_working_memory_item.
func (s *Service) UpdateWorkingMemoryItem(ctx context.Context, req UpdateWorkingMemoryItemRequest) (*WorkingMemoryItemInfo, error) {
	if req.Relevance != nil && (*req.Relevance < 0 || *req.Relevance > 1) {
		return nil, s.surface("update_working_memory_item", req.SessionID, "",
			agerr.Validation(nil, "relevance must be in [0,1]"))
	}
	item, err := s.working.UpdateItem(ctx, req.SessionID, req.ItemID, req.Pinned, req.Relevance)
	if err != nil {
		return nil, s.surface("update_working_memory_item", req.SessionID, "", err)
	}
	return itemInfo(item), nil
}

// ClearWorkingMemoryRequest is the input shape of clear_working_memory.
type ClearWorkingMemoryRequest struct {
	SessionID       string `json:"session_id"`
	CheckpointFirst *bool  `json:"checkpoint_first,omitempty"` // default true
}

// ClearWorkingMemory implements clear_working_memory.
func (s *Service) ClearWorkingMemory(ctx context.Context, req ClearWorkingMemoryRequest) error {
	checkpointFirst := true
	if req.CheckpointFirst != nil {
		checkpointFirst = *req.CheckpointFirst
	}
	return s.surface("clear_working_memory", req.SessionID, "",
		s.working.ClearSession(ctx, req.SessionID, checkpointFirst))
}

// CheckpointWorkingMemoryRequest is the input shape of
// checkpoint_working_memory.
type CheckpointWorkingMemoryRequest struct {
	SessionID string `json:"session_id"`
}

// CheckpointWorkingMemory implements checkpoint_working_memory.
func (s *Service) CheckpointWorkingMemory(ctx context.Context, req CheckpointWorkingMemoryRequest) error {
	return s.surface("checkpoint_working_memory", req.SessionID, "",
		s.working.Checkpoint(ctx, req.SessionID))
}

// ---------------------------------------------------------------------------
// Long-term memory
// ---------------------------------------------------------------------------

// StoreMemoryRequest is the input shape of store_memory.
type StoreMemoryRequest struct {
	tools.BaseInput

	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id,omitempty"`
	Content    string         `json:"content"`
	Category   string         `json:"category,omitempty"`
	Subtype    string         `json:"subtype,omitempty"`
	Importance *float64       `json:"importance,omitempty"`
	Entities   []string       `json:"entities,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// StoreMemoryResponse reports the memory ID and whether the content was
// freshly inserted or merged with a near-duplicate.
type StoreMemoryResponse struct {
	MemoryID string `json:"memory_id"`
	Action   string `json:"action"` // "created" or "merged-with-existing"
}

// StoreMemory implements store_memory.
func (s *Service) StoreMemory(ctx context.Context, req StoreMemoryRequest) (*StoreMemoryResponse, error) {
	if req.UserID == "" || req.Content == "" {
		return nil, s.surface("store_memory", req.SessionID, req.UserID,
			agerr.Validation(nil, "user_id and content are required"))
	}
	if req.Importance != nil && (*req.Importance < 0 || *req.Importance > 1) {
		return nil, s.surface("store_memory", req.SessionID, req.UserID,
			agerr.Validation(nil, "importance must be in [0,1]"))
	}
	result, err := s.longTerm.Store(ctx, req.UserID, req.SessionID, req.Content, longterm.StoreHints{
		Category:   req.Category,
		Subtype:    req.Subtype,
		Importance: req.Importance,
		Entities:   req.Entities,
		Metadata:   req.Metadata,
	})
	if err != nil {
		return nil, s.surface("store_memory", req.SessionID, req.UserID, err)
	}
	return &StoreMemoryResponse{MemoryID: result.MemoryID, Action: result.Action}, nil
}

// RecallMemoriesRequest is the input shape of recall_memories.
type RecallMemoriesRequest struct {
	UserID     string   `json:"user_id"`
	SessionID  string   `json:"session_id,omitempty"`
	Query      string   `json:"query"`
	Categories []string `json:"categories,omitempty"`
	Subtypes   []string `json:"subtypes,omitempty"`
	Entities   []string `json:"entities,omitempty"`
	Limit      int      `json:"limit,omitempty"`
	SigmaMin   *float64 `json:"sigma_min,omitempty"`
}

// RecalledMemory is one recall_memories result row.
type RecalledMemory struct {
	MemoryID   string         `json:"memory_id"`
	Category   string         `json:"category"`
	Subtype    string         `json:"subtype"`
	Content    string         `json:"content"`
	Summary    *string        `json:"summary,omitempty"`
	Entities   []string       `json:"entities,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Importance float64        `json:"importance"`
	Relevance  float64        `json:"relevance"`
	Similarity float64        `json:"similarity"`
	CreatedAt  time.Time      `json:"created_at"`
}

// RecallMemories implements recall_memories.
func (s *Service) RecallMemories(ctx context.Context, req RecallMemoriesRequest) ([]*RecalledMemory, error) {
	if req.UserID == "" {
		return nil, s.surface("recall_memories", req.SessionID, req.UserID,
			agerr.Validation(nil, "user_id is required"))
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	items, err := s.longTerm.Recall(ctx, req.UserID, req.SessionID, req.Query, storegw.Filters{
		Categories: req.Categories,
		Subtypes:   req.Subtypes,
		Entities:   req.Entities,
	}, limit, req.SigmaMin)
	if err != nil {
		return nil, s.surface("recall_memories", req.SessionID, req.UserID, err)
	}
	out := make([]*RecalledMemory, 0, len(items))
	for _, it := range items {
		out = append(out, &RecalledMemory{
			MemoryID:   it.Memory.MemoryID,
			Category:   it.Memory.Category,
			Subtype:    it.Memory.Subtype,
			Content:    it.Memory.Content,
			Summary:    it.Memory.Summary,
			Entities:   it.Memory.Entities,
			Metadata:   it.Memory.Metadata,
			Importance: it.Memory.Importance,
			Relevance:  it.Relevance,
			Similarity: it.Cosine,
			CreatedAt:  it.Memory.CreatedAt,
		})
	}
	return out, nil
}

// UpdateMemoryRequest is the input shape of update_memory.
type UpdateMemoryRequest struct {
	tools.BaseInput

	UserID   string         `json:"user_id"`
	MemoryID string         `json:"memory_id"`
	Content  *string        `json:"content,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// UpdateMemory implements update_memory.
func (s *Service) UpdateMemory(ctx context.Context, req UpdateMemoryRequest) (*RecalledMemory, error) {
	mem, err := s.longTerm.Update(ctx, req.UserID, req.MemoryID, req.Content, req.Metadata)
	if err != nil {
		return nil, s.surface("update_memory", "", req.UserID, err)
	}
	return &RecalledMemory{
		MemoryID:   mem.MemoryID,
		Category:   mem.Category,
		Subtype:    mem.Subtype,
		Content:    mem.Content,
		Summary:    mem.Summary,
		Entities:   mem.Entities,
		Metadata:   mem.Metadata,
		Importance: mem.Importance,
		CreatedAt:  mem.CreatedAt,
	}, nil
}

// ForgetMemoryRequest is the input shape of forget_memory.
type ForgetMemoryRequest struct {
	tools.BaseInput

	UserID   string `json:"user_id"`
	MemoryID string `json:"memory_id"`
	Hard     bool   `json:"hard,omitempty"`
}

// ForgetMemory implements forget_memory.
func (s *Service) ForgetMemory(ctx context.Context, req ForgetMemoryRequest) error {
	return s.surface("forget_memory", "", req.UserID,
		s.longTerm.Forget(ctx, req.UserID, req.MemoryID, req.Hard))
}

// ForgetAllUserMemoriesRequest is the input shape of
// forget_all_user_memories. Confirm must equal the literal string
// "CONFIRM_DELETE_ALL".
type ForgetAllUserMemoriesRequest struct {
	tools.BaseInput

	UserID  string `json:"user_id"`
	Confirm string `json:"confirm"`
}

// ForgetAllUserMemories implements forget_all_user_memories: the hard,
// cross-table erasure path.
func (s *Service) ForgetAllUserMemories(ctx context.Context, req ForgetAllUserMemoriesRequest) error {
	return s.surface("forget_all_user_memories", "", req.UserID,
		s.longTerm.ForgetAllForUser(ctx, req.UserID, req.Confirm))
}

// ---------------------------------------------------------------------------
// Context assembly
// ---------------------------------------------------------------------------

// GetRelevantContextRequest is the input shape of get_relevant_context.
type GetRelevantContextRequest struct {
	SessionID     string   `json:"session_id"`
	UserID        string   `json:"user_id"`
	Query         string   `json:"query"`
	TokenBudget   int      `json:"token_budget"`
	Intent        string   `json:"intent,omitempty"`
	FocusEntities []string `json:"focus_entities,omitempty"`
}

// ContextItemInfo is one assembled context entry.
type ContextItemInfo struct {
	Source    string  `json:"source"`
	Category  string  `json:"category,omitempty"`
	Subtype   string  `json:"subtype,omitempty"`
	Content   string  `json:"content"`
	Tokens    int     `json:"tokens"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
	MemoryID  string  `json:"memory_id,omitempty"`
}

// GetRelevantContextResponse is get_relevant_context's full response.
type GetRelevantContextResponse struct {
	Items             []ContextItemInfo `json:"items"`
	TotalTokensUsed   int               `json:"total_tokens_used"`
	BudgetUsedPct     float64           `json:"budget_used_pct"`
	DetectedIntent    string            `json:"detected_intent"`
	BreakdownBySource map[string]int    `json:"breakdown_by_source"`
}

// GetRelevantContext implements get_relevant_context.
func (s *Service) GetRelevantContext(ctx context.Context, req GetRelevantContextRequest) (*GetRelevantContextResponse, error) {
	if req.TokenBudget < 0 {
		return nil, s.surface("get_relevant_context", req.SessionID, req.UserID,
			agerr.Validation(nil, "token_budget must be nonnegative"))
	}
	result, err := s.assembler.GetRelevantContext(ctx, req.SessionID, req.UserID, req.Query, req.TokenBudget, req.Intent, req.FocusEntities)
	if err != nil {
		return nil, s.surface("get_relevant_context", req.SessionID, req.UserID, err)
	}
	resp := &GetRelevantContextResponse{
		TotalTokensUsed:   result.TotalTokensUsed,
		BudgetUsedPct:     result.BudgetUsedPct,
		DetectedIntent:    result.DetectedIntent,
		BreakdownBySource: result.BreakdownBySource,
	}
	for _, it := range result.Items {
		resp.Items = append(resp.Items, ContextItemInfo{
			Source:    string(it.Source),
			Category:  it.Category,
			Subtype:   it.Subtype,
			Content:   it.Content,
			Tokens:    it.Tokens,
			Score:     it.Score,
			Rationale: it.Rationale,
			MemoryID:  it.MemoryID,
		})
	}
	return resp, nil
}

// ---------------------------------------------------------------------------
// Analytics
// ---------------------------------------------------------------------------

// OperationStats summarizes one model-gateway operation for get_stats.
type OperationStats struct {
	Count         int     `json:"count"`
	Successes     int     `json:"successes"`
	TotalTokens   int     `json:"total_tokens"`
	MeanLatencyMS float64 `json:"mean_latency_ms"`
}

// GetStats implements get_stats.
func (s *Service) GetStats(ctx context.Context) map[string]OperationStats {
	out := make(map[string]OperationStats)
	for op, st := range s.metrics.StatsByOperation() {
		out[op] = OperationStats{
			Count:         st.Count,
			Successes:     st.Successes,
			TotalTokens:   st.TotalTokens,
			MeanLatencyMS: float64(st.MeanLatency.Microseconds()) / 1000,
		}
	}
	return out
}

// RecentCall is one get_recent_calls row.
type RecentCall struct {
	Operation string    `json:"operation"`
	LatencyMS float64   `json:"latency_ms"`
	Success   bool      `json:"success"`
	Tokens    int       `json:"tokens"`
	At        time.Time `json:"at"`
}

// GetRecentCalls implements get_recent_calls, newest first.
func (s *Service) GetRecentCalls(ctx context.Context, limit int) []RecentCall {
	if limit <= 0 {
		limit = 50
	}
	samples := s.metrics.Snapshot()
	out := make([]RecentCall, 0, limit)
	for i := len(samples) - 1; i >= 0 && len(out) < limit; i-- {
		sm := samples[i]
		out = append(out, RecentCall{
			Operation: sm.Operation,
			LatencyMS: float64(sm.Latency.Microseconds()) / 1000,
			Success:   sm.Success,
			Tokens:    sm.Tokens,
			At:        sm.At,
		})
	}
	return out
}

// MemoryAnalytics is get_memory_analytics' response.
type MemoryAnalytics struct {
	TotalLive           int            `json:"total_live"`
	CountByCategory     map[string]int `json:"count_by_category"`
	CountBySubtype      map[string]int `json:"count_by_subtype"`
	MeanImportance      float64        `json:"mean_importance"`
	MeanDecayFactor     float64        `json:"mean_decay_factor"`
	StaleCount          int            `json:"stale_count"`
	SupersededOrDeleted int            `json:"superseded_or_deleted"`
}

// GetMemoryAnalytics implements get_memory_analytics.
func (s *Service) GetMemoryAnalytics(ctx context.Context, userID string) (*MemoryAnalytics, error) {
	if userID == "" {
		return nil, s.surface("get_memory_analytics", "", userID,
			agerr.Validation(nil, "user_id is required"))
	}
	report, err := s.longTerm.QualityReport(ctx, userID)
	if err != nil {
		return nil, s.surface("get_memory_analytics", "", userID, err)
	}
	return &MemoryAnalytics{
		TotalLive:           report.TotalLive,
		CountByCategory:     report.CountByCategory,
		CountBySubtype:      report.CountBySubtype,
		MeanImportance:      report.MeanImportance,
		MeanDecayFactor:     report.MeanDecayFactor,
		StaleCount:          report.StaleCount,
		SupersededOrDeleted: report.SupersededOrDeleted,
	}, nil
}

// ---------------------------------------------------------------------------
// Maintenance (not part of the tool surface; called by offline jobs)
// ---------------------------------------------------------------------------

// SupersedeMemory marks newID as replacing oldID: the old memory is
// soft-deleted and an "updates" relationship edge old -> new is recorded.
func (s *Service) SupersedeMemory(ctx context.Context, userID, oldID, newID string) error {
	return s.surface("supersede_memory", "", userID,
		s.longTerm.Supersede(ctx, userID, oldID, newID))
}

// FindContradictions runs the offline contradiction sweep for userID.
func (s *Service) FindContradictions(ctx context.Context, userID string) ([]longterm.ContradictionCandidate, error) {
	out, err := s.longTerm.FindContradictions(ctx, userID)
	if err != nil {
		return nil, s.surface("find_contradictions", "", userID, err)
	}
	return out, nil
}

// ApplyDecay discounts the importance of userID's stale memories. Zero
// arguments fall back to the configured defaults. Returns the number of
// memories touched.
func (s *Service) ApplyDecay(ctx context.Context, userID string, rate, floor float64, inactiveDays int) (int, error) {
	touched, err := s.longTerm.ApplyDecay(ctx, userID, rate, floor, inactiveDays)
	if err != nil {
		return 0, s.surface("apply_decay", "", userID, err)
	}
	return touched, nil
}
