// Package longterm implements the long-term memory manager: store with
// classification and deduplication, composite-scored recall, update, forget,
// forget-all-for-user, supersession, the offline contradiction sweep,
// importance decay, and a read-only quality report.
package longterm

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/becomeliminal/agentmemory/internal/agerr"
	"github.com/becomeliminal/agentmemory/modelgateway"
	"github.com/becomeliminal/agentmemory/security"
	"github.com/becomeliminal/agentmemory/storegw"
	"github.com/becomeliminal/agentmemory/taxonomy"
)

// Config holds the Manager's tunable defaults.
type Config struct {
	DedupSigmaMin         float64
	DedupK                int
	RecallSigmaMin        float64
	ContradictionSigmaMin float64
	WeightSem             float64
	WeightRec             float64
	WeightFreq            float64
	WeightImp             float64
	HRecencyDays          float64
	AccessCap             int
	DecayRate             float64
	DecayInactiveDays     int
	DecayFloor            float64
}

// DefaultConfig returns the default thresholds and weights.
func DefaultConfig() Config {
	return Config{
		DedupSigmaMin:         0.95,
		DedupK:                3,
		RecallSigmaMin:        0.7,
		ContradictionSigmaMin: 0.75,
		WeightSem:             0.5,
		WeightRec:             0.2,
		WeightFreq:            0.1,
		WeightImp:             0.2,
		HRecencyDays:          30,
		AccessCap:             100,
		DecayRate:             0.98,
		DecayInactiveDays:     7,
		DecayFloor:            0.1,
	}
}

// Manager implements the Long-Term Memory Manager.
type Manager struct {
	store     *storegw.Gateway
	gateway   *modelgateway.Gateway
	validator *security.Validator
	cfg       Config
}

// New constructs a Manager.
func New(store *storegw.Gateway, gateway *modelgateway.Gateway, validator *security.Validator, cfg Config) *Manager {
	return &Manager{store: store, gateway: gateway, validator: validator, cfg: cfg}
}

// StoreHints lets a caller supply a category/subtype/importance instead of
// relying on Classify.
type StoreHints struct {
	Category   string
	Subtype    string
	Importance *float64
	Entities   []string
	Summary    *string
	EventAt    *time.Time
	IsTemporal bool
	Confidence *float64
	Metadata   map[string]any
	Source     storegw.SourceType // defaults to user-stated
}

// StoreResult is Store's response shape: the memory ID and whether it was a
// fresh insert or a dedup merge.
type StoreResult struct {
	MemoryID string
	Action   string // "created" or "merged-with-existing"
}

// Store validates, classifies, embeds, deduplicates, and inserts content for
// userID.
func (m *Manager) Store(ctx context.Context, userID, sessionID, content string, hints StoreHints) (*StoreResult, error) {
	if matches := m.validator.Check(content); len(matches) > 0 {
		return nil, agerr.SecurityViolation(matches)
	}

	category, subtype := hints.Category, hints.Subtype
	importance := 0.5
	entities := hints.Entities
	summary := hints.Summary

	if category == "" || subtype == "" {
		cls, err := m.gateway.Classify(ctx, content, "")
		if err != nil {
			return nil, agerr.UpstreamModel(err, "classify content")
		}
		category, subtype = cls.Category, cls.Subtype
		importance = cls.Importance
		if entities == nil {
			entities = cls.Entities
		}
		if summary == nil {
			summary = cls.Summary
		}
	}
	if hints.Importance != nil {
		importance = *hints.Importance
	}
	if !taxonomy.Valid(taxonomy.Category(category), taxonomy.Subtype(subtype)) {
		return nil, agerr.Validation(nil, "invalid category/subtype pair: %s.%s", category, subtype)
	}

	if entities == nil {
		extracted, err := m.gateway.ExtractEntities(ctx, content)
		if err != nil {
			return nil, agerr.UpstreamModel(err, "extract entities")
		}
		entities = extracted
	}

	embedding, err := m.gateway.Embed(ctx, content)
	if err != nil {
		return nil, agerr.UpstreamModel(err, "embed content")
	}

	confidence := 0.8
	if hints.Confidence != nil {
		confidence = *hints.Confidence
	}
	sourceType := hints.Source
	if sourceType == "" {
		sourceType = storegw.SourceUserStated
	}

	mem := &storegw.LongTermMemory{
		UserID:        userID,
		Category:      category,
		Subtype:       subtype,
		Content:       content,
		Summary:       summary,
		Embedding:     embedding,
		Entities:      entities,
		Metadata:      hints.Metadata,
		EventAt:       hints.EventAt,
		IsTemporal:    hints.IsTemporal,
		Importance:    importance,
		AccessCount:   0,
		DecayFactor:   1.0,
		SourceSession: sessionID,
		SourceType:    sourceType,
		Confidence:    confidence,
	}
	// Embedding and classification already happened above, outside the
	// write-mutex scope; only the dedup check and the insert itself run
	// under it, so model-service latency never holds the writer lock.
	inserted, mergedWithExisting, err := m.store.DedupInsertLongTermMemory(ctx, mem, m.cfg.DedupSigmaMin, m.cfg.DedupK)
	if err != nil {
		return nil, err
	}
	if mergedWithExisting {
		return &StoreResult{MemoryID: inserted.MemoryID, Action: "merged-with-existing"}, nil
	}
	return &StoreResult{MemoryID: inserted.MemoryID, Action: "created"}, nil
}

// RecallItem is one row of Recall's response: the memory plus its computed
// composite relevance.
type RecallItem struct {
	Memory    *storegw.LongTermMemory
	Relevance float64
	Cosine    float64
}

// Recall embeds query, asks the Store Gateway for candidates, scores them
// with the composite relevance formula, and records the access.
func (m *Manager) Recall(ctx context.Context, userID, sessionID, query string, filters storegw.Filters, limit int, sigmaMin *float64) ([]RecallItem, error) {
	threshold := m.cfg.RecallSigmaMin
	if sigmaMin != nil {
		threshold = *sigmaMin
	}

	embedding, err := m.gateway.Embed(ctx, query)
	if err != nil {
		return nil, agerr.UpstreamModel(err, "embed query")
	}

	candidates, err := m.store.VectorSearch(ctx, userID, embedding, filters, threshold, limit)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	items := make([]RecallItem, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, RecallItem{
			Memory:    c.Memory,
			Cosine:    c.Similarity,
			Relevance: m.relevance(c.Memory, c.Similarity, now),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Relevance != items[j].Relevance {
			return items[i].Relevance > items[j].Relevance
		}
		if items[i].Memory.Importance != items[j].Memory.Importance {
			return items[i].Memory.Importance > items[j].Memory.Importance
		}
		return items[i].Memory.CreatedAt.After(items[j].Memory.CreatedAt)
	})

	if len(items) > 0 {
		ids := make([]string, len(items))
		for i, it := range items {
			ids[i] = it.Memory.MemoryID
		}
		if err := m.store.BatchUpdateAccess(ctx, ids); err != nil {
			return nil, err
		}
		for _, it := range items {
			m.store.AppendAccessLog(ctx, storegw.AccessLogEntry{
				MemoryID:   it.Memory.MemoryID,
				SessionID:  sessionID,
				UserID:     userID,
				Query:      query,
				Similarity: it.Cosine,
			})
		}
	}
	return items, nil
}

// relevance blends semantic similarity, recency, access frequency, and
// importance into the composite recall score.
func (m *Manager) relevance(mem *storegw.LongTermMemory, cosine float64, now time.Time) float64 {
	ageDays := now.Sub(mem.CreatedAt).Hours() / 24
	recency := math.Exp(-ageDays / m.cfg.HRecencyDays)
	freq := math.Log(1+float64(mem.AccessCount)) / math.Log(1+float64(m.cfg.AccessCap))
	return m.cfg.WeightSem*cosine + m.cfg.WeightRec*recency + m.cfg.WeightFreq*freq + m.cfg.WeightImp*mem.Importance
}

// Update re-embeds and re-validates mem's content if it changed, merges
// metadata, and bumps updated_at.
func (m *Manager) Update(ctx context.Context, userID, memoryID string, newContent *string, metadata map[string]any) (*storegw.LongTermMemory, error) {
	existing, err := m.store.GetLongTermMemory(ctx, userID, memoryID)
	if err != nil {
		return nil, err
	}

	reembed := false
	if newContent != nil && *newContent != existing.Content {
		if matches := m.validator.Check(*newContent); len(matches) > 0 {
			return nil, agerr.SecurityViolation(matches)
		}
		embedding, err := m.gateway.Embed(ctx, *newContent)
		if err != nil {
			return nil, agerr.UpstreamModel(err, "embed updated content")
		}
		existing.Content = *newContent
		existing.Embedding = embedding
		reembed = true
	}
	if metadata != nil {
		if existing.Metadata == nil {
			existing.Metadata = map[string]any{}
		}
		for k, v := range metadata {
			existing.Metadata[k] = v
		}
	}
	return m.store.UpdateLongTermMemory(ctx, existing, reembed)
}

// Forget soft- or hard-deletes memoryID.
func (m *Manager) Forget(ctx context.Context, userID, memoryID string, hard bool) error {
	if hard {
		return m.store.HardDeleteLongTermMemory(ctx, userID, memoryID)
	}
	return m.store.SoftDeleteLongTermMemory(ctx, userID, memoryID)
}

// ConfirmDeleteAllToken is the literal confirmation string forget-all-for-user
// requires.
const ConfirmDeleteAllToken = "CONFIRM_DELETE_ALL"

// ForgetAllForUser hard-deletes every row owned by userID across all tables.
// confirmToken must equal ConfirmDeleteAllToken exactly.
func (m *Manager) ForgetAllForUser(ctx context.Context, userID, confirmToken string) error {
	if confirmToken != ConfirmDeleteAllToken {
		return agerr.Validation(nil, "forget-all-for-user requires the literal confirmation token")
	}
	return m.store.PurgeAllForUser(ctx, userID)
}

// Supersede sets new.supersedes=old, soft-deletes old, and inserts an
// `updates`-tagged relationship old -> new. Both memories must belong to
// userID.
func (m *Manager) Supersede(ctx context.Context, userID, oldID, newID string) error {
	oldMem, err := m.store.GetLongTermMemory(ctx, userID, oldID)
	if err != nil {
		return err
	}
	newMem, err := m.store.GetLongTermMemory(ctx, userID, newID)
	if err != nil {
		return err
	}
	if oldMem.UserID != newMem.UserID {
		return agerr.Validation(nil, "supersede endpoints belong to different users")
	}

	newMem.Supersedes = &oldID
	if _, err := m.store.UpdateLongTermMemory(ctx, newMem, false); err != nil {
		return err
	}
	if err := m.store.SoftDeleteLongTermMemory(ctx, userID, oldID); err != nil {
		return err
	}
	_, err = m.store.InsertRelationship(ctx, &storegw.MemoryRelationship{
		RelationshipID: uuid.NewString(),
		SourceMemoryID: oldID,
		TargetMemoryID: newID,
		Tag:            storegw.RelUpdates,
		Strength:       1.0,
		CreatedBy:      userID,
	})
	return err
}

// ContradictionCandidate pairs two memories the offline sweep flagged as
// likely contradicting.
type ContradictionCandidate struct {
	Older, Newer *storegw.LongTermMemory
	Cosine       float64
	Jaccard      float64
}

// FindContradictions scans every pair of userID's live memories for high
// embedding similarity but low lexical overlap.
func (m *Manager) FindContradictions(ctx context.Context, userID string) ([]ContradictionCandidate, error) {
	mems, err := m.store.ListLongTermMemoriesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var out []ContradictionCandidate
	for i := 0; i < len(mems); i++ {
		for j := i + 1; j < len(mems); j++ {
			a, b := mems[i], mems[j]
			cos := cosineSimilarity(a.Embedding, b.Embedding)
			if cos < m.cfg.ContradictionSigmaMin {
				continue
			}
			jac := jaccard(a.Content, b.Content)
			if jac >= 0.5 {
				continue
			}
			older, newer := a, b
			if b.CreatedAt.Before(a.CreatedAt) {
				older, newer = b, a
			}
			out = append(out, ContradictionCandidate{Older: older, Newer: newer, Cosine: cos, Jaccard: jac})
		}
	}
	return out, nil
}

// ApplyDecay discounts the importance of userID's stale memories.
// rate/floor/inactiveDays default to the Manager's Config when zero.
func (m *Manager) ApplyDecay(ctx context.Context, userID string, rate, floor float64, inactiveDays int) (int, error) {
	if rate <= 0 {
		rate = m.cfg.DecayRate
	}
	if floor <= 0 {
		floor = m.cfg.DecayFloor
	}
	if inactiveDays <= 0 {
		inactiveDays = m.cfg.DecayInactiveDays
	}
	cutoff := time.Now().AddDate(0, 0, -inactiveDays)
	return m.store.ApplyDecay(ctx, userID, rate, floor, cutoff)
}

// QualityReport is a read-only aggregate over a user's long-term memories.
type QualityReport struct {
	TotalLive           int
	CountByCategory     map[string]int
	CountBySubtype      map[string]int
	MeanImportance      float64
	MeanDecayFactor     float64
	StaleCount          int // zero access in the last 30 days
	SupersededOrDeleted int
}

// QualityReport aggregates read-only statistics over userID's long-term
// memories, including soft/hard-deleted counts tracked via relationships.
func (m *Manager) QualityReport(ctx context.Context, userID string) (*QualityReport, error) {
	mems, err := m.store.ListLongTermMemoriesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	rels, err := m.store.ListRelationshipsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	report := &QualityReport{
		CountByCategory: map[string]int{},
		CountBySubtype:  map[string]int{},
	}
	staleCutoff := time.Now().AddDate(0, 0, -30)
	var importanceSum, decaySum float64
	for _, mem := range mems {
		report.TotalLive++
		report.CountByCategory[mem.Category]++
		report.CountBySubtype[taxonomy.Key(taxonomy.Category(mem.Category), taxonomy.Subtype(mem.Subtype))]++
		importanceSum += mem.Importance
		decaySum += mem.DecayFactor
		if mem.AccessCount == 0 && mem.LastAccessAt.Before(staleCutoff) {
			report.StaleCount++
		}
	}
	if report.TotalLive > 0 {
		report.MeanImportance = importanceSum / float64(report.TotalLive)
		report.MeanDecayFactor = decaySum / float64(report.TotalLive)
	}
	for _, rel := range rels {
		if rel.Tag == storegw.RelUpdates {
			report.SupersededOrDeleted++
		}
	}
	return report, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	inter := 0
	for tok := range setA {
		if setB[tok] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = true
	}
	return set
}
