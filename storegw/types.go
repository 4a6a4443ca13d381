package storegw

import "time"

// Session is the sessions table row.
type Session struct {
	SessionID      string
	UserID         string
	OrgID          string
	MaxTokens      int
	TokenTotal     int
	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      *time.Time
	Config         map[string]any
}

// ContentType is the working-memory-item content-type tag.
type ContentType string

const (
	ContentMessage         ContentType = "message"
	ContentTaskState       ContentType = "task-state"
	ContentScratchpad      ContentType = "scratchpad"
	ContentSystem          ContentType = "system"
	ContentRetrievedMemory ContentType = "retrieved-memory"
)

// WorkingMemoryItem is the working-memory-items table row.
type WorkingMemoryItem struct {
	ItemID      string
	SessionID   string
	ContentType ContentType
	Content     string
	Tokens      int
	Relevance   float64
	Pinned      bool
	Sequence    int64
	CreatedAt   time.Time
	AccessedAt  time.Time
}

// SourceType tags where a long-term memory originated.
type SourceType string

const (
	SourceUserStated SourceType = "user-stated"
	SourceInferred   SourceType = "inferred"
	SourcePromotedWM SourceType = "promoted-working-memory"
	SourceSystem     SourceType = "system"
)

// LongTermMemory is the long-term-memories table row.
type LongTermMemory struct {
	MemoryID      string
	UserID        string
	Category      string
	Subtype       string
	Content       string
	Summary       *string
	Embedding     []float32
	Entities      []string
	Metadata      map[string]any
	EventAt       *time.Time
	IsTemporal    bool
	Importance    float64
	AccessCount   int
	DecayFactor   float64
	Supersedes    *string
	SourceSession string
	SourceType    SourceType
	Confidence    float64
	CreatedAt     time.Time
	LastAccessAt  time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// IsLive reports whether the memory is neither soft nor hard-deleted.
func (m *LongTermMemory) IsLive() bool {
	return m != nil && m.DeletedAt == nil
}

// RelationshipTag labels a memory-relationship edge.
type RelationshipTag string

const (
	RelRelatedTo   RelationshipTag = "related-to"
	RelPartOf      RelationshipTag = "part-of"
	RelDependsOn   RelationshipTag = "depends-on"
	RelContradicts RelationshipTag = "contradicts"
	RelUpdates     RelationshipTag = "updates"
)

// MemoryRelationship is the memory-relationships table row.
type MemoryRelationship struct {
	RelationshipID string
	SourceMemoryID string
	TargetMemoryID string
	Tag            RelationshipTag
	Strength       float64
	Context        string
	CreatedAt      time.Time
	CreatedBy      string
}

// AccessLogEntry is the access-log table row.
type AccessLogEntry struct {
	AccessID   string
	MemoryID   string
	SessionID  string
	UserID     string
	Query      string
	Similarity float64
	Useful     *bool
	Used       *bool
	AccessedAt time.Time
}

// ToolErrorLogEntry is the append-only tool-error-log table row.
type ToolErrorLogEntry struct {
	Code      string
	Operation string
	SessionID string
	UserID    string
	Detail    string
	At        time.Time
}

// ServiceMetricEntry is the append-only service-metrics table row.
type ServiceMetricEntry struct {
	Operation string
	LatencyMS int64
	Success   bool
	Tokens    int
	At        time.Time
}

// Filters narrows a long-term vector search.
type Filters struct {
	Categories      []string
	Subtypes        []string
	Entities        []string
	TemporalFrom    *time.Time
	TemporalTo      *time.Time
	ConfidenceFloor float64
}
