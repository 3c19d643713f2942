package store

import "time"

// MemoryType distinguishes how a memory came to be.
type MemoryType string

const (
	// MemoryTypeActive is a memory the model judged worth keeping.
	MemoryTypeActive MemoryType = "active"
	// MemoryTypePassive is a memory the user explicitly asked to keep.
	MemoryTypePassive MemoryType = "passive"
)

// MemoryCategory is the decay class of a memory.
type MemoryCategory string

const (
	// CategoryFact and CategoryPreference are permanent: no time decay, immune
	// to the short-term GC rule.
	CategoryFact       MemoryCategory = "fact"
	CategoryPreference MemoryCategory = "preference"
	// CategoryEvent and CategoryDesire decay and are swept by the daily GC.
	CategoryEvent  MemoryCategory = "event"
	CategoryDesire MemoryCategory = "desire"
)

// IsPermanent reports whether the category is exempt from time decay.
func (c MemoryCategory) IsPermanent() bool {
	return c == CategoryFact || c == CategoryPreference
}

// Entities holds the structured entities the cleaner extracted from dialogue.
// Dates are ISO (YYYY-MM-DD) with relative expressions already resolved.
type Entities struct {
	Dates     []string `json:"dates"`
	Locations []string `json:"locations"`
	People    []string `json:"people"`
	Events    []string `json:"events"`
}

// IsEmpty reports whether no entity of any kind was extracted.
func (e *Entities) IsEmpty() bool {
	return e == nil || (len(e.Dates) == 0 && len(e.Locations) == 0 && len(e.People) == 0 && len(e.Events) == 0)
}

// ConversationMemory is a single persisted distillation of a stretch of
// dialogue, scoped to (user, system instruction).
type ConversationMemory struct {
	ID                  int64
	UserID              int32
	SystemInstructionID int32

	MemoryType     MemoryType
	MemoryCategory MemoryCategory

	OriginalContent *string
	Summary         string
	KeyPoints       []string
	Entities        *Entities

	// Embedding of the summary; nil when the embedding provider is in
	// fallback mode (retrieval then uses lexical similarity).
	Embedding []float32

	ConversationRound int32
	ImportanceScore   int32   // 1-10, assigned by the cleaner LLM
	EmotionalWeight   float32 // 0.1-1.0, assigned by the emotion scorer

	// Access statistics feeding the reranker boost and the GC rules.
	CreatedAtTimestamp int64
	LastAccessed       int64
	AccessCount        int32

	IsDeleted bool
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SemanticImportance is the importance score normalized to (0, 1].
// The reranker uses it as the similarity fallback when no embedding exists.
func (m *ConversationMemory) SemanticImportance() float32 {
	if m.ImportanceScore <= 0 {
		return 0.5
	}
	return float32(m.ImportanceScore) / 10
}

// MemoryOrder selects the sort applied by ListConversationMemories.
type MemoryOrder int

const (
	// OrderByImportance sorts by (importance_score desc, created_at desc).
	// Used by the list API and candidate oversampling.
	OrderByImportance MemoryOrder = iota
	// OrderByRecency sorts by created_at desc. Used for the recent-memories block.
	OrderByRecency
)

// FindConversationMemory specifies the conditions for finding memories.
type FindConversationMemory struct {
	ID                  *int64
	UserID              *int32
	SystemInstructionID *int32
	IncludeDeleted      bool
	Order               MemoryOrder
	Limit               int
}
