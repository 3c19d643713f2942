package memory

import (
	"math"
	"sort"
	"time"

	"github.com/konusmate/mate/store"
)

// decayHalfLifeHours halves a decaying memory's weight every 24 idle hours.
const decayHalfLifeHours = 24.0

// FinalScore combines similarity with time decay, access boost, and
// emotional boost:
//
//	final = similarity * decay * (1 + log10(access_count)) * (1 + 0.5*emotional_weight)
//
// where decay = 1 / (1 + age_hours/24) for event/desire and 1.0 for the
// permanent categories.
func FinalScore(memory *store.ConversationMemory, similarity float32, now time.Time) float64 {
	createdAt := memory.CreatedAtTimestamp
	if createdAt <= 0 {
		createdAt = now.Unix()
	}
	ageHours := float64(now.Unix()-createdAt) / 3600
	if ageHours < 0 {
		ageHours = 0
	}

	decay := 1.0
	if !memory.MemoryCategory.IsPermanent() {
		decay = 1.0 / (1.0 + ageHours/decayHalfLifeHours)
	}

	boost := 1.0
	if memory.AccessCount > 1 {
		boost = 1.0 + math.Log10(float64(memory.AccessCount))
	}

	emotion := 1.0 + float64(memory.EmotionalWeight)*0.5

	return float64(similarity) * decay * boost * emotion
}

// Rerank orders memories by FinalScore, using each memory's normalized
// importance as the similarity stand-in. Used where no query vector exists
// (the list API's relevance ordering).
func Rerank(memories []*store.ConversationMemory, limit int, now time.Time) []*store.ConversationMemory {
	scored := make([]*Retrieved, 0, len(memories))
	for _, memory := range memories {
		similarity := memory.SemanticImportance()
		scored = append(scored, &Retrieved{
			Memory:     memory,
			Similarity: similarity,
			FinalScore: FinalScore(memory, similarity, now),
		})
	}
	sortRetrieved(scored)

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]*store.ConversationMemory, 0, len(scored))
	for _, result := range scored {
		out = append(out, result.Memory)
	}
	return out
}

// sortRetrieved orders by final score descending; ties break by importance
// descending, then creation time descending, then id ascending so the order
// is fully deterministic.
func sortRetrieved(results []*Retrieved) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		if a.Memory.ImportanceScore != b.Memory.ImportanceScore {
			return a.Memory.ImportanceScore > b.Memory.ImportanceScore
		}
		if a.Memory.CreatedAtTimestamp != b.Memory.CreatedAtTimestamp {
			return a.Memory.CreatedAtTimestamp > b.Memory.CreatedAtTimestamp
		}
		return a.Memory.ID < b.Memory.ID
	})
}
