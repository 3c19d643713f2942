package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konusmate/mate/store"
)

func TestFinalScoreDecay(t *testing.T) {
	now := time.Now()
	dayOld := now.Add(-24 * time.Hour).Unix()

	event := &store.ConversationMemory{
		MemoryCategory:     store.CategoryEvent,
		CreatedAtTimestamp: dayOld,
		AccessCount:        1,
	}
	fact := &store.ConversationMemory{
		MemoryCategory:     store.CategoryFact,
		CreatedAtTimestamp: dayOld,
		AccessCount:        1,
	}

	// A 24h-old event is halved; a fact never decays.
	assert.InDelta(t, 0.5, FinalScore(event, 1.0, now), 0.01)
	assert.InDelta(t, 1.0, FinalScore(fact, 1.0, now), 0.01)

	desire := &store.ConversationMemory{
		MemoryCategory:     store.CategoryDesire,
		CreatedAtTimestamp: dayOld,
		AccessCount:        1,
	}
	preference := &store.ConversationMemory{
		MemoryCategory:     store.CategoryPreference,
		CreatedAtTimestamp: dayOld,
		AccessCount:        1,
	}
	assert.InDelta(t, 0.5, FinalScore(desire, 1.0, now), 0.01)
	assert.InDelta(t, 1.0, FinalScore(preference, 1.0, now), 0.01)
}

func TestFinalScoreAccessBoost(t *testing.T) {
	now := time.Now()
	base := &store.ConversationMemory{
		MemoryCategory:     store.CategoryFact,
		CreatedAtTimestamp: now.Unix(),
	}

	once := *base
	once.AccessCount = 1
	ten := *base
	ten.AccessCount = 10
	hundred := *base
	hundred.AccessCount = 100

	// A single access gets no boost; log10 kicks in above it.
	assert.InDelta(t, 1.0, FinalScore(&once, 1.0, now), 1e-9)
	assert.InDelta(t, 2.0, FinalScore(&ten, 1.0, now), 1e-9)
	assert.InDelta(t, 3.0, FinalScore(&hundred, 1.0, now), 1e-9)
}

func TestFinalScoreEmotionBoost(t *testing.T) {
	now := time.Now()
	neutral := &store.ConversationMemory{
		MemoryCategory:     store.CategoryFact,
		CreatedAtTimestamp: now.Unix(),
		AccessCount:        1,
	}
	charged := *neutral
	charged.EmotionalWeight = 1.0

	assert.InDelta(t, 1.0, FinalScore(neutral, 1.0, now), 1e-9)
	assert.InDelta(t, 1.5, FinalScore(&charged, 1.0, now), 1e-9)
}

func TestFinalScoreZeroSimilarity(t *testing.T) {
	now := time.Now()
	m := &store.ConversationMemory{
		MemoryCategory:     store.CategoryFact,
		CreatedAtTimestamp: now.Unix(),
		AccessCount:        50,
		EmotionalWeight:    1.0,
	}
	assert.Zero(t, FinalScore(m, 0, now))
}

func TestFinalScoreFutureTimestampClamped(t *testing.T) {
	now := time.Now()
	m := &store.ConversationMemory{
		MemoryCategory:     store.CategoryEvent,
		CreatedAtTimestamp: now.Add(time.Hour).Unix(),
		AccessCount:        1,
	}
	assert.InDelta(t, 1.0, FinalScore(m, 1.0, now), 1e-9)
}

func TestRerankPrefersPermanentOverStaleEvent(t *testing.T) {
	now := time.Now()
	weekOld := now.Add(-7 * 24 * time.Hour).Unix()

	memories := []*store.ConversationMemory{
		{
			ID:                 1,
			MemoryCategory:     store.CategoryEvent,
			ImportanceScore:    8,
			CreatedAtTimestamp: weekOld,
			AccessCount:        1,
		},
		{
			ID:                 2,
			MemoryCategory:     store.CategoryFact,
			ImportanceScore:    8,
			CreatedAtTimestamp: weekOld,
			AccessCount:        1,
		},
	}

	ranked := Rerank(memories, 0, now)
	require.Len(t, ranked, 2)
	assert.Equal(t, int64(2), ranked[0].ID)
	assert.Equal(t, int64(1), ranked[1].ID)
}

func TestRerankLimit(t *testing.T) {
	now := time.Now()
	memories := []*store.ConversationMemory{
		{ID: 1, MemoryCategory: store.CategoryFact, ImportanceScore: 5, CreatedAtTimestamp: now.Unix(), AccessCount: 1},
		{ID: 2, MemoryCategory: store.CategoryFact, ImportanceScore: 9, CreatedAtTimestamp: now.Unix(), AccessCount: 1},
		{ID: 3, MemoryCategory: store.CategoryFact, ImportanceScore: 7, CreatedAtTimestamp: now.Unix(), AccessCount: 1},
	}

	ranked := Rerank(memories, 2, now)
	require.Len(t, ranked, 2)
	assert.Equal(t, int64(2), ranked[0].ID)
	assert.Equal(t, int64(3), ranked[1].ID)
}

func TestSortRetrievedTieBreaks(t *testing.T) {
	newer := &Retrieved{FinalScore: 0.5, Memory: &store.ConversationMemory{
		ID: 2, ImportanceScore: 5, CreatedAtTimestamp: 200,
	}}
	older := &Retrieved{FinalScore: 0.5, Memory: &store.ConversationMemory{
		ID: 1, ImportanceScore: 5, CreatedAtTimestamp: 100,
	}}
	important := &Retrieved{FinalScore: 0.5, Memory: &store.ConversationMemory{
		ID: 3, ImportanceScore: 9, CreatedAtTimestamp: 100,
	}}
	twin := &Retrieved{FinalScore: 0.5, Memory: &store.ConversationMemory{
		ID: 4, ImportanceScore: 5, CreatedAtTimestamp: 200,
	}}

	results := []*Retrieved{newer, older, important, twin}
	sortRetrieved(results)

	// Equal final scores break on importance, then recency, then id.
	assert.Equal(t, int64(3), results[0].Memory.ID)
	assert.Equal(t, int64(2), results[1].Memory.ID)
	assert.Equal(t, int64(4), results[2].Memory.ID)
	assert.Equal(t, int64(1), results[3].Memory.ID)
}
