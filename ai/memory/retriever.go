package memory

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/konusmate/mate/ai/core/embedding"
	"github.com/konusmate/mate/store"
)

// Hybrid score weights: vector similarity, entity match, importance.
const (
	vectorWeight     = 0.5
	entityWeight     = 0.3
	importanceWeight = 0.2
)

// Oversampling: rerank this many importance-ranked candidates.
const candidatesLimit = 50

// DefaultRetrieveLimit is the top-K returned to the prompt composer.
const DefaultRetrieveLimit = 5

// Relative time expressions mapped to a lookback horizon in days.
var timeRangeKeywords = []struct {
	keyword string
	days    int
}{
	{"今天", 0},
	{"昨天", 1},
	{"前天", 2},
	{"本周", 7},
	{"上周", 14},
	{"本月", 30},
	{"上月", 60},
	{"今年", 365},
	{"去年", 730},
	{"前年", 1095},
}

var queryStopwords = map[string]struct{}{
	"的": {}, "了": {}, "是": {}, "我": {}, "你": {}, "他": {}, "她": {}, "它": {},
	"什么": {}, "哪": {}, "怎样": {}, "如何": {}, "吗": {}, "呢": {}, "啊": {},
}

// QueryInfo is the analyzed form of a retrieval query.
type QueryInfo struct {
	Keywords []string
	// TimeRangeDays is nil when the query names no relative time expression.
	TimeRangeDays *int
	RawQuery      string
}

// AnalyzeQuery lowercases the query, detects the first relative time
// expression, and extracts non-stopword keywords of length > 1.
func AnalyzeQuery(query string) QueryInfo {
	lowered := strings.ToLower(query)

	info := QueryInfo{RawQuery: lowered}
	for _, tr := range timeRangeKeywords {
		if strings.Contains(query, tr.keyword) {
			days := tr.days
			info.TimeRangeDays = &days
			break
		}
	}

	for _, word := range splitWords(lowered) {
		if _, stop := queryStopwords[word]; stop {
			continue
		}
		if len([]rune(word)) > 1 {
			info.Keywords = append(info.Keywords, word)
		}
	}
	return info
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

// EntityMatchScore scores how well a memory's extracted entities match the
// query. Locations weigh most, then the date window, people, events. The
// result is clamped to 1.0.
func EntityMatchScore(memory *store.ConversationMemory, info QueryInfo, now time.Time) float32 {
	if memory.Entities.IsEmpty() {
		return 0
	}
	entities := memory.Entities

	var score float32
	for _, location := range entities.Locations {
		lowered := strings.ToLower(location)
		if substringMatch(lowered, info.RawQuery) {
			score += 0.4
		} else if keywordMatch(lowered, info.Keywords) {
			score += 0.2
		}
	}

	if info.TimeRangeDays != nil && len(entities.Dates) > 0 {
		// 30 days of tolerance on top of the named horizon.
		cutoff := now.AddDate(0, 0, -(*info.TimeRangeDays + 30))
		for _, dateStr := range entities.Dates {
			date, err := time.Parse("2006-01-02", dateStr)
			if err != nil {
				continue
			}
			if !date.Before(cutoff) {
				score += 0.3
				break
			}
		}
	}

	for _, person := range entities.People {
		lowered := strings.ToLower(person)
		if substringMatch(lowered, info.RawQuery) {
			score += 0.2
		} else if keywordMatch(lowered, info.Keywords) {
			score += 0.1
		}
	}

	for _, event := range entities.Events {
		lowered := strings.ToLower(event)
		if substringMatch(lowered, info.RawQuery) {
			score += 0.1
		} else if keywordMatch(lowered, info.Keywords) {
			score += 0.05
		}
	}

	if score > 1.0 {
		return 1.0
	}
	return score
}

func substringMatch(entity, query string) bool {
	return entity != "" && query != "" &&
		(strings.Contains(query, entity) || strings.Contains(entity, query))
}

func keywordMatch(entity string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(entity, keyword) || strings.Contains(keyword, entity) {
			return true
		}
	}
	return false
}

// Retrieved is one scored retrieval result.
type Retrieved struct {
	Memory      *store.ConversationMemory
	Similarity  float32 // hybrid score fed into the final ranking
	FinalScore  float64
	VectorScore float32
	EntityScore float32
}

// Retriever performs hybrid retrieval over a user's memories: an
// importance-ranked candidate set is scored by vector similarity, entity
// match, and importance, then reranked by decay, access, and emotion.
type Retriever struct {
	store    *store.Store
	embedder embedding.Provider
}

func NewRetriever(st *store.Store, embedder embedding.Provider) *Retriever {
	return &Retriever{store: st, embedder: embedder}
}

// Retrieve returns the top-limit memories relevant to the query, most
// relevant first. Results are deterministic for a fixed store state and
// clock.
func (r *Retriever) Retrieve(ctx context.Context, userID, systemInstructionID int32, query string, limit int) ([]*Retrieved, error) {
	if limit <= 0 {
		limit = DefaultRetrieveLimit
	}

	candidates, err := r.store.MemoryCandidates(ctx, userID, systemInstructionID, candidatesLimit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	info := AnalyzeQuery(query)
	slog.Debug("retriever: query analyzed",
		"keywords", info.Keywords,
		"has_time_range", info.TimeRangeDays != nil,
	)

	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		slog.Warn("retriever: query embedding failed, using lexical similarity", "error", err)
		queryVector = nil
	}

	now := time.Now()
	scored := make([]*Retrieved, 0, len(candidates))
	for _, candidate := range candidates {
		var vectorScore float32
		if queryVector != nil && candidate.Embedding != nil {
			vectorScore = embedding.Cosine(queryVector, candidate.Embedding)
		} else {
			vectorScore = embedding.LexicalSimilarity(query, candidate.Summary)
		}

		entityScore := EntityMatchScore(candidate, info, now)
		combined := vectorScore*vectorWeight + entityScore*entityWeight + candidate.SemanticImportance()*importanceWeight

		scored = append(scored, &Retrieved{
			Memory:      candidate,
			Similarity:  combined,
			FinalScore:  FinalScore(candidate, combined, now),
			VectorScore: vectorScore,
			EntityScore: entityScore,
		})
	}

	sortRetrieved(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}

	slog.Info("retriever: hybrid retrieval complete",
		"user_id", userID,
		"candidates", len(candidates),
		"returned", len(scored),
	)
	return scored, nil
}

// UsedIDs lists the memory ids in a retrieval result, for access bumping.
func UsedIDs(results []*Retrieved) []int64 {
	ids := make([]int64, 0, len(results))
	for _, result := range results {
		ids = append(ids, result.Memory.ID)
	}
	return ids
}
