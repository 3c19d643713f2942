package memory

import (
	"context"

	"github.com/pkg/errors"

	"github.com/konusmate/mate/ai/core/llm"
	"github.com/konusmate/mate/internal/profile"
	"github.com/konusmate/mate/store"
)

// fakeDriver implements the store methods the memory engine touches; the
// embedded interface panics on anything else.
type fakeDriver struct {
	store.Driver

	memories []*store.ConversationMemory
	nextID   int64
}

func (d *fakeDriver) CreateConversationMemory(_ context.Context, create *store.ConversationMemory) (*store.ConversationMemory, error) {
	d.nextID++
	create.ID = d.nextID
	d.memories = append(d.memories, create)
	return create, nil
}

func (d *fakeDriver) ListConversationMemories(_ context.Context, find *store.FindConversationMemory) ([]*store.ConversationMemory, error) {
	list := []*store.ConversationMemory{}
	for _, m := range d.memories {
		if m.IsDeleted && !find.IncludeDeleted {
			continue
		}
		if find.UserID != nil && m.UserID != *find.UserID {
			continue
		}
		if find.SystemInstructionID != nil && m.SystemInstructionID != *find.SystemInstructionID {
			continue
		}
		list = append(list, m)
	}
	if find.Limit > 0 && len(list) > find.Limit {
		list = list[:find.Limit]
	}
	return list, nil
}

func newFakeStore(driver *fakeDriver) *store.Store {
	return store.New(driver, &profile.Profile{})
}

// scriptedLLM replays canned replies in order.
type scriptedLLM struct {
	replies  []string
	requests []string
}

func (s *scriptedLLM) Complete(_ context.Context, messages []llm.Message, _ *llm.CompleteOptions) (string, *llm.Usage, error) {
	if len(messages) > 0 {
		s.requests = append(s.requests, messages[len(messages)-1].Content)
	}
	if len(s.replies) == 0 {
		return "", nil, errors.New("script exhausted")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, &llm.Usage{TotalTokens: 10}, nil
}

// staticEmbedder returns a fixed vector, or nil to force the lexical
// fallback.
type staticEmbedder struct {
	vector []float32
}

func (e *staticEmbedder) Embed(context.Context, string) ([]float32, error) {
	return e.vector, nil
}

func (e *staticEmbedder) InFallback() bool {
	return e.vector == nil
}
