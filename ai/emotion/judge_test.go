package emotion

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konusmate/mate/ai/core/llm"
)

// scriptedLLM replays canned replies in order; an empty script returns errors.
type scriptedLLM struct {
	replies  []string
	err      error
	requests [][]llm.Message
}

func (s *scriptedLLM) Complete(_ context.Context, messages []llm.Message, _ *llm.CompleteOptions) (string, *llm.Usage, error) {
	s.requests = append(s.requests, messages)
	if len(s.replies) == 0 {
		if s.err != nil {
			return "", nil, s.err
		}
		return "", nil, errors.New("script exhausted")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, &llm.Usage{TotalTokens: 10}, nil
}

func TestJudgeAnalyzeSuccess(t *testing.T) {
	mock := &scriptedLLM{replies: []string{`{"delta_valence": 0.2, "delta_arousal": 0.1, "reasoning": "用户表达了感谢"}`}}
	judge := NewJudge(mock)

	result := judge.Analyze(context.Background(), []llm.Message{llm.UserMessage("谢谢你！")}, 0, 0)
	require.NotNil(t, result)
	assert.InDelta(t, 0.2, result.DeltaValence, 1e-6)
	assert.InDelta(t, 0.1, result.DeltaArousal, 1e-6)
	assert.Equal(t, "用户表达了感谢", result.Reasoning)
}

func TestJudgeAnalyzeRetriesThenNil(t *testing.T) {
	mock := &scriptedLLM{replies: []string{"not json", "still not json", "nope"}}
	judge := NewJudge(mock)

	result := judge.Analyze(context.Background(), []llm.Message{llm.UserMessage("嗯")}, 0, 0)
	assert.Nil(t, result)
	assert.Len(t, mock.requests, 3)
}

func TestJudgeAnalyzeRecoversOnSecondAttempt(t *testing.T) {
	mock := &scriptedLLM{replies: []string{"garbage", `{"delta_valence": -0.3, "delta_arousal": 0.2}`}}
	judge := NewJudge(mock)

	result := judge.Analyze(context.Background(), []llm.Message{llm.UserMessage("你怎么回事")}, 0.1, 0.1)
	require.NotNil(t, result)
	assert.InDelta(t, -0.3, result.DeltaValence, 1e-6)
	assert.Len(t, mock.requests, 2)
}

func TestJudgeTakesOnlyRecentTurns(t *testing.T) {
	mock := &scriptedLLM{replies: []string{`{"delta_valence": 0, "delta_arousal": 0}`}}
	judge := NewJudge(mock)

	messages := make([]llm.Message, 0, 10)
	for i := 0; i < 10; i++ {
		messages = append(messages, llm.UserMessage("message"))
	}
	judge.Analyze(context.Background(), messages, 0, 0)

	require.Len(t, mock.requests, 1)
	// The request carries exactly one user prompt with the formatted history.
	require.Len(t, mock.requests[0], 1)
	prompt := mock.requests[0][0].Content
	assert.Contains(t, prompt, "对话历史")
	assert.Equal(t, 6, strings.Count(prompt, "user: message"))
}
