package emotion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konusmate/mate/ai/core/llm"
	"github.com/konusmate/mate/internal/profile"
	"github.com/konusmate/mate/store"
)

// fakeDriver keeps emotion states in memory; the embedded interface panics on
// anything else.
type fakeDriver struct {
	store.Driver

	states map[[2]int32]*store.CharacterEmotionState
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{states: map[[2]int32]*store.CharacterEmotionState{}}
}

func (d *fakeDriver) GetCharacterEmotionState(_ context.Context, userID, charID int32) (*store.CharacterEmotionState, error) {
	return d.states[[2]int32{userID, charID}], nil
}

func (d *fakeDriver) UpsertCharacterEmotionState(_ context.Context, upsert *store.UpsertCharacterEmotionState) (*store.CharacterEmotionState, error) {
	key := [2]int32{upsert.UserID, upsert.CharID}
	state, ok := d.states[key]
	if !ok {
		state = &store.CharacterEmotionState{
			ID:        int32(len(d.states) + 1),
			UserID:    upsert.UserID,
			CharID:    upsert.CharID,
			CreatedAt: time.Now(),
		}
		d.states[key] = state
	}
	state.Valence = upsert.Valence
	state.Arousal = upsert.Arousal
	state.UpdatedAt = time.Now()
	return state, nil
}

func newEngine(driver *fakeDriver, mock llm.Service) *Engine {
	return NewEngine(store.New(driver, &profile.Profile{}), mock)
}

func TestProcessConversationFirstPass(t *testing.T) {
	driver := newFakeDriver()
	mock := &scriptedLLM{replies: []string{
		`{"delta_valence": 0.4, "delta_arousal": 0.3, "reasoning": "用户很开心"}`,
	}}
	engine := newEngine(driver, mock)

	result, err := engine.ProcessConversation(context.Background(),
		[]llm.Message{llm.UserMessage("今天太棒了！")}, 1, 1)
	require.NoError(t, err)

	assert.Equal(t, StateSnapshot{Valence: 0, Arousal: 0, Label: LabelNeutral}, result.PreviousState)
	assert.InDelta(t, 0.4, result.CurrentState.Valence, 1e-6)
	assert.InDelta(t, 0.3, result.CurrentState.Arousal, 1e-6)
	assert.Equal(t, LabelJoy, result.CurrentState.Label)
	assert.Equal(t, "用户很开心", result.Reasoning)

	stored := driver.states[[2]int32{1, 1}]
	require.NotNil(t, stored)
	assert.InDelta(t, 0.4, stored.Valence, 1e-6)
}

func TestProcessConversationAccumulates(t *testing.T) {
	driver := newFakeDriver()
	driver.states[[2]int32{1, 1}] = &store.CharacterEmotionState{
		UserID: 1, CharID: 1, Valence: 0.5, Arousal: 0.1,
	}
	mock := &scriptedLLM{replies: []string{
		`{"delta_valence": 0.8, "delta_arousal": 0, "reasoning": "持续正向"}`,
	}}
	engine := newEngine(driver, mock)

	result, err := engine.ProcessConversation(context.Background(),
		[]llm.Message{llm.UserMessage("继续聊")}, 1, 1)
	require.NoError(t, err)

	// 0.5 + 0.8 saturates at the valence ceiling.
	assert.InDelta(t, 1.0, result.CurrentState.Valence, 1e-6)
	assert.InDelta(t, 0.5, result.PreviousState.Valence, 1e-6)
}

func TestProcessConversationJudgeFailureKeepsState(t *testing.T) {
	driver := newFakeDriver()
	driver.states[[2]int32{1, 2}] = &store.CharacterEmotionState{
		UserID: 1, CharID: 2, Valence: -0.4, Arousal: 0.35,
	}
	mock := &scriptedLLM{replies: []string{"bad", "bad", "bad"}}
	engine := newEngine(driver, mock)

	result, err := engine.ProcessConversation(context.Background(),
		[]llm.Message{llm.UserMessage("……")}, 1, 2)
	require.NoError(t, err)

	assert.Equal(t, "分析失败，保持原状态", result.Reasoning)
	assert.Equal(t, result.PreviousState.Valence, result.CurrentState.Valence)
	assert.Equal(t, result.PreviousState.Arousal, result.CurrentState.Arousal)
	assert.Zero(t, result.Delta.Valence)
}

func TestGetStateMissing(t *testing.T) {
	engine := newEngine(newFakeDriver(), &scriptedLLM{})

	state, err := engine.GetState(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestResetState(t *testing.T) {
	driver := newFakeDriver()
	driver.states[[2]int32{1, 1}] = &store.CharacterEmotionState{
		UserID: 1, CharID: 1, Valence: 0.9, Arousal: -0.8,
	}
	engine := newEngine(driver, &scriptedLLM{})

	state, err := engine.ResetState(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, LabelNeutral, state.Label)
	assert.Zero(t, driver.states[[2]int32{1, 1}].Valence)
	assert.Zero(t, driver.states[[2]int32{1, 1}].Arousal)
}
