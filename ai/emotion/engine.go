package emotion

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/konusmate/mate/ai/core/llm"
	"github.com/konusmate/mate/store"
)

// StateSnapshot is a labeled VA point, rounded for presentation.
type StateSnapshot struct {
	Valence float32 `json:"valence"`
	Arousal float32 `json:"arousal"`
	Label   string  `json:"label"`
}

// Delta is the judged VA shift.
type Delta struct {
	Valence float32 `json:"valence"`
	Arousal float32 `json:"arousal"`
}

// ProcessResult summarizes one emotion engine pass.
type ProcessResult struct {
	UserID        int32         `json:"user_id"`
	CharID        int32         `json:"char_id"`
	PreviousState StateSnapshot `json:"previous_state"`
	Delta         Delta         `json:"delta"`
	CurrentState  StateSnapshot `json:"current_state"`
	Reasoning     string        `json:"reasoning"`
	UpdatedAt     *time.Time    `json:"updated_at,omitempty"`
}

// State is a read-only view of a stored emotion state.
type State struct {
	UserID    int32      `json:"user_id"`
	CharID    int32      `json:"char_id"`
	Valence   float32    `json:"valence"`
	Arousal   float32    `json:"arousal"`
	Label     string     `json:"label"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Engine owns the per-(user, character) emotion state lifecycle: judge the
// conversation, apply the delta, persist.
type Engine struct {
	store *store.Store
	judge *Judge
}

func NewEngine(st *store.Store, llmService llm.Service) *Engine {
	return &Engine{store: st, judge: NewJudge(llmService)}
}

// ProcessConversation runs one full engine pass. A judge failure is absorbed
// as a zero delta so the state persists unchanged.
func (e *Engine) ProcessConversation(ctx context.Context, messages []llm.Message, userID, charID int32) (*ProcessResult, error) {
	current, err := e.store.GetCharacterEmotionState(ctx, userID, charID)
	if err != nil {
		return nil, err
	}
	var currentValence, currentArousal float32
	if current != nil {
		currentValence = current.Valence
		currentArousal = current.Arousal
	}

	var deltaV, deltaA float32
	reasoning := "分析失败，保持原状态"
	if result := e.judge.Analyze(ctx, messages, currentValence, currentArousal); result != nil {
		deltaV = result.DeltaValence
		deltaA = result.DeltaArousal
		reasoning = result.Reasoning
	}

	newValence, newArousal := Update(currentValence, currentArousal, deltaV, deltaA)

	persisted, err := e.store.UpsertCharacterEmotionState(ctx, &store.UpsertCharacterEmotionState{
		UserID:  userID,
		CharID:  charID,
		Valence: newValence,
		Arousal: newArousal,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("emotion state updated",
		"user_id", userID,
		"char_id", charID,
		"valence", newValence,
		"arousal", newArousal,
		"label", StateLabel(newValence, newArousal),
	)

	return &ProcessResult{
		UserID: userID,
		CharID: charID,
		PreviousState: StateSnapshot{
			Valence: round3(currentValence),
			Arousal: round3(currentArousal),
			Label:   StateLabel(currentValence, currentArousal),
		},
		Delta: Delta{Valence: round3(deltaV), Arousal: round3(deltaA)},
		CurrentState: StateSnapshot{
			Valence: round3(newValence),
			Arousal: round3(newArousal),
			Label:   StateLabel(newValence, newArousal),
		},
		Reasoning: reasoning,
		UpdatedAt: &persisted.UpdatedAt,
	}, nil
}

// GetState returns the stored state without updating it, nil when no state
// exists yet for the pair.
func (e *Engine) GetState(ctx context.Context, userID, charID int32) (*State, error) {
	state, err := e.store.GetCharacterEmotionState(ctx, userID, charID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}
	return &State{
		UserID:    userID,
		CharID:    charID,
		Valence:   round3(state.Valence),
		Arousal:   round3(state.Arousal),
		Label:     StateLabel(state.Valence, state.Arousal),
		UpdatedAt: &state.UpdatedAt,
		CreatedAt: &state.CreatedAt,
	}, nil
}

// ResetState forces the pair back to neutral (0, 0), creating the row if
// needed.
func (e *Engine) ResetState(ctx context.Context, userID, charID int32) (*State, error) {
	persisted, err := e.store.UpsertCharacterEmotionState(ctx, &store.UpsertCharacterEmotionState{
		UserID: userID,
		CharID: charID,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("emotion state reset", "user_id", userID, "char_id", charID)

	return &State{
		UserID:    userID,
		CharID:    charID,
		Label:     LabelNeutral,
		UpdatedAt: &persisted.UpdatedAt,
	}, nil
}

func round3(v float32) float32 {
	return float32(math.Round(float64(v)*1000) / 1000)
}
