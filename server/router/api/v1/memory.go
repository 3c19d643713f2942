package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/konusmate/mate/ai/emotion"
	"github.com/konusmate/mate/internal/errs"
	"github.com/konusmate/mate/store"
)

type MemoryService struct {
	Store         *store.Store
	EmotionEngine *emotion.Engine
}

type MemoryResponse struct {
	ID                  int64                `json:"id"`
	SystemInstructionID int32                `json:"system_instruction_id"`
	MemoryType          store.MemoryType     `json:"memory_type"`
	MemoryCategory      store.MemoryCategory `json:"memory_category"`
	Summary             string               `json:"summary"`
	KeyPoints           []string             `json:"key_points"`
	Entities            *store.Entities      `json:"entities,omitempty"`
	ConversationRound   int32                `json:"conversation_round"`
	ImportanceScore     int32                `json:"importance_score"`
	EmotionalWeight     float32              `json:"emotional_weight"`
	AccessCount         int32                `json:"access_count"`
	LastAccessed        int64                `json:"last_accessed"`
	CreatedAt           time.Time            `json:"created_at"`
}

func toMemoryResponse(m *store.ConversationMemory) *MemoryResponse {
	return &MemoryResponse{
		ID:                  m.ID,
		SystemInstructionID: m.SystemInstructionID,
		MemoryType:          m.MemoryType,
		MemoryCategory:      m.MemoryCategory,
		Summary:             m.Summary,
		KeyPoints:           m.KeyPoints,
		Entities:            m.Entities,
		ConversationRound:   m.ConversationRound,
		ImportanceScore:     m.ImportanceScore,
		EmotionalWeight:     m.EmotionalWeight,
		AccessCount:         m.AccessCount,
		LastAccessed:        m.LastAccessed,
		CreatedAt:           m.CreatedAt,
	}
}

// List returns the user's non-deleted memories ordered by importance then
// recency, optionally scoped to one system instruction.
func (s *MemoryService) List(c echo.Context) error {
	user := currentUser(c)
	find := &store.FindConversationMemory{
		UserID: &user.ID,
		Order:  store.OrderByImportance,
	}
	if sid, err := queryID32(c, "system_instruction_id"); err != nil {
		return respondError(c, err)
	} else if sid != nil {
		find.SystemInstructionID = sid
	}

	list, err := s.Store.ListConversationMemories(c.Request().Context(), find)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]*MemoryResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMemoryResponse(m))
	}
	return c.JSON(http.StatusOK, out)
}

// Delete soft-deletes a single memory owned by the current user.
func (s *MemoryService) Delete(c echo.Context) error {
	user := currentUser(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return respondError(c, errs.Newf(errs.ErrValidation, "invalid memory id %q", c.Param("id")))
	}
	if err := s.Store.SoftDeleteConversationMemory(c.Request().Context(), id, user.ID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ClearOld bulk soft-deletes memories older than the requested horizon,
// optionally scoped to one system instruction. The months parameter must be
// between 1 and 12 and defaults to 3 when absent; a month counts as 30 days.
func (s *MemoryService) ClearOld(c echo.Context) error {
	user := currentUser(c)

	months := 3
	if raw := c.QueryParam("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return respondError(c, errs.Newf(errs.ErrValidation, "invalid months %q", raw))
		}
		months = parsed
	}
	if months < 1 || months > 12 {
		return respondError(c, errs.Newf(errs.ErrValidation, "months must be between 1 and 12"))
	}

	sid, err := queryID32(c, "system_instruction_id")
	if err != nil {
		return respondError(c, err)
	}

	cutoff := time.Now().AddDate(0, 0, -30*months)
	count, err := s.Store.SoftDeleteMemoriesBefore(c.Request().Context(), user.ID, sid, cutoff)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"deleted_count": count,
		"months":        months,
	})
}

// GetEmotionState returns the stored VA state for (user, system instruction)
// without updating it.
func (s *MemoryService) GetEmotionState(c echo.Context) error {
	user := currentUser(c)
	sid, err := queryID32(c, "system_instruction_id")
	if err != nil {
		return respondError(c, err)
	}
	charID := int32(1)
	if sid != nil {
		charID = *sid
	}

	state, err := s.EmotionEngine.GetState(c.Request().Context(), user.ID, charID)
	if err != nil {
		return respondError(c, err)
	}
	if state == nil {
		return respondError(c, errs.Newf(errs.ErrNotFound, "no emotion state for system instruction %d", charID))
	}
	return c.JSON(http.StatusOK, state)
}

// ResetEmotionState forces the VA state back to neutral.
func (s *MemoryService) ResetEmotionState(c echo.Context) error {
	user := currentUser(c)
	sid, err := queryID32(c, "system_instruction_id")
	if err != nil {
		return respondError(c, err)
	}
	charID := int32(1)
	if sid != nil {
		charID = *sid
	}

	state, err := s.EmotionEngine.ResetState(c.Request().Context(), user.ID, charID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, state)
}

// queryID32 parses an optional positive int32 query parameter, nil when absent.
func queryID32(c echo.Context, name string) (*int32, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return nil, errs.Newf(errs.ErrValidation, "invalid %s %q", name, raw)
	}
	id32 := int32(id)
	return &id32, nil
}
