package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/konusmate/mate/internal/errs"
	"github.com/konusmate/mate/store"
)

// PromptService manages per-user custom prompts layered on top of system
// instructions.
type PromptService struct {
	Store *store.Store
}

type PromptResponse struct {
	ID                  int32     `json:"id"`
	SystemInstructionID int32     `json:"system_instruction_id"`
	Name                string    `json:"name"`
	Description         *string   `json:"description,omitempty"`
	Content             string    `json:"content"`
	IsActive            bool      `json:"is_active"`
	IsDefault           bool      `json:"is_default"`
	SortOrder           int32     `json:"sort_order"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func toPromptResponse(p *store.UserCustomPrompt) *PromptResponse {
	return &PromptResponse{
		ID:                  p.ID,
		SystemInstructionID: p.SystemInstructionID,
		Name:                p.Name,
		Description:         p.Description,
		Content:             p.Content,
		IsActive:            p.IsActive,
		IsDefault:           p.IsDefault,
		SortOrder:           p.SortOrder,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

type upsertPromptRequest struct {
	SystemInstructionID *int32  `json:"system_instruction_id"`
	Name                *string `json:"name"`
	Description         *string `json:"description"`
	Content             *string `json:"content"`
	IsActive            *bool   `json:"is_active"`
	IsDefault           *bool   `json:"is_default"`
	SortOrder           *int32  `json:"sort_order"`
}

func (s *PromptService) List(c echo.Context) error {
	user := currentUser(c)
	find := &store.FindUserCustomPrompt{UserID: &user.ID}
	if sid, err := queryID32(c, "system_instruction_id"); err != nil {
		return respondError(c, err)
	} else if sid != nil {
		find.SystemInstructionID = sid
	}

	list, err := s.Store.ListUserCustomPrompts(c.Request().Context(), find)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]*PromptResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPromptResponse(p))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *PromptService) Create(c echo.Context) error {
	user := currentUser(c)

	var req upsertPromptRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errs.Wrap(errs.ErrValidation, err, "malformed request body"))
	}
	if req.SystemInstructionID == nil || *req.SystemInstructionID <= 0 {
		return respondError(c, errs.Newf(errs.ErrValidation, "system_instruction_id is required"))
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return respondError(c, errs.Newf(errs.ErrValidation, "name is required"))
	}
	if req.Content == nil || strings.TrimSpace(*req.Content) == "" {
		return respondError(c, errs.Newf(errs.ErrValidation, "content is required"))
	}

	create := &store.UserCustomPrompt{
		UserID:              user.ID,
		SystemInstructionID: *req.SystemInstructionID,
		Name:                *req.Name,
		Description:         req.Description,
		Content:             *req.Content,
		IsActive:            true,
	}
	if req.IsActive != nil {
		create.IsActive = *req.IsActive
	}
	if req.IsDefault != nil {
		create.IsDefault = *req.IsDefault
	}
	if req.SortOrder != nil {
		create.SortOrder = *req.SortOrder
	}

	p, err := s.Store.CreateUserCustomPrompt(c.Request().Context(), create)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toPromptResponse(p))
}

func (s *PromptService) Update(c echo.Context) error {
	user := currentUser(c)
	id, err := pathID32(c)
	if err != nil {
		return respondError(c, err)
	}

	var req upsertPromptRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errs.Wrap(errs.ErrValidation, err, "malformed request body"))
	}

	p, err := s.Store.UpdateUserCustomPrompt(c.Request().Context(), &store.UpdateUserCustomPrompt{
		ID:        id,
		UserID:    user.ID,
		Name:      req.Name,
		Content:   req.Content,
		IsActive:  req.IsActive,
		IsDefault: req.IsDefault,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toPromptResponse(p))
}

func (s *PromptService) Delete(c echo.Context) error {
	user := currentUser(c)
	id, err := pathID32(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.Store.DeleteUserCustomPrompt(c.Request().Context(), id, user.ID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
