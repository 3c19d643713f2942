package v1

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/konusmate/mate/internal/errs"
	"github.com/konusmate/mate/store"
)

type SystemInstructionService struct {
	Store *store.Store
}

type SystemInstructionResponse struct {
	ID          int32     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Content     string    `json:"content"`
	IsActive    bool      `json:"is_active"`
	IsDefault   bool      `json:"is_default"`
	SortOrder   int32     `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toSystemInstructionResponse(si *store.SystemInstruction) *SystemInstructionResponse {
	return &SystemInstructionResponse{
		ID:          si.ID,
		Name:        si.Name,
		Description: si.Description,
		Content:     si.Content,
		IsActive:    si.IsActive,
		IsDefault:   si.IsDefault,
		SortOrder:   si.SortOrder,
		CreatedAt:   si.CreatedAt,
		UpdatedAt:   si.UpdatedAt,
	}
}

type upsertSystemInstructionRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Content     *string `json:"content"`
	IsActive    *bool   `json:"is_active"`
	IsDefault   *bool   `json:"is_default"`
	SortOrder   *int32  `json:"sort_order"`
}

func (s *SystemInstructionService) List(c echo.Context) error {
	find := &store.FindSystemInstruction{}
	if raw := c.QueryParam("is_active"); raw != "" {
		isActive := raw == "true"
		find.IsActive = &isActive
	}
	list, err := s.Store.ListSystemInstructions(c.Request().Context(), find)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]*SystemInstructionResponse, 0, len(list))
	for _, si := range list {
		out = append(out, toSystemInstructionResponse(si))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *SystemInstructionService) Create(c echo.Context) error {
	var req upsertSystemInstructionRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errs.Wrap(errs.ErrValidation, err, "malformed request body"))
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return respondError(c, errs.Newf(errs.ErrValidation, "name is required"))
	}
	if req.Content == nil || strings.TrimSpace(*req.Content) == "" {
		return respondError(c, errs.Newf(errs.ErrValidation, "content is required"))
	}

	create := &store.SystemInstruction{
		Name:        *req.Name,
		Description: req.Description,
		Content:     *req.Content,
		IsActive:    true,
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

	si, err := s.Store.CreateSystemInstruction(c.Request().Context(), create)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toSystemInstructionResponse(si))
}

func (s *SystemInstructionService) Update(c echo.Context) error {
	id, err := pathID32(c)
	if err != nil {
		return respondError(c, err)
	}

	var req upsertSystemInstructionRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errs.Wrap(errs.ErrValidation, err, "malformed request body"))
	}

	si, err := s.Store.UpdateSystemInstruction(c.Request().Context(), &store.UpdateSystemInstruction{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Content:     req.Content,
		IsActive:    req.IsActive,
		IsDefault:   req.IsDefault,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		return respondError(c, err)
	}
	if si == nil {
		return respondError(c, errs.Newf(errs.ErrNotFound, "system instruction %d not found", id))
	}
	return c.JSON(http.StatusOK, toSystemInstructionResponse(si))
}

func (s *SystemInstructionService) Delete(c echo.Context) error {
	id, err := pathID32(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.Store.DeleteSystemInstruction(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func pathID32(c echo.Context) (int32, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil || id <= 0 {
		return 0, errs.Newf(errs.ErrValidation, "invalid id %q", c.Param("id"))
	}
	return int32(id), nil
}
