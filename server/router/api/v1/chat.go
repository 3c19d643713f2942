package v1

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"

	"github.com/konusmate/mate/ai/core/llm"
	"github.com/konusmate/mate/ai/emotion"
	"github.com/konusmate/mate/ai/memory"
	"github.com/konusmate/mate/ai/metrics"
	"github.com/konusmate/mate/internal/errs"
	"github.com/konusmate/mate/internal/profile"
	"github.com/konusmate/mate/store"
)

// backgroundTaskTimeout bounds the detached cleaning pass; it covers up to
// three LLM calls plus an embedding call.
const backgroundTaskTimeout = 5 * time.Minute

// recentMemoriesCount is how many newest memories go into the prompt verbatim.
const recentMemoriesCount = 3

type ChatService struct {
	Store         *store.Store
	Profile       *profile.Profile
	LLMService    llm.Service
	Retriever     *memory.Retriever
	Cleaner       *memory.Cleaner
	EmotionEngine *emotion.Engine
	Metrics       *metrics.Exporter

	cleanerSemaphore *semaphore.Weighted
}

type ChatRequest struct {
	Messages            []llm.Message `json:"messages"`
	SystemInstruction   string        `json:"system_instruction"`
	SystemInstructionID *int32        `json:"system_instruction_id"`
	Temperature         *float32      `json:"temperature"`
	MaxTokens           *int          `json:"max_tokens"`
	// Accepted for API compatibility; streaming is not implemented.
	Stream bool `json:"stream"`
}

type ChatResponse struct {
	Message string     `json:"message"`
	Usage   *llm.Usage `json:"usage,omitempty"`
}

// Chat is the per-turn orchestrator: resolve the persona, assemble memory
// context, call the LLM, and hand the transcript to the background memory
// pipeline. Memory reads happen before the LLM call; access bumps after it.
func (s *ChatService) Chat(c echo.Context) error {
	ctx := c.Request().Context()
	user := currentUser(c)

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errs.Wrap(errs.ErrValidation, err, "malformed request body"))
	}
	if err := validateChatRequest(&req); err != nil {
		return respondError(c, err)
	}

	totalMessages := len(req.Messages)
	batchSize := s.Profile.BatchSize
	shouldClean := totalMessages >= batchSize
	conversationRound := int32(totalMessages - totalMessages%batchSize)

	sid, instructionText, err := s.resolveSystemInstruction(ctx, &req)
	if err != nil {
		return respondError(c, err)
	}

	recent, err := s.Store.RecentConversationMemories(ctx, user.ID, sid, recentMemoriesCount)
	if err != nil {
		return respondError(c, err)
	}

	var retrieved []*memory.Retrieved
	if query := lastUserMessage(req.Messages); query != "" {
		retrieved, err = s.Retriever.Retrieve(ctx, user.ID, sid, query, memory.DefaultRetrieveLimit)
		if err != nil {
			// Retrieval is best-effort: the chat proceeds without memories.
			slog.Warn("chat: retrieval failed", "user_id", user.ID, "error", err)
			retrieved = nil
		}
	}

	customPrompt, err := s.Store.GetActiveUserCustomPrompt(ctx, user.ID, sid)
	if err != nil {
		return respondError(c, err)
	}
	var customPromptText string
	if customPrompt != nil {
		customPromptText = customPrompt.Content
	}

	secondaryPrompt := composeSecondaryPrompt(customPromptText, recent, retrieved)

	// The memory pipeline runs detached with its own context; its failure can
	// never fail this request.
	s.spawnBackgroundPipeline(user.ID, sid, req.Messages, shouldClean, conversationRound)

	llmStarted := time.Now()
	reply, usage, err := s.LLMService.Complete(ctx, req.Messages, &llm.CompleteOptions{
		SystemInstruction: instructionText,
		Prompt:            secondaryPrompt,
		Temperature:       req.Temperature,
		MaxTokens:         req.MaxTokens,
	})
	if s.Metrics != nil {
		s.Metrics.RecordChatRequest(time.Since(llmStarted), err == nil)
		if usage != nil {
			s.Metrics.RecordLLMTokens(usage.PromptTokens, usage.CompletionTokens)
		}
	}
	if err != nil {
		return respondError(c, err)
	}

	if ids := memory.UsedIDs(retrieved); len(ids) > 0 {
		if _, err := s.Store.BumpMemoryAccess(ctx, ids); err != nil {
			slog.Warn("chat: access bump failed", "user_id", user.ID, "error", err)
		}
	}

	return c.JSON(http.StatusOK, &ChatResponse{Message: reply, Usage: usage})
}

func validateChatRequest(req *ChatRequest) error {
	if len(req.Messages) == 0 {
		return errs.Newf(errs.ErrValidation, "messages must not be empty")
	}
	for i, message := range req.Messages {
		switch message.Role {
		case "user", "assistant", "system":
		default:
			return errs.Newf(errs.ErrValidation, "message %d has invalid role %q", i, message.Role)
		}
		if strings.TrimSpace(message.Content) == "" {
			return errs.Newf(errs.ErrValidation, "message %d has empty content", i)
		}
	}
	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		return errs.Newf(errs.ErrValidation, "temperature must be between 0 and 2")
	}
	if req.MaxTokens != nil && *req.MaxTokens <= 0 {
		return errs.Newf(errs.ErrValidation, "max_tokens must be positive")
	}
	return nil
}

// resolveSystemInstruction applies the precedence: explicit text > explicit
// id > active default > id 1 with no text.
func (s *ChatService) resolveSystemInstruction(ctx context.Context, req *ChatRequest) (int32, string, error) {
	if req.SystemInstructionID != nil {
		instruction, err := s.Store.GetSystemInstruction(ctx, *req.SystemInstructionID)
		if err != nil {
			return 0, "", err
		}
		if instruction == nil {
			return 0, "", errs.Newf(errs.ErrNotFound, "system instruction %d not found", *req.SystemInstructionID)
		}
		text := req.SystemInstruction
		if text == "" {
			text = instruction.Content
		}
		return instruction.ID, text, nil
	}

	defaultInstruction, err := s.Store.GetDefaultSystemInstruction(ctx)
	if err != nil {
		return 0, "", err
	}
	if defaultInstruction != nil {
		text := req.SystemInstruction
		if text == "" {
			text = defaultInstruction.Content
		}
		return defaultInstruction.ID, text, nil
	}
	return 1, req.SystemInstruction, nil
}

func lastUserMessage(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

// composeSecondaryPrompt concatenates the present pieces in a fixed order:
// custom prompt, recent memories, retrieved memories. Missing pieces are
// omitted; the output is deterministic for fixed inputs.
func composeSecondaryPrompt(customPrompt string, recent []*store.ConversationMemory, retrieved []*memory.Retrieved) string {
	var parts []string
	if customPrompt != "" {
		parts = append(parts, customPrompt)
	}
	if block := formatRecentBlock(recent); block != "" {
		parts = append(parts, block)
	}
	if block := formatRetrievedBlock(retrieved); block != "" {
		parts = append(parts, block)
	}
	return strings.Join(parts, "\n\n")
}

func formatRecentBlock(memories []*store.ConversationMemory) string {
	if len(memories) == 0 {
		return ""
	}
	entries := make([]string, 0, len(memories))
	for _, m := range memories {
		var b strings.Builder
		b.WriteString(m.CreatedAt.Format("2006-01-02 15:04"))
		b.WriteString(" · ")
		b.WriteString(m.Summary)
		b.WriteString(formatEntityLines(m.Entities))
		entries = append(entries, b.String())
	}
	return "【最近的记忆】\n" + strings.Join(entries, "\n---\n")
}

func formatRetrievedBlock(retrieved []*memory.Retrieved) string {
	if len(retrieved) == 0 {
		return ""
	}
	entries := make([]string, 0, len(retrieved))
	for _, r := range retrieved {
		var b strings.Builder
		b.WriteString(r.Memory.Summary)
		for _, point := range r.Memory.KeyPoints {
			b.WriteString("\n- ")
			b.WriteString(point)
		}
		entries = append(entries, b.String())
	}
	return "【相关记忆】\n" + strings.Join(entries, "\n---\n")
}

func formatEntityLines(entities *store.Entities) string {
	if entities.IsEmpty() {
		return ""
	}
	var b strings.Builder
	writeEntityLine(&b, "时间", entities.Dates)
	writeEntityLine(&b, "地点", entities.Locations)
	writeEntityLine(&b, "人物", entities.People)
	writeEntityLine(&b, "事件", entities.Events)
	return b.String()
}

func writeEntityLine(b *strings.Builder, label string, values []string) {
	if len(values) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(label)
	b.WriteString("：")
	for _, value := range values {
		b.WriteString("\n  - ")
		b.WriteString(value)
	}
}

// spawnBackgroundPipeline runs the cleaner (when the batch threshold is
// reached), the rolling three-month soft-delete, and the emotion engine pass
// in a detached goroutine with its own context. Never awaited.
func (s *ChatService) spawnBackgroundPipeline(userID, systemInstructionID int32, messages []llm.Message, shouldClean bool, conversationRound int32) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTaskTimeout)
		defer cancel()

		if err := s.cleanerSemaphore.Acquire(ctx, 1); err != nil {
			slog.Warn("background pipeline: semaphore acquire failed", "user_id", userID, "error", err)
			return
		}
		defer s.cleanerSemaphore.Release(1)

		if shouldClean {
			persisted, err := s.Cleaner.CleanAndStore(ctx, userID, systemInstructionID, messages, conversationRound)
			if err != nil {
				slog.Error("background pipeline: cleaning failed", "user_id", userID, "error", err)
			} else if persisted != nil && s.Metrics != nil {
				s.Metrics.RecordMemoryCreated()
			}
		}

		cutoff := time.Now().AddDate(0, 0, -90)
		if count, err := s.Store.SoftDeleteMemoriesBefore(ctx, userID, &systemInstructionID, cutoff); err != nil {
			slog.Error("background pipeline: rolling soft-delete failed", "user_id", userID, "error", err)
		} else if count > 0 {
			slog.Info("background pipeline: soft-deleted old memories", "user_id", userID, "count", count)
		}

		if _, err := s.EmotionEngine.ProcessConversation(ctx, messages, userID, systemInstructionID); err != nil {
			slog.Error("background pipeline: emotion pass failed", "user_id", userID, "error", err)
		}
	}()
}
