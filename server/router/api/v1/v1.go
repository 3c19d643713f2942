// Package v1 implements the JSON API surface under /api/v1.
package v1

import (
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"

	"github.com/konusmate/mate/ai/core/embedding"
	"github.com/konusmate/mate/ai/core/llm"
	"github.com/konusmate/mate/ai/emotion"
	"github.com/konusmate/mate/ai/memory"
	"github.com/konusmate/mate/ai/metrics"
	"github.com/konusmate/mate/internal/profile"
	"github.com/konusmate/mate/store"
)

type APIV1Service struct {
	// Domain Services
	AuthService              *AuthService
	ChatService              *ChatService
	MemoryService            *MemoryService
	SystemInstructionService *SystemInstructionService
	PromptService            *PromptService

	// Shared Infra
	Profile *profile.Profile
	Store   *store.Store
	Secret  string
}

func NewAPIV1Service(secret string, profile *profile.Profile, st *store.Store, llmService llm.Service, embedder embedding.Provider, exporter *metrics.Exporter) *APIV1Service {
	service := &APIV1Service{
		Secret:  secret,
		Profile: profile,
		Store:   st,
	}

	emotionEngine := emotion.NewEngine(st, llmService)

	service.AuthService = &AuthService{Store: st, Secret: secret, Profile: profile}
	service.SystemInstructionService = &SystemInstructionService{Store: st}
	service.PromptService = &PromptService{Store: st}
	service.MemoryService = &MemoryService{Store: st, EmotionEngine: emotionEngine}
	service.ChatService = &ChatService{
		Store:         st,
		Profile:       profile,
		LLMService:    llmService,
		Retriever:     memory.NewRetriever(st, embedder),
		Cleaner:       memory.NewCleaner(st, llmService, embedder),
		EmotionEngine: emotionEngine,
		Metrics:       exporter,
		// Bound concurrent background cleaning passes across all requests.
		cleanerSemaphore: semaphore.NewWeighted(4),
	}

	return service
}

// RegisterRoutes wires all handlers onto the /api/v1 group.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	apiV1 := echoServer.Group("/api/v1")

	apiV1.POST("/auth/register", s.AuthService.Register)
	apiV1.POST("/auth/login", s.AuthService.Login)

	authed := apiV1.Group("", s.AuthService.Middleware)
	authed.GET("/auth/me", s.AuthService.Me)

	authed.POST("/chat", s.ChatService.Chat)

	authed.GET("/system-instructions", s.SystemInstructionService.List)
	authed.POST("/system-instructions", s.SystemInstructionService.Create)
	authed.PUT("/system-instructions/:id", s.SystemInstructionService.Update)
	authed.DELETE("/system-instructions/:id", s.SystemInstructionService.Delete)

	authed.GET("/prompts", s.PromptService.List)
	authed.POST("/prompts", s.PromptService.Create)
	authed.PUT("/prompts/:id", s.PromptService.Update)
	authed.DELETE("/prompts/:id", s.PromptService.Delete)

	authed.GET("/memory/list", s.MemoryService.List)
	authed.DELETE("/memory/:id", s.MemoryService.Delete)
	authed.POST("/memory/clear-old", s.MemoryService.ClearOld)
	authed.GET("/memory/emotion-state", s.MemoryService.GetEmotionState)
	authed.POST("/memory/emotion-state/reset", s.MemoryService.ResetEmotionState)
}
