package llm

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/konusmate/mate/internal/errs"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Usage represents token usage for a single LLM call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompleteOptions carries per-call overrides. SystemInstruction and Prompt,
// when present, are prepended as system-role turns in that order.
type CompleteOptions struct {
	Temperature       *float32
	MaxTokens         *int
	SystemInstruction string
	Prompt            string
}

// Service is the LLM gateway. It is the only component allowed to talk to the
// completion provider and the only place that coerces LLM replies to JSON.
type Service interface {
	// Complete performs synchronous chat completion.
	Complete(ctx context.Context, messages []Message, opts *CompleteOptions) (string, *Usage, error)
}

// Config represents LLM service configuration.
type Config struct {
	Provider    string // zai, deepseek, openai, siliconflow, dashscope, ollama
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2000
	Temperature float32 // default: 0.7
	Timeout     int     // request timeout in seconds (default: 60)
}

type service struct {
	client      *openai.Client
	model       string
	provider    string
	maxTokens   int
	temperature float32
	timeout     int
}

// NewService creates a new LLM Service. Every supported provider speaks the
// OpenAI-compatible protocol, so the differences reduce to base URLs.
func NewService(cfg *Config) (Service, error) {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.HTTPClient = newHTTPClient()

	baseURL := cfg.BaseURL
	if baseURL == "" {
		switch cfg.Provider {
		case "zai":
			baseURL = "https://open.bigmodel.cn/api/paas/v4"
		case "deepseek":
			baseURL = "https://api.deepseek.com"
		case "siliconflow":
			baseURL = "https://api.siliconflow.cn/v1"
		case "dashscope":
			baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		case "ollama":
			baseURL = "http://localhost:11434/v1"
		case "openai", "":
			// go-openai default
		default:
			slog.Info("using generic OpenAI-compatible provider", "provider", cfg.Provider)
		}
	}
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60
	}

	return &service{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		provider:    cfg.Provider,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
	}, nil
}

func (s *service) Complete(ctx context.Context, messages []Message, opts *CompleteOptions) (string, *Usage, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout)*time.Second)
	defer cancel()

	if opts == nil {
		opts = &CompleteOptions{}
	}

	full := make([]Message, 0, len(messages)+2)
	if opts.SystemInstruction != "" {
		full = append(full, Message{Role: "system", Content: opts.SystemInstruction})
	}
	if opts.Prompt != "" {
		full = append(full, Message{Role: "system", Content: opts.Prompt})
	}
	full = append(full, messages...)

	temperature := s.temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	maxTokens := s.maxTokens
	if opts.MaxTokens != nil {
		maxTokens = *opts.MaxTokens
	}

	slog.Debug("llm: completion request",
		"model", s.model,
		"messages_count", len(full),
		"max_tokens", maxTokens,
	)

	startTime := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages:    convertMessages(full),
	})
	if err != nil {
		slog.Error("llm: completion request failed", "error", err)
		return "", nil, errs.Wrap(errs.ErrUpstream, err, "llm completion failed")
	}
	if len(resp.Choices) == 0 {
		slog.Warn("llm: empty response")
		return "", nil, errs.Newf(errs.ErrUpstream, "empty response from llm")
	}

	usage := &Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}

	slog.Debug("llm: completion response received",
		"content_length", len(resp.Choices[0].Message.Content),
		"total_tokens", usage.TotalTokens,
		"duration_ms", time.Since(startTime).Milliseconds(),
	)

	return resp.Choices[0].Message.Content, usage, nil
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := m.Role
		switch role {
		case "system", "user", "assistant":
		default:
			role = openai.ChatMessageRoleUser
		}
		out[i] = openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return out
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// SystemPrompt creates a system message.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}
