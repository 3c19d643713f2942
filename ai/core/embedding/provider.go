package embedding

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/konusmate/mate/internal/errs"
)

// Provider encodes text into a dense vector. A provider in fallback mode
// returns a nil vector and no error; retrieval then degrades to lexical
// similarity.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// InFallback reports whether the provider has latched into fallback mode.
	InFallback() bool
}

// Config represents embedding provider configuration.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  int // seconds
}

// provider is process-wide and lazily initialized: the first Embed call runs
// the single initialization attempt, and a failed attempt latches fallback
// for the process lifetime.
type provider struct {
	cfg      Config
	once     sync.Once
	client   *openai.Client
	fallback atomic.Bool
}

// NewProvider creates a lazy embedding provider. No connection is attempted
// until the first Embed call.
func NewProvider(cfg Config) Provider {
	return &provider{cfg: cfg}
}

func (p *provider) init() {
	if p.cfg.APIKey == "" || p.cfg.Model == "" {
		slog.Warn("embedding: not configured, using lexical similarity fallback")
		p.fallback.Store(true)
		return
	}
	clientConfig := openai.DefaultConfig(p.cfg.APIKey)
	if p.cfg.BaseURL != "" {
		clientConfig.BaseURL = p.cfg.BaseURL
	}
	p.client = openai.NewClientWithConfig(clientConfig)
	slog.Info("embedding: provider initialized", "provider", p.cfg.Provider, "model", p.cfg.Model)
}

func (p *provider) InFallback() bool {
	p.once.Do(p.init)
	return p.fallback.Load()
}

func (p *provider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.once.Do(p.init)
	if p.fallback.Load() {
		return nil, nil
	}

	timeout := p.cfg.Timeout
	if timeout <= 0 {
		timeout = 30
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.cfg.Model),
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrUpstream, err, "embedding request failed")
	}
	if len(resp.Data) == 0 {
		return nil, errs.Newf(errs.ErrUpstream, "empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

// Cosine returns the cosine similarity of two vectors, 0 when either is
// empty or of mismatched length.
func Cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// LexicalSimilarity is the embedding-free fallback: token overlap normalized
// by the smaller token set, zero when either side is empty.
func LexicalSimilarity(a, b string) float32 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}
	overlap := 0
	for token := range tokensA {
		if _, ok := tokensB[token]; ok {
			overlap++
		}
	}
	smaller := len(tokensA)
	if len(tokensB) < smaller {
		smaller = len(tokensB)
	}
	return float32(overlap) / float32(smaller)
}

func tokenSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, token := range strings.Fields(strings.ToLower(text)) {
		set[token] = struct{}{}
	}
	return set
}
