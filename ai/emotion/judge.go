package emotion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/konusmate/mate/ai/core/llm"
)

const judgeSystemPrompt = `你是一个专业的情绪分析专家。你的任务是分析用户的话语对角色情绪状态的影响。

基于 Valence-Arousal (VA) 模型：
- Valence (效价): -1.0 表示极度负面，1.0 表示极度正面
- Arousal (唤醒度): -1.0 表示极度平静，1.0 表示极度激动

你需要分析对话内容，输出该话语对角色情绪的影响增量（Delta Valence 和 Delta Arousal）。

分析规则：
1. 表扬、赞美、感谢 -> 正向 Valence 增量
2. 批评、侮辱、抱怨 -> 负向 Valence 增量
3. 激动、愤怒、惊讶 -> 正向 Arousal 增量
4. 平静、冷漠、无聊 -> 负向 Arousal 增量

增量范围通常在 -0.3 到 0.3 之间，极端情况可达到 -0.5 到 0.5。

请严格按照 JSON 格式输出，不要包含其他内容。`

const judgeUserPromptTemplate = `当前角色情绪状态：
- Valence (效价): %.2f
- Arousal (唤醒度): %.2f

对话历史：
%s

请分析最新的用户输入对角色情绪的影响，输出增量值。`

const (
	judgeMaxRetries   = 3
	judgeContextTurns = 6
)

// JudgeResult is the LLM's verdict on how the latest turns shift the
// character's emotional state.
type JudgeResult struct {
	DeltaValence float32 `json:"delta_valence"`
	DeltaArousal float32 `json:"delta_arousal"`
	Reasoning    string  `json:"reasoning"`
}

// Judge asks the LLM for a VA delta, retrying on parse failures.
type Judge struct {
	llmService llm.Service
}

func NewJudge(llmService llm.Service) *Judge {
	return &Judge{llmService: llmService}
}

// Analyze judges the last few conversation turns against the current state.
// Returns nil (not an error) when all attempts fail; the caller decides the
// fallback.
func (j *Judge) Analyze(ctx context.Context, messages []llm.Message, valence, arousal float32) *JudgeResult {
	recent := messages
	if len(recent) > judgeContextTurns {
		recent = recent[len(recent)-judgeContextTurns:]
	}
	lines := make([]string, 0, len(recent))
	for _, message := range recent {
		lines = append(lines, message.Role+": "+message.Content)
	}

	userPrompt := fmt.Sprintf(judgeUserPromptTemplate, valence, arousal, strings.Join(lines, "\n"))
	request := []llm.Message{llm.UserMessage(userPrompt)}

	temperature := float32(0.3)
	maxTokens := 200
	opts := &llm.CompleteOptions{
		SystemInstruction: judgeSystemPrompt,
		Temperature:       &temperature,
		MaxTokens:         &maxTokens,
	}

	for attempt := 1; attempt <= judgeMaxRetries; attempt++ {
		reply, _, err := j.llmService.Complete(ctx, request, opts)
		if err != nil {
			slog.Warn("emotion judge: completion failed", "attempt", attempt, "error", err)
			continue
		}

		var result JudgeResult
		if err := llm.ExtractJSON(reply, &result); err != nil {
			slog.Warn("emotion judge: unparseable reply", "attempt", attempt, "error", err)
			continue
		}

		slog.Debug("emotion judge: analysis succeeded",
			"delta_valence", result.DeltaValence,
			"delta_arousal", result.DeltaArousal,
		)
		return &result
	}

	slog.Error("emotion judge: all attempts failed", "attempts", judgeMaxRetries)
	return nil
}
