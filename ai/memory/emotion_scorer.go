package memory

import (
	"context"
	"log/slog"
	"strings"

	"github.com/konusmate/mate/ai/core/llm"
)

const emotionScorePrompt = `你是一个专业的情感分析师。请分析以下文本的情绪强度。

**评分标准（1-10分）**：

**平淡陈述（1-3分）**：
- 客观描述事实："我吃了饭"、"今天天气不错"、"我去了XX商场"
- 简单表达喜好："我喜欢苹果"、"这个颜色还可以"
- 一般性陈述："我准备做这件事"

**中等情绪（4-6分）**：
- 带有情感的表达："我很开心"、"感觉有点累"、"这件事挺有意思"
- 明显的倾向："我真的很喜欢这个"、"我有点担心"
- 具体的感受："这个决定让我感到欣慰"

**强烈情绪（7-8分）**：
- 强烈的情感表达："我太激动了"、"我非常生气"、"我感到极度焦虑"
- 重要的人生事件："我中彩票了"、"我通过了考试"、"我被录用了"
- 深刻的感受："这让我深受触动"、"这改变了我的想法"

**极端情绪（9-10分）**：
- 极端的情绪爆发："我恨死他了"、"我简直不敢相信"、"我崩溃了"
- 人生重大转折："我结婚了"、"我孩子出生了"、"我辞职创业了"
- 深刻的生命体验："这改变了我的一生"、"我从未如此感动过"

**请分析以下文本的情绪强度，并按照以下格式返回JSON：**：

{
  "score": 7,
  "reason": "这是一段XX性质的内容，因此评分XX"
}

请只返回JSON，不要其他内容。

待分析文本：
`

const (
	emotionScoreMaxInput   = 1000 // runes
	emotionScoreMaxRetries = 3
	// DefaultEmotionalWeight is used when every scoring attempt fails.
	DefaultEmotionalWeight = 0.5
)

// EmotionScorer rates the emotional intensity of a memory before it is
// persisted.
type EmotionScorer struct {
	llmService llm.Service
}

func NewEmotionScorer(llmService llm.Service) *EmotionScorer {
	return &EmotionScorer{llmService: llmService}
}

// Score returns the emotional weight of the text, normalized from the 1-10
// rubric to (0, 1]. Falls back to DefaultEmotionalWeight after exhausting
// retries.
func (s *EmotionScorer) Score(ctx context.Context, text string) float32 {
	truncated := text
	if runes := []rune(text); len(runes) > emotionScoreMaxInput {
		truncated = string(runes[:emotionScoreMaxInput])
	}

	temperature := float32(0.3)
	maxTokens := 500
	opts := &llm.CompleteOptions{Temperature: &temperature, MaxTokens: &maxTokens}
	request := []llm.Message{llm.UserMessage(emotionScorePrompt + truncated)}

	for attempt := 1; attempt <= emotionScoreMaxRetries; attempt++ {
		reply, _, err := s.llmService.Complete(ctx, request, opts)
		if err != nil {
			slog.Warn("emotion scorer: completion failed", "attempt", attempt, "error", err)
			continue
		}

		var result struct {
			Score  int    `json:"score"`
			Reason string `json:"reason"`
		}
		if err := llm.ExtractJSON(reply, &result); err != nil {
			slog.Warn("emotion scorer: unparseable reply",
				"attempt", attempt,
				"reply", strings.TrimSpace(reply),
			)
			continue
		}

		score := result.Score
		if score < 1 {
			score = 1
		} else if score > 10 {
			score = 10
		}
		weight := float32(score) / 10

		slog.Debug("emotion scorer: scored", "score", score, "weight", weight, "reason", result.Reason)
		return weight
	}

	slog.Warn("emotion scorer: all attempts failed, using default weight")
	return DefaultEmotionalWeight
}
