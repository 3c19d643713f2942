package memory

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/konusmate/mate/ai/core/embedding"
	"github.com/konusmate/mate/ai/core/llm"
	"github.com/konusmate/mate/internal/errs"
	"github.com/konusmate/mate/store"
)

const cleaningPrompt = `你是一个专业的对话记忆分析师。请分析以下对话内容，提取出需要长期记忆的重要信息。

**特别关注时间和地点信息**：
- 如果用户提到具体时间（如"今天"、"明天"、"昨天"、"上周"、"3月15号"、"这周末"等），请在 entities.dates 中记录，格式：YYYY-MM-DD（如"2026-02-13"）
- 如果用户提到相对时间（如"过两天"、"上个月"、"上周三"等），请尽量推算具体日期并在 entities.dates 中记录
- 如果用户提到具体地点（如"去了XX商场"、"在XX公园"、"到XX餐厅"等），请在 entities.locations 中记录
- 如果用户提到人物（如"和小王"、"和李四"等），请在 entities.people 中记录
- 如果用户提到事件（如"看了电影"、"参加比赛"等），请在 entities.events 中记录

请分析以下对话内容，并按照以下格式返回JSON结果：

{
  "summary": "这段对话的核心摘要（2-3句话）",
  "key_points": ["关键点1", "关键点2", "关键点3"],
  "importance_score": 7,
  "should_remember": true,
  "memory_type": "active",
  "reason": "为什么这段对话值得记住的原因",
  "entities": {
    "dates": ["2026-02-13"],
    "locations": ["人民广场"],
    "people": ["小王"],
    "events": ["下午茶"]
  }
}

**【重要】判断标准：**

**第一类：不要保存的内容（should_remember=false）**
1. 寒暄礼貌用语：你好、在吗、你好啊、嗨、您好、谢谢、再见、拜拜、晚安等
2. 简单确认：好的、知道了、可以、没问题、行、对、是的、没错等
3. 无意义内容：测试、哈哈哈、呵呵、表情符号、标点符号、空内容等
4. 应答式短语：只有"是"、"不是"、"对"、"不对"、"有"、"没有"、"嗯"、"哦"等
5. 技术性回复：继续、请继续、重新生成、再试一次等
6. 单纯的疑问词：什么、怎么、如何、为什么（没有上下文）等
7. 重复内容：与已有记忆完全相同或高度相似的内容

**第二类：必须保存的内容（should_remember=true）**
1. 包含时间信息：今天、昨天、上周、去年、3月15号、周末等
2. 包含地点信息：XX商场、人民广场、XX公园、XX餐厅、公司、家、学校等
3. 包含人物信息：小王、李四、妈妈、爸爸、老板、同事、朋友等
4. 包含事件信息：看电影、吃饭、旅游、开会、运动、购物、看病等
5. 情感状态：开心、难过、焦虑、生气、疲惫、兴奋等
6. 喜好偏好：喜欢、不喜欢、爱吃、讨厌、想要、希望等
7. 重要决定：决定、计划、打算、准备做、购买了等
8. 个人信息：年龄、职业、家庭成员、工作、学习、收入等
9. 用户明确要求记住："记住这个"、"帮我记一下"、"别忘"等

**重要性评分标准（1-10分）：**
- 10分：包含时间+地点/人物+事件的完整信息
- 8-9分：包含时间+地点，或重要个人信息
- 5-7分：包含时间、地点、人物、事件中的任意一项
- 3-4分：一般性陈述，但有一定意义
- 1-2分：内容较少，但勉强有记忆价值

**memory_type标准：**
- active（主动记忆）：用户主动提到的信息（个人信息、喜好、事件等）
- passive（被动记忆）：用户明确说"记住这个"、"帮我记一下"

对话内容：
`

const cleaningPromptSuffix = `

请只返回JSON，不要其他内容。`

// Transcripts are capped before hitting the cleaning prompt.
const maxTranscriptRunes = 8000

// cleaningResult is the cleaner LLM's verdict on one stretch of dialogue.
type cleaningResult struct {
	Summary         string          `json:"summary"`
	KeyPoints       []string        `json:"key_points"`
	ImportanceScore int32           `json:"importance_score"`
	ShouldRemember  bool            `json:"should_remember"`
	MemoryType      string          `json:"memory_type"`
	Reason          string          `json:"reason"`
	Entities        *store.Entities `json:"entities"`
}

// Cleaner distills a finished batch of conversation into at most one
// persisted memory record.
type Cleaner struct {
	store      *store.Store
	llmService llm.Service
	embedder   embedding.Provider
	scorer     *EmotionScorer
}

func NewCleaner(st *store.Store, llmService llm.Service, embedder embedding.Provider) *Cleaner {
	return &Cleaner{
		store:      st,
		llmService: llmService,
		embedder:   embedder,
		scorer:     NewEmotionScorer(llmService),
	}
}

// CleanAndStore runs the full distillation pipeline. Returns (nil, nil) when
// the dialogue is judged not worth remembering or the LLM reply is
// unparseable: nothing is persisted in either case.
func (c *Cleaner) CleanAndStore(ctx context.Context, userID, systemInstructionID int32, messages []llm.Message, conversationRound int32) (*store.ConversationMemory, error) {
	transcript := FormatTranscript(messages)
	result, err := c.clean(ctx, transcript)
	if err != nil {
		if errors.Is(err, errs.ErrParse) {
			slog.Warn("cleaner: unparseable cleaning reply, skipping", "user_id", userID)
			return nil, nil
		}
		return nil, err
	}
	if !result.ShouldRemember {
		slog.Info("cleaner: dialogue not worth remembering",
			"user_id", userID,
			"round", conversationRound,
			"reason", result.Reason,
		)
		return nil, nil
	}

	memoryType := store.MemoryType(result.MemoryType)
	if memoryType != store.MemoryTypePassive {
		memoryType = store.MemoryTypeActive
	}
	importance := result.ImportanceScore
	if importance < 1 || importance > 10 {
		importance = 5
	}

	category := Classify(result.Summary, result.Entities)
	weight := c.scorer.Score(ctx, result.Summary)

	vector, err := c.embedder.Embed(ctx, result.Summary)
	if err != nil {
		// A missing embedding only degrades retrieval, never blocks storage.
		slog.Warn("cleaner: embedding failed, storing without vector", "error", err)
		vector = nil
	}

	now := time.Now().Unix()
	memory, err := c.store.CreateConversationMemory(ctx, &store.ConversationMemory{
		UserID:              userID,
		SystemInstructionID: systemInstructionID,
		MemoryType:          memoryType,
		MemoryCategory:      category,
		// Original dialogue is dropped on purpose; the summary is the record.
		OriginalContent:    nil,
		Summary:            result.Summary,
		KeyPoints:          result.KeyPoints,
		Entities:           result.Entities,
		Embedding:          vector,
		ConversationRound:  conversationRound,
		ImportanceScore:    importance,
		EmotionalWeight:    weight,
		CreatedAtTimestamp: now,
		LastAccessed:       now,
		AccessCount:        1,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("cleaner: memory stored",
		"user_id", userID,
		"memory_id", memory.ID,
		"category", category,
		"importance", importance,
		"round", conversationRound,
	)
	return memory, nil
}

func (c *Cleaner) clean(ctx context.Context, transcript string) (*cleaningResult, error) {
	if runes := []rune(transcript); len(runes) > maxTranscriptRunes {
		transcript = string(runes[:maxTranscriptRunes])
	}

	temperature := float32(0.3)
	maxTokens := 1000
	reply, _, err := c.llmService.Complete(ctx,
		[]llm.Message{llm.UserMessage(cleaningPrompt + transcript + cleaningPromptSuffix)},
		&llm.CompleteOptions{Temperature: &temperature, MaxTokens: &maxTokens},
	)
	if err != nil {
		return nil, err
	}

	var result cleaningResult
	if err := llm.ExtractJSON(reply, &result); err != nil {
		return nil, err
	}
	if result.ShouldRemember && strings.TrimSpace(result.Summary) == "" {
		return nil, errs.Newf(errs.ErrParse, "cleaning reply missing summary")
	}
	return &result, nil
}

// FormatTranscript renders messages as "role: content" lines separated by
// blank lines, with Chinese role names.
func FormatTranscript(messages []llm.Message) string {
	lines := make([]string, 0, len(messages))
	for _, message := range messages {
		role := message.Role
		switch role {
		case "user":
			role = "用户"
		case "assistant":
			role = "AI助手"
		case "system":
			role = "系统"
		}
		lines = append(lines, role+": "+message.Content)
	}
	return strings.Join(lines, "\n\n")
}
