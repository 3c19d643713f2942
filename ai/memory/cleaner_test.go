package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konusmate/mate/ai/core/llm"
	"github.com/konusmate/mate/store"
)

const cleaningReply = `{
	"summary": "用户昨天和小王去了人民广场喝下午茶",
	"key_points": ["去了人民广场", "和小王一起", "喝了下午茶"],
	"importance_score": 8,
	"should_remember": true,
	"memory_type": "active",
	"reason": "包含时间地点人物事件的完整信息",
	"entities": {
		"dates": ["2026-08-23"],
		"locations": ["人民广场"],
		"people": ["小王"],
		"events": ["下午茶"]
	}
}`

func sixMessages() []llm.Message {
	return []llm.Message{
		llm.UserMessage("昨天我和小王去了人民广场"),
		llm.AssistantMessage("听起来不错！你们做了什么？"),
		llm.UserMessage("我们喝了下午茶"),
		llm.AssistantMessage("下午茶很惬意呢"),
		llm.UserMessage("对，聊了很久"),
		llm.AssistantMessage("和朋友相处的时光总是很快"),
	}
}

func TestCleanAndStorePersistsMemory(t *testing.T) {
	driver := &fakeDriver{}
	mock := &scriptedLLM{replies: []string{
		cleaningReply,
		`{"score": 6, "reason": "带有情感的表达"}`,
	}}
	cleaner := NewCleaner(newFakeStore(driver), mock, &staticEmbedder{})

	before := time.Now().Unix()
	persisted, err := cleaner.CleanAndStore(context.Background(), 1, 2, sixMessages(), 6)
	require.NoError(t, err)
	require.NotNil(t, persisted)

	require.Len(t, driver.memories, 1)
	m := driver.memories[0]
	assert.Equal(t, int32(1), m.UserID)
	assert.Equal(t, int32(2), m.SystemInstructionID)
	assert.Equal(t, store.MemoryTypeActive, m.MemoryType)
	assert.Equal(t, store.CategoryEvent, m.MemoryCategory)
	assert.Nil(t, m.OriginalContent)
	assert.Equal(t, "用户昨天和小王去了人民广场喝下午茶", m.Summary)
	assert.Len(t, m.KeyPoints, 3)
	require.NotNil(t, m.Entities)
	assert.Equal(t, []string{"人民广场"}, m.Entities.Locations)
	assert.Equal(t, int32(6), m.ConversationRound)
	assert.Equal(t, int32(8), m.ImportanceScore)
	assert.InDelta(t, 0.6, m.EmotionalWeight, 1e-6)
	assert.Equal(t, int32(1), m.AccessCount)
	assert.GreaterOrEqual(t, m.CreatedAtTimestamp, before)
	assert.Equal(t, m.CreatedAtTimestamp, m.LastAccessed)
	// Fallback embedder stores a null vector.
	assert.Nil(t, m.Embedding)
}

func TestCleanAndStoreSkipsTrivialDialogue(t *testing.T) {
	driver := &fakeDriver{}
	mock := &scriptedLLM{replies: []string{
		`{"summary": "", "should_remember": false, "reason": "寒暄礼貌用语"}`,
	}}
	cleaner := NewCleaner(newFakeStore(driver), mock, &staticEmbedder{})

	persisted, err := cleaner.CleanAndStore(context.Background(), 1, 1,
		[]llm.Message{
			llm.UserMessage("你好"), llm.AssistantMessage("你好！"),
			llm.UserMessage("嗨"), llm.AssistantMessage("嗨"),
			llm.UserMessage("在吗"), llm.AssistantMessage("在的"),
		}, 6)
	require.NoError(t, err)
	assert.Nil(t, persisted)
	assert.Empty(t, driver.memories)
}

func TestCleanAndStoreSkipsOnUnparseableReply(t *testing.T) {
	driver := &fakeDriver{}
	mock := &scriptedLLM{replies: []string{"I will not answer in JSON today"}}
	cleaner := NewCleaner(newFakeStore(driver), mock, &staticEmbedder{})

	persisted, err := cleaner.CleanAndStore(context.Background(), 1, 1, sixMessages(), 6)
	require.NoError(t, err)
	assert.Nil(t, persisted)
	assert.Empty(t, driver.memories)
}

func TestCleanAndStoreDefaultsEmotionalWeight(t *testing.T) {
	driver := &fakeDriver{}
	// Cleaning succeeds, every scorer attempt fails to parse.
	mock := &scriptedLLM{replies: []string{cleaningReply, "bad", "bad", "bad"}}
	cleaner := NewCleaner(newFakeStore(driver), mock, &staticEmbedder{})

	_, err := cleaner.CleanAndStore(context.Background(), 1, 1, sixMessages(), 6)
	require.NoError(t, err)
	require.Len(t, driver.memories, 1)
	assert.InDelta(t, DefaultEmotionalWeight, driver.memories[0].EmotionalWeight, 1e-6)
}

func TestCleanAndStoreKeepsEmbedding(t *testing.T) {
	driver := &fakeDriver{}
	mock := &scriptedLLM{replies: []string{cleaningReply, `{"score": 4}`}}
	cleaner := NewCleaner(newFakeStore(driver), mock, &staticEmbedder{vector: []float32{0.1, 0.2}})

	_, err := cleaner.CleanAndStore(context.Background(), 1, 1, sixMessages(), 6)
	require.NoError(t, err)
	require.Len(t, driver.memories, 1)
	assert.Equal(t, []float32{0.1, 0.2}, driver.memories[0].Embedding)
}

func TestFormatTranscript(t *testing.T) {
	transcript := FormatTranscript([]llm.Message{
		llm.UserMessage("你好"),
		llm.AssistantMessage("你好！有什么可以帮你？"),
		llm.SystemPrompt("保持简洁"),
	})
	parts := strings.Split(transcript, "\n\n")
	require.Len(t, parts, 3)
	assert.Equal(t, "用户: 你好", parts[0])
	assert.Equal(t, "AI助手: 你好！有什么可以帮你？", parts[1])
	assert.Equal(t, "系统: 保持简洁", parts[2])
}
