package memory

import (
	"strings"

	"github.com/konusmate/mate/store"
)

// Rule-based category classification. Keyword precedence: desire beats
// preference beats entity-driven fact/event.

var desireKeywords = []string{"想", "希望", "打算", "计划", "准备", "要", "想要", "愿望", "梦想"}

var preferenceKeywords = []string{"喜欢", "爱", "偏爱", "习惯", "宁愿", "倾向于", "总是"}

// State verbs mark an entity-bearing summary as a lasting fact rather than a
// one-off event ("我在XX公司工作" vs "我去了XX商场").
var factKeywords = []string{"是", "叫", "住", "工作", "学习", "出生"}

// Classify assigns a memory category from the summary text and extracted
// entities.
func Classify(summary string, entities *store.Entities) store.MemoryCategory {
	lowered := strings.ToLower(summary)

	if containsAny(lowered, desireKeywords) {
		return store.CategoryDesire
	}
	if containsAny(lowered, preferenceKeywords) {
		return store.CategoryPreference
	}

	if !entities.IsEmpty() {
		if containsAny(lowered, factKeywords) {
			return store.CategoryFact
		}
		return store.CategoryEvent
	}

	return store.CategoryFact
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
