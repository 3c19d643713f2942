package llm

import (
	"encoding/json"
	"strings"

	"github.com/konusmate/mate/internal/errs"
)

// ExtractJSON coerces an LLM reply into the caller's target struct.
//
// Extraction order:
//  1. strip whitespace and markdown code fences (with or without a json tag)
//  2. strict parse of the remainder
//  3. scan the raw reply for balanced {...} substrings, longest first, and
//     take the first that parses
//
// Returns errs.ErrParse when nothing parses.
func ExtractJSON(reply string, target any) error {
	stripped := stripFences(reply)
	if json.Unmarshal([]byte(stripped), target) == nil {
		return nil
	}

	for _, candidate := range balancedObjects(reply) {
		if json.Unmarshal([]byte(candidate), target) == nil {
			return nil
		}
	}
	return errs.Newf(errs.ErrParse, "no JSON object found in reply (%d bytes)", len(reply))
}

func stripFences(reply string) string {
	content := strings.TrimSpace(reply)
	if strings.HasPrefix(content, "```json") {
		content = content[len("```json"):]
	}
	if strings.HasPrefix(content, "```") {
		content = content[len("```"):]
	}
	if strings.HasSuffix(content, "```") {
		content = content[:len(content)-len("```")]
	}
	return strings.TrimSpace(content)
}

// balancedObjects returns every balanced top-level {...} substring of the
// reply, ordered longest first. Braces inside JSON strings are skipped.
func balancedObjects(reply string) []string {
	var objects []string
	for start := 0; start < len(reply); {
		open := strings.IndexByte(reply[start:], '{')
		if open < 0 {
			break
		}
		open += start

		end := matchBrace(reply, open)
		if end < 0 {
			start = open + 1
			continue
		}
		objects = append(objects, reply[open:end+1])
		start = open + 1
	}

	// Longest first: the outermost object wins over embedded fragments.
	for i := 0; i < len(objects); i++ {
		for j := i + 1; j < len(objects); j++ {
			if len(objects[j]) > len(objects[i]) {
				objects[i], objects[j] = objects[j], objects[i]
			}
		}
	}
	return objects
}

// matchBrace returns the index of the brace closing the one at open, or -1.
func matchBrace(s string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return i
				}
			}
		}
	}
	return -1
}
