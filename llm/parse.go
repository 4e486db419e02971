// server/llm/parse.go
package llm

import (
	"encoding/json"
	"strings"
)

// extractJSON pulls the first JSON object or array out of free text. Models
// routinely wrap JSON in markdown fences or lead with prose, so we scan for
// the first bracket and cut at its match.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	open := s[start]
	var closer byte = '}'
	if open == '[' {
		closer = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closer:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// decodeStringList parses raw as a JSON string array, unwrapping one level
// of {"suggestions": [...]}-style nesting if needed.
func decodeStringList(raw string) ([]string, bool) {
	payload := extractJSON(raw)
	if payload == "" {
		return nil, false
	}

	var list []string
	if err := json.Unmarshal([]byte(payload), &list); err == nil {
		return list, true
	}

	var wrapped map[string][]string
	if err := json.Unmarshal([]byte(payload), &wrapped); err == nil {
		for _, v := range wrapped {
			if len(v) > 0 {
				return v, true
			}
		}
	}
	return nil, false
}

// splitLines is the last-resort parse: non-empty lines with bullets and
// numbering stripped.
func splitLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		line = strings.TrimSpace(stripNumbering(line))
		line = strings.Trim(line, `"`)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// stripNumbering removes a "1." or "1)" list prefix. A bare leading digit is
// part of the title ("3D printing"), not numbering.
func stripNumbering(line string) string {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return line[i+1:]
	}
	return line
}

// truncate cuts at a rune boundary; byte slicing would mangle multibyte
// summaries.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
