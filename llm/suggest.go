// server/llm/suggest.go
package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mindmaps/server/domain"
)

const defaultSuggestionCount = 5

// Suggester produces node-title suggestions and node expansions. Unlike the
// planner, it works without credentials: a nil client falls back to canned
// titles so the frontend always has something to show.
type Suggester struct {
	client Completer
	log    zerolog.Logger
}

func NewSuggester(client Completer, log zerolog.Logger) *Suggester {
	return &Suggester{client: client, log: log}
}

const suggestPrompt = `Suggest %d short node titles for a mind map about %q.
Respond with ONLY a JSON array of strings, e.g. ["First", "Second"].`

const expandPrompt = `A mind map contains a node titled %q.

%s

Suggest %d short titles for child nodes expanding on it.
Respond with ONLY a JSON array of strings.`

// SuggestTitles returns up to count titles for a topic. Malformed output
// degrades to line splitting, then to the canned list; never an error.
func (s *Suggester) SuggestTitles(ctx context.Context, topic string, count int) []string {
	if count <= 0 {
		count = defaultSuggestionCount
	}
	if s.client == nil {
		return capList(fallbackTitles(topic), count)
	}

	raw, err := s.client.Complete(ctx, fmt.Sprintf(suggestPrompt, count, topic))
	if err != nil {
		s.log.Warn().Err(err).Msg("suggest completion failed")
		return capList(fallbackTitles(topic), count)
	}
	return capList(s.parseList(raw, fallbackTitles(topic)), count)
}

// ExpandNode returns child-node titles for an existing node.
func (s *Suggester) ExpandNode(ctx context.Context, nodeTitle string, m *domain.MindMap, count int) []string {
	if count <= 0 {
		count = defaultSuggestionCount
	}
	if s.client == nil {
		return capList(fallbackChildren(nodeTitle), count)
	}

	raw, err := s.client.Complete(ctx, fmt.Sprintf(expandPrompt, nodeTitle, MapDigest(m), count))
	if err != nil {
		s.log.Warn().Err(err).Msg("expand completion failed")
		return capList(fallbackChildren(nodeTitle), count)
	}
	return capList(s.parseList(raw, fallbackChildren(nodeTitle)), count)
}

func (s *Suggester) parseList(raw string, fallback []string) []string {
	if list, ok := decodeStringList(raw); ok && len(list) > 0 {
		return list
	}
	if lines := splitLines(raw); len(lines) > 0 {
		s.log.Warn().Msg("suggestion response was not JSON, split lines instead")
		return lines
	}
	s.log.Warn().Msg("suggestion response unusable, using canned titles")
	return fallback
}

func fallbackTitles(topic string) []string {
	if topic == "" {
		topic = "Main Idea"
	}
	return []string{
		topic,
		"Key Concepts",
		"Questions",
		"Resources",
		"Next Steps",
	}
}

func fallbackChildren(nodeTitle string) []string {
	return []string{
		fmt.Sprintf("What is %s?", nodeTitle),
		fmt.Sprintf("Why %s matters", nodeTitle),
		fmt.Sprintf("Examples of %s", nodeTitle),
		fmt.Sprintf("%s in practice", nodeTitle),
		fmt.Sprintf("Open questions about %s", nodeTitle),
	}
}

func capList(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}
