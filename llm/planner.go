// server/llm/planner.go
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mindmaps/server/domain"
)

const (
	// maxPlanOperations bounds what a single agent plan may propose; the
	// applier has its own, larger bound for direct callers.
	maxPlanOperations = 10
	maxSummaryLen     = 200

	fallbackSummary = "Proposed no changes."
)

// Plan is a bounded list of typed operations proposed for user approval.
type Plan struct {
	Operations []domain.Operation `json:"operations"`
	Summary    string             `json:"summary"`
}

// Planner turns a natural-language instruction into a Plan. LLM output is
// free-text-derived JSON, so every parse failure degrades to an empty plan
// rather than an error.
type Planner struct {
	client Completer
	log    zerolog.Logger
}

func NewPlanner(client Completer, log zerolog.Logger) *Planner {
	return &Planner{client: client, log: log}
}

const planPrompt = `You edit mind maps by proposing operations. Current map:

%s

Instruction: %s

Respond with ONLY a JSON object:
{"operations": [...], "summary": "one sentence describing the changes"}

Each operation is one of:
{"op":"rename_node","nodeId":"...","title":"..."}
{"op":"create_node","title":"...","x":0,"y":0}
{"op":"delete_node","nodeId":"..."}
{"op":"move_node","nodeId":"...","x":0,"y":0,"dx":0,"dy":0}
{"op":"connect_nodes","sourceId":"...","targetId":"...","relation":"..."}
{"op":"disconnect_nodes","sourceId":"...","targetId":"..."}
{"op":"recolor_node","nodeId":"...","color":"#hex","borderColor":"#hex"}

Propose at most %d operations.`

// Plan never fails hard: an unreachable provider or malformed output yields
// an empty operation list with a stand-in summary.
func (p *Planner) Plan(ctx context.Context, instruction string, m *domain.MindMap) *Plan {
	empty := &Plan{Operations: []domain.Operation{}, Summary: fallbackSummary}
	if p.client == nil {
		return empty
	}

	prompt := fmt.Sprintf(planPrompt, MapDigest(m), instruction, maxPlanOperations)
	raw, err := p.client.Complete(ctx, prompt)
	if err != nil {
		p.log.Warn().Err(err).Msg("plan completion failed")
		return empty
	}

	payload := extractJSON(raw)
	if payload == "" {
		p.log.Warn().Msg("plan response contained no JSON")
		return empty
	}

	var parsed Plan
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		p.log.Warn().Err(err).Msg("plan response failed to parse")
		return empty
	}

	ops := make([]domain.Operation, 0, len(parsed.Operations))
	for _, op := range parsed.Operations {
		if !domain.KnownOp(op.Op) {
			p.log.Warn().Str("op", op.Op).Msg("dropping unknown operation kind")
			continue
		}
		ops = append(ops, op)
		if len(ops) == maxPlanOperations {
			break
		}
	}

	summary := truncate(strings.TrimSpace(parsed.Summary), maxSummaryLen)
	if summary == "" {
		summary = fallbackSummary
	}
	return &Plan{Operations: ops, Summary: summary}
}

// MapDigest renders a compact view of the map for prompts: one line per node
// and per connection. Coordinates are omitted, the model rarely needs them.
func MapDigest(m *domain.MindMap) string {
	if m == nil {
		return "(no map)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Map %q, %d nodes, %d connections\n", m.Title, len(m.Nodes), len(m.Connections))
	for _, n := range m.Nodes {
		fmt.Fprintf(&b, "node %s: %s\n", n.ID, n.Title)
	}
	for _, c := range m.Connections {
		fmt.Fprintf(&b, "connection %s -> %s (%s)\n", c.SourceID, c.TargetID, c.Relation)
	}
	return b.String()
}
