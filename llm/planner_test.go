// server/llm/planner_test.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindmaps/server/domain"
)

type fakeCompleter struct {
	response string
	err      error
}

func (f *fakeCompleter) Complete(context.Context, string) (string, error) {
	return f.response, f.err
}

func (f *fakeCompleter) Stream(_ context.Context, _ string, fn func(string) error) error {
	if f.err != nil {
		return f.err
	}
	for _, word := range strings.SplitAfter(f.response, " ") {
		if err := fn(word); err != nil {
			return err
		}
	}
	return nil
}

func planTestMap() *domain.MindMap {
	return &domain.MindMap{
		ID:    "m1",
		Title: "Plan Map",
		Nodes: []domain.Node{{ID: "1", Title: "Root"}},
	}
}

func TestPlannerPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("parses a fenced plan", func(t *testing.T) {
		client := &fakeCompleter{response: "```json\n" + `{
			"operations": [
				{"op": "create_node", "title": "Child"},
				{"op": "connect_nodes", "sourceId": "1", "targetId": "2"}
			],
			"summary": "Added a child node."
		}` + "\n```"}

		plan := NewPlanner(client, zerolog.Nop()).Plan(ctx, "add a child", planTestMap())

		require.Len(t, plan.Operations, 2)
		assert.Equal(t, domain.OpCreateNode, plan.Operations[0].Op)
		assert.Equal(t, "Child", plan.Operations[0].Title)
		assert.Equal(t, "Added a child node.", plan.Summary)
	})

	t.Run("garbage degrades to an empty plan", func(t *testing.T) {
		client := &fakeCompleter{response: "I'm sorry, I can't do that."}

		plan := NewPlanner(client, zerolog.Nop()).Plan(ctx, "anything", planTestMap())

		assert.Empty(t, plan.Operations)
		assert.Equal(t, fallbackSummary, plan.Summary)
	})

	t.Run("upstream error degrades to an empty plan", func(t *testing.T) {
		client := &fakeCompleter{err: errors.New("connection refused")}

		plan := NewPlanner(client, zerolog.Nop()).Plan(ctx, "anything", planTestMap())

		assert.Empty(t, plan.Operations)
		assert.Equal(t, fallbackSummary, plan.Summary)
	})

	t.Run("nil client degrades to an empty plan", func(t *testing.T) {
		plan := NewPlanner(nil, zerolog.Nop()).Plan(ctx, "anything", planTestMap())

		assert.Empty(t, plan.Operations)
		assert.Equal(t, fallbackSummary, plan.Summary)
	})

	t.Run("caps operations at ten", func(t *testing.T) {
		var ops []string
		for i := 0; i < 15; i++ {
			ops = append(ops, fmt.Sprintf(`{"op":"create_node","title":"n%d"}`, i))
		}
		client := &fakeCompleter{response: fmt.Sprintf(
			`{"operations": [%s], "summary": "Lots of nodes."}`, strings.Join(ops, ","))}

		plan := NewPlanner(client, zerolog.Nop()).Plan(ctx, "go wild", planTestMap())

		assert.Len(t, plan.Operations, maxPlanOperations)
	})

	t.Run("drops unknown operation kinds", func(t *testing.T) {
		client := &fakeCompleter{response: `{
			"operations": [
				{"op": "format_disk"},
				{"op": "rename_node", "nodeId": "1", "title": "Kept"}
			],
			"summary": "Mixed bag."
		}`}

		plan := NewPlanner(client, zerolog.Nop()).Plan(ctx, "rename", planTestMap())

		require.Len(t, plan.Operations, 1)
		assert.Equal(t, domain.OpRenameNode, plan.Operations[0].Op)
	})

	t.Run("truncates the summary to 200 chars", func(t *testing.T) {
		client := &fakeCompleter{response: fmt.Sprintf(
			`{"operations": [], "summary": %q}`, strings.Repeat("s", 300))}

		plan := NewPlanner(client, zerolog.Nop()).Plan(ctx, "anything", planTestMap())

		assert.Len(t, plan.Summary, maxSummaryLen)
	})

	t.Run("summary truncation counts runes, not bytes", func(t *testing.T) {
		client := &fakeCompleter{response: fmt.Sprintf(
			`{"operations": [], "summary": %q}`, strings.Repeat("地", 300))}

		plan := NewPlanner(client, zerolog.Nop()).Plan(ctx, "anything", planTestMap())

		assert.True(t, utf8.ValidString(plan.Summary))
		assert.Equal(t, maxSummaryLen, utf8.RuneCountInString(plan.Summary))
	})
}

func TestMapDigest(t *testing.T) {
	m := &domain.MindMap{
		Title: "Digest",
		Nodes: []domain.Node{{ID: "1", Title: "Root"}},
		Connections: []domain.Connection{
			{SourceID: "1", TargetID: "2", Relation: "leads to"},
		},
	}

	digest := MapDigest(m)
	assert.Contains(t, digest, `node 1: Root`)
	assert.Contains(t, digest, "connection 1 -> 2 (leads to)")
	assert.Equal(t, "(no map)", MapDigest(nil))
}
