// server/llm/patch_test.go
package llm

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchProposerPropose(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps well-formed entries", func(t *testing.T) {
		client := &fakeCompleter{response: `{
			"patch": [
				{"op": "replace", "path": "/nodes/0/title", "value": "New"},
				{"op": "remove", "path": "/connections/0"}
			],
			"summary": "Renamed the root and dropped a connection."
		}`}

		proposal := NewPatchProposer(client, zerolog.Nop()).Propose(ctx, "rename root", planTestMap())

		require.Len(t, proposal.Patch, 2)
		assert.Equal(t, "replace", proposal.Patch[0]["op"])
		assert.Equal(t, "/connections/0", proposal.Patch[1]["path"])
	})

	t.Run("drops entries without string op and path", func(t *testing.T) {
		client := &fakeCompleter{response: `{
			"patch": [
				{"op": "replace"},
				{"path": "/nodes/0"},
				{"op": 3, "path": "/nodes/0"},
				{"op": "add", "path": "/nodes/-", "value": {"id": "x"}}
			],
			"summary": "Partial."
		}`}

		proposal := NewPatchProposer(client, zerolog.Nop()).Propose(ctx, "whatever", planTestMap())

		require.Len(t, proposal.Patch, 1)
		assert.Equal(t, "add", proposal.Patch[0]["op"])
	})

	t.Run("garbage degrades to an empty patch", func(t *testing.T) {
		client := &fakeCompleter{response: "no json here"}

		proposal := NewPatchProposer(client, zerolog.Nop()).Propose(ctx, "whatever", planTestMap())

		assert.Empty(t, proposal.Patch)
		assert.Equal(t, fallbackSummary, proposal.Summary)
	})
}
