// server/mindmap/ids_test.go
package mindmap

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mindmaps/server/domain"
)

func TestTimestampIDs(t *testing.T) {
	frozen := time.UnixMilli(1700000000000)
	gen := &TimestampIDs{now: func() time.Time { return frozen }}

	t.Run("node ids derive from clock and count", func(t *testing.T) {
		m := &domain.MindMap{Nodes: []domain.Node{{ID: "a"}, {ID: "b"}}}
		assert.Equal(t, "node-1700000000000-2", gen.NodeID(m))
	})

	t.Run("re-rolls on collision within the same millisecond", func(t *testing.T) {
		m := &domain.MindMap{Nodes: []domain.Node{
			{ID: "node-1700000000000-1"},
		}}
		// Count says 1, but that id is taken (a delete/create cycle).
		assert.Equal(t, "node-1700000000000-2", gen.NodeID(m))
	})

	t.Run("connection ids derive from endpoints and count", func(t *testing.T) {
		m := &domain.MindMap{Connections: []domain.Connection{{ID: "x"}}}
		assert.Equal(t, "conn-a-b-1", gen.ConnectionID(m, "a", "b"))
	})

	t.Run("generated ids stay unique through create/delete churn", func(t *testing.T) {
		m := &domain.MindMap{}
		seen := map[string]bool{}
		for i := 0; i < 10; i++ {
			id := gen.NodeID(m)
			assert.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
			m.Nodes = append(m.Nodes, domain.Node{ID: id})
			if i%3 == 0 && len(m.Nodes) > 1 {
				m.Nodes = m.Nodes[1:]
			}
		}
	})
}

func TestTimestampIDsDistinctAcrossMaps(t *testing.T) {
	gen := NewTimestampIDs()
	m := &domain.MindMap{}
	a := gen.NodeID(m)
	m.Nodes = append(m.Nodes, domain.Node{ID: a})
	b := gen.NodeID(m)
	assert.NotEqual(t, a, b)
	assert.Equal(t, fmt.Sprintf("conn-%s-%s-0", a, b), gen.ConnectionID(m, a, b))
}
