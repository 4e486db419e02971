// server/mindmap/ids.go
package mindmap

import (
	"fmt"
	"time"

	"github.com/mindmaps/server/domain"
)

// IDGenerator produces ids for nodes and connections created by the applier.
// Implementations must return ids not already present in the given map;
// global uniqueness is not required.
type IDGenerator interface {
	NodeID(m *domain.MindMap) string
	ConnectionID(m *domain.MindMap, sourceID, targetID string) string
}

// TimestampIDs derives node ids from the clock and the node count, and
// connection ids from the endpoints and the connection count. The counter is
// re-rolled on collision (create/delete/create within one millisecond would
// otherwise repeat a count).
type TimestampIDs struct {
	now func() time.Time
}

func NewTimestampIDs() *TimestampIDs {
	return &TimestampIDs{now: time.Now}
}

func (g *TimestampIDs) NodeID(m *domain.MindMap) string {
	base := g.now().UnixMilli()
	for n := len(m.Nodes); ; n++ {
		id := fmt.Sprintf("node-%d-%d", base, n)
		if !m.HasNode(id) {
			return id
		}
	}
}

func (g *TimestampIDs) ConnectionID(m *domain.MindMap, sourceID, targetID string) string {
	for n := len(m.Connections); ; n++ {
		id := fmt.Sprintf("conn-%s-%s-%d", sourceID, targetID, n)
		if !m.HasConnectionID(id) {
			return id
		}
	}
}
