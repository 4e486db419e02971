// server/domain/mindmap.go
package domain

// Connection types understood by the frontend renderer.
const (
	ConnectionStraight = "straight"
	ConnectionCurved   = "curved"
)

// Operation kinds accepted by the applier and the agent planner.
const (
	OpRenameNode      = "rename_node"
	OpCreateNode      = "create_node"
	OpDeleteNode      = "delete_node"
	OpMoveNode        = "move_node"
	OpConnectNodes    = "connect_nodes"
	OpDisconnectNodes = "disconnect_nodes"
	OpRecolorNode     = "recolor_node"
)

// MindMap is supplied whole on every request; the frontend owns persistence.
// UpdatedAt doubles as the optimistic-concurrency version token (Unix ms).
type MindMap struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
	CreatedAt   int64        `json:"createdAt"`
	UpdatedAt   int64        `json:"updatedAt"`
}

type Node struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Color       string  `json:"color,omitempty"`
	BorderColor string  `json:"borderColor,omitempty"`
}

type Connection struct {
	ID        string  `json:"id"`
	SourceID  string  `json:"sourceId"`
	TargetID  string  `json:"targetId"`
	Type      string  `json:"type"`
	Relation  string  `json:"relation,omitempty"`
	Color     string  `json:"color,omitempty"`
	Width     float64 `json:"width,omitempty"`
	ShowArrow bool    `json:"showArrow"`
}

// Operation is a tagged variant; fields irrelevant to a kind are ignored.
// Numeric fields are pointers so an absent coordinate is distinguishable
// from zero.
type Operation struct {
	Op          string   `json:"op"`
	NodeID      string   `json:"nodeId,omitempty"`
	Title       string   `json:"title,omitempty"`
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	DX          *float64 `json:"dx,omitempty"`
	DY          *float64 `json:"dy,omitempty"`
	SourceID    string   `json:"sourceId,omitempty"`
	TargetID    string   `json:"targetId,omitempty"`
	Relation    string   `json:"relation,omitempty"`
	Color       string   `json:"color,omitempty"`
	BorderColor string   `json:"borderColor,omitempty"`
}

// KnownOp reports whether kind is one of the seven operation kinds.
func KnownOp(kind string) bool {
	switch kind {
	case OpRenameNode, OpCreateNode, OpDeleteNode, OpMoveNode,
		OpConnectNodes, OpDisconnectNodes, OpRecolorNode:
		return true
	}
	return false
}

// Clone returns a deep copy; the applier mutates the copy, never the input.
func (m *MindMap) Clone() *MindMap {
	out := *m
	out.Nodes = make([]Node, len(m.Nodes))
	copy(out.Nodes, m.Nodes)
	out.Connections = make([]Connection, len(m.Connections))
	copy(out.Connections, m.Connections)
	return &out
}

// FindNode returns a pointer into m.Nodes, or nil.
func (m *MindMap) FindNode(id string) *Node {
	for i := range m.Nodes {
		if m.Nodes[i].ID == id {
			return &m.Nodes[i]
		}
	}
	return nil
}

func (m *MindMap) HasNode(id string) bool {
	return m.FindNode(id) != nil
}

func (m *MindMap) HasConnectionID(id string) bool {
	for i := range m.Connections {
		if m.Connections[i].ID == id {
			return true
		}
	}
	return false
}

// HasConnection reports whether an ordered (source, target) pair already
// exists; direction matters, (a,b) and (b,a) are distinct.
func (m *MindMap) HasConnection(sourceID, targetID string) bool {
	for i := range m.Connections {
		if m.Connections[i].SourceID == sourceID && m.Connections[i].TargetID == targetID {
			return true
		}
	}
	return false
}
