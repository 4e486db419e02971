// server/mindmap/applier.go
package mindmap

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mindmaps/server/domain"
)

const (
	// MaxOperations is the documented truncation point for a single apply
	// call; operations beyond it are ignored, not rejected.
	MaxOperations = 20

	maxTitleLen = 100

	defaultRelation        = "related to"
	defaultConnectionWidth = 2
)

// VersionConflictError is the only hard failure Apply produces. Nothing has
// been applied when it is returned; the caller must refetch and replan.
type VersionConflictError struct {
	Expected int64
	Actual   int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict: map is at %d, caller based on %d", e.Expected, e.Actual)
}

// OpResult reports what happened to one operation in a batch. A skipped
// operation never aborts the batch.
type OpResult struct {
	Index   int    `json:"index"`
	Op      string `json:"op"`
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

// Applier mutates a mind map by folding a bounded operation list over it.
// It holds no state between calls; every call works on its own copy of the
// caller-supplied map.
type Applier struct {
	ids IDGenerator
	log zerolog.Logger
	now func() time.Time
}

func NewApplier(ids IDGenerator, log zerolog.Logger) *Applier {
	return &Applier{ids: ids, log: log, now: time.Now}
}

// Apply validates the version token, applies at most MaxOperations
// operations in order against an accumulating copy of m, and returns the
// copy with a strictly increased UpdatedAt. Each operation sees the effects
// of the ones before it. Per-operation failures are contained and reported
// in the result slice.
func (a *Applier) Apply(m *domain.MindMap, baseVersion int64, ops []domain.Operation) (*domain.MindMap, []OpResult, error) {
	if baseVersion != m.UpdatedAt {
		return nil, nil, &VersionConflictError{Expected: m.UpdatedAt, Actual: baseVersion}
	}

	if len(ops) > MaxOperations {
		a.log.Warn().Int("total", len(ops)).Int("max", MaxOperations).Msg("operation list truncated")
		ops = ops[:MaxOperations]
	}

	out := m.Clone()
	results := make([]OpResult, 0, len(ops))
	for i, op := range ops {
		res := a.applyOne(out, i, op)
		if !res.Applied {
			a.log.Warn().
				Int("index", res.Index).
				Str("op", res.Op).
				Str("reason", res.Reason).
				Msg("operation skipped")
		}
		results = append(results, res)
	}

	version := a.now().UnixMilli()
	if version <= out.UpdatedAt {
		version = out.UpdatedAt + 1
	}
	out.UpdatedAt = version

	return out, results, nil
}

// applyOne dispatches a single operation. A panic inside an operation is
// recovered and recorded as a skip so one bad operation cannot corrupt the
// batch.
func (a *Applier) applyOne(m *domain.MindMap, index int, op domain.Operation) (res OpResult) {
	res = OpResult{Index: index, Op: op.Op}
	defer func() {
		if r := recover(); r != nil {
			res.Applied = false
			res.Reason = fmt.Sprintf("panic: %v", r)
		}
	}()

	switch op.Op {
	case domain.OpRenameNode:
		res.Applied, res.Reason = a.renameNode(m, op)
	case domain.OpCreateNode:
		res.Applied, res.Reason = a.createNode(m, op)
	case domain.OpDeleteNode:
		res.Applied, res.Reason = a.deleteNode(m, op)
	case domain.OpMoveNode:
		res.Applied, res.Reason = a.moveNode(m, op)
	case domain.OpConnectNodes:
		res.Applied, res.Reason = a.connectNodes(m, op)
	case domain.OpDisconnectNodes:
		res.Applied, res.Reason = a.disconnectNodes(m, op)
	case domain.OpRecolorNode:
		res.Applied, res.Reason = a.recolorNode(m, op)
	default:
		res.Reason = fmt.Sprintf("unknown operation %q", op.Op)
	}
	return res
}

func (a *Applier) renameNode(m *domain.MindMap, op domain.Operation) (bool, string) {
	if op.Title == "" {
		return false, "title missing"
	}
	node := m.FindNode(op.NodeID)
	if node == nil {
		return false, fmt.Sprintf("node %q not found", op.NodeID)
	}
	node.Title = truncate(op.Title, maxTitleLen)
	return true, ""
}

func (a *Applier) createNode(m *domain.MindMap, op domain.Operation) (bool, string) {
	if op.Title == "" {
		return false, "title missing"
	}
	node := domain.Node{
		ID:          a.ids.NodeID(m),
		Title:       truncate(op.Title, maxTitleLen),
		Color:       op.Color,
		BorderColor: op.BorderColor,
	}
	if op.X != nil {
		node.X = *op.X
	}
	if op.Y != nil {
		node.Y = *op.Y
	}
	m.Nodes = append(m.Nodes, node)
	return true, ""
}

func (a *Applier) deleteNode(m *domain.MindMap, op domain.Operation) (bool, string) {
	if !m.HasNode(op.NodeID) {
		return false, fmt.Sprintf("node %q not found", op.NodeID)
	}

	nodes := m.Nodes[:0]
	for _, n := range m.Nodes {
		if n.ID != op.NodeID {
			nodes = append(nodes, n)
		}
	}
	m.Nodes = nodes

	// Cascade: a connection is meaningless once either endpoint is gone.
	conns := m.Connections[:0]
	for _, c := range m.Connections {
		if c.SourceID != op.NodeID && c.TargetID != op.NodeID {
			conns = append(conns, c)
		}
	}
	m.Connections = conns
	return true, ""
}

func (a *Applier) moveNode(m *domain.MindMap, op domain.Operation) (bool, string) {
	node := m.FindNode(op.NodeID)
	if node == nil {
		return false, fmt.Sprintf("node %q not found", op.NodeID)
	}
	// Absolute first, then relative; both may appear in one operation.
	if op.X != nil {
		node.X = *op.X
	}
	if op.Y != nil {
		node.Y = *op.Y
	}
	if op.DX != nil {
		node.X += *op.DX
	}
	if op.DY != nil {
		node.Y += *op.DY
	}
	return true, ""
}

func (a *Applier) connectNodes(m *domain.MindMap, op domain.Operation) (bool, string) {
	if !m.HasNode(op.SourceID) {
		return false, fmt.Sprintf("source node %q not found", op.SourceID)
	}
	if !m.HasNode(op.TargetID) {
		return false, fmt.Sprintf("target node %q not found", op.TargetID)
	}
	if m.HasConnection(op.SourceID, op.TargetID) {
		return false, fmt.Sprintf("connection %s -> %s already exists", op.SourceID, op.TargetID)
	}

	relation := op.Relation
	if relation == "" {
		relation = defaultRelation
	}
	m.Connections = append(m.Connections, domain.Connection{
		ID:        a.ids.ConnectionID(m, op.SourceID, op.TargetID),
		SourceID:  op.SourceID,
		TargetID:  op.TargetID,
		Type:      domain.ConnectionCurved,
		Relation:  relation,
		Width:     defaultConnectionWidth,
		ShowArrow: true,
	})
	return true, ""
}

func (a *Applier) disconnectNodes(m *domain.MindMap, op domain.Operation) (bool, string) {
	// Removing zero connections is a no-op, not an error.
	conns := m.Connections[:0]
	for _, c := range m.Connections {
		if c.SourceID == op.SourceID && c.TargetID == op.TargetID {
			continue
		}
		conns = append(conns, c)
	}
	m.Connections = conns
	return true, ""
}

func (a *Applier) recolorNode(m *domain.MindMap, op domain.Operation) (bool, string) {
	node := m.FindNode(op.NodeID)
	if node == nil {
		return false, fmt.Sprintf("node %q not found", op.NodeID)
	}
	if op.Color != "" {
		node.Color = op.Color
	}
	if op.BorderColor != "" {
		node.BorderColor = op.BorderColor
	}
	return true, ""
}

// truncate cuts at a rune boundary; byte slicing would mangle multibyte
// titles.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
