package canvas

import "fmt"

// childGap is the distance between a parent and a newly created child.
const childGap = 200

// CreateChild creates a node on the given side of parent, sized like the
// parent, and connects parent to it from that side.
func CreateChild(acc Accessor, parent Node, direction Side, text string, role Role) (Node, error) {
	x, y := parent.X, parent.Y
	switch direction {
	case SideRight:
		x = parent.X + parent.Width + childGap
	case SideLeft:
		x = parent.X - parent.Width - childGap
	case SideTop:
		y = parent.Y - parent.Height - childGap
	case SideBottom:
		y = parent.Y + parent.Height + childGap
	default:
		return Node{}, fmt.Errorf("%w: %q", ErrInvalidSide, direction)
	}

	return CreateConnected(acc, parent.ID, direction, NodeSpec{
		Type:   KindText,
		Text:   text,
		X:      x,
		Y:      y,
		Width:  parent.Width,
		Height: parent.Height,
		Role:   role,
	})
}

// CreateConnected creates a node from spec and an edge leaving parentID on
// side, arriving on the opposite side of the new node.
func CreateConnected(acc Accessor, parentID string, side Side, spec NodeSpec) (Node, error) {
	child, err := acc.CreateNode(spec)
	if err != nil {
		return Node{}, err
	}
	if _, err := acc.CreateEdge(parentID, side, child.ID, side.Opposite()); err != nil {
		return Node{}, err
	}
	return child, nil
}

// Neighbor returns the node reached from nodeID through side: an outgoing
// edge leaving from that side wins, otherwise an incoming edge arriving on it.
func Neighbor(data Data, nodeID string, side Side) (Node, bool) {
	for _, edge := range data.Edges {
		if edge.FromNode == nodeID && edge.FromSide == side {
			if node, ok := data.NodeByID(edge.ToNode); ok {
				return node, true
			}
		}
	}
	for _, edge := range data.Edges {
		if edge.ToNode == nodeID && edge.ToSide == side {
			if node, ok := data.NodeByID(edge.FromNode); ok {
				return node, true
			}
		}
	}
	return Node{}, false
}
