package canvas

// NodeKind distinguishes inline text nodes from nodes backed by a file.
type NodeKind string

const (
	KindText NodeKind = "text"
	KindFile NodeKind = "file"
)

// Role tags a node as a conversation turn. The zero value means untagged.
type Role string

const (
	RoleNone      Role = ""
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is a known role, including RoleNone.
func (r Role) Valid() bool {
	switch r {
	case RoleNone, RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Side is one of the four sides an edge can attach to.
type Side string

const (
	SideTop    Side = "top"
	SideRight  Side = "right"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
)

// Opposite returns the side facing s.
func (s Side) Opposite() Side {
	switch s {
	case SideTop:
		return SideBottom
	case SideBottom:
		return SideTop
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	}
	return s
}

// Valid reports whether s is one of the four sides.
func (s Side) Valid() bool {
	switch s {
	case SideTop, SideRight, SideBottom, SideLeft:
		return true
	}
	return false
}

// Node is a unit of content on the canvas. Geometry is only used to place
// new nodes.
type Node struct {
	ID     string   `json:"id"`
	Type   NodeKind `json:"type"`
	Text   string   `json:"text,omitempty"`
	File   string   `json:"file,omitempty"`
	X      int      `json:"x"`
	Y      int      `json:"y"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Color  string   `json:"color,omitempty"`
	Role   Role     `json:"role,omitempty"`

	// RoleBadge records that a host has rendered a role badge for this node.
	// The engine carries it through untouched.
	RoleBadge bool `json:"roleBadge,omitempty"`
}

// Edge is a directed, side-labelled connection from FromNode to ToNode.
type Edge struct {
	ID       string `json:"id"`
	FromNode string `json:"fromNode"`
	FromSide Side   `json:"fromSide,omitempty"`
	ToNode   string `json:"toNode"`
	ToSide   Side   `json:"toSide,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Data is a snapshot of the whole graph.
type Data struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NodeByID looks a node up in the snapshot.
func (d Data) NodeByID(id string) (Node, bool) {
	for _, node := range d.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return Node{}, false
}

// NodeSpec describes a node to create. ID is assigned by the accessor.
type NodeSpec struct {
	Type   NodeKind
	Text   string
	File   string
	X      int
	Y      int
	Width  int
	Height int
	Color  string
	Role   Role
}
