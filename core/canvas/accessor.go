package canvas

// Accessor is the graph store as seen by the conversation engine.
type Accessor interface {
	// Data returns a copy of the current nodes and edges.
	Data() Data

	// NodeByID returns the current state of a node.
	NodeByID(id string) (Node, bool)

	// CreateNode adds a node built from spec and returns it with its new id.
	CreateNode(spec NodeSpec) (Node, error)

	// CreateEdge connects two existing nodes.
	CreateEdge(fromNode string, fromSide Side, toNode string, toSide Side) (Edge, error)

	// UpdateNode applies fn to the stored node. The id is immutable.
	UpdateNode(id string, fn func(node *Node)) error

	// Save persists the graph. In-memory accessors may treat it as a no-op.
	Save() error
}
