package canvas

import "errors"

var (
	// ErrNodeNotFound is returned when an operation names a node id that is
	// not in the graph.
	ErrNodeNotFound = errors.New("canvas: node not found")

	// ErrInvalidSide is returned for a side outside top/right/bottom/left.
	ErrInvalidSide = errors.New("canvas: invalid side")
)
