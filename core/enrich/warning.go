package enrich

import "fmt"

// WarningKind classifies a non-fatal problem.
type WarningKind string

const (
	WarningBudgetExceeded      WarningKind = "budget_exceeded"
	WarningUnresolvedReference WarningKind = "unresolved_reference"
	WarningMissingFile         WarningKind = "missing_file"
)

// Warning is a problem that was worked around. The pass that produced it
// still completed, possibly with less context.
type Warning struct {
	Kind    WarningKind
	NodeID  string
	Message string
}

func (w Warning) String() string {
	if w.NodeID == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s (node %s): %s", w.Kind, w.NodeID, w.Message)
}
