package orchestrator

// State is a language's position in the build pipeline. The success path is
// Pending → Cloned → Built → Validated → Packaged. Failed is reachable from
// any state; Partial is reached from Validated when the mandatory artifact is
// present but an enabled optional one is missing.
type State string

const (
	StatePending   State = "PENDING"
	StateCloned    State = "CLONED"
	StateBuilt     State = "BUILT"
	StateValidated State = "VALIDATED"
	StatePackaged  State = "PACKAGED"
	StatePartial   State = "PARTIAL"
	StateFailed    State = "FAILED"
)

// Terminal reports whether the state is final for a run.
func (s State) Terminal() bool {
	return s == StatePackaged || s == StatePartial || s == StateFailed
}

// Succeeded reports whether the state represents a shipped package.
func (s State) Succeeded() bool {
	return s == StatePackaged || s == StatePartial
}
