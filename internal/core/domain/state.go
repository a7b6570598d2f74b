package domain

// PipelineState is the lifecycle state of the RAG pipeline.
//
// Transitions:
//
//	UNBUILT  -> BUILDING                 (first Build)
//	BUILDING -> READY                    (build produced >= 1 chunk)
//	BUILDING -> EMPTY                    (zero documents found)
//	BUILDING -> FAILED                   (component failure, no prior index)
//	BUILDING -> READY                    (component failure, prior index kept)
//	READY|EMPTY|FAILED -> BUILDING       (rebuild)
type PipelineState string

// Pipeline states.
const (
	// StateUnbuilt means Build has never been attempted.
	StateUnbuilt PipelineState = "unbuilt"

	// StateBuilding means a build is in flight. A previously published
	// index, if any, keeps serving queries until the swap.
	StateBuilding PipelineState = "building"

	// StateReady means an index is published and queryable.
	StateReady PipelineState = "ready"

	// StateEmpty means the last build found zero documents.
	// This is a legitimate terminal state, not an error.
	StateEmpty PipelineState = "empty"

	// StateFailed means the last build failed and no usable index exists.
	StateFailed PipelineState = "failed"
)

// IsValid returns true if the state is recognised.
func (s PipelineState) IsValid() bool {
	switch s {
	case StateUnbuilt, StateBuilding, StateReady, StateEmpty, StateFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s PipelineState) String() string {
	return string(s)
}

// Description returns a human-readable description of the state.
func (s PipelineState) Description() string {
	switch s {
	case StateUnbuilt:
		return "Not built (run a build first)"
	case StateBuilding:
		return "Build in progress"
	case StateReady:
		return "Ready"
	case StateEmpty:
		return "No documents found (add files and rebuild)"
	case StateFailed:
		return "Last build failed"
	default:
		return "Unknown"
	}
}

// StateError reports an operation attempted in an incompatible state.
// It wraps ErrNotReady so callers can match with errors.Is.
type StateError struct {
	// Op is the rejected operation, e.g. "answer".
	Op string

	// State is the pipeline state at the time of the call.
	State PipelineState
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return e.Op + ": pipeline not ready (state: " + string(e.State) + ")"
}

// Unwrap lets errors.Is(err, ErrNotReady) match StateError values.
func (e *StateError) Unwrap() error {
	return ErrNotReady
}
