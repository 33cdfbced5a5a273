package openairealtime

// MCPCallStep is the progress of an MCP call. The wire protocol never sends
// a single status for MCP calls, so the step is reconstructed from the
// sequence of MCP events.
//
// Steps are ordered along the success path:
//
//	added < call(in_progress) < call(incomplete) < call(completed)
//	      < response(in_progress) < response(incomplete) < response(completed)
//
// The zero value means the call is unknown.
type MCPCallStep int

const (
	MCPStepAdded MCPCallStep = iota + 1
	MCPStepCallInProgress
	MCPStepCallIncomplete
	MCPStepCallCompleted
	MCPStepResponseInProgress
	MCPStepResponseIncomplete
	MCPStepResponseCompleted
)

// CallStep returns the call-phase step for status.
func CallStep(s Status) MCPCallStep {
	switch s {
	case StatusIncomplete:
		return MCPStepCallIncomplete
	case StatusCompleted:
		return MCPStepCallCompleted
	default:
		return MCPStepCallInProgress
	}
}

// ResponseStep returns the response-phase step for status.
func ResponseStep(s Status) MCPCallStep {
	switch s {
	case StatusIncomplete:
		return MCPStepResponseIncomplete
	case StatusCompleted:
		return MCPStepResponseCompleted
	default:
		return MCPStepResponseInProgress
	}
}

// Known reports whether the step is set.
func (s MCPCallStep) Known() bool { return s >= MCPStepAdded && s <= MCPStepResponseCompleted }

// IsComplete reports whether the response to the call has completed.
func (s MCPCallStep) IsComplete() bool { return s == MCPStepResponseCompleted }

// IsIncomplete reports whether the call or its response failed.
func (s MCPCallStep) IsIncomplete() bool {
	return s == MCPStepCallIncomplete || s == MCPStepResponseIncomplete
}

// IsInProgress reports whether the call is still running.
func (s MCPCallStep) IsInProgress() bool {
	switch s {
	case MCPStepAdded, MCPStepCallInProgress, MCPStepCallCompleted, MCPStepResponseInProgress:
		return true
	}
	return false
}

// String returns the step as "added", "call(<status>)" or
// "response(<status>)".
func (s MCPCallStep) String() string {
	switch s {
	case MCPStepAdded:
		return "added"
	case MCPStepCallInProgress:
		return "call(in_progress)"
	case MCPStepCallIncomplete:
		return "call(incomplete)"
	case MCPStepCallCompleted:
		return "call(completed)"
	case MCPStepResponseInProgress:
		return "response(in_progress)"
	case MCPStepResponseIncomplete:
		return "response(incomplete)"
	case MCPStepResponseCompleted:
		return "response(completed)"
	}
	return "unknown"
}
