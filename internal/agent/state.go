package agent

// State is a step of a run.
//
//	AwaitingFirstResponse -> DirectAnswer
//	AwaitingFirstResponse -> ToolRequested -> AwaitingFinalResponse -> Done
type State int

const (
	StateAwaitingFirstResponse State = iota
	StateDirectAnswer
	StateToolRequested
	StateAwaitingFinalResponse
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingFirstResponse:
		return "awaiting_first_response"
	case StateDirectAnswer:
		return "direct_answer"
	case StateToolRequested:
		return "tool_requested"
	case StateAwaitingFinalResponse:
		return "awaiting_final_response"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
