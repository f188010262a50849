package hxfaces

import "fmt"

// PhaseID identifies one stage of the standard request lifecycle.
type PhaseID int

const (
	// AnyPhase is only meaningful for listener registration: a listener
	// registered for AnyPhase is notified around every phase.
	AnyPhase PhaseID = iota
	RestoreView
	ApplyRequestValues
	ProcessValidations
	UpdateModelValues
	InvokeApplication
	RenderResponse
)

const numPhases = int(RenderResponse) + 1

var phaseNames = [...]string{
	AnyPhase:           "ANY",
	RestoreView:        "RESTORE_VIEW",
	ApplyRequestValues: "APPLY_REQUEST_VALUES",
	ProcessValidations: "PROCESS_VALIDATIONS",
	UpdateModelValues:  "UPDATE_MODEL_VALUES",
	InvokeApplication:  "INVOKE_APPLICATION",
	RenderResponse:     "RENDER_RESPONSE",
}

func (p PhaseID) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("PhaseID(%d)", int(p))
}

// executePhases run, in order, during Lifecycle.Execute.
var executePhases = [...]PhaseID{
	RestoreView,
	ApplyRequestValues,
	ProcessValidations,
	UpdateModelValues,
	InvokeApplication,
}
