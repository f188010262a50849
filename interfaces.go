package hxfaces

import "github.com/a-h/templ"

// UIComponent is a node of a view's component tree.
//
// ClientID must be unique within the view; it is the id the markup carries
// and the target of partial-response updates. Render produces the node's
// markup for the current request, children included.
type UIComponent interface {
	ClientID() string
	Children() []UIComponent
	Render(rc *RequestContext) templ.Component
}

// Decoder is implemented by components that read submitted values during
// APPLY_REQUEST_VALUES.
//
//	func (c *Slider) Decode(rc *hxfaces.RequestContext) error {
//	    c.submitted = rc.Param(c.ClientID())
//	    return nil
//	}
//
// Returning a *ValidationError queues an ERROR message for the component;
// any other error becomes a lifecycle fault.
type Decoder interface {
	Decode(rc *RequestContext) error
}

// Validator is implemented by components that convert and validate their
// decoded value during PROCESS_VALIDATIONS. Errors are treated as for
// Decoder.
type Validator interface {
	Validate(rc *RequestContext) error
}

// ModelUpdater is implemented by components that push their validated value
// into the application model during UPDATE_MODEL_VALUES.
type ModelUpdater interface {
	UpdateModel(rc *RequestContext) error
}

// ActionSource is a component that can fire an application action. Decode
// queues it with RequestContext.QueueAction; the action runs during
// INVOKE_APPLICATION and its outcome drives navigation. An empty outcome
// stays on the current view.
type ActionSource interface {
	UIComponent
	Action(rc *RequestContext) (outcome string, err error)
}

// StateHolder is implemented by components whose state survives between the
// render of a view and its postback.
type StateHolder interface {
	SaveState() map[string]any
	RestoreState(state map[string]any) error
}
