package hxfaces

import (
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/pthm/hxfaces/lib/partial"
)

// Request parameters and headers of the ajax protocol.
const (
	HeaderFacesRequest = "Faces-Request"
	FacesRequestAjax   = "partial/ajax"

	ParamPartialAjax = "jakarta.faces.partial.ajax"
	ParamRender      = "jakarta.faces.partial.render"
	ParamExecute     = "jakarta.faces.partial.execute"
	ParamSource      = "jakarta.faces.source"
	ViewStateParam   = partial.ViewStateID

	// KeywordAll and KeywordNone are accepted in render and execute lists.
	KeywordAll  = "@all"
	KeywordNone = "@none"
)

// Change is one queued partial-response mutation.
type Change struct {
	Kind     ChangeKind
	TargetID string
	Markup   templ.Component
	Script   string
	Attrs    map[string]string
}

// PartialContext holds the ajax flags of a request and the changes queued
// for its partial response.
type PartialContext struct {
	ajax      bool
	renderAll bool

	executeAll  bool
	executeNone bool
	executeIDs  []string
	renderIDs   map[string]bool

	changes   []Change
	extension []func(*partial.Writer) error
	extAttrs  map[string]string
	redirect  string
}

func newPartialContext(r *http.Request) *PartialContext {
	pc := &PartialContext{renderIDs: map[string]bool{}}
	pc.ajax = r.Header.Get(HeaderFacesRequest) == FacesRequestAjax || r.FormValue(ParamPartialAjax) == "true"
	if !pc.ajax {
		return pc
	}

	execute := splitIDs(r.FormValue(ParamExecute))
	switch {
	case len(execute) == 0, contains(execute, KeywordAll):
		pc.executeAll = true
	case contains(execute, KeywordNone):
		pc.executeNone = true
	default:
		pc.executeIDs = execute
	}

	for _, id := range splitIDs(r.FormValue(ParamRender)) {
		switch id {
		case KeywordAll:
			pc.renderAll = true
		case KeywordNone:
		default:
			pc.AddRender(id)
		}
	}
	return pc
}

// IsAjax reports whether the request asked for a partial response.
func (pc *PartialContext) IsAjax() bool { return pc.ajax }

// IsRenderAll reports whether the whole view is re-rendered into a single
// update of the view root.
func (pc *PartialContext) IsRenderAll() bool { return pc.renderAll }

// SetRenderAll switches whole-view rendering on or off.
func (pc *PartialContext) SetRenderAll(v bool) { pc.renderAll = v }

// IsExecuteAll reports whether every component takes part in the execute
// phases.
func (pc *PartialContext) IsExecuteAll() bool { return !pc.ajax || pc.executeAll }

// ExecuteIDs returns the client ids of the subtrees processed by the execute
// phases. It is empty when IsExecuteAll is true or execution is @none.
func (pc *PartialContext) ExecuteIDs() []string { return pc.executeIDs }

// RenderIDs returns the client ids queued for update, in queue order.
func (pc *PartialContext) RenderIDs() []string {
	var ids []string
	for _, c := range pc.changes {
		if c.Kind == ChangeUpdate {
			ids = append(ids, c.TargetID)
		}
	}
	return ids
}

// AddRender queues an update of clientID. The reserved ids ViewHeadID and
// ViewBodyID update the document head or body. Queuing the same id twice
// keeps the first position.
func (pc *PartialContext) AddRender(clientID string) {
	if clientID == "" || pc.renderIDs[clientID] {
		return
	}
	pc.renderIDs[clientID] = true
	pc.changes = append(pc.changes, Change{Kind: ChangeUpdate, TargetID: clientID})
}

// Eval queues a script.
func (pc *PartialContext) Eval(script string) {
	pc.changes = append(pc.changes, Change{Kind: ChangeEval, Script: script})
}

// Delete queues removal of clientID.
func (pc *PartialContext) Delete(clientID string) {
	pc.changes = append(pc.changes, Change{Kind: ChangeDelete, TargetID: clientID})
}

// InsertBefore queues markup to be inserted before clientID.
func (pc *PartialContext) InsertBefore(clientID string, markup templ.Component) {
	pc.changes = append(pc.changes, Change{Kind: ChangeInsertBefore, TargetID: clientID, Markup: markup})
}

// InsertAfter queues markup to be inserted after clientID.
func (pc *PartialContext) InsertAfter(clientID string, markup templ.Component) {
	pc.changes = append(pc.changes, Change{Kind: ChangeInsertAfter, TargetID: clientID, Markup: markup})
}

// Attributes queues attribute changes for clientID.
func (pc *PartialContext) Attributes(clientID string, attrs map[string]string) {
	pc.changes = append(pc.changes, Change{Kind: ChangeAttributes, TargetID: clientID, Attrs: attrs})
}

// Extension adds content to the response's single extension element. attrs
// are merged into the element's attributes.
func (pc *PartialContext) Extension(attrs map[string]string, body func(*partial.Writer) error) {
	if pc.extAttrs == nil {
		pc.extAttrs = map[string]string{}
	}
	for k, v := range attrs {
		pc.extAttrs[k] = v
	}
	if body != nil {
		pc.extension = append(pc.extension, body)
	}
}

// Redirect replaces every queued change with a client-side redirect.
func (pc *PartialContext) Redirect(url string) { pc.redirect = url }

// Changes returns the queued changes.
func (pc *PartialContext) Changes() []Change { return pc.changes }

// Executes reports whether the component with clientID takes part in the
// execute phases given its ancestors' client ids.
func (pc *PartialContext) executes(clientID string, ancestors []string) bool {
	if pc.IsExecuteAll() {
		return true
	}
	if pc.executeNone {
		return false
	}
	if contains(pc.executeIDs, clientID) {
		return true
	}
	for _, a := range ancestors {
		if contains(pc.executeIDs, a) {
			return true
		}
	}
	return false
}

func splitIDs(s string) []string {
	return strings.Fields(strings.ReplaceAll(s, ",", " "))
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
