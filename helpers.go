package hxfaces

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"
)

// Render writes a templ component to the HTTP response.
//
// Sets Content-Type to text/html and renders the component using the
// request's context. Use this for pages served outside a lifecycle.
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// IsAjax returns true if the request asks for a partial response, through
// the Faces-Request header or the partial ajax parameter.
//
//	if hxfaces.IsAjax(r) {
//	    // answer with a partial-response document
//	}
func IsAjax(r *http.Request) bool {
	if r.Header.Get(HeaderFacesRequest) == FacesRequestAjax {
		return true
	}
	return r.FormValue(ParamPartialAjax) == "true"
}

// Source returns the client id of the component that triggered an ajax
// request, or "" if none was sent.
func Source(r *http.Request) string {
	return r.FormValue(ParamSource)
}

// AjaxAttrs builds the data attributes the client script reads to turn an
// element's activation into an ajax request.
//
// execute and render are space separated client ids or the @all / @none
// keywords. Empty values are omitted so the client defaults apply:
//
//	<button { hxfaces.AjaxAttrs("form:save", "form", "form:list")... }>Save</button>
func AjaxAttrs(source, execute, render string) templ.Attributes {
	attrs := templ.Attributes{"data-faces-source": source}
	if execute = strings.TrimSpace(execute); execute != "" {
		attrs["data-faces-execute"] = execute
	}
	if render = strings.TrimSpace(render); render != "" {
		attrs["data-faces-render"] = render
	}
	return attrs
}

// ViewStateField renders the hidden field that carries the view state
// token. Put it inside every form of a standard view; postbacks without it
// are treated as initial requests.
func ViewStateField(rc *RequestContext) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<input type="hidden" name="%s" id="%s" value="%s">`,
			ViewStateParam, ViewStateParam, templ.EscapeString(rc.ViewStateToken()))
		return err
	})
}
