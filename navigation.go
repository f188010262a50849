package hxfaces

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/pthm/hxfaces/lib/partial"
)

// RedirectSuffix asks for a redirect when appended to an outcome, as in
// "/orders?faces-redirect=true".
const RedirectSuffix = "faces-redirect=true"

// NavigationRule maps an outcome returned from a view to a target view.
// From may be "*" or empty to match every view.
type NavigationRule struct {
	From     string
	Outcome  string
	To       string
	Redirect bool
}

// NavigationCase is the resolved result of an outcome.
type NavigationCase struct {
	ViewID   string
	Redirect bool
	// Implicit is set when no rule matched and the outcome itself named the
	// view.
	Implicit bool
}

// NavigationHandler resolves action outcomes to views. Rules are checked in
// registration order; exact From matches are preferred over wildcards. An
// outcome no rule matches is treated as a view id, relative to the current
// view's directory unless it starts with "/".
type NavigationHandler struct {
	Rules []NavigationRule
}

// NewNavigationHandler returns a handler with rules.
func NewNavigationHandler(rules ...NavigationRule) *NavigationHandler {
	return &NavigationHandler{Rules: rules}
}

// Resolve finds the navigation case for outcome from view fromViewID. It
// reports false for an empty outcome, which stays on the current view.
func (n *NavigationHandler) Resolve(fromViewID, outcome string) (NavigationCase, bool) {
	outcome, redirect := splitRedirect(outcome)
	if outcome == "" {
		return NavigationCase{}, false
	}
	if n != nil {
		var wildcard *NavigationRule
		for i := range n.Rules {
			r := &n.Rules[i]
			if r.Outcome != outcome {
				continue
			}
			if r.From == fromViewID {
				return NavigationCase{ViewID: r.To, Redirect: r.Redirect || redirect}, true
			}
			if (r.From == "*" || r.From == "") && wildcard == nil {
				wildcard = r
			}
		}
		if wildcard != nil {
			return NavigationCase{ViewID: wildcard.To, Redirect: wildcard.Redirect || redirect}, true
		}
	}

	to := outcome
	if !strings.HasPrefix(to, "/") {
		to = path.Join(path.Dir(fromViewID), to)
	}
	return NavigationCase{ViewID: path.Clean(to), Redirect: redirect, Implicit: true}, true
}

func splitRedirect(outcome string) (string, bool) {
	base, query, ok := strings.Cut(outcome, "?")
	if !ok {
		return outcome, false
	}
	redirect := false
	for _, kv := range strings.Split(query, "&") {
		if kv == RedirectSuffix {
			redirect = true
		}
	}
	return base, redirect
}

// navigate applies outcome to rc. A redirect completes the response; a
// forward replaces the view root, re-rendering it whole for ajax requests.
func (s *Standard) navigate(rc *RequestContext, outcome string) error {
	nc, ok := s.nav.Resolve(rc.ViewID, outcome)
	if !ok {
		return nil
	}
	if nc.Redirect {
		if s.flash != nil {
			if err := s.flash.Keep(rc); err != nil {
				rc.Logger().Warn("keeping flash messages failed", "err", err)
			}
		}
		return Redirect(rc, rc.URL(nc.ViewID))
	}

	view, err := s.views.CreateView(rc, nc.ViewID)
	if err != nil {
		if nc.Implicit && errors.Is(err, ErrViewNotFound) {
			rc.Logger().Warn("no navigation case for outcome", "view_id", rc.ViewID, "outcome", outcome)
			return nil
		}
		return err
	}
	rc.SetViewRoot(view)
	if rc.Partial().IsAjax() {
		rc.Partial().SetRenderAll(true)
	}
	return nil
}

// Redirect sends the client to url and completes the response. Ajax
// requests get a partial-response redirect, other requests 303 See Other.
func Redirect(rc *RequestContext, url string) error {
	defer rc.ResponseCompleted()
	if !rc.Partial().IsAjax() {
		http.Redirect(rc.Response, rc.Request, url, http.StatusSeeOther)
		return nil
	}
	h := rc.Response.Header()
	h.Set("Content-Type", partial.ContentType)
	h.Set("Cache-Control", "no-cache")
	pw := partial.NewWriter(rc.Response)
	if err := pw.StartDocument(""); err != nil {
		return err
	}
	if err := pw.Redirect(url); err != nil {
		return err
	}
	return pw.EndDocument()
}
