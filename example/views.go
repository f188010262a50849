package example

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
	"github.com/pthm/hxfaces"
)

// Client ids of the index view.
const (
	IDMessages = "msgs"
	IDForm     = "todos"
	IDTitle    = "todos:title"
	IDAdd      = "todos:add"
	IDClear    = "todos:clear"
	IDList     = "todos:list"
	IDStats    = "stats"
)

const maxTitle = 80

// views builds the component trees served by the Standard lifecycle.
func (a *App) views() hxfaces.Views {
	return hxfaces.Views{
		"/index": a.indexView,
	}
}

func (a *App) indexView(rc *hxfaces.RequestContext) *hxfaces.ViewRoot {
	var title string
	return &hxfaces.ViewRoot{
		Head: func(*hxfaces.RequestContext) templ.Component { return raw("<title>Todos</title>") },
		Components: []hxfaces.UIComponent{
			&messagesPanel{id: IDMessages},
			&hxfaces.Form{ID: IDForm, Kids: []hxfaces.UIComponent{
				&hxfaces.Input{
					ID:         IDTitle,
					Label:      "Title",
					Required:   true,
					Validators: []func(string) error{validTitle},
					Update: func(v string) error {
						title = v
						return nil
					},
				},
				&hxfaces.Button{ID: IDAdd, Label: "Add", OnAction: func(rc *hxfaces.RequestContext) (string, error) {
					t := a.Store.Add(title)
					rc.AddMessage(hxfaces.Message{Severity: hxfaces.SeverityInfo, Summary: "Added " + t.Title})
					a.notify(rc.Context(), "added", t.ID)
					return "", nil
				}},
				&hxfaces.Button{ID: IDClear, Label: "Clear completed", OnAction: func(rc *hxfaces.RequestContext) (string, error) {
					n := a.Store.ClearCompleted()
					rc.AddMessage(hxfaces.Message{Severity: hxfaces.SeverityInfo, Summary: fmt.Sprintf("Cleared %d", n)})
					a.notify(rc.Context(), "cleared", 0)
					return "index?faces-redirect=true", nil
				}},
				&todoList{id: IDList, app: a},
			}},
			&statsPanel{id: IDStats, store: a.Store},
		},
	}
}

func validTitle(v string) error {
	if len(v) > maxTitle {
		return &hxfaces.ValidationError{Summary: "Title too long", Detail: "at most " + strconv.Itoa(maxTitle) + " characters"}
	}
	return nil
}

func raw(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

// messagesPanel renders every queued message.
type messagesPanel struct{ id string }

func (m *messagesPanel) ClientID() string                { return m.id }
func (m *messagesPanel) Children() []hxfaces.UIComponent { return nil }

func (m *messagesPanel) Render(rc *hxfaces.RequestContext) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<div id="%s">`, templ.EscapeString(m.id)); err != nil {
			return err
		}
		if err := hxfaces.Messages(rc, "").Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

// todoList renders the todos, filtered by the "status" request parameter.
// Each row links to the toggle and delete actions.
type todoList struct {
	id  string
	app *App
}

func (l *todoList) ClientID() string                { return l.id }
func (l *todoList) Children() []hxfaces.UIComponent { return nil }

func (l *todoList) Render(rc *hxfaces.RequestContext) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		todos := l.app.Store.List(Status(rc.Param("status")))
		if _, err := fmt.Fprintf(w, `<ul id="%s">`, templ.EscapeString(l.id)); err != nil {
			return err
		}
		for _, t := range todos {
			if err := row(l.app.actionPrefix(), t).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	})
}

// row renders one todo with links to its toggle and delete actions.
func row(actions string, t Todo) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		class := "todo"
		if t.Done() {
			class += " done"
		}
		base := fmt.Sprintf("%s/todos/%d", actions, t.ID)
		_, err := fmt.Fprintf(w, `<li class="%s" id="todo-%d">%s <a href="%s/toggle">toggle</a> <a href="%s/delete">delete</a></li>`,
			class, t.ID, templ.EscapeString(t.Title), templ.EscapeString(base), templ.EscapeString(base))
		return err
	})
}

// statsPanel renders the store counters.
type statsPanel struct {
	id    string
	store *Store
}

func (s *statsPanel) ClientID() string                { return s.id }
func (s *statsPanel) Children() []hxfaces.UIComponent { return nil }

func (s *statsPanel) Render(*hxfaces.RequestContext) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		st := s.store.Stats()
		_, err := fmt.Fprintf(w, `<p id="%s">%d total, %d pending, %d completed</p>`,
			templ.EscapeString(s.id), st.Total, st.Pending, st.Completed)
		return err
	})
}
