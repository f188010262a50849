package example

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/pthm/hxfaces"
)

//go:generate go run github.com/pthm/hxfaces/cmd/hxfaces generate .

// ErrNoTodo reports a todo id that is not in the store. It answers 404.
var ErrNoTodo = fmt.Errorf("%w: no such todo", hxfaces.ErrNoMapping)

// Pages serves the action endpoints linked from the index view.
type Pages struct{ app *App }

// Row renders one todo as a list item.
//
//hxfaces:map regex:/todos/(?P<id>\d+)
//hxfaces:path id
func (p *Pages) Row(ctx context.Context, id int) (hxfaces.Result, error) {
	t, ok := p.app.Store.Get(id)
	if !ok {
		return hxfaces.NoContent().Status(http.StatusNotFound), nil
	}
	return hxfaces.Markup(row(p.app.actionPrefix(), t)), nil
}

// Add creates a todo from the title query parameter and answers with its row.
//
//hxfaces:map /todos/add
//hxfaces:query title
//hxfaces:header tags X-Todo-Tags
func (p *Pages) Add(ctx context.Context, title, tags string) (hxfaces.Result, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return hxfaces.NoContent().Status(http.StatusUnprocessableEntity), nil
	}
	var tt []Tag
	for _, f := range strings.Fields(strings.ReplaceAll(tags, ",", " ")) {
		tt = append(tt, Tag(f))
	}
	t := p.app.Store.Add(title, tt...)
	p.app.notify(ctx, "added", t.ID)
	return hxfaces.Markup(row(p.app.actionPrefix(), t)).
		Status(http.StatusCreated).
		Header("Location", p.app.actionPrefix()+"/todos/"+strconv.Itoa(t.ID)), nil
}

// Toggle flips a todo and returns to the index.
//
//hxfaces:map regex:/todos/(?P<id>\d+)/toggle
//hxfaces:path id
func (p *Pages) Toggle(ctx context.Context, id int) (hxfaces.Result, error) {
	if _, ok := p.app.Store.Toggle(id); !ok {
		return hxfaces.NoContent().Status(http.StatusNotFound), nil
	}
	p.app.notify(ctx, "toggled", id)
	return hxfaces.RedirectTo(p.app.home()), nil
}

// Delete removes a todo. Ajax callers get the redirect as a partial
// response.
//
//hxfaces:map regex:/todos/(?P<id>\d+)/delete
//hxfaces:path id
func (p *Pages) Delete(ctx context.Context, id int, rc *hxfaces.RequestContext) (hxfaces.Result, error) {
	if !p.app.Store.Delete(id) {
		return hxfaces.NoContent().Status(http.StatusNotFound), nil
	}
	p.app.notify(ctx, "deleted", id)
	rc.Logger().Info("todo deleted", "id", id, "ajax", rc.Partial().IsAjax())
	return hxfaces.RedirectTo(p.app.home()), nil
}

// API serves the todos as data.
type API struct{ app *App }

//hxfaces:map /todos
//hxfaces:produces application/json
//hxfaces:query status
func (a *API) List(ctx context.Context, status string) ([]Todo, error) {
	return a.app.Store.List(Status(status)), nil
}

//hxfaces:map regex:/todos/(?P<id>\d+)
//hxfaces:produces application/json
//hxfaces:path id
func (a *API) Show(ctx context.Context, id int) (*Todo, error) {
	t, ok := a.app.Store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoTodo, id)
	}
	return &t, nil
}

// Stats is served in the format the Accept header asks for.
//
//hxfaces:map /stats
func (a *API) Stats(ctx context.Context) (Stats, error) {
	return a.app.Store.Stats(), nil
}
