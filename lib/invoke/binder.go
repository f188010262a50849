package invoke

import (
	"context"
	"errors"
	"net/http"
)

// Binder produces handler arguments.
type Binder struct {
	Beans *Beans
}

// Produce returns the value for p. Sources are checked in a fixed order:
// header, path group, query parameter, then the managed-object registry.
func (b *Binder) Produce(ctx context.Context, r *http.Request, m Match, p Param) (any, error) {
	switch {
	case p.Header != "":
		return r.Header.Get(p.Header), nil
	case p.Path != "":
		v, ok := m.Pattern.Group(m.PathInfo, p.Path)
		if !ok {
			return nil, &BindingError{Param: p.Path, Pattern: m.Pattern.String(), PathInfo: m.PathInfo}
		}
		return v, nil
	case p.Query != "":
		return r.URL.Query().Get(p.Query), nil
	case p.Type != nil:
		if b.Beans == nil {
			return nil, &BindingError{Param: p.Name, Err: ErrNoProvider}
		}
		return b.Beans.Resolve(ctx, p.Type)
	}
	return nil, &BindingError{Param: p.Name, Err: errors.New("no source")}
}
