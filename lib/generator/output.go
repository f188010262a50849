package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"strconv"
	"strings"
	"text/template"
)

const invokeImport = `"github.com/pthm/hxfaces/lib/invoke"`

// render produces the formatted handlers file.
func (g *Generator) render(pkgName string, handlers []*HandlerInfo, imports []string) ([]byte, error) {
	tmpl, err := template.New("hx").Funcs(template.FuncMap{
		"handler": handlerExpr,
	}).Parse(hxTemplate)
	if err != nil {
		return nil, err
	}

	var extra []string
	for _, spec := range imports {
		if spec != `"context"` && spec != invokeImport {
			extra = append(extra, spec)
		}
	}

	data := struct {
		Package  string
		FuncName string
		Imports  []string
		Handlers []*HandlerInfo
	}{
		Package:  pkgName,
		FuncName: g.opts.FuncName,
		Imports:  extra,
		Handlers: handlers,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format source: %w\n%s", err, buf.Bytes())
	}
	return formatted, nil
}

// handlerExpr writes the invoke.Func or invoke.Method call registering h.
func handlerExpr(h *HandlerInfo) string {
	var b strings.Builder

	params := make([]string, len(h.Params))
	for i, p := range h.Params {
		switch p.Source {
		case SourcePath:
			params[i] = "invoke.PathGroup(" + strconv.Quote(p.Key) + ")"
		case SourceQuery:
			params[i] = "invoke.Query(" + strconv.Quote(p.Key) + ")"
		case SourceHeader:
			params[i] = "invoke.Header(" + strconv.Quote(p.Key) + ")"
		default:
			params[i] = "invoke.Inject[" + p.Type + "]()"
		}
	}
	paramList := "nil"
	if len(params) > 0 {
		paramList = "[]invoke.Param{" + strings.Join(params, ", ") + "}"
	}

	if h.Receiver != "" {
		fmt.Fprintf(&b, "invoke.Method(%s, %s, %s, func(ctx context.Context, bean %s, args invoke.Args) (any, error) {\n",
			strconv.Quote(h.Name), strconv.Quote(h.Mapping), paramList, h.Receiver)
	} else {
		fmt.Fprintf(&b, "invoke.Func(%s, %s, %s, func(ctx context.Context, args invoke.Args) (any, error) {\n",
			strconv.Quote(h.Name), strconv.Quote(h.Mapping), paramList)
	}

	callArgs := []string{"ctx"}
	for i, p := range h.Params {
		v := fmt.Sprintf("a%d", i)
		callArgs = append(callArgs, v)
		switch {
		case p.Source == SourceInject:
			fmt.Fprintf(&b, "%s, err := invoke.Arg[%s](args, %d)\nif err != nil {\nreturn nil, err\n}\n", v, p.Type, i)
		case p.Type == "int":
			fmt.Fprintf(&b, "%s, err := args.Int(%d)\nif err != nil {\nreturn nil, err\n}\n", v, i)
		default:
			fmt.Fprintf(&b, "%s := args.String(%d)\n", v, i)
		}
	}

	target := h.Func
	if h.Receiver != "" {
		target = "bean." + h.Func
	}
	fmt.Fprintf(&b, "return %s(%s)\n})", target, strings.Join(callArgs, ", "))
	if h.Produces != "" {
		fmt.Fprintf(&b, ".WithProduces(%s)", strconv.Quote(h.Produces))
	}
	return b.String()
}

const hxTemplate = `// Code generated by hxfaces generate. DO NOT EDIT.

package {{.Package}}

import (
	"context"

	"github.com/pthm/hxfaces/lib/invoke"
{{- range .Imports}}
	{{.}}
{{- end}}
)

// {{.FuncName}} returns the handlers declared in this package, in source
// order. Pass them to invoke.Build.
func {{.FuncName}}() []*invoke.Handler {
	return []*invoke.Handler{
{{- range .Handlers}}
		// {{.SourceFile}}
		{{handler .}},
{{- end}}
	}
}
`
