// Package generator turns //hxfaces: directives on handler functions into
// invoke.Handler registrations.
//
// A handler takes a context.Context first and returns a value and an error:
//
//	// Show returns one order.
//	//
//	//hxfaces:map regex:/orders/(?P<id>\d+)
//	//hxfaces:produces application/json
//	//hxfaces:path id
//	func (s *Orders) Show(ctx context.Context, id int, rc *hxfaces.RequestContext) (*Order, error)
//
// Each remaining parameter is bound by a directive naming it:
//
//	//hxfaces:path <param> [group]    named regex group (default: param name)
//	//hxfaces:query <param> [key]     query parameter (default: param name)
//	//hxfaces:header <param> <Name>   request header
//
// Bound parameters must be string or int. Parameters without a directive are
// injected from the managed-object registry by type. Methods get their
// receiver from the registry too.
//
// The generator writes one handlers_hx.go per package with a function that
// returns the package's handlers in source order.
package generator

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Directive prefix recognized in doc comments.
const DirectivePrefix = "//hxfaces:"

// OutputFile is the name of the generated file in each package.
const OutputFile = "handlers_hx.go"

var ErrDirective = errors.New("generator: invalid directive")

// Options configures the generator.
type Options struct {
	DryRun bool
	// FuncName is the generated function's name. Default "Handlers".
	FuncName string
	// Out receives progress lines. Default os.Stdout.
	Out io.Writer
}

// Generator generates handler registrations.
type Generator struct {
	opts Options
	fset *token.FileSet
}

// New creates a new generator.
func New(opts Options) *Generator {
	if opts.FuncName == "" {
		opts.FuncName = "Handlers"
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Generator{
		opts: opts,
		fset: token.NewFileSet(),
	}
}

// Generate generates code for the given package patterns.
func (g *Generator) Generate(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, pkg := range packages {
		if err := g.generatePackage(pkg); err != nil {
			return fmt.Errorf("package %s: %w", pkg, err)
		}
	}

	return nil
}

// Clean removes generated files for the given package patterns.
func (g *Generator) Clean(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, pkg := range packages {
		if err := g.cleanPackage(pkg); err != nil {
			return fmt.Errorf("package %s: %w", pkg, err)
		}
	}

	return nil
}

// findPackages resolves package patterns to directory paths.
func (g *Generator) findPackages(patterns []string) ([]string, error) {
	var packages []string

	for _, pattern := range patterns {
		if !strings.HasSuffix(pattern, "/...") {
			packages = append(packages, pattern)
			continue
		}
		root := strings.TrimSuffix(pattern, "/...")
		if root == "" {
			root = "."
		}

		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			base := d.Name()
			if path != root && (strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") || base == "vendor" || base == "testdata") {
				return filepath.SkipDir
			}

			entries, err := os.ReadDir(path)
			if err != nil {
				return nil
			}
			for _, entry := range entries {
				if !entry.IsDir() && isSource(entry.Name()) {
					packages = append(packages, path)
					break
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return packages, nil
}

func isSource(name string) bool {
	return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go") && !strings.HasSuffix(name, "_hx.go")
}

// generatePackage writes the handlers file for one package directory, or
// removes a stale one when the package no longer declares handlers.
func (g *Generator) generatePackage(pkgPath string) error {
	pkgs, err := parser.ParseDir(g.fset, pkgPath, func(info os.FileInfo) bool {
		return isSource(info.Name())
	}, parser.ParseComments)
	if err != nil {
		return err
	}

	for pkgName, pkg := range pkgs {
		if strings.HasSuffix(pkgName, "_test") {
			continue
		}
		handlers, imports, err := g.findHandlers(pkg)
		if err != nil {
			return err
		}
		outputFile := filepath.Join(pkgPath, OutputFile)
		if len(handlers) == 0 {
			if _, err := os.Stat(outputFile); err == nil {
				fmt.Fprintf(g.opts.Out, "removing stale %s\n", outputFile)
				if !g.opts.DryRun {
					if err := os.Remove(outputFile); err != nil {
						return err
					}
				}
			}
			continue
		}
		fmt.Fprintf(g.opts.Out, "generating %s (%d handlers)\n", outputFile, len(handlers))
		if g.opts.DryRun {
			continue
		}
		code, err := g.render(pkgName, handlers, imports)
		if err != nil {
			return err
		}
		if err := os.WriteFile(outputFile, code, 0o644); err != nil {
			return err
		}
	}

	return nil
}

// cleanPackage removes generated files from a package.
func (g *Generator) cleanPackage(pkgPath string) error {
	entries, err := os.ReadDir(pkgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_hx.go") {
			continue
		}
		path := filepath.Join(pkgPath, entry.Name())
		fmt.Fprintf(g.opts.Out, "removing %s\n", path)
		if !g.opts.DryRun {
			if err := os.Remove(path); err != nil {
				return err
			}
		}
	}

	return nil
}

// Binding sources for handler parameters.
const (
	SourceInject = "inject"
	SourcePath   = "path"
	SourceQuery  = "query"
	SourceHeader = "header"
)

// HandlerInfo describes one annotated handler.
type HandlerInfo struct {
	SourceFile string
	Name       string // registration name, e.g. "Orders.Show"
	Func       string // function or method name
	Receiver   string // receiver type expression, "" for functions
	Mapping    string
	Produces   string
	Params     []ParamInfo
}

// ParamInfo is one handler parameter after the context.
type ParamInfo struct {
	Name   string
	Type   string
	Source string // one of the Source constants
	Key    string // group, query key or header name
}

type directives struct {
	mapping  string
	produces string
	bindings map[string]ParamInfo
}

// findHandlers returns the annotated handlers of pkg in file and line order,
// plus the import specs their parameter types need.
func (g *Generator) findHandlers(pkg *ast.Package) ([]*HandlerInfo, []string, error) {
	files := make([]string, 0, len(pkg.Files))
	for name := range pkg.Files {
		files = append(files, name)
	}
	sort.Strings(files)

	var handlers []*HandlerInfo
	imports := map[string]bool{}
	for _, filename := range files {
		file := pkg.Files[filename]
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Doc == nil {
				continue
			}
			d, err := parseDirectives(fn.Doc)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %s: %w", g.fset.Position(fn.Pos()), fn.Name.Name, err)
			}
			if d == nil {
				continue
			}
			h, err := g.handlerInfo(filename, fn, d)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %s: %w", g.fset.Position(fn.Pos()), fn.Name.Name, err)
			}
			for _, spec := range usedImports(file, fn) {
				imports[spec] = true
			}
			handlers = append(handlers, h)
		}
	}

	specs := make([]string, 0, len(imports))
	for s := range imports {
		specs = append(specs, s)
	}
	sort.Strings(specs)
	return handlers, specs, nil
}

// parseDirectives reads the //hxfaces: lines of a doc comment. It returns
// nil when there are none.
func parseDirectives(doc *ast.CommentGroup) (*directives, error) {
	var d *directives
	for _, c := range doc.List {
		if !strings.HasPrefix(c.Text, DirectivePrefix) {
			continue
		}
		if d == nil {
			d = &directives{bindings: map[string]ParamInfo{}}
		}
		fields := strings.Fields(strings.TrimPrefix(c.Text, DirectivePrefix))
		if len(fields) == 0 {
			return nil, fmt.Errorf("%w: empty directive", ErrDirective)
		}
		verb, args := fields[0], fields[1:]
		switch verb {
		case "map":
			if len(args) != 1 {
				return nil, fmt.Errorf("%w: map takes one pattern", ErrDirective)
			}
			d.mapping = args[0]
		case "produces":
			if len(args) != 1 {
				return nil, fmt.Errorf("%w: produces takes one media type", ErrDirective)
			}
			d.produces = args[0]
		case SourcePath, SourceQuery:
			if len(args) < 1 || len(args) > 2 {
				return nil, fmt.Errorf("%w: %s takes a parameter and an optional key", ErrDirective, verb)
			}
			key := args[0]
			if len(args) == 2 {
				key = args[1]
			}
			d.bindings[args[0]] = ParamInfo{Name: args[0], Source: verb, Key: key}
		case SourceHeader:
			if len(args) != 2 {
				return nil, fmt.Errorf("%w: header takes a parameter and a header name", ErrDirective)
			}
			d.bindings[args[0]] = ParamInfo{Name: args[0], Source: verb, Key: args[1]}
		default:
			return nil, fmt.Errorf("%w: unknown verb %q", ErrDirective, verb)
		}
	}
	if d != nil && d.mapping == "" {
		return nil, fmt.Errorf("%w: missing map", ErrDirective)
	}
	return d, nil
}

func (g *Generator) handlerInfo(filename string, fn *ast.FuncDecl, d *directives) (*HandlerInfo, error) {
	h := &HandlerInfo{
		SourceFile: filepath.Base(filename),
		Name:       fn.Name.Name,
		Func:       fn.Name.Name,
		Mapping:    d.mapping,
		Produces:   d.produces,
	}
	if fn.Recv != nil && len(fn.Recv.List) == 1 {
		h.Receiver = typeToString(fn.Recv.List[0].Type)
		h.Name = strings.TrimPrefix(h.Receiver, "*") + "." + h.Func
	}
	if fn.Type.TypeParams != nil {
		return nil, fmt.Errorf("%w: generic handlers are not supported", ErrDirective)
	}

	params := fn.Type.Params.List
	if len(params) == 0 || typeToString(params[0].Type) != "context.Context" || len(params[0].Names) > 1 {
		return nil, fmt.Errorf("%w: first parameter must be a single context.Context", ErrDirective)
	}
	if res := fn.Type.Results; res == nil || res.NumFields() != 2 || typeToString(res.List[len(res.List)-1].Type) != "error" {
		return nil, fmt.Errorf("%w: handler must return (T, error)", ErrDirective)
	}

	seen := map[string]bool{}
	for _, field := range params[1:] {
		typ := typeToString(field.Type)
		if len(field.Names) == 0 {
			return nil, fmt.Errorf("%w: parameters must be named", ErrDirective)
		}
		for _, name := range field.Names {
			p, bound := d.bindings[name.Name]
			if !bound {
				p = ParamInfo{Name: name.Name, Source: SourceInject}
			} else if typ != "string" && typ != "int" {
				return nil, fmt.Errorf("%w: %s parameter %s must be string or int, not %s", ErrDirective, p.Source, name.Name, typ)
			}
			p.Type = typ
			seen[name.Name] = true
			h.Params = append(h.Params, p)
		}
	}
	for name := range d.bindings {
		if !seen[name] {
			return nil, fmt.Errorf("%w: directive names unknown parameter %q", ErrDirective, name)
		}
	}
	return h, nil
}

// usedImports returns the import specs of file whose package name is used
// as a qualifier in fn's receiver or parameter types.
func usedImports(file *ast.File, fn *ast.FuncDecl) []string {
	used := map[string]bool{}
	collect := func(fl *ast.FieldList) {
		if fl == nil {
			return
		}
		for _, f := range fl.List {
			ast.Inspect(f.Type, func(n ast.Node) bool {
				if sel, ok := n.(*ast.SelectorExpr); ok {
					if id, ok := sel.X.(*ast.Ident); ok {
						used[id.Name] = true
					}
				}
				return true
			})
		}
	}
	collect(fn.Recv)
	collect(&ast.FieldList{List: fn.Type.Params.List[1:]})

	var specs []string
	for _, imp := range file.Imports {
		name := importName(strings.Trim(imp.Path.Value, `"`))
		if imp.Name != nil {
			name = imp.Name.Name
		}
		if used[name] {
			if imp.Name != nil {
				specs = append(specs, imp.Name.Name+" "+imp.Path.Value)
			} else {
				specs = append(specs, imp.Path.Value)
			}
		}
	}
	return specs
}

// importName guesses the package name of an unnamed import from its path,
// skipping major version suffixes.
func importName(path string) string {
	parts := strings.Split(path, "/")
	name := parts[len(parts)-1]
	if len(parts) > 1 && len(name) > 1 && name[0] == 'v' && strings.Trim(name[1:], "0123456789") == "" {
		name = parts[len(parts)-2]
	}
	if i := strings.Index(name, ".v"); i > 0 && strings.HasPrefix(path, "gopkg.in/") {
		name = name[:i]
	}
	return strings.TrimPrefix(name, "go-")
}

// typeToString converts an AST type to its source form.
func typeToString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + typeToString(t.X)
	case *ast.SelectorExpr:
		return typeToString(t.X) + "." + t.Sel.Name
	case *ast.ArrayType:
		if t.Len == nil {
			return "[]" + typeToString(t.Elt)
		}
		return "[...]" + typeToString(t.Elt)
	case *ast.MapType:
		return "map[" + typeToString(t.Key) + "]" + typeToString(t.Value)
	case *ast.IndexExpr:
		return typeToString(t.X) + "[" + typeToString(t.Index) + "]"
	case *ast.InterfaceType:
		return "any"
	default:
		return fmt.Sprintf("%T", expr)
	}
}
