// Package hxfaces runs server-rendered component views through a fixed
// request lifecycle and answers ajax requests with partial-response
// documents.
//
// # Lifecycles
//
// Three lifecycles share one front controller, the Registry, which picks
// one by the longest mounted URL prefix:
//
//	reg := hxfaces.NewRegistry()
//	reg.Mount("/", std)      // *Standard: component views
//	reg.Mount("/do", action) // *ActionLifecycle: handler returns a view or markup
//	reg.Mount("/api", rest)  // *RestLifecycle: handler result serialized
//	http.ListenAndServe(":8080", reg)
//
// Each request gets a RequestContext and moves CREATED, EXECUTED, RENDERED,
// or FAILED when a step returns an error.
//
// # Standard Phases
//
// The Standard lifecycle executes RESTORE_VIEW, APPLY_REQUEST_VALUES,
// PROCESS_VALIDATIONS, UPDATE_MODEL_VALUES and INVOKE_APPLICATION, then
// renders in RENDER_RESPONSE. Before each phase it checks the render-response
// and response-complete flags; either one stops execution early.
//
// Phase listeners observe every phase or a single one:
//
//	std.Listeners.Add(&hxfaces.ListenerFuncs{
//	    Phase: hxfaces.AnyPhase,
//	    Before: func(e hxfaces.PhaseEvent) error {
//	        slog.Debug("phase", "phase", e.Phase)
//	        return nil
//	    },
//	})
//
// Before callbacks run in registration order and after callbacks in reverse,
// only for listeners whose before callback succeeded. Errors from listeners
// and phase bodies are queued with the FaultHandler, which drops aborts and
// returns the first real failure as a *LifecycleError.
//
// # Views and Components
//
// A view is a tree of UIComponent values built fresh for each request by a
// ViewFactory. Components opt into phases by implementing Decoder,
// Validator, ModelUpdater and ActionSource; StateHolder components keep their
// local state across postbacks in the view state token.
//
//	views := hxfaces.Views{
//	    "/login": func(rc *hxfaces.RequestContext) *hxfaces.ViewRoot {
//	        return &hxfaces.ViewRoot{Components: []hxfaces.UIComponent{
//	            &hxfaces.Form{ID: "login", Kids: []hxfaces.UIComponent{
//	                &hxfaces.Input{ID: "login:name", Required: true},
//	                &hxfaces.Button{ID: "login:go", OnAction: login},
//	            }},
//	        }}
//	    },
//	}
//	std, err := hxfaces.NewStandard(views)
//
// An action's outcome is resolved by the NavigationHandler. Rules map an
// outcome from a view to another view; any other outcome is taken as a view
// id relative to the current one. A "faces-redirect=true" query turns the
// navigation into a redirect.
//
// # Partial Requests
//
// A request with the Faces-Request: partial/ajax header is a partial request.
// The execute list limits which components take part in the execute phases;
// the render list names the components whose markup is sent back:
//
//	<button { hxfaces.AjaxAttrs("login:go", "login", "msgs login")... }>
//
// The response is a partial-response document written by lib/partial.
// Handlers can queue further changes on rc.Partial(): Eval, Delete,
// InsertBefore, InsertAfter, Attributes and Extension.
//
// # State Saving
//
// View state is saved on the client as a signed or encrypted token, or on
// the server in memory or Redis with only a key sent to the client. See
// StateFromConfig.
//
// # Code Generation
//
// Run 'hxfaces generate' to turn //hxfaces: directives on handler methods
// into invoke.Handler registrations for the Action and REST lifecycles.
package hxfaces
