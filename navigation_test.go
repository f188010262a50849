package hxfaces

import "testing"

func TestNavigationResolve(t *testing.T) {
	nav := NewNavigationHandler(
		NavigationRule{From: "/cart", Outcome: "checkout", To: "/checkout/address"},
		NavigationRule{From: "*", Outcome: "checkout", To: "/login", Redirect: true},
		NavigationRule{Outcome: "home", To: "/index"},
	)

	tests := []struct {
		name    string
		from    string
		outcome string
		want    NavigationCase
		ok      bool
	}{
		{"empty outcome stays", "/cart", "", NavigationCase{}, false},
		{"exact from beats wildcard", "/cart", "checkout", NavigationCase{ViewID: "/checkout/address"}, true},
		{"wildcard rule", "/orders", "checkout", NavigationCase{ViewID: "/login", Redirect: true}, true},
		{"empty from matches all", "/a/b", "home", NavigationCase{ViewID: "/index"}, true},
		{"redirect suffix on rule", "/cart", "checkout?faces-redirect=true", NavigationCase{ViewID: "/checkout/address", Redirect: true}, true},
		{"implicit absolute", "/cart", "/orders/list", NavigationCase{ViewID: "/orders/list", Implicit: true}, true},
		{"implicit relative", "/orders/list", "detail", NavigationCase{ViewID: "/orders/detail", Implicit: true}, true},
		{"implicit with redirect", "/orders/list", "../cart?x=1&faces-redirect=true", NavigationCase{ViewID: "/cart", Redirect: true, Implicit: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := nav.Resolve(tt.from, tt.outcome)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Resolve(%q, %q) = %+v, %v; want %+v, %v", tt.from, tt.outcome, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNavigationResolveNilHandler(t *testing.T) {
	var nav *NavigationHandler
	got, ok := nav.Resolve("/a", "b")
	if !ok || got.ViewID != "/b" || !got.Implicit {
		t.Errorf("Resolve() = %+v, %v", got, ok)
	}
}
