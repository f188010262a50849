package hxfaces

import (
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"testing"
)

const sampleDoc = `<?xml version='1.0' encoding='UTF-8'?>
<partial-response id="j_id1"><changes>` +
	`<update id="list"><![CDATA[<ul>]]]]><![CDATA[></ul>]]></update>` +
	`<eval><![CDATA[init()]]></eval>` +
	`<attributes id="name"><attribute name="class" value="bad"/></attributes>` +
	`<update id="jakarta.faces.ViewState"><![CDATA[tok]]></update>` +
	`<extension ln="chat"><n>1</n></extension>` +
	`</changes></partial-response>`

func TestParsePartial(t *testing.T) {
	doc, err := ParsePartial(sampleDoc)
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID != "j_id1" {
		t.Errorf("ID = %q", doc.ID)
	}
	if got, want := doc.Kinds(), []string{"update", "eval", "attributes", "update", "extension"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Kinds() = %v, want %v", got, want)
	}
	if got, want := doc.Updates(), []string{"list", ViewStateParam}; !reflect.DeepEqual(got, want) {
		t.Errorf("Updates() = %v, want %v", got, want)
	}
	if body, ok := doc.Update("list"); !ok || body != "<ul>]]></ul>" {
		t.Errorf("Update(list) = %q, %v", body, ok)
	}
	if _, ok := doc.Update("missing"); ok {
		t.Error("Update(missing) found")
	}
	attrs := doc.Changes.Items[2].Inner
	if len(attrs) != 1 || attrs[0].XMLName.Local != "attribute" {
		t.Errorf("attributes children = %+v", attrs)
	}

	if _, err := ParsePartial("<html>"); err == nil {
		t.Error("ParsePartial accepted a non-document")
	}
}

func TestResultAssertions(t *testing.T) {
	tests := []struct {
		name string
		res  *TestResult
		url  string
		want bool
	}{
		{"see other", &TestResult{StatusCode: http.StatusSeeOther, Headers: http.Header{"Location": {"/next"}}}, "/next", true},
		{"other location", &TestResult{StatusCode: http.StatusSeeOther, Headers: http.Header{"Location": {"/else"}}}, "/next", false},
		{"found is not see other", &TestResult{StatusCode: http.StatusFound, Headers: http.Header{"Location": {"/next"}}}, "/next", false},
		{"partial redirect", mustParse(t, `<partial-response><redirect url="/next"/></partial-response>`), "/next", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.RedirectedTo(tt.url); got != tt.want {
				t.Errorf("RedirectedTo(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func mustParse(t *testing.T, body string) *TestResult {
	t.Helper()
	doc, err := ParsePartial(body)
	if err != nil {
		t.Fatal(err)
	}
	return &TestResult{Body: body, StatusCode: http.StatusOK, Headers: http.Header{}, Partial: doc}
}

func TestTestRequestHelpers(t *testing.T) {
	std := newTextLifecycle(t, "/hello", "hi")

	res := TestGet(std, "/app/hello", TestPrefix("/app"))
	if !res.IsOK() || !res.HasHeader("Content-Type", "text/html; charset=utf-8") {
		t.Fatalf("got %d %v", res.StatusCode, res.Headers)
	}
	if !res.BodyContainsAll(`<span id="greeting">hi</span>`, "<!DOCTYPE html>") {
		t.Errorf("body = %q", res.Body)
	}
	if res.Context.PathInfo != "/hello" || res.Context.State() != StateRendered {
		t.Errorf("path info %q state %v", res.Context.PathInfo, res.Context.State())
	}

	ajax := TestAjax(std, "/hello", nil)
	if ajax.Partial == nil {
		t.Fatalf("ajax response not parsed: %q", ajax.Body)
	}
	if !ajax.HasStatus(http.StatusOK) || ajax.BodyContains("<!DOCTYPE") {
		t.Errorf("ajax response = %d %q", ajax.StatusCode, ajax.Body)
	}

	ajax.Context.AddMessage(Message{Severity: SeverityWarn, Summary: "careful"})
	if !ajax.HasMessage(SeverityWarn, "careful") || ajax.HasMessage(SeverityError, "careful") {
		t.Error("HasMessage mismatch")
	}
}

func newTextLifecycle(t *testing.T, viewID, value string) *Standard {
	t.Helper()
	std, err := NewStandard(Views{
		viewID: func(*RequestContext) *ViewRoot {
			return &ViewRoot{Components: []UIComponent{
				&Text{ID: "greeting", Value: func(*RequestContext) string { return value }},
			}}
		},
	}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatal(err)
	}
	return std
}
