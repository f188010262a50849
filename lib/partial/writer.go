// Package partial implements the partial-response wire format used to answer
// ajax requests with incremental DOM changes instead of a full page.
//
// A document has the shape:
//
//	<partial-response>
//	  <changes>
//	    (update | insert | delete | eval | attributes)*
//	    extension?
//	  </changes>
//	  | <redirect url=".."/>
//	  | <error>...</error>
//	</partial-response>
//
// The Writer is forward-only. Calls that would break the grammar return an
// error wrapping ErrProtocolViolation and write nothing, so a caller can
// still fall back to StartError to report the failure.
package partial

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Reserved target identifiers understood by the client side.
const (
	ViewRootID  = "jakarta.faces.ViewRoot"
	ViewHeadID  = "jakarta.faces.ViewHead"
	ViewBodyID  = "jakarta.faces.ViewBody"
	ViewStateID = "jakarta.faces.ViewState"
)

// ContentType is the media type of a partial response.
const ContentType = "text/xml; charset=utf-8"

// ErrProtocolViolation is wrapped by every grammar error returned by Writer.
var ErrProtocolViolation = errors.New("partial: protocol violation")

type region int

const (
	regionNone region = iota
	regionUpdate
	regionInsertBefore
	regionInsertAfter
	regionEval
	regionExtension
	regionError
)

func (r region) String() string {
	switch r {
	case regionUpdate:
		return "update"
	case regionInsertBefore:
		return "insert before"
	case regionInsertAfter:
		return "insert after"
	case regionEval:
		return "eval"
	case regionExtension:
		return "extension"
	case regionError:
		return "error"
	default:
		return "none"
	}
}

type docState int

const (
	docNew docState = iota
	docOpen
	docClosed
)

// Writer emits a single partial-response document onto an io.Writer.
type Writer struct {
	out      io.Writer
	encoding string

	doc       docState
	inChanges bool
	region    region
	cdata     *cdataWriter

	changesWritten bool
	extensionDone  bool
	redirected     bool
	errored        bool

	elements []string // open elements inside an extension
	err      error    // sticky I/O error
}

// NewWriter returns a Writer that emits UTF-8 documents.
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: w, encoding: "UTF-8"}
}

// Err returns the first I/O error encountered while writing, if any.
func (pw *Writer) Err() error {
	return pw.err
}

// Open reports whether the document has been started and not yet ended.
func (pw *Writer) Open() bool {
	return pw.doc == docOpen
}

// StartDocument writes the XML preamble and opens <partial-response>.
// viewRootID is written as the id attribute when non-empty.
func (pw *Writer) StartDocument(viewRootID string) error {
	if pw.doc != docNew {
		return violation("document already started")
	}
	pw.doc = docOpen
	pw.raw("<?xml version='1.0' encoding='" + pw.encoding + "'?>\n")
	pw.raw("<partial-response")
	if viewRootID != "" {
		pw.attr("id", viewRootID)
	}
	pw.raw(">")
	return pw.err
}

// EndDocument closes <changes> if open and then </partial-response>.
func (pw *Writer) EndDocument() error {
	if pw.doc != docOpen {
		return violation("document not started")
	}
	if pw.region != regionNone {
		return violation("end document inside open " + pw.region.String())
	}
	pw.endChanges()
	pw.raw("</partial-response>")
	pw.doc = docClosed
	return pw.err
}

// StartUpdate opens <update id=".."> with a CDATA body.
func (pw *Writer) StartUpdate(targetID string) error {
	if err := pw.beginChange("update"); err != nil {
		return err
	}
	pw.raw("<update")
	pw.attr("id", targetID)
	pw.raw(">")
	pw.openCDATA(regionUpdate)
	return pw.err
}

// EndUpdate closes the current update.
func (pw *Writer) EndUpdate() error {
	if pw.region != regionUpdate {
		return violation("end update without start")
	}
	pw.closeCDATA()
	pw.raw("</update>")
	return pw.err
}

// StartInsertBefore opens <insert><before id="..">.
func (pw *Writer) StartInsertBefore(targetID string) error {
	return pw.startInsert("before", regionInsertBefore, targetID)
}

// StartInsertAfter opens <insert><after id="..">.
func (pw *Writer) StartInsertAfter(targetID string) error {
	return pw.startInsert("after", regionInsertAfter, targetID)
}

func (pw *Writer) startInsert(name string, r region, targetID string) error {
	if err := pw.beginChange("insert"); err != nil {
		return err
	}
	pw.raw("<insert><" + name)
	pw.attr("id", targetID)
	pw.raw(">")
	pw.openCDATA(r)
	return pw.err
}

// EndInsert closes the current insert, whichever side it targets.
func (pw *Writer) EndInsert() error {
	var name string
	switch pw.region {
	case regionInsertBefore:
		name = "before"
	case regionInsertAfter:
		name = "after"
	default:
		return violation("end insert without start")
	}
	pw.closeCDATA()
	pw.raw("</" + name + "></insert>")
	return pw.err
}

// Delete writes <delete id=".."/>.
func (pw *Writer) Delete(targetID string) error {
	if err := pw.beginChange("delete"); err != nil {
		return err
	}
	pw.raw("<delete")
	pw.attr("id", targetID)
	pw.raw("/>")
	return pw.err
}

// UpdateAttributes writes an <attributes> change. Attributes are emitted in
// key order so output is stable.
func (pw *Writer) UpdateAttributes(targetID string, attrs map[string]string) error {
	if err := pw.beginChange("attributes"); err != nil {
		return err
	}
	pw.raw("<attributes")
	pw.attr("id", targetID)
	pw.raw(">")
	for _, k := range sortedKeys(attrs) {
		pw.raw("<attribute")
		pw.attr("name", k)
		pw.attr("value", attrs[k])
		pw.raw("/>")
	}
	pw.raw("</attributes>")
	return pw.err
}

// StartEval opens <eval> with a CDATA script body.
func (pw *Writer) StartEval() error {
	if err := pw.beginChange("eval"); err != nil {
		return err
	}
	pw.raw("<eval>")
	pw.openCDATA(regionEval)
	return pw.err
}

// EndEval closes the current eval.
func (pw *Writer) EndEval() error {
	if pw.region != regionEval {
		return violation("end eval without start")
	}
	pw.closeCDATA()
	pw.raw("</eval>")
	return pw.err
}

// StartExtension opens the <extension> element. It may appear once per
// changes block and nothing but EndDocument may follow its EndExtension.
func (pw *Writer) StartExtension(attrs map[string]string) error {
	if err := pw.beginChange("extension"); err != nil {
		return err
	}
	pw.raw("<extension")
	for _, k := range sortedKeys(attrs) {
		pw.attr(k, attrs[k])
	}
	pw.raw(">")
	pw.region = regionExtension
	return pw.err
}

// EndExtension closes the extension. Elements opened inside it must be closed.
func (pw *Writer) EndExtension() error {
	if pw.region != regionExtension {
		return violation("end extension without start")
	}
	if len(pw.elements) > 0 {
		return violation("unclosed element <" + pw.elements[len(pw.elements)-1] + "> in extension")
	}
	pw.raw("</extension>")
	pw.region = regionNone
	pw.extensionDone = true
	return pw.err
}

// StartElement opens a child element inside an extension.
func (pw *Writer) StartElement(name string, attrs map[string]string) error {
	if pw.region != regionExtension {
		return violation("element <" + name + "> outside extension")
	}
	pw.raw("<" + name)
	for _, k := range sortedKeys(attrs) {
		pw.attr(k, attrs[k])
	}
	pw.raw(">")
	pw.elements = append(pw.elements, name)
	return pw.err
}

// EndElement closes the innermost element opened with StartElement.
func (pw *Writer) EndElement(name string) error {
	n := len(pw.elements)
	if pw.region != regionExtension || n == 0 || pw.elements[n-1] != name {
		return violation("mismatched end element </" + name + ">")
	}
	pw.elements = pw.elements[:n-1]
	pw.raw("</" + name + ">")
	return pw.err
}

// Text writes escaped character data inside an extension element.
func (pw *Writer) Text(s string) error {
	if pw.region != regionExtension {
		return violation("text outside extension")
	}
	pw.raw(textEscaper.Replace(s))
	return pw.err
}

// Redirect writes <redirect url=".."/>. It is only legal as the sole child of
// the document.
func (pw *Writer) Redirect(url string) error {
	if pw.doc != docOpen {
		return violation("redirect outside document")
	}
	if pw.changesWritten || pw.region != regionNone || pw.redirected || pw.errored {
		return violation("redirect must be the only child of partial-response")
	}
	pw.raw("<redirect")
	pw.attr("url", url)
	pw.raw("/>")
	pw.redirected = true
	return pw.err
}

// StartError opens an <error> element. Unlike every other start call it
// closes any open region and the changes block first, so it can report a
// failure from whatever state rendering stopped in.
func (pw *Writer) StartError(errorName string) error {
	if pw.doc != docOpen {
		return violation("error outside document")
	}
	if pw.errored || pw.redirected {
		return violation("error after terminal element")
	}
	pw.abandonRegion()
	pw.endChanges()
	pw.raw("<error><error-name>")
	pw.raw(textEscaper.Replace(errorName))
	pw.raw("</error-name><error-message>")
	pw.openCDATA(regionError)
	pw.errored = true
	return pw.err
}

// EndError closes the error element.
func (pw *Writer) EndError() error {
	if pw.region != regionError {
		return violation("end error without start")
	}
	pw.closeCDATA()
	pw.raw("</error-message></error>")
	return pw.err
}

// Write appends body content to the open update, insert, eval or error
// region, splitting CDATA sections where the content contains "]]>".
// Inside an extension the bytes are escaped as text.
func (pw *Writer) Write(p []byte) (int, error) {
	switch pw.region {
	case regionUpdate, regionInsertBefore, regionInsertAfter, regionEval, regionError:
		pw.cdata.write(p)
		if pw.err == nil {
			pw.err = pw.cdata.err
		}
		if pw.err != nil {
			return 0, pw.err
		}
		return len(p), nil
	case regionExtension:
		if err := pw.Text(string(p)); err != nil {
			return 0, err
		}
		return len(p), nil
	default:
		return 0, violation("write outside a change body")
	}
}

// WriteString is Write for strings.
func (pw *Writer) WriteString(s string) (int, error) {
	return pw.Write([]byte(s))
}

func (pw *Writer) beginChange(name string) error {
	if pw.doc != docOpen {
		return violation(name + " outside document")
	}
	if pw.region != regionNone {
		return violation(fmt.Sprintf("%s started inside open %s", name, pw.region))
	}
	if pw.redirected || pw.errored {
		return violation(name + " after terminal element")
	}
	if pw.extensionDone {
		return violation(name + " after extension")
	}
	if !pw.inChanges {
		pw.raw("<changes>")
		pw.inChanges = true
	}
	pw.changesWritten = true
	return nil
}

func (pw *Writer) endChanges() {
	if pw.inChanges {
		pw.raw("</changes>")
		pw.inChanges = false
	}
}

// abandonRegion terminates whatever is open so an error can be reported.
func (pw *Writer) abandonRegion() {
	switch pw.region {
	case regionUpdate:
		pw.closeCDATA()
		pw.raw("</update>")
	case regionInsertBefore:
		pw.closeCDATA()
		pw.raw("</before></insert>")
	case regionInsertAfter:
		pw.closeCDATA()
		pw.raw("</after></insert>")
	case regionEval:
		pw.closeCDATA()
		pw.raw("</eval>")
	case regionExtension:
		for i := len(pw.elements) - 1; i >= 0; i-- {
			pw.raw("</" + pw.elements[i] + ">")
		}
		pw.elements = nil
		pw.raw("</extension>")
		pw.region = regionNone
	}
}

func (pw *Writer) openCDATA(r region) {
	pw.region = r
	pw.cdata = &cdataWriter{out: pw.out}
	pw.raw("<![CDATA[")
}

func (pw *Writer) closeCDATA() {
	pw.raw("]]>")
	pw.cdata = nil
	pw.region = regionNone
}

func (pw *Writer) attr(name, value string) {
	pw.raw(" " + name + `="` + attrEscaper.Replace(value) + `"`)
}

func (pw *Writer) raw(s string) {
	if pw.err != nil {
		return
	}
	_, pw.err = io.WriteString(pw.out, s)
}

// cdataWriter copies bytes into an open CDATA section. A "]]>" sequence is
// split as "]]" + "]]><![CDATA[" + ">" so the section never terminates early,
// including when the sequence straddles two writes.
type cdataWriter struct {
	out      io.Writer
	brackets int
	err      error
}

func (c *cdataWriter) write(p []byte) {
	start := 0
	for i, b := range p {
		switch {
		case b == ']':
			if c.brackets < 2 {
				c.brackets++
			}
		case b == '>' && c.brackets == 2:
			c.emit(p[start:i])
			c.emit([]byte("]]><![CDATA["))
			start = i
			c.brackets = 0
		default:
			c.brackets = 0
		}
	}
	c.emit(p[start:])
}

func (c *cdataWriter) emit(p []byte) {
	if c.err != nil || len(p) == 0 {
		return
	}
	_, c.err = c.out.Write(p)
}

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"\n", "&#10;",
	"\r", "&#13;",
	"\t", "&#9;",
)

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func violation(detail string) error {
	return fmt.Errorf("%w: %s", ErrProtocolViolation, detail)
}
