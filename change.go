package hxfaces

// ChangeKind is the kind of one mutation in a partial response.
//
// Each kind corresponds to one child element of <changes>, written in the
// order queued. Extensions and redirects are not changes: PartialContext
// holds them separately so the extension is written last and a redirect
// replaces the whole document.
type ChangeKind int

const (
	// ChangeUpdate replaces the target element, including its tag, with the
	// rendered markup. This is what a render id produces.
	ChangeUpdate ChangeKind = iota

	// ChangeInsertBefore inserts markup as the previous sibling of the target.
	ChangeInsertBefore

	// ChangeInsertAfter inserts markup as the next sibling of the target.
	ChangeInsertAfter

	// ChangeDelete removes the target element.
	ChangeDelete

	// ChangeEval runs a script on the client once the preceding changes
	// have been applied.
	ChangeEval

	// ChangeAttributes sets attributes on the target element.
	ChangeAttributes
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeUpdate:
		return "update"
	case ChangeInsertBefore:
		return "insert-before"
	case ChangeInsertAfter:
		return "insert-after"
	case ChangeDelete:
		return "delete"
	case ChangeEval:
		return "eval"
	case ChangeAttributes:
		return "attributes"
	}
	return "unknown"
}
