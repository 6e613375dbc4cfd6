package types

// OpKind is the kind of a batch operation.
type OpKind int

// Operation kinds.
const (
	OpInsert OpKind = iota
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Operation is one step of an ApplyBatch call.
type Operation struct {
	Kind      OpKind
	URI       string
	Values    Values
	Selection string
	Args      []any
	// FromSync marks the operation as coming from the trusted sync
	// collaborator. It has the same effect as the caller_is_syncadapter
	// identifier parameter.
	FromSync bool
}

// Result is the outcome of one applied operation. Inserts fill URI, updates
// and deletes fill Count.
type Result struct {
	URI   string
	Count int64
}

// NewInsert returns an insert operation.
func NewInsert(uri string, values Values) Operation {
	return Operation{Kind: OpInsert, URI: uri, Values: values}
}

// NewUpdate returns an update operation.
func NewUpdate(uri string, values Values, selection string, args ...any) Operation {
	return Operation{Kind: OpUpdate, URI: uri, Values: values, Selection: selection, Args: args}
}

// NewDelete returns a delete operation.
func NewDelete(uri string, selection string, args ...any) Operation {
	return Operation{Kind: OpDelete, URI: uri, Selection: selection, Args: args}
}
