package relgraph

// Category is the top-level grouping a relationship record belongs to.
type Category string

const (
	CategoryConcurrency  Category = "concurrency"
	CategoryLifecycle    Category = "lifecycle"
	CategoryControlFlow  Category = "control-flow"
	CategorySemantic     Category = "semantic"
	CategoryPreprocessor Category = "preprocessor"
	CategoryStructType   Category = "struct-type"
	CategoryVariable     Category = "variable"
)

// Status describes how a relationship instance completed.
type Status string

const (
	StatusNormal           Status = "normal"
	StatusLeaked           Status = "leaked"
	StatusDoubleAcquire    Status = "double-acquire"
	StatusReorderingRisk   Status = "reordering-risk"
	StatusUnmatchedRelease Status = "unmatched-release"
	StatusPolicyViolation  Status = "policy-violation"
)

// CallKind classifies a call-graph edge.
type CallKind string

const (
	CallDirect    CallKind = "direct"
	CallRecursive CallKind = "recursive"
	CallIndirect  CallKind = "indirect"
)

// UnresolvedReason explains why a reference could not be bound.
type UnresolvedReason string

const (
	ReasonNoCandidate UnresolvedReason = "no_candidate"
	ReasonAmbiguous   UnresolvedReason = "ambiguous"
	ReasonOpaqueExpr  UnresolvedReason = "opaque_expression"
)

// Location is a source position within the analyzed file.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Before orders locations by line, then column.
func (l Location) Before(other Location) bool {
	if l.Line != other.Line {
		return l.Line < other.Line
	}
	return l.Column < other.Column
}

// RoleEvent is one participating event of a relationship instance.
type RoleEvent struct {
	Role string   `json:"role"`
	Loc  Location `json:"loc"`
}

// Record is the finalized description of one relationship instance.
type Record struct {
	Category   Category    `json:"category"`
	Resource   string      `json:"resource,omitempty"`
	Identity   string      `json:"identity"`
	Events     []RoleEvent `json:"events"`
	Status     Status      `json:"status"`
	Confidence float64     `json:"confidence"`
	Note       string      `json:"note,omitempty"`
}

// Loc returns the record's anchor location, the first event's position.
func (r Record) Loc() Location {
	if len(r.Events) == 0 {
		return Location{}
	}
	return r.Events[0].Loc
}

// CallEdge is one resolved call-graph relationship.
type CallEdge struct {
	Caller     string   `json:"caller"`
	Callee     string   `json:"callee"`
	Kind       CallKind `json:"kind"`
	Confidence float64  `json:"confidence"`
	Loc        Location `json:"loc"`
}

// Region is a macro-guarded span of the file with its evaluation outcome.
type Region struct {
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	Condition  string `json:"condition"`
	Active     bool   `json:"active"`
	Unresolved bool   `json:"unresolved,omitempty"`
}

// AcquireEvent is one lock-family acquisition inside a function body.
type AcquireEvent struct {
	Identity string   `json:"identity"`
	Role     string   `json:"role"`
	Loc      Location `json:"loc"`
}

// AcquireSequence is the ordered list of acquisitions a function performs.
// Lock-order judgments (inversion, deadlock risk) are the consumer's job;
// the engine only exposes the sequences.
type AcquireSequence struct {
	Function string         `json:"function"`
	Acquires []AcquireEvent `json:"acquires"`
}

// Unresolved is a reference the engine observed but could not bind.
type Unresolved struct {
	Kind   string           `json:"kind"`
	Name   string           `json:"name"`
	Reason UnresolvedReason `json:"reason"`
	Loc    Location         `json:"loc"`
}
