package relgraph

import "sort"

// Graph is the per-file aggregation of everything the engine emitted.
// It is owned by a single analysis run and read-only once built.
type Graph struct {
	File       string
	Language   string
	Records    []Record
	CallEdges  []CallEdge
	Regions    []Region
	Sequences  []AcquireSequence
	Unresolved []Unresolved

	byCategory map[Category][]Record
}

// Builder accumulates engine output and produces an immutable Graph.
type Builder struct {
	g Graph
}

// NewBuilder creates a builder for one file's analysis run.
func NewBuilder(file, language string) *Builder {
	return &Builder{g: Graph{File: file, Language: language}}
}

func (b *Builder) AddRecord(r Record) {
	b.g.Records = append(b.g.Records, r)
}

func (b *Builder) AddCallEdge(e CallEdge) {
	b.g.CallEdges = append(b.g.CallEdges, e)
}

func (b *Builder) AddRegion(r Region) {
	b.g.Regions = append(b.g.Regions, r)
}

func (b *Builder) AddSequence(s AcquireSequence) {
	if len(s.Acquires) == 0 {
		return
	}
	b.g.Sequences = append(b.g.Sequences, s)
}

func (b *Builder) AddUnresolved(u Unresolved) {
	b.g.Unresolved = append(b.g.Unresolved, u)
}

// Build finalizes the graph. Ordering is derived from source locations
// (insertion order breaks ties), never from map iteration, so identical
// input always yields an identical graph.
func (b *Builder) Build() *Graph {
	g := b.g

	sort.SliceStable(g.Records, func(i, j int) bool {
		return g.Records[i].Loc().Before(g.Records[j].Loc())
	})
	sort.SliceStable(g.CallEdges, func(i, j int) bool {
		return g.CallEdges[i].Loc.Before(g.CallEdges[j].Loc)
	})
	sort.SliceStable(g.Regions, func(i, j int) bool {
		return g.Regions[i].StartLine < g.Regions[j].StartLine
	})
	sort.SliceStable(g.Unresolved, func(i, j int) bool {
		return g.Unresolved[i].Loc.Before(g.Unresolved[j].Loc)
	})

	g.byCategory = make(map[Category][]Record)
	for _, r := range g.Records {
		g.byCategory[r.Category] = append(g.byCategory[r.Category], r)
	}

	return &g
}

// ByCategory returns the records of one category in location order.
func (g *Graph) ByCategory(c Category) []Record {
	return g.byCategory[c]
}

// StatusCounts tallies records per completion status.
func (g *Graph) StatusCounts() map[Status]int {
	counts := make(map[Status]int)
	for _, r := range g.Records {
		counts[r.Status]++
	}
	return counts
}

// EdgesByKind returns the call edges of one kind in location order.
func (g *Graph) EdgesByKind(kind CallKind) []CallEdge {
	var out []CallEdge
	for _, e := range g.CallEdges {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// SequenceFor returns the acquire sequence recorded for a function, if any.
func (g *Graph) SequenceFor(function string) (AcquireSequence, bool) {
	for _, s := range g.Sequences {
		if s.Function == function {
			return s, true
		}
	}
	return AcquireSequence{}, false
}
