package xref

import (
	"log/slog"

	"relex/internal/catalog"
	"relex/internal/relgraph"
	"relex/internal/symbols"
)

// CallSite is one call expression observed in a function body.
type CallSite struct {
	Caller     string
	CallerDecl symbols.DeclID
	Callee     string
	CalleeDecl symbols.DeclID // NoDecl when the name bound to no declaration
	ViaVar     symbols.DeclID // NoDecl unless calling through a variable
	Loc        relgraph.Location
}

// FileContext is the completed per-file call-site list plus the symbol
// table edges are resolved against.
type FileContext struct {
	Table *symbols.Table
	Sites []CallSite
}

// Stats summarizes one resolver stage.
type Stats struct {
	Attempted int
	Emitted   int
	Skipped   int
}

// EdgeResolver is one stage of call-graph resolution.
type EdgeResolver interface {
	Name() string
	Resolve(ctx *FileContext, b *relgraph.Builder) Stats
}

// StageResult reports one chain stage for logging and diagnostics.
type StageResult struct {
	Resolver string
	Stats    Stats
}

// Chain runs edge resolvers in order over one file context.
type Chain struct {
	resolvers []EdgeResolver
	log       *slog.Logger
}

// NewChain builds a chain from explicit stages.
func NewChain(resolvers ...EdgeResolver) *Chain {
	return &Chain{resolvers: resolvers, log: slog.Default()}
}

// DefaultChain resolves direct and recursive edges first, then indirect
// calls through function-pointer identities.
func DefaultChain() *Chain {
	return NewChain(&DirectResolver{}, &IndirectResolver{})
}

// Run executes every stage and returns per-stage results.
func (c *Chain) Run(ctx *FileContext, b *relgraph.Builder) []StageResult {
	if ctx == nil {
		return nil
	}
	var out []StageResult
	for _, r := range c.resolvers {
		stats := r.Resolve(ctx, b)
		c.log.Debug("xref stage done",
			"resolver", r.Name(),
			"attempted", stats.Attempted,
			"emitted", stats.Emitted,
			"skipped", stats.Skipped)
		out = append(out, StageResult{Resolver: r.Name(), Stats: stats})
	}
	return out
}

// DirectResolver emits direct and recursive edges for calls bound by name.
// A self-call yields a single recursive edge, never an extra direct one.
type DirectResolver struct{}

func (r *DirectResolver) Name() string { return "direct" }

func (r *DirectResolver) Resolve(ctx *FileContext, b *relgraph.Builder) Stats {
	var stats Stats
	for _, site := range ctx.Sites {
		if site.ViaVar != symbols.NoDecl {
			stats.Skipped++
			continue
		}
		stats.Attempted++

		calleeDecl := site.CalleeDecl
		if calleeDecl == symbols.NoDecl {
			// The callee may be defined later in the file than the call;
			// the completed table holds every function declaration, so
			// consult it before concluding the callee is external.
			if id, ok := ctx.Table.Lookup(site.Callee); ok {
				if decl, ok := ctx.Table.Decl(id); ok && decl.Kind == symbols.KindFunction {
					calleeDecl = id
				}
			}
		}

		kind := relgraph.CallDirect
		confidence := 0.95
		if calleeDecl == symbols.NoDecl {
			// Declared in another translation unit (or a library).
			confidence = 0.6
		} else if calleeDecl == site.CallerDecl {
			kind = relgraph.CallRecursive
			b.AddRecord(relgraph.Record{
				Category:   relgraph.CategoryControlFlow,
				Resource:   "recursion",
				Identity:   site.Caller,
				Events:     []relgraph.RoleEvent{{Role: "self-call", Loc: site.Loc}},
				Status:     relgraph.StatusNormal,
				Confidence: catalog.CalibrateConfidence(relgraph.CategoryControlFlow, true, false),
			})
		}

		b.AddCallEdge(relgraph.CallEdge{
			Caller:     site.Caller,
			Callee:     site.Callee,
			Kind:       kind,
			Confidence: confidence,
			Loc:        site.Loc,
		})
		stats.Emitted++
	}
	return stats
}

// IndirectResolver traces calls through variables back to the functions
// bound to the variable's identity. Ambiguity (several functions ever
// assigned) emits every candidate at reduced confidence.
type IndirectResolver struct{}

func (r *IndirectResolver) Name() string { return "indirect" }

func (r *IndirectResolver) Resolve(ctx *FileContext, b *relgraph.Builder) Stats {
	var stats Stats
	for _, site := range ctx.Sites {
		if site.ViaVar == symbols.NoDecl {
			stats.Skipped++
			continue
		}
		stats.Attempted++

		candidates := ctx.Table.Candidates(site.ViaVar)
		if len(candidates) == 0 {
			b.AddUnresolved(relgraph.Unresolved{
				Kind:   "indirect-call",
				Name:   site.Callee,
				Reason: relgraph.ReasonNoCandidate,
				Loc:    site.Loc,
			})
			continue
		}

		confidence := 0.8
		if len(candidates) > 1 {
			confidence = 0.45
			b.AddUnresolved(relgraph.Unresolved{
				Kind:   "indirect-call",
				Name:   site.Callee,
				Reason: relgraph.ReasonAmbiguous,
				Loc:    site.Loc,
			})
		}

		for _, cand := range candidates {
			b.AddCallEdge(relgraph.CallEdge{
				Caller:     site.Caller,
				Callee:     cand.Function,
				Kind:       relgraph.CallIndirect,
				Confidence: confidence,
				Loc:        site.Loc,
			})
		}
		stats.Emitted++
	}
	return stats
}
