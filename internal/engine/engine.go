package engine

import (
	"context"
	"fmt"
	"log/slog"

	"relex/internal/ast"
	"relex/internal/catalog"
	"relex/internal/matcher"
	"relex/internal/relgraph"
	"relex/internal/symbols"
	"relex/internal/xref"
)

// Engine turns one normalized AST into a RelationshipGraph. It is a pure
// synchronous transform; the only shared state between runs is the
// read-only catalog, so independent engines may analyze files in parallel.
type Engine struct {
	cat *catalog.Catalog
	log *slog.Logger
}

// New creates an engine over a catalog.
func New(cat *catalog.Catalog) *Engine {
	return &Engine{cat: cat, log: slog.Default()}
}

// WithLogger replaces the engine's logger.
func (e *Engine) WithLogger(log *slog.Logger) *Engine {
	e.log = log
	return e
}

// run is the per-file mutable state of one analysis pass.
type run struct {
	cat *catalog.Catalog
	tbl *symbols.Table
	m   *matcher.Matcher
	pp  *xref.Preprocessor
	b   *relgraph.Builder

	sites []xref.CallSite

	curFunc     string
	curFuncDecl symbols.DeclID
}

// Analyze processes one file start to finish and builds its graph. Only a
// malformed tree is an error; every analysis imprecision degrades into
// low-confidence or flagged records instead.
func (e *Engine) Analyze(file *ast.File) (*relgraph.Graph, error) {
	if file == nil || file.Root == nil {
		return nil, fmt.Errorf("analysis failed: missing syntax tree")
	}
	if file.Root.Kind != "translation_unit" {
		return nil, fmt.Errorf("analysis failed: unexpected root node %q", file.Root.Kind)
	}

	r := &run{
		cat:         e.cat,
		tbl:         symbols.NewTable(),
		m:           matcher.New(),
		pp:          xref.NewPreprocessor(),
		b:           relgraph.NewBuilder(file.Path, file.Language),
		curFuncDecl: symbols.NoDecl,
	}

	r.walkNodes(file.Root.Children)

	// File scope closes last: globals still open leak here.
	r.m.FinalizeDecls(r.tbl.FileScopeDecls())
	r.m.FinalizeAll()

	for _, rec := range r.m.Records() {
		r.b.AddRecord(rec)
	}
	for _, seq := range r.m.Sequences() {
		r.b.AddSequence(seq)
	}
	for _, region := range r.pp.Regions() {
		r.b.AddRegion(region)
	}

	xref.DefaultChain().Run(&xref.FileContext{Table: r.tbl, Sites: r.sites}, r.b)

	g := r.b.Build()
	e.log.Debug("file analyzed",
		"file", file.Path,
		"records", len(g.Records),
		"edges", len(g.CallEdges),
		"regions", len(g.Regions))
	return g, nil
}

// AnalyzeSource parses and analyzes source text in one step.
func (e *Engine) AnalyzeSource(ctx context.Context, lang, path string, source []byte) (*relgraph.Graph, error) {
	adapter, err := ast.NewAdapter(lang)
	if err != nil {
		return nil, err
	}
	file, err := adapter.Parse(ctx, path, source)
	if err != nil {
		return nil, err
	}
	return e.Analyze(file)
}

// AnalyzeFile reads, parses and analyzes one file from disk.
func (e *Engine) AnalyzeFile(ctx context.Context, path string) (*relgraph.Graph, error) {
	lang, ok := ast.LanguageForPath(path)
	if !ok {
		return nil, fmt.Errorf("no language for %s", path)
	}
	adapter, err := ast.NewAdapter(lang)
	if err != nil {
		return nil, err
	}
	file, err := adapter.ParseFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.Analyze(file)
}

func loc(n *ast.Node) relgraph.Location {
	line, col := n.Loc()
	return relgraph.Location{Line: line, Column: col}
}
