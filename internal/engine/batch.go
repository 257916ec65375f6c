package engine

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"relex/internal/crawler"
	"relex/internal/relgraph"

	"golang.org/x/sync/errgroup"
)

// FileError records a single file that could not be analyzed. Batch runs
// carry failures in the result instead of aborting the whole tree.
type FileError struct {
	Path string
	Err  error
}

// BatchResult holds the graphs of one tree scan, ordered by file path.
type BatchResult struct {
	Graphs   []*relgraph.Graph
	Failures []FileError
}

// AnalyzeTree scans a directory tree and analyzes every supported source
// file concurrently. Each file gets its own analysis pass; workers <= 0
// means one worker per CPU.
func (e *Engine) AnalyzeTree(ctx context.Context, root string, langs []string, workers int) (*BatchResult, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var paths []string
	err := crawler.NewCrawler().ScanTree(root, langs, func(path, lang string) {
		paths = append(paths, path)
	})
	if err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		res BatchResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			graph, err := e.AnalyzeFile(gctx, path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.log.Warn("file skipped", "file", path, "error", err)
				res.Failures = append(res.Failures, FileError{Path: path, Err: err})
				return nil
			}
			res.Graphs = append(res.Graphs, graph)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(res.Graphs, func(i, j int) bool { return res.Graphs[i].File < res.Graphs[j].File })
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Path < res.Failures[j].Path })

	return &res, nil
}
