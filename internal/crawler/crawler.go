package crawler

import (
	"io/fs"
	"path/filepath"

	"relex/internal/ast"
)

// Crawler scans a directory tree for analyzable source files.
type Crawler struct {
	ignored []string
}

// NewCrawler creates a new crawler instance.
func NewCrawler() *Crawler {
	return &Crawler{
		ignored: []string{".git", "vendor", "node_modules", "build"},
	}
}

// ScanTree walks the root directory and streams every source file whose
// extension maps to a supported language. The callback keeps large corpora
// from buffering in memory.
func (c *Crawler) ScanTree(root string, langs []string, onFile func(path, lang string)) error {
	allowed := make(map[string]bool, len(langs))
	for _, l := range langs {
		allowed[l] = true
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		lang, ok := ast.LanguageForPath(d.Name())
		if !ok || !allowed[lang] {
			return nil
		}

		onFile(path, lang)
		return nil
	})
}
