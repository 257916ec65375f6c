package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"time"

	"relex/internal/catalog"
	"relex/internal/config"
	"relex/internal/engine"
	"relex/internal/git"
	"relex/internal/ir"
	"relex/internal/relgraph"
	"relex/internal/storage"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "relex",
		Short: "Source relationship extraction engine for C/C++",
	}
	cfgPath string
	dbPath  string
	verbose bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the graph database (SQLite); empty disables persistence")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(updateCmd)
}

// initEngine loads config, builds the pattern catalog and wires the engine.
func initEngine() (*engine.Engine, *config.Config, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// 1. Start from the builtin rules
	extra := make([]catalog.Rule, 0)

	// 2. Layer user rule files on top
	for _, rf := range cfg.Analysis.RuleFiles {
		rules, err := catalog.LoadFile(rf)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load rule file %s: %w", rf, err)
		}
		extra = append(extra, rules...)
	}

	cat := catalog.BuiltinWith(extra)
	return engine.New(cat).WithLogger(logger), cfg, nil
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze one source file and print its relationship graph as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, _, err := initEngine()
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}

		ctx := context.Background()
		g, err := eng.AnalyzeFile(ctx, args[0])
		if err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}

		if dbPath != "" {
			store, err := storage.NewSQLiteStore(dbPath)
			if err != nil {
				log.Fatalf("Failed to open database: %v", err)
			}
			defer store.Close()
			if err := store.SaveGraph(ctx, g); err != nil {
				log.Fatalf("Failed to save graph: %v", err)
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(ir.Snapshot(g)); err != nil {
			log.Fatalf("Failed to encode snapshot: %v", err)
		}
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Analyze every supported source file under a directory",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root := "."
		if len(args) > 0 {
			root = args[0]
		}

		eng, cfg, err := initEngine()
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}

		if dbPath == "" {
			dbPath = cfg.Storage.DBPath
		}

		fmt.Printf("📂 Scanning directory: %s\n", root)
		start := time.Now()

		ctx := context.Background()
		res, err := eng.AnalyzeTree(ctx, root, cfg.Analysis.Languages, cfg.Analysis.Workers)
		if err != nil {
			log.Fatalf("Scan failed: %v", err)
		}

		records, edges := 0, 0
		for _, g := range res.Graphs {
			records += len(g.Records)
			edges += len(g.CallEdges)
		}
		fmt.Printf("✅ Analyzed %d files in %v: %d records, %d call edges.\n",
			len(res.Graphs), time.Since(start), records, edges)
		for _, f := range res.Failures {
			fmt.Printf("⚠️  Skipped %s: %v\n", f.Path, f.Err)
		}

		if dbPath == "" {
			return
		}

		store, err := storage.NewSQLiteStore(dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer store.Close()

		fmt.Println("💾 Saving to local database...")
		for _, g := range res.Graphs {
			if err := store.SaveGraph(ctx, g); err != nil {
				log.Fatalf("Failed to save %s: %v", g.File, err)
			}
		}

		counts, err := store.StatusCounts(ctx)
		if err == nil {
			statuses := make([]string, 0, len(counts))
			for status := range counts {
				statuses = append(statuses, string(status))
			}
			sort.Strings(statuses)
			for _, status := range statuses {
				fmt.Printf("  -> %s: %d\n", status, counts[relgraph.Status(status)])
			}
		}
		fmt.Printf("🎉 Scan complete! Database: %s\n", dbPath)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Re-analyze only the files changed since a git ref",
	Run: func(cmd *cobra.Command, args []string) {
		baseRef, _ := cmd.Flags().GetString("base")

		eng, cfg, err := initEngine()
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		if dbPath == "" {
			dbPath = cfg.Storage.DBPath
		}
		if dbPath == "" {
			log.Fatal("update needs a database; pass --db or set storage.db_path")
		}

		changes, err := git.ChangedSources(baseRef, cfg.Analysis.Languages)
		if err != nil {
			log.Fatalf("Failed to get git changes: %v", err)
		}
		if len(changes) == 0 {
			fmt.Println("✅ No source changes detected.")
			return
		}
		fmt.Printf("📝 Detected %d changed source files.\n", len(changes))

		store, err := storage.NewSQLiteStore(dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer store.Close()

		ctx := context.Background()
		updated := 0
		for _, change := range changes {
			if _, err := os.Stat(change.Path); err != nil {
				// Deleted files keep their last stored snapshot.
				continue
			}
			g, err := eng.AnalyzeFile(ctx, change.Path)
			if err != nil {
				fmt.Printf("⚠️  Skipped %s: %v\n", change.Path, err)
				continue
			}
			if err := store.SaveGraph(ctx, g); err != nil {
				log.Fatalf("Failed to save %s: %v", change.Path, err)
			}
			updated++
		}

		fmt.Printf("🎉 Update complete: %d files re-analyzed. Database: %s\n", updated, dbPath)
	},
}

func init() {
	updateCmd.Flags().String("base", "HEAD", "Git ref to diff against")
}
