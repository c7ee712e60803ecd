// Command lexidex is the CLI wrapper around the Analyzer/Indexer/Merger/
// Searcher pipeline. Wrapping search in a REPL, HTTP handler, or batch
// runner is outside the core's scope (spec.md §6); this binary is the
// thinnest such wrapper, driving the same three operations a caller would
// invoke as a library: build, merge, search.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kittclouds/lexidex/internal/checkpoint"
	"github.com/kittclouds/lexidex/internal/config"
	"github.com/kittclouds/lexidex/pkg/analyzer"
	"github.com/kittclouds/lexidex/pkg/index"
	"github.com/kittclouds/lexidex/pkg/merge"
	"github.com/kittclouds/lexidex/pkg/search"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lexidex",
		Short: "A memory-bounded search index builder and query tool",
	}

	root.AddCommand(newIndexCmd(), newMergeCmd(), newSearchCmd())
	return root
}

func newIndexCmd() *cobra.Command {
	var outDir, journalPath string
	var stopWords bool

	cmd := &cobra.Command{
		Use:   "index <corpus-root>",
		Short: "Build partial indexes from a two-level corpus directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			acfg := analyzer.Config{StopWords: stopWords}

			var journal *checkpoint.Store
			if journalPath != "" {
				var err error
				journal, err = checkpoint.Open(journalPath)
				if err != nil {
					return err
				}
				defer journal.Close()
			}

			b := index.NewBuilder(outDir, cfg, acfg, journal)
			if err := b.Build(args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "accepted=%d duplicate=%d filtered=%d oversize=%d empty=%d parse_failed=%d\n",
				b.Stats.Accepted, b.Stats.Duplicate, b.Stats.Filtered, b.Stats.Oversize, b.Stats.Empty, b.Stats.ParseFailed)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "index-out", "directory to write partial indexes and the URL->id map")
	cmd.Flags().StringVar(&journalPath, "journal", "", "optional SQLite ingest journal path")
	cmd.Flags().BoolVar(&stopWords, "stopwords", config.Default().StopWords, "apply the English stop-word filter")

	return cmd
}

func newMergeCmd() *cobra.Command {
	var outDir string
	var chunkSize int

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge partial indexes into the final tf-idf index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := merge.New(outDir, chunkSize)
			report, err := m.Merge()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "documents=%d unique_terms=%d index_size_kb=%.2f\n",
				report.NumDocuments, report.NumUniqueTerms, report.IndexSizeKB)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "index-out", "directory holding partial indexes, written with the final index")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "terms per chunk during the sort phase (0 = default)")

	return cmd
}

func newSearchCmd() *cobra.Command {
	var outDir string
	var stopWords bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a query against a merged index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			acfg := analyzer.Config{StopWords: stopWords}

			s, err := search.Open(outDir, cfg, acfg)
			if err != nil {
				return err
			}

			query := args[0]
			for _, extra := range args[1:] {
				query += " " + extra
			}

			urls, err := s.Search(query)
			if err != nil {
				return err
			}
			for _, u := range urls {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "index-out", "directory holding the merged index")
	cmd.Flags().BoolVar(&stopWords, "stopwords", config.Default().StopWords, "apply the English stop-word filter")

	return cmd
}
