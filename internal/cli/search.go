package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docqa/internal/domain"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Show the chunks closest to a query",
	Long: `Embeds the query and lists the nearest chunks by squared Euclidean
distance, closest first, without generating an answer.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

type searchHit struct {
	Chunk      string  `json:"chunk"`
	SourceFile string  `json:"source_file"`
	Distance   float64 `json:"distance"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(appConfig, appLog)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.retriever()
	if err != nil {
		return err
	}
	results, err := r.Search(cmd.Context(), args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	hits := make([]searchHit, len(results))
	for i, r := range results {
		hits[i] = searchHit{Chunk: r.Record.Text, SourceFile: r.Record.SourceFile, Distance: r.Distance}
	}
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No results found.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Results:")
	fmt.Fprintln(cmd.OutOrStdout())
	for i, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s (%.4f)\n", i+1, r.Record.SourceFile, r.Distance)
		fmt.Fprintf(cmd.OutOrStdout(), "      %s\n", snippet(r.Record.Text, 200))
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}
