package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docqa/internal/domain"
	"docqa/internal/message"
	"docqa/internal/service"
)

var (
	askFiles []string
	askTopK  int
	askJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from indexed documents",
	Long: `Indexes any files given with --file, retrieves the chunks closest to the
question from the whole store and generates an answer grounded in them.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSliceVarP(&askFiles, "file", "f", nil, "file to index before answering (repeatable)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(askCmd)
}

type askOutput struct {
	TraceID  string            `json:"trace_id"`
	Answer   string            `json:"answer"`
	Degraded bool              `json:"degraded,omitempty"`
	Contexts []string          `json:"contexts"`
	Indexed  map[string]int    `json:"indexed,omitempty"`
	Failures []message.Message `json:"failures,omitempty"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := *appConfig
	if askTopK > 0 {
		cfg.Retrieval.TopK = askTopK
	}
	a, err := newApp(&cfg, appLog)
	if err != nil {
		return err
	}
	defer a.Close()

	gen, err := newGenerator(cfg.Generator)
	if err != nil {
		return err
	}
	p, err := a.pipeline(gen)
	if err != nil {
		return err
	}

	res, err := p.Run(cmd.Context(), askFiles, args[0])
	if res != nil && !askJSON {
		printIndexing(cmd, askFiles, res)
	}
	if err != nil {
		if errors.Is(err, domain.ErrEmptyStore) {
			return fmt.Errorf("%w: run 'docqa index FILE...' or pass --file", domain.ErrEmptyStore)
		}
		return err
	}

	if askJSON {
		data, err := json.MarshalIndent(askOutput{
			TraceID:  res.TraceID,
			Answer:   res.Answer,
			Degraded: res.Degraded,
			Contexts: res.Contexts,
			Indexed:  res.Indexed,
			Failures: res.Failures,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.Answer)
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintf(cmd.OutOrStdout(), "Context (%d chunks):\n", len(res.Contexts))
	for i, c := range res.Contexts {
		fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s\n", i+1, snippet(c, 100))
	}
	return nil
}

// printIndexing reports per-file outcomes in input order.
func printIndexing(cmd *cobra.Command, files []string, res *service.Result) {
	failed := map[string]string{}
	for _, m := range res.Failures {
		if p, ok := m.Payload().(message.Error); ok && p.FilePath != "" {
			failed[p.FilePath] = p.Message
		}
	}
	for _, f := range files {
		if n, ok := res.Indexed[f]; ok {
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %s (%d chunks)\n", f, n)
		} else if reason, ok := failed[f]; ok {
			cmd.PrintErrf("Skipped %s: %s\n", f, reason)
		}
	}
}

func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
