package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index [files...]",
	Short: "Add documents to the vector store",
	Long: `Reads each file, splits it into chunks, embeds them and appends them to
the store. Unsupported or unreadable files are reported and skipped.
Indexing a file twice adds its chunks twice.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := newApp(appConfig, appLog)
	if err != nil {
		return err
	}
	defer a.Close()

	// IndexFiles never reaches the generator.
	p, err := a.pipeline(nil)
	if err != nil {
		return err
	}
	res := p.IndexFiles(cmd.Context(), args)
	printIndexing(cmd, args, res)

	if len(res.Indexed) == 0 {
		return errors.New("no files indexed")
	}
	return nil
}
