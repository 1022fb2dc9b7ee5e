package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vector store statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(appConfig, appLog)
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Store:     %s (%s)\n", appConfig.VectorStore.Type, appConfig.VectorStore.Dir)
		fmt.Fprintf(cmd.OutOrStdout(), "Entries:   %d\n", st.Count)
		if st.Count == 0 {
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Dimension: %d\n", st.Dimension)
		fmt.Fprintf(cmd.OutOrStdout(), "Provider:  %s\n", st.Provider)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
