package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"docqa/internal/message"
)

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Work with pipeline messages",
}

var messageValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a message in wire form against its schema",
	Long: `Parses a JSON message ({"sender","receiver","type","trace_id","payload"})
and reports the first schema violation. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runMessageValidate,
}

func init() {
	messageCmd.AddCommand(messageValidateCmd)
	rootCmd.AddCommand(messageCmd)
}

func runMessageValidate(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	m, err := message.Parse(data)
	if err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "valid %s message\n", m.Type())
	fmt.Fprintf(cmd.OutOrStdout(), "  sender:   %s\n", m.Sender())
	fmt.Fprintf(cmd.OutOrStdout(), "  receiver: %s\n", m.Receiver())
	fmt.Fprintf(cmd.OutOrStdout(), "  trace_id: %s\n", m.TraceID())
	return nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path != "-" {
		return os.ReadFile(path)
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return nil, errors.New("refusing to read a message from a terminal; pipe it in or pass a file")
	}
	return io.ReadAll(in)
}
