// Package cli is the terminal front end: the cobra root command, the
// interactive prompter, and the streaming display for model output.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nyxlabs/nyx/internal/app"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command. The joined positional arguments
// form the natural-language task.
func NewRootCmd(opts Options) *cobra.Command {
	var (
		approve bool
		model   string
		config  string
	)

	root := &cobra.Command{
		Use:   "nyx [task]",
		Short: "nyx - autonomous shell command agent",
		Long: "nyx turns a natural-language task into shell commands, validates them\n" +
			"against a safety policy, executes them, and iterates until the task\n" +
			"completes or the iteration budget runs out.",
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Argument errors above still print usage; runtime errors
			// from here on do not.
			cmd.SilenceUsage = true
			task := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			container, err := app.BuildContainer(cmd.Context(), app.Options{
				Verbose:         opts.Verbose,
				Model:           model,
				RequireApproval: approve,
				ConfigPath:      config,
				Out:             out,
				Stream:          NewStreamWriter(out),
				Prompter:        NewPrompter(nil, out),
			})
			if err != nil {
				return err
			}
			defer container.Close()

			printSessionInfo(cmd, container, approve)
			return container.Agent.Run(cmd.Context(), task)
		},
	}

	root.Flags().BoolVar(&approve, "approve", false, "require manual approval for each plan")
	root.Flags().StringVar(&model, "model", "", "override the configured model")
	root.Flags().StringVar(&config, "config", "", "path to an alternate config file")
	root.AddCommand(newHistoryCmd(opts))
	return root
}

func printSessionInfo(cmd *cobra.Command, container *app.Container, approve bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🔐 Security: Command validation enabled")
	fmt.Fprintf(out, "📝 Logging: %s\n", container.Config.Audit.File)
	fmt.Fprintf(out, "🤖 Model: %s\n", container.Config.Model.Name)
	if approve {
		fmt.Fprintln(out, "🔒 Plan approval: Required")
	}
	fmt.Fprintln(out)
}

// VerboseFromEnv enables debug logging via NYX_DEBUG.
func VerboseFromEnv() bool {
	return os.Getenv("NYX_DEBUG") != ""
}
