package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nyxlabs/nyx/internal/app"
)

const defaultHistoryLimit = 20

// newHistoryCmd lists past executions from the execution database.
func newHistoryCmd(opts Options) *cobra.Command {
	var (
		limit  int
		config string
	)

	cmd := &cobra.Command{
		Use:   "history [search]",
		Short: "List recorded command executions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			search := ""
			if len(args) > 0 {
				search = args[0]
			}
			out := cmd.OutOrStdout()

			container, err := app.BuildContainer(cmd.Context(), app.Options{
				Verbose:    opts.Verbose,
				ConfigPath: config,
				Out:        out,
			})
			if err != nil {
				return err
			}
			defer container.Close()

			if container.Records == nil {
				return fmt.Errorf("execution database unavailable")
			}
			records, err := container.Records.Records(limit, search)
			if err != nil {
				return fmt.Errorf("failed to retrieve execution records: %w", err)
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No executions recorded yet.")
				return nil
			}
			for _, rec := range records {
				fmt.Fprintf(out, "%s | %s | exit %d | %s\n",
					rec.Timestamp.Format(time.DateTime),
					rec.SessionID,
					rec.ExitCode,
					rec.CommandLine())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "max records to show")
	cmd.Flags().StringVar(&config, "config", "", "path to an alternate config file")
	return cmd
}
