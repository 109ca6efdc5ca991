package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newCheckCmd creates the 'check' subcommand: run one cycle from the CLI
// and exit non-zero on failure. Useful for cron-style scheduling and for
// poking a deployment by hand.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Runs a single check cycle and exits",

		RunE: runCheckCommand,
	}
}

func runCheckCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	res, err := appInstance.Runner().RunCycle(cmd.Context())
	if err != nil {
		return err
	}

	appInstance.Logger().Info("Check cycle finished",
		zap.Bool("changed", res.Changed),
		zap.Bool("notified", res.Notified),
		zap.Bool("reauthenticated", res.Reauthenticated),
		zap.Int("count", res.Count),
	)
	return nil
}
