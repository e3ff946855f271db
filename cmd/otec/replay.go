package main

import (
	"github.com/aretw0/otec/internal/cli"
	"github.com/aretw0/otec/pkg/observability"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <script.yaml>",
	Short: "Replay a scripted editing session between replicas",
	Long: `Runs every agent of the script on its own in-memory replica, exchanges
their edits and reports whether all replicas converged.

Convergence is only guaranteed for scripts with two agents. With three or more
agents the replicas may diverge, which is reported and exits non-zero.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := cli.NewLogger(cfg.Log, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		script, err := cli.LoadScript(args[0])
		if err != nil {
			return err
		}

		res, err := cli.Replay(cmd.Context(), script, logger, observability.LoggingHooks(logger))
		if err != nil {
			return err
		}

		history, _ := cmd.Flags().GetBool("history")
		if err := cli.PrintReplay(cmd.OutOrStdout(), res, history); err != nil {
			return err
		}
		if !res.Converged {
			return errDiverged
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().Bool("history", false, "Print every replica's transaction log")
}
