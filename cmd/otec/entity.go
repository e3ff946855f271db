package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/aretw0/otec/internal/cli"
	"github.com/aretw0/otec/pkg/domain"
	"github.com/aretw0/otec/pkg/observability"
	"github.com/aretw0/otec/pkg/text"
	"github.com/spf13/cobra"
)

var errDiverged = errors.New("replicas diverged")

func entityArg(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid entity id %q", s)
	}
	return id, nil
}

var logCmd = &cobra.Command{
	Use:   "log <entity-id>",
	Short: "Print the transaction log of an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := entityArg(args[0])
		if err != nil {
			return err
		}
		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		eng, err := env.engine("", observability.LoggingHooks(env.logger))
		if err != nil {
			return err
		}
		ids, err := eng.Entities(cmd.Context())
		if err != nil {
			return err
		}
		if !slices.Contains(ids, id) {
			return fmt.Errorf("entity %d: %w", id, domain.ErrEntityNotFound)
		}
		doc, err := eng.Snapshot(cmd.Context(), id)
		if err != nil {
			return err
		}
		history, err := eng.History(cmd.Context(), id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "entity %d (rev %d): %q\n", id, doc.Revision(), doc.State().Get())
		return cli.PrintHistory(out, history)
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit <entity-id> <mutation-json>...",
	Short: "Apply a local edit to an entity",
	Long: `Submits one operation made of the given mutations, for example:

  otec submit 1 '{"kind":"insert","pos":0,"text":"hello"}' '{"kind":"delete","pos":0,"len":1}'`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := entityArg(args[0])
		if err != nil {
			return err
		}
		raws := make([]map[string]any, len(args)-1)
		for i, arg := range args[1:] {
			if err := json.Unmarshal([]byte(arg), &raws[i]); err != nil {
				return fmt.Errorf("mutation %d: %w", i, err)
			}
		}
		muts, err := text.NewCodec().DecodeAll(raws)
		if err != nil {
			return err
		}

		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		eng, err := env.engine("", observability.LoggingHooks(env.logger))
		if err != nil {
			return err
		}
		agent, _ := cmd.Flags().GetString("agent")
		op, err := eng.Submit(cmd.Context(), id, agent, muts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s rev %d %s\n", op.ID(), op.Revision(), op)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <entity-id>...",
	Short: "Remove one or more entities and their logs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		eng, err := env.engine("", observability.LoggingHooks(env.logger))
		if err != nil {
			return err
		}
		var errs []error
		for _, arg := range args {
			id, err := entityArg(arg)
			if err == nil {
				err = eng.Delete(cmd.Context(), id)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("removing %s: %w", arg, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed entity %d\n", id)
		}
		return errors.Join(errs...)
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored entities",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		eng, err := env.engine("", observability.LoggingHooks(env.logger))
		if err != nil {
			return err
		}
		ids, err := eng.Entities(cmd.Context())
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No entities found.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintf(cmd.OutOrStdout(), "- %d\n", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logCmd, submitCmd, rmCmd, lsCmd)
	submitCmd.Flags().StringP("agent", "a", "cli", "Agent ID recorded on the operation")
}
