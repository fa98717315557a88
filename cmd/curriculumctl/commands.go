package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"codelab/internal/curriculum"
	"codelab/internal/gateway/config"
	"codelab/internal/gateway/repository/snapshot"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "curriculumctl",
		Short:         "Inspect codelab curricula and persisted sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newValidateCmd(), newMaterializeCmd(), newSnapshotCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Load a curriculum and materialize every exercise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := curriculum.LoadFile(args[0])
			if err != nil {
				return err
			}
			exercises := 0
			for mi, m := range c.Milestones {
				for ei, ex := range m.Exercises {
					if _, err := curriculum.Materialize(ex); err != nil {
						return fmt.Errorf("milestone %d exercise %d: %w", mi, ei, err)
					}
					exercises++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d milestones, %d exercises, %d ambient declarations\n",
				args[0], len(c.Milestones), exercises, len(c.Ambient))
			return nil
		},
	}
}

func newMaterializeCmd() *cobra.Command {
	var milestone, exercise int
	cmd := &cobra.Command{
		Use:   "materialize <file>",
		Short: "Print the edited files an exercise starts with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := curriculum.LoadFile(args[0])
			if err != nil {
				return err
			}
			if milestone < 0 || milestone >= len(c.Milestones) {
				return fmt.Errorf("milestone %d of %d: %w", milestone, len(c.Milestones), curriculum.ErrIndexOutOfRange)
			}
			m := c.Milestones[milestone]
			if exercise < 0 || exercise >= len(m.Exercises) {
				return fmt.Errorf("exercise %d of %d: %w", exercise, len(m.Exercises), curriculum.ErrIndexOutOfRange)
			}
			files, err := curriculum.Materialize(m.Exercises[exercise])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), files)
		},
	}
	cmd.Flags().IntVarP(&milestone, "milestone", "m", 0, "milestone index")
	cmd.Flags().IntVarP(&exercise, "exercise", "e", 0, "exercise index")
	return cmd
}

func newSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot [key]",
		Short: "Print a persisted session snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadArgs(nil)
			if err != nil {
				return err
			}
			key := cfg.Session.Key
			if len(args) == 1 {
				key = args[0]
			}
			store := snapshot.Open(cfg.Session.Path, cfg.Session.PgDSN, nil)
			defer store.Close()
			return printSnapshot(cmd.Context(), cmd.OutOrStdout(), store, key)
		},
	}
}

func printSnapshot(ctx context.Context, w io.Writer, store *snapshot.Store, key string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	data, ok, err := store.Load(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("no snapshot stored under " + key)
	}
	var state curriculum.SessionConfig
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("snapshot %q is corrupt: %w", key, err)
	}
	return writeJSON(w, state)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
