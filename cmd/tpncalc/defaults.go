package main

import (
	"fmt"

	"NeoNest/internal/calc/tpn"
	"NeoNest/internal/storage"

	"github.com/spf13/cobra"
)

func NewDefaultsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "Show or change the saved TPN defaults",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the defaults used by tpn",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			d, err := loadTPNDefaults(cmd.Context(), s.store)
			if err != nil {
				return err
			}
			return writeJSON(cmd, d)
		},
	}

	set := &cobra.Command{
		Use:   "set field=value...",
		Short: "Change fields of the saved defaults",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := rootOpts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			d, err := loadTPNDefaults(ctx, s.store)
			if err != nil {
				return err
			}
			if err := applySets(&d, args); err != nil {
				return err
			}
			if _, err := tpn.Calculate(d); err != nil {
				if ve, ok := tpn.AsValidation(err); ok {
					return rejected(cmd, ve.Errors)
				}
				return err
			}
			if err := storage.SaveJSON(ctx, s.store, storage.KeyTPNDefaults, d); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "defaults saved")
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Return to the factory defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.store.Delete(cmd.Context(), storage.KeyTPNDefaults); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "defaults reset")
			return nil
		},
	}

	cmd.AddCommand(show, set, reset)
	return cmd
}
