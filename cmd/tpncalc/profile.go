package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"NeoNest/internal/remote"
	"NeoNest/internal/repo"
	"NeoNest/internal/storage"

	"github.com/spf13/cobra"
)

func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the clinician profile",
		Long: `Show or edit the clinician profile. With --proxy the profile is
fetched from and pushed to the server; the local copy is used when the
server cannot be reached.`,
	}

	show := &cobra.Command{
		Use:  "show",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			var p repo.Profile
			if err := storage.LoadJSON(cmd.Context(), s.store, storage.KeyUserProfile, &p); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), "no profile saved")
					return nil
				}
				return err
			}
			return writeJSON(cmd, p)
		},
	}

	set := &cobra.Command{
		Use:   "set field=value...",
		Short: "Change profile fields (name, email, designation, unit, hospital, ...)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := rootOpts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			var p repo.Profile
			if err := storage.LoadJSON(ctx, s.local, storage.KeyUserProfile, &p); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			if err := applySets(&p, args); err != nil {
				return err
			}
			p.DeviceID = ""
			if err := storage.SaveJSON(ctx, s.store, storage.KeyUserProfile, p); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "profile saved")
			return nil
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}

func NewFeedbackCommand(rootOpts *RootOptions) *cobra.Command {
	f := storage.FeedbackEntry{Type: "Idea", Priority: "Medium"}

	cmd := &cobra.Command{
		Use:   "feedback <message>",
		Short: "Send feedback to the NeoNest team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := rootOpts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			f.Message = args[0]
			f.Timestamp = time.Now().UTC()
			f.Device = "cli"
			if _, err := storage.AppendFeedback(ctx, s.store, f); err != nil {
				return err
			}
			if s.client == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "feedback saved locally (no proxy configured)")
				return nil
			}
			sendCtx, cancel := context.WithTimeout(ctx, remote.DefaultTimeout)
			defer cancel()
			var p repo.Profile
			_ = storage.LoadJSON(ctx, s.local, storage.KeyUserProfile, &p)
			err = s.client.SendFeedback(sendCtx, repo.Feedback{
				Type: f.Type, Priority: f.Priority, Subject: f.Subject, Message: f.Message,
				ProfileName: p.Name, ProfileEmail: p.Email, ProfileDesignation: p.Designation,
				ProfileHospital: p.Hospital, ProfileCity: p.City, Device: f.Device,
			})
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: feedback kept locally, send failed:", err)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "feedback sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Type, "type", f.Type, "Bug, Idea or Question")
	cmd.Flags().StringVar(&f.Priority, "priority", f.Priority, "Low, Medium or High")
	cmd.Flags().StringVar(&f.Subject, "subject", "", "short subject line")
	return cmd
}
