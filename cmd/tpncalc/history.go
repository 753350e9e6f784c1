package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"NeoNest/internal/storage"

	"github.com/spf13/cobra"
)

func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var audit bool
	var name, id string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved calculations from the last 30 days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := rootOpts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			key := storage.KeyBabyHistory
			if audit {
				key = storage.KeyNutAuditHistory
			}
			entries, err := storage.LoadHistory(ctx, s.store, key, time.Now())
			if err != nil {
				return err
			}
			switch {
			case name != "":
				entries = storage.SuggestByName(entries, name)
			case id != "":
				entries = storage.SuggestByID(entries, id)
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no saved entries")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "Date\tBaby of\tPatient ID\tSaved")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Date, e.BabyOf, e.PatientID, e.TS.Local().Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&audit, "audit", false, "list nutrition audits instead of TPN orders")
	cmd.Flags().StringVarP(&name, "query", "q", "", "match baby names containing this text")
	cmd.Flags().StringVar(&id, "id", "", "match patient ids starting with this prefix")
	return cmd
}
