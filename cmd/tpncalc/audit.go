package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"NeoNest/internal/calc/nutrition"
	"NeoNest/internal/calc/round"
	"NeoNest/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	var input string
	var sets []string
	var save saveOptions

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit enteral nutrition against AAP and ESPGHAN targets",
		Long: `Audit one day of feeds, fortifier and supplements.

Fields use the same names as the saved audit record, e.g.
--set wtNow=1500 --set feedSrc=Mixed --set ebmPct=60.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := rootOpts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			in := nutrition.DefaultInput()
			if err := applyFile(&in, input); err != nil {
				return err
			}
			if err := applySets(&in, sets); err != nil {
				return err
			}
			ov := map[string]nutrition.Override{}
			if err := storage.LoadJSON(ctx, s.store, storage.KeyNutritionDB, &ov); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			res, err := nutrition.Calculate(in, nutrition.Merge(ov))
			if err != nil {
				return rejected(cmd, []string{err.Error()})
			}
			if save.Save {
				e, err := save.entry(in, res)
				if err != nil {
					return err
				}
				if _, err := storage.AppendHistory(ctx, s.store, storage.KeyNutAuditHistory, e, time.Now()); err != nil {
					s.log.Warn("save audit", zap.Error(err))
					fmt.Fprintln(cmd.ErrOrStderr(), "warning: audit not saved:", err)
				}
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd, res)
			}
			printAudit(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON file of inputs")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value override (repeatable)")
	save.bind(cmd)
	return cmd
}

func printAudit(w io.Writer, r nutrition.Result) {
	fmt.Fprintf(w, "Feeds: %s mL/kg/day (%s mL EBM, %s mL formula, %s g fortifier)\n",
		round.V1(r.FeedMLKg), round.V1(r.EBMML), round.V1(r.FormulaML), round.V1(r.FortifierG))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Nutrient\tIntake\tUnit\tESPGHAN\tStatus")
	for _, row := range r.Rows {
		target := "-"
		if row.ESPGHAN != nil {
			target = round.Num(row.ESPGHAN[0]) + "-" + round.Num(row.ESPGHAN[1])
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", row.Name, round.Fixed(row.PerKg, 2), row.Unit, target, row.Status)
	}
	tw.Flush()
	if r.WeightGain != 0 {
		fmt.Fprintf(w, "Weight gain: %s g/kg/day\n", round.V1(r.WeightGain))
	}
	fmt.Fprintf(w, "Protein:energy %s g/100 kcal\n", round.Fixed(r.ProteinEnergy, 2))
}
