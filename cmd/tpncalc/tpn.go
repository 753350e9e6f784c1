package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"NeoNest/internal/calc/round"
	"NeoNest/internal/calc/tpn"
	"NeoNest/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// saveOptions are the flags that file a calculation into history.
type saveOptions struct {
	Save      bool
	BabyOf    string
	PatientID string
	Date      string
}

func (s *saveOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&s.Save, "save", false, "save the calculation to history")
	cmd.Flags().StringVar(&s.BabyOf, "baby", "", "baby of (mother's name)")
	cmd.Flags().StringVar(&s.PatientID, "patient", "", "patient id")
	cmd.Flags().StringVar(&s.Date, "date", "", "order date (default today)")
}

func (s *saveOptions) entry(inputs, results any) (storage.Entry, error) {
	in, err := json.Marshal(inputs)
	if err != nil {
		return storage.Entry{}, err
	}
	out, err := json.Marshal(results)
	if err != nil {
		return storage.Entry{}, err
	}
	date := s.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	return storage.Entry{BabyOf: s.BabyOf, PatientID: s.PatientID, Date: date, Inputs: in, Results: out}, nil
}

func loadTPNDefaults(ctx context.Context, s storage.Store) (tpn.Inputs, error) {
	d := tpn.Defaults()
	if err := storage.LoadJSON(ctx, s, storage.KeyTPNDefaults, &d); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return tpn.Inputs{}, err
	}
	return d, nil
}

func NewTPNCommand(rootOpts *RootOptions) *cobra.Command {
	var input string
	var sets []string
	var save saveOptions

	cmd := &cobra.Command{
		Use:   "tpn",
		Short: "Calculate a TPN prescription",
		Long: `Calculate syringe volumes and monitoring values for one patient-day.

Inputs start from the saved defaults; --input overlays a JSON file and
--set overlays single fields, e.g. --set weightG=1200 --set gir=7.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := rootOpts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			in, err := loadTPNDefaults(ctx, s.store)
			if err != nil {
				return err
			}
			if err := applyFile(&in, input); err != nil {
				return err
			}
			if err := applySets(&in, sets); err != nil {
				return err
			}
			res, err := tpn.Calculate(in)
			if err != nil {
				if ve, ok := tpn.AsValidation(err); ok {
					return rejected(cmd, ve.Errors)
				}
				return err
			}
			if save.Save {
				e, err := save.entry(in, res)
				if err != nil {
					return err
				}
				if _, err := storage.AppendHistory(ctx, s.store, storage.KeyBabyHistory, e, time.Now()); err != nil {
					s.log.Warn("save history", zap.Error(err))
					fmt.Fprintln(cmd.ErrOrStderr(), "warning: history not saved:", err)
				}
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd, res)
			}
			printTPN(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON file of inputs")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value override (repeatable)")
	save.bind(cmd)
	return cmd
}

func printSyringe(w io.Writer, title string, s tpn.Syringe) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tmL/day\t%s\n", title, s.SecondaryColumn)
	for _, it := range s.Items {
		sec := ""
		if it.Secondary != nil {
			sec = round.V1(*it.Secondary)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", it.Label, round.V1(it.VolumeML), sec)
	}
	fmt.Fprintf(tw, "  Total\t%s\t%s mL/hr\n", round.V1(s.TotalML), round.Fixed(s.RateMLPerHr, 2))
	tw.Flush()
}

func printTPN(w io.Writer, r tpn.Result) {
	printSyringe(w, "Syringe 1", r.S1)
	printSyringe(w, "Syringe 2", r.S2)
	if r.S3 != nil {
		printSyringe(w, "Syringe 3", *r.S3)
	}
	m := r.Mon
	fmt.Fprintf(w, "Separate: K phosphate %s mL/day, Ca gluconate %s mL/day\n",
		round.V1(r.Sep.PotassiumPhosphateML), round.V1(r.Sep.CalciumGluconateML))
	fmt.Fprintf(w, "Fluids: total %s mL, feeds %s mL, IV %s mL/kg, TPN %s mL\n",
		round.V1(m.TotalFluidML), round.V1(m.FeedsML), round.V1(m.IVFluidPerKg), round.V1(m.TPNFluidML))
	fmt.Fprintf(w, "Dextrose %s%%, osmolarity %s mOsm/L, CNR %s\n",
		round.V1(m.DextrosePct), round.Fixed(m.Osmolarity, 0), round.V1(m.CNR))
	fmt.Fprintf(w, "Calories %s kcal/kg/day, protein %s g/kg/day\n", round.V1(m.CaloriesPerKg), round.V1(m.ProteinPerKg))
	for _, warn := range r.Warnings {
		fmt.Fprintln(w, "warning:", warn)
	}
}
