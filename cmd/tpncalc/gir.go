package main

import (
	"fmt"
	"io"

	"NeoNest/internal/calc/gir"
	"NeoNest/internal/calc/round"

	"github.com/spf13/cobra"
)

func NewGIRCommand(rootOpts *RootOptions) *cobra.Command {
	in := gir.DefaultInput()
	var combo string

	cmd := &cobra.Command{
		Use:   "gir",
		Short: "Mix two dextrose concentrations for a target GIR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Combo = gir.Combo(combo)
			res, err := gir.Calculate(in)
			if err != nil {
				return rejected(cmd, []string{err.Error()})
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd, res)
			}
			printGIR(cmd.OutOrStdout(), in, res)
			return nil
		},
	}
	cmd.Flags().Float64Var(&in.WeightG, "weight", in.WeightG, "weight in grams")
	cmd.Flags().Float64Var(&in.FluidPerKg, "fluid", in.FluidPerKg, "dextrose fluid in mL/kg/day")
	cmd.Flags().Float64Var(&in.TargetGIR, "target", in.TargetGIR, "target GIR in mg/kg/min")
	cmd.Flags().StringVar(&combo, "combo", string(in.Combo), "concentration pair: 10only, 5+25, 5+50, 10+25, 10+50")
	return cmd
}

func printGIR(w io.Writer, in gir.Input, r gir.Result) {
	fmt.Fprintf(w, "Volume: %s mL/day (%s mL/hr)\n", round.V1(r.VolumeML), round.Fixed(r.RateMLPerHr, 2))
	if !r.Single {
		fmt.Fprintf(w, "Required dextrose: %s%%\n", round.V1(r.RequiredPct))
	}
	for _, d := range r.Mix {
		fmt.Fprintf(w, "D%s%%: %s mL (%s per 50 mL)\n", round.Num(d.Pct), round.V1(d.ML), round.V1(d.Per50))
	}
	fmt.Fprintf(w, "Final dextrose: %s%%\n", round.V1(r.FinalPct))
	fmt.Fprintf(w, "GIR: %s mg/kg/min\n", round.Fixed(r.GIR, 2))
	if !r.Single && !r.Exact {
		fmt.Fprintf(w, "Target %s is outside %s to %s for %s\n",
			round.Num(in.TargetGIR), round.Fixed(r.GIRMin, 2), round.Fixed(r.GIRMax, 2), in.Combo)
		for _, s := range r.Suggestions {
			fmt.Fprintf(w, "  try %s (%s to %s)\n", s.Combo, round.Fixed(s.GIRMin, 2), round.Fixed(s.GIRMax, 2))
		}
	}
}
