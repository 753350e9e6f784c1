package tpn

import (
	"errors"
	"fmt"

	"NeoNest/internal/calc/round"
)

// Per-mL and per-gram content of the stock solutions.
const (
	naPerMLN5       = 0.031 // N/5 saline, mEq/mL
	naPerMLN2       = 0.077 // N/2 saline
	naPerMLNS       = 0.154 // normal saline
	glucosePerMLD10 = 0.1   // g/mL

	girToGPerDay = 1.44 // mg/kg/min -> g/kg/day

	po4PerMLKPO    = 93.0 // mg PO4 per mL potassium phosphate
	kPerMLKPO      = 4.4  // mEq K per mL potassium phosphate
	pentaminNaPerG = 0.87 // mEq Na per g amino acid
	caPerMLGluc    = 9.3  // mg Ca per mL 10% calcium gluconate
	mgPerMLSulfate = 4.0  // mEq Mg per mL 50% MgSO4

	dexNegTolerance = -0.05
	centralDexPct   = 12.5
	per50Ref        = 50.0
)

type electrolyteSource struct {
	na NaSource
	aa AASource
}

// Calculate derives syringe volumes and monitoring metrics for one
// prescription. Any problem with the inputs yields a *ValidationError and a
// zero Result.
func Calculate(in Inputs) (Result, error) {
	wt := in.WeightG / 1000

	errs := structuralErrors(in)
	if wt <= 0 || !enumsValid(in) {
		return Result{}, &ValidationError{Errors: errs}
	}

	naInIVM := (in.IVMN5*naPerMLN5 + in.IVMN2*naPerMLN2 + in.IVMNS*naPerMLNS) / wt
	glcInIVM := in.IVMDex10 * glucosePerMLD10
	tfv := in.TFR * wt
	feedsML := in.Feeds * wt
	ivfPerKg := in.TFR - in.Feeds
	ivfML := ivfPerKg * wt
	tpnFluid := ivfML - in.IVM
	tpnGlucose := in.GIR*wt*girToGPerDay - glcInIVM
	potPhosVol := in.PO4 * wt / po4PerMLKPO
	kFromPP := kPerMLKPO * potPhosVol / wt

	if tpnFluid < 0 {
		errs = append(errs, fmt.Sprintf("TPN fluid volume is negative (%s mL). IVM (%s mL) exceeds available IV fluid (%s mL).",
			round.Num(round.R1(tpnFluid)), round.Num(in.IVM), round.Num(round.R1(ivfML))))
	}

	vol := Volumes{
		Lipid:     5 * in.Lipid * wt,
		MVI:       in.MVI * wt,
		Celcel:    in.Celcel * wt,
		AminoAcid: 10 * wt * in.AminoAcid,
		Sodium:    sodiumVolume(in, naInIVM, wt),
		Potassium: potassiumVolume(in, kFromPP, wt),
		Magnesium: in.Magnesium * wt / mgPerMLSulfate,
	}
	caVol := wt * in.Calcium / caPerMLGluc
	var sep Separate
	if in.CaViaTPN {
		vol.Calcium = caVol
	} else {
		sep.CalciumGluconateML = caVol
	}
	if in.PO4ViaTPN {
		vol.PotassiumPhosphate = potPhosVol
	} else {
		sep.PotassiumPhosphateML = potPhosVol
	}

	fluidForGlc := tpnFluid - vol.Lipid - vol.AminoAcid - vol.Sodium - vol.Potassium -
		vol.Calcium - vol.PotassiumPhosphate - vol.MVI - vol.Celcel
	if fluidForGlc < 0 && tpnFluid >= 0 {
		errs = append(errs, fmt.Sprintf("Insufficient fluid for dextrose (%s mL remaining). Reduce component doses or increase TFR.",
			round.Num(round.R1(fluidForGlc))))
	}

	dex := solveDextrose(in.Use5Dex, in.Use25Dex, fluidForGlc, tpnGlucose)
	if dex.LowML < dexNegTolerance {
		errs = append(errs, fmt.Sprintf("%s volume is negative (%s mL). Try switching dextrose concentrations or adjust GIR.",
			dexName(dex.LowPct), round.Num(round.R1(dex.LowML))))
	}
	if dex.HighML < dexNegTolerance {
		errs = append(errs, fmt.Sprintf("%s volume is negative (%s mL). Try different dextrose concentrations or reduce GIR.",
			dexName(dex.HighPct), round.Num(round.R1(dex.HighML))))
	}

	if len(errs) > 0 {
		return Result{}, &ValidationError{Errors: errs}
	}

	s2TotalFull := vol.AminoAcid + vol.Sodium + vol.Potassium + vol.Calcium + vol.Magnesium + dex.LowML + dex.HighML
	dexPct := 0.0
	if s2TotalFull > 0 {
		dexPct = tpnGlucose * 100 / s2TotalFull
	}

	warnings := []string{}
	if dexPct > centralDexPct {
		warnings = append(warnings, fmt.Sprintf("Dextrose %s%% - consider central line.", round.Fixed(dexPct, 1)))
	}
	if vol.Sodium < 0 {
		warnings = append(warnings, "Na volume slightly negative - Na via IVM/Pentamin may exceed target.")
	}

	feedCal, feedProt := feedContribution(in)
	res := Result{
		Sep:      sep,
		Volumes:  vol,
		Dextrose: dex,
		IsPerDay: in.Overfill > 1,
		Overfill: in.Overfill,
		Warnings: warnings,
		Mon: Monitoring{
			TotalFluidML:     tfv,
			FeedsML:          feedsML,
			IVFluidPerKg:     ivfPerKg,
			IVFluidML:        ivfML,
			TPNFluidML:       tpnFluid,
			TPNGlucoseG:      tpnGlucose,
			GlucoseFluidML:   fluidForGlc,
			DextrosePct:      dexPct,
			CNR:              cnr(in),
			Osmolarity:       osmolarity(vol, dex),
			CaloriesPerKg:    4*in.AminoAcid + 9*in.Lipid + 5*in.GIR + feedCal,
			ProteinPerKg:     in.AminoAcid + feedProt,
			SodiumFromIVM:    naInIVM,
			GlucoseFromIVM:   glcInIVM,
			PotassiumFromKPO: kFromPP,
		},
	}
	res.S1, res.S2, res.S3 = assemble(in, vol, dex)
	return res, nil
}

func structuralErrors(in Inputs) []string {
	var errs []string
	if in.WeightG <= 0 {
		errs = append(errs, "Weight must be greater than 0.")
	}
	if in.FeedType == FeedNPO && in.Feeds > 0 {
		errs = append(errs, fmt.Sprintf("Feed type is NPO but feeds entered as %s mL/kg/d. Set feeds to 0 or change feed type.", round.Num(in.Feeds)))
	}
	if in.Feeds > in.TFR {
		errs = append(errs, fmt.Sprintf("Feeds (%s mL/kg/d) exceed total fluid rate (%s mL/kg/d). Reduce feeds or increase TFR.", round.Num(in.Feeds), round.Num(in.TFR)))
	}
	ivmSum := in.IVMN5 + in.IVMN2 + in.IVMNS + in.IVMDex10
	if in.IVM > 0 && ivmSum > in.IVM {
		errs = append(errs, fmt.Sprintf("IVM breakdown total (%s mL) exceeds IVM volume (%s mL). Correct IVM breakdown or increase IVM.", round.Num(ivmSum), round.Num(in.IVM)))
	}
	if in.IVM == 0 && ivmSum > 0 {
		errs = append(errs, fmt.Sprintf("IVM is 0 but sub-volumes total %s mL. Enter IVM volume or clear breakdown fields.", round.Num(ivmSum)))
	}

	if !in.FeedType.Valid() {
		errs = append(errs, fmt.Sprintf("Unknown feed type %q.", in.FeedType))
	}
	if !in.PrenanStrength.Valid() {
		errs = append(errs, fmt.Sprintf("Unknown fortifier strength %q.", in.PrenanStrength))
	}
	if !in.NaSource.Valid() {
		errs = append(errs, fmt.Sprintf("Unknown sodium source %q.", in.NaSource))
	}
	if !in.AASource.Valid() {
		errs = append(errs, fmt.Sprintf("Unknown amino acid source %q.", in.AASource))
	}
	if in.SyringeCount != 2 && in.SyringeCount != 3 {
		errs = append(errs, fmt.Sprintf("Syringe count must be 2 or 3, got %d.", in.SyringeCount))
	}
	if in.Overfill < 1 {
		errs = append(errs, fmt.Sprintf("Overfill must be at least 1, got %s.", round.Num(in.Overfill)))
	}
	return errs
}

func enumsValid(in Inputs) bool {
	return in.FeedType.Valid() && in.PrenanStrength.Valid() && in.NaSource.Valid() && in.AASource.Valid()
}

// sodiumVolume sizes the added-sodium volume. Pentamin already carries
// 0.87 mEq Na per gram of amino acid.
func sodiumVolume(in Inputs, naInIVM, wt float64) float64 {
	switch (electrolyteSource{in.NaSource, in.AASource}) {
	case electrolyteSource{NaCRL, AAAminoven}:
		return (in.Sodium - naInIVM) * wt / 3
	case electrolyteSource{NaCRL, AAPentamin}:
		return (in.Sodium - naInIVM - pentaminNaPerG*in.AminoAcid) * wt / 3
	case electrolyteSource{NaSaline3, AAPentamin}:
		return (in.Sodium - naInIVM - pentaminNaPerG*in.AminoAcid) * wt * 2
	default:
		return (in.Sodium - naInIVM) * wt * 2
	}
}

// potassiumVolume sizes 15% KCl. Pentamin carries 1.5 mEq K per 10 g.
func potassiumVolume(in Inputs, kFromPP, wt float64) float64 {
	switch in.AASource {
	case AAPentamin:
		return (in.Potassium - (kFromPP + 3*in.AminoAcid/20)) * (wt / 2)
	default:
		return (in.Potassium - kFromPP) * (wt / 2)
	}
}

// solveDextrose splits fluid between the low and high concentrations so the
// mix carries glucose grams. When the low concentration alone already
// overshoots and 25% is not forced, only the low concentration is used.
func solveDextrose(use5, use25 bool, fluid, glucose float64) DextroseMix {
	d := DextroseMix{LowPct: 10, HighPct: 50}
	if use5 {
		d.LowPct = 5
	}
	if use25 {
		d.HighPct = 25
	}

	if !use25 && fluid*d.LowPct/100 > glucose {
		d.LowML = glucose * 100 / d.LowPct
		return d
	}
	if den := d.HighPct - d.LowPct; den != 0 {
		d.LowML = (d.HighPct*fluid - 100*glucose) / den
	}
	d.HighML = fluid - d.LowML
	return d
}

func dexName(pct float64) string {
	return round.Num(pct) + "% Dextrose"
}

func osmolarity(v Volumes, d DextroseMix) float64 {
	num := 0.26*v.Lipid + 0.885*v.AminoAcid + 0.555*d.LowML + 2.78*d.HighML + 1.027*v.Sodium + 4*v.Potassium
	den := v.Lipid + v.AminoAcid + v.Sodium + v.Potassium + d.LowML + d.HighML
	if den == 0 {
		return 0
	}
	return num / den * 1000
}

func cnr(in Inputs) float64 {
	if in.AminoAcid <= 0 {
		return 0
	}
	return 6.25 * (4.9*in.GIR + 9*in.Lipid) / in.AminoAcid
}

// feedContribution returns kcal/kg/day and g/kg/day delivered enterally,
// base feed plus fortifier.
func feedContribution(in Inputs) (cal, prot float64) {
	var calPerML, protPerML float64
	switch in.FeedType {
	case FeedNPO:
		return 0, 0
	case FeedFormula:
		calPerML, protPerML = in.FormulaCal100/100, in.FormulaProt100/100
	case FeedEBM:
		calPerML, protPerML = in.EBMCal100/100, in.EBMProt100/100
	}

	// grams of fortifier per mL of feed
	var gPerML float64
	switch in.PrenanStrength {
	case FortifierNone:
	case FortifierQuarter:
		gPerML = 1.0 / 100
	case FortifierHalf:
		gPerML = 1.0 / 50
	case FortifierFull:
		gPerML = 1.0 / 25
	}

	cal = in.Feeds*calPerML + in.Feeds*in.HMFCalPerG*gPerML
	prot = in.Feeds*protPerML + in.Feeds*in.HMFProtPerG*gPerML
	return cal, prot
}

func sodiumLabel(s NaSource) string {
	if s == NaCRL {
		return "Conc. RL"
	}
	return "3% NaCl"
}

func aminoLabel(s AASource) string {
	if s == AAPentamin {
		return "10% Pentamin"
	}
	return "10% Aminoven"
}

type item struct {
	label string
	v     float64
}

func assemble(in Inputs, v Volumes, d DextroseMix) (Syringe, Syringe, *Syringe) {
	isPerDay := in.Overfill > 1

	s1Total := v.Lipid + v.MVI + v.Celcel
	s1 := build([]item{
		{"20% Lipid", v.Lipid},
		{"MVI", v.MVI},
		{"Celcel", v.Celcel},
	}, s1Total, in.Overfill, isPerDay, !isPerDay && s1Total > per50Ref)

	additives := []item{
		{aminoLabel(in.AASource), v.AminoAcid},
		{sodiumLabel(in.NaSource), v.Sodium},
		{"15% KCl", v.Potassium},
		{"10% Ca Gluconate", v.Calcium},
		{"50% MgSO₄", v.Magnesium},
		{"KPO₄", v.PotassiumPhosphate},
	}
	dextrose := []item{
		{dexName(d.LowPct), d.LowML},
		{dexName(d.HighPct), d.HighML},
	}
	additiveTotal := v.AminoAcid + v.Sodium + v.Potassium + v.Calcium + v.Magnesium + v.PotassiumPhosphate

	if in.SyringeCount == 3 {
		s2 := build(additives, additiveTotal, in.Overfill, isPerDay, !isPerDay)
		s3 := build(dextrose, d.LowML+d.HighML, in.Overfill, isPerDay, !isPerDay)
		return s1, s2, &s3
	}
	s2 := build(append(additives, dextrose...), additiveTotal+d.LowML+d.HighML, in.Overfill, isPerDay, !isPerDay)
	return s1, s2, nil
}

func build(items []item, total, overfill float64, isPerDay, show50 bool) Syringe {
	s := Syringe{Items: []LineItem{}, TotalML: total, RateMLPerHr: total / 24}
	switch {
	case isPerDay:
		s.SecondaryColumn = "Adj. Vol"
	case show50:
		s.SecondaryColumn = "Per 50 mL"
	}
	for _, it := range items {
		if !round.Visible(it.v) {
			continue
		}
		li := LineItem{Label: it.label, VolumeML: it.v}
		switch {
		case isPerDay:
			adj := it.v * overfill
			li.Secondary = &adj
		case show50:
			p50 := 0.0
			if total > 0 {
				p50 = it.v * per50Ref / total
			}
			li.Secondary = &p50
		}
		s.Items = append(s.Items, li)
	}
	return s
}

// TotalML sums every syringe.
func (r Result) TotalML() float64 {
	t := r.S1.TotalML + r.S2.TotalML
	if r.S3 != nil {
		t += r.S3.TotalML
	}
	return t
}

// AsValidation extracts the validation problems carried by err, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
