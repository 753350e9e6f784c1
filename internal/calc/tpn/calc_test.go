package tpn

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-6

func scenarioA() Inputs {
	return Defaults()
}

func mustCalc(t *testing.T, in Inputs) Result {
	t.Helper()
	res, err := Calculate(in)
	require.NoError(t, err)
	return res
}

func validationErrors(t *testing.T, in Inputs) []string {
	t.Helper()
	res, err := Calculate(in)
	require.Error(t, err)
	ve, ok := AsValidation(err)
	require.True(t, ok, "expected *ValidationError, got %T", err)
	assert.Equal(t, Result{}, res)
	return ve.Errors
}

func labels(s Syringe) []string {
	out := make([]string, 0, len(s.Items))
	for _, it := range s.Items {
		out = append(out, it.Label)
	}
	return out
}

func TestScenarioA(t *testing.T) {
	res := mustCalc(t, scenarioA())

	assert.InDelta(t, 16, res.S1.TotalML, tol)
	assert.InDelta(t, 30, res.Volumes.AminoAcid, tol)
	assert.InDelta(t, 6, res.Volumes.Sodium, tol)
	assert.InDelta(t, 1, res.Volumes.Potassium, tol)

	assert.InDelta(t, 37.15, res.Dextrose.LowML, tol)
	assert.InDelta(t, 9.85, res.Dextrose.HighML, tol)
	assert.Equal(t, 10.0, res.Dextrose.LowPct)
	assert.Equal(t, 50.0, res.Dextrose.HighPct)

	assert.Equal(t, []string{"20% Lipid", "MVI"}, labels(res.S1))
	assert.Empty(t, res.S1.SecondaryColumn)
	assert.Nil(t, res.S1.Items[0].Secondary)

	assert.Equal(t, []string{"10% Aminoven", "3% NaCl", "15% KCl", "10% Dextrose", "50% Dextrose"}, labels(res.S2))
	assert.InDelta(t, 84, res.S2.TotalML, tol)
	assert.InDelta(t, 3.5, res.S2.RateMLPerHr, tol)
	assert.Equal(t, "Per 50 mL", res.S2.SecondaryColumn)
	require.NotNil(t, res.S2.Items[0].Secondary)
	assert.InDelta(t, 30*50.0/84, *res.S2.Items[0].Secondary, tol)
	assert.Nil(t, res.S3)

	assert.InDelta(t, 100, res.Mon.TotalFluidML, tol)
	assert.InDelta(t, 100, res.Mon.TPNFluidML, tol)
	assert.InDelta(t, 8.64, res.Mon.TPNGlucoseG, tol)
	assert.InDelta(t, 47, res.Mon.GlucoseFluidML, tol)
	assert.InDelta(t, 864.0/84, res.Mon.DextrosePct, tol)
	assert.InDelta(t, 117.5, res.Mon.CNR, tol)
	assert.InDelta(t, 88.61325/99*1000, res.Mon.Osmolarity, 1e-3)
	assert.InDelta(t, 69, res.Mon.CaloriesPerKg, tol)
	assert.InDelta(t, 3, res.Mon.ProteinPerKg, tol)
	assert.Empty(t, res.Warnings)
	assert.False(t, res.IsPerDay)
}

func TestScenarioB_FeedsExceedTFR(t *testing.T) {
	in := scenarioA()
	in.FeedType = FeedEBM
	in.Feeds = 150
	errs := validationErrors(t, in)
	assert.Contains(t, errs[0], "exceed total fluid rate")
	assert.Contains(t, errs[1], "TPN fluid volume is negative")
}

func TestScenarioC_NPOWithFeeds(t *testing.T) {
	in := scenarioA()
	in.Feeds = 20
	errs := validationErrors(t, in)
	assert.Contains(t, errs[0], "NPO but feeds entered")
	assert.Equal(t, "Feed type is NPO but feeds entered as 20 mL/kg/d. Set feeds to 0 or change feed type.", errs[0])
}

func TestScenarioD_IVMBreakdownExceedsTotal(t *testing.T) {
	in := scenarioA()
	in.IVM = 5
	in.IVMN5, in.IVMN2, in.IVMNS = 2, 2, 2
	errs := validationErrors(t, in)
	assert.Contains(t, errs[0], "IVM breakdown total")
}

func TestIVMBreakdownWithoutTotal(t *testing.T) {
	in := scenarioA()
	in.IVMNS = 3
	errs := validationErrors(t, in)
	assert.Equal(t, "IVM is 0 but sub-volumes total 3 mL. Enter IVM volume or clear breakdown fields.", errs[0])
}

func TestWeightGuard(t *testing.T) {
	for _, w := range []float64{0, -1, -1500} {
		in := scenarioA()
		in.WeightG = w
		in.Feeds = 20 // NPO mismatch is still reported
		errs := validationErrors(t, in)
		require.Len(t, errs, 2)
		assert.Equal(t, "Weight must be greater than 0.", errs[0])
		assert.Contains(t, errs[1], "NPO but feeds entered")
	}
}

func TestAllStructuralErrorsCollected(t *testing.T) {
	in := scenarioA()
	in.Feeds = 150
	in.IVM = 5
	in.IVMN5, in.IVMN2, in.IVMNS = 2, 2, 2
	errs := validationErrors(t, in)
	require.GreaterOrEqual(t, len(errs), 3)
	assert.Contains(t, errs[0], "NPO but feeds entered")
	assert.Contains(t, errs[1], "exceed total fluid rate")
	assert.Contains(t, errs[2], "IVM breakdown total")
}

func TestUnknownEnumsShortCircuit(t *testing.T) {
	in := scenarioA()
	in.FeedType = "Soup"
	in.NaSource = "Seawater"
	errs := validationErrors(t, in)
	assert.Equal(t, []string{`Unknown feed type "Soup".`, `Unknown sodium source "Seawater".`}, errs)
}

func TestSyringeCountAndOverfillChecked(t *testing.T) {
	in := scenarioA()
	in.SyringeCount = 4
	in.Overfill = 0.5
	errs := validationErrors(t, in)
	assert.Equal(t, []string{"Syringe count must be 2 or 3, got 4.", "Overfill must be at least 1, got 0.5."}, errs)
}

func TestNegativeTPNFluid(t *testing.T) {
	in := scenarioA()
	in.IVM = 200
	errs := validationErrors(t, in)
	assert.Equal(t, "TPN fluid volume is negative (-100 mL). IVM (200 mL) exceeds available IV fluid (100 mL).", errs[0])
	for _, e := range errs {
		assert.NotContains(t, e, "Insufficient fluid")
	}
}

func TestInsufficientFluidForDextrose(t *testing.T) {
	in := scenarioA()
	in.TFR = 50
	errs := validationErrors(t, in)
	assert.Equal(t, "Insufficient fluid for dextrose (-3 mL remaining). Reduce component doses or increase TFR.", errs[0])
	require.Len(t, errs, 2)
	assert.Contains(t, errs[1], "10% Dextrose volume is negative")
}

func TestNegativeDextroseVolume(t *testing.T) {
	in := scenarioA()
	in.GIR = 20
	errs := validationErrors(t, in)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "10% Dextrose volume is negative")
	assert.Contains(t, errs[0], "Try switching dextrose concentrations or adjust GIR.")
}

func TestHighDextroseWarning(t *testing.T) {
	in := scenarioA()
	in.GIR = 12
	res := mustCalc(t, in)
	assert.InDelta(t, 15.55, res.Dextrose.LowML, tol)
	assert.InDelta(t, 31.45, res.Dextrose.HighML, tol)
	assert.Equal(t, []string{"Dextrose 20.6% - consider central line."}, res.Warnings)
}

func TestSodiumSourceBranches(t *testing.T) {
	cases := []struct {
		na    NaSource
		aa    AASource
		naVol float64
		kVol  float64
		naLbl string
		aaLbl string
	}{
		{NaSaline3, AAAminoven, 6, 1, "3% NaCl", "10% Aminoven"},
		{NaSaline3, AAPentamin, (3 - 0.87*3) * 2, (2 - 0.45) / 2, "3% NaCl", "10% Pentamin"},
		{NaCRL, AAAminoven, 1, 1, "Conc. RL", "10% Aminoven"},
		{NaCRL, AAPentamin, (3 - 0.87*3) / 3, (2 - 0.45) / 2, "Conc. RL", "10% Pentamin"},
	}
	for _, c := range cases {
		t.Run(string(c.na)+"/"+string(c.aa), func(t *testing.T) {
			in := scenarioA()
			in.NaSource, in.AASource = c.na, c.aa
			res := mustCalc(t, in)
			assert.InDelta(t, c.naVol, res.Volumes.Sodium, tol)
			assert.InDelta(t, c.kVol, res.Volumes.Potassium, tol)
			assert.Contains(t, labels(res.S2), c.naLbl)
			assert.Contains(t, labels(res.S2), c.aaLbl)
		})
	}
}

func TestNegativeSodiumIsReportedNotClamped(t *testing.T) {
	in := scenarioA()
	in.AASource = AAPentamin
	in.Sodium = 1
	res := mustCalc(t, in)
	assert.InDelta(t, (1-2.61)*2, res.Volumes.Sodium, tol)
	assert.Contains(t, res.Warnings, "Na volume slightly negative - Na via IVM/Pentamin may exceed target.")
	assert.Contains(t, labels(res.S2), "3% NaCl")
}

func TestSodiumFromIVMIsSubtracted(t *testing.T) {
	in := scenarioA()
	in.IVM = 10
	in.IVMNS = 10
	res := mustCalc(t, in)
	assert.InDelta(t, 1.54, res.Mon.SodiumFromIVM, tol)
	assert.InDelta(t, (3-1.54)*2, res.Volumes.Sodium, tol)
	assert.InDelta(t, 90, res.Mon.TPNFluidML, tol)
}

func TestGlucoseFromIVMIsSubtracted(t *testing.T) {
	in := scenarioA()
	in.IVM = 10
	in.IVMDex10 = 10
	res := mustCalc(t, in)
	assert.InDelta(t, 1, res.Mon.GlucoseFromIVM, tol)
	assert.InDelta(t, 7.64, res.Mon.TPNGlucoseG, tol)
}

func TestDextroseConcentrationPairs(t *testing.T) {
	cases := []struct {
		name          string
		use5, use25   bool
		low, high     float64
		lowML, highML float64
	}{
		{"10+50", false, false, 10, 50, 37.15, 9.85},
		{"5+50", true, false, 5, 50, (2350 - 864) / 45.0, 47 - (2350-864)/45.0},
		{"10+25", false, true, 10, 25, (1175 - 864) / 15.0, 47 - (1175-864)/15.0},
		{"5+25", true, true, 5, 25, (1175 - 864) / 20.0, 47 - (1175-864)/20.0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := scenarioA()
			in.Use5Dex, in.Use25Dex = c.use5, c.use25
			res := mustCalc(t, in)
			assert.Equal(t, c.low, res.Dextrose.LowPct)
			assert.Equal(t, c.high, res.Dextrose.HighPct)
			assert.InDelta(t, c.lowML, res.Dextrose.LowML, 1e-6)
			assert.InDelta(t, c.highML, res.Dextrose.HighML, 1e-6)
		})
	}
}

func TestLowConcentrationOnlyBranch(t *testing.T) {
	in := scenarioA()
	in.WeightG = 3000
	in.TFR = 150
	in.Lipid = 4
	res := mustCalc(t, in)

	// 10% over 276 mL would deliver 27.6 g against a 25.92 g target.
	assert.InDelta(t, 276, res.Mon.GlucoseFluidML, tol)
	assert.InDelta(t, 259.2, res.Dextrose.LowML, tol)
	assert.Zero(t, res.Dextrose.HighML)
	assert.NotContains(t, labels(res.S2), "50% Dextrose")

	// s1 is 60 + 3 mL, over 50, so per-50 values appear.
	assert.Equal(t, "Per 50 mL", res.S1.SecondaryColumn)
	require.NotNil(t, res.S1.Items[0].Secondary)
	assert.InDelta(t, 60*50.0/63, *res.S1.Items[0].Secondary, tol)
}

func TestForced25NeverUsesLowOnly(t *testing.T) {
	in := scenarioA()
	in.WeightG = 3000
	in.TFR = 150
	in.Lipid = 4
	in.Use25Dex = true
	_, err := Calculate(in)
	require.Error(t, err)
	ve, _ := AsValidation(err)
	assert.Contains(t, ve.Errors[0], "25% Dextrose volume is negative")
}

func TestThreeSyringes(t *testing.T) {
	in := scenarioA()
	in.SyringeCount = 3
	res := mustCalc(t, in)
	require.NotNil(t, res.S3)
	assert.Equal(t, []string{"10% Aminoven", "3% NaCl", "15% KCl"}, labels(res.S2))
	assert.InDelta(t, 37, res.S2.TotalML, tol)
	assert.Equal(t, []string{"10% Dextrose", "50% Dextrose"}, labels(*res.S3))
	assert.InDelta(t, 47, res.S3.TotalML, tol)
	assert.InDelta(t, 47.0/24, res.S3.RateMLPerHr, tol)
	require.NotNil(t, res.S3.Items[0].Secondary)
	assert.InDelta(t, 37.15*50/47, *res.S3.Items[0].Secondary, tol)
}

func TestOverfillSwitchesToAdjustedVolumes(t *testing.T) {
	in := scenarioA()
	in.Overfill = 1.2
	res := mustCalc(t, in)
	assert.True(t, res.IsPerDay)
	for _, s := range []Syringe{res.S1, res.S2} {
		assert.Equal(t, "Adj. Vol", s.SecondaryColumn)
		for _, it := range s.Items {
			require.NotNil(t, it.Secondary)
			assert.InDelta(t, it.VolumeML*1.2, *it.Secondary, tol)
		}
	}
}

func TestCalciumAndPhosphateRouting(t *testing.T) {
	in := scenarioA()
	in.Calcium = 40
	in.PO4 = 31
	in.CaViaTPN = false
	in.PO4ViaTPN = true
	res := mustCalc(t, in)

	assert.InDelta(t, 40/9.3, res.Sep.CalciumGluconateML, tol)
	assert.Zero(t, res.Volumes.Calcium)
	assert.Zero(t, res.Sep.PotassiumPhosphateML)
	assert.InDelta(t, 31/93.0, res.Volumes.PotassiumPhosphate, tol)
	assert.InDelta(t, 4.4*31/93.0, res.Mon.PotassiumFromKPO, tol)
	assert.InDelta(t, (2-4.4*31/93.0)/2, res.Volumes.Potassium, tol)
	assert.Contains(t, labels(res.S2), "KPO₄")
	assert.NotContains(t, labels(res.S2), "10% Ca Gluconate")
}

func TestTinyVolumesAreHidden(t *testing.T) {
	in := scenarioA()
	in.Magnesium = 0.1 // 0.025 mL rounds to 0.0
	res := mustCalc(t, in)
	assert.NotContains(t, labels(res.S2), "50% MgSO₄")
	assert.InDelta(t, 0.025, res.Volumes.Magnesium, tol)
}

func TestFeedContribution(t *testing.T) {
	in := scenarioA()
	in.TFR = 150
	in.Feeds = 100
	in.AminoAcid = 1
	in.Lipid = 1

	in.FeedType = FeedEBM
	in.PrenanStrength = FortifierHalf
	res := mustCalc(t, in)
	assert.InDelta(t, 4+9+30+67+8, res.Mon.CaloriesPerKg, tol)
	assert.InDelta(t, 1+1.1+0.6, res.Mon.ProteinPerKg, tol)
	assert.InDelta(t, 100, res.Mon.FeedsML, tol)
	assert.InDelta(t, 50, res.Mon.IVFluidPerKg, tol)

	in.FeedType = FeedFormula
	in.PrenanStrength = FortifierFull
	res = mustCalc(t, in)
	assert.InDelta(t, 4+9+30+78+16, res.Mon.CaloriesPerKg, tol)
	assert.InDelta(t, 1+1.9+1.2, res.Mon.ProteinPerKg, tol)

	in.PrenanStrength = FortifierQuarter
	res = mustCalc(t, in)
	assert.InDelta(t, 4+9+30+78+4, res.Mon.CaloriesPerKg, tol)
}

func TestNPOHasNoFeedTerm(t *testing.T) {
	for _, strength := range []Fortifier{FortifierNone, FortifierQuarter, FortifierHalf, FortifierFull} {
		in := scenarioA()
		in.PrenanStrength = strength
		in.EBMCal100 = 999
		in.HMFCalPerG = 999
		res := mustCalc(t, in)
		assert.Equal(t, 4*in.AminoAcid+9*in.Lipid+5*in.GIR, res.Mon.CaloriesPerKg)
		assert.Equal(t, in.AminoAcid, res.Mon.ProteinPerKg)
	}
}

func TestZeroAminoAcidGuards(t *testing.T) {
	in := scenarioA()
	in.AminoAcid = 0
	res := mustCalc(t, in)
	assert.Zero(t, res.Mon.CNR)
}

func TestOsmolarityWithNoSoluteVolume(t *testing.T) {
	in := scenarioA()
	in.GIR = 0
	in.Lipid = 0
	in.AminoAcid = 0
	in.Sodium = 0
	in.Potassium = 0
	// MVI and Celcel take the whole 100 mL of TPN fluid
	in.MVI = 60
	in.Celcel = 40

	res := mustCalc(t, in)
	assert.Zero(t, res.Mon.GlucoseFluidML)
	assert.Zero(t, res.Dextrose.LowML)
	assert.Zero(t, res.Dextrose.HighML)
	assert.Zero(t, res.Mon.Osmolarity)
	assert.False(t, math.IsNaN(res.Mon.Osmolarity))
	assert.Zero(t, res.Mon.DextrosePct)
}

func TestConservationAcrossSyringes(t *testing.T) {
	variants := []func(*Inputs){
		func(*Inputs) {},
		func(in *Inputs) { in.SyringeCount = 3 },
		func(in *Inputs) { in.Use25Dex = true },
		func(in *Inputs) { in.Use5Dex = true; in.SyringeCount = 3 },
		func(in *Inputs) { in.Calcium = 20; in.PO4 = 30; in.PO4ViaTPN = true },
		func(in *Inputs) { in.IVM = 8; in.IVMN2 = 4; in.IVMDex10 = 4 },
		func(in *Inputs) { in.WeightG = 750; in.TFR = 140; in.Celcel = 0.5; in.GIR = 8 },
	}
	for i, mutate := range variants {
		in := scenarioA()
		mutate(&in)
		res := mustCalc(t, in)
		assert.InDelta(t, res.Mon.TPNFluidML, res.TotalML(), 0.1, "variant %d", i)
	}
}

func TestDextroseRoundTrip(t *testing.T) {
	variants := []func(*Inputs){
		func(*Inputs) {},
		func(in *Inputs) { in.Use25Dex = true },
		func(in *Inputs) { in.Use5Dex = true },
		func(in *Inputs) { in.GIR = 9 },
		func(in *Inputs) { in.WeightG = 3000; in.TFR = 150; in.Lipid = 4 },
	}
	for i, mutate := range variants {
		in := scenarioA()
		mutate(&in)
		res := mustCalc(t, in)
		assert.InDelta(t, res.Mon.TPNGlucoseG, res.Dextrose.GlucoseG(), 0.01, "variant %d", i)
	}
}

func TestIdempotent(t *testing.T) {
	in := scenarioA()
	in.SyringeCount = 3
	in.Overfill = 1.1
	a := mustCalc(t, in)
	b := mustCalc(t, in)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("results differ (-first +second):\n%s", diff)
	}
}
