package nutrition

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(t *testing.T, res Result, key string) Row {
	t.Helper()
	r, ok := res.Row(key)
	require.True(t, ok, "missing row %q", key)
	return r
}

func TestDefaultsOnBreastMilk(t *testing.T) {
	res, err := Calculate(DefaultInput(), nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 18)

	assert.InDelta(t, 225, res.TotalFeedML, 1e-9)
	assert.InDelta(t, 150, res.FeedMLKg, 1e-9)
	assert.InDelta(t, 225, res.EBMML, 1e-9)
	assert.Zero(t, res.FormulaML)

	energy := row(t, res, "energy")
	assert.InDelta(t, 117, energy.Total, 1e-9)
	assert.InDelta(t, 78, energy.PerKg, 1e-9)
	assert.Equal(t, StatusLow, energy.Status)

	protein := row(t, res, "protein")
	assert.InDelta(t, 1.425, protein.PerKg, 1e-9)
	assert.InDelta(t, 1.425/78*100, res.ProteinEnergy, 1e-9)

	vitd := row(t, res, "vitd")
	assert.InDelta(t, 400, vitd.FromSupplement, 1e-9)
	assert.InDelta(t, 404.5, vitd.PerKg, 1e-9, "vitamin D is reported per day")

	assert.InDelta(t, 100.0/1450*1000/7, res.WeightGain, 1e-9)
}

func TestMixedFeedsWithFortifierPerFeed(t *testing.T) {
	in := DefaultInput()
	in.Mode = PerFeed
	in.PerFeedML = 20
	in.FeedsPerDay = 8
	in.Source = SourceMixed
	in.EBMPct = 50
	in.FortifierMode = PerFeed
	in.FortifierPerFeed = 0.5

	res, err := Calculate(in, nil)
	require.NoError(t, err)
	assert.InDelta(t, 160, res.TotalFeedML, 1e-9)
	assert.InDelta(t, 80, res.EBMML, 1e-9)
	assert.InDelta(t, 80, res.FormulaML, 1e-9)
	assert.InDelta(t, 4, res.FortifierG, 1e-9)

	energy := row(t, res, "energy")
	assert.InDelta(t, 41.6, energy.FromEBM, 1e-9)
	assert.InDelta(t, 62.4, energy.FromFormula, 1e-9)
	assert.InDelta(t, 16, energy.FromFortifier, 1e-9)
	assert.InDelta(t, 120/1.5, energy.PerKg, 1e-9)
}

func TestSupplements(t *testing.T) {
	in := DefaultInput()
	in.CalciumML = 2
	in.IronML = 0.5
	in.PhosphateML = 1

	res, err := Calculate(in, nil)
	require.NoError(t, err)
	assert.InDelta(t, 32, row(t, res, "ca").FromSupplement, 1e-9)
	assert.InDelta(t, (58.5+32)/1.5, row(t, res, "ca").PerKg, 1e-9)
	assert.InDelta(t, 5, row(t, res, "fe").FromSupplement, 1e-9)
	assert.InDelta(t, 30, row(t, res, "po4").FromSupplement, 1e-9)
	assert.Zero(t, row(t, res, "zn").FromSupplement)
}

func TestStatusBands(t *testing.T) {
	in := DefaultInput()
	in.WeightNowG = 1000
	in.TotalMLKg = 200
	in.Source = SourceFormula

	res, err := Calculate(in, nil)
	require.NoError(t, err)
	assert.InDelta(t, 3.34, row(t, res, "fe").PerKg, 1e-9)
	assert.Equal(t, StatusHigh, row(t, res, "fe").Status)
	assert.Equal(t, StatusLow, row(t, res, "vita").Status)

	assert.Equal(t, StatusOK, status(104.6, &Range{110, 135}))
	assert.Equal(t, StatusLow, status(104.4, &Range{110, 135}))
	assert.Equal(t, StatusOK, status(141.7, &Range{110, 135}))
	assert.Equal(t, StatusHigh, status(141.8, &Range{110, 135}))
	assert.Equal(t, StatusOK, status(0, nil))
}

func TestWeightGain(t *testing.T) {
	assert.Zero(t, weightGain(1500, 0))
	assert.InDelta(t, -100.0/1450*1000/7, weightGain(1400, 1500), 1e-9)
}

func TestMergeOverrides(t *testing.T) {
	bm := 70.0
	table := Merge(map[string]Override{
		"energy":  {Breast: &bm, ESPGHAN: &Range{100, 120}},
		"unknown": {Breast: &bm},
	})
	require.Len(t, table, len(factory))
	assert.Equal(t, 70.0, table[0].Breast)
	assert.Equal(t, 78.0, table[0].Formula)
	assert.Equal(t, Range{100, 120}, *table[0].ESPGHAN)
	assert.Equal(t, Range{105, 130}, *table[0].AAP)

	// the factory table is untouched
	assert.Equal(t, 52.0, factory[0].Breast)
	assert.Equal(t, Range{110, 135}, *factory[0].ESPGHAN)
}

func TestInvalidInputs(t *testing.T) {
	in := DefaultInput()
	in.WeightNowG = 0
	_, err := Calculate(in, nil)
	assert.ErrorIs(t, err, ErrInvalidWeight)

	in = DefaultInput()
	in.Source = "Donor"
	_, err = Calculate(in, nil)
	assert.EqualError(t, err, `unknown feed source "Donor"`)

	in = DefaultInput()
	in.Mode = "hour"
	_, err = Calculate(in, nil)
	assert.Error(t, err)
}

func TestHandlerUsesOverrides(t *testing.T) {
	bm := 100.0
	h := &Handler{Overrides: func(*http.Request) (map[string]Override, error) {
		return map[string]Override{"energy": {Breast: &bm}}, nil
	}}
	rec := httptest.NewRecorder()
	h.Calc(rec, httptest.NewRequest(http.MethodPost, "/api/tools/nutrition/calc", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalAbs":225`)

	h.Overrides = func(*http.Request) (map[string]Override, error) { return nil, errors.New("disk") }
	rec = httptest.NewRecorder()
	h.Calc(rec, httptest.NewRequest(http.MethodPost, "/api/tools/nutrition/calc", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
