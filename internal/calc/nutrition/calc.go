package nutrition

import (
	"errors"
	"fmt"
)

type EntryMode string

const (
	PerFeed EntryMode = "feed"
	PerDay  EntryMode = "day"
)

type FeedSource string

const (
	SourceEBM     FeedSource = "EBM"
	SourceFormula FeedSource = "Formula"
	SourceMixed   FeedSource = "Mixed"
)

type Status string

const (
	StatusLow  Status = "low"
	StatusOK   Status = "ok"
	StatusHigh Status = "high"
)

var ErrInvalidWeight = errors.New("weight must be greater than 0")

// Input describes one day of enteral feeding.
type Input struct {
	WeightNowG  float64   `json:"wtNow"`
	WeightLastG float64   `json:"wtLast"`
	Mode        EntryMode `json:"mode"`
	PerFeedML   float64   `json:"perFeed"`
	FeedsPerDay float64   `json:"feedsPerDay"`
	TotalMLKg   float64   `json:"totalMlKg"`

	Source FeedSource `json:"feedSrc"`
	EBMPct float64    `json:"ebmPct"`

	FortifierMode    EntryMode `json:"hmfMode"`
	FortifierPerFeed float64   `json:"hmfPerFeed"`
	FortifierPerDay  float64   `json:"hmfPerDay"`

	CalciumML     float64 `json:"caMl"`
	CalciumConc   float64 `json:"caConc"`
	IronML        float64 `json:"feMl"`
	IronConc      float64 `json:"feConc"`
	PhosphateML   float64 `json:"po4Ml"`
	PhosphateConc float64 `json:"po4Conc"`
	VitaminDIU    float64 `json:"vitdIU"`
}

func DefaultInput() Input {
	return Input{
		WeightNowG:    1500,
		WeightLastG:   1400,
		Mode:          PerDay,
		PerFeedML:     15,
		FeedsPerDay:   8,
		TotalMLKg:     150,
		Source:        SourceEBM,
		EBMPct:        70,
		FortifierMode: PerDay,
		CalciumConc:   16,
		IronConc:      10,
		PhosphateConc: 30,
		VitaminDIU:    400,
	}
}

type Row struct {
	Key            string  `json:"k"`
	Name           string  `json:"n"`
	Unit           string  `json:"u"`
	FromEBM        float64 `json:"fromEbm"`
	FromFormula    float64 `json:"fromFm"`
	FromFortifier  float64 `json:"fromHmf"`
	FromSupplement float64 `json:"fromSup"`
	Total          float64 `json:"totalAbs"`
	PerKg          float64 `json:"perKg"`
	Status         Status  `json:"status"`
	AAP            *Range  `json:"aap,omitempty"`
	ESPGHAN        *Range  `json:"esp,omitempty"`
}

type Result struct {
	Rows        []Row   `json:"rows"`
	WeightKg    float64 `json:"wt"`
	FeedMLKg    float64 `json:"feedMlKg"`
	TotalFeedML float64 `json:"totalFeedMl"`
	EBMML       float64 `json:"ebmMl"`
	FormulaML   float64 `json:"fmMl"`
	FortifierG  float64 `json:"hmfG"`
	// WeightGain is g/kg/day over the past week, 0 without a previous weight.
	WeightGain float64 `json:"wtGain"`
	// ProteinEnergy is grams of protein per 100 kcal.
	ProteinEnergy float64 `json:"pe"`
}

// Row returns the audit row for key.
func (r Result) Row(key string) (Row, bool) {
	for _, row := range r.Rows {
		if row.Key == key {
			return row, true
		}
	}
	return Row{}, false
}

func Calculate(in Input, table []Nutrient) (Result, error) {
	wt := in.WeightNowG / 1000
	if wt <= 0 {
		return Result{}, ErrInvalidWeight
	}
	if in.Mode != PerFeed && in.Mode != PerDay {
		return Result{}, fmt.Errorf("unknown feed entry mode %q", in.Mode)
	}
	if in.FortifierMode != PerFeed && in.FortifierMode != PerDay {
		return Result{}, fmt.Errorf("unknown fortifier entry mode %q", in.FortifierMode)
	}
	if table == nil {
		table = factory
	}

	total := in.TotalMLKg * wt
	if in.Mode == PerFeed {
		total = in.PerFeedML * in.FeedsPerDay
	}

	var ebm, fm float64
	switch in.Source {
	case SourceEBM:
		ebm = total
	case SourceFormula:
		fm = total
	case SourceMixed:
		ebm = total * in.EBMPct / 100
		fm = total * (100 - in.EBMPct) / 100
	default:
		return Result{}, fmt.Errorf("unknown feed source %q", in.Source)
	}

	fortG := in.FortifierPerDay
	if in.FortifierMode == PerFeed {
		fortG = in.FortifierPerFeed * in.FeedsPerDay
	}

	res := Result{
		Rows:        make([]Row, 0, len(table)),
		WeightKg:    wt,
		FeedMLKg:    total / wt,
		TotalFeedML: total,
		EBMML:       ebm,
		FormulaML:   fm,
		FortifierG:  fortG,
		WeightGain:  weightGain(in.WeightNowG, in.WeightLastG),
	}
	for _, n := range table {
		row := Row{
			Key:            n.Key,
			Name:           n.Name,
			Unit:           n.Unit,
			FromEBM:        ebm * n.Breast / 100,
			FromFormula:    fm * n.Formula / 100,
			FromFortifier:  fortG * n.Fortifier,
			FromSupplement: supplement(n.Key, in),
			AAP:            n.AAP,
			ESPGHAN:        n.ESPGHAN,
		}
		row.Total = row.FromEBM + row.FromFormula + row.FromFortifier + row.FromSupplement
		row.PerKg = row.Total / wt
		if n.PerDay {
			row.PerKg = row.Total
		}
		row.Status = status(row.PerKg, n.ESPGHAN)
		res.Rows = append(res.Rows, row)
	}

	energy, okE := res.Row("energy")
	protein, okP := res.Row("protein")
	if okE && okP && energy.PerKg > 0 {
		res.ProteinEnergy = protein.PerKg / energy.PerKg * 100
	}
	return res, nil
}

func supplement(key string, in Input) float64 {
	switch key {
	case "ca":
		return in.CalciumML * in.CalciumConc
	case "fe":
		return in.IronML * in.IronConc
	case "po4":
		return in.PhosphateML * in.PhosphateConc
	case "vitd":
		return in.VitaminDIU
	}
	return 0
}

// status compares against ESPGHAN with 5% slack on either side.
func status(perKg float64, rec *Range) Status {
	switch {
	case rec == nil:
		return StatusOK
	case perKg < rec[0]*0.95:
		return StatusLow
	case perKg > rec[1]*1.05:
		return StatusHigh
	}
	return StatusOK
}

// weightGain normalises the weekly change by the mean of both weights.
func weightGain(now, last float64) float64 {
	if last <= 0 {
		return 0
	}
	return (now - last) / ((now + last) / 2) * 1000 / 7
}
