package gir

import (
	"errors"
	"fmt"
	"math"
)

// Combo names a dextrose concentration pair.
type Combo string

const (
	Combo10Only Combo = "10only"
	Combo5_25   Combo = "5+25"
	Combo5_50   Combo = "5+50"
	Combo10_25  Combo = "10+25"
	Combo10_50  Combo = "10+50"
)

// Combos lists the supported pairs in display order.
var Combos = []Combo{Combo10Only, Combo5_25, Combo5_50, Combo10_25, Combo10_50}

var comboPct = map[Combo][2]float64{
	Combo10Only: {10, 10},
	Combo5_25:   {5, 25},
	Combo5_50:   {5, 50},
	Combo10_25:  {10, 25},
	Combo10_50:  {10, 50},
}

// Percentages returns the low and high concentration of c.
func (c Combo) Percentages() (low, high float64, ok bool) {
	p, ok := comboPct[c]
	return p[0], p[1], ok
}

const (
	mgMinToGDay = 144 // 1440 min/day over 10 mg glucose per mL of 1% dextrose
	tolerance   = 0.05
)

var ErrInvalid = errors.New("weight and fluid volume must be greater than 0")

type Input struct {
	WeightG    float64 `json:"weightG"`
	FluidPerKg float64 `json:"fluidPerKg"`
	TargetGIR  float64 `json:"targetGir"`
	Combo      Combo   `json:"combo"`
}

func DefaultInput() Input {
	return Input{WeightG: 1000, FluidPerKg: 60, TargetGIR: 6, Combo: Combo10_50}
}

type Dextrose struct {
	Pct   float64 `json:"pct"`
	ML    float64 `json:"ml"`
	Per50 float64 `json:"per50"`
}

// Suggestion is an alternative pair whose range covers the target.
type Suggestion struct {
	Combo  Combo   `json:"combo"`
	Low    float64 `json:"low"`
	High   float64 `json:"high"`
	GIRMin float64 `json:"girMin"`
	GIRMax float64 `json:"girMax"`
}

type Result struct {
	VolumeML    float64      `json:"volumeMl"`
	RateMLPerHr float64      `json:"rateMlPerHr"`
	Single      bool         `json:"single"`
	Exact       bool         `json:"exact"`
	RequiredPct float64      `json:"requiredPct"`
	FinalPct    float64      `json:"finalPct"`
	GIR         float64      `json:"gir"`
	GIRMin      float64      `json:"girMin,omitempty"`
	GIRMax      float64      `json:"girMax,omitempty"`
	Mix         []Dextrose   `json:"mix"`
	Suggestions []Suggestion `json:"suggestions"`
}

func girFor(pct, vol, wtKg float64) float64 {
	return pct * vol / (wtKg * mgMinToGDay)
}

// Calculate solves the dextrose mix for a target GIR. A single
// concentration fixes the GIR; a pair is split to hit the target, or
// clamped to the nearest achievable mix with alternative pairs offered.
func Calculate(in Input) (Result, error) {
	lo, hi, ok := in.Combo.Percentages()
	if !ok {
		return Result{}, fmt.Errorf("unknown dextrose combination %q", in.Combo)
	}
	wtKg := in.WeightG / 1000
	vol := in.FluidPerKg * wtKg
	if wtKg <= 0 || vol <= 0 {
		return Result{}, ErrInvalid
	}

	res := Result{VolumeML: vol, RateMLPerHr: vol / 24, Suggestions: []Suggestion{}}
	if lo == hi {
		res.Single = true
		res.FinalPct = lo
		res.GIR = girFor(lo, vol, wtKg)
		res.Mix = []Dextrose{mix(lo, vol, vol)}
		return res, nil
	}

	reqDex := in.TargetGIR * wtKg * mgMinToGDay / vol
	vHigh := (reqDex - lo) * vol / (hi - lo)
	vLow := vol - vHigh
	res.RequiredPct = reqDex
	res.GIRMin = girFor(lo, vol, wtKg)
	res.GIRMax = girFor(hi, vol, wtKg)
	res.Exact = vLow >= -tolerance && vHigh >= -tolerance

	if res.Exact {
		res.FinalPct = reqDex
		res.GIR = in.TargetGIR
		res.Mix = []Dextrose{mix(lo, math.Max(0, vLow), vol), mix(hi, math.Max(0, vHigh), vol)}
		return res, nil
	}

	cHigh := math.Max(0, math.Min(vol, vHigh))
	cLow := vol - cHigh
	res.FinalPct = (lo*cLow + hi*cHigh) / vol
	res.GIR = girFor(res.FinalPct, vol, wtKg)
	res.Mix = []Dextrose{mix(lo, cLow, vol), mix(hi, cHigh, vol)}
	res.Suggestions = suggest(in, vol, wtKg)
	return res, nil
}

func mix(pct, ml, total float64) Dextrose {
	d := Dextrose{Pct: pct, ML: ml}
	if total > 0 {
		d.Per50 = ml * 50 / total
	}
	return d
}

func suggest(in Input, vol, wtKg float64) []Suggestion {
	out := []Suggestion{}
	for _, c := range Combos {
		if c == in.Combo || c == Combo10Only {
			continue
		}
		lo, hi, _ := c.Percentages()
		mn, mx := girFor(lo, vol, wtKg), girFor(hi, vol, wtKg)
		if in.TargetGIR >= mn-tolerance && in.TargetGIR <= mx+tolerance {
			out = append(out, Suggestion{Combo: c, Low: lo, High: hi, GIRMin: mn, GIRMax: mx})
		}
	}
	return out
}
