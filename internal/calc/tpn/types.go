package tpn

import "strings"

type FeedType string

const (
	FeedNPO     FeedType = "NPO"
	FeedEBM     FeedType = "EBM/PDHM"
	FeedFormula FeedType = "Formula"
)

func (f FeedType) Valid() bool {
	switch f {
	case FeedNPO, FeedEBM, FeedFormula:
		return true
	}
	return false
}

// Fortifier is the HMF/PTF strength added to breast milk.
type Fortifier string

const (
	FortifierNone    Fortifier = "None"
	FortifierQuarter Fortifier = "Quarter"
	FortifierHalf    Fortifier = "Half"
	FortifierFull    Fortifier = "Full"
)

func (f Fortifier) Valid() bool {
	switch f {
	case FortifierNone, FortifierQuarter, FortifierHalf, FortifierFull:
		return true
	}
	return false
}

type NaSource string

const (
	NaSaline3 NaSource = "3% NaCl"
	NaCRL     NaSource = "CRL"
)

func (s NaSource) Valid() bool { return s == NaSaline3 || s == NaCRL }

type AASource string

const (
	AAAminoven AASource = "Aminoven"
	AAPentamin AASource = "Pentamin"
)

func (s AASource) Valid() bool { return s == AAAminoven || s == AAPentamin }

// Inputs is one patient-day prescription. Field names match the stored
// tpn_defaults record.
type Inputs struct {
	WeightG float64 `json:"weightG" yaml:"weightG"`
	TFR     float64 `json:"tfr" yaml:"tfr"`
	Feeds   float64 `json:"feeds" yaml:"feeds"`

	IVM      float64 `json:"ivm" yaml:"ivm"`
	IVMN5    float64 `json:"ivmN5" yaml:"ivmN5"`
	IVMN2    float64 `json:"ivmN2" yaml:"ivmN2"`
	IVMNS    float64 `json:"ivmNS" yaml:"ivmNS"`
	IVMDex10 float64 `json:"ivmDex10" yaml:"ivmDex10"`

	AminoAcid float64 `json:"aminoAcid" yaml:"aminoAcid"`
	Lipid     float64 `json:"lipid" yaml:"lipid"`
	GIR       float64 `json:"gir" yaml:"gir"`

	Sodium    float64 `json:"sodium" yaml:"sodium"`
	Potassium float64 `json:"potassium" yaml:"potassium"`
	Calcium   float64 `json:"calcium" yaml:"calcium"`
	Magnesium float64 `json:"magnesium" yaml:"magnesium"`
	PO4       float64 `json:"po4" yaml:"po4"`

	FeedType       FeedType  `json:"feedType" yaml:"feedType"`
	PrenanStrength Fortifier `json:"prenanStrength" yaml:"prenanStrength"`
	NaSource       NaSource  `json:"naSource" yaml:"naSource"`
	AASource       AASource  `json:"aaSource" yaml:"aaSource"`

	CaViaTPN  bool `json:"caViaTPN" yaml:"caViaTPN"`
	PO4ViaTPN bool `json:"po4ViaTPN" yaml:"po4ViaTPN"`
	Use5Dex   bool `json:"use5Dex" yaml:"use5Dex"`
	Use25Dex  bool `json:"use25Dex" yaml:"use25Dex"`

	Overfill     float64 `json:"overfill" yaml:"overfill"`
	Celcel       float64 `json:"celcel" yaml:"celcel"`
	MVI          float64 `json:"mvi" yaml:"mvi"`
	SyringeCount int     `json:"syringeCount" yaml:"syringeCount"`

	EBMCal100      float64 `json:"ebmCal100" yaml:"ebmCal100"`
	FormulaCal100  float64 `json:"formulaCal100" yaml:"formulaCal100"`
	EBMProt100     float64 `json:"ebmProt100" yaml:"ebmProt100"`
	FormulaProt100 float64 `json:"formulaProt100" yaml:"formulaProt100"`
	HMFCalPerG     float64 `json:"hmfCalPerG" yaml:"hmfCalPerG"`
	HMFProtPerG    float64 `json:"hmfProtPerG" yaml:"hmfProtPerG"`
}

// LineItem is one row of a syringe card. Secondary holds either the
// overfill-adjusted volume or the volume per 50 mL, see Syringe.SecondaryColumn.
type LineItem struct {
	Label     string   `json:"label"`
	VolumeML  float64  `json:"volumeMl"`
	Secondary *float64 `json:"secondary,omitempty"`
}

type Syringe struct {
	Items           []LineItem `json:"items"`
	TotalML         float64    `json:"totalMl"`
	RateMLPerHr     float64    `json:"rateMlPerHr"`
	SecondaryColumn string     `json:"secondaryColumn,omitempty"`
}

// Separate lists volumes given outside the syringes, in mL/day.
type Separate struct {
	PotassiumPhosphateML float64 `json:"pp"`
	CalciumGluconateML   float64 `json:"ca"`
}

type Monitoring struct {
	TotalFluidML     float64 `json:"tfv"`
	FeedsML          float64 `json:"feeds"`
	IVFluidPerKg     float64 `json:"ivfKg"`
	IVFluidML        float64 `json:"ivfMl"`
	TPNFluidML       float64 `json:"tpn"`
	TPNGlucoseG      float64 `json:"tpnG"`
	GlucoseFluidML   float64 `json:"gFluid"`
	DextrosePct      float64 `json:"dex"`
	CNR              float64 `json:"cnr"`
	Osmolarity       float64 `json:"osm"`
	CaloriesPerKg    float64 `json:"cal"`
	ProteinPerKg     float64 `json:"prot"`
	SodiumFromIVM    float64 `json:"naIVM"`
	GlucoseFromIVM   float64 `json:"gIVM"`
	PotassiumFromKPO float64 `json:"kPP"`
}

// Volumes are the unrounded component volumes in mL/day.
type Volumes struct {
	Lipid              float64 `json:"lipid"`
	MVI                float64 `json:"mvi"`
	Celcel             float64 `json:"celcel"`
	AminoAcid          float64 `json:"aminoAcid"`
	Sodium             float64 `json:"sodium"`
	Potassium          float64 `json:"potassium"`
	Calcium            float64 `json:"calcium"`
	Magnesium          float64 `json:"magnesium"`
	PotassiumPhosphate float64 `json:"potassiumPhosphate"`
}

// DextroseMix is the solved low/high concentration split.
type DextroseMix struct {
	LowPct  float64 `json:"lowPct"`
	HighPct float64 `json:"highPct"`
	LowML   float64 `json:"lowMl"`
	HighML  float64 `json:"highMl"`
}

// GlucoseG is the glucose mass delivered by the mix.
func (d DextroseMix) GlucoseG() float64 {
	return d.LowML*d.LowPct/100 + d.HighML*d.HighPct/100
}

type Result struct {
	S1       Syringe     `json:"s1"`
	S2       Syringe     `json:"s2"`
	S3       *Syringe    `json:"s3,omitempty"`
	Sep      Separate    `json:"sep"`
	Mon      Monitoring  `json:"mon"`
	Volumes  Volumes     `json:"volumes"`
	Dextrose DextroseMix `json:"dextrose"`
	IsPerDay bool        `json:"isPerDay"`
	Overfill float64     `json:"overfill"`
	Warnings []string    `json:"warnings"`
}

// ValidationError carries every problem found in the inputs, in the order
// they were detected. No result accompanies it.
type ValidationError struct {
	Errors []string `json:"errors"`
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, " ")
}
