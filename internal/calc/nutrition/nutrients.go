package nutrition

// Range is a recommended intake interval, lo and hi.
type Range [2]float64

// Nutrient holds per-100 mL content of breast milk and formula, per-gram
// content of the fortifier, and the AAP and ESPGHAN recommendations.
type Nutrient struct {
	Key       string  `json:"k"`
	Name      string  `json:"n"`
	Unit      string  `json:"u"`
	Breast    float64 `json:"bm"`
	Formula   float64 `json:"fm"`
	Fortifier float64 `json:"hm"`
	AAP       *Range  `json:"aap,omitempty"`
	ESPGHAN   *Range  `json:"esp,omitempty"`
	// PerDay nutrients are compared as a daily total, not per kg.
	PerDay bool `json:"perDay,omitempty"`
}

func rng(lo, hi float64) *Range { return &Range{lo, hi} }

var factory = []Nutrient{
	{Key: "energy", Name: "Energy", Unit: "kcal/kg", Breast: 52, Formula: 78, Fortifier: 4, AAP: rng(105, 130), ESPGHAN: rng(110, 135)},
	{Key: "protein", Name: "Protein", Unit: "g/kg", Breast: 0.95, Formula: 1.9, Fortifier: 0.3, AAP: rng(3.5, 4.0), ESPGHAN: rng(3.5, 4.0)},
	{Key: "fat", Name: "Fat", Unit: "g/kg", Breast: 3.6, Formula: 3.8, Fortifier: 0.1, AAP: rng(5.0, 7.0), ESPGHAN: rng(4.8, 6.6)},
	{Key: "carb", Name: "Carbohydrate", Unit: "g/kg", Breast: 6.7, Formula: 8.1, Fortifier: 0.4, AAP: rng(10.0, 14), ESPGHAN: rng(11.6, 13.2)},
	{Key: "ca", Name: "Calcium", Unit: "mg/kg/d", Breast: 26, Formula: 95, Fortifier: 15.93, AAP: rng(200, 210), ESPGHAN: rng(120, 140)},
	{Key: "po4", Name: "Phosphorus", Unit: "mg/kg/d", Breast: 13, Formula: 48, Fortifier: 8.76, AAP: rng(100, 110), ESPGHAN: rng(60, 90)},
	{Key: "fe", Name: "Iron", Unit: "mg/kg/d", Breast: 0.12, Formula: 1.67, Fortifier: 0.36, AAP: rng(2.0, 3.0), ESPGHAN: rng(2.0, 3.0)},
	{Key: "vitd", Name: "Vitamin D", Unit: "IU/d", Breast: 2, Formula: 160, Fortifier: 28, AAP: rng(400, 400), ESPGHAN: rng(800, 1000), PerDay: true},
	{Key: "na", Name: "Sodium", Unit: "mEq/kg/d", Breast: 1.4, Formula: 1.03, Fortifier: 0.32, AAP: rng(2.0, 3.0), ESPGHAN: rng(3.0, 5.0)},
	{Key: "k", Name: "Potassium", Unit: "mEq/kg/d", Breast: 2.4, Formula: 0.74, Fortifier: 0.25, AAP: rng(1.7, 2.5), ESPGHAN: rng(3.0, 5.0)},
	{Key: "mg", Name: "Magnesium", Unit: "mg/kg/d", Breast: 3, Formula: 3.7, Fortifier: 0.8, ESPGHAN: rng(8.0, 15.0)},
	{Key: "zn", Name: "Zinc", Unit: "mg/kg/d", Breast: 0.33, Formula: 0.28, Fortifier: 0.19, AAP: rng(0.6, 1.0), ESPGHAN: rng(1.1, 2.0)},
	{Key: "vita", Name: "Vitamin A", Unit: "IU/kg/d", Breast: 50, Formula: 505, Fortifier: 221.6, AAP: rng(92, 270), ESPGHAN: rng(1330, 3300)},
	{Key: "vite", Name: "Vitamin E", Unit: "IU/kg/d", Breast: 1.5, Formula: 1.11, Fortifier: 1.12, AAP: rng(1.3, 1.3), ESPGHAN: rng(2.2, 11)},
	{Key: "vitk", Name: "Vitamin K", Unit: "mcg/kg/d", Breast: 0.2, Formula: 6.67, Fortifier: 1.5, AAP: rng(4.8, 4.8), ESPGHAN: rng(4.4, 28)},
	{Key: "vitc", Name: "Vitamin C", Unit: "mg/kg/d", Breast: 10.6, Formula: 6.67, Fortifier: 3.75, AAP: rng(42, 42), ESPGHAN: rng(11, 46)},
	{Key: "folic", Name: "Folic acid", Unit: "mcg/kg/d", Breast: 3.3, Formula: 16.7, Fortifier: 7.5, AAP: rng(40, 40), ESPGHAN: rng(35, 100)},
	{Key: "cu", Name: "Copper", Unit: "mcg/kg/d", Breast: 73, Formula: 35.6, Fortifier: 10, AAP: rng(100, 108), ESPGHAN: rng(100, 132)},
}

// Factory returns a fresh copy of the built-in nutrient table.
func Factory() []Nutrient {
	out := make([]Nutrient, len(factory))
	copy(out, factory)
	return out
}

// Override replaces individual values of one nutrient. Nil fields keep the
// factory value.
type Override struct {
	Breast    *float64 `json:"bm,omitempty"`
	Formula   *float64 `json:"fm,omitempty"`
	Fortifier *float64 `json:"hm,omitempty"`
	AAP       *Range   `json:"aap,omitempty"`
	ESPGHAN   *Range   `json:"esp,omitempty"`
}

// Merge applies overrides keyed by nutrient key to the factory table.
// Unknown keys are ignored.
func Merge(overrides map[string]Override) []Nutrient {
	table := Factory()
	for i, n := range table {
		ov, ok := overrides[n.Key]
		if !ok {
			continue
		}
		if ov.Breast != nil {
			n.Breast = *ov.Breast
		}
		if ov.Formula != nil {
			n.Formula = *ov.Formula
		}
		if ov.Fortifier != nil {
			n.Fortifier = *ov.Fortifier
		}
		if ov.AAP != nil {
			r := *ov.AAP
			n.AAP = &r
		}
		if ov.ESPGHAN != nil {
			r := *ov.ESPGHAN
			n.ESPGHAN = &r
		}
		table[i] = n
	}
	return table
}
