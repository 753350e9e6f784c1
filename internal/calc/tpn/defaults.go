package tpn

// Defaults returns the factory prescription the app starts with.
func Defaults() Inputs {
	return Inputs{
		WeightG:        1000,
		TFR:            100,
		AminoAcid:      3,
		Lipid:          3,
		GIR:            6,
		Sodium:         3,
		Potassium:      2,
		FeedType:       FeedNPO,
		PrenanStrength: FortifierNone,
		NaSource:       NaSaline3,
		AASource:       AAAminoven,
		CaViaTPN:       true,
		Overfill:       1,
		MVI:            1,
		SyringeCount:   2,
		EBMCal100:      67,
		FormulaCal100:  78,
		EBMProt100:     1.1,
		FormulaProt100: 1.9,
		HMFCalPerG:     4,
		HMFProtPerG:    0.3,
	}
}

// FortifierLabel is "PTF" for protein-targeted fortifiers and "HMF" otherwise.
func FortifierLabel(hmfProtPerG float64) string {
	if hmfProtPerG < 0.2 {
		return "PTF"
	}
	return "HMF"
}
