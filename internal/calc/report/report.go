// Package report prints TPN order sheets.
package report

import (
	"fmt"
	"io"
	"time"

	"NeoNest/internal/calc/round"
	"NeoNest/internal/calc/tpn"

	"github.com/phpdave11/gofpdf"
)

type OrderSheet struct {
	BabyOf     string     `json:"babyOf"`
	PatientID  string     `json:"patientId"`
	Date       string     `json:"date"`
	Prescriber string     `json:"prescriber"`
	Inputs     tpn.Inputs `json:"inputs"`
	Result     tpn.Result `json:"-"`
}

// Render writes the sheet as a one-page A4 PDF. generated is printed in the
// footer and used as the document creation date.
func Render(w io.Writer, s OrderSheet, generated time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(generated)
	pdf.SetTitle("TPN Order Sheet", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "TPN Order Sheet")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	line := func(format string, args ...any) {
		pdf.Cell(0, 5, fmt.Sprintf(format, args...))
		pdf.Ln(5)
	}
	line("Baby of: %s    Patient ID: %s    Date: %s", s.BabyOf, s.PatientID, s.Date)
	line("Weight: %s g    TFR: %s mL/kg/day    Feeds: %s mL/kg/day", round.Num(s.Inputs.WeightG), round.Num(s.Inputs.TFR), round.Num(s.Inputs.Feeds))
	line("AA: %s g/kg    Lipid: %s g/kg    GIR: %s mg/kg/min", round.Num(s.Inputs.AminoAcid), round.Num(s.Inputs.Lipid), round.Num(s.Inputs.GIR))
	pdf.Ln(3)

	r := s.Result
	syringe(pdf, "Syringe 1 (lipid)", r.S1)
	syringe(pdf, "Syringe 2 (dextrose/AA)", r.S2)
	if r.S3 != nil {
		syringe(pdf, "Syringe 3", *r.S3)
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, "Separate")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 10)
	line("Potassium phosphate: %s mL/day    Calcium gluconate: %s mL/day", round.Fixed(r.Sep.PotassiumPhosphateML, 1), round.Fixed(r.Sep.CalciumGluconateML, 1))
	pdf.Ln(2)

	m := r.Mon
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, "Monitoring")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 10)
	line("Total fluid: %s mL    IV fluid: %s mL/kg    TPN fluid: %s mL", round.Fixed(m.TotalFluidML, 1), round.Fixed(m.IVFluidPerKg, 1), round.Fixed(m.TPNFluidML, 1))
	line("Dextrose: %s%%    Osmolarity: %s mOsm/L    CNR: %s", round.Fixed(m.DextrosePct, 1), round.Fixed(m.Osmolarity, 0), round.Fixed(m.CNR, 1))
	line("Calories: %s kcal/kg/day    Protein: %s g/kg/day", round.Fixed(m.CaloriesPerKg, 1), round.Fixed(m.ProteinPerKg, 1))

	if len(r.Warnings) > 0 {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(180, 0, 0)
		for _, warn := range r.Warnings {
			pdf.MultiCell(0, 5, warn, "", "L", false)
		}
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	line("Prescriber: %s", s.Prescriber)
	pdf.SetFont("Helvetica", "I", 8)
	line("Generated %s", generated.UTC().Format("2006-01-02 15:04 MST"))

	return pdf.Output(w)
}

func syringe(pdf *gofpdf.Fpdf, title string, s tpn.Syringe) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, title)
	pdf.Ln(7)

	second := s.SecondaryColumn
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(80, 6, "Component", "1", 0, "L", false, 0, "")
	pdf.CellFormat(35, 6, "mL/day", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, second, "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, it := range s.Items {
		sec := ""
		if it.Secondary != nil {
			sec = round.Fixed(*it.Secondary, 1)
		}
		pdf.CellFormat(80, 6, it.Label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, round.V1(it.VolumeML), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, sec, "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(80, 6, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(35, 6, round.V1(s.TotalML), "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, round.Fixed(s.RateMLPerHr, 2)+" mL/hr", "1", 1, "R", false, 0, "")
	pdf.Ln(3)
}
