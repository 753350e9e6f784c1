// Package importer moves TPN prescriptions and saved history in and out of
// spreadsheets.
package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"NeoNest/internal/calc/batch"
	"NeoNest/internal/calc/tpn"
	"NeoNest/internal/storage"

	"github.com/xuri/excelize/v2"
)

var ErrEmptySheet = errors.New("empty sheet")

// label columns name the order rather than set an input
var labelColumns = map[string]bool{"babyOf": true, "patientId": true, "label": true}

// RowError is a row the parser could not turn into inputs. Row is the
// 1-based spreadsheet row.
type RowError struct {
	Row int    `json:"row"`
	Err string `json:"error"`
}

// ParseTPN reads the first sheet. The header row holds input field names
// (weightG, tfr, gir, ...); blank cells keep the value from defaults.
func ParseTPN(r io.Reader, defaults tpn.Inputs) ([]batch.Item, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, ErrEmptySheet
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	var items []batch.Item
	var bad []RowError
	for i := 1; i < len(rows); i++ {
		item, blank, err := parseRow(header, rows[i], defaults)
		if blank {
			continue
		}
		if err != nil {
			bad = append(bad, RowError{Row: i + 1, Err: err.Error()})
			continue
		}
		items = append(items, item)
	}
	return items, bad, nil
}

func parseRow(header, row []string, defaults tpn.Inputs) (batch.Item, bool, error) {
	fields := map[string]any{}
	var names []string
	for i, cell := range row {
		cell = strings.TrimSpace(cell)
		if i >= len(header) || header[i] == "" || cell == "" {
			continue
		}
		if labelColumns[header[i]] {
			names = append(names, cell)
			continue
		}
		fields[header[i]] = cellValue(cell)
	}
	if len(fields) == 0 && len(names) == 0 {
		return batch.Item{}, true, nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return batch.Item{}, false, err
	}
	in := defaults
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return batch.Item{}, false, err
	}
	return batch.Item{Label: strings.Join(names, " / "), Inputs: in}, false, nil
}

func cellValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true", "yes", "y":
		return true
	case "false", "no", "n":
		return false
	}
	return s
}

var historyHeader = []any{"Date", "Baby of", "Patient ID", "Saved", "Weight (g)", "TFR", "GIR", "Amino acid", "Lipid", "Feeds", "Dextrose %", "Osmolarity", "Cal/kg"}

// WriteHistory writes TPN history entries as a single-sheet workbook.
func WriteHistory(w io.Writer, entries []storage.Entry) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	const sheet = "History"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &historyHeader); err != nil {
		return err
	}
	for i, e := range entries {
		var in tpn.Inputs
		if len(e.Inputs) > 0 {
			if err := json.Unmarshal(e.Inputs, &in); err != nil {
				return fmt.Errorf("entry %s inputs: %w", e.ID, err)
			}
		}
		row := []any{e.Date, e.BabyOf, e.PatientID, e.TS.Format("2006-01-02 15:04"), in.WeightG, in.TFR, in.GIR, in.AminoAcid, in.Lipid, in.Feeds}
		var res tpn.Result
		if len(e.Results) > 0 && json.Unmarshal(e.Results, &res) == nil {
			row = append(row, res.Mon.DextrosePct, res.Mon.Osmolarity, res.Mon.CaloriesPerKg)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.Write(w)
}
