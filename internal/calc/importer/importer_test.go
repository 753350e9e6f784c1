package importer

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NeoNest/internal/calc/tpn"
	"NeoNest/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestParseTPN(t *testing.T) {
	buf := workbook(t, [][]any{
		{"babyOf", "patientId", "weightG", "tfr", "gir", "naSource", "caViaTPN", "syringeCount"},
		{"Asha", "P-1", 1200, 140, "", "CRL", "no", 3},
		{},
		{"Bina", "", "heavy", 120},
		{"", "P-3", 900, "", "", "", "", 2.5},
	})
	defaults := tpn.Defaults()
	items, bad, err := ParseTPN(buf, defaults)
	require.NoError(t, err)
	require.Len(t, items, 1)

	it := items[0]
	assert.Equal(t, "Asha / P-1", it.Label)
	assert.Equal(t, 1200.0, it.Inputs.WeightG)
	assert.Equal(t, 140.0, it.Inputs.TFR)
	assert.Equal(t, defaults.GIR, it.Inputs.GIR, "blank cell keeps default")
	assert.Equal(t, tpn.NaCRL, it.Inputs.NaSource)
	assert.False(t, it.Inputs.CaViaTPN)
	assert.Equal(t, 3, it.Inputs.SyringeCount)

	require.Len(t, bad, 2)
	assert.Equal(t, 4, bad[0].Row)
	assert.Equal(t, 5, bad[1].Row)
}

func TestParseTPNRejectsUnknownColumn(t *testing.T) {
	buf := workbook(t, [][]any{{"weightG", "colour"}, {1000, "blue"}})
	items, bad, err := ParseTPN(buf, tpn.Defaults())
	require.NoError(t, err)
	assert.Empty(t, items)
	require.Len(t, bad, 1)
	assert.Contains(t, bad[0].Err, "colour")
}

func TestParseTPNEmpty(t *testing.T) {
	_, _, err := ParseTPN(workbook(t, [][]any{{"weightG"}}), tpn.Defaults())
	assert.ErrorIs(t, err, ErrEmptySheet)

	_, _, err = ParseTPN(bytes.NewReader([]byte("not a zip")), tpn.Defaults())
	assert.Error(t, err)
}

func TestWriteHistory(t *testing.T) {
	in, err := json.Marshal(tpn.Defaults())
	require.NoError(t, err)
	res, err := tpn.Calculate(tpn.Defaults())
	require.NoError(t, err)
	out, err := json.Marshal(res)
	require.NoError(t, err)

	entries := []storage.Entry{{
		ID: "e1", BabyOf: "Asha", PatientID: "P-1", Date: "2026-02-01",
		Inputs: in, Results: out, TS: time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC),
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteHistory(&buf, entries))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("History")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Baby of", rows[0][1])
	assert.Equal(t, []string{"2026-02-01", "Asha", "P-1", "2026-02-01 08:30", "1000", "100", "6", "3", "3", "0"}, rows[1][:10])
}

func upload(t *testing.T, body *bytes.Buffer) *http.Request {
	t.Helper()
	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	fw, err := mw.CreateFormFile("file", "orders.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(body.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/user/tools/tpn/import", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandler(t *testing.T) {
	h := &Handler{}
	rec := httptest.NewRecorder()
	h.TPN(rec, upload(t, workbook(t, [][]any{{"weightG", "gir"}, {1000, 6}, {0, 6}})))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got ImportResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, 1, got.Batch.OK)
	assert.Equal(t, 1, got.Batch.Invalid)

	rec = httptest.NewRecorder()
	h.TPN(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "File required")

	rec = httptest.NewRecorder()
	h.TPN(rec, upload(t, workbook(t, [][]any{{"weightG"}})))
	assert.Contains(t, rec.Body.String(), "Empty sheet")
}
