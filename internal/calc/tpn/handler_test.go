package tpn

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"NeoNest/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/tools/tpn/calc", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Calc(rec, req)
	return rec
}

func TestHandlerFillsMissingFieldsFromDefaults(t *testing.T) {
	h := NewHandler(Defaults(), nil, nil)
	rec := post(h, `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.InDelta(t, 16, res.S1.TotalML, 1e-9)
	assert.InDelta(t, 84, res.S2.TotalML, 1e-9)
}

func TestHandlerOverridesDefaults(t *testing.T) {
	h := NewHandler(Defaults(), nil, nil)
	rec := post(h, `{"syringeCount":3,"overfill":1.2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	require.NotNil(t, res.S3)
	assert.True(t, res.IsPerDay)
	assert.Equal(t, "Adj. Vol", res.S3.SecondaryColumn)
}

func TestHandlerValidationErrors(t *testing.T) {
	m := metrics.New()
	h := NewHandler(Defaults(), m, nil)
	rec := post(h, `{"weightG":0,"feeds":20}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body.Errors, 2)
	assert.Equal(t, "Weight must be greater than 0.", body.Errors[0])

	scrape := httptest.NewRecorder()
	m.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, scrape.Body.String(), `neonest_calculations_total{outcome="invalid",tool="tpn"} 1`)
	assert.Contains(t, scrape.Body.String(), `neonest_validation_errors_total{tool="tpn"} 2`)
}

func TestHandlerRejectsMalformedJSON(t *testing.T) {
	h := NewHandler(Defaults(), nil, nil)
	rec := post(h, `{"weightG":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid request payload")
}
