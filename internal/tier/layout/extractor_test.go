package layout

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/tier"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtractRoundTrip(t *testing.T) {
	var gotReq extractRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/extract", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		total := 28.42
		_ = json.NewEncoder(w).Encode(extractResponse{
			InvoiceNumber: "20061234",
			VendorName:    "Frank's Quality Produce",
			InvoiceDate:   "2024-01-02",
			TotalAmount:   &total,
			Confidence:    0.71,
		})
	}))
	defer srv.Close()

	e := New(common.LayoutConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, testLogger())
	hints := &entity.VendorHints{VendorName: "Frank's Quality Produce", InvoiceNumberRegex: `^200\d{5}$`}
	candidate, err := e.Extract(context.Background(), tier.PageContent{PageNumber: 1, Text: "INV0ICE 20061234"}, hints)
	require.NoError(t, err)

	// OCR correction runs before the request goes out
	assert.Contains(t, gotReq.Text, "INVOICE")
	require.NotNil(t, gotReq.Hints)
	assert.Equal(t, `^200\d{5}$`, gotReq.Hints.InvoiceNumberRegex)

	assert.Equal(t, "20061234", candidate.InvoiceNumber)
	assert.Equal(t, constants.MethodLayoutModel, candidate.Method)
	assert.InDelta(t, 0.71, float64(candidate.RawConfidence), 0.001)
	require.True(t, candidate.HasTotal())
	assert.InDelta(t, 28.42, candidate.Total(), 0.001)
}

func TestUnconfiguredEndpointIsUnavailable(t *testing.T) {
	e := New(common.LayoutConfig{}, testLogger())
	_, err := e.Extract(context.Background(), tier.PageContent{PageNumber: 1, Text: "x"}, nil)
	assert.ErrorIs(t, err, tier.ErrUnavailable)
}

func TestUnreachableEndpointIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	e := New(common.LayoutConfig{BaseURL: srv.URL, Timeout: time.Second}, testLogger())
	_, err := e.Extract(context.Background(), tier.PageContent{PageNumber: 1, Text: "x"}, nil)
	assert.ErrorIs(t, err, tier.ErrUnavailable)
}

func TestServerErrorIsTierFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := New(common.LayoutConfig{BaseURL: srv.URL, Timeout: time.Second}, testLogger())
	_, err := e.Extract(context.Background(), tier.PageContent{PageNumber: 1, Text: "x"}, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, tier.ErrUnavailable)
}

func TestEmptyInvoiceNumberDefaultsToUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(extractResponse{VendorName: "V", Confidence: 0.4})
	}))
	defer srv.Close()

	e := New(common.LayoutConfig{BaseURL: srv.URL, Timeout: time.Second}, testLogger())
	candidate, err := e.Extract(context.Background(), tier.PageContent{PageNumber: 1, Text: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, constants.UnknownInvoiceNumber, candidate.InvoiceNumber)
	assert.False(t, candidate.HasTotal())
}
