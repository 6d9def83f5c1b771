package normalize

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

func testNormalizer() *Normalizer {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func f64(v float64) *float64 { return &v }

func TestVendorName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PACIFIC FOOD IMPORTERS INC", "Pacific Food Importers"},
		{"Pacific Food Importers, Inc.", "Pacific Food Importers"},
		{"frank's quality produce llc", "Frank's Quality Produce"},
		{"ACME   TRADING    CO.", "Acme Trading"},
		{"Smith Brothers Corporation", "Smith Brothers"},
		{"Ltd", "Ltd"}, // a lone suffix is still a name
		{"  mixed\tCASE  vendor  ", "Mixed Case Vendor"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, VendorName(tt.in))
		})
	}
}

func TestInvoiceNumber(t *testing.T) {
	assert.Equal(t, "INV100", InvoiceNumber("inv-100"))
	assert.Equal(t, "37809312", InvoiceNumber(" 3780 9312 "))
	assert.Equal(t, "A1B2", InvoiceNumber("a1/b2."))
	assert.Equal(t, "", InvoiceNumber("---"))
}

func TestDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-03-15", "2024-03-15"},
		{"03/15/2024", "2024-03-15"},
		{"3/5/2024", "2024-03-05"},
		{"03/15/24", "2024-03-15"},
		{"March 15, 2024", "2024-03-15"},
		{"Mar 15 2024", "2024-03-15"},
		{"15 March 2024", "2024-03-15"},
		{"2024/03/15", "2024-03-15"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Date(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "not a date", "02/30/2024", "2024-13-01"} {
		t.Run("bad/"+bad, func(t *testing.T) {
			_, err := Date(bad)
			assert.Error(t, err)
		})
	}
}

func TestAmount(t *testing.T) {
	got, err := Amount(1234.567)
	require.NoError(t, err)
	assert.Equal(t, 1234.57, got)

	_, err = Amount(-1)
	assert.Error(t, err)

	got, err = AmountString("$1,234.56")
	require.NoError(t, err)
	assert.Equal(t, 1234.56, got)

	_, err = AmountString("n/a")
	assert.Error(t, err)
}

func TestNormalizeProducesCanonicalRecord(t *testing.T) {
	candidate := &entity.ExtractionCandidate{
		InvoiceNumber: "inv-378093",
		VendorName:    "PACIFIC FOOD IMPORTERS INC",
		InvoiceDate:   "03/15/2024",
		TotalAmount:   f64(1288.761),
		LineItems: []entity.LineItem{
			{Description: "FLOUR  POWER   BAKERS", Quantity: 12, UnitPrice: 24.063, LineTotal: 288.76, Order: 1},
		},
		Method:        constants.MethodPattern,
		RawConfidence: 0.88,
	}

	inv, items, err := testNormalizer().Normalize(candidate, nil)
	require.NoError(t, err)
	assert.Equal(t, "INV378093", inv.InvoiceNumber)
	assert.Equal(t, "Pacific Food Importers", inv.VendorName)
	assert.Equal(t, "2024-03-15", inv.InvoiceDate)
	assert.Equal(t, 1288.76, inv.TotalAmount)
	assert.Equal(t, constants.MethodPattern, inv.ExtractionMethod)

	require.Len(t, items, 1)
	assert.Equal(t, "FLOUR POWER BAKERS", items[0].Description)
	assert.Equal(t, 24.06, items[0].UnitPrice)
	assert.Equal(t, 1, items[0].Order)
}

func TestNormalizePrefersRegistryCanonicalName(t *testing.T) {
	candidate := &entity.ExtractionCandidate{
		InvoiceNumber: "378093",
		VendorName:    "PACIFC FOOD IMPRTERS", // tier misread
		InvoiceDate:   "2024-03-15",
		TotalAmount:   f64(100),
	}
	vendor := &entity.VendorPattern{VendorID: "pacific_food", VendorName: "Pacific Food Importers"}

	inv, _, err := testNormalizer().Normalize(candidate, vendor)
	require.NoError(t, err)
	assert.Equal(t, "Pacific Food Importers", inv.VendorName)
}

func TestNormalizeNaturalKeyStability(t *testing.T) {
	a := &entity.ExtractionCandidate{
		InvoiceNumber: "inv-100", VendorName: "ACME TRADING CO", InvoiceDate: "01/02/2024", TotalAmount: f64(10),
	}
	b := &entity.ExtractionCandidate{
		InvoiceNumber: " INV 100 ", VendorName: "Acme  Trading Co.", InvoiceDate: "January 2, 2024", TotalAmount: f64(20),
	}

	invA, _, err := testNormalizer().Normalize(a, nil)
	require.NoError(t, err)
	invB, _, err := testNormalizer().Normalize(b, nil)
	require.NoError(t, err)

	assert.Equal(t, invA.Key(), invB.Key())
}

func TestNormalizeFailsWholeCallOnBadKeyField(t *testing.T) {
	tests := []struct {
		name      string
		candidate entity.ExtractionCandidate
	}{
		{"unparsable date", entity.ExtractionCandidate{InvoiceNumber: "100", VendorName: "V", InvoiceDate: "soon", TotalAmount: f64(1)}},
		{"empty number", entity.ExtractionCandidate{InvoiceNumber: "--", VendorName: "V", InvoiceDate: "2024-01-01", TotalAmount: f64(1)}},
		{"empty vendor", entity.ExtractionCandidate{InvoiceNumber: "100", VendorName: "  ", InvoiceDate: "2024-01-01", TotalAmount: f64(1)}},
		{"negative total", entity.ExtractionCandidate{InvoiceNumber: "100", VendorName: "V", InvoiceDate: "2024-01-01", TotalAmount: f64(-5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, items, err := testNormalizer().Normalize(&tt.candidate, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrNormalization)
			assert.Nil(t, inv)
			assert.Nil(t, items)
		})
	}
}

func TestNormalizeDropsEmptyLineItems(t *testing.T) {
	candidate := &entity.ExtractionCandidate{
		InvoiceNumber: "100", VendorName: "V", InvoiceDate: "2024-01-01", TotalAmount: f64(10),
		LineItems: []entity.LineItem{
			{Description: "KEPT", Quantity: 1, UnitPrice: 10, LineTotal: 10, Order: 1},
			{Description: "   ", Quantity: 2, UnitPrice: 5, LineTotal: 10, Order: 2},
		},
	}
	_, items, err := testNormalizer().Normalize(candidate, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "KEPT", items[0].Description)
}
