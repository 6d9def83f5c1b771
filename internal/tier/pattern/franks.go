package pattern

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// Frank's Quality Produce. Invoice numbers are 8 digits starting with 2006;
// line items are "Quantity | Description | Price Each | Amount" rows.
var (
	franksName = []*regexp.Regexp{
		regexp.MustCompile(`(?i)frank['’]?s?\s+quality\s+produce`),
		regexp.MustCompile(`(?i)franks\s+quality\s+produce`),
	}

	franksInvoiceRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Invoice\s*#?\s*:?\s*(2006\d{4})`),
		regexp.MustCompile(`(?i)Invoice\s*Number\s*:?\s*(2006\d{4})`),
		regexp.MustCompile(`(?i)INV\s*#?\s*:?\s*(2006\d{4})`),
	}

	franksDateRe  = regexp.MustCompile(`(?i)Date\s*:?\s*(\d{1,2})/(\d{1,2})/(\d{4})`)
	franksTotalRe = regexp.MustCompile(`(?i)Total\s*:?\s*\$?\s*([\d,]+\.\d{2})`)

	franksTableHeaderRe = regexp.MustCompile(`(?i)Quantity\s+Description\s+Price\s+Each\s+Amount`)
	franksTableEndRe    = regexp.MustCompile(`(?i)FUEL\s+SURCHARGE|Sales\s+Tax|Total`)

	franksRowRes = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^\s*(\d+)\s+([A-Z][^\d\n]{3,}?)\s+(\d+\.\d{2})\s+(\d+\.\d{2})\s*$`),
		regexp.MustCompile(`(\d+)\s+([A-Z][^#\d\n]+?(?:#)?)\s+(\d+\.\d{2})\s+(\d+\.\d{2})`),
	}

	franksSkipRe = regexp.MustCompile(`(?i)FUEL\s+SURCHARGE|Sales\s+Tax|Subtotal|Discount`)
)

var franksLayout = &layout{
	vendorName:   "Frank's Quality Produce",
	namePatterns: franksName,

	invoiceNumber: func(text string) string {
		for _, re := range franksInvoiceRes {
			if m := re.FindStringSubmatch(text); m != nil {
				return m[1]
			}
		}
		return ""
	},

	invoiceDate: func(text string) string {
		if m := franksDateRe.FindStringSubmatch(text); m != nil {
			return isoDate(m[1], m[2], m[3])
		}
		return ""
	},

	total: func(text string) (float64, bool) {
		if m := franksTotalRe.FindStringSubmatch(text); m != nil {
			return parseAmount(m[1])
		}
		return 0, false
	},

	lineItems: franksLineItems,
}

func franksLineItems(text string) []entity.LineItem {
	header := franksTableHeaderRe.FindStringIndex(text)
	if header == nil {
		return nil
	}
	table := text[header[1]:]
	if end := franksTableEndRe.FindStringIndex(table); end != nil {
		table = table[:end[0]]
	}

	type key struct {
		desc string
		qty  float64
		unit float64
	}
	seen := make(map[key]struct{})
	var items []entity.LineItem

	for _, re := range franksRowRes {
		for _, m := range re.FindAllStringSubmatch(table, -1) {
			desc := strings.TrimSpace(m[2])
			if desc == "" || franksSkipRe.MatchString(desc) {
				continue
			}
			switch strings.ToLower(desc) {
			case "description", "quantity", "qty", "price each", "amount":
				continue
			}

			qty, ok1 := parseAmount(m[1])
			unit, ok2 := parseAmount(m[3])
			total, ok3 := parseAmount(m[4])
			if !ok1 || !ok2 || !ok3 {
				continue
			}

			k := key{desc: truncate(desc, 50), qty: qty, unit: unit}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}

			items = append(items, entity.LineItem{
				Description: desc,
				Quantity:    qty,
				UnitPrice:   unit,
				LineTotal:   total,
				Order:       len(items) + 1,
			})
		}
	}
	return items
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
