package pattern

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// Pacific Food Importers. Invoice numbers are 6 digits starting with 37; the
// item table is "PRODUCT ID | ORDERED | SHIPPED | DESCRIPTION | ... | Price |
// Amount" and quantity comes from the SHIPPED column, not ORDERED.
var (
	pacificName = []*regexp.Regexp{
		regexp.MustCompile(`(?i)pacific\s+food\s+importers?`),
		regexp.MustCompile(`(?i)pacific\s+food\s+import`),
	}

	// Main pattern allows a newline between the label and the number.
	pacificInvoiceRe         = regexp.MustCompile(`(?i)INVOICE[\s\n]+(\d{6})`)
	pacificInvoiceFallbackRe = regexp.MustCompile(`\b(378\d{3})\b`)

	// INVOICE DATE takes priority over ORDER DATE; the table form captures
	// both and keeps the second.
	pacificDateTableRe = regexp.MustCompile(`(?is)ORDER\s+DATE\s*\|\s*INVOICE\s+DATE.*?\n.*?(\d{2})/(\d{2})/(\d{4})\s*\|\s*(\d{2})/(\d{2})/(\d{4})`)
	pacificDateRe      = regexp.MustCompile(`(?i)INVOICE\s+DATE[\s\n|]+(\d{2})/(\d{2})/(\d{4})`)
	pacificDatePipeRe  = regexp.MustCompile(`(?is)INVOICE\s+DATE.*?\n.*?\|\s*(\d{2})/(\d{2})/(\d{4})`)
	pacificDateAnyRe   = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`) // last resort

	pacificTotalRe = regexp.MustCompile(`(?i)INVOICE\s+TOTAL[^\d]*(\d{1,3}(?:,\d{3})?\.\d{2})`)

	pacificTableHeaderRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)PRODUCT\s*ID[\s\n]+ORDERED[\s\n]+SHIPPED`),
		regexp.MustCompile(`(?is)PRODUCT\s*ID.*?DESCRIPTION`),
	}
	pacificTableEndRe = regexp.MustCompile(`(?i)Total\s+Weight|Invoice\s+Total|Sub\s+Total`)

	pacificRowStartRe = regexp.MustCompile(`^(\d{5,6})\s+([\d.]+)\s+([\d.]+)`)
	pacificDescRe     = regexp.MustCompile(`(?i)[/\s|]*([A-Z][A-Z\s]+[^\d]{0,30})`)
	pacificNumberRe   = regexp.MustCompile(`[\d.]+`)
)

var pacificLayout = &layout{
	vendorName:   "Pacific Food Importers",
	namePatterns: pacificName,

	invoiceNumber: func(text string) string {
		if m := pacificInvoiceRe.FindStringSubmatch(text); m != nil {
			// Pacific numbers always start with 37; anything else is some
			// other number sitting under the INVOICE label.
			if strings.HasPrefix(m[1], "37") {
				return m[1]
			}
		}
		if m := pacificInvoiceFallbackRe.FindStringSubmatch(text); m != nil {
			return m[1]
		}
		return ""
	},

	invoiceDate: func(text string) string {
		if m := pacificDateTableRe.FindStringSubmatch(text); m != nil {
			return isoDate(m[4], m[5], m[6])
		}
		if m := pacificDateRe.FindStringSubmatch(text); m != nil {
			return isoDate(m[1], m[2], m[3])
		}
		if m := pacificDatePipeRe.FindStringSubmatch(text); m != nil {
			return isoDate(m[1], m[2], m[3])
		}
		if m := pacificDateAnyRe.FindStringSubmatch(text); m != nil {
			return isoDate(m[1], m[2], m[3])
		}
		return ""
	},

	total: func(text string) (float64, bool) {
		if m := pacificTotalRe.FindStringSubmatch(text); m != nil {
			return parseAmount(m[1])
		}
		return 0, false
	},

	lineItems: pacificLineItems,
}

func pacificLineItems(text string) []entity.LineItem {
	var tableStart int = -1
	for _, re := range pacificTableHeaderRes {
		if loc := re.FindStringIndex(text); loc != nil {
			tableStart = loc[1]
			break
		}
	}
	if tableStart < 0 {
		return nil
	}

	table := text[tableStart:]
	if end := pacificTableEndRe.FindStringIndex(table); end != nil {
		table = table[:end[0]]
	} else if len(table) > 3000 {
		table = table[:3000]
	}

	type key struct {
		desc string
		qty  float64
		unit float64
	}
	seen := make(map[key]struct{})
	var items []entity.LineItem

	for _, line := range strings.Split(table, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := pacificRowStartRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		shipped, ok := parseAmount(m[3])
		if !ok {
			continue
		}
		rest := line[len(m[0]):]

		dm := pacificDescRe.FindStringSubmatch(rest)
		if dm == nil {
			continue
		}
		desc := strings.TrimRight(strings.TrimSpace(dm[1]), "| ")
		if desc == "" {
			continue
		}

		numbers := pacificNumberRe.FindAllString(rest, -1)
		if len(numbers) < 2 {
			continue
		}
		unit, ok1 := parseAmount(numbers[len(numbers)-2])
		amount, ok2 := parseAmount(numbers[len(numbers)-1])
		if !ok1 || !ok2 {
			continue
		}

		// Sanity check: amount should roughly be shipped * unit price.
		if expected := shipped * unit; expected > 0 {
			if absFloat(expected-amount)/expected > 0.5 {
				continue
			}
		}

		k := key{desc: truncate(desc, 50), qty: shipped, unit: unit}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		items = append(items, entity.LineItem{
			Description: desc,
			Quantity:    shipped,
			UnitPrice:   unit,
			LineTotal:   amount,
			Order:       len(items) + 1,
		})
	}
	return items
}
