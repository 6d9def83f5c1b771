// Package textnorm is the deterministic text-cleanup layer applied before any
// pattern matching. Correct is total and idempotent: worst case it returns its
// input unchanged.
package textnorm

import (
	"regexp"
	"strings"
)

// Context-aware rules run before the unconditional dictionary so legitimate
// text that happens to contain a substitution target is only rewritten when
// the surrounding tokens confirm the misread.
type contextRule struct {
	re    *regexp.Regexp
	fixup func(match string) string
}

var contextRules = []contextRule{
	// INVOKE followed by invoice-ish tokens is a misread INVOICE.
	{
		re: regexp.MustCompile(`\bINVOKE\s+(?:TOTAL|DATE|#|NO\b|\d)`),
		fixup: func(m string) string {
			return strings.Replace(m, "INVOKE", "INVOICE", 1)
		},
	},
	// T0TAL preceded by INVOICE/SUB/GRAND is a misread TOTAL.
	{
		re: regexp.MustCompile(`(?:INVOICE|SUB|GRAND)\s+T0TAL`),
		fixup: func(m string) string {
			return strings.Replace(m, "T0TAL", "TOTAL", 1)
		},
	},
}

// Unconditional dictionary of known OCR confusions, applied in order.
var wordCorrections = []struct{ wrong, right string }{
	{"INVOKE", "INVOICE"},
	{"lNVOlCE", "INVOICE"},
	{"INV0ICE", "INVOICE"}, // 0 for O
	{"INVOlCE", "INVOICE"}, // l for I
	{"T0TAL", "TOTAL"},
	{"TOTAl", "TOTAL"},
	{"TOTAI", "TOTAL"},
	{"0ATE", "DATE"},
	{"OATE", "DATE"},
	{"NUMB3R", "NUMBER"},
	{"CUST0MER", "CUSTOMER"},
	{"0RDER", "ORDER"},
	{"OROER", "ORDER"},
	{"SHlPPED", "SHIPPED"},
	{"SHIPP3D", "SHIPPED"},
}

var (
	// O/l confusions inside dollar amounts and letter-prefixed numbers.
	reAmount   = regexp.MustCompile(`\$\s*([Ol\d,]+\.\d{2})`)
	reAlphaNum = regexp.MustCompile(`\b([A-Z]+)([Ol])(\d{4,})\b`)
	digitFixer = strings.NewReplacer("O", "0", "l", "1")

	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
)

// Correct applies context-aware corrections, then the dictionary, then digit
// fixes inside amounts and invoice numbers, then conservative whitespace
// normalization. Correct(Correct(x)) == Correct(x).
func Correct(s string) string {
	if s == "" {
		return s
	}

	for _, r := range contextRules {
		s = r.re.ReplaceAllStringFunc(s, r.fixup)
	}

	for _, w := range wordCorrections {
		s = strings.ReplaceAll(s, w.wrong, w.right)
	}

	s = reAmount.ReplaceAllStringFunc(s, func(m string) string {
		return digitFixer.Replace(m)
	})
	s = reAlphaNum.ReplaceAllStringFunc(s, func(m string) string {
		parts := reAlphaNum.FindStringSubmatch(m)
		return parts[1] + digitFixer.Replace(parts[2]) + parts[3]
	})

	return normalizeWhitespace(s)
}

// normalizeWhitespace collapses noisy whitespace. Conservative: keeps line
// breaks; collapses runs of blank lines into a single blank line.
func normalizeWhitespace(s string) string {
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

var (
	reKwInvoice = regexp.MustCompile(`(?i)\bINVOICE\b`)
	reKwTotal   = regexp.MustCompile(`(?i)\bTOTAL\b`)
	reKwDate    = regexp.MustCompile(`(?i)\bDATE\b`)
	reKwAmount  = regexp.MustCompile(`\$\s*[\d,]+\.\d{2}`)
)

// Checks summarizes whether the key invoice markers survived correction.
type Checks struct {
	HasInvoiceKeyword bool
	HasTotalKeyword   bool
	HasDateKeyword    bool
	HasDollarAmounts  bool
}

// Validate reports which key invoice terms are present in corrected text.
func Validate(s string) Checks {
	return Checks{
		HasInvoiceKeyword: reKwInvoice.MatchString(s),
		HasTotalKeyword:   reKwTotal.MatchString(s),
		HasDateKeyword:    reKwDate.MatchString(s),
		HasDollarAmounts:  reKwAmount.MatchString(s),
	}
}
