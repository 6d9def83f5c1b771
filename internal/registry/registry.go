// Package registry holds per-vendor detection and validation patterns with
// adaptive confidence. Reads are concurrent; learn/add mutations serialize
// behind a single writer lock and persist the whole file before returning.
package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// Detection score weights, matched against every registered vendor. The
// highest-scoring vendor wins once it reaches minDetectScore.
const (
	nameMatchWeight   = 0.5
	prefixMatchWeight = 0.3
	ocrMatchWeight    = 0.2
	minDetectScore    = 0.5
)

type Registry struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	vendors map[string]*entity.VendorPattern
}

// Load opens the registry file, seeding it with the default vendors when it
// does not exist yet.
func Load(path string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		path:    path,
		logger:  logger,
		vendors: make(map[string]*entity.VendorPattern),
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &r.vendors); err != nil {
			return nil, fmt.Errorf("parse vendor registry %s: %w", path, err)
		}
		logger.Info("registry.loaded", "path", path, "vendors", len(r.vendors))
	case os.IsNotExist(err):
		r.vendors = defaultVendors()
		if err := r.persistLocked(); err != nil {
			return nil, err
		}
		logger.Info("registry.seeded", "path", path, "vendors", len(r.vendors))
	default:
		return nil, fmt.Errorf("read vendor registry %s: %w", path, err)
	}
	return r, nil
}

// Detect identifies the vendor for an extraction. Matching precedence is
// folded into additive scores: name pattern against the vendor-name hint,
// prefix pattern against the invoice-number hint, then a full-text scan.
// Ties break by higher confidence, then sample count, then vendor_id.
func (r *Registry) Detect(vendorName, invoiceNumber, rawText string) *entity.VendorPattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type scored struct {
		v     *entity.VendorPattern
		score float64
	}
	var candidates []scored

	for _, v := range r.vendors {
		score := 0.0
		if vendorName != "" && matchAny(v.NamePatterns, vendorName, true) {
			score += nameMatchWeight
		}
		if invoiceNumber != "" && prefixAny(v.InvoicePrefixPatterns, invoiceNumber) {
			score += prefixMatchWeight
		}
		if rawText != "" && matchAny(v.NamePatterns, rawText, true) {
			score += ocrMatchWeight
		}
		if score > 0 {
			candidates = append(candidates, scored{v: v, score: score})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.v.Confidence != b.v.Confidence {
			return a.v.Confidence > b.v.Confidence
		}
		if a.v.SampleCount != b.v.SampleCount {
			return a.v.SampleCount > b.v.SampleCount
		}
		return a.v.VendorID < b.v.VendorID
	})

	best := candidates[0]
	if best.score < minDetectScore {
		return nil
	}
	cp := *best.v
	return &cp
}

// ValidateInvoiceNumber checks length bounds then the vendor regex. A length
// violation is reported distinctly from a pattern mismatch.
func (r *Registry) ValidateInvoiceNumber(number string, v *entity.VendorPattern) (bool, string) {
	if number == "" {
		return false, "invoice number is empty"
	}
	if len(number) < v.InvoiceNumberMinLength {
		return false, fmt.Sprintf("too short (min %d)", v.InvoiceNumberMinLength)
	}
	if len(number) > v.InvoiceNumberMaxLength {
		return false, fmt.Sprintf("too long (max %d)", v.InvoiceNumberMaxLength)
	}
	re, err := regexp.Compile(v.InvoiceNumberRegex)
	if err != nil {
		return false, fmt.Sprintf("invalid vendor pattern: %v", err)
	}
	if !re.MatchString(number) {
		return false, fmt.Sprintf("does not match pattern %s", v.InvoiceNumberRegex)
	}
	return true, ""
}

// Instructions builds the structured hint the orchestrator feeds to the
// model/LLM tiers for a detected vendor.
func (r *Registry) Instructions(v *entity.VendorPattern) *entity.VendorHints {
	return &entity.VendorHints{
		VendorID:              v.VendorID,
		VendorName:            v.VendorName,
		InvoiceNumberRegex:    v.InvoiceNumberRegex,
		InvoicePrefixPatterns: append([]string(nil), v.InvoicePrefixPatterns...),
		InvoiceNumberLabel:    v.InvoiceNumberLabel,
		InvoiceNumberLocation: v.InvoiceNumberLocation,
		MinLength:             v.InvoiceNumberMinLength,
		MaxLength:             v.InvoiceNumberMaxLength,
		ColumnMappings:        v.ColumnMappings,
		Notes:                 v.Notes,
	}
}

// Learn feeds an extraction result back into the vendor's confidence.
// Success nudges toward 1.0, failure toward the 0.5 floor; sample_count
// always increments. The registry persists before Learn returns.
func (r *Registry) Learn(vendorID string, wasSuccessful bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.vendors[vendorID]
	if !ok {
		return nil
	}
	v.SampleCount++
	if wasSuccessful {
		v.Confidence = min(1.0, v.Confidence+0.01)
	} else {
		v.Confidence = max(0.5, v.Confidence-0.05)
	}
	v.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	if err := r.persistLocked(); err != nil {
		// At-least-once durability: a lost update is logged, not fatal.
		r.logger.Warn("registry.persist_failed", "vendor_id", vendorID, "error", err)
		return err
	}
	r.logger.Debug("registry.learned",
		"vendor_id", vendorID,
		"success", wasSuccessful,
		"confidence", v.Confidence,
		"samples", v.SampleCount,
	)
	return nil
}

// AddVendor registers or replaces a vendor pattern and persists the registry.
func (r *Registry) AddVendor(v entity.VendorPattern) error {
	if v.VendorID == "" || v.VendorName == "" {
		return fmt.Errorf("vendor_id and vendor_name are required")
	}
	if _, err := regexp.Compile(v.InvoiceNumberRegex); err != nil {
		return fmt.Errorf("invoice_number_regex: %w", err)
	}
	if v.Confidence == 0 {
		v.Confidence = 0.8
	}
	v.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.vendors[v.VendorID] = &v
	if err := r.persistLocked(); err != nil {
		return err
	}
	r.logger.Info("registry.vendor_added", "vendor_id", v.VendorID, "vendor_name", v.VendorName)
	return nil
}

// Get returns a copy of the pattern for vendorID.
func (r *Registry) Get(vendorID string) (*entity.VendorPattern, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vendors[vendorID]
	if !ok {
		return nil, false
	}
	cp := *v
	return &cp, true
}

// All returns copies of every registered vendor, ordered by vendor_id.
func (r *Registry) All() []entity.VendorPattern {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.VendorPattern, 0, len(r.vendors))
	for _, v := range r.vendors {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VendorID < out[j].VendorID })
	return out
}

// persistLocked writes the registry file. Callers hold the write lock (or are
// still inside Load before the registry is shared).
func (r *Registry) persistLocked() error {
	data, err := json.MarshalIndent(r.vendors, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal vendor registry: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("write vendor registry %s: %w", r.path, err)
	}
	return nil
}

func matchAny(patterns []string, text string, caseInsensitive bool) bool {
	for _, p := range patterns {
		if caseInsensitive {
			p = "(?i)" + p
		}
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func prefixAny(patterns []string, number string) bool {
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		if loc := re.FindStringIndex(number); loc != nil && loc[0] == 0 {
			return true
		}
	}
	return false
}
