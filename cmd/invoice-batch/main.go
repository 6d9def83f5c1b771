package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/async"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/normalize"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/registry"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
	"github.com/joseph-ayodele/invoice-extractor/internal/tier"
	"github.com/joseph-ayodele/invoice-extractor/internal/tier/layout"
	"github.com/joseph-ayodele/invoice-extractor/internal/tier/llmtier"
	"github.com/joseph-ayodele/invoice-extractor/internal/tier/pattern"
	"github.com/joseph-ayodele/invoice-extractor/internal/validate"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem   = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir     = flag.String("dir", "", "directory of page text (.txt) and page image (.png/.jpg) files (required)")
		out     = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		workers = flag.Int("workers", 4, "concurrent document workers")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "invoices.xlsx")
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	cfg := common.LoadConfig()
	if *inmem {
		cfg.Database.DSN = ":memory:"
	}

	reg, err := registry.Load(cfg.Registry.Path, logger)
	if err != nil {
		logger.Error("failed to load vendor registry", "error", err)
		os.Exit(1)
	}

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()
	repo := repository.NewInvoiceRepository(db, logger)

	tiers := buildTiers(cfg, logger)
	if len(tiers) == 0 {
		printError("Error: every extraction tier is disabled\n")
		os.Exit(1)
	}

	validator := validate.New(reg, logger)
	orchestrator := pipeline.NewOrchestrator(tiers, pipeline.Thresholds(cfg.Tiers), reg, validator, logger)
	processor := pipeline.NewProcessor(orchestrator, validator, normalize.New(logger), repo, logger)

	queue := async.NewExtractorQueue(processor, logger, async.WithWorkers(*workers))

	docs, err := collectDocuments(*dir)
	if err != nil {
		logger.Error("failed to scan input directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	logger.Info("starting batch", "dir", *dir, "documents", len(docs), "workers", *workers)

	var mu sync.Mutex
	var results []*entity.DocumentResult
	for _, doc := range docs {
		err := queue.Enqueue(ctx, async.Job{
			SourcePath:  doc.path,
			Pages:       doc.pages,
			SubmittedAt: time.Now(),
			Done: func(r *entity.DocumentResult) {
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			},
		})
		if err != nil {
			logger.Error("failed to enqueue document", "path", doc.path, "error", err)
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	queue.Shutdown(drainCtx)
	cancel()

	accepted, review, exhausted, failed := 0, 0, 0, 0
	for _, r := range results {
		for _, page := range r.Pages {
			switch page.Status {
			case constants.PageAccepted:
				accepted++
			case constants.PageNeedsReview:
				review++
			case constants.PageExhausted:
				exhausted++
			case constants.PageFailed:
				failed++
			}
		}
	}

	logger.Info("exporting to XLSX", "output", *out)
	xlsxBytes, err := export.NewService(repo, logger).ExportInvoicesXLSX(ctx)
	if err != nil {
		logger.Error("failed to export invoices", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch complete",
		"documents", len(docs),
		"pages_accepted", accepted,
		"pages_needs_review", review,
		"pages_exhausted", exhausted,
		"pages_failed", failed,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Documents: %d\n", len(docs))
	fmt.Printf("- Pages accepted: %d\n", accepted)
	fmt.Printf("- Pages for review: %d\n", review+exhausted)
	fmt.Printf("- Pages failed: %d\n", failed)
	fmt.Printf("- Output: %s\n", *out)
}

// buildTiers assembles the cascade in order, honoring the per-tier toggles.
// An enabled LLM tier with no API key stays in the chain and reports itself
// unavailable at runtime, so text-only runs still work.
func buildTiers(cfg *common.Config, logger *slog.Logger) []tier.Extractor {
	var tiers []tier.Extractor
	if cfg.Tiers.UsePattern {
		tiers = append(tiers, pattern.New(logger))
	}
	if cfg.Tiers.UseLayoutModel {
		tiers = append(tiers, layout.New(cfg.Layout, logger))
	}
	if cfg.Tiers.UseOCRLLM || cfg.Tiers.UseVisionLLM {
		client := llmtier.NewClient(llmtier.NewConfig(cfg), logger)
		if !client.Available() {
			logger.Warn("LLM API key not configured, LLM tiers will be skipped")
		}
		if cfg.Tiers.UseOCRLLM {
			tiers = append(tiers, llmtier.NewTextExtractor(client, logger))
		}
		if cfg.Tiers.UseVisionLLM {
			tiers = append(tiers, llmtier.NewVisionExtractor(client, logger))
		}
	}
	return tiers
}

type document struct {
	path  string
	pages []tier.PageContent
}

// collectDocuments maps input files to documents: a .txt file is one
// text document with pages split on form feeds, an image file is one
// single-page image document.
func collectDocuments(dir string) ([]document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var docs []document
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt":
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			var pages []tier.PageContent
			for i, text := range strings.Split(string(data), "\f") {
				if strings.TrimSpace(text) == "" {
					continue
				}
				pages = append(pages, tier.PageContent{PageNumber: i + 1, Text: text})
			}
			if len(pages) > 0 {
				docs = append(docs, document{path: path, pages: pages})
			}
		case ".png", ".jpg", ".jpeg":
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			docs = append(docs, document{path: path, pages: []tier.PageContent{
				{PageNumber: 1, Image: data},
			}})
		}
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].path < docs[j].path })
	return docs, nil
}
