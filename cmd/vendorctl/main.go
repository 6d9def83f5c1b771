// vendorctl inspects and edits the vendor registry file.
//
//	vendorctl list
//	vendorctl show -id pacific_food
//	vendorctl suggest -id acme -name "Acme Corp" -samples INV1001,INV1002 [-commit]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/registry"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func usage() {
	printError("usage: vendorctl <list|show|suggest> [flags]\n")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	cfg := common.LoadConfig()

	reg, err := registry.Load(cfg.Registry.Path, logger)
	if err != nil {
		printError("Error: load registry %s: %v\n", cfg.Registry.Path, err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		for _, v := range reg.All() {
			fmt.Printf("%-20s %-32s %-16s conf=%.2f samples=%d\n",
				v.VendorID, v.VendorName, v.InvoiceNumberRegex, v.Confidence, v.SampleCount)
		}

	case "show":
		fs := flag.NewFlagSet("show", flag.ExitOnError)
		id := fs.String("id", "", "vendor id (required)")
		_ = fs.Parse(os.Args[2:])
		if *id == "" {
			printError("Error: -id is required\n")
			os.Exit(1)
		}
		v, ok := reg.Get(*id)
		if !ok {
			printError("Error: unknown vendor %q\n", *id)
			os.Exit(1)
		}
		printJSON(v)

	case "suggest":
		fs := flag.NewFlagSet("suggest", flag.ExitOnError)
		id := fs.String("id", "", "vendor id for the new entry (required)")
		name := fs.String("name", "", "vendor display name (required)")
		samples := fs.String("samples", "", "comma-separated known-correct invoice numbers (required)")
		commit := fs.Bool("commit", false, "write the draft into the registry instead of printing it")
		_ = fs.Parse(os.Args[2:])
		if *id == "" || *name == "" || *samples == "" {
			printError("Error: -id, -name and -samples are required\n")
			os.Exit(1)
		}

		draft, err := registry.SuggestPattern(*name, strings.Split(*samples, ","))
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
		draft.VendorID = *id

		if !*commit {
			printJSON(draft)
			fmt.Println("(draft only; rerun with -commit to save)")
			return
		}
		if err := reg.AddVendor(draft); err != nil {
			printError("Error: add vendor: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("saved %s to %s\n", draft.VendorID, cfg.Registry.Path)

	default:
		usage()
	}
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		printError("Error: encode: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
