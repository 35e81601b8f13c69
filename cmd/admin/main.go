package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/tendant/simple-preprint/pkg/preprint"
	"github.com/tendant/simple-preprint/pkg/preprint/config"
)

const usage = `Preprint Admin CLI

Usage:
  admin <command> [flags]

Commands:
  list        List preprints, newest first
  get         Show one preprint
  mint        Assign a DOI to a preprint (no-op when it already has one)
  parse-doi   Split a DOI into year, month and sequence
  help        Show this help message

Flags:
  --q=<text>           Case-insensitive match on title or abstract (list)
  --category=<name>    Exact category, case-insensitive (list)
  --json               Output in JSON format

Examples:
  admin list
  admin list --category=cs --json
  admin get 42
  admin mint 42
  admin parse-doi 10.55555/rvu-preprints.202511-0001

Environment:
  Reads the same variables as the server (DATABASE_TYPE, DATABASE_URL,
  STORAGE_BACKEND, ...). A .env file in the working directory is loaded first.
`

var errUsage = errors.New("invalid usage")

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Print(usage, "\n")
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Print(usage, "\n")
		os.Exit(0)
	}

	ctx := context.Background()

	// parse-doi needs no backing store
	var svc preprint.Service
	if command != "parse-doi" {
		cfg, err := config.Load(config.WithEnv())
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		logger := config.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

		var cleanup func()
		svc, cleanup, err = cfg.BuildService(ctx, logger)
		if err != nil {
			log.Fatalf("Failed to create preprint service: %v", err)
		}
		defer cleanup()
	}

	if err := run(ctx, svc, command, os.Args[2:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\n\n%s\n", err, usage)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

type options struct {
	query    string
	category string
	json     bool
	args     []string
}

func parseArgs(args []string) options {
	var opts options
	for _, arg := range args {
		if arg == "--json" {
			opts.json = true
			continue
		}

		key, value := parseFlag(arg)
		switch key {
		case "":
			opts.args = append(opts.args, arg)
		case "q", "query":
			opts.query = value
		case "category":
			opts.category = value
		case "json":
			opts.json = value == "true"
		}
	}
	return opts
}

func parseFlag(arg string) (string, string) {
	if len(arg) > 2 && arg[:2] == "--" {
		arg = arg[2:]
		for i, c := range arg {
			if c == '=' {
				return arg[:i], arg[i+1:]
			}
		}
		return arg, "true"
	}
	return "", ""
}

func run(ctx context.Context, svc preprint.Service, command string, args []string, out io.Writer) error {
	opts := parseArgs(args)

	switch command {
	case "list":
		return handleList(ctx, svc, opts, out)
	case "get":
		id, err := idArg(opts)
		if err != nil {
			return err
		}
		return handleGet(ctx, svc, id, opts, out)
	case "mint":
		id, err := idArg(opts)
		if err != nil {
			return err
		}
		return handleMint(ctx, svc, id, opts, out)
	case "parse-doi":
		if len(opts.args) != 1 {
			return fmt.Errorf("%w: parse-doi takes exactly one DOI", errUsage)
		}
		return handleParseDOI(opts.args[0], opts, out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func idArg(opts options) (int64, error) {
	if len(opts.args) != 1 {
		return 0, fmt.Errorf("%w: expected one preprint id", errUsage)
	}
	id, err := strconv.ParseInt(opts.args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid preprint id %q", errUsage, opts.args[0])
	}
	return id, nil
}

func handleList(ctx context.Context, svc preprint.Service, opts options, out io.Writer) error {
	preprints, err := svc.List(ctx, preprint.ListRequest{Query: opts.query, Category: opts.category})
	if err != nil {
		return fmt.Errorf("list preprints: %w", err)
	}

	if opts.json {
		return writeJSON(out, preprints)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tTITLE\tCATEGORY\tSTATUS\tDOI\tUPLOADED\n")
	for _, p := range preprints {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			p.ID,
			truncate(p.Title, 40),
			p.Category,
			p.Status,
			doiOrDash(p),
			p.UploadedAt.Format("2006-01-02 15:04:05"),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTotal: %d\n", len(preprints))
	return nil
}

func handleGet(ctx context.Context, svc preprint.Service, id int64, opts options, out io.Writer) error {
	p, err := svc.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get preprint: %w", err)
	}

	if opts.json {
		return writeJSON(out, p)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%d\n", p.ID)
	fmt.Fprintf(w, "Title:\t%s\n", p.Title)
	fmt.Fprintf(w, "Category:\t%s\n", p.Category)
	fmt.Fprintf(w, "Course:\t%s\n", p.CourseCode)
	fmt.Fprintf(w, "Authors:\t%s\n", p.Authors)
	fmt.Fprintf(w, "Faculty:\t%s\n", p.Faculty)
	fmt.Fprintf(w, "File:\t%s\n", p.FileLocator)
	fmt.Fprintf(w, "Uploaded:\t%s\n", p.UploadedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Version:\t%d\n", p.Version)
	fmt.Fprintf(w, "Status:\t%s\n", p.Status)
	fmt.Fprintf(w, "DOI:\t%s\n", doiOrDash(p))
	return w.Flush()
}

func handleMint(ctx context.Context, svc preprint.Service, id int64, opts options, out io.Writer) error {
	doi, created, err := svc.MintDOI(ctx, id)
	if err != nil {
		return fmt.Errorf("mint doi: %w", err)
	}

	if opts.json {
		return writeJSON(out, map[string]any{"doi": doi, "created": created})
	}

	if created {
		fmt.Fprintf(out, "Minted %s\n", doi)
	} else {
		fmt.Fprintf(out, "Already assigned %s\n", doi)
	}
	return nil
}

func handleParseDOI(doi string, opts options, out io.Writer) error {
	parts, err := preprint.ParseDOI(doi)
	if err != nil {
		return err
	}

	if opts.json {
		return writeJSON(out, map[string]int{
			"year":     parts.Year,
			"month":    int(parts.Month),
			"sequence": parts.Sequence,
		})
	}

	fmt.Fprintf(out, "Year:     %d\n", parts.Year)
	fmt.Fprintf(out, "Month:    %s\n", parts.Month)
	fmt.Fprintf(out, "Sequence: %d\n", parts.Sequence)
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func doiOrDash(p *preprint.Preprint) string {
	if p.HasDOI() {
		return *p.DOI
	}
	return "-"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
