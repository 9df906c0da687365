// Command notam-stamp crops a NOTAM briefing pack and stamps classification
// tags next to each notice header, without running the MCP server.
//
//	notam-stamp --pages 1-4 pack.pdf                 # classify pages 1-4 offline, stamp the pack
//	notam-stamp --tags tags.json pack.pdf            # stamp tags from a file
//	notam-stamp --crop-only --pages 2-5 pack.pdf     # only write Clean_pack.pdf
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-notam-briefing/internal/intelligence"
	"github.com/a3tai/mcp-notam-briefing/internal/logging"
	"github.com/a3tai/mcp-notam-briefing/internal/metrics"
	"github.com/a3tai/mcp-notam-briefing/internal/notam"
	"github.com/a3tai/mcp-notam-briefing/internal/oracle"
	"github.com/a3tai/mcp-notam-briefing/internal/pdf"
	"github.com/a3tai/mcp-notam-briefing/internal/pdf/stamp"
)

const defaultMaxFileSize = 100 * 1024 * 1024

var errUsage = errors.New("PDF file path required")

type options struct {
	pages        string
	tagsFile     string
	output       string
	cropOnly     bool
	format       string
	logLevel     string
	headerMargin float64
	maxFileSize  int64
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	opts := &options{}
	flags := pflag.NewFlagSet("notam-stamp", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	flags.StringVarP(&opts.pages, "pages", "p", "", "Page range to keep, e.g. 1-3,5 (default: all pages)")
	flags.StringVarP(&opts.tagsFile, "tags", "t", "", "JSON file mapping identifiers to tags; skips classification")
	flags.StringVarP(&opts.output, "out", "o", "", "Output file (default: Annotated_ or Clean_ prefix next to the input)")
	flags.BoolVar(&opts.cropOnly, "crop-only", false, "Only crop the pack, do not stamp")
	flags.StringVar(&opts.format, "format", "text", "Output format: text, json")
	flags.StringVar(&opts.logLevel, "loglevel", "warn", "Log level (debug, info, warn, error)")
	flags.Float64Var(&opts.headerMargin, "header-margin", stamp.DefaultHeaderMargin,
		"Occurrences left of this x position (points) are notice headers")
	flags.Int64Var(&opts.maxFileSize, "maxfilesize", defaultMaxFileSize, "Maximum PDF file size in bytes")

	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: notam-stamp [options] <pack.pdf>\n\nOptions:\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return nil, nil, err
	}
	if opts.format != "text" && opts.format != "json" {
		return nil, nil, fmt.Errorf("unsupported format %q", opts.format)
	}
	if opts.tagsFile != "" && opts.pages != "" && !opts.cropOnly {
		return nil, nil, errors.New("--pages selects pages to classify or crop and cannot be combined with --tags")
	}
	return opts, flags.Args(), nil
}

// readTags loads a {"A1234/26": "[ RWY | 005 ]"} file. It is decoded like
// an oracle reply, so identifiers and tags are trimmed.
func readTags(path string) (notam.TagMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags file: %w", err)
	}
	tags, err := oracle.ParseTagMap(string(data))
	if err != nil {
		return nil, fmt.Errorf("tags file %s: %w", path, err)
	}
	return tags, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, rest, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errUsage
	}

	logger, err := logging.New(opts.logLevel, false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	input, err := filepath.Abs(rest[0])
	if err != nil {
		return err
	}
	if opts.output != "" {
		if opts.output, err = filepath.Abs(opts.output); err != nil {
			return err
		}
	}

	rules, err := intelligence.NewRuleClassifier(intelligence.DefaultClassificationConfig(), logger.Named("rules"))
	if err != nil {
		return err
	}

	layout := stamp.DefaultLayout()
	layout.HeaderMargin = opts.headerMargin

	svc, err := pdf.NewService(pdf.ServiceConfig{
		Directory:   filepath.Dir(input),
		MaxFileSize: opts.maxFileSize,
		Layout:      layout,
		OracleName:  "offline rules",
	}, rules.Classify, nil, metrics.New(), logger.Named("service"))
	if err != nil {
		return err
	}

	var result interface{}
	switch {
	case opts.cropOnly:
		result, err = svc.CropPages(pdf.CropRequest{Path: input, Pages: opts.pages, OutputPath: opts.output})
	case opts.tagsFile != "":
		tags, readErr := readTags(opts.tagsFile)
		if readErr != nil {
			return readErr
		}
		result, err = svc.StampTags(pdf.StampTagsRequest{Path: input, Tags: tags, OutputPath: opts.output})
	default:
		result, err = svc.Annotate(ctx, pdf.AnnotateRequest{Path: input, Pages: opts.pages, OutputPath: opts.output})
	}
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(stdout, result)
	return nil
}

func printResult(w io.Writer, result interface{}) {
	switch r := result.(type) {
	case *pdf.CropResult:
		fmt.Fprintf(w, "Wrote %s\n", r.OutputPath)
		fmt.Fprintf(w, "Pages retained: %d of %d (%s)\n", r.PagesRetained, r.TotalPages, r.Pages)
	case *pdf.StampResult:
		fmt.Fprintf(w, "Wrote %s\n", r.OutputPath)
		fmt.Fprintf(w, "Stamped: %d of %d identifiers\n", r.Stamped, r.Total)
		for _, p := range r.Placements {
			fmt.Fprintf(w, "  page %d: %s %s\n", p.Page+1, p.ID, p.Tag)
		}
		if len(r.Unmatched) > 0 {
			fmt.Fprintf(w, "No header found for: %s\n", strings.Join(r.Unmatched, ", "))
		}
		if len(r.BlankTags) > 0 {
			fmt.Fprintf(w, "Not stamped, empty tag: %s\n", strings.Join(r.BlankTags, ", "))
		}
	}
}

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n\nUsage: notam-stamp [options] <pack.pdf>\n", err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "notam-stamp: %v\n", err)
		os.Exit(1)
	}
}
