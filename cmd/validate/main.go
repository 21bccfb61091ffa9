package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/validate"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run validates every file named in args and returns the process exit code:
// 0 when no file is critical, 1 otherwise, 2 on usage errors.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	structure := fs.Bool("structure", false, "only run structural checks")
	fixes := fs.Bool("fix", false, "report safe automatic fixes")
	width := fs.Uint("width", 80, "wrap output at this many columns")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: validate [flags] <adventure.json|adventure.yaml>...\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	opts := validate.Options{Scope: validate.ScopeFull, EnableFixes: *fixes}
	if *structure {
		opts.Scope = validate.ScopeStructure
	}

	code := 0
	for _, path := range fs.Args() {
		if !validateFile(ctx, path, opts, int(*width), stdout) {
			code = 1
		}
	}
	return code
}

func validateFile(ctx context.Context, path string, opts validate.Options, width int, w io.Writer) bool {
	fmt.Fprintf(w, "Validating %s...\n", path)

	format, ok := adventure.FormatFromPath(path)
	if !ok {
		printFinding(w, width, "error", fmt.Sprintf("unsupported file extension %q", filepath.Ext(path)))
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		printFinding(w, width, "error", fmt.Sprintf("failed to read file: %v", err))
		return false
	}
	defer f.Close()

	doc, err := adventure.Decode(f, format)
	if err != nil {
		printFinding(w, width, "error", err.Error())
		return false
	}

	report, err := validate.Validate(ctx, doc, opts)
	if err != nil {
		printFinding(w, width, "error", fmt.Sprintf("validation aborted: %v", err))
		return false
	}

	for _, e := range report.Errors {
		printFinding(w, width, "error", e.String())
	}
	for _, e := range report.Warnings {
		printFinding(w, width, "warning", e.String())
	}
	for _, e := range report.Info {
		printFinding(w, width, "info", e.String())
	}
	for _, e := range report.Fixes {
		printFinding(w, width, "fixed", e.String())
	}

	switch report.Severity {
	case validate.SeverityCritical:
		fmt.Fprintf(w, "%s is not playable (%d error(s))\n", path, len(report.Errors))
		return false
	case validate.SeverityNone:
		fmt.Fprintf(w, "%s is valid!\n", path)
	default:
		fmt.Fprintf(w, "%s is playable with %d warning(s)\n", path, len(report.Warnings))
	}
	return true
}

// printFinding writes a wrapped, indented finding with a severity label.
func printFinding(w io.Writer, width int, label, msg string) {
	const pad = 4
	body := wordwrap.String(msg, max(20, width-pad))
	body = strings.TrimPrefix(indent.String(body, pad), strings.Repeat(" ", pad))
	fmt.Fprintf(w, "  - [%s] %s\n", label, body)
}
