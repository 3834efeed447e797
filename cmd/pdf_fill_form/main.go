package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-pdf-forms/internal/config"
	"github.com/a3tai/mcp-pdf-forms/internal/filler"
	"github.com/a3tai/mcp-pdf-forms/internal/form"
	"github.com/a3tai/mcp-pdf-forms/internal/logging"
	"github.com/a3tai/mcp-pdf-forms/internal/output"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
)

// newLoader is replaced in tests.
var newLoader = pdf.NewLoader

type options struct {
	template  string
	values    string
	images    []string
	outputDir string
	logLevel  string
	maxSize   int64
	pdfPath   string
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("pdf_fill_form", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.template, "template", "t", "", "Template JSON produced by the field designer (required)")
	fs.StringVarP(&opts.values, "values", "f", "", "JSON object of field id to value; checkbox values are arrays")
	fs.StringArrayVarP(&opts.images, "image", "i", nil, "Image for an image field as id=path (repeatable)")
	fs.StringVarP(&opts.outputDir, "output-dir", "o", "", "Directory for filled_<name>.pdf (default: next to the input)")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	fs.Int64Var(&opts.maxSize, "max-file-size", config.DefaultMaxFileSize, "Maximum PDF file size in bytes")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "PDF Fill Form - stamp form values into a PDF using a field template\n\n")
		fmt.Fprintf(stderr, "USAGE:\n  pdf_fill_form --template t.json [--values v.json] [--image id=path ...] input.pdf\n\n")
		fmt.Fprintf(stderr, "OPTIONS:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.template == "" {
		fs.Usage()
		return nil, errors.New("--template is required")
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("exactly one input PDF is required")
	}
	opts.pdfPath = fs.Arg(0)
	if opts.outputDir == "" {
		opts.outputDir = filepath.Dir(opts.pdfPath)
	}
	return opts, nil
}

func readValues(path string) (form.FormData, error) {
	if path == "" {
		return form.FormData{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var values form.FormData
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("invalid values file %s: %w", path, err)
	}
	return values, nil
}

func readImage(arg string) (string, filler.ImageFile, error) {
	id, path, ok := strings.Cut(arg, "=")
	if !ok || id == "" || path == "" {
		return "", filler.ImageFile{}, fmt.Errorf("invalid --image %q, want id=path", arg)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", filler.ImageFile{}, err
	}
	return id, filler.ImageFile{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Data:        data,
	}, nil
}

func printErrors(w io.Writer, v form.Validation) {
	ids := make([]string, 0, len(v.Errors))
	for id := range v.Errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Fprintf(w, "Form is not valid:\n")
	for _, id := range ids {
		fmt.Fprintf(w, "  %s: %s\n", id, v.Errors[id])
	}
}

func fill(ctx context.Context, opts *options, stdout, stderr io.Writer) error {
	templateData, err := os.ReadFile(opts.template)
	if err != nil {
		return err
	}
	loader := newLoader(opts.maxSize)
	pdfData, _, err := loader.Validator.ReadFile(opts.pdfPath)
	if err != nil {
		return err
	}
	values, err := readValues(opts.values)
	if err != nil {
		return err
	}

	f := filler.New(loader, filler.Options{})
	if err := f.LoadTemplate(templateData); err != nil {
		return err
	}
	if err := f.LoadPDF(ctx, filepath.Base(opts.pdfPath), pdfData); err != nil {
		return err
	}
	if _, err := f.SetValues(values); err != nil {
		return err
	}
	for _, arg := range opts.images {
		id, img, err := readImage(arg)
		if err != nil {
			return err
		}
		if _, err := f.SetImage(id, img); err != nil {
			return err
		}
	}

	if v := f.Validate(); !v.Valid {
		printErrors(stderr, v)
		return form.Wrap(form.KindValidation, "fill", form.ErrFormInvalid)
	}

	sink, err := output.NewLocalSink(opts.outputDir)
	if err != nil {
		return err
	}
	result, err := f.GenerateFilledPDF(ctx, sink)
	if err != nil {
		return err
	}
	for _, id := range result.Fallbacks {
		fmt.Fprintf(stderr, "warning: image for %s could not be embedded, stamped as text\n", id)
	}
	fmt.Fprintf(stdout, "%s\n", result.Object.Location)
	return nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	flush, err := logging.Setup(logging.Options{Level: opts.logLevel})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer flush()

	if err := fill(context.Background(), opts, stdout, stderr); err != nil {
		zap.L().Debug("fill failed", zap.Error(err))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
