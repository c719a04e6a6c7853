// Command substance-mapper maps the substances of medication documents to
// SNOMED CT concepts and ATC codes. It runs once over a document, serves the
// mapping tools over HTTP, or invokes a single tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/giygas/substance-mapper/config"
	"github.com/giygas/substance-mapper/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// xmlContentName names outputs of documents passed with --xml-content
const xmlContentName = "xml_content"

var errNoMedications = errors.New("no medications found in XML input")

type rootOptions struct {
	xmlFile    string
	xmlContent string
	test       bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use: "substance-mapper",

		Short: "Maps medication substances to SNOMED CT concepts and ATC codes.",

		Long: `Reads a document of Medication elements, looks up the SNOMED CT concept and
the ATC codes of every substance and writes the annotated document to an
auto-numbered file in the output directory.`,

		Example: `  substance-mapper --xml medications.xml
  substance-mapper --xml-content '<XML-File><Medication>...</Medication></XML-File>'
  substance-mapper --test`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.xmlFile, "xml", "", "XML file to map")
	flags.StringVar(&opts.xmlContent, "xml-content", "", "XML document to map, passed inline")
	flags.BoolVar(&opts.test, "test", false, "map the configured test file (TEST_FILE)")
	cmd.MarkFlagsMutuallyExclusive("xml", "xml-content", "test")

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to the console")

	cmd.AddCommand(newServeCmd(&opts))
	cmd.AddCommand(newToolsCmd(&opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup loads the configuration, installs the logger and builds the app.
// Callers must call logging.Close when done.
func setup(cmd *cobra.Command, verbose bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logging.InitLogger(logging.Options{
		LogDir:         cfg.LogDir,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
		Verbose:        verbose,
		Console:        cmd.ErrOrStderr(),
	})

	return newApp(cfg, logging.Logger()), nil
}

func runRoot(cmd *cobra.Command, opts rootOptions) error {
	flags := cmd.Flags()
	switch {
	case flags.Changed("xml") && opts.xmlFile == "":
		return errors.New("please provide an XML filename after --xml")
	case flags.Changed("xml-content") && opts.xmlContent == "":
		return errors.New("please provide XML content after --xml-content")
	case !flags.Changed("xml") && !flags.Changed("xml-content") && !opts.test:
		return errors.New("one of --xml, --xml-content or --test is required")
	}

	// Invocation is valid, later failures are not usage errors.
	cmd.SilenceUsage = true

	a, err := setup(cmd, opts.verbose)
	if err != nil {
		return err
	}
	defer logging.Close()

	out := cmd.OutOrStdout()

	var content, inputName string
	switch {
	case opts.xmlFile != "":
		if content, err = readInput(opts.xmlFile, "file"); err != nil {
			return err
		}
		inputName = opts.xmlFile
		fmt.Fprintf(out, "Loaded XML from '%s'\n", opts.xmlFile)
	case opts.xmlContent != "":
		content, inputName = opts.xmlContent, xmlContentName
		fmt.Fprintln(out, "Processing XML content from command line")
	default:
		if content, err = readInput(a.cfg.TestFile, "test file"); err != nil {
			return err
		}
		inputName = a.cfg.TestFile
		fmt.Fprintf(out, "Using test file: '%s'\n", a.cfg.TestFile)
	}

	return runMapping(cmd.Context(), a, content, inputName, out)
}

func readInput(path, what string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s '%s' not found", what, path)
	}
	if err != nil {
		return "", fmt.Errorf("error reading %s: %w", what, err)
	}
	return string(data), nil
}

// runMapping maps content, prints the summary and writes the output file
func runMapping(ctx context.Context, a *app, content, inputName string, out io.Writer) error {
	result := a.mapper.Map(ctx, content, 0)
	if result.ParseErr != nil {
		return fmt.Errorf("error parsing XML: %w", result.ParseErr)
	}
	if len(result.Entries) == 0 {
		return errNoMedications
	}

	printSummary(out, result)

	path := a.namer.Next(inputName)
	if err := a.namer.Write(path, result.Render()); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nXML output saved to: '%s'\n", path)
	return nil
}

// loadDotEnv reads .env from the working directory, then from the
// directory of the executable. A missing file is not an error.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	ex, exErr := os.Executable()
	if exErr != nil {
		return nil
	}
	err = godotenv.Load(filepath.Join(filepath.Dir(ex), ".env"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func main() {
	if err := loadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %s\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
