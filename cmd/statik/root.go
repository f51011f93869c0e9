package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"statik/internal/analysis"
	"statik/internal/config"
	staterr "statik/internal/errors"
	"statik/internal/graph"
	"statik/internal/index"
	"statik/internal/logging"
	"statik/internal/model"
	"statik/internal/output"
	"statik/internal/storage"
	"statik/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "statik",
	Short: "File-level dependency analysis for codebases",
	Long: `statik indexes a multi-language source tree (TypeScript/JavaScript, Java,
Rust) into a persistent relational index and answers graph-level questions:
dependency chains, dead code, circular dependencies, refactoring impact,
structural diffs, and architectural-rule violations.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("statik version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.String("format", "text", "Output format (text, json, compact, csv)")
	flags.Bool("no-index", false, "Skip auto-indexing, use the existing index only")
	flags.StringSlice("include", nil, "Include only files matching this glob")
	flags.StringSlice("exclude", nil, "Exclude files matching this glob")
	flags.String("lang", "", "Filter to a specific language")
	flags.Int("max-depth", 0, "Limit transitive depth")
	flags.Bool("runtime-only", false, "Exclude type-only imports")
	flags.String("path-filter", "", "Filter results to paths matching this glob")
	flags.Bool("count", false, "Output only the count of results")
	flags.Int("limit", 0, "Limit the number of results shown")
	flags.String("sort", "", "Sort results by field (path, confidence, name, depth)")
	flags.Bool("reverse", false, "Reverse the sort order")
	flags.String("jq", "", "Apply a jq filter to JSON output")
	flags.Bool("absolute-paths", false, "Output absolute instead of project-relative paths")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	// Every global flag is overridable via STATIK_<FLAG> environment
	// variables; the flag value wins when set explicitly.
	viper.SetEnvPrefix("STATIK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlags(flags)
}

// globalOptions is the resolved state of the persistent flags.
type globalOptions struct {
	Format      output.Format
	NoIndex     bool
	Include     []string
	Exclude     []string
	Language    model.Language
	MaxDepth    int
	RuntimeOnly bool
	JQ          string
	List        output.ListOptions
}

func resolveGlobals(root string) (*globalOptions, error) {
	format, err := output.ParseFormat(viper.GetString("format"))
	if err != nil {
		return nil, err
	}

	opts := &globalOptions{
		Format:      format,
		NoIndex:     viper.GetBool("no-index"),
		Include:     viper.GetStringSlice("include"),
		Exclude:     viper.GetStringSlice("exclude"),
		MaxDepth:    viper.GetInt("max-depth"),
		RuntimeOnly: viper.GetBool("runtime-only"),
		JQ:          viper.GetString("jq"),
		List: output.ListOptions{
			SortField:  viper.GetString("sort"),
			Reverse:    viper.GetBool("reverse"),
			Limit:      viper.GetInt("limit"),
			Count:      viper.GetBool("count"),
			PathFilter: viper.GetString("path-filter"),
		},
	}
	if viper.GetBool("absolute-paths") {
		opts.List.AbsoluteRoot = root
	}
	if lang := viper.GetString("lang"); lang != "" {
		parsed, ok := model.ParseLanguage(lang)
		if !ok {
			return nil, staterr.Newf(staterr.ConfigInvalid, "unknown language %q", lang)
		}
		opts.Language = parsed
	}
	return opts, nil
}

func newLogger() *logging.Logger {
	format := logging.HumanFormat
	if viper.GetString("format") == "json" {
		format = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: format,
		Level:  logging.ParseLevel(viper.GetString("log-level")),
	})
}

// engine bundles the state shared by every analysis command.
type engine struct {
	Root    string
	Opts    *globalOptions
	Logger  *logging.Logger
	Config  *config.Config
	DB      *storage.DB
}

// newEngine resolves the project root, loads configuration, opens the
// store, and auto-indexes unless --no-index is set.
func newEngine(ctx context.Context, configOverride string) (*engine, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	opts, err := resolveGlobals(root)
	if err != nil {
		return nil, err
	}
	logger := newLogger()

	cfg, err := config.Load(root, configOverride)
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(root, logger)
	if err != nil {
		return nil, staterr.New(staterr.PersistenceIO, "failed to open index store", err)
	}

	e := &engine{Root: root, Opts: opts, Logger: logger, Config: cfg, DB: db}
	if !opts.NoIndex {
		if err := e.reindex(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return e, nil
}

func (e *engine) Close() {
	_ = e.DB.Close()
}

func (e *engine) reindex(ctx context.Context) error {
	lock, err := index.AcquireLock(filepath.Join(e.Root, storage.StoreDirName))
	if err != nil {
		return err
	}
	defer lock.Release()

	var langs []model.Language
	if e.Opts.Language != "" {
		langs = []model.Language{e.Opts.Language}
	}
	_, err = index.New(e.DB, e.Root, e.Logger).Run(ctx, index.Options{
		Include:   e.Opts.Include,
		Exclude:   e.Opts.Exclude,
		Languages: langs,
	})
	return err
}

// buildGraph assembles the FileGraph from the store.
func (e *engine) buildGraph() (*graph.FileGraph, error) {
	return graph.NewBuilder(e.DB, e.Config, e.Root, e.Logger).Build()
}

// relativePath normalizes a user-supplied file argument to the
// project-relative form used by the index.
func (e *engine) relativePath(arg string) string {
	p := arg
	if filepath.IsAbs(p) {
		if rel, err := filepath.Rel(e.Root, p); err == nil {
			p = rel
		}
	}
	return filepath.ToSlash(filepath.Clean(p))
}

// emit renders a result document honoring --jq and the list options.
func (e *engine) emit(doc output.Doc) error {
	if e.Opts.JQ != "" {
		data, err := output.ApplyJQ(doc.Value, e.Opts.JQ)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	if !e.Opts.List.IsZero() {
		processed, err := output.Apply(doc.Value, e.Opts.List)
		if err != nil {
			return err
		}
		// Post-processed documents lose their typed renderers.
		doc = output.Doc{Value: processed}
		if e.Opts.Format == output.FormatText {
			data, err := output.EncodeJSON(doc.Value)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		}
	}
	return output.Emit(os.Stdout, e.Opts.Format, doc)
}

// fail prints a single diagnostic line to stderr and exits non-zero.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "statik: %v\n", err)
	if staterr.CodeOf(err) == staterr.Cancelled {
		os.Exit(130)
	}
	os.Exit(1)
}

func confidenceLabel(c analysis.Confidence) string {
	return string(c)
}
