// elm-module-graph writes the module dependency graph of an Elm application.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/phobologic/elm-module-graph/internal/config"
	"github.com/phobologic/elm-module-graph/internal/discover"
	"github.com/phobologic/elm-module-graph/internal/graph"
	"github.com/phobologic/elm-module-graph/internal/manifest"
	"github.com/phobologic/elm-module-graph/internal/output"
	"github.com/phobologic/elm-module-graph/internal/parse"
	"github.com/phobologic/elm-module-graph/internal/ranking"
	"github.com/phobologic/elm-module-graph/internal/resolve"
	"github.com/phobologic/elm-module-graph/internal/scan"
)

var version = "dev"

// exposedModulesEntry names the seed module when elm.json is the entry point.
const exposedModulesEntry = "exposed-modules"

const (
	parserRegexp     = "regex"
	parserTreeSitter = "tree-sitter"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	output     string
	format     string
	parser     string
	all        bool
	maxModules int
	pkgFilter  string
	configPath string
	elmHome    string
	logLevel   string
	logFormat  string
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("elm-module-graph", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		opts        options
		showVersion bool
	)

	fs.StringVar(&opts.output, "o", "", "file to write to, - for stdout (default: module-graph.json)")
	fs.StringVar(&opts.output, "output", "", "file to write to, - for stdout (default: module-graph.json)")
	fs.StringVar(&opts.format, "format", "", "output format: json, yaml or toon (default: from output extension)")
	fs.StringVar(&opts.parser, "parser", "", "import scanner: regex or tree-sitter (default: regex)")
	fs.BoolVar(&opts.all, "all", false, "with elm.json, also include every module in the source directories")
	fs.IntVar(&opts.maxModules, "n", 0, "keep only the top N modules by rank")
	fs.IntVar(&opts.maxModules, "max-modules", 0, "keep only the top N modules by rank")
	fs.StringVar(&opts.pkgFilter, "package", "", "keep only modules whose package contains this text")
	fs.StringVar(&opts.configPath, "config", config.DefaultPath, "config file path")
	fs.StringVar(&opts.elmHome, "elm-home", "", "Elm home directory (default: $ELM_HOME or ~/.elm)")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&opts.logFormat, "log-format", "", "log format: text or json")
	fs.BoolVar(&showVersion, "V", false, "show version and exit")
	fs.BoolVar(&showVersion, "version", false, "show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: elm-module-graph [flags] <path to .elm file or elm.json>\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}

	if showVersion {
		_, _ = fmt.Fprintf(stdout, "elm-module-graph %s\n", version)
		return nil
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one path to a .elm file or %s", manifest.FileName)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	opts.applyConfig(cfg)

	logger := newLogger(opts.logLevel, opts.logFormat, stderr)

	format, err := opts.outputFormat()
	if err != nil {
		return err
	}

	scanner, err := newScanner(opts.parser)
	if err != nil {
		return err
	}

	entry, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("resolving entry: %w", err)
	}
	if fi, err := os.Stat(entry); err != nil || !fi.Mode().IsRegular() {
		return fmt.Errorf("file not found: %s", entry)
	}

	doc, err := buildGraph(entry, opts, cfg, scanner, logger)
	if err != nil {
		return err
	}

	ranks := graph.Rank(doc.Graph)
	if opts.pkgFilter != "" {
		doc.Graph = ranking.FilterByPackage(doc.Graph, opts.pkgFilter)
	}
	if opts.maxModules > 0 {
		doc.Graph = ranking.SelectModules(doc.Graph, ranks, opts.maxModules)
	}
	doc.Ranks = ranks

	if opts.output == "-" {
		if err := output.Write(stdout, doc, format); err != nil {
			return err
		}
	} else if err := output.WriteFile(opts.output, doc, format); err != nil {
		return err
	}

	stats := graph.Summarize(doc.Graph)
	logger.Info("module graph written",
		"output", opts.output,
		"format", string(format),
		"modules", stats.Modules,
		"edges", stats.Edges,
		"packages", stats.Packages,
	)
	return nil
}

// buildGraph loads the project around entry and walks its imports.
func buildGraph(entry string, opts options, cfg *config.Config, scanner scan.Scanner, logger *slog.Logger) (output.Document, error) {
	elmJSON := entry
	if filepath.Base(entry) != manifest.FileName {
		found, err := manifest.Find(entry)
		if err != nil {
			return output.Document{}, err
		}
		elmJSON = found
	}
	projectDir := filepath.Dir(elmJSON)

	if err := manifest.CheckBuildDir(projectDir); err != nil {
		return output.Document{}, err
	}

	m, err := manifest.Load(elmJSON)
	if err != nil {
		return output.Document{}, err
	}
	if m.Kind != manifest.Application {
		return output.Document{}, manifest.ErrNotApplication
	}

	cache := manifest.Cache{
		Home:            manifest.DefaultHome(),
		CompilerVersion: manifest.CompilerVersionFor(m),
	}
	if opts.elmHome != "" {
		cache.Home = manifest.ExpandHome(opts.elmHome)
	}
	if cfg.ElmVersion != "" {
		cache.CompilerVersion = cfg.ElmVersion
	}

	reg, project, err := manifest.LoadRegistry(projectDir, m, cache, logger)
	if err != nil {
		return output.Document{}, err
	}

	seed, err := newSeed(entry, elmJSON, project, m, opts.all, scanner)
	if err != nil {
		return output.Document{}, err
	}
	if opts.all {
		info, err := reg.Lookup(project)
		if err != nil {
			return output.Document{}, err
		}
		modules, err := discover.Modules(projectDir, info.SourceDirs)
		if err != nil {
			return output.Document{}, fmt.Errorf("discovering modules: %w", err)
		}
		seed.Imports = append(seed.Imports, modules...)
	}

	b := &graph.Builder{
		Resolver: resolve.New(reg, resolve.WithLogger(logger)),
		Scanner:  scanner,
		Logger:   logger,
	}
	g, err := b.Build(seed)
	if err != nil {
		return output.Document{}, err
	}
	return output.Document{Project: project, Graph: g}, nil
}

// newSeed derives the traversal seed from the entry point: the exposed
// modules of elm.json, or the imports of an entry source file.
func newSeed(entry, elmJSON, project string, m *manifest.Manifest, all bool, scanner scan.Scanner) (graph.Seed, error) {
	if entry == elmJSON {
		return graph.Seed{
			Package: project,
			Module:  exposedModulesEntry,
			Imports: append([]string(nil), m.ExposedModules...),
		}, nil
	}
	if all {
		return graph.Seed{}, errors.New("--all requires elm.json as the entry")
	}

	source, err := os.ReadFile(entry)
	if err != nil {
		return graph.Seed{}, err
	}
	return graph.Seed{
		Package: project,
		Module:  scan.ModuleNameOrDefault(scanner, source),
		Imports: scanner.Imports(source),
	}, nil
}

func newScanner(name string) (scan.Scanner, error) {
	switch name {
	case "", parserRegexp:
		return scan.Regexp{}, nil
	case parserTreeSitter:
		return parse.NewTreeSitter()
	default:
		return nil, fmt.Errorf("unsupported parser %q", name)
	}
}

// applyConfig fills options not set on the command line from cfg.
func (o *options) applyConfig(cfg *config.Config) {
	if o.output == "" {
		o.output = cfg.Output
	}
	if o.output == "" {
		o.output = output.DefaultPath
	}
	if o.format == "" {
		o.format = cfg.Format
	}
	if o.parser == "" {
		o.parser = cfg.Parser
	}
	if o.elmHome == "" {
		o.elmHome = cfg.ElmHome
	}
	if o.logLevel == "" {
		o.logLevel = cfg.LogLevel
	}
	if o.logFormat == "" {
		o.logFormat = cfg.LogFormat
	}
}

func (o *options) outputFormat() (output.Format, error) {
	if o.format != "" {
		return output.ParseFormat(o.format)
	}
	return output.FormatForPath(o.output), nil
}

// flagsWithValue lists flags that take a value argument.
var flagsWithValue = map[string]bool{
	"-o": true, "--o": true,
	"-output": true, "--output": true,
	"-format": true, "--format": true,
	"-parser": true, "--parser": true,
	"-n": true, "--n": true,
	"-max-modules": true, "--max-modules": true,
	"-package": true, "--package": true,
	"-config": true, "--config": true,
	"-elm-home": true, "--elm-home": true,
	"-log-level": true, "--log-level": true,
	"-log-format": true, "--log-format": true,
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// can parse them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(args[i]) > 0 && args[i][0] == '-' && args[i] != "-" {
			flags = append(flags, args[i])
			if flagsWithValue[args[i]] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
