// =============================================================================
// calyx-opt - Main Entry Point
// =============================================================================
//
// Runs an ordered list of passes over Calyx programs stored as JSON.
//
// THE PIPELINE:
//   1. The program file is checked against the CUE contract and decoded
//   2. Fact tables are built and checked against their own contract
//   3. OPA evaluates the well-formedness rules over the fact tables
//   4. Each pass walks every component's control tree in turn
//   5. The transformed program is re-validated and written out
//
// WHEN A PASS MISBEHAVES:
//   Run with -d to dump the program after every pass, and set
//   output.deltas in the config to see exactly which rows each pass changed.
// =============================================================================

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/robert-at-pretension-io/calyx-opt/internal/config"
	"github.com/robert-at-pretension-io/calyx-opt/internal/ir"
	"github.com/robert-at-pretension-io/calyx-opt/internal/passes"
	"github.com/robert-at-pretension-io/calyx-opt/internal/pipeline"
	"github.com/robert-at-pretension-io/calyx-opt/internal/validator"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit()
	case "-l", "--list", "list":
		listPasses(os.Stdout)
	case "-h", "--help", "help":
		printUsage()
	default:
		if err := runOpt(os.Args[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: calyx-opt [command] [options] <path>

Commands:
  init              Create a calyx_opt.json configuration file
  list              List the registered passes
  <path>            Run passes over a program file or every program in a directory

Options:
  -p, --passes      Comma-separated pass list (overrides the config)
  -c, --config      Specify config file
  -d, --debug       Dump the program after every pass
  -o, --output      Write the transformed program as JSON (a directory when <path> is)
  -h, --help        Show this help message

Configuration:
  calyx-opt looks for configuration in:
    1. ./calyx_opt.json, ./.calyx_opt.json, ./calyx_opt.toml, ./calyx_opt.yaml
    2. the same names in <path>
    3. ~/.config/calyx_opt/config.json

  Run 'calyx-opt init' to create a default configuration file.`)
}

func runInit() {
	configPath := "calyx_opt.json"

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file %s already exists. Overwrite? [y/N]: ", configPath)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - The default pass list")
	fmt.Println("  - Program file patterns")
	fmt.Println("  - Well-formedness rule severities")
}

func listPasses(w io.Writer) {
	for _, name := range passes.Names() {
		info, _ := passes.Lookup(name)
		fmt.Fprintf(w, "%-20s %s\n", name, info.Description)
	}
}

type options struct {
	passes     string
	configPath string
	debug      bool
	output     string
	path       string
}

func parseArgs(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("calyx-opt", flag.ContinueOnError)
	fs.StringVar(&opts.passes, "passes", "", "comma-separated pass list")
	fs.StringVar(&opts.passes, "p", "", "comma-separated pass list (shorthand)")
	fs.StringVar(&opts.configPath, "config", "", "config file")
	fs.StringVar(&opts.configPath, "c", "", "config file (shorthand)")
	fs.BoolVar(&opts.debug, "debug", false, "dump the program after every pass")
	fs.BoolVar(&opts.debug, "d", false, "dump the program after every pass (shorthand)")
	fs.StringVar(&opts.output, "output", "", "write the transformed program as JSON")
	fs.StringVar(&opts.output, "o", "", "write the transformed program as JSON (shorthand)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		return opts, errors.New("expected exactly one program file or directory")
	}
	opts.path = fs.Arg(0)
	return opts, nil
}

func runOpt(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		printUsage()
		return err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if opts.debug {
		cfg.Debug = true
	}

	var cli []string
	if opts.passes != "" {
		cli = strings.Split(opts.passes, ",")
	}
	names, err := cfg.ResolvePasses(cli, func(n string) bool {
		_, ok := passes.Lookup(n)
		return ok
	})
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	inputs, dir, err := resolveInputs(cfg, opts.path)
	if err != nil {
		return err
	}

	var v *validator.Validator
	if cfg.ValidationEnabled() {
		if v, err = validator.New(); err != nil {
			return fmt.Errorf("loading program schema: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := pipeline.New(cfg)
	runner.Logger = logger
	runner.Out = os.Stdout

	for _, path := range inputs {
		logger.Info("running passes", zap.String("program", path), zap.Strings("passes", names))
		prog, err := pipeline.LoadProgram(path, v)
		if err != nil {
			return err
		}
		report, err := runner.Run(ctx, prog, names)
		if report != nil {
			printReport(os.Stderr, path, report)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := writeProgram(prog, opts.output, dir, path); err != nil {
			return err
		}
	}
	return nil
}

func loadConfig(opts options) (*config.Config, error) {
	if opts.configPath != "" {
		cfg, err := config.LoadFile(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", opts.configPath, err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(opts.path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}
	return cfg, nil
}

// resolveInputs returns the program files to process and whether path named
// a directory.
func resolveInputs(cfg *config.Config, path string) ([]string, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, err
	}
	if !info.IsDir() {
		return []string{path}, false, nil
	}
	files, err := cfg.ResolveInputs(path)
	if err != nil {
		return nil, true, err
	}
	if len(files) == 0 {
		return nil, true, fmt.Errorf("no program files found in %s", path)
	}
	return files, true, nil
}

// writeProgram prints prog to stdout, or encodes it as JSON under output.
func writeProgram(prog *ir.Program, output string, dir bool, input string) error {
	if output == "" {
		return ir.Fprint(os.Stdout, prog)
	}
	target := output
	if dir {
		if err := os.MkdirAll(output, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		target = filepath.Join(output, filepath.Base(input))
	}
	data, err := ir.EncodeProgram(prog)
	if err != nil {
		return err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return nil
}

func printReport(w io.Writer, path string, report *pipeline.Report) {
	for _, v := range report.Violations {
		fmt.Fprintf(w, "%s: %s [%s] %s: %s\n", path, v.Severity, v.Rule, v.Component, v.Message)
	}
	for _, p := range report.Passes {
		fmt.Fprintf(w, "%s: pass %-20s %-6s %.2fms\n", path, p.Name, p.Outcome, p.DurationMS)
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
