package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/asteria-lang/asteria/asteria"
)

func main() {
	if err := runCLI(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCLI(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	switch args[1] {
	case "run":
		return runCommand(args[2:])
	case "repl":
		return replCommand(args[2:])
	case "fmt":
		return fmtCommand(args[2:])
	case "lsp":
		return lspCommand(args[2:])
	case "analyze":
		return analyzeCommand(args[2:])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError()
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	configPath := fs.String("config", "", "path to a TOML config file (step_quota, memory_quota_bytes, ...)")
	checkOnly := fs.Bool("check", false, "only lex and parse the script without executing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("asteria run: script path required")
	}
	scriptPath := remaining[0]
	absScriptPath, err := filepath.Abs(scriptPath)
	if err != nil {
		return fmt.Errorf("resolve script path: %w", err)
	}
	source, err := os.ReadFile(absScriptPath)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	cfg := asteria.Config{}
	if *configPath != "" {
		cfg, err = asteria.LoadConfigFile(*configPath)
		if err != nil {
			return err
		}
	}
	engine, err := asteria.NewEngine(cfg)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	if *checkOnly {
		if _, err := asteria.Lex(source, absScriptPath, asteria.LexOptions{}); err != nil {
			return fmt.Errorf("lex failed: %w", err)
		}
		return nil
	}

	result, err := engine.Run(absScriptPath, source)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	if !result.IsNull() {
		fmt.Println(result.String())
	}
	return nil
}

func usageError() error {
	printUsage()
	return errors.New("invalid command")
}

func printUsage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags] [args...]\n", prog)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run [-config file] [-check] <script>   run an Asteria script")
	fmt.Fprintln(os.Stderr, "  repl                                    interactive REPL")
	fmt.Fprintln(os.Stderr, "  fmt <script>                            print a canonically formatted script")
	fmt.Fprintln(os.Stderr, "  lsp                                     run a Language Server Protocol server over stdio")
	fmt.Fprintln(os.Stderr, "  analyze <script>                        report lexical/syntactic diagnostics")
}

type flagErrorSink struct{}

func (flagErrorSink) Write(p []byte) (int, error) {
	return len(p), nil
}
