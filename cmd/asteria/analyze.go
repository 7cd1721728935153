package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/asteria-lang/asteria/asteria"
)

type lintWarning struct {
	Function string
	Pos      asteria.Position
	Message  string
}

func analyzeCommand(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	if err := fs.Parse(args); err != nil {
		return err
	}

	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("asteria analyze: script path required")
	}

	scriptPath, err := filepath.Abs(remaining[0])
	if err != nil {
		return fmt.Errorf("resolve script path: %w", err)
	}
	source, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	toks, lexErr := asteria.Lex(source, scriptPath, asteria.LexOptions{})
	if lexErr != nil {
		return fmt.Errorf("analysis failed: %w", lexErr)
	}
	prog, err := asteria.Parse(toks, scriptPath)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	warnings := analyzeProgramWarnings(prog)
	if len(warnings) == 0 {
		fmt.Println("No issues found")
		return nil
	}

	for _, warning := range warnings {
		line := warning.Pos.Line
		if line <= 0 {
			line = 1
		}
		fmt.Printf("%s:%d: %s (%s)\n", scriptPath, line, warning.Message, warning.Function)
	}

	return fmt.Errorf("analysis found %d issue(s)", len(warnings))
}

func analyzeProgramWarnings(prog *asteria.Program) []lintWarning {
	warnings := make([]lintWarning, 0)
	lintStatements("<top-level>", prog.Statements, &warnings)
	for _, s := range prog.Statements {
		if fs, ok := s.(*asteria.FuncStmt); ok {
			lintStatements(fs.Name, fs.Body.Body, &warnings)
		}
	}

	sort.SliceStable(warnings, func(i, j int) bool {
		if warnings[i].Pos.Line != warnings[j].Pos.Line {
			return warnings[i].Pos.Line < warnings[j].Pos.Line
		}
		if warnings[i].Pos.Offset != warnings[j].Pos.Offset {
			return warnings[i].Pos.Offset < warnings[j].Pos.Offset
		}
		return warnings[i].Function < warnings[j].Function
	})

	return warnings
}

// lintStatements flags statements following an unconditional
// return/throw/break/continue as unreachable, grounded on the
// teacher's analyze.go dead-code check, generalized to Asteria's
// control-flow statement set (try/catch, switch, defer).
func lintStatements(function string, statements []asteria.Statement, warnings *[]lintWarning) bool {
	terminated := false
	for _, stmt := range statements {
		if terminated {
			*warnings = append(*warnings, lintWarning{Function: function, Pos: stmt.Pos(), Message: "unreachable statement"})
			continue
		}
		if statementTerminates(function, stmt, warnings) {
			terminated = true
		}
	}
	return terminated
}

func statementTerminates(function string, stmt asteria.Statement, warnings *[]lintWarning) bool {
	switch typed := stmt.(type) {
	case *asteria.ReturnStmt, *asteria.ThrowStmt, *asteria.BreakStmt, *asteria.ContinueStmt:
		return true
	case *asteria.IfStmt:
		thenTerminated := lintSingle(function, typed.Then, warnings)
		if typed.Else == nil {
			return false
		}
		return thenTerminated && lintSingle(function, typed.Else, warnings)
	case *asteria.BlockStmt:
		return lintStatements(function, typed.Body, warnings)
	case *asteria.WhileStmt:
		lintSingle(function, typed.Body, warnings)
		return false
	case *asteria.DoWhileStmt:
		lintSingle(function, typed.Body, warnings)
		return false
	case *asteria.ForStmt:
		lintSingle(function, typed.Body, warnings)
		return false
	case *asteria.ForEachStmt:
		lintSingle(function, typed.Body, warnings)
		return false
	case *asteria.TryStmt:
		lintSingle(function, typed.Try, warnings)
		lintSingle(function, typed.Catch, warnings)
		return false
	case *asteria.SwitchStmt:
		allTerminate := len(typed.Cases) > 0
		for _, c := range typed.Cases {
			if !lintStatements(function, c.Body, warnings) {
				allTerminate = false
			}
		}
		return allTerminate
	default:
		return false
	}
}

func lintSingle(function string, stmt asteria.Statement, warnings *[]lintWarning) bool {
	if stmt == nil {
		return false
	}
	if block, ok := stmt.(*asteria.BlockStmt); ok {
		return lintStatements(function, block.Body, warnings)
	}
	return statementTerminates(function, stmt, warnings)
}
