package asteria

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config controls interpreter execution bounds, grounded on the
// teacher's Engine/Config defaulting pattern.
type Config struct {
	StepQuota        int    `toml:"step_quota"`
	MemoryQuotaBytes int    `toml:"memory_quota_bytes"`
	RecursionLimit   int    `toml:"recursion_limit"`
	GCThresholdYoung int    `toml:"gc_threshold_young"`
	GCThresholdMid   int    `toml:"gc_threshold_mid"`
	GCThresholdOld   int    `toml:"gc_threshold_old"`
	SourceName       string `toml:"-"`
}

func (c *Config) setDefaults() {
	if c.StepQuota <= 0 {
		c.StepQuota = 500000
	}
	if c.MemoryQuotaBytes <= 0 {
		c.MemoryQuotaBytes = 64 * 1024 * 1024
	}
	if c.RecursionLimit <= 0 {
		c.RecursionLimit = 256
	}
	if c.GCThresholdYoung <= 0 {
		c.GCThresholdYoung = 10
	}
	if c.GCThresholdMid <= 0 {
		c.GCThresholdMid = 70
	}
	if c.GCThresholdOld <= 0 {
		c.GCThresholdOld = 500
	}
}

// LoadConfigFile reads a Config from a TOML file, applying defaults for
// any zero-valued fields it leaves unset.
func LoadConfigFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.setDefaults()
	return cfg, nil
}

// Engine ties the lexer, parser, garbage collector, and executor
// together behind a single entry point, mirroring the teacher's
// NewEngine/Engine.Run pattern.
type Engine struct {
	config  Config
	gc      *GarbageCollector
	globals *Env
}

// NewEngine constructs an Engine with sane defaults, a fresh garbage
// collector sized from cfg, and a root environment carrying the
// standard library bindings.
func NewEngine(cfg Config) (*Engine, error) {
	cfg.setDefaults()

	gc := NewGarbageCollector()
	gc.SetThreshold(GenYoungest, cfg.GCThresholdYoung)
	gc.SetThreshold(GenMiddle, cfg.GCThresholdMid)
	gc.SetThreshold(GenOldest, cfg.GCThresholdOld)

	root := newEnv(nil, gc)
	eng := &Engine{config: cfg, gc: gc, globals: root}
	registerStdlib(eng)
	return eng, nil
}

// Config returns the Engine's effective configuration.
func (e *Engine) Config() Config { return e.config }

// GC exposes the Engine's garbage collector, e.g. for host-driven
// Collect/Finalize calls between script runs.
func (e *Engine) GC() *GarbageCollector { return e.gc }

// Bind installs a host value under name in the Engine's global scope,
// visible to every script Run on this Engine.
func (e *Engine) Bind(name string, v Value) {
	e.globals.Declare(name, true, v)
}

// Globals snapshots the Engine's top-level variable bindings by name,
// for host tooling (REPL variable panels, LSP hover) that wants to
// inspect script state between Run calls.
func (e *Engine) Globals() map[string]Value {
	out := make(map[string]Value, len(e.globals.Names()))
	for name, cell := range e.globals.Names() {
		out[name] = cell.Get()
	}
	return out
}

// Reset discards the Engine's global scope, dropping every binding a
// prior Run call installed (used by the REPL's :reset command).
func (e *Engine) Reset() {
	e.globals.Close()
	e.globals = newEnv(nil, e.gc)
	registerStdlib(e)
}

// Run lexes, parses, and executes source under filename, returning the
// value of its trailing expression statement, if any.
func (e *Engine) Run(filename string, source []byte) (Value, error) {
	toks, perr := Lex(source, filename, LexOptions{})
	if perr != nil {
		return Value{}, perr
	}
	prog, err := Parse(toks, filename)
	if err != nil {
		return Value{}, err
	}
	exec := NewExecutionIn(e.gc, e.globals, e.config.StepQuota, e.config.MemoryQuotaBytes, e.config.RecursionLimit)
	return exec.Run(prog)
}
