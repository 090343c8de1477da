package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"hl7bridge/internal/diagnostic"
	"hl7bridge/internal/document"
	"hl7bridge/internal/fault"
	"hl7bridge/internal/hl7"
	"hl7bridge/internal/mapping"
)

// DefaultIndent is used for XML and JSON output unless WithIndent is given.
const DefaultIndent = "  "

// Engine transforms messages under one compiled mapping plan.
type Engine struct {
	plan     *mapping.Plan
	warnings []diagnostic.Diagnostic
	logger   *slog.Logger
	now      func() time.Time
	indent   string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Without it the engine logs text to stderr at
// the configuration's log_level.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the time source used by date_age filters and generated
// headers.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIndent sets the indentation of XML and JSON output. An empty indent
// writes compact output.
func WithIndent(indent string) Option {
	return func(e *Engine) {
		e.indent = indent
	}
}

// New compiles cfg. Every configuration problem is returned together as a
// fault.List.
func New(cfg *mapping.File, opts ...Option) (*Engine, error) {
	plan, diags := mapping.Compile(cfg)
	if err := diags.Err(); err != nil {
		return nil, err
	}

	e := &Engine{
		plan:     plan,
		warnings: diags.Warnings,
		now:      time.Now,
		indent:   DefaultIndent,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = defaultLogger(plan.Policy)
	}

	e.logger.Debug("mapping compiled", "plan", plan.Describe(), "warnings", len(diags.Warnings))

	return e, nil
}

func defaultLogger(p mapping.Policy) *slog.Logger {
	if p.Silent {
		return slog.New(slog.DiscardHandler)
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: p.LogLevel}))
}

// ValidateConfig compiles cfg and returns every configuration error.
func ValidateConfig(cfg *mapping.File) []error {
	_, diags := mapping.Compile(cfg)

	err := diags.Err()
	if err == nil {
		return nil
	}

	var list fault.List
	if errors.As(err, &list) {
		return list.Unwrap()
	}

	return []error{err}
}

// Plan returns the compiled plan.
func (e *Engine) Plan() *mapping.Plan {
	return e.plan
}

// ConfigWarnings returns the non-fatal diagnostics found while compiling.
func (e *Engine) ConfigWarnings() []diagnostic.Diagnostic {
	return e.warnings
}

// Result is the outcome of one transformation.
type Result struct {
	ID        uuid.UUID
	Direction mapping.Direction
	// Document is the assembled tree (forward).
	Document *document.Node
	// Segments are the assembled wire segments (reverse).
	Segments []*hl7.OutSegment
	// Output is the rendered document or wire text.
	Output []byte
	// Warnings are the per-message problems the policy let through.
	Warnings []error
	// Excluded is set when a global filter rejected the message; nothing
	// else is populated then.
	Excluded   bool
	ExcludedBy string
}

// Transform compiles cfg and transforms one message. dir must agree with
// the configuration's input and output formats.
func Transform(raw []byte, cfg *mapping.File, dir mapping.Direction) (*Result, error) {
	e, err := New(cfg)
	if err != nil {
		return nil, err
	}

	if e.plan.Direction != dir {
		return nil, fault.New(fault.ConfigError, "configuration is %s, requested %s", e.plan.Direction, dir)
	}

	return e.Transform(raw)
}

// Transform runs the plan against one raw message.
func (e *Engine) Transform(raw []byte) (*Result, error) {
	id := uuid.New()
	c := &transformContext{
		plan:   e.plan,
		now:    e.now(),
		log:    e.logger.With("message_id", id.String()),
		indent: e.indent,
	}

	res := &Result{ID: id, Direction: e.plan.Direction}

	var err error
	if e.plan.Direction == mapping.Reverse {
		err = c.reverse(raw, res)
	} else {
		err = c.forward(raw, res)
	}

	if err != nil {
		c.log.Error("transform failed", "error", err)
		return nil, err
	}

	res.Warnings = c.warnings

	if res.Excluded {
		c.log.Info("message excluded by filter", "condition", res.ExcludedBy)
	} else {
		c.log.Debug("transform complete", "warnings", len(res.Warnings), "bytes", len(res.Output))
	}

	return res, nil
}

func (e *Engine) String() string {
	return fmt.Sprintf("engine(%s)", e.plan.Describe())
}
