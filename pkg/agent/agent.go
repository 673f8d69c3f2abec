// Package agent drives the bounded reasoning loop: prompt the model, pull
// tool calls out of its free text, run them, feed the results back, and stop
// at a plain-text answer or after MaxSteps.
//
// Run never returns an error. Tool and model failures are logged and the
// loop carries on; the worst case is the DepthExceeded sentinel.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wilhg/relay/internal/logging"
	"github.com/wilhg/relay/pkg/adapters/llm"
	"github.com/wilhg/relay/pkg/catalog"
	"github.com/wilhg/relay/pkg/errmodel"
	"github.com/wilhg/relay/pkg/mcpclient"
	"github.com/wilhg/relay/pkg/prompt"
	"github.com/wilhg/relay/pkg/tokens"
	"github.com/wilhg/relay/pkg/toolcall"
)

// DepthExceeded is returned as the answer when the step budget runs out.
const DepthExceeded = "REACHED MAXIMUM REASONING DEPTH"

const (
	DefaultMaxSteps    = 5
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.3
)

// DefaultStop ends a completion before the model writes the next user turn.
var DefaultStop = []string{"User:", "\n\nUser:"}

// ToolSource lists the tools available for a run. *catalog.Catalog
// implements it.
type ToolSource interface {
	Sync(ctx context.Context) ([]mcpclient.ToolDescriptor, error)
}

// Invoker runs one tool call. *dispatch.Dispatcher implements it.
type Invoker interface {
	Invoke(ctx context.Context, name string, params map[string]any) (string, error)
}

// schemaSetter is implemented by invokers that validate parameters against
// the synced catalog.
type schemaSetter interface {
	SetSchemas(map[string][]byte)
}

// Result is the outcome of one run.
type Result struct {
	Text          string
	Steps         int
	DepthExceeded bool
	RunID         string
}

// Controller owns the loop configuration. A Controller may serve many runs
// but each Run is independent.
type Controller struct {
	model   llm.LLM
	tools   ToolSource
	invoker Invoker

	logger         *slog.Logger
	maxSteps       int
	maxTokens      int
	temperature    float64
	stop           []string
	failureMarkers bool
	observer       Observer
	preamble       prompt.Preamble
	budget         *tokens.Budget
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMaxSteps(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

func WithMaxTokens(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

func WithTemperature(t float64) Option {
	return func(c *Controller) { c.temperature = t }
}

func WithStop(stop ...string) Option {
	return func(c *Controller) { c.stop = append([]string(nil), stop...) }
}

// WithFailureMarkers controls whether a failed tool call leaves a
// "Tool '<name>' failed: ..." line in the transcript. On by default; with it
// off a failed call leaves no trace for the model.
func WithFailureMarkers(on bool) Option {
	return func(c *Controller) { c.failureMarkers = on }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

func WithPreamble(p prompt.Preamble) Option {
	return func(c *Controller) {
		if strings.TrimSpace(p.Body) != "" {
			c.preamble = p
		}
	}
}

// WithContextWindow warns when the prompt plus max tokens is estimated to
// exceed window. The transcript is never trimmed. A nil estimator uses
// tokens.Approx.
func WithContextWindow(window int, est tokens.Estimator) Option {
	return func(c *Controller) {
		if window > 0 {
			c.budget = &tokens.Budget{Window: window, Estimate: est}
		}
	}
}

func New(model llm.LLM, tools ToolSource, invoker Invoker, opts ...Option) *Controller {
	c := &Controller{
		model:          model,
		tools:          tools,
		invoker:        invoker,
		logger:         logging.NewNop(),
		maxSteps:       DefaultMaxSteps,
		maxTokens:      DefaultMaxTokens,
		temperature:    DefaultTemperature,
		stop:           append([]string(nil), DefaultStop...),
		failureMarkers: true,
		preamble:       prompt.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// run carries the per-invocation state of Run.
type run struct {
	id     string
	logger *slog.Logger
	loop   LoopState
	tr     *Transcript
	warned bool
}

// Run answers message, chaining tool calls as the model requests them.
func (c *Controller) Run(ctx context.Context, message string) Result {
	r := &run{id: uuid.NewString(), loop: LoopState{MaxSteps: c.maxSteps, State: Building}}
	r.logger = c.logger.With("run_id", r.id)

	ctx, span := otel.Tracer("relay/agent").Start(ctx, "agent.Run", trace.WithAttributes(
		attribute.String("run.id", r.id),
		attribute.Int("agent.max_steps", c.maxSteps),
	))
	defer span.End()

	r.tr = NewTranscript(c.buildPrompt(ctx, r, message))

	for r.loop.Step < r.loop.MaxSteps {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("run cancelled", "step", r.loop.Step, "err", err)
			break
		}
		answer, done := c.step(ctx, r)
		r.loop.Step++
		stepsTotal.Inc()
		if done {
			c.setState(r, Done)
			r.loop.Terminated = true
			span.SetAttributes(attribute.Int("agent.steps", r.loop.Step), attribute.Bool("agent.depth_exceeded", false))
			runsTotal.WithLabelValues("answered").Inc()
			c.emit(r, Event{Type: EventFinal, Text: answer})
			return Result{Text: answer, Steps: r.loop.Step, RunID: r.id}
		}
	}

	c.setState(r, Done)
	r.loop.Terminated = true
	span.SetAttributes(attribute.Int("agent.steps", r.loop.Step), attribute.Bool("agent.depth_exceeded", true))
	runsTotal.WithLabelValues("depth_exceeded").Inc()
	r.logger.Warn("reasoning depth exceeded", "steps", r.loop.Step)
	c.emit(r, Event{Type: EventDepthExceeded, Text: DepthExceeded})
	return Result{Text: DepthExceeded, Steps: r.loop.Step, DepthExceeded: true, RunID: r.id}
}

// buildPrompt syncs the catalog once and renders the opening prompt. A
// failed sync leaves the model with an empty tool list.
func (c *Controller) buildPrompt(ctx context.Context, r *run, message string) string {
	tools, err := c.tools.Sync(ctx)
	if err != nil {
		r.logger.Error("tool catalog sync failed; continuing without tools", "err", err)
		tools = nil
	}
	r.logger.Info("run started", "tools", len(tools), "max_steps", c.maxSteps)
	if s, ok := c.invoker.(schemaSetter); ok {
		s.SetSchemas(catalog.Schemas(tools))
	}

	data := prompt.Data{Tools: catalog.Render(tools), Message: message}
	text, err := c.preamble.Render(data)
	if err != nil {
		r.logger.Error("preamble render failed; using default", "preamble", c.preamble.Name, "err", err)
		text, _ = prompt.Default().Render(data)
	}
	return text
}

// step runs one infer-parse-dispatch cycle. done reports a final answer.
func (c *Controller) step(ctx context.Context, r *run) (answer string, done bool) {
	n := r.loop.Step + 1
	ctx, span := otel.Tracer("relay/agent").Start(ctx, "agent.step", trace.WithAttributes(attribute.Int("agent.step", n)))
	defer span.End()

	c.setState(r, Inferring)
	c.checkBudget(r)
	start := time.Now()
	res, err := c.model.Generate(ctx, []llm.Message{{Role: "user", Content: r.tr.String()}}, map[string]any{
		llm.OptMaxTokens:   c.maxTokens,
		llm.OptTemperature: c.temperature,
		llm.OptStop:        c.stop,
	})
	if err != nil {
		err = errmodel.Model("inference_failed", err.Error(), map[string]any{"step": n}, err)
		span.RecordError(err)
		r.logger.Error("model inference failed", "step", n, "err", err)
		c.emit(r, Event{Type: EventModelError, Step: n, Err: err})
		return "", false
	}
	output := strings.TrimSpace(res.Text)
	r.logger.Debug("model output", "step", n, "chars", len(output), "took", time.Since(start))
	c.emit(r, Event{Type: EventModelOutput, Step: n, Text: output})
	r.tr.Append("\n" + output + "\n")

	c.setState(r, Parsing)
	calls := toolcall.ExtractAll(output)
	span.SetAttributes(attribute.Int("agent.tool_calls", len(calls)))
	if len(calls) == 0 {
		return output, true
	}

	// A turn whose JSON objects are all non-calls is a final answer.
	c.setState(r, Dispatching)
	dispatched := false
	for _, call := range calls {
		if c.dispatch(ctx, r, n, call) {
			dispatched = true
		}
	}
	if !dispatched {
		return output, true
	}
	return "", false
}

// dispatch reports whether call was well-formed and sent to the invoker.
func (c *Controller) dispatch(ctx context.Context, r *run, n int, call toolcall.Call) bool {
	if err := call.Validate(); err != nil {
		parseSkippedTotal.WithLabelValues("incomplete").Inc()
		r.logger.Warn("skipping tool call", "step", n, "err", err)
		c.emit(r, Event{Type: EventSkippedCall, Step: n, Tool: call.Tool, Err: err})
		return false
	}
	c.emit(r, Event{Type: EventToolCall, Step: n, Tool: call.Tool, Params: call.Parameters})
	r.logger.Info("calling tool", "step", n, "tool", call.Tool)

	out, err := c.invoker.Invoke(ctx, call.Tool, call.Parameters)
	if err != nil {
		r.logger.Error("tool call failed", "step", n, "tool", call.Tool, "err", err)
		c.emit(r, Event{Type: EventToolError, Step: n, Tool: call.Tool, Err: err})
		if c.failureMarkers {
			r.tr.Append(fmt.Sprintf("Tool '%s' failed: %s\nAssistant:", call.Tool, failureText(err)))
		}
		return true
	}
	c.emit(r, Event{Type: EventToolResult, Step: n, Tool: call.Tool, Text: out})
	r.tr.Append(fmt.Sprintf("Tool '%s' returned: %s\nAssistant:", call.Tool, out))
	return true
}

// failureText prefers the compact message of a categorized error.
func failureText(err error) string {
	var ce *errmodel.Error
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return err.Error()
}

func (c *Controller) checkBudget(r *run) {
	if c.budget == nil || r.warned {
		return
	}
	used, fits := c.budget.Check(r.tr.String(), c.maxTokens)
	if !fits {
		r.warned = true
		r.logger.Warn("prompt may exceed the model context window",
			"estimated_tokens", used, "max_tokens", c.maxTokens, "window", c.budget.Window)
	}
}

func (c *Controller) setState(r *run, s State) {
	r.loop.State = s
	r.logger.Debug("state", "step", r.loop.Step, "state", s.String())
}

func (c *Controller) emit(r *run, e Event) {
	if c.observer == nil {
		return
	}
	e.RunID = r.id
	e.Timestamp = time.Now()
	c.observer(e)
}
