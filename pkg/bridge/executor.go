// Package bridge runs AppleScript against other applications through
// osascript. The OS call blocks until the target answers, so scripts run on
// dedicated worker goroutines and callers wait on a result channel.
package bridge

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/tabsweep/pkg/logging"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("bridge")
	if err != nil {
		debugLog.Warnf("Failed to initialize bridge logger, using stderr fallback: %v", err)
	}
}

// Executor runs one script against one application.
type Executor interface {
	// Execute returns the script's text output, or an *Error.
	// target names the application for error attribution only.
	Execute(ctx context.Context, script, target string) (string, error)
}

// Runner invokes the scripting host. It returns stdout, stderr and the
// process error.
type Runner func(ctx context.Context, script string) (stdout, stderr []byte, err error)

// RunOSAScript feeds script to osascript on stdin.
func RunOSAScript(ctx context.Context, script string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, "osascript", "-")
	cmd.Stdin = strings.NewReader(script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Result is delivered once per ExecuteAsync call.
type Result struct {
	Output string
	Err    error
}

type job struct {
	ctx    context.Context
	script string
	target string
	result chan Result
}

// DefaultWorkers is the number of scripts allowed in flight at once.
const DefaultWorkers = 1

// OSAScript is an Executor backed by a pool of worker goroutines.
type OSAScript struct {
	run       Runner
	jobs      chan job
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures an OSAScript executor.
type Option func(*osaOptions)

type osaOptions struct {
	runner  Runner
	workers int
}

// WithRunner replaces the osascript invocation, mainly for tests.
func WithRunner(r Runner) Option {
	return func(o *osaOptions) { o.runner = r }
}

// WithWorkers sets the worker count. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(o *osaOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// NewOSAScript starts the worker pool. Call Close to stop it.
func NewOSAScript(opts ...Option) *OSAScript {
	o := osaOptions{runner: RunOSAScript, workers: DefaultWorkers}
	for _, opt := range opts {
		opt(&o)
	}

	e := &OSAScript{
		run:  o.runner,
		jobs: make(chan job),
		done: make(chan struct{}),
	}
	for i := 0; i < o.workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	return e
}

func (e *OSAScript) worker() {
	defer e.wg.Done()
	for {
		select {
		case j := <-e.jobs:
			j.result <- e.runJob(j)
		case <-e.done:
			return
		}
	}
}

func (e *OSAScript) runJob(j job) Result {
	start := time.Now()
	stdout, stderr, err := e.run(j.ctx, j.script)
	elapsed := time.Since(start)

	if err != nil {
		if ctxErr := j.ctx.Err(); ctxErr != nil {
			return Result{Err: ctxErr}
		}
		berr := ClassifyOutput(j.target, string(stderr), err)
		debugLog.Warnf("script for %s failed after %s: kind=%s code=%d msg=%s", j.target, elapsed, berr.Kind, berr.Code, berr.Message)
		return Result{Err: berr}
	}

	debugLog.Debugf("script for %s completed in %s (%d bytes)", j.target, elapsed, len(stdout))
	return Result{Output: strings.TrimSuffix(string(stdout), "\n")}
}

// ExecuteAsync queues script and returns a channel that receives exactly one
// Result. The channel is buffered, so callers may abandon it.
func (e *OSAScript) ExecuteAsync(ctx context.Context, script, target string) <-chan Result {
	result := make(chan Result, 1)
	select {
	case e.jobs <- job{ctx: ctx, script: script, target: target, result: result}:
	case <-ctx.Done():
		result <- Result{Err: ctx.Err()}
	case <-e.done:
		result <- Result{Err: ErrClosed}
	}
	return result
}

// Execute queues script and waits for its result or for ctx to end.
func (e *OSAScript) Execute(ctx context.Context, script, target string) (string, error) {
	select {
	case r := <-e.ExecuteAsync(ctx, script, target):
		return r.Output, r.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops the workers after their current script. Safe to call more
// than once.
func (e *OSAScript) Close() error {
	e.closeOnce.Do(func() {
		close(e.done)
	})
	e.wg.Wait()
	return nil
}
