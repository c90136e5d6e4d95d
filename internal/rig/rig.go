// Package rig drives an interactive program inside a pseudo-terminal: it
// spawns the program, injects keystrokes and waits for literal substrings of
// the accumulated output, each wait bounded by its own timeout.
//
// All output handling happens on a single-threaded event loop owned by the
// Rig. The reader goroutine submits every chunk to the loop, where it is
// appended to the output buffer and matched against the pending waits.
// Callers block in WaitForOutput on a promise settled by the loop.
package rig

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/creack/pty"
	"github.com/google/uuid"
	"github.com/hinshun/vt10x"
	"github.com/joeycumines/go-eventloop"
)

// shutdownTimeout bounds how long Cleanup waits for the event loop to drain.
const shutdownTimeout = 5 * time.Second

// Rig owns at most one child process running in a PTY.
type Rig struct {
	cfg    *rigConfig
	logger *slog.Logger
	id     string

	// mu guards the lifecycle fields below, and the loop-confined fields
	// whenever no loop is running.
	mu       sync.Mutex
	proc     *process
	loop     *eventloop.Loop
	js       *eventloop.JS
	loopDone chan struct{}

	// Confined to the loop goroutine while a loop runs.
	buffer  strings.Builder
	screen  vt10x.Terminal
	pending []*pendingWait
}

// process is the live child process handle.
type process struct {
	cmd      *exec.Cmd
	ptm      *os.File
	readDone chan struct{}
	exited   chan struct{}
	status   ExitStatus
}

// pendingWait is a registered WaitForOutput call.
type pendingWait struct {
	substring string
	timeout   time.Duration
	started   time.Time
	resolve   eventloop.ResolveFunc
	reject    eventloop.RejectFunc
}

// New creates a Rig. WithCommand is required.
func New(options ...Option) (*Rig, error) {
	cfg := defaultConfig()

	for _, opt := range options {
		if err := opt.applyOption(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if cfg.command == "" {
		return nil, fmt.Errorf("WithCommand is required")
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	id := uuid.NewString()

	return &Rig{
		cfg:    cfg,
		id:     id,
		logger: cfg.logger.With(slog.String("rig", id)),
		screen: vt10x.New(vt10x.WithSize(cfg.cols, cfg.rows), vt10x.WithWriter(io.Discard)),
	}, nil
}

// ID returns the identifier attached to every log record of this Rig.
func (r *Rig) ID() string {
	return r.id
}

// Spawn launches the configured program in a PTY and subscribes to its
// output and exit. It returns as soon as the subscriptions are attached,
// without waiting for the program to become ready.
func (r *Rig) Spawn() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.proc != nil {
		return ErrAlreadySpawned
	}

	loop, err := eventloop.New()
	if err != nil {
		return fmt.Errorf("failed to create event loop: %w", err)
	}
	js, err := eventloop.NewJS(loop, eventloop.WithUnhandledRejection(func(reason any) {
		r.logger.Debug("wait rejected", slog.Any("reason", reason))
	}))
	if err != nil {
		_ = loop.Close()
		return fmt.Errorf("failed to create event loop timers: %w", err)
	}

	cmd := exec.Command(r.cfg.command, r.cfg.args...)
	cmd.Env = r.cfg.environ()
	cmd.Dir = r.cfg.dir

	ptm, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(r.cfg.rows), Cols: uint16(r.cfg.cols)})
	if err != nil {
		_ = loop.Close()
		return fmt.Errorf("failed to start %s with pty: %w", r.cfg.command, err)
	}

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := loop.Run(context.Background()); err != nil && !errors.Is(err, eventloop.ErrLoopTerminated) {
			r.logger.Error("event loop stopped", slog.Any("error", err))
		}
	}()

	p := &process{
		cmd:      cmd,
		ptm:      ptm,
		readDone: make(chan struct{}),
		exited:   make(chan struct{}),
	}

	r.proc = p
	r.loop = loop
	r.js = js
	r.loopDone = loopDone

	go r.readOutput(loop, p)
	go r.awaitExit(loop, p)

	r.logger.Debug("spawned", slog.String("command", r.cfg.command), slog.Any("args", r.cfg.args), slog.Int("pid", cmd.Process.Pid))

	return nil
}

// PressKey writes a key to the child's input. KeyEscape is sent as the
// escape byte; any other value is written verbatim.
func (r *Rig) PressKey(key string) error {
	return r.write(Sequence(key))
}

// TypeText presses each rune of text as a separate key.
func (r *Rig) TypeText(text string) error {
	for _, c := range text {
		if err := r.PressKey(string(c)); err != nil {
			return err
		}
	}
	return nil
}

// ClearInput sends the line-kill control character (Ctrl+U).
func (r *Rig) ClearInput() error {
	return r.write(ClearLine)
}

func (r *Rig) write(s string) error {
	r.mu.Lock()
	p := r.proc
	r.mu.Unlock()

	if p == nil {
		return ErrNotSpawned
	}
	if _, err := p.ptm.WriteString(s); err != nil {
		return fmt.Errorf("failed to write input: %w", err)
	}
	return nil
}

// WaitForOutput waits until the accumulated output contains substring, and
// returns the output at that moment. A non-positive timeout selects the
// default. On timeout the returned error is a *TimeoutError and the string
// is the output so far.
func (r *Rig) WaitForOutput(ctx context.Context, substring string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = r.cfg.defaultTimeout
	}

	r.mu.Lock()
	loop, js, loopDone := r.loop, r.js, r.loopDone
	if loop == nil {
		out := r.buffer.String()
		r.mu.Unlock()
		if strings.Contains(out, substring) {
			return out, nil
		}
		return out, ErrNotSpawned
	}
	r.mu.Unlock()

	promise, resolve, reject := js.NewChainedPromise()
	w := &pendingWait{
		substring: substring,
		timeout:   timeout,
		started:   time.Now(),
		resolve:   resolve,
		reject:    reject,
	}

	if err := loop.Submit(func() { r.register(js, w) }); err != nil {
		return r.Output(), ErrNotSpawned
	}

	settled := promise.ToChannel()
	select {
	case result := <-settled:
		return r.settle(promise, result)
	case <-ctx.Done():
		_ = loop.Submit(func() { r.withdraw(w, ctx.Err()) })
		return r.Output(), ctx.Err()
	case <-loopDone:
		select {
		case result := <-settled:
			return r.settle(promise, result)
		default:
			return r.Output(), ErrCleanedUp
		}
	}
}

func (r *Rig) settle(promise *eventloop.ChainedPromise, result any) (string, error) {
	if promise.State() == eventloop.Rejected {
		err, ok := result.(error)
		if !ok {
			err = fmt.Errorf("wait rejected: %v", result)
		}
		return r.Output(), err
	}
	out, _ := result.(string)
	return out, nil
}

// register runs on the loop. A substring already present resolves at once,
// without a timer.
func (r *Rig) register(js *eventloop.JS, w *pendingWait) {
	out := r.buffer.String()
	if strings.Contains(out, w.substring) {
		w.resolve(out)
		return
	}

	// Timers are never cancelled: JS.ClearTimeout blocks on the loop itself.
	// A timer firing for a wait that already settled finds nothing to remove.
	if _, err := js.SetTimeout(func() { r.expire(w) }, int(w.timeout/time.Millisecond)); err != nil {
		w.reject(fmt.Errorf("failed to schedule timeout: %w", err))
		return
	}
	r.pending = append(r.pending, w)
}

// expire runs on the loop when a wait's timer fires.
func (r *Rig) expire(w *pendingWait) {
	if !r.remove(w) {
		return
	}
	w.reject(&TimeoutError{
		Substring: w.substring,
		Timeout:   w.timeout,
		Elapsed:   time.Since(w.started),
		OutputLen: r.buffer.Len(),
	})
}

// withdraw runs on the loop when the caller gave up on a wait.
func (r *Rig) withdraw(w *pendingWait, reason error) {
	if !r.remove(w) {
		return
	}
	w.reject(reason)
}

func (r *Rig) remove(w *pendingWait) bool {
	for i, p := range r.pending {
		if p == w {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			return true
		}
	}
	return false
}

// onData runs on the loop for every chunk read from the child.
func (r *Rig) onData(chunk string) {
	r.buffer.WriteString(chunk)
	_, _ = r.screen.Write([]byte(chunk))

	if r.cfg.debugOutput {
		r.logger.Info("cli output", slog.String("data", chunk))
	}

	if len(r.pending) == 0 {
		return
	}

	out := r.buffer.String()
	kept := r.pending[:0]
	for _, w := range r.pending {
		if strings.Contains(out, w.substring) {
			w.resolve(out)
			continue
		}
		kept = append(kept, w)
	}
	clear(r.pending[len(kept):])
	r.pending = kept
}

// onExit runs on the loop once the child has been reaped.
func (r *Rig) onExit(status ExitStatus) {
	if status.Abnormal() {
		r.logger.Error("cli process exited", slog.Int("code", status.Code), slog.String("signal", status.Signal))
		return
	}
	r.logger.Debug("cli process exited", slog.Int("code", status.Code))
}

// abandon runs on the loop during Cleanup and fails every pending wait.
func (r *Rig) abandon() {
	for _, w := range r.pending {
		w.reject(ErrCleanedUp)
	}
	clear(r.pending)
	r.pending = r.pending[:0]
}

// readOutput continuously reads output from the PTY master and hands each
// chunk to the loop, in read order.
func (r *Rig) readOutput(loop *eventloop.Loop, p *process) {
	defer close(p.readDone)

	buf := make([]byte, 4096)
	for {
		n, err := p.ptm.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			if submitErr := loop.Submit(func() { r.onData(chunk) }); submitErr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// awaitExit reaps the child and reports how it terminated.
func (r *Rig) awaitExit(loop *eventloop.Loop, p *process) {
	defer close(p.exited)

	err := p.cmd.Wait()
	status := ExitStatus{}
	if state := p.cmd.ProcessState; state != nil {
		status.Code = state.ExitCode()
		if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			status.Signal = ws.Signal().String()
		}
	} else if err != nil {
		status.Code = -1
	}
	p.status = status

	_ = loop.Submit(func() { r.onExit(status) })
}

// WaitForExit blocks until the live child exits and returns its exit code.
func (r *Rig) WaitForExit(ctx context.Context) (int, error) {
	r.mu.Lock()
	p := r.proc
	r.mu.Unlock()

	if p == nil {
		return 0, ErrNotSpawned
	}

	select {
	case <-p.exited:
		return p.status.Code, nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// Cleanup kills the child process, if any, and releases the PTY and event
// loop. Waits still pending fail with ErrCleanedUp. Calling Cleanup again is
// a no-op.
func (r *Rig) Cleanup() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.proc
	if p == nil {
		return nil
	}
	r.proc = nil

	var errs []error

	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		errs = append(errs, fmt.Errorf("failed to kill command: %w", err))
	}
	<-p.exited

	if err := p.ptm.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close ptm: %w", err))
	}
	select {
	case <-p.readDone:
	case <-time.After(time.Second):
		r.logger.Warn("output reader did not stop after close")
	}

	loop := r.loop
	_ = loop.Submit(r.abandon)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := loop.Shutdown(ctx); err != nil && !errors.Is(err, eventloop.ErrLoopTerminated) {
		errs = append(errs, fmt.Errorf("failed to shut down event loop: %w", err))
		_ = loop.Close()
	}
	select {
	case <-r.loopDone:
		// the loop is gone; settle anything it could not reach
		for _, w := range r.pending {
			w.reject(ErrCleanedUp)
		}
		r.pending = nil
	case <-time.After(shutdownTimeout):
		errs = append(errs, fmt.Errorf("event loop did not stop within %v", shutdownTimeout))
	}

	r.loop = nil
	r.js = nil
	r.loopDone = nil

	r.logger.Debug("cleaned up", slog.String("exit", p.status.String()))

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %w", errors.Join(errs...))
	}
	return nil
}

// inspect runs fn against the loop-confined state, on the loop when one is
// running.
func (r *Rig) inspect(fn func()) {
	r.mu.Lock()
	loop, loopDone := r.loop, r.loopDone
	if loop == nil {
		defer r.mu.Unlock()
		fn()
		return
	}
	r.mu.Unlock()

	done := make(chan struct{})
	if err := loop.Submit(func() { defer close(done); fn() }); err == nil {
		select {
		case <-done:
			return
		case <-loopDone:
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

// Output returns everything the child has written so far.
func (r *Rig) Output() string {
	var out string
	r.inspect(func() { out = r.buffer.String() })
	return out
}

// OutputLen returns the current length of the output buffer, in bytes.
func (r *Rig) OutputLen() int {
	var n int
	r.inspect(func() { n = r.buffer.Len() })
	return n
}

// PlainOutput returns the output with ANSI escape sequences removed.
func (r *Rig) PlainOutput() string {
	return ansi.Strip(r.Output())
}

// Screen returns the rendered terminal screen.
func (r *Rig) Screen() string {
	var s string
	r.inspect(func() { s = r.screen.String() })
	return s
}
