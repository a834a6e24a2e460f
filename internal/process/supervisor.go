// Package process implements the Process Supervisor & Log Reader (§4.I): it
// spawns the launch command, tracks running instances in a concurrency-safe
// registry, decodes Log4J-framed output into LogEvents, and distinguishes a
// cooperative stop (server "stop" console command) from a hard kill.
package process

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/quantumlauncher/qlcore/internal/launch"
	"github.com/quantumlauncher/qlcore/internal/logging"
	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

// Handle is one running (or just-exited) instance process.
type Handle struct {
	Name            string
	IsServer        bool
	IsClassicServer bool // classic servers have no "stop" console command; always hard-killed

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	events chan *LogEvent
	done   chan struct{}

	mu                   sync.Mutex
	exitErr              error
	exited               bool
	hasIssuedStopCommand bool
}

// Events returns the channel of decoded log lines; it is closed once the
// process exits and its output has been fully drained.
func (h *Handle) Events() <-chan *LogEvent { return h.events }

// Wait blocks until the process exits and returns its final error, if any.
func (h *Handle) Wait() error {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitErr
}

// Exited reports whether the process has already terminated.
func (h *Handle) Exited() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exited
}

// Registry tracks every live Handle by instance name, the same
// concurrency-safe map + atomic-JSON-persistence shape the teacher's process
// registry used, adapted here to key on instance name instead of PID alone
// and to drop the JSON persistence (instances are re-enumerated from disk on
// next launch, so there is nothing durable to recover).
type Registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
	log     *logging.Logger
}

func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{handles: map[string]*Handle{}, log: log}
}

// Spawn starts cmd under the registry, wiring stdout through a LogReader,
// stderr through a plain line scanner (each line an ERROR-level plain
// event), and stdin for server console commands. enableLogger selects
// Piped (decode Log4J frames) vs Inherit (hand the child the real console);
// Inherit instances are tracked for lifecycle purposes but produce no
// decoded events. censor lists secret substrings (access tokens) that must
// never reach a caller in a RawLine or Message, per §4.I.
func (reg *Registry) Spawn(name string, c *launch.Command, isServer, isClassicServer, enableLogger bool, censor []string) (*Handle, error) {
	cmd := exec.Command(c.JavaBin, c.Args...)
	cmd.Dir = c.Dir

	h := &Handle{
		Name:            name,
		IsServer:        isServer,
		IsClassicServer: isClassicServer,
		cmd:             cmd,
		events:          make(chan *LogEvent, 64),
		done:            make(chan struct{}),
	}

	if !enableLogger {
		cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
		if err := cmd.Start(); err != nil {
			return nil, &qerrors.GameLaunchError{Kind: qerrors.CommandError, Cause: err}
		}
		reg.track(name, h)
		go reg.waitAndReap(name, h)
		close(h.events)
		return h, nil
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &qerrors.GameLaunchError{Kind: qerrors.CommandError, Cause: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &qerrors.GameLaunchError{Kind: qerrors.CommandError, Cause: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &qerrors.GameLaunchError{Kind: qerrors.CommandError, Cause: err}
	}
	h.stdin = stdin

	if err := cmd.Start(); err != nil {
		return nil, &qerrors.GameLaunchError{Kind: qerrors.CommandError, Cause: err}
	}

	reg.track(name, h)

	var wg sync.WaitGroup
	wg.Add(2)
	go reg.pump(h, stdout, censor, &wg)
	go reg.pumpPlain(h, stderr, censor, &wg)
	go func() {
		wg.Wait()
		close(h.events)
	}()
	go reg.waitAndReap(name, h)

	return h, nil
}

func (reg *Registry) track(name string, h *Handle) {
	reg.mu.Lock()
	reg.handles[name] = h
	reg.mu.Unlock()
}

func (reg *Registry) pump(h *Handle, r io.Reader, censor []string, wg *sync.WaitGroup) {
	defer wg.Done()
	lr := NewLogReader(r)
	lr.OnDiagnostic = func(err error) {
		if reg.log != nil {
			reg.log.Warn("log4j frame decode failed for %s: %v", h.Name, err)
		}
	}
	for {
		ev, err := lr.Next()
		if err != nil {
			return
		}
		if ev.Plain && IsSessionIDLine(ev.RawLine) {
			ev.RawLine = RedactSessionID(ev.RawLine)
		}
		ev.RawLine = RedactCensored(ev.RawLine, censor)
		ev.Message = RedactCensored(ev.Message, censor)
		h.events <- ev
	}
}

func (reg *Registry) pumpPlain(h *Handle, r io.Reader, censor []string, wg *sync.WaitGroup) {
	defer wg.Done()
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		line := s.Text()
		if IsSessionIDLine(line) {
			line = RedactSessionID(line)
		}
		line = RedactCensored(line, censor)
		h.events <- &LogEvent{Plain: true, RawLine: line, Level: "ERROR"}
	}
}

func (reg *Registry) waitAndReap(name string, h *Handle) {
	err := h.cmd.Wait()
	h.mu.Lock()
	h.exited = true
	h.exitErr = err
	h.mu.Unlock()
	close(h.done)
	reg.mu.Lock()
	if reg.handles[name] == h {
		delete(reg.handles, name)
	}
	reg.mu.Unlock()
}

// Get returns the running handle for name, if any.
func (reg *Registry) Get(name string) (*Handle, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	h, ok := reg.handles[name]
	return h, ok
}

// List returns the names of every currently-tracked instance.
func (reg *Registry) List() []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	out := make([]string, 0, len(reg.handles))
	for name := range reg.handles {
		out = append(out, name)
	}
	return out
}

// Stop implements §4.I's three-way distinction: a client instance is always
// hard-killed (there is no graceful client shutdown protocol); a server
// instance is asked to stop via its "stop" console command and given grace
// to exit on its own before being hard-killed; a classic server has no
// "stop" console command to send, so it is hard-killed just like a client;
// forceKill skips straight to the hard kill regardless of instance kind.
func (reg *Registry) Stop(name string, grace time.Duration, forceKill bool) error {
	h, ok := reg.Get(name)
	if !ok {
		return &qerrors.GameLaunchError{Kind: qerrors.InstanceNotFound}
	}

	if h.IsServer && !h.IsClassicServer && !forceKill && h.stdin != nil {
		h.mu.Lock()
		h.hasIssuedStopCommand = true
		h.mu.Unlock()
		if _, err := io.WriteString(h.stdin, "stop\n"); err == nil {
			select {
			case <-h.done:
				return nil
			case <-time.After(grace):
			}
		}
	}

	return h.cmd.Process.Kill()
}

// HasIssuedStopCommand reports whether a graceful stop was attempted before
// any eventual hard kill, used to classify an exit as a clean server
// shutdown vs. a crash.
func (h *Handle) HasIssuedStopCommand() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hasIssuedStopCommand
}

// SendCommand writes a raw line to a running server's stdin console.
func (h *Handle) SendCommand(line string) error {
	if h.stdin == nil {
		return &qerrors.GameLaunchError{Kind: qerrors.CommandError, Cause: io.ErrClosedPipe}
	}
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	_, err := io.WriteString(h.stdin, line)
	return err
}
