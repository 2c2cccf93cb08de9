package launcher

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/text/encoding/simplifiedchinese"

	"limeal.fr/mclaunch/pkg/errs"
	"limeal.fr/mclaunch/pkg/events"
	"limeal.fr/mclaunch/pkg/logging"
)

const DefaultTerminateGrace = 10 * time.Second

type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string // appended to the current environment
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

type SuperviseOptions struct {
	// LogFile receives every output line as it is read. It is truncated
	// when the process starts.
	LogFile string

	// Sink receives one log event per output line. Without a sink the
	// lines go to Logger instead.
	Sink   events.Sink
	Source string
	Logger hclog.Logger
}

// Process is a running child whose merged stdout and stderr are read line
// by line until it exits.
type Process struct {
	cmd    *exec.Cmd
	source string
	sink   events.Sink
	logger hclog.Logger

	logFile *os.File

	done     chan struct{}
	exitCode int
	err      error

	termOnce sync.Once
}

// Start spawns c. Cancelling ctx interrupts the process and kills it after
// DefaultTerminateGrace.
func Start(ctx context.Context, c Command, opts SuperviseOptions) (*Process, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Source == "" {
		opts.Source = "game"
	}

	p := &Process{
		source: opts.Source,
		sink:   opts.Sink,
		logger: opts.Logger.Named(opts.Source),
		done:   make(chan struct{}),
	}

	if opts.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.Create(opts.LogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open process log: %w", err)
		}
		p.logFile = f
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.Cancel = func() error { return interrupt(cmd.Process) }
	cmd.WaitDelay = DefaultTerminateGrace
	setupWindowsProcessAttributes(cmd)

	pr, pw, err := os.Pipe()
	if err != nil {
		p.closeLog()
		return nil, fmt.Errorf("failed to create output pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		p.closeLog()
		return nil, &errs.ProcessLaunchError{Command: c.Path, ExitCode: -1, Err: err}
	}
	pw.Close()
	p.cmd = cmd

	p.logger.Debug("process started", "pid", cmd.Process.Pid, "command", c.Path)
	go p.supervise(pr)
	return p, nil
}

func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

func (p *Process) supervise(out io.ReadCloser) {
	defer close(p.done)

	r := bufio.NewReaderSize(out, 64*1024)
	for {
		raw, err := r.ReadBytes('\n')
		if len(raw) > 0 {
			p.handleLine(raw)
		}
		if err != nil {
			break
		}
	}
	out.Close()
	p.closeLog()

	err := p.cmd.Wait()
	p.exitCode = -1
	if p.cmd.ProcessState != nil {
		p.exitCode = p.cmd.ProcessState.ExitCode()
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		p.err = err
	}
	p.logger.Debug("process exited", "code", p.exitCode)
}

func (p *Process) handleLine(raw []byte) {
	raw = bytes.TrimRight(raw, "\r\n")
	line := DecodeLine(raw)

	if p.logFile != nil {
		p.logFile.WriteString(line + "\n")
	}
	if strings.TrimSpace(line) == "" {
		return
	}

	level := Classify(line)
	if p.sink != nil {
		p.sink.Emit(events.Log(level, p.source, line))
		return
	}
	switch level {
	case events.LevelError:
		p.logger.Error(line)
	case events.LevelWarning:
		p.logger.Warn(line)
	default:
		p.logger.Info(line)
	}
}

func (p *Process) closeLog() {
	if p.logFile != nil {
		p.logFile.Close()
		p.logFile = nil
	}
}

// Wait blocks until the output is drained and the process has exited. A
// nonzero exit code is not an error.
func (p *Process) Wait() (int, error) {
	<-p.done
	return p.exitCode, p.err
}

// Done is closed once Wait would return.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Terminate asks the process to stop and kills it if it is still running
// after grace.
func (p *Process) Terminate(grace time.Duration) error {
	select {
	case <-p.done:
		return nil
	default:
	}

	var err error
	p.termOnce.Do(func() {
		if ierr := interrupt(p.cmd.Process); ierr != nil && !errors.Is(ierr, os.ErrProcessDone) {
			err = ierr
		}
		select {
		case <-p.done:
		case <-time.After(grace):
			p.logger.Warn("process ignored termination request, killing", "pid", p.PID())
			if kerr := p.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
				err = kerr
			}
		}
	})
	return err
}

/////////////////////////////////////////////////////////////////////
// Output lines
/////////////////////////////////////////////////////////////////////

// Classify maps a game output line to a severity. The markers are case
// sensitive.
func Classify(line string) events.Level {
	switch {
	case strings.Contains(line, "ERROR"), strings.Contains(line, "Exception"):
		return events.LevelError
	case strings.Contains(line, "WARN"):
		return events.LevelWarning
	case strings.Contains(line, "Sound") && strings.Contains(line, "missing"):
		return events.LevelWarning
	}
	return events.LevelInfo
}

// DecodeLine returns UTF-8 input unchanged and decodes anything else as
// GBK, which is what java prints on Chinese-locale Windows.
func DecodeLine(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "�")
	}
	return string(decoded)
}
