// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package ffmpeg

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"cursorsmooth/pkg/log"
)

// Process manages an ffmpeg subprocess's lifetime: Start launches it
// (attaching any configured stdout/stderr loggers first) and returns once
// it is running or has failed to launch; Wait then blocks until it exits,
// escalating a cancelled ctx into a graceful SIGINT, a timeout, then
// SIGKILL. The split lets a caller that needs to stream stdin/stdout
// concurrently with the process's lifetime (the decode/encode pipes) start
// it, grab its pipes, and only block on Wait once streaming is done; a
// one-shot caller (probing) simply calls Start then Wait back to back.
type Process interface {
	Start(ctx context.Context) error
	Wait() error
	SetTimeout(time.Duration)
	SetPrefix(string)
	SetStdoutLogger(*log.Logger)
	SetStderrLogger(*log.Logger)
}

// process manages ffmpeg subprocesses.
type process struct {
	timeout time.Duration
	cmd     *exec.Cmd

	prefix       string
	stdoutLogger *log.Logger
	stderrLogger *log.Logger

	done chan struct{}
}

// NewProcessFunc is used for mocking.
type NewProcessFunc func(*exec.Cmd) Process

// NewProcess returns a process wrapping cmd.
func NewProcess(cmd *exec.Cmd) Process {
	return &process{
		timeout: 1000 * time.Millisecond,
		cmd:     cmd,
	}
}

func (p *process) attachLogger(l *log.Logger, label string, stdPipe func() (io.ReadCloser, error)) error {
	pipe, err := stdPipe()
	if err != nil {
		return err
	}
	scanner := bufio.NewScanner(pipe)
	go func() {
		for scanner.Scan() {
			l.Debug().Src(p.prefix + label).Msg(scanner.Text())
		}
	}()
	return nil
}

// Start attaches any configured loggers and launches the process, then
// spawns the goroutine that watches ctx and escalates a graceful shutdown
// via stop. It returns once the process has launched, or failed to do so.
func (p *process) Start(ctx context.Context) error {
	if p.stdoutLogger != nil {
		if err := p.attachLogger(p.stdoutLogger, "stdout", p.cmd.StdoutPipe); err != nil {
			return err
		}
	}
	if p.stderrLogger != nil {
		if err := p.attachLogger(p.stderrLogger, "stderr", p.cmd.StderrPipe); err != nil {
			return err
		}
	}

	if err := p.cmd.Start(); err != nil {
		return err
	}

	p.done = make(chan struct{})

	go func() {
		select {
		case <-p.done:
		case <-ctx.Done():
			p.stop()
		}
	}()

	return nil
}

// Wait blocks until the process launched by Start exits.
func (p *process) Wait() error {
	err := p.cmd.Wait()
	close(p.done)

	// FFmpeg returns 255 on a normal interrupt-driven exit.
	if err != nil && err.Error() == "exit status 255" {
		return nil
	}

	return err
}

func (p *process) stop() {
	p.cmd.Process.Signal(os.Interrupt) //nolint:errcheck

	select {
	case <-p.done:
	case <-time.After(p.timeout):
		p.cmd.Process.Signal(os.Kill) //nolint:errcheck
		<-p.done
	}
}

func (p *process) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

func (p *process) SetPrefix(prefix string) {
	p.prefix = prefix
}

func (p *process) SetStdoutLogger(l *log.Logger) {
	p.stdoutLogger = l
}
func (p *process) SetStderrLogger(l *log.Logger) {
	p.stderrLogger = l
}

// FFMPEG stores the ffmpeg/ffprobe binary locations and builds commands
// against them.
type FFMPEG struct {
	bin      string
	probeBin string
	command  func(string, ...string) *exec.Cmd
}

// New returns an FFMPEG using the given ffmpeg and ffprobe binaries
// ("ffmpeg"/"ffprobe" resolved from PATH work as values).
func New(bin, probeBin string) *FFMPEG {
	return &FFMPEG{
		bin:      bin,
		probeBin: probeBin,
		command: func(name string, args ...string) *exec.Cmd {
			return exec.Command(name, args...)
		},
	}
}

func (f *FFMPEG) newCommand(args ...string) *exec.Cmd {
	return f.command(f.bin, args...)
}

func (f *FFMPEG) newProbeCommand(args ...string) *exec.Cmd {
	return f.command(f.probeBin, args...)
}

// ParseArgs slices a raw ffmpeg argument string into individual
// arguments, collapsing repeated whitespace.
func ParseArgs(args string) []string {
	return strings.Fields(args)
}
