//go:build !windows

package pty

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"
)

type unixPty struct {
	file *os.File
	cmd  *exec.Cmd

	closeOnce sync.Once
	closeErr  error
	exited    atomic.Bool
}

func open(cols, rows int, shellHint string) (Pty, error) {
	shell := shellHint
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.Command(shell)
	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
	)

	file, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: starting %s: %v", ErrCreateFailed, shell, err)
	}

	u := &unixPty{file: file, cmd: cmd}
	go func() {
		cmd.Wait()
		u.exited.Store(true)
	}()
	return u, nil
}

func (u *unixPty) Resize(cols, rows int) error {
	return pty.Setsize(u.file, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
}

func (u *unixPty) WriteInput(p []byte) (int, error) {
	n, err := u.file.Write(p)
	if err != nil && u.exited.Load() {
		return n, ErrClosed
	}
	return n, err
}

func (u *unixPty) ReadOutput(p []byte) (int, error) {
	n, err := u.file.Read(p)
	if err != nil {
		// A closed master reports EIO once the child is gone; normalize.
		if u.exited.Load() {
			return n, io.EOF
		}
		return n, err
	}
	return n, err
}

func (u *unixPty) Close() error {
	u.closeOnce.Do(func() {
		if u.cmd.Process != nil {
			u.cmd.Process.Signal(syscall.SIGTERM)
			time.Sleep(100 * time.Millisecond)
			u.cmd.Process.Kill()
		}
		u.closeErr = u.file.Close()
	})
	return u.closeErr
}

func (u *unixPty) IsAlive() bool {
	return !u.exited.Load()
}
