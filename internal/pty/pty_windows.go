//go:build windows

package pty

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/ActiveState/termtest/conpty"
)

type windowsPty struct {
	cpty    *conpty.ConPty
	inPipe  *os.File
	outPipe *os.File
	process *os.Process

	closeOnce sync.Once
	closeErr  error
	exited    atomic.Bool
}

// resolveShell picks the shell binary: the hint if present, then pwsh,
// Windows PowerShell, and finally cmd.exe.
func resolveShell(hint string) string {
	candidates := []string{}
	if hint != "" {
		candidates = append(candidates, hint)
	}
	candidates = append(candidates, "pwsh.exe", "powershell.exe")
	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return path
		}
	}
	systemRoot := os.Getenv("SYSTEMROOT")
	if systemRoot == "" {
		systemRoot = `C:\Windows`
	}
	return systemRoot + `\System32\cmd.exe`
}

func open(cols, rows int, shellHint string) (Pty, error) {
	cpty, err := conpty.New(int16(cols), int16(rows))
	if err != nil {
		return nil, fmt.Errorf("%w: allocating ConPTY: %v", ErrCreateFailed, err)
	}

	shell := resolveShell(shellHint)
	env := append(os.Environ(),
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
	)

	pid, _, err := cpty.Spawn(shell, []string{}, &syscall.ProcAttr{Env: env})
	if err != nil {
		cpty.Close()
		return nil, fmt.Errorf("%w: spawning %s: %v", ErrCreateFailed, shell, err)
	}

	process, err := os.FindProcess(int(pid))
	if err != nil {
		cpty.Close()
		return nil, fmt.Errorf("%w: resolving pid %d: %v", ErrCreateFailed, pid, err)
	}

	w := &windowsPty{
		cpty:    cpty,
		inPipe:  cpty.InPipe(),
		outPipe: cpty.OutPipe(),
		process: process,
	}
	go func() {
		process.Wait()
		w.exited.Store(true)
	}()
	return w, nil
}

func (w *windowsPty) Resize(cols, rows int) error {
	return w.cpty.Resize(uint16(cols), uint16(rows))
}

func (w *windowsPty) WriteInput(p []byte) (int, error) {
	n, err := w.inPipe.Write(p)
	if err != nil && w.exited.Load() {
		return n, ErrClosed
	}
	return n, err
}

func (w *windowsPty) ReadOutput(p []byte) (int, error) {
	n, err := w.outPipe.Read(p)
	if err != nil && w.exited.Load() {
		return n, io.EOF
	}
	return n, err
}

func (w *windowsPty) Close() error {
	w.closeOnce.Do(func() {
		var errs []error
		if err := w.inPipe.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := w.outPipe.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := w.cpty.Close(); err != nil {
			errs = append(errs, err)
		}
		if !w.exited.Load() {
			if err := w.process.Kill(); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			w.closeErr = fmt.Errorf("pty: close: %v", errs)
		}
	})
	return w.closeErr
}

func (w *windowsPty) IsAlive() bool {
	return !w.exited.Load()
}
