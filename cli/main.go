// Command velocitty-core is the headless driver for the terminal and search
// cores: it runs a shell session on the controlling tty and exposes the
// filesystem index from the command line. The GPU shell links the same
// internal packages.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/voidwarestudios/velocitty/internal/config"
	"github.com/voidwarestudios/velocitty/internal/search"
	vt "github.com/voidwarestudios/velocitty/internal/term"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "config file path")
		reindex  = flag.Bool("reindex", false, "rebuild the search index and exit")
		queryStr = flag.String("search", "", "run a search query and exit")
	)
	flag.Parse()

	cfg := config.Load(*cfgPath)
	for _, w := range cfg.Warnings {
		log.Printf("config: %s", w)
	}

	if *reindex {
		runReindex()
		return
	}
	if *queryStr != "" {
		runQuery(*queryStr)
		return
	}

	if err := runSession(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runReindex() {
	svc := search.NewService("", nil)
	defer svc.Close()
	done := make(chan struct{})
	var once sync.Once
	svc.StartIndexing(func(p float64, status string) {
		fmt.Printf("\r%3.0f%% %-60s", p*100, status)
		if p >= 1 {
			once.Do(func() { close(done) })
		}
	})
	<-done
	fmt.Printf("\nindexed %d entries\n", svc.IndexedCount())
}

func runQuery(q string) {
	idxPath := search.DefaultIndexPath()
	if _, err := os.Stat(idxPath); err != nil {
		fmt.Fprintln(os.Stderr, "no index yet; run -reindex first")
		os.Exit(1)
	}

	svc := search.NewService("", nil)
	defer svc.Close()
	svc.StartIndexing(nil)
	for !svc.IsReady() {
		time.Sleep(10 * time.Millisecond)
	}

	done := make(chan struct{})
	svc.Search(q, func(results []search.Result, complete bool) {
		for _, r := range results {
			kind := " "
			if r.IsDirectory {
				kind = "d"
			}
			fmt.Printf("%4d %s %s\n", r.Score, kind, r.FullPath)
		}
		close(done)
	})
	<-done
}

// runSession attaches one Terminal to the controlling tty and repaints the
// screen model at frame rate. It is deliberately dumb about damage: the whole
// grid redraws each frame, which is plenty for a debug driver.
func runSession(cfg *config.Config) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("stdin is not a terminal")
	}
	cols, rows, err := term.GetSize(fd)
	if err != nil {
		cols, rows = 80, 24
	}

	t, err := vt.Start(cols, rows, vt.Options{
		ScrollbackMax: cfg.ScrollbackLines,
		Palette:       cfg.Palette(),
		ShellHint:     cfg.ShellHint,
	})
	if err != nil {
		return err
	}
	defer t.Close()

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				t.SendInput(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	frame := time.NewTicker(33 * time.Millisecond)
	defer frame.Stop()
	for t.IsRunning() || t.Pending() {
		<-frame.C
		if t.ProcessOutput() {
			paint(t)
		}
	}
	fmt.Print("\x1b[0m\x1b[2J\x1b[H")
	return nil
}

// paint redraws the live view with plain SGR so the host tty shows what the
// screen model holds.
func paint(t *vt.Terminal) {
	buf := t.Buffer()
	pal := t.Parser().Palette()
	cols, rows := buf.Size()

	out := make([]byte, 0, cols*rows*4)
	out = append(out, "\x1b[H"...)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			c := buf.Cell(x, y)
			if c.Flags&vt.FlagWideCont != 0 {
				continue
			}
			fg := pal.Resolve(c.Fg, true)
			bg := pal.Resolve(c.Bg, false)
			if c.Flags&vt.FlagInverse != 0 {
				fg, bg = bg, fg
			}
			out = append(out, fmt.Sprintf("\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm",
				fg.R, fg.G, fg.B, bg.R, bg.G, bg.B)...)
			r := c.Rune
			if r == 0 {
				r = ' '
			}
			out = append(out, string(r)...)
		}
		if y < rows-1 {
			out = append(out, "\r\n"...)
		}
	}
	cur := buf.CursorPos()
	out = append(out, fmt.Sprintf("\x1b[0m\x1b[%d;%dH", cur.Y+1, cur.X+1)...)
	os.Stdout.Write(out)
}
