// Package config loads the application configuration the core consumes.
// Every field defaults individually; a broken file never stops startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/voidwarestudios/velocitty/internal/term"
)

// fileConfig is the YAML shape on disk. Color values are hex strings.
type fileConfig struct {
	FontFamily      string    `yaml:"font_family"`
	FontSize        float64   `yaml:"font_size"`
	ScrollbackLines int       `yaml:"scrollback_lines"`
	VSync           *bool     `yaml:"vsync"`
	CursorBlinkMs   int       `yaml:"cursor_blink_ms"`
	ShellHint       string    `yaml:"shell"`
	WordRunes       string    `yaml:"selection_word_chars"`
	Colors          colorsCfg `yaml:"colors"`
}

type colorsCfg struct {
	Foreground string   `yaml:"foreground"`
	Background string   `yaml:"background"`
	Cursor     string   `yaml:"cursor"`
	Ansi       []string `yaml:"ansi"`
}

// Config is the resolved configuration handed to the core.
type Config struct {
	FontFamily      string
	FontSize        float64
	ScrollbackLines int
	VSync           bool
	CursorBlinkMs   int
	ShellHint       string
	WordRunes       string

	Foreground term.RGB
	Background term.RGB
	CursorCol  term.RGB
	Ansi       [16]term.RGB

	// Warnings collects per-field problems found while loading; the host
	// surfaces them, nothing is fatal.
	Warnings []string
}

// Default returns the stock configuration.
func Default() *Config {
	pal := term.DefaultPalette()
	return &Config{
		FontFamily:      "Cascadia Mono",
		FontSize:        12,
		ScrollbackLines: 10000,
		VSync:           true,
		CursorBlinkMs:   530,
		WordRunes:       term.DefaultWordRunes,
		Foreground:      pal.Fg,
		Background:      pal.Bg,
		CursorCol:       pal.Cursor,
		Ansi:            pal.ANSI,
	}
}

// Path returns the per-user config file location.
func Path() string {
	var base string
	if runtime.GOOS == "windows" {
		base = os.Getenv("LOCALAPPDATA")
	}
	if base == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			base = dir
		} else {
			base = "."
		}
	}
	return filepath.Join(base, "Velocitty", "config.yaml")
}

// Load reads path (empty = default location). A missing file yields pure
// defaults with no warnings.
func Load(path string) *Config {
	if path == "" {
		path = Path()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			cfg.warn("reading %s: %v", path, err)
		}
		return cfg
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		cfg.warn("parsing %s: %v", path, err)
		return cfg
	}
	cfg.apply(&fc)
	return cfg
}

func (c *Config) warn(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func (c *Config) apply(fc *fileConfig) {
	if fc.FontFamily != "" {
		c.FontFamily = fc.FontFamily
	}
	if fc.FontSize != 0 {
		if fc.FontSize >= 6 && fc.FontSize <= 96 {
			c.FontSize = fc.FontSize
		} else {
			c.warn("font_size %v out of range, using %v", fc.FontSize, c.FontSize)
		}
	}
	if fc.ScrollbackLines != 0 {
		if fc.ScrollbackLines > 0 && fc.ScrollbackLines <= 1000000 {
			c.ScrollbackLines = fc.ScrollbackLines
		} else {
			c.warn("scrollback_lines %d out of range, using %d", fc.ScrollbackLines, c.ScrollbackLines)
		}
	}
	if fc.VSync != nil {
		c.VSync = *fc.VSync
	}
	if fc.CursorBlinkMs != 0 {
		if fc.CursorBlinkMs > 0 && fc.CursorBlinkMs <= 5000 {
			c.CursorBlinkMs = fc.CursorBlinkMs
		} else {
			c.warn("cursor_blink_ms %d out of range, using %d", fc.CursorBlinkMs, c.CursorBlinkMs)
		}
	}
	if fc.ShellHint != "" {
		c.ShellHint = fc.ShellHint
	}
	if fc.WordRunes != "" {
		c.WordRunes = fc.WordRunes
	}

	c.applyColor(fc.Colors.Foreground, "colors.foreground", &c.Foreground)
	c.applyColor(fc.Colors.Background, "colors.background", &c.Background)
	c.applyColor(fc.Colors.Cursor, "colors.cursor", &c.CursorCol)
	if len(fc.Colors.Ansi) > 0 {
		if len(fc.Colors.Ansi) != 16 {
			c.warn("colors.ansi has %d entries, want 16; keeping defaults", len(fc.Colors.Ansi))
		} else {
			for i, hex := range fc.Colors.Ansi {
				c.applyColor(hex, fmt.Sprintf("colors.ansi[%d]", i), &c.Ansi[i])
			}
		}
	}
}

func (c *Config) applyColor(hex, field string, dst *term.RGB) {
	if hex == "" {
		return
	}
	col, err := colorful.Hex(hex)
	if err != nil {
		c.warn("%s: %v", field, err)
		return
	}
	r, g, b := col.RGB255()
	*dst = term.RGB{R: r, G: g, B: b}
}

// Palette builds the runtime palette from the configured scheme.
func (c *Config) Palette() *term.Palette {
	return term.NewPalette(c.Ansi, c.Foreground, c.Background, c.CursorCol)
}
