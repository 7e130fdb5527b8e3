package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidwarestudios/velocitty/internal/term"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestMissingFileYieldsDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	def := Default()
	assert.Equal(t, def.FontSize, cfg.FontSize)
	assert.Equal(t, def.ScrollbackLines, cfg.ScrollbackLines)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
font_family: "JetBrains Mono"
font_size: 14
scrollback_lines: 5000
vsync: false
cursor_blink_ms: 250
shell: pwsh
selection_word_chars: "-_."
colors:
  foreground: "#aabbcc"
  background: "#112233"
  cursor: "#ffffff"
`)
	cfg := Load(path)
	require.Empty(t, cfg.Warnings)
	assert.Equal(t, "JetBrains Mono", cfg.FontFamily)
	assert.Equal(t, 14.0, cfg.FontSize)
	assert.Equal(t, 5000, cfg.ScrollbackLines)
	assert.False(t, cfg.VSync)
	assert.Equal(t, 250, cfg.CursorBlinkMs)
	assert.Equal(t, "pwsh", cfg.ShellHint)
	assert.Equal(t, "-_.", cfg.WordRunes)
	assert.Equal(t, term.RGB{R: 0xaa, G: 0xbb, B: 0xcc}, cfg.Foreground)
	assert.Equal(t, term.RGB{R: 0x11, G: 0x22, B: 0x33}, cfg.Background)
}

func TestInvalidFieldsDefaultIndividually(t *testing.T) {
	path := writeConfig(t, `
font_size: 400
scrollback_lines: -5
cursor_blink_ms: 99999
colors:
  foreground: "not-a-color"
`)
	cfg := Load(path)
	def := Default()
	assert.Equal(t, def.FontSize, cfg.FontSize)
	assert.Equal(t, def.ScrollbackLines, cfg.ScrollbackLines)
	assert.Equal(t, def.CursorBlinkMs, cfg.CursorBlinkMs)
	assert.Equal(t, def.Foreground, cfg.Foreground)
	assert.Len(t, cfg.Warnings, 4)
}

func TestUnparsableFileIsNonFatal(t *testing.T) {
	path := writeConfig(t, "font_size: [not yaml {{{")
	cfg := Load(path)
	assert.Equal(t, Default().FontSize, cfg.FontSize)
	assert.NotEmpty(t, cfg.Warnings)
}

func TestAnsiPaletteLoading(t *testing.T) {
	t.Run("wrong length warns", func(t *testing.T) {
		path := writeConfig(t, `
colors:
  ansi: ["#000000", "#ff0000"]
`)
		cfg := Load(path)
		assert.NotEmpty(t, cfg.Warnings)
		assert.Equal(t, Default().Ansi, cfg.Ansi)
	})

	t.Run("full palette applies", func(t *testing.T) {
		body := "colors:\n  ansi:\n"
		for i := 0; i < 16; i++ {
			body += "    - \"#010203\"\n"
		}
		cfg := Load(writeConfig(t, body))
		require.Empty(t, cfg.Warnings)
		for i := 0; i < 16; i++ {
			assert.Equal(t, term.RGB{R: 1, G: 2, B: 3}, cfg.Ansi[i])
		}
	})
}

func TestPaletteConstruction(t *testing.T) {
	cfg := Default()
	cfg.Foreground = term.RGB{R: 1, G: 2, B: 3}
	pal := cfg.Palette()
	assert.Equal(t, term.RGB{R: 1, G: 2, B: 3}, pal.Fg)
	assert.Equal(t, cfg.Ansi[4], pal.ANSI[4])
}
