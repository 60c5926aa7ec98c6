package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vueneue/critters/internal/config"
)

func boolPtr(v bool) *bool { return &v }

func TestDefault(t *testing.T) {
	opts := config.Default()

	if !opts.External {
		t.Error("external processing must default on")
	}
	if opts.Preload != config.StrategyDefault {
		t.Errorf("unexpected default strategy: %q", opts.Preload)
	}
	if !opts.NoscriptFallback {
		t.Error("noscript fallback must default on")
	}
	if opts.InlineFonts {
		t.Error("font inlining must default off")
	}
	if !opts.PreloadFonts {
		t.Error("font preloading must default on")
	}
	if !opts.Compress {
		t.Error("compression must default on")
	}
}

func TestResolve_FontsTriState(t *testing.T) {
	cases := []struct {
		name        string
		file        config.File
		wantInline  bool
		wantPreload bool
	}{
		{"defaults", config.File{}, false, true},
		{"fonts true forces both", config.File{Fonts: boolPtr(true)}, true, true},
		{"fonts true beats inline_fonts false", config.File{Fonts: boolPtr(true), InlineFonts: boolPtr(false)}, true, true},
		{"fonts false forces inline off", config.File{Fonts: boolPtr(false), InlineFonts: boolPtr(true)}, false, true},
		{"fonts false leaves preload independent", config.File{Fonts: boolPtr(false), PreloadFonts: boolPtr(false)}, false, false},
		{"inline_fonts alone", config.File{InlineFonts: boolPtr(true)}, true, true},
		{"preload_fonts alone", config.File{PreloadFonts: boolPtr(false)}, false, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			opts, err := c.file.Resolve()
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if opts.InlineFonts != c.wantInline {
				t.Errorf("InlineFonts: expected %v, got %v", c.wantInline, opts.InlineFonts)
			}
			if opts.PreloadFonts != c.wantPreload {
				t.Errorf("PreloadFonts: expected %v, got %v", c.wantPreload, opts.PreloadFonts)
			}
		})
	}
}

func TestResolve_InvalidStrategy(t *testing.T) {
	f := config.File{Preload: "eager"}
	if _, err := f.Resolve(); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestResolve_FilterPattern(t *testing.T) {
	f := config.File{Filter: `^/static/`}
	opts, err := f.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if opts.Filter == nil {
		t.Fatal("expected filter predicate")
	}
	if !opts.Filter("/static/app.css") {
		t.Error("expected /static/app.css to pass the filter")
	}
	if opts.Filter("/other/app.css") {
		t.Error("expected /other/app.css to be excluded")
	}
}

func TestResolve_InvalidFilter(t *testing.T) {
	f := config.File{Filter: `([`}
	if _, err := f.Resolve(); err == nil {
		t.Fatal("expected error for invalid filter pattern")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "critters.yaml")
	data := []byte("preload: swap\nfonts: true\ncompress: false\nlog_level: debug\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	f, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if f.LogLevel != "debug" {
		t.Errorf("unexpected log level: %q", f.LogLevel)
	}

	opts, err := f.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if opts.Preload != config.StrategySwap {
		t.Errorf("expected swap strategy, got %q", opts.Preload)
	}
	if !opts.InlineFonts || !opts.PreloadFonts {
		t.Error("fonts shorthand must enable both font features")
	}
	if opts.Compress {
		t.Error("expected compression disabled")
	}
}

func TestStrategyValid(t *testing.T) {
	for _, s := range []config.Strategy{config.StrategyDefault, config.StrategyBody, config.StrategyMedia, config.StrategySwap, config.StrategyJS, config.StrategyJSLazy, config.StrategyNone} {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if config.Strategy("eager").Valid() {
		t.Error("expected unknown strategy to be invalid")
	}
}
