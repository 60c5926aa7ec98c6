package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Strategy selects how a non-critical external stylesheet is loaded
// after its critical subset has been inlined.
type Strategy string

const (
	// StrategyDefault flips the link to a preload and appends a plain
	// stylesheet link at the end of body.
	StrategyDefault Strategy = ""
	// StrategyBody moves the original link to the end of body.
	StrategyBody Strategy = "body"
	// StrategyMedia disables the link with a bogus media query and
	// restores the real media in an onload handler.
	StrategyMedia Strategy = "media"
	// StrategySwap turns the link into a preload that swaps itself back
	// to a stylesheet on load.
	StrategySwap Strategy = "swap"
	// StrategyJS loads the stylesheet through a small injected script.
	StrategyJS Strategy = "js"
	// StrategyJSLazy is StrategyJS with the created link disabled until
	// it has finished loading.
	StrategyJSLazy Strategy = "js-lazy"
	// StrategyNone inlines critical CSS but leaves the link untouched.
	StrategyNone Strategy = "none"
)

// Valid reports whether s is a known strategy name.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyDefault, StrategyBody, StrategyMedia, StrategySwap,
		StrategyJS, StrategyJSLazy, StrategyNone:
		return true
	}
	return false
}

// Options is the resolved, immutable configuration for one processor.
// Build it with Default and adjust fields, or resolve a File.
type Options struct {
	// External enables processing of <link rel="stylesheet"> elements.
	External bool

	// Preload selects the delivery strategy for rewritten links.
	Preload Strategy

	// NoscriptFallback inserts a <noscript> stylesheet link next to
	// links rewritten by the media, swap, js and js-lazy strategies.
	NoscriptFallback bool

	// InlineFonts keeps used @font-face rules in the critical CSS.
	InlineFonts bool

	// PreloadFonts emits <link rel="preload" as="font"> for font URLs
	// found in @font-face rules.
	PreloadFonts bool

	// Compress emits compacted critical CSS.
	Compress bool

	// Filter, when set, decides which stylesheet URLs are processed.
	// When nil, protocol-relative and absolute network URLs are skipped.
	Filter func(url string) bool
}

// Default returns the standard configuration: external sheets processed
// with the default strategy, noscript fallbacks on, fonts preloaded but
// not inlined, output compressed.
func Default() Options {
	return Options{
		External:         true,
		Preload:          StrategyDefault,
		NoscriptFallback: true,
		InlineFonts:      false,
		PreloadFonts:     true,
		Compress:         true,
	}
}

// File is the YAML configuration surface. Boolean knobs are pointers so
// an absent key falls back to the default instead of false. Fonts is a
// shorthand overriding InlineFonts and PreloadFonts when set.
type File struct {
	External         *bool  `yaml:"external"`
	Preload          string `yaml:"preload"`
	NoscriptFallback *bool  `yaml:"noscript_fallback"`
	Fonts            *bool  `yaml:"fonts"`
	InlineFonts      *bool  `yaml:"inline_fonts"`
	PreloadFonts     *bool  `yaml:"preload_fonts"`
	Compress         *bool  `yaml:"compress"`
	Filter           string `yaml:"filter"`
	LogLevel         string `yaml:"log_level"`
}

// Load reads a YAML configuration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &f, nil
}

// Resolve applies precedence rules once and produces an immutable
// Options. The fonts shorthand wins over inline_fonts when set to true
// (forcing both font features on); fonts: false forces inlining off but
// leaves preloading governed by preload_fonts.
func (f *File) Resolve() (Options, error) {
	opts := Default()

	if f.External != nil {
		opts.External = *f.External
	}
	if f.NoscriptFallback != nil {
		opts.NoscriptFallback = *f.NoscriptFallback
	}
	if f.Compress != nil {
		opts.Compress = *f.Compress
	}
	if f.InlineFonts != nil {
		opts.InlineFonts = *f.InlineFonts
	}
	if f.PreloadFonts != nil {
		opts.PreloadFonts = *f.PreloadFonts
	}
	if f.Fonts != nil {
		if *f.Fonts {
			opts.InlineFonts = true
			opts.PreloadFonts = true
		} else {
			opts.InlineFonts = false
		}
	}

	opts.Preload = Strategy(f.Preload)
	if !opts.Preload.Valid() {
		return Options{}, fmt.Errorf("invalid preload strategy: %q", f.Preload)
	}

	if f.Filter != "" {
		re, err := regexp.Compile(f.Filter)
		if err != nil {
			return Options{}, fmt.Errorf("invalid filter pattern: %w", err)
		}
		opts.Filter = re.MatchString
	}

	return opts, nil
}
