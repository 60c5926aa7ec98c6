package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vueneue/critters/internal/config"
	"github.com/vueneue/critters/internal/html"
	"github.com/vueneue/critters/pkg/critters"
)

func main() {
	cmd := &cli.Command{
		Name:  "critters",
		Usage: "inline critical CSS and defer non-critical stylesheets",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "input HTML file (default: stdin)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output HTML file (default: stdout)"},
			&cli.StringFlag{Name: "base", Aliases: []string{"b"}, Value: ".", Usage: "base directory for resolving stylesheet hrefs"},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file"},
			&cli.StringFlag{Name: "preload", Usage: "delivery strategy: body, media, swap, js, js-lazy, none (default: preload+body link)"},
			&cli.BoolFlag{Name: "fonts", Usage: "inline and preload fonts (shorthand)"},
			&cli.BoolFlag{Name: "inline-fonts", Usage: "keep used @font-face rules in critical CSS"},
			&cli.BoolFlag{Name: "preload-fonts", Value: true, Usage: "emit font preload links"},
			&cli.BoolFlag{Name: "noscript", Value: true, Usage: "insert noscript fallback links"},
			&cli.BoolFlag{Name: "compress", Value: true, Usage: "compact the inlined critical CSS"},
			&cli.StringFlag{Name: "filter", Usage: "regexp selecting which stylesheet URLs to process"},
			&cli.StringFlag{Name: "log", Value: "normal", Usage: "log level: none, normal, debug"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(_ context.Context, cmd *cli.Command) error {
	opts, logLevel, err := resolveOptions(cmd)
	if err != nil {
		return err
	}

	log, err := buildLogger(logLevel)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	input, name, err := readInput(cmd.String("input"))
	if err != nil {
		return err
	}

	styles, err := loadStylesheets(input, cmd.String("base"), log)
	if err != nil {
		return err
	}

	log.Debug("processing document", zap.String("input", name), zap.Int("stylesheets", len(styles)))
	out, err := critters.New(opts, log).Process(input, styles)
	if err != nil {
		return fmt.Errorf("failed to process %s: %w", name, err)
	}

	return writeOutput(out, cmd.String("output"))
}

// resolveOptions merges the optional config file with command line
// overrides. Flags that were set explicitly win over the file.
func resolveOptions(cmd *cli.Command) (config.Options, string, error) {
	file := &config.File{}
	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Options{}, "", err
		}
		file = loaded
	}

	override := func(name string, dst **bool) {
		if cmd.IsSet(name) {
			v := cmd.Bool(name)
			*dst = &v
		}
	}
	override("fonts", &file.Fonts)
	override("inline-fonts", &file.InlineFonts)
	override("preload-fonts", &file.PreloadFonts)
	override("noscript", &file.NoscriptFallback)
	override("compress", &file.Compress)
	if cmd.IsSet("preload") {
		file.Preload = cmd.String("preload")
	}
	if cmd.IsSet("filter") {
		file.Filter = cmd.String("filter")
	}
	if cmd.IsSet("log") {
		file.LogLevel = cmd.String("log")
	}
	if file.LogLevel == "" {
		file.LogLevel = "normal"
	}

	opts, err := file.Resolve()
	if err != nil {
		return config.Options{}, "", err
	}
	return opts, file.LogLevel, nil
}

// buildLogger returns a console logger writing to stderr so that HTML
// output on stdout stays clean.
func buildLogger(level string) (*zap.Logger, error) {
	var enabler zapcore.LevelEnabler
	switch level {
	case "none":
		return zap.NewNop(), nil
	case "normal":
		enabler = zapcore.InfoLevel
	case "debug":
		enabler = zapcore.DebugLevel
	default:
		return nil, fmt.Errorf("invalid log level: %q", level)
	}

	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.Lock(os.Stderr), enabler)
	return zap.New(core), nil
}

func readInput(path string) (content, name string, err error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(data), "<stdin>", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read input file %s: %w", path, err)
	}
	return string(data), path, nil
}

// loadStylesheets resolves the document's stylesheet hrefs against the
// base directory and builds the URL to content mapping the processor
// expects. Network URLs and missing files are skipped; the processor
// leaves their links untouched.
func loadStylesheets(htmlSrc, base string, log *zap.Logger) (map[string]string, error) {
	doc, err := html.Parse(htmlSrc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	styles := make(map[string]string)
	for _, link := range doc.Query(`link[rel="stylesheet"]`) {
		href, ok := link.Attr("href")
		if !ok || href == "" || strings.Contains(href, "//") {
			continue
		}
		if _, ok := styles[href]; ok {
			continue
		}

		rel := href
		if i := strings.IndexAny(rel, "?#"); i >= 0 {
			rel = rel[:i]
		}
		path := filepath.Join(base, filepath.FromSlash(strings.TrimPrefix(rel, "/")))
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("stylesheet not found, leaving link untouched", zap.String("href", href), zap.String("path", path))
			continue
		}
		styles[href] = string(data)
	}
	return styles, nil
}

func writeOutput(content, path string) error {
	if path == "" {
		_, err := fmt.Print(content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
