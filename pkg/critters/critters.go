// Package critters extracts the critical subset of a document's CSS,
// inlines it, and rewrites the remaining stylesheet references so that
// first paint is not blocked on them.
package critters

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/vueneue/critters/internal/config"
	"github.com/vueneue/critters/internal/css"
	"github.com/vueneue/critters/internal/html"
	"github.com/vueneue/critters/internal/prune"
	"github.com/vueneue/critters/internal/rewrite"
)

// Options re-exports the resolved configuration.
type Options = config.Options

// externalURLRe is the default skip heuristic for links when no filter
// is configured: protocol-relative and absolute network URLs are not
// resolvable from the content mapping and are left untouched.
var externalURLRe = regexp.MustCompile(`^(https?:)?//`)

// Processor runs the critical CSS pipeline over HTML documents. A
// processor is immutable after construction and safe for concurrent
// Process calls; all per-run state lives on the call.
type Processor struct {
	opts config.Options
	log  *zap.Logger
}

// New creates a processor with the given options.
func New(opts config.Options, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{opts: opts, log: log.Named("critters")}
}

// NewWithDefaults creates a processor with the default options.
func NewWithDefaults() *Processor {
	return New(config.Default(), nil)
}

// Process parses the HTML document, inlines the critical subset of each
// stylesheet, rewrites external links per the configured strategy, and
// returns the serialized result. styles maps each stylesheet reference,
// exactly as it appears in href attributes, to its text content; the
// core performs no network or filesystem access. Process is
// all-or-nothing: any task failure fails the whole call and no partial
// document is returned.
func (p *Processor) Process(htmlSrc string, styles map[string]string) (string, error) {
	doc, err := html.Parse(htmlSrc)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	run := &runState{state: rewrite.NewState()}

	if p.opts.External {
		if err := p.processLinks(doc, styles, run); err != nil {
			return "", err
		}
	}
	if err := p.processStyles(doc, run); err != nil {
		return "", err
	}

	out, err := doc.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to serialize HTML: %w", err)
	}
	return out, nil
}

// runState is the per-call context shared by all tasks of one run. The
// DOM tree, the loader-injection flag, the font preload dedup set and
// the inserted-style set are all guarded by mu; concurrent Process
// calls never share any of it.
type runState struct {
	mu    sync.Mutex // serializes DOM access
	state *rewrite.State

	errMu sync.Mutex
	errs  error
}

func (r *runState) fail(err error) {
	r.errMu.Lock()
	r.errs = multierr.Append(r.errs, err)
	r.errMu.Unlock()
}

// processLinks rewrites every external stylesheet link, one task per
// link. CSS parsing runs outside the DOM lock; pruning, font analysis
// and tree mutation run under it, so tasks only interleave at the
// stylesheet parse boundary.
func (p *Processor) processLinks(doc html.Document, styles map[string]string, run *runState) error {
	links := doc.Query(`link[rel="stylesheet"]`)
	rewriter := rewrite.New(p.opts, p.log)
	parser := css.NewParser(p.log)

	var wg sync.WaitGroup
	for _, link := range links {
		href, ok := link.Attr("href")
		if !ok || href == "" {
			continue
		}
		if p.skipURL(href) {
			p.log.Debug("skipping stylesheet link", zap.String("href", href))
			continue
		}
		text, ok := styles[href]
		if !ok {
			// Not the core's fault: the caller did not resolve this
			// sheet, so the link stays as it is.
			p.log.Debug("no content for stylesheet, skipping", zap.String("href", href))
			continue
		}

		wg.Add(1)
		go func(link html.Node, href, text string) {
			defer wg.Done()
			sheet, err := parser.Parse([]byte(text))
			if err != nil {
				run.fail(fmt.Errorf("stylesheet %s: %w", href, err))
				return
			}
			run.mu.Lock()
			defer run.mu.Unlock()
			if err := rewriter.Rewrite(doc, link, sheet, href, run.state); err != nil {
				run.fail(fmt.Errorf("rewrite %s: %w", href, err))
			}
		}(link, href, text)
	}
	wg.Wait()

	run.errMu.Lock()
	defer run.errMu.Unlock()
	return run.errs
}

// skipURL reports whether a stylesheet URL is excluded from processing.
func (p *Processor) skipURL(href string) bool {
	if p.opts.Filter != nil {
		return !p.opts.Filter(href)
	}
	return externalURLRe.MatchString(href)
}

// processStyles prunes every inline style block that this run did not
// itself insert, one task per element. Blocks pruned down to nothing
// are removed entirely.
func (p *Processor) processStyles(doc html.Document, run *runState) error {
	pruner := prune.NewPruner(p.log)
	fonts := prune.NewFontAnalyzer(p.log)
	parser := css.NewParser(p.log)
	fontOpts := prune.FontOptions{Inline: p.opts.InlineFonts, Preload: p.opts.PreloadFonts}

	run.mu.Lock()
	elements := doc.Query("style")
	run.mu.Unlock()

	var wg sync.WaitGroup
	for _, el := range elements {
		if run.state.Inserted(el) {
			continue
		}

		wg.Add(1)
		go func(el html.Node) {
			defer wg.Done()

			run.mu.Lock()
			text := el.Text()
			run.mu.Unlock()
			if strings.TrimSpace(text) == "" {
				return
			}

			sheet, err := parser.Parse([]byte(text))
			if err != nil {
				run.fail(fmt.Errorf("inline style: %w", err))
				return
			}

			run.mu.Lock()
			defer run.mu.Unlock()
			corpus := pruner.Prune(sheet, doc)
			fonts.Resolve(sheet, doc, corpus, fontOpts, run.state.Fonts)
			reduced := sheet.Render(p.opts.Compress)
			if strings.TrimSpace(reduced) == "" {
				el.Remove()
				return
			}
			el.SetText(reduced)
		}(el)
	}
	wg.Wait()

	run.errMu.Lock()
	defer run.errMu.Unlock()
	return run.errs
}

// ProcessHTML is a convenience function that processes a document with
// the default options.
func ProcessHTML(htmlSrc string, styles map[string]string) (string, error) {
	return NewWithDefaults().Process(htmlSrc, styles)
}
