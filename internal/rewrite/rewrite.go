// Package rewrite converts blocking stylesheet links into non-blocking
// ones after their critical subset has been inlined.
package rewrite

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	nethtml "golang.org/x/net/html"

	"github.com/vueneue/critters/internal/config"
	"github.com/vueneue/critters/internal/css"
	"github.com/vueneue/critters/internal/html"
	"github.com/vueneue/critters/internal/prune"
)

// Loader function bodies injected for the script-based strategies. The
// lazy variant keeps the created link disabled until it has loaded.
const (
	loaderScript = `function $loadcss(u,m,l){(l=document.createElement('link')).rel='stylesheet';l.href=u;document.head.appendChild(l)}`

	lazyLoaderScript = `function $loadcss(u,m,l){(l=document.createElement('link')).rel='stylesheet';l.href=u;l.media='only x';l.onload=function(){l.media=m||'all'};document.head.appendChild(l)}`
)

// State carries the mutable bookkeeping shared by all link tasks of a
// single run: the once-per-document loader flag, the font preload dedup
// set, and the set of style nodes this run inserted (keyed by the
// underlying parse-tree node, with the originating URL for diagnostics).
// Access is serialized by the run's DOM lock.
type State struct {
	Fonts *prune.PreloadSet

	loaderInjected bool
	inserted       map[*nethtml.Node]string
}

// NewState creates the bookkeeping for one run.
func NewState() *State {
	return &State{
		Fonts:    prune.NewPreloadSet(),
		inserted: make(map[*nethtml.Node]string),
	}
}

// MarkInserted records a style node created by this run and the URL of
// the stylesheet it was derived from.
func (s *State) MarkInserted(n html.Node, url string) {
	s.inserted[n.Unwrap()] = url
}

// Inserted reports whether the node is a critical-CSS style element
// created by this run.
func (s *State) Inserted(n html.Node) bool {
	_, ok := s.inserted[n.Unwrap()]
	return ok
}

// Rewriter mutates stylesheet links according to the configured
// delivery strategy.
type Rewriter struct {
	opts   config.Options
	pruner *prune.Pruner
	fonts  *prune.FontAnalyzer
	log    *zap.Logger
}

// New creates a rewriter for the given options.
func New(opts config.Options, log *zap.Logger) *Rewriter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Rewriter{
		opts:   opts,
		pruner: prune.NewPruner(log),
		fonts:  prune.NewFontAnalyzer(log),
		log:    log.Named("rewrite"),
	}
}

// Rewrite inlines the critical subset of the parsed stylesheet next to
// the link and applies the configured delivery strategy to the link
// itself. The caller holds the run's DOM lock.
func (r *Rewriter) Rewrite(doc html.Document, link html.Node, sheet *css.Stylesheet, href string, st *State) error {
	corpus := r.pruner.Prune(sheet, doc)
	r.fonts.Resolve(sheet, doc, corpus, prune.FontOptions{
		Inline:  r.opts.InlineFonts,
		Preload: r.opts.PreloadFonts,
	}, st.Fonts)

	// tail tracks the last node of the link's rewrite cluster, so the
	// critical style, loader scripts and noscript fallback stay in
	// insertion order right behind the link.
	tail := link

	critical := sheet.Render(r.opts.Compress)
	if strings.TrimSpace(critical) != "" {
		style := doc.CreateElement("style")
		style.SetText(critical)
		link.InsertAfter(style)
		st.MarkInserted(style, href)
		tail = style
		r.log.Debug("inlined critical css", zap.String("href", href), zap.Int("bytes", len(critical)))
	}

	if r.opts.Preload == config.StrategyNone {
		return nil
	}

	media, hasMedia := link.Attr("media")

	switch r.opts.Preload {
	case config.StrategyBody:
		body := doc.Body()
		if body == nil {
			return fmt.Errorf("no body element to move link %s into", href)
		}
		body.AppendChild(link)

	case config.StrategyMedia:
		link.SetAttr("rel", "stylesheet")
		link.RemoveAttr("as")
		link.SetAttr("media", "only x")
		link.SetAttr("onload", fmt.Sprintf("this.media='%s'", mediaOrAll(media)))
		r.noscriptFallback(doc, tail, href, media, hasMedia)

	case config.StrategySwap:
		link.SetAttr("rel", "preload")
		link.SetAttr("as", "style")
		link.SetAttr("onload", "this.rel='stylesheet'")
		r.noscriptFallback(doc, tail, href, media, hasMedia)

	case config.StrategyJS, config.StrategyJSLazy:
		link.SetAttr("rel", "preload")
		link.SetAttr("as", "style")

		after := tail
		if !st.loaderInjected {
			body := loaderScript
			if r.opts.Preload == config.StrategyJSLazy {
				body = lazyLoaderScript
			}
			loader := doc.CreateElement("script")
			loader.SetText(body)
			after.InsertAfter(loader)
			st.loaderInjected = true
			after = loader
		}

		call := "$loadcss(" + strconv.Quote(href)
		if hasMedia {
			call += "," + strconv.Quote(media)
		}
		call += ")"
		use := doc.CreateElement("script")
		use.SetText(call)
		after.InsertAfter(use)

		r.noscriptFallback(doc, use, href, media, hasMedia)

	default: // config.StrategyDefault
		link.SetAttr("rel", "preload")
		link.SetAttr("as", "style")
		body := doc.Body()
		if body == nil {
			return fmt.Errorf("no body element to append stylesheet link for %s", href)
		}
		attrs := []html.Attr{
			{Key: "rel", Val: "stylesheet"},
			{Key: "href", Val: href},
		}
		if hasMedia {
			attrs = append(attrs, html.Attr{Key: "media", Val: media})
		}
		body.AppendChild(doc.CreateElement("link", attrs...))
	}

	r.log.Debug("rewrote stylesheet link", zap.String("href", href), zap.String("strategy", string(r.opts.Preload)))
	return nil
}

// noscriptFallback inserts a plain stylesheet link wrapped in noscript
// right after the given node, so clients without JavaScript still load
// the sheet synchronously.
func (r *Rewriter) noscriptFallback(doc html.Document, after html.Node, href, media string, hasMedia bool) {
	if !r.opts.NoscriptFallback {
		return
	}
	attrs := []html.Attr{
		{Key: "rel", Val: "stylesheet"},
		{Key: "href", Val: href},
	}
	if hasMedia {
		attrs = append(attrs, html.Attr{Key: "media", Val: media})
	}
	ns := doc.CreateElement("noscript")
	ns.AppendChild(doc.CreateElement("link", attrs...))
	after.InsertAfter(ns)
}

func mediaOrAll(media string) string {
	if media == "" {
		return "all"
	}
	return media
}
