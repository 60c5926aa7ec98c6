package prune

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/vueneue/critters/internal/css"
	"github.com/vueneue/critters/internal/html"
)

// FontOptions are the resolved font feature switches.
type FontOptions struct {
	// Inline keeps @font-face rules whose family is used by surviving
	// declarations.
	Inline bool
	// Preload emits <link rel="preload" as="font"> for font URLs.
	Preload bool
}

// PreloadSet deduplicates font preload URLs within a single run. It is
// not safe for concurrent use; callers hold the run's DOM lock.
type PreloadSet struct {
	seen map[string]struct{}
}

// NewPreloadSet creates an empty per-run dedup set.
func NewPreloadSet() *PreloadSet {
	return &PreloadSet{seen: make(map[string]struct{})}
}

// Add records the URL and reports whether it was seen for the first time.
func (s *PreloadSet) Add(url string) bool {
	if _, ok := s.seen[url]; ok {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

// fontURLRe extracts the first url(...) token of a src declaration.
// Multi-format src lists are not split; one representative URL per rule.
var fontURLRe = regexp.MustCompile(`url\(\s*['"]?([^'")]+?)['"]?\s*\)`)

// FontAnalyzer runs the second stylesheet pass that decides, per
// @font-face rule, whether to keep it inline and whether to preload its
// font URL.
type FontAnalyzer struct {
	log *zap.Logger
}

// NewFontAnalyzer creates a new font analyzer.
func NewFontAnalyzer(log *zap.Logger) *FontAnalyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &FontAnalyzer{log: log.Named("fonts")}
}

// Resolve visits every @font-face rule in document order, appends
// deduplicated preload links to <head>, and deletes rules whose family
// is not used by the pruned stylesheet or whose inlining is disabled.
// The family test is a literal substring match against the font-usage
// corpus; quoting and case are not normalized.
func (a *FontAnalyzer) Resolve(sheet *css.Stylesheet, doc html.Document, corpus string, opts FontOptions, preloaded *PreloadSet) {
	sheet.Rules = a.resolveRules(sheet.Rules, doc, corpus, opts, preloaded)
}

func (a *FontAnalyzer) resolveRules(rules []*css.Rule, doc html.Document, corpus string, opts FontOptions, preloaded *PreloadSet) []*css.Rule {
	kept := rules[:0]
	for _, r := range rules {
		switch r.Kind {
		case css.FontFaceRule:
			if a.resolveFontFace(r, doc, corpus, opts, preloaded) {
				kept = append(kept, r)
			}

		case css.ContainerRule:
			r.Children = a.resolveRules(r.Children, doc, corpus, opts, preloaded)
			if len(r.Children) == 0 {
				continue
			}
			kept = append(kept, r)

		default:
			kept = append(kept, r)
		}
	}
	return kept
}

// resolveFontFace reports whether the rule survives, emitting a preload
// link as a side effect.
func (a *FontAnalyzer) resolveFontFace(r *css.Rule, doc html.Document, corpus string, opts FontOptions, preloaded *PreloadSet) bool {
	family, _ := r.Declaration("font-family")
	src, _ := r.Declaration("src")

	var fontURL string
	if m := fontURLRe.FindStringSubmatch(src); m != nil {
		fontURL = m[1]
	}

	if fontURL != "" && opts.Preload && preloaded.Add(fontURL) {
		attrs := []html.Attr{
			{Key: "rel", Val: "preload"},
			{Key: "as", Val: "font"},
			{Key: "href", Val: fontURL},
		}
		if strings.Contains(fontURL, "://") {
			attrs = append(attrs, html.Attr{Key: "crossorigin", Val: "anonymous"})
		}
		if head := doc.Head(); head != nil {
			head.AppendChild(doc.CreateElement("link", attrs...))
			a.log.Debug("preloading font", zap.String("url", fontURL), zap.String("family", family))
		}
	}

	keep := family != "" && fontURL != "" && opts.Inline && strings.Contains(corpus, family)
	if !keep {
		a.log.Debug("dropping font-face", zap.String("family", family), zap.String("url", fontURL))
	}
	return keep
}
