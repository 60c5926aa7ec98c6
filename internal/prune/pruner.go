package prune

import (
	"strings"

	"go.uber.org/zap"

	"github.com/vueneue/critters/internal/css"
	"github.com/vueneue/critters/internal/html"
)

// Pruner reduces a stylesheet to the rules that match a DOM snapshot.
type Pruner struct {
	log *zap.Logger
}

// NewPruner creates a new rule pruner.
func NewPruner(log *zap.Logger) *Pruner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pruner{log: log.Named("prune")}
}

// Prune walks the stylesheet top to bottom, drops every selector that
// matches no element in the document, then every rule and container
// left empty. Font-face rules are deferred to ResolveFonts. The return
// value is the font-usage corpus: the concatenated values of every
// font-related declaration surviving the prune, collected in the same
// pass so rules pruned away contribute no font names.
func (p *Pruner) Prune(sheet *css.Stylesheet, doc html.Document) string {
	var corpus strings.Builder
	sheet.Rules = p.pruneRules(sheet.Rules, doc, &corpus)
	return corpus.String()
}

func (p *Pruner) pruneRules(rules []*css.Rule, doc html.Document, corpus *strings.Builder) []*css.Rule {
	kept := rules[:0]
	for _, r := range rules {
		switch r.Kind {
		case css.StyleRule:
			matched := r.Selectors[:0]
			for _, sel := range r.Selectors {
				if Matches(sel, doc) {
					matched = append(matched, sel)
				}
			}
			if len(matched) == 0 {
				p.log.Debug("dropping rule", zap.Strings("selectors", r.Selectors))
				continue
			}
			r.Selectors = matched
			for _, d := range r.Declarations {
				if strings.Contains(strings.ToLower(d.Property), "font") {
					corpus.WriteString(d.Value)
					corpus.WriteString(" ")
				}
			}
			kept = append(kept, r)

		case css.ContainerRule:
			r.Children = p.pruneRules(r.Children, doc, corpus)
			if len(r.Children) == 0 {
				p.log.Debug("dropping empty container", zap.String("at", r.AtName), zap.String("condition", r.Condition))
				continue
			}
			kept = append(kept, r)

		default:
			// Font-face rules are resolved in the second pass; raw
			// at-rules are carried through untouched.
			kept = append(kept, r)
		}
	}
	return kept
}
