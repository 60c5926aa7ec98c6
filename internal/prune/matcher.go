package prune

import (
	"regexp"
	"strings"

	"github.com/vueneue/critters/internal/html"
)

// pseudoRe matches pseudo-class and pseudo-element tokens, including a
// parenthesized argument (:nth-child(2n), :not(.x)).
var pseudoRe = regexp.MustCompile(`::?[a-zA-Z][a-zA-Z0-9-]*(\([^()]*\))?`)

// StripPseudo removes pseudo-class and pseudo-element tokens from a
// selector, leaving the structural and attribute parts in place.
// Whether the pseudo state can ever hold is irrelevant to criticality;
// only the existence of a qualifying base element matters.
func StripPseudo(selector string) string {
	return strings.TrimSpace(pseudoRe.ReplaceAllString(selector, ""))
}

// Matches reports whether at least one element in the document matches
// the selector once pseudo tokens are stripped. A selector that strips
// to nothing, or that the query engine rejects, matches nothing: a
// malformed selector drops its rule instead of aborting the run.
func Matches(selector string, doc html.Document) bool {
	stripped := StripPseudo(selector)
	if stripped == "" {
		return false
	}
	return len(doc.Query(stripped)) > 0
}
