package prune_test

import (
	"strings"
	"testing"

	"github.com/vueneue/critters/internal/css"
	"github.com/vueneue/critters/internal/prune"
)

func parseCSS(t *testing.T, input string) *css.Stylesheet {
	t.Helper()
	sheet, err := css.NewParser(nil).Parse([]byte(input))
	if err != nil {
		t.Fatalf("failed to parse CSS: %v", err)
	}
	return sheet
}

func TestPrune_NoMatchRemoval(t *testing.T) {
	doc := parseDoc(t, `<html><body><p class="intro"></p></body></html>`)
	sheet := parseCSS(t, `p { color: red; } .missing { color: blue; } p, .missing { margin: 0; }`)

	prune.NewPruner(nil).Prune(sheet, doc)

	out := sheet.Render(true)
	if strings.Contains(out, ".missing") {
		t.Errorf("unmatched selector survived: %q", out)
	}
	if !strings.Contains(out, "p{color:red}") {
		t.Errorf("matching rule missing: %q", out)
	}
	// The grouped rule keeps only the matching selector.
	if !strings.Contains(out, "p{margin:0}") {
		t.Errorf("expected grouped rule reduced to matching selector: %q", out)
	}
}

func TestPrune_SelectorListInFunctionalPseudoKept(t *testing.T) {
	doc := parseDoc(t, `<html><body><div></div></body></html>`)
	sheet := parseCSS(t, `div:not(.a, .b) { color: red; } span:is(.x, .y) { margin: 0; }`)

	prune.NewPruner(nil).Prune(sheet, doc)

	out := sheet.Render(true)
	if !strings.Contains(out, "div:not(.a, .b){color:red}") {
		t.Errorf("rule with nested selector list wrongly dropped: %q", out)
	}
	if strings.Contains(out, "span") {
		t.Errorf("rule without a matching element survived: %q", out)
	}
}

func TestPrune_EmptyContainerRemoval(t *testing.T) {
	doc := parseDoc(t, `<html><body><p></p></body></html>`)
	sheet := parseCSS(t, `@media screen { .missing { color: blue; } } @media print { p { margin: 0; } }`)

	prune.NewPruner(nil).Prune(sheet, doc)

	out := sheet.Render(true)
	if strings.Contains(out, "@media screen") {
		t.Errorf("emptied container survived: %q", out)
	}
	if !strings.Contains(out, "@media print{p{margin:0}}") {
		t.Errorf("non-empty container missing: %q", out)
	}
}

func TestPrune_Idempotence(t *testing.T) {
	doc := parseDoc(t, `<html><body><p></p><h1></h1></body></html>`)
	input := `p{color:red}@media screen{h1{font-size:2em}}`

	sheet := parseCSS(t, input)
	prune.NewPruner(nil).Prune(sheet, doc)
	first := sheet.Render(true)

	again := parseCSS(t, first)
	prune.NewPruner(nil).Prune(again, doc)
	second := again.Render(true)

	if first != input || second != first {
		t.Errorf("pruning clean input not stable:\ninput:  %q\nfirst:  %q\nsecond: %q", input, first, second)
	}
}

func TestPrune_FontCorpusFromSurvivingRulesOnly(t *testing.T) {
	doc := parseDoc(t, `<html><body><p></p></body></html>`)
	sheet := parseCSS(t, `p { font-family: "Kept Face"; } .missing { font-family: "Dropped Face"; }`)

	corpus := prune.NewPruner(nil).Prune(sheet, doc)

	if !strings.Contains(corpus, `"Kept Face"`) {
		t.Errorf("corpus missing surviving family: %q", corpus)
	}
	if strings.Contains(corpus, "Dropped Face") {
		t.Errorf("pruned rule contributed to corpus: %q", corpus)
	}
}

func TestPrune_FontFaceAndRawUntouched(t *testing.T) {
	doc := parseDoc(t, `<html><body></body></html>`)
	sheet := parseCSS(t, `@font-face { font-family: X; src: url(x.woff2); } @import url(a.css);`)

	prune.NewPruner(nil).Prune(sheet, doc)

	if len(sheet.Rules) != 2 {
		t.Fatalf("expected font-face and raw rules untouched, got %d rules", len(sheet.Rules))
	}
}
