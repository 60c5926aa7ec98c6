package html_test

import (
	"strings"
	"testing"

	"github.com/vueneue/critters/internal/html"
)

func parseDoc(t *testing.T, src string) html.Document {
	t.Helper()
	doc, err := html.Parse(src)
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc
}

func TestQuery_Snapshot(t *testing.T) {
	doc := parseDoc(t, `<html><body><p></p><p></p></body></html>`)

	nodes := doc.Query("p")
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}

	// Mutating the tree must not invalidate the snapshot.
	nodes[0].Remove()
	if nodes[1].TagName() != "p" {
		t.Error("snapshot node invalidated by removal")
	}
	if got := doc.Query("p"); len(got) != 1 {
		t.Errorf("expected 1 node after removal, got %d", len(got))
	}
}

func TestQuery_InvalidSelectorMatchesNothing(t *testing.T) {
	doc := parseDoc(t, `<html><body><p></p></body></html>`)
	if got := doc.Query("p[unclosed"); len(got) != 0 {
		t.Errorf("invalid selector must match nothing, got %d nodes", len(got))
	}
}

func TestCreateAndInsertAfter(t *testing.T) {
	doc := parseDoc(t, `<html><head><link href="/a.css"></head><body></body></html>`)
	link := doc.Query("link")[0]

	style := doc.CreateElement("style", html.Attr{Key: "data-x", Val: "1"})
	link.InsertAfter(style)

	out, err := doc.HTML()
	if err != nil {
		t.Fatalf("failed to serialize: %v", err)
	}
	linkIdx := strings.Index(out, "<link")
	styleIdx := strings.Index(out, "<style")
	if styleIdx < linkIdx {
		t.Errorf("style not inserted after link:\n%s", out)
	}
	if v, _ := style.Attr("data-x"); v != "1" {
		t.Errorf("attribute lost: %q", v)
	}
}

func TestSetText_StyleIsLiteral(t *testing.T) {
	doc := parseDoc(t, `<html><head><style></style></head><body></body></html>`)
	style := doc.Query("style")[0]

	style.SetText(`a > b{content:"<"}`)

	out, err := doc.HTML()
	if err != nil {
		t.Fatalf("failed to serialize: %v", err)
	}
	if !strings.Contains(out, `a > b{content:"<"}`) {
		t.Errorf("style text must not be entity-escaped:\n%s", out)
	}
}

func TestAppendChild_Moves(t *testing.T) {
	doc := parseDoc(t, `<html><head><link href="/a.css"></head><body></body></html>`)
	link := doc.Query("link")[0]

	doc.Body().AppendChild(link)

	out, err := doc.HTML()
	if err != nil {
		t.Fatalf("failed to serialize: %v", err)
	}
	if strings.Count(out, "<link") != 1 {
		t.Errorf("move duplicated the node:\n%s", out)
	}
	bodyIdx := strings.Index(out, "<body")
	linkIdx := strings.Index(out, "<link")
	if linkIdx < bodyIdx {
		t.Errorf("link not moved into body:\n%s", out)
	}
}

func TestAttrRoundTrip(t *testing.T) {
	doc := parseDoc(t, `<html><body><a href="#" rel="nofollow"></a></body></html>`)
	a := doc.Query("a")[0]

	a.SetAttr("rel", "noopener")
	if v, _ := a.Attr("rel"); v != "noopener" {
		t.Errorf("expected updated rel, got %q", v)
	}

	a.RemoveAttr("href")
	if _, ok := a.Attr("href"); ok {
		t.Error("expected href removed")
	}

	a.SetAttr("target", "_blank")
	if v, _ := a.Attr("target"); v != "_blank" {
		t.Errorf("expected new attribute, got %q", v)
	}
}
