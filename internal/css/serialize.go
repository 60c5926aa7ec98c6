package css

import "strings"

// Render serializes the stylesheet back to CSS text. With compress set,
// output is compacted (no indentation, single-character separators);
// otherwise rules are pretty-printed one declaration per line.
func (s *Stylesheet) Render(compress bool) string {
	var b strings.Builder
	for _, r := range s.Rules {
		renderRule(&b, r, compress, 0)
	}
	return strings.TrimSpace(b.String())
}

func renderRule(b *strings.Builder, r *Rule, compress bool, depth int) {
	indent := ""
	if !compress {
		indent = strings.Repeat("  ", depth)
	}

	switch r.Kind {
	case StyleRule:
		if len(r.Selectors) == 0 {
			return
		}
		sep := ","
		if !compress {
			sep = ", "
		}
		b.WriteString(indent)
		b.WriteString(strings.Join(r.Selectors, sep))
		renderBlock(b, r.Declarations, compress, indent)

	case FontFaceRule:
		b.WriteString(indent)
		b.WriteString("@font-face")
		renderBlock(b, r.Declarations, compress, indent)

	case ContainerRule:
		if len(r.Children) == 0 {
			return
		}
		b.WriteString(indent)
		b.WriteString(r.AtName)
		if r.Condition != "" {
			b.WriteString(" ")
			b.WriteString(r.Condition)
		}
		if compress {
			b.WriteString("{")
		} else {
			b.WriteString(" {\n")
		}
		for _, c := range r.Children {
			renderRule(b, c, compress, depth+1)
		}
		b.WriteString(indent)
		b.WriteString("}")
		if !compress {
			b.WriteString("\n")
		}

	case RawRule:
		b.WriteString(indent)
		b.WriteString(r.Raw)
		if !compress {
			b.WriteString("\n")
		}
	}
}

func renderBlock(b *strings.Builder, decls []Declaration, compress bool, indent string) {
	if compress {
		b.WriteString("{")
		for i, d := range decls {
			if i > 0 {
				b.WriteString(";")
			}
			b.WriteString(d.Property)
			b.WriteString(":")
			b.WriteString(d.Value)
		}
		b.WriteString("}")
		return
	}

	b.WriteString(" {\n")
	for _, d := range decls {
		b.WriteString(indent)
		b.WriteString("  ")
		b.WriteString(d.Property)
		b.WriteString(": ")
		b.WriteString(d.Value)
		b.WriteString(";\n")
	}
	b.WriteString(indent)
	b.WriteString("}\n")
}
