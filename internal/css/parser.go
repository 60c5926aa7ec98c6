package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	cssparse "github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS text into a Stylesheet AST.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css")}
}

// Parse parses CSS text into a Stylesheet. A tokenizer failure is fatal:
// a partially parsed sheet must not be serialized back.
func (p *Parser) Parse(data []byte) (*Stylesheet, error) {
	input := parse.NewInput(bytes.NewReader(data))
	cp := cssparse.NewParser(input, false)

	rules, err := p.parseRules(cp, false)
	if err != nil {
		return nil, err
	}
	p.log.Debug("parsed stylesheet", zap.Int("bytes", len(data)), zap.Int("rules", len(rules)))
	return &Stylesheet{Rules: rules}, nil
}

// parseRules consumes rules until end of input, or until the enclosing
// at-rule block closes when inBlock is set.
func (p *Parser) parseRules(cp *cssparse.Parser, inBlock bool) ([]*Rule, error) {
	var rules []*Rule
	var pending []string

	for {
		gt, _, data := cp.Next()

		switch gt {
		case cssparse.ErrorGrammar:
			if err := cp.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("parse css: %w", err)
			}
			// Unclosed blocks at end of input close implicitly.
			return rules, nil

		case cssparse.EndAtRuleGrammar:
			if inBlock {
				return rules, nil
			}

		case cssparse.QualifiedRuleGrammar:
			// Selector before the last one of a grouped selector list.
			pending = append(pending, splitSelectors(data, cp.Values())...)

		case cssparse.BeginRulesetGrammar:
			selectors := append(pending, splitSelectors(data, cp.Values())...)
			pending = nil
			rules = append(rules, &Rule{
				Kind:         StyleRule,
				Selectors:    selectors,
				Declarations: p.parseDeclarations(cp),
			})

		case cssparse.BeginAtRuleGrammar:
			name := string(data)
			cond := joinTokens(cp.Values())
			switch name {
			case "@media", "@supports":
				children, err := p.parseRules(cp, true)
				if err != nil {
					return nil, err
				}
				rules = append(rules, &Rule{
					Kind:      ContainerRule,
					AtName:    name,
					Condition: cond,
					Children:  children,
				})
			case "@font-face":
				rules = append(rules, &Rule{
					Kind:         FontFaceRule,
					Declarations: p.parseFontFace(cp),
				})
			default:
				// @keyframes and friends pass through untouched.
				p.log.Debug("passing through at-rule", zap.String("rule", name))
				rules = append(rules, &Rule{Kind: RawRule, Raw: p.rebuildAtRule(cp, name, cond)})
			}

		case cssparse.AtRuleGrammar:
			// Block-less at-rule, e.g. @import or @charset.
			text := string(data)
			if v := joinTokens(cp.Values()); v != "" {
				text += " " + v
			}
			rules = append(rules, &Rule{Kind: RawRule, Raw: text + ";"})
		}
	}
}

// parseDeclarations reads property declarations until the ruleset closes.
func (p *Parser) parseDeclarations(cp *cssparse.Parser) []Declaration {
	var decls []Declaration
	for {
		gt, _, data := cp.Next()
		switch gt {
		case cssparse.ErrorGrammar, cssparse.EndRulesetGrammar:
			return decls
		case cssparse.DeclarationGrammar, cssparse.CustomPropertyGrammar:
			decls = append(decls, Declaration{
				Property: string(data),
				Value:    joinTokens(cp.Values()),
			})
		}
	}
}

// parseFontFace reads the declarations of an @font-face block.
func (p *Parser) parseFontFace(cp *cssparse.Parser) []Declaration {
	var decls []Declaration
	for {
		gt, _, data := cp.Next()
		switch gt {
		case cssparse.ErrorGrammar, cssparse.EndAtRuleGrammar:
			return decls
		case cssparse.DeclarationGrammar, cssparse.CustomPropertyGrammar:
			decls = append(decls, Declaration{
				Property: string(data),
				Value:    joinTokens(cp.Values()),
			})
		}
	}
}

// rebuildAtRule reconstructs the full text of an at-rule block we do not
// model, so it can be emitted verbatim.
func (p *Parser) rebuildAtRule(cp *cssparse.Parser, name, cond string) string {
	var b strings.Builder
	b.WriteString(name)
	if cond != "" {
		b.WriteString(" ")
		b.WriteString(cond)
	}
	b.WriteString("{")

	depth := 1
	for depth > 0 {
		gt, _, data := cp.Next()
		switch gt {
		case cssparse.ErrorGrammar:
			b.WriteString(strings.Repeat("}", depth))
			return b.String()
		case cssparse.BeginAtRuleGrammar:
			depth++
			b.Write(data)
			if v := joinTokens(cp.Values()); v != "" {
				b.WriteString(" ")
				b.WriteString(v)
			}
			b.WriteString("{")
		case cssparse.BeginRulesetGrammar:
			depth++
			b.WriteString(selectorText(data, cp.Values()))
			b.WriteString("{")
		case cssparse.QualifiedRuleGrammar:
			b.WriteString(selectorText(data, cp.Values()))
			b.WriteString(",")
		case cssparse.AtRuleGrammar:
			b.Write(data)
			if v := joinTokens(cp.Values()); v != "" {
				b.WriteString(" ")
				b.WriteString(v)
			}
			b.WriteString(";")
		case cssparse.DeclarationGrammar, cssparse.CustomPropertyGrammar:
			b.Write(data)
			b.WriteString(":")
			b.WriteString(joinTokens(cp.Values()))
			b.WriteString(";")
		case cssparse.EndAtRuleGrammar, cssparse.EndRulesetGrammar:
			depth--
			b.WriteString("}")
		}
	}
	return b.String()
}

// selectorText builds one selector string from grammar data and tokens.
func selectorText(data []byte, values []cssparse.Token) string {
	var b strings.Builder
	b.Write(data)
	for _, v := range values {
		if v.TokenType == cssparse.WhitespaceToken {
			b.WriteString(" ")
			continue
		}
		b.Write(v.Data)
	}
	return strings.TrimSpace(b.String())
}

// splitSelectors builds selector text and splits grouped selectors on
// top-level commas. Commas nested in functional pseudo-classes
// (:not(.a, .b)), attribute brackets or quoted strings are part of a
// single selector and must not split it.
func splitSelectors(data []byte, values []cssparse.Token) []string {
	text := selectorText(data, values)

	var selectors []string
	var quote byte
	depth := 0
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			if depth > 0 {
				depth--
			}
		case c == ',' && depth == 0:
			if s := strings.TrimSpace(text[start:i]); s != "" {
				selectors = append(selectors, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		selectors = append(selectors, s)
	}
	return selectors
}

// joinTokens rebuilds value text from CSS tokens, collapsing whitespace
// runs to single spaces.
func joinTokens(tokens []cssparse.Token) string {
	var b strings.Builder
	space := false
	for _, t := range tokens {
		if t.TokenType == cssparse.WhitespaceToken {
			space = b.Len() > 0
			continue
		}
		if space {
			b.WriteString(" ")
			space = false
		}
		b.Write(t.Data)
	}
	return strings.TrimSpace(b.String())
}
