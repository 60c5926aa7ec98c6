package css

// RuleKind discriminates the rule variants a stylesheet can contain.
type RuleKind int

const (
	// StyleRule is a plain ruleset: selector list plus declarations.
	StyleRule RuleKind = iota
	// FontFaceRule is an @font-face block.
	FontFaceRule
	// ContainerRule is a conditional group rule (@media, @supports)
	// wrapping nested rules.
	ContainerRule
	// RawRule is any other at-rule (@import, @charset, @keyframes, ...)
	// carried through verbatim.
	RawRule
)

// Declaration is a single property: value pair. Value keeps the source
// text as written, including any !important suffix.
type Declaration struct {
	Property string
	Value    string
}

// Rule is one node of the stylesheet AST. Which fields are meaningful
// depends on Kind.
type Rule struct {
	Kind RuleKind

	// StyleRule
	Selectors []string

	// StyleRule and FontFaceRule
	Declarations []Declaration

	// ContainerRule
	AtName    string // "@media", "@supports"
	Condition string
	Children  []*Rule

	// RawRule
	Raw string
}

// Stylesheet is an ordered sequence of rules.
type Stylesheet struct {
	Rules []*Rule
}

// Empty reports whether the stylesheet contains no rules.
func (s *Stylesheet) Empty() bool {
	return len(s.Rules) == 0
}

// Declaration returns the value of the named property, or false when the
// rule has no such declaration. Lookup is by exact property name.
func (r *Rule) Declaration(property string) (string, bool) {
	for _, d := range r.Declarations {
		if d.Property == property {
			return d.Value, true
		}
	}
	return "", false
}
