// v0
// internal/ruleset/parse.go
package ruleset

import (
	"fmt"
	"strings"
	"unicode"

	"nrgchamp/cracfuzzy/internal/fuzzy"
)

// ParseExpr parses an antecedent:
//
//	expr    = and { "or" and }
//	and     = primary { "and" primary }
//	primary = "(" expr ")" | name "is" term
//
// Keywords are case-insensitive. AND binds tighter than OR.
func ParseExpr(s string) (fuzzy.Expr, error) {
	p := &parser{toks: tokenize(s)}
	if len(p.toks) == 0 {
		return fuzzy.Expr{}, fmt.Errorf("%w: empty antecedent", ErrSyntax)
	}
	e, err := p.or()
	if err != nil {
		return fuzzy.Expr{}, err
	}
	if p.pos != len(p.toks) {
		return fuzzy.Expr{}, fmt.Errorf("%w: unexpected %q in %q", ErrSyntax, p.toks[p.pos], s)
	}
	return e, nil
}

func tokenize(s string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '(' || r == ')':
			flush()
			toks = append(toks, string(r))
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

type parser struct {
	toks []string
	pos  int
}

func (p *parser) peekKeyword(kw string) bool {
	return p.pos < len(p.toks) && strings.EqualFold(p.toks[p.pos], kw)
}

func (p *parser) or() (fuzzy.Expr, error) {
	left, err := p.and()
	if err != nil {
		return fuzzy.Expr{}, err
	}
	for p.peekKeyword("or") {
		p.pos++
		right, err := p.and()
		if err != nil {
			return fuzzy.Expr{}, err
		}
		left = fuzzy.Or(left, right)
	}
	return left, nil
}

func (p *parser) and() (fuzzy.Expr, error) {
	left, err := p.primary()
	if err != nil {
		return fuzzy.Expr{}, err
	}
	for p.peekKeyword("and") {
		p.pos++
		right, err := p.primary()
		if err != nil {
			return fuzzy.Expr{}, err
		}
		left = fuzzy.And(left, right)
	}
	return left, nil
}

func (p *parser) primary() (fuzzy.Expr, error) {
	if p.pos >= len(p.toks) {
		return fuzzy.Expr{}, fmt.Errorf("%w: unexpected end of antecedent", ErrSyntax)
	}
	if p.toks[p.pos] == "(" {
		p.pos++
		e, err := p.or()
		if err != nil {
			return fuzzy.Expr{}, err
		}
		if p.pos >= len(p.toks) || p.toks[p.pos] != ")" {
			return fuzzy.Expr{}, fmt.Errorf("%w: missing )", ErrSyntax)
		}
		p.pos++
		return e, nil
	}
	if p.pos+3 > len(p.toks) {
		return fuzzy.Expr{}, fmt.Errorf("%w: expected \"<variable> is <term>\"", ErrSyntax)
	}
	name, kw, term := p.toks[p.pos], p.toks[p.pos+1], p.toks[p.pos+2]
	if !strings.EqualFold(kw, "is") || isReserved(name) || isReserved(term) {
		return fuzzy.Expr{}, fmt.Errorf("%w: expected \"<variable> is <term>\", got %q %q %q", ErrSyntax, name, kw, term)
	}
	p.pos += 3
	return fuzzy.Is(name, term), nil
}

func isReserved(tok string) bool {
	switch strings.ToLower(tok) {
	case "(", ")", "and", "or", "is":
		return true
	}
	return false
}
