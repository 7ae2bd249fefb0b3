// v0
// internal/fuzzy/rule.go
package fuzzy

import "fmt"

// Consequent names the output term a rule activates.
type Consequent struct {
	Variable string
	Term     string
}

// Rule is "IF antecedent THEN output is term".
type Rule struct {
	If   Expr
	Then Consequent
}

// NewRule is shorthand for Rule{If: antecedent, Then: Consequent{...}}.
func NewRule(antecedent Expr, outVariable, outTerm string) Rule {
	return Rule{If: antecedent, Then: Consequent{Variable: outVariable, Term: outTerm}}
}

func (r Rule) String() string {
	return fmt.Sprintf("IF %s THEN %s is %s", r.If, r.Then.Variable, r.Then.Term)
}

// RuleBase is an ordered list of rules. The order is kept for diagnostics only;
// inference results do not depend on it.
type RuleBase []Rule
