package parser

import (
	"railway/pkg/lexer"
	"railway/pkg/railerr"
)

// checkSelfModification implements spec §4.4's P4 rule: a modification's
// left-hand name must not occur anywhere in the already-tokenised
// right-hand-side sequence, including inside nested index expressions.
// This is a syntactic, conservative check — it rejects some statements
// that would in fact be safe (e.g. ones where the RHS occurrence is
// provably unreachable) in favour of being cheap and exact to state.
func checkSelfModification(name string, rhs []lexer.Token) error {
	for _, t := range rhs {
		if t.Kind == lexer.Identifier && t.Text == name {
			return railerr.ModificationError("self-modification: %q appears on both sides of its own modification", name)
		}
	}
	return nil
}
