// Package lexer tokenises Railway source text into the four categories
// spec.md §1 assumes as the parser's input: identifiers, numeric literals,
// punctuators/operators, and logical line terminators. Comments and line
// continuations are stripped here so the parser never sees them.
package lexer

import (
	"strings"
	"unicode"

	"railway/pkg/railerr"
)

// Kind classifies a Token.
type Kind int

const (
	Identifier Kind = iota
	Number
	Punct
	Newline
	EOF
)

func (k Kind) String() string {
	switch k {
	case Identifier:
		return "identifier"
	case Number:
		return "number"
	case Punct:
		return "punctuator"
	case Newline:
		return "newline"
	case EOF:
		return "eof"
	default:
		return "unknown"
	}
}

// Token is one lexical unit. Line is 1-based, for parse-error diagnostics.
type Token struct {
	Kind Kind
	Text string
	Line int
}

// multi-character punctuators, longest first so the scanner is greedy.
var multiPuncts = []string{
	"**=", "//", "**", "<=", ">=", "!=", "+=", "-=", "*=", "/=", "%=", "^=", "&=", "|=", "=>",
}

// Lex tokenises src, returning an error on an unrecognised character (an
// unterminated comment is not an error; see stripComments). Newlines are emitted as Newline tokens except
// where a trailing backslash on the physical line requests a continuation
// (spec §6), in which case the newline is elided entirely.
func Lex(src string) ([]Token, error) {
	lines := splitLogicalLines(src)
	var toks []Token
	for lineNo, raw := range lines {
		line := stripComments(raw)
		lineToks, err := lexLine(line, lineNo+1)
		if err != nil {
			return nil, err
		}
		toks = append(toks, lineToks...)
		toks = append(toks, Token{Kind: Newline, Text: "\n", Line: lineNo + 1})
	}
	toks = append(toks, Token{Kind: EOF, Text: "", Line: len(lines) + 1})
	return toks, nil
}

// splitLogicalLines joins physical lines ending in a lone trailing '\'
// into one logical line, per spec §6's "\ at end of line continues a
// logical line".
func splitLogicalLines(src string) []string {
	physical := strings.Split(src, "\n")
	var logical []string
	var acc strings.Builder
	for _, p := range physical {
		trimmed := strings.TrimRight(p, "\r")
		if strings.HasSuffix(trimmed, "\\") {
			acc.WriteString(trimmed[:len(trimmed)-1])
			acc.WriteByte(' ')
			continue
		}
		acc.WriteString(trimmed)
		logical = append(logical, acc.String())
		acc.Reset()
	}
	if acc.Len() > 0 {
		logical = append(logical, acc.String())
	}
	return logical
}

// stripComments removes $...$ delimited spans from a single logical line.
// An odd number of '$' on a line leaves the comment open to end of line,
// matching the forgiving "comment runs to end of line if unclosed" reading
// of a free-form, line-oriented syntax.
func stripComments(line string) string {
	var out strings.Builder
	inComment := false
	for _, r := range line {
		if r == '$' {
			inComment = !inComment
			continue
		}
		if !inComment {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func lexLine(line string, lineNo int) ([]Token, error) {
	var toks []Token
	runes := []rune(line)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '.' && i+1 < len(runes) && (unicode.IsLetter(runes[i+1]) || runes[i+1] == '_'):
			j := i + 1
			for j < len(runes) && isIdentRune(runes[j]) {
				j++
			}
			toks = append(toks, Token{Kind: Identifier, Text: string(runes[i:j]), Line: lineNo})
			i = j
		case r == '#' && i+1 < len(runes) && (unicode.IsLetter(runes[i+1]) || runes[i+1] == '_' || runes[i+1] == '.'):
			// #name (Length) or #TID (NumThreads): keep the '#' attached so
			// the parser can distinguish it from a bare identifier.
			j := i + 1
			if runes[j] == '.' {
				j++
			}
			for j < len(runes) && isIdentRune(runes[j]) {
				j++
			}
			toks = append(toks, Token{Kind: Identifier, Text: string(runes[i:j]), Line: lineNo})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(runes) && isIdentRune(runes[j]) {
				j++
			}
			toks = append(toks, Token{Kind: Identifier, Text: string(runes[i:j]), Line: lineNo})
			i = j
		case unicode.IsDigit(r):
			j := i
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
			if j < len(runes) && runes[j] == '/' && j+1 < len(runes) && unicode.IsDigit(runes[j+1]) {
				j++
				for j < len(runes) && unicode.IsDigit(runes[j]) {
					j++
				}
			}
			toks = append(toks, Token{Kind: Number, Text: string(runes[i:j]), Line: lineNo})
			i = j
		default:
			matched := false
			for _, p := range multiPuncts {
				pr := []rune(p)
				if i+len(pr) <= len(runes) && string(runes[i:i+len(pr)]) == p {
					toks = append(toks, Token{Kind: Punct, Text: p, Line: lineNo})
					i += len(pr)
					matched = true
					break
				}
			}
			if matched {
				continue
			}
			if isSinglePunct(r) {
				toks = append(toks, Token{Kind: Punct, Text: string(r), Line: lineNo})
				i++
				continue
			}
			return nil, railerr.ParsingError("unrecognised character %q at line %d", r, lineNo)
		}
	}
	return toks, nil
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isSinglePunct(r rune) bool {
	switch r {
	case '(', ')', '[', ']', ',', '+', '-', '*', '/', '%', '<', '>', '=', '!', '^', '&', '|', '@':
		return true
	default:
		return false
	}
}
