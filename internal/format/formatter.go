package format

import "strings"

// fillers are discarded wherever they appear, matched after lowercasing and
// stripping trailing punctuation.
var fillers = map[string]struct{}{
	"um":  {},
	"uh":  {},
	"umm": {},
	"uhh": {},
	"er":  {},
	"err": {},
	"hmm": {},
	"hm":  {},
}

// Formatter rewrites a raw transcript into shell-ready text: fillers
// removed, spoken symbol phrases replaced via longest match, and join
// behavior applied around each replacement.
type Formatter struct {
	table *Table
}

// NewFormatter builds a formatter over the given table; pass Builtin()
// optionally merged with user corrections.
func NewFormatter(table *Table) *Formatter {
	return &Formatter{table: table}
}

type emission struct {
	text string
	join Join
}

// Format rewrites the transcript. Plain text passes through untouched and a
// second application of Format to clean output is a no-op. Input that is
// nothing but fillers formats to the empty string.
func (f *Formatter) Format(raw string) string {
	tokens := strings.Fields(raw)
	tokens = stripFillers(tokens)
	if len(tokens) == 0 {
		return ""
	}

	emissions := f.substitute(tokens)
	return collapseSpaces(render(emissions))
}

func stripFillers(tokens []string) []string {
	kept := tokens[:0:0]
	for _, tok := range tokens {
		key := strings.TrimRight(strings.ToLower(tok), ",.!?;:")
		if _, ok := fillers[key]; ok {
			continue
		}
		kept = append(kept, tok)
	}
	return kept
}

// substitute walks the token stream matching the longest table phrase at
// each position, so "dot dot slash" wins over "dot dot" and "dot".
func (f *Formatter) substitute(tokens []string) []emission {
	var out []emission
	maxWords := f.table.MaxWords()
	for i := 0; i < len(tokens); {
		matched := false
		limit := maxWords
		if rem := len(tokens) - i; rem < limit {
			limit = rem
		}
		for n := limit; n >= 1; n-- {
			key := strings.ToLower(strings.Join(tokens[i:i+n], " "))
			if rule, ok := f.table.Lookup(key); ok {
				out = append(out, emission{text: rule.Literal, join: rule.Join})
				i += n
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, emission{text: tokens[i], join: JoinStandalone})
			i++
		}
	}
	return out
}

// render joins emissions, suppressing the space at a boundary when the left
// side is a prefix or either side is an infix.
func render(emissions []emission) string {
	var b strings.Builder
	for i, e := range emissions {
		if i > 0 {
			prev := emissions[i-1]
			if prev.join != JoinPrefix && prev.join != JoinInfix && e.join != JoinInfix {
				b.WriteByte(' ')
			}
		}
		b.WriteString(e.text)
	}
	return b.String()
}

// collapseSpaces squeezes runs of plain spaces to a single space and drops
// spaces hugging newline literals, leaving tabs and newlines themselves
// intact.
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	var last rune
	for _, r := range s {
		if r == ' ' {
			pending = true
			continue
		}
		if pending {
			pending = false
			if r != '\n' && last != 0 && last != '\n' {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
		last = r
	}
	return b.String()
}
