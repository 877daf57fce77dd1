package format

import "strings"

// Join describes how a substituted literal attaches to its neighbors.
type Join int

const (
	// JoinStandalone emits the literal as its own space-delimited token.
	// Plain pass-through words behave the same way.
	JoinStandalone Join = iota

	// JoinPrefix attaches the literal to the immediately following token
	// with no intervening space ("dash" + "help" -> "-help").
	JoinPrefix

	// JoinInfix attaches the literal to both neighbors with no surrounding
	// space ("help" + "dot" + "py" -> "help.py").
	JoinInfix
)

// Rule is one replacement: the literal text and its join behavior.
type Rule struct {
	Literal string
	Join    Join
}

// Table maps lowercase spoken phrases (space-joined word sequences) to
// replacement rules. It is immutable after construction; user corrections
// are merged once at startup.
type Table struct {
	rules    map[string]Rule
	maxWords int
}

// NewTable builds a table from the given rules.
func NewTable(rules map[string]Rule) *Table {
	t := &Table{rules: make(map[string]Rule, len(rules))}
	for phrase, rule := range rules {
		t.add(phrase, rule)
	}
	return t
}

func (t *Table) add(phrase string, rule Rule) {
	key := strings.ToLower(strings.TrimSpace(phrase))
	if key == "" {
		return
	}
	t.rules[key] = rule
	if n := len(strings.Fields(key)); n > t.maxWords {
		t.maxWords = n
	}
}

// Lookup returns the rule for an exact lowercase phrase key.
func (t *Table) Lookup(phrase string) (Rule, bool) {
	r, ok := t.rules[phrase]
	return r, ok
}

// MaxWords returns the word count of the longest phrase in the table,
// bounding the formatter's longest-match scan.
func (t *Table) MaxWords() int { return t.maxWords }

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.rules) }

// Merge returns a new table containing the receiver's rules overlaid with
// the given entries; the overlay wins on exact key collision. Multi-word
// built-ins are unaffected by single-word overlays because longest-match
// resolution consults longer keys first.
func (t *Table) Merge(overlay map[string]Rule) *Table {
	merged := &Table{rules: make(map[string]Rule, len(t.rules)+len(overlay))}
	for k, v := range t.rules {
		merged.add(k, v)
	}
	for k, v := range overlay {
		merged.add(k, v)
	}
	return merged
}

// Builtin returns the default phrase mapping table covering the symbols a
// command-line dictation user speaks.
func Builtin() *Table {
	return NewTable(map[string]Rule{
		// Compound symbols; longest-match keeps these ahead of their parts.
		"dot dot slash": {"../", JoinPrefix},
		"dot slash":     {"./", JoinPrefix},
		"dot dot":       {"..", JoinPrefix},
		"double dash":   {"--", JoinPrefix},
		"dash dash":     {"--", JoinPrefix},

		"open paren":         {"(", JoinPrefix},
		"close paren":        {")", JoinInfix},
		"open parenthesis":   {"(", JoinPrefix},
		"close parenthesis":  {")", JoinInfix},
		"left paren":         {"(", JoinPrefix},
		"right paren":        {")", JoinInfix},
		"open bracket":       {"[", JoinPrefix},
		"close bracket":      {"]", JoinInfix},
		"left bracket":       {"[", JoinPrefix},
		"right bracket":      {"]", JoinInfix},
		"open brace":         {"{", JoinPrefix},
		"close brace":        {"}", JoinInfix},
		"open curly":         {"{", JoinPrefix},
		"close curly":        {"}", JoinInfix},
		"left brace":         {"{", JoinPrefix},
		"right brace":        {"}", JoinInfix},

		"double quote": {`"`, JoinStandalone},
		"single quote": {"'", JoinStandalone},
		"back tick":    {"`", JoinStandalone},
		"backtick":     {"`", JoinStandalone},

		"new line": {"\n", JoinStandalone},
		"newline":  {"\n", JoinStandalone},

		"and sign": {"&", JoinStandalone},

		"greater than or equal": {">=", JoinStandalone},
		"less than or equal":    {"<=", JoinStandalone},
		"not equal":             {"!=", JoinStandalone},
		"double equal":          {"==", JoinStandalone},
		"greater than":          {">", JoinStandalone},
		"less than":             {"<", JoinStandalone},
		"append to":             {">>", JoinStandalone},
		"redirect to":           {">", JoinStandalone},

		"at sign":     {"@", JoinInfix},
		"dollar sign": {"$", JoinPrefix},

		// Single words.
		"dash":        {"-", JoinPrefix},
		"hyphen":      {"-", JoinPrefix},
		"minus":       {"-", JoinPrefix},
		"dot":         {".", JoinInfix},
		"period":      {".", JoinInfix},
		"slash":       {"/", JoinInfix},
		"backslash":   {"\\", JoinInfix},
		"pipe":        {"|", JoinStandalone},
		"tilde":       {"~", JoinPrefix},
		"at":          {"@", JoinInfix},
		"hash":        {"#", JoinPrefix},
		"hashtag":     {"#", JoinPrefix},
		"pound":       {"#", JoinPrefix},
		"dollar":      {"$", JoinPrefix},
		"percent":     {"%", JoinInfix},
		"caret":       {"^", JoinPrefix},
		"ampersand":   {"&", JoinStandalone},
		"asterisk":    {"*", JoinPrefix},
		"star":        {"*", JoinPrefix},
		"underscore":  {"_", JoinInfix},
		"equals":      {"=", JoinInfix},
		"plus":        {"+", JoinPrefix},
		"colon":       {":", JoinInfix},
		"semicolon":   {";", JoinStandalone},
		"comma":       {",", JoinStandalone},
		"exclamation": {"!", JoinPrefix},
		"bang":        {"!", JoinPrefix},
		"quote":       {`"`, JoinStandalone},
		"tab":         {"\t", JoinStandalone},
		"enter":       {"\n", JoinStandalone},

		"question mark": {"?", JoinStandalone},
	})
}
