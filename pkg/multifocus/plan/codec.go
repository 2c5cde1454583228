package plan

import (
	"strconv"
	"strings"
)

// Separator terminates every position in the persisted text form.
const Separator = ";"

// Format renders a list as decimal positions, each followed by a separator,
// e.g. "0;200;400;".
func Format(l List) string {
	var b strings.Builder
	for i := 0; i < l.Len(); i++ {
		b.WriteString(strconv.Itoa(l.At(i)))
		b.WriteString(Separator)
	}
	return b.String()
}

// ParseResult describes how much of a plans text was understood.
type ParseResult struct {
	// Parsed is the number of leading slots filled from the text.
	Parsed int
	// Complete is true when all requested slots were parsed.
	Complete bool
}

// Parse reads n leading "<int>;" tokens from text into the list.
//
// Parsing stops at the first malformed or missing token; slots from there
// on keep whatever value they had. The list length is set to n so that a
// partially parsed list still cycles through the slots it already held.
// n is clamped to [0, MaxPlans].
func Parse(text string, n int, into *List) ParseResult {
	if n < 0 {
		n = 0
	}
	if n > MaxPlans {
		n = MaxPlans
	}

	rest := text
	parsed := 0
	for parsed < n {
		end := strings.Index(rest, Separator)
		if end < 0 {
			break
		}
		v, err := strconv.Atoi(rest[:end])
		if err != nil {
			break
		}
		_ = into.SetAt(parsed, v)
		parsed++
		rest = rest[end+len(Separator):]
	}

	if n > 0 {
		_ = into.SetAt(n-1, into.positions[n-1])
	}
	into.Truncate(n)

	return ParseResult{Parsed: parsed, Complete: parsed == n}
}
