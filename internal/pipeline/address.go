package pipeline

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var countrySuffix = regexp.MustCompile(`(?i)(?:^|[\s,]+)(?:u\.?s\.?a\.?|u\.?s\.?|united\s+states(?:\s+of\s+america)?)\s*$`)

// NormalizeAddress canonicalizes an address for comparison and cache keys:
// NFKC, trailing country suffix removed, whitespace collapsed, lowercased.
func NormalizeAddress(address string) string {
	s := norm.NFKC.String(address)
	s = strings.TrimSpace(s)
	s = countrySuffix.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, ", ")
	return cases.Lower(language.Und).String(s)
}

// Reconciliation is the outcome of comparing a cached address with a
// requested one.
type Reconciliation struct {
	Reuse bool
}

// Reconcile decides whether an identity fetched for cachedAddress can serve
// requestedAddress. Reuse holds when the first comma-delimited segment of
// either normalized address is contained in the other. The containment check
// is deliberately loose: "123 main st" matches "123 main st apt 4, ...", and
// also a different property whose address merely contains that segment.
func Reconcile(cachedAddress, requestedAddress string) Reconciliation {
	cached := NormalizeAddress(cachedAddress)
	requested := NormalizeAddress(requestedAddress)
	if cached == "" || requested == "" {
		return Reconciliation{}
	}
	return Reconciliation{
		Reuse: containsSegment(requested, firstSegment(cached)) ||
			containsSegment(cached, firstSegment(requested)),
	}
}

func firstSegment(s string) string {
	head, _, _ := strings.Cut(s, ",")
	return strings.TrimSpace(head)
}

func containsSegment(s, segment string) bool {
	return segment != "" && strings.Contains(s, segment)
}
