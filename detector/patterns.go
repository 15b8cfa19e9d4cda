package detector

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Pattern is one entry of an ordered regex bank.
type Pattern struct {
	Label string
	Re    *regexp.Regexp
}

// SelectorPattern is one entry of an ordered CSS selector bank.
type SelectorPattern struct {
	Label    string
	Selector string
	matcher  cascadia.Selector
}

func pattern(label, expr string) Pattern {
	return Pattern{Label: label, Re: regexp.MustCompile(expr)}
}

// selectors compiles a selector bank. Banks are package-level literals, so a
// bad selector is a programming error and panics at init.
func selectors(pairs ...string) []SelectorPattern {
	if len(pairs)%2 != 0 {
		panic("detector: selectors needs label/selector pairs")
	}
	out := make([]SelectorPattern, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, SelectorPattern{
			Label:    pairs[i],
			Selector: pairs[i+1],
			matcher:  cascadia.MustCompile(pairs[i+1]),
		})
	}
	return out
}

// firstMatch returns the first pattern in bank that matches s.
func firstMatch(bank []Pattern, s string) (Pattern, bool) {
	for _, p := range bank {
		if p.Re.MatchString(s) {
			return p, true
		}
	}
	return Pattern{}, false
}

// matchesAny reports whether any pattern in bank matches s.
func matchesAny(bank []Pattern, s string) bool {
	_, ok := firstMatch(bank, s)
	return ok
}

// firstSelector tries bank in order and returns the first entry with at
// least one element in doc accepted by keep, and that element.
func firstSelector(doc *goquery.Document, bank []SelectorPattern, keep func(*goquery.Selection) bool) (SelectorPattern, *goquery.Selection, bool) {
	if doc == nil {
		return SelectorPattern{}, nil, false
	}
	for _, sp := range bank {
		var hit *goquery.Selection
		doc.FindMatcher(sp.matcher).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if keep == nil || keep(s) {
				hit = s
				return false
			}
			return true
		})
		if hit != nil {
			return sp, hit, true
		}
	}
	return SelectorPattern{}, nil, false
}
