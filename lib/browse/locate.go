package browse

import (
	"shopmetrics-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Locator names a page role and the ordered list of selector
// strategies that may resolve it. The target dashboards change their
// markup often; each strategy is independently fallible and they are
// tried in sequence.
type Locator struct {
	Role      string
	Selectors []string
}

// First returns the first selection matched by any strategy, or nil.
func (l Locator) First(doc *goquery.Document) *goquery.Selection {
	for _, selector := range l.Selectors {
		sel := doc.Find(selector)
		if sel.Length() > 0 {
			return sel.First()
		}
	}
	return nil
}

// All returns every node matched by the first strategy that matches
// anything, or nil.
func (l Locator) All(doc *goquery.Document) *goquery.Selection {
	for _, selector := range l.Selectors {
		sel := doc.Find(selector)
		if sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

// Resolve returns the first selector that matches anything in the
// document. Callers use the resolved selector with live page actions.
func (l Locator) Resolve(doc *goquery.Document) (string, bool) {
	for _, selector := range l.Selectors {
		if doc.Find(selector).Length() > 0 {
			return selector, true
		}
	}
	return "", false
}

// Text resolves the locator and returns its trimmed text. ok=false
// when no strategy matched.
func (l Locator) Text(doc *goquery.Document) (string, bool) {
	sel := l.First(doc)
	if sel == nil {
		return "", false
	}
	return htmlutil.CleanText(sel), true
}
