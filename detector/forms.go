package detector

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"github.com/use-agent/complyscan/models"
)

// Personal data kinds reported in ConsentForm.PersonalFields.
const (
	FieldEmail = "email"
	FieldPhone = "phone"
	FieldName  = "name"
)

var (
	emailNameRe = regexp.MustCompile(`(?i)(e-?mail|почт)`)
	phoneNameRe = regexp.MustCompile(`(?i)(phone|tel|mobile|телефон)`)
	nameNameRe  = regexp.MustCompile(`(?i)(^|[_\-\[\s])(name|fio|firstname|lastname|surname|fullname|first_name|last_name|full_name|имя|фио|фамилия)($|[_\-\]\s])|^(name|fio|имя|фио)$`)
)

// nonDataInputTypes never carry personal data.
var nonDataInputTypes = map[string]struct{}{
	"search": {}, "hidden": {}, "submit": {}, "button": {}, "reset": {},
	"checkbox": {}, "radio": {}, "image": {}, "file": {}, "range": {}, "color": {},
}

// FindConsentForms returns every form that collects personal data. Forms
// without a personal-data input (search boxes, filters) are ignored.
func FindConsentForms(doc *goquery.Document, base *url.URL) models.ConsentFormsFinding {
	f := models.ConsentFormsFinding{Forms: []models.ConsentForm{}}
	if doc == nil {
		return f
	}

	doc.Find("form").Each(func(i int, form *goquery.Selection) {
		fields := personalFields(form)
		if len(fields) == 0 {
			return
		}
		action, _ := form.Attr("action")
		if strings.TrimSpace(action) != "" {
			action = resolve(base, strings.TrimSpace(action))
		}
		f.Forms = append(f.Forms, models.ConsentForm{
			Index:          i + 1,
			Action:         action,
			PersonalFields: fields,
			HasCheckbox:    hasCheckbox(form),
			HasPolicyLink:  hasPolicyLink(form, base),
			HasPolicyText:  matchesAny(policyTextPatterns, visibleText(form)),
		})
	})
	f.Total = len(f.Forms)
	return f
}

// personalFields returns the personal data kinds a form asks for.
func personalFields(form *goquery.Selection) []string {
	var kinds []string
	form.Find("input, textarea").Each(func(_ int, in *goquery.Selection) {
		typ := strings.ToLower(strings.TrimSpace(in.AttrOr("type", "text")))
		if goquery.NodeName(in) == "textarea" {
			typ = "textarea"
		}
		if _, skip := nonDataInputTypes[typ]; skip {
			return
		}
		switch typ {
		case "email":
			kinds = append(kinds, FieldEmail)
			return
		case "tel":
			kinds = append(kinds, FieldPhone)
			return
		}
		name := in.AttrOr("name", "")
		switch {
		case emailNameRe.MatchString(name):
			kinds = append(kinds, FieldEmail)
		case phoneNameRe.MatchString(name):
			kinds = append(kinds, FieldPhone)
		case nameNameRe.MatchString(name):
			kinds = append(kinds, FieldName)
		}
	})
	return lo.Uniq(kinds)
}

func hasCheckbox(form *goquery.Selection) bool {
	found := false
	form.Find("input[type]").EachWithBreak(func(_ int, in *goquery.Selection) bool {
		found = strings.EqualFold(strings.TrimSpace(in.AttrOr("type", "")), "checkbox")
		return !found
	})
	return found
}

func hasPolicyLink(form *goquery.Selection, base *url.URL) bool {
	found := false
	form.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _, ok := linkTarget(a, base)
		if !ok {
			return true
		}
		lower := strings.ToLower(href)
		if lo.ContainsBy(policyHrefSubstrings, func(sub string) bool { return strings.Contains(lower, sub) }) ||
			matchesAny(policyTextPatterns, anchorText(a)) {
			found = true
			return false
		}
		return true
	})
	return found
}
