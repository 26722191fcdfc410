package registry

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"orgsync/internal/catalog"
	"orgsync/internal/queue"
)

// Record is an organizational entity as returned by the SIORG API.
type Record struct {
	Code       string `json:"codigo"`
	Name       string `json:"nome"`
	Acronym    string `json:"sigla"`
	ParentCode string `json:"codigoPai"`
	Category   string `json:"categoria"`
	Active     bool   `json:"ativo"`
	Kind       queue.EntityKind
}

// Fields projects the remote record onto the catalog field map, with the
// name normalized for display.
func (r *Record) Fields() map[string]string {
	return map[string]string{
		catalog.FieldName:       NormalizeName(r.Name),
		catalog.FieldAcronym:    strings.TrimSpace(r.Acronym),
		catalog.FieldParentCode: strings.TrimSpace(r.ParentCode),
		catalog.FieldCategory:   strings.TrimSpace(r.Category),
		catalog.FieldActive:     strconv.FormatBool(r.Active),
	}
}

var ptTitle = cases.Title(language.BrazilianPortuguese)

// Connectives that stay lowercase inside Portuguese institution names.
var lowercaseWords = map[string]struct{}{
	"de": {}, "da": {}, "do": {}, "das": {}, "dos": {}, "e": {}, "em": {}, "para": {},
}

// NormalizeName converts the all-caps names SIORG publishes into title case,
// keeping Portuguese connectives lowercase. Mixed-case names are assumed
// already curated and pass through untouched.
func NormalizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" || !isAllUpper(name) {
		return name
	}

	words := strings.Split(ptTitle.String(strings.ToLower(name)), " ")
	for i, word := range words {
		if i == 0 {
			continue
		}
		if _, ok := lowercaseWords[strings.ToLower(word)]; ok {
			words[i] = strings.ToLower(word)
		}
	}
	return strings.Join(words, " ")
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}
