package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const maxNameKeywords = 3

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"for": true, "with": true, "without": true, "to": true, "of": true, "in": true,
	"on": true, "at": true, "by": true, "from": true, "into": true, "about": true,
	"my": true, "our": true, "your": true, "their": true, "its": true,
	"i": true, "we": true, "you": true, "it": true, "me": true, "us": true,
	"is": true, "are": true, "be": true, "was": true, "that": true, "this": true,
	"want": true, "need": true, "like": true, "some": true, "any": true,
	"build": true, "make": true, "create": true, "something": true,
	"simple": true, "basic": true, "using": true, "use": true, "based": true,
}

var titleCaser = cases.Title(language.English)

// TemplateName 项目名优先，其次是描述里的关键词，最后兜底为 "<repo> Template"
func TemplateName(repoName, description, projectName string) string {
	if p := strings.TrimSpace(projectName); p != "" {
		return p + " (from " + repoName + ")"
	}
	if kw := nameKeywords(description); len(kw) > 0 {
		return repoName + " - " + titleCaser.String(strings.Join(kw, " "))
	}
	return repoName + " Template"
}

func nameKeywords(description string) []string {
	words := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	var out []string
	seen := map[string]bool{}
	for _, w := range words {
		w = strings.Trim(w, "-")
		if len([]rune(w)) < 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == maxNameKeywords {
			break
		}
	}
	return out
}
