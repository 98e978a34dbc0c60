// Package filter decides whether free text describes an IT/software job.
// Matching is static keyword matching in English and Arabic; postings often
// use stylized Unicode letters (mathematical bold/italic blocks) to dress up
// titles, so text is NFKD-normalized before matching.
package filter

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var englishKeywords = []string{
	"developer",
	"engineer",
	"qa",
	"sdet",
	"programmer",
	"data",
	"frontend",
	"backend",
	"fullstack",
	"full stack",
	"devops",
	"software",
	"react",
	"python",
	"java",
	"ios",
	"android",
	"ui/ux",
	"sysadmin",
	"cybersecurity",
	"security",
	"network",
	"cloud",
	"aws",
	"azure",
	"docker",
	"kubernetes",
	"machine learning",
	"sql",
	"database",
	"linux",
	"information technology",
}

var arabicKeywords = []string{
	"مطور",
	"مبرمج",
	"برمجيات",
	"هندسة",
	"تكنولوجيا",
	"بيانات",
	"سيبراني",
	"جودة",
	"فحص",
	"تقنية",
	"حاسوب",
	"شبكات",
	"تطبيقات",
}

// English terms match on whole-word boundaries so that e.g. the pronoun
// "it" in ordinary prose never matches. Arabic affixation defeats word
// boundaries, so Arabic terms match by substring instead.
var englishRegex = compileEnglishPattern()

func compileEnglishPattern() *regexp.Regexp {
	quoted := make([]string, len(englishKeywords))
	for i, kw := range englishKeywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

type Filter struct{}

func New() *Filter {
	return &Filter{}
}

// Normalize collapses stylized Unicode variants to their compatibility
// forms (NFKD), e.g. mathematical bold letters to plain ASCII.
func Normalize(text string) string {
	return norm.NFKD.String(text)
}

// IsRelevant reports whether the text mentions any IT keyword. Empty text
// is never relevant.
func (f *Filter) IsRelevant(text string) bool {
	if text == "" {
		return false
	}

	normalized := Normalize(text)
	if englishRegex.MatchString(normalized) {
		return true
	}

	for _, kw := range arabicKeywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}
