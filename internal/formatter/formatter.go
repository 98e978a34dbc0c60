// Package formatter renders a posting as a Telegram MarkdownV2 message.
package formatter

import (
	"strings"

	"github.com/maxaizer/jobs-aggregator/internal/entities"
)

// reserved MarkdownV2 characters outside code blocks and link URLs,
// see https://core.telegram.org/bots/api#markdownv2-style
const escapeChars = "_*[]()~`>#+-=|{}.!\\"

// MaxDescriptionLength bounds the rendered description body, in runes.
const MaxDescriptionLength = 500

const truncationMarker = "..."

// EscapeMarkdown prefixes every reserved MarkdownV2 character with a
// backslash. An empty string escapes to an empty string.
func EscapeMarkdown(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(escapeChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// TruncateDescription cuts the text at a word boundary once it exceeds
// MaxDescriptionLength runes and appends a truncation marker. Text at or
// under the bound is returned verbatim.
func TruncateDescription(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxDescriptionLength {
		return text
	}

	cut := string(runes[:MaxDescriptionLength])
	if idx := strings.LastIndexAny(cut, " \n\t"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " \n\t") + truncationMarker
}

// Format renders the posting. Optional fields produce a line only when set;
// the link URL goes into the hyperlink slot unescaped, as MarkdownV2 does
// not apply escaping rules inside the URL part of a link.
func Format(posting entities.Posting) string {

	var b strings.Builder

	b.WriteString("🚀 *New IT Job Posting*\n\n")
	b.WriteString("*Title:* *" + EscapeMarkdown(posting.Title) + "*\n\n")

	writeField(&b, "Company", posting.Company)
	writeField(&b, "Location", posting.Location)
	writeField(&b, "Position Level", posting.PositionLevel)
	writeField(&b, "Experience", posting.Experience)
	writeField(&b, "Deadline", posting.Deadline)
	writeField(&b, "Posted Date", posting.PostedDate)

	// the web-board scraper sets description = title; only render bodies
	// that carry more than the headline
	if posting.Description != "" && posting.Description != posting.Title {
		b.WriteString("\n" + EscapeMarkdown(TruncateDescription(posting.Description)) + "\n")
	}

	b.WriteString("*Source:* " + EscapeMarkdown(posting.Source) + "\n\n")
	b.WriteString("[Apply Here / View Details](" + posting.Link + ")")

	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString("*" + label + ":* " + EscapeMarkdown(value) + "\n")
}
