package formatter

import (
	"strings"
	"testing"

	"github.com/maxaizer/jobs-aggregator/internal/entities"
	"github.com/stretchr/testify/assert"
)

func Test_EscapeMarkdown_EmptyString_ShouldStayEmpty(t *testing.T) {
	assert.Equal(t, "", EscapeMarkdown(""))
}

func Test_EscapeMarkdown_EscapesEveryReservedCharacter(t *testing.T) {

	escaped := EscapeMarkdown(escapeChars)

	for i, r := range escapeChars {
		_ = i
		assert.Contains(t, escaped, `\`+string(r))
	}
	// no reserved character may survive unescaped
	for i := 0; i < len(escaped); i++ {
		if strings.ContainsRune(escapeChars, rune(escaped[i])) && escaped[i] != '\\' {
			assert.Greater(t, i, 0)
			assert.Equal(t, byte('\\'), escaped[i-1])
		}
	}
}

func Test_EscapeMarkdown_LeavesPlainTextAlone(t *testing.T) {
	assert.Equal(t, "Backend Developer", EscapeMarkdown("Backend Developer"))
}

func Test_TruncateDescription_AtBoundaryLength_IsNotTruncated(t *testing.T) {

	body := strings.Repeat("a", MaxDescriptionLength)

	assert.Equal(t, body, TruncateDescription(body))
}

func Test_TruncateDescription_OneOverBoundary_CutsAtWordBoundary(t *testing.T) {

	// words of 9 chars + space; one char over the bound
	word := strings.Repeat("x", 9)
	var words []string
	for len(strings.Join(words, " ")) <= MaxDescriptionLength {
		words = append(words, word)
	}
	body := strings.Join(words, " ")

	truncated := TruncateDescription(body)

	assert.True(t, strings.HasSuffix(truncated, "..."))
	assert.LessOrEqual(t, len([]rune(truncated)), MaxDescriptionLength+len("..."))
	// cut lands between words, never mid-word
	trimmed := strings.TrimSuffix(truncated, "...")
	assert.False(t, strings.HasSuffix(trimmed, " "))
	for _, w := range strings.Fields(trimmed) {
		assert.Equal(t, word, w)
	}
}

func Test_Format_RendersOnlyPresentFields(t *testing.T) {

	posting := entities.Posting{
		Title:       "iOS Developer",
		Link:        "https://example.com/jobs/9",
		Description: "iOS Developer",
		Source:      "Jobs.ps",
		Location:    "Nablus",
	}

	message := Format(posting)

	assert.Contains(t, message, "*Title:* *iOS Developer*")
	assert.Contains(t, message, "*Location:* Nablus")
	assert.Contains(t, message, "*Source:* Jobs\\.ps")
	assert.NotContains(t, message, "Company")
	assert.NotContains(t, message, "Deadline")
	assert.NotContains(t, message, "Position Level")
}

func Test_Format_LinkSlotIsNeverEscaped(t *testing.T) {

	posting := entities.Posting{
		Title:       "QA Engineer",
		Link:        "https://example.com/jobs?id=1&ref=tg",
		Description: "QA Engineer",
		Source:      "Jobs.ps",
	}

	message := Format(posting)

	assert.Contains(t, message, "[Apply Here / View Details](https://example.com/jobs?id=1&ref=tg)")
}

func Test_Format_EscapesReservedCharactersInFields(t *testing.T) {

	posting := entities.Posting{
		Title:       "C++ Developer (Senior)",
		Company:     "Dot.Net House!",
		Link:        "https://example.com/jobs/2",
		Description: "C++ Developer (Senior)",
		Source:      "Jobs.ps",
	}

	message := Format(posting)

	assert.Contains(t, message, `C\+\+ Developer \(Senior\)`)
	assert.Contains(t, message, `Dot\.Net House\!`)
}

func Test_Format_LongBodyIsTruncatedAndRendered(t *testing.T) {

	body := "Frontend Developer\n" + strings.Repeat("details and requirements ", 40)
	posting := entities.Posting{
		Title:       "Frontend Developer",
		Link:        "https://t.me/channel/5",
		Description: body,
		Source:      "Telegram (@channel)",
	}

	message := Format(posting)

	assert.Contains(t, message, `\.\.\.`)
	assert.NotContains(t, message, body)
}
