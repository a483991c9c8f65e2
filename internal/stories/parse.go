package stories

import (
	"strings"
	"unicode/utf8"

	"project-management-api/internal/models"
)

const (
	// MinStoryLength is the exclusive lower bound on an accepted line.
	MinStoryLength = 20
	// MaxTitleLength caps a story title.
	MaxTitleLength = 200

	benefitSeparator = ", so that "
)

// SplitLines returns the trimmed non-empty lines of text in order.
func SplitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// ParseStory turns one generated line into a story. Lines of
// MinStoryLength characters or fewer are rejected.
func ParseStory(line string) (models.UserStory, bool) {
	if utf8.RuneCountInString(line) <= MinStoryLength {
		return models.UserStory{}, false
	}

	story := models.UserStory{Description: line}
	title, benefit, found := strings.Cut(line, benefitSeparator)
	if found {
		story.AcceptanceCriteria = &benefit
	}
	story.Title = truncate(title, MaxTitleLength)
	return story, true
}

// ParseStories parses every line, skipping rejected ones.
func ParseStories(lines []string) []models.UserStory {
	out := make([]models.UserStory, 0, len(lines))
	for _, line := range lines {
		if story, ok := ParseStory(line); ok {
			out = append(out, story)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
