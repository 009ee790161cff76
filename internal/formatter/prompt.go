package formatter

import (
	"fmt"
	"unicode/utf8"
)

const truncationMarker = "\n...(diff truncated)"

const promptTemplate = "Please generate a conventional git commit message for the following code changes. " +
	"The message should follow the standard format: a concise title (subject) line, followed by a blank line, " +
	"and then a more detailed explanatory body. The body MUST NOT exceed 50 characters. " +
	"Provide only the commit message text, without any introductory phrases.\n\n" +
	"Diff:\n```diff\n%s\n```"

// BuildPrompt embeds diff verbatim in the fixed instruction template.
func BuildPrompt(diff string) string {
	return fmt.Sprintf(promptTemplate, diff)
}

// FormatCommand renders the commit invocation suggested to the user.
func FormatCommand(message string) string {
	return fmt.Sprintf("git commit -m \"%s\"", message)
}

// TruncateDiff caps diff at limit bytes without splitting a UTF-8 sequence.
// A limit of zero or less disables the cap. The second result reports whether
// anything was cut.
func TruncateDiff(diff string, limit int) (string, bool) {
	if limit <= 0 || len(diff) <= limit {
		return diff, false
	}
	return truncateToValidUTF8(diff, limit) + truncationMarker, true
}

func truncateToValidUTF8(s string, limit int) string {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
