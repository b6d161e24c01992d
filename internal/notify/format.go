// Package notify renders completed meeting summaries as plain text and HTML
// and delivers them by email (Resend) or Slack incoming webhook.
package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/meetnotes/meeting-notes-api/internal/transcript"
)

// FormatText renders the summary as plain text for Slack messages and the
// text part of emails. Sections with no items are omitted entirely; the
// original filename appears verbatim in the title line.
func FormatText(notes transcript.StructuredSummary, filename string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Meeting Notes: %s\n", filename)

	if len(notes.Summary) > 0 {
		b.WriteString("\nSummary\n")
		for _, item := range notes.Summary {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}

	if len(notes.ActionItems) > 0 {
		b.WriteString("\nAction Items\n")
		for _, item := range notes.ActionItems {
			if item.Owner != "" {
				fmt.Fprintf(&b, "- %s (%s)\n", item.Task, item.Owner)
			} else {
				fmt.Fprintf(&b, "- %s\n", item.Task)
			}
		}
	}

	if len(notes.KeyDecisions) > 0 {
		b.WriteString("\nKey Decisions\n")
		for _, item := range notes.KeyDecisions {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}

	if len(notes.FollowUpQuestions) > 0 {
		b.WriteString("\nFollow-up Questions\n")
		for _, item := range notes.FollowUpQuestions {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}

	return b.String()
}

// FormatHTML renders the summary as a small standalone HTML document for
// email bodies. Same omission rules as FormatText; all values are escaped.
func FormatHTML(notes transcript.StructuredSummary, filename string) string {
	var b strings.Builder

	b.WriteString("<html><body style=\"font-family: sans-serif; color: #1a1a1a;\">\n")
	fmt.Fprintf(&b, "<h2>Meeting Notes: %s</h2>\n", html.EscapeString(filename))

	writeSection(&b, "Summary", notes.Summary)

	if len(notes.ActionItems) > 0 {
		b.WriteString("<h3>Action Items</h3>\n<ul>\n")
		for _, item := range notes.ActionItems {
			if item.Owner != "" {
				fmt.Fprintf(&b, "<li>%s <em>(%s)</em></li>\n",
					html.EscapeString(item.Task), html.EscapeString(item.Owner))
			} else {
				fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(item.Task))
			}
		}
		b.WriteString("</ul>\n")
	}

	writeSection(&b, "Key Decisions", notes.KeyDecisions)
	writeSection(&b, "Follow-up Questions", notes.FollowUpQuestions)

	b.WriteString("</body></html>")
	return b.String()
}

// writeSection writes a heading and bullet list, or nothing when empty.
func writeSection(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "<h3>%s</h3>\n<ul>\n", html.EscapeString(title))
	for _, item := range items {
		fmt.Fprintf(b, "<li>%s</li>\n", html.EscapeString(item))
	}
	b.WriteString("</ul>\n")
}
