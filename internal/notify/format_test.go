package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meetnotes/meeting-notes-api/internal/transcript"
)

func fullNotes() transcript.StructuredSummary {
	return transcript.StructuredSummary{
		Summary: []string{"discussed roadmap", "reviewed budget"},
		ActionItems: []transcript.ActionItem{
			{Task: "write RFC", Owner: "sam"},
			{Task: "book meeting room"},
		},
		KeyDecisions:      []string{"ship on friday"},
		FollowUpQuestions: []string{"who owns on-call?"},
	}
}

func TestFormatText_AllSections(t *testing.T) {
	out := FormatText(fullNotes(), "standup.mp3")

	assert.True(t, strings.HasPrefix(out, "Meeting Notes: standup.mp3\n"))
	assert.Contains(t, out, "Summary\n- discussed roadmap\n- reviewed budget\n")
	assert.Contains(t, out, "Action Items\n- write RFC (sam)\n- book meeting room\n")
	assert.Contains(t, out, "Key Decisions\n- ship on friday\n")
	assert.Contains(t, out, "Follow-up Questions\n- who owns on-call?\n")
}

func TestFormatText_EmptySectionsOmitted(t *testing.T) {
	notes := transcript.StructuredSummary{
		Summary: []string{"only bullets"},
	}

	out := FormatText(notes, "standup.mp3")

	assert.Contains(t, out, "Summary")
	assert.NotContains(t, out, "Action Items")
	assert.NotContains(t, out, "Key Decisions")
	assert.NotContains(t, out, "Follow-up Questions")
}

func TestFormatText_AllEmptyJustTitle(t *testing.T) {
	out := FormatText(transcript.StructuredSummary{}, "standup.mp3")

	assert.Equal(t, "Meeting Notes: standup.mp3\n", out)
}

func TestFormatHTML_AllSections(t *testing.T) {
	out := FormatHTML(fullNotes(), "standup.mp3")

	assert.Contains(t, out, "<h2>Meeting Notes: standup.mp3</h2>")
	assert.Contains(t, out, "<h3>Summary</h3>")
	assert.Contains(t, out, "<li>write RFC <em>(sam)</em></li>")
	assert.Contains(t, out, "<li>book meeting room</li>")
	assert.Contains(t, out, "<h3>Key Decisions</h3>")
	assert.Contains(t, out, "<h3>Follow-up Questions</h3>")
}

func TestFormatHTML_EscapesValues(t *testing.T) {
	notes := transcript.StructuredSummary{
		Summary: []string{"<script>alert(1)</script>"},
	}

	out := FormatHTML(notes, "a<b>.mp3")

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "a&lt;b&gt;.mp3")
}

func TestFormatHTML_EmptySectionsOmitted(t *testing.T) {
	out := FormatHTML(transcript.StructuredSummary{
		KeyDecisions: []string{"use postgres"},
	}, "standup.mp3")

	assert.Contains(t, out, "<h3>Key Decisions</h3>")
	assert.NotContains(t, out, "<h3>Summary</h3>")
	assert.NotContains(t, out, "<h3>Action Items</h3>")
}
