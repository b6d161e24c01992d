// Package transcript provides text chunking for token-limited summarization
// and merging of per-chunk structured summaries.
package transcript

// ActionItem is a single task extracted from a meeting, with an optional owner.
type ActionItem struct {
	// Task describes what needs to be done.
	Task string `json:"task"`
	// Owner is the person responsible, empty when nobody was named.
	Owner string `json:"owner,omitempty"`
}

// StructuredSummary holds the four lists extracted from a meeting transcript.
// The JSON shape matches what the summarization model is asked to return.
type StructuredSummary struct {
	// Summary is 3-5 bullet points capturing the main topics.
	Summary []string `json:"summary"`
	// ActionItems are tasks that need to be done, with owners if mentioned.
	ActionItems []ActionItem `json:"action_items"`
	// KeyDecisions are decisions made during the meeting.
	KeyDecisions []string `json:"key_decisions"`
	// FollowUpQuestions are unresolved topics needing further discussion.
	FollowUpQuestions []string `json:"follow_up_questions"`
}

// IsEmpty returns true if every list is empty.
func (s StructuredSummary) IsEmpty() bool {
	return len(s.Summary) == 0 &&
		len(s.ActionItems) == 0 &&
		len(s.KeyDecisions) == 0 &&
		len(s.FollowUpQuestions) == 0
}

// Clone creates a deep copy of the summary.
func (s StructuredSummary) Clone() StructuredSummary {
	c := StructuredSummary{
		Summary:           make([]string, len(s.Summary)),
		ActionItems:       make([]ActionItem, len(s.ActionItems)),
		KeyDecisions:      make([]string, len(s.KeyDecisions)),
		FollowUpQuestions: make([]string, len(s.FollowUpQuestions)),
	}
	copy(c.Summary, s.Summary)
	copy(c.ActionItems, s.ActionItems)
	copy(c.KeyDecisions, s.KeyDecisions)
	copy(c.FollowUpQuestions, s.FollowUpQuestions)
	return c
}

// Merge combines per-chunk summaries into one, concatenating each list in
// input order and then deduplicating. Bullets, decisions and questions are
// deduplicated by exact string equality keeping first occurrence; action
// items are deduplicated by task text only, keeping whichever owner came
// with the first occurrence. A single-element input passes through unchanged.
func Merge(summaries []StructuredSummary) StructuredSummary {
	if len(summaries) == 1 {
		return summaries[0]
	}

	var merged StructuredSummary
	for _, s := range summaries {
		merged.Summary = append(merged.Summary, s.Summary...)
		merged.ActionItems = append(merged.ActionItems, s.ActionItems...)
		merged.KeyDecisions = append(merged.KeyDecisions, s.KeyDecisions...)
		merged.FollowUpQuestions = append(merged.FollowUpQuestions, s.FollowUpQuestions...)
	}

	merged.Summary = dedupeStrings(merged.Summary)
	merged.KeyDecisions = dedupeStrings(merged.KeyDecisions)
	merged.FollowUpQuestions = dedupeStrings(merged.FollowUpQuestions)
	merged.ActionItems = dedupeActionItems(merged.ActionItems)

	return merged
}

// dedupeStrings removes exact duplicates preserving first-seen order.
func dedupeStrings(items []string) []string {
	if len(items) == 0 {
		return items
	}
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// dedupeActionItems removes duplicates by task description, first occurrence wins.
func dedupeActionItems(items []ActionItem) []ActionItem {
	if len(items) == 0 {
		return items
	}
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, ok := seen[item.Task]; ok {
			continue
		}
		seen[item.Task] = struct{}{}
		out = append(out, item)
	}
	return out
}
