package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetnotes/meeting-notes-api/internal/record"
	"github.com/meetnotes/meeting-notes-api/internal/transcript"
)

// fakeSummarizer returns scripted results per call, in order.
type fakeSummarizer struct {
	results []transcript.StructuredSummary
	errs    []error
	calls   int
}

func (f *fakeSummarizer) Summarize(_ context.Context, _ string) (transcript.StructuredSummary, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return transcript.StructuredSummary{}, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return transcript.StructuredSummary{}, errors.New("unexpected call")
}

func newCompletedRecording(t *testing.T, store record.Store, fileID, transcriptText string) {
	t.Helper()
	rec := record.NewRecording(fileID, "standup.mp3", "/tmp/"+fileID+".mp3", 10)
	require.NoError(t, rec.MarkProcessing())
	require.NoError(t, rec.Complete(transcriptText))
	require.NoError(t, store.SaveRecording(context.Background(), rec))
}

func TestSummarization_Run_SingleChunk(t *testing.T) {
	store := record.NewMemoryStore()
	newCompletedRecording(t, store, "abc", "we talked about the roadmap")

	notes := transcript.StructuredSummary{
		Summary:      []string{"roadmap discussion"},
		ActionItems:  []transcript.ActionItem{{Task: "draft Q4 plan", Owner: "sam"}},
		KeyDecisions: []string{"freeze scope next week"},
	}
	sm := &fakeSummarizer{results: []transcript.StructuredSummary{notes}}

	p := NewSummarization(store, sm, testLogger())

	require.NoError(t, p.Run(context.Background(), "abc"))
	assert.Equal(t, 1, sm.calls)

	sum, err := store.GetSummaryForRecording(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, record.StatusCompleted, sum.Status)
	assert.Equal(t, notes, sum.Notes)
	assert.False(t, sum.CompletedAt.IsZero())
}

func TestSummarization_Run_MultiChunkMerges(t *testing.T) {
	store := record.NewMemoryStore()
	text := strings.Repeat("a", 60) + "\n\n" + strings.Repeat("b", 60)
	newCompletedRecording(t, store, "abc", text)

	sm := &fakeSummarizer{results: []transcript.StructuredSummary{
		{
			Summary:     []string{"first half", "shared point"},
			ActionItems: []transcript.ActionItem{{Task: "follow up", Owner: "ana"}},
		},
		{
			Summary:     []string{"shared point", "second half"},
			ActionItems: []transcript.ActionItem{{Task: "follow up", Owner: "bob"}},
		},
	}}

	p := NewSummarization(store, sm, testLogger(), WithMaxChunkChars(80))

	require.NoError(t, p.Run(context.Background(), "abc"))
	assert.Equal(t, 2, sm.calls)

	sum, _ := store.GetSummaryForRecording(context.Background(), "abc")
	assert.Equal(t, []string{"first half", "shared point", "second half"}, sum.Notes.Summary)
	// Duplicate task keeps the first owner.
	require.Len(t, sum.Notes.ActionItems, 1)
	assert.Equal(t, "ana", sum.Notes.ActionItems[0].Owner)
}

func TestSummarization_Run_UnknownRecording(t *testing.T) {
	store := record.NewMemoryStore()
	p := NewSummarization(store, &fakeSummarizer{}, testLogger())

	err := p.Run(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, record.ErrRecordingNotFound)
}

func TestSummarization_Run_TranscriptNotReady(t *testing.T) {
	store := record.NewMemoryStore()
	rec := record.NewRecording("abc", "standup.mp3", "/tmp/abc.mp3", 10)
	require.NoError(t, store.SaveRecording(context.Background(), rec))

	sm := &fakeSummarizer{}
	p := NewSummarization(store, sm, testLogger())

	err := p.Run(context.Background(), "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranscriptNotReady)
	assert.Zero(t, sm.calls)

	// No summary record is created when preconditions fail.
	_, err = store.GetSummaryForRecording(context.Background(), "abc")
	assert.ErrorIs(t, err, record.ErrSummaryNotFound)
}

func TestSummarization_Run_ExistingSummaryRejected(t *testing.T) {
	store := record.NewMemoryStore()
	newCompletedRecording(t, store, "abc", "transcript text")

	sm := &fakeSummarizer{results: []transcript.StructuredSummary{
		{Summary: []string{"notes"}},
	}}
	p := NewSummarization(store, sm, testLogger())

	require.NoError(t, p.Run(context.Background(), "abc"))

	err := p.Run(context.Background(), "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSummaryExists)
	assert.Equal(t, 1, sm.calls)
}

func TestSummarization_Run_FailurePersisted(t *testing.T) {
	store := record.NewMemoryStore()
	newCompletedRecording(t, store, "abc", "transcript text")

	p := NewSummarization(store,
		&fakeSummarizer{errs: []error{errors.New("model returned garbage")}},
		testLogger(),
	)

	err := p.Run(context.Background(), "abc")
	require.Error(t, err)

	sum, getErr := store.GetSummaryForRecording(context.Background(), "abc")
	require.NoError(t, getErr)
	assert.Equal(t, record.StatusFailed, sum.Status)
	assert.Contains(t, sum.Error, "model returned garbage")
}

func TestSummarization_Run_FailedSummaryCanRerun(t *testing.T) {
	store := record.NewMemoryStore()
	newCompletedRecording(t, store, "abc", "transcript text")

	sm := &fakeSummarizer{
		errs: []error{errors.New("boom")},
		results: []transcript.StructuredSummary{
			{},
			{Summary: []string{"second attempt"}},
		},
	}
	p := NewSummarization(store, sm, testLogger())

	require.Error(t, p.Run(context.Background(), "abc"))
	require.NoError(t, p.Run(context.Background(), "abc"))

	sum, _ := store.GetSummaryForRecording(context.Background(), "abc")
	assert.Equal(t, record.StatusCompleted, sum.Status)
	assert.Equal(t, []string{"second attempt"}, sum.Notes.Summary)
	assert.Empty(t, sum.Error)
}
