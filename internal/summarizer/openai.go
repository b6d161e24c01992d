package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/meetnotes/meeting-notes-api/internal/transcript"
)

// systemPrompt frames the model as a meeting notes assistant.
const systemPrompt = `You are an expert meeting notes assistant. Your job is to analyze meeting transcripts and extract key information in a structured format.

Be concise but comprehensive. Focus on actionable information.`

// userPromptTemplate asks for the four lists as a strict JSON object.
// The transcript chunk is appended after the TRANSCRIPT marker.
const userPromptTemplate = `Please analyze this meeting transcript and provide:

1. **Summary** (3-5 bullet points capturing the main topics discussed)
2. **Action Items** (tasks that need to be done, with owners if mentioned)
3. **Key Decisions** (any decisions that were made during the meeting)
4. **Follow-up Questions** (unresolved questions or topics that need further discussion)

Respond in JSON format exactly like this:
{
    "summary": ["bullet point 1", "bullet point 2", ...],
    "action_items": [
        {"task": "description", "owner": "person name or null if not specified"},
        ...
    ],
    "key_decisions": ["decision 1", "decision 2", ...],
    "follow_up_questions": ["question 1", "question 2", ...]
}

If any section has no items, use an empty array [].

TRANSCRIPT:
%s`

// Compile-time check that OpenAISummarizer implements Summarizer.
var _ Summarizer = (*OpenAISummarizer)(nil)

// OpenAISummarizer implements Summarizer using the OpenAI chat completion
// endpoint with a JSON-object response format.
type OpenAISummarizer struct {
	client      *openai.Client
	model       string
	temperature float32
}

// Option configures an OpenAISummarizer.
type Option func(*OpenAISummarizer)

// WithModel overrides the chat model (default gpt-4-turbo-preview).
func WithModel(model string) Option {
	return func(s *OpenAISummarizer) {
		s.model = model
	}
}

// NewOpenAISummarizer creates a summarizer backed by the given OpenAI client.
func NewOpenAISummarizer(client *openai.Client, opts ...Option) *OpenAISummarizer {
	s := &OpenAISummarizer{
		client: client,
		model:  openai.GPT4TurboPreview,
		// Low temperature keeps the extraction consistent between runs.
		temperature: 0.3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize sends one transcript chunk to the model and parses the reply.
func (s *OpenAISummarizer) Summarize(ctx context.Context, chunk string) (transcript.StructuredSummary, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(userPromptTemplate, chunk)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: s.temperature,
	})
	if err != nil {
		if isRateLimit(err) {
			return transcript.StructuredSummary{}, fmt.Errorf("%w: %s", ErrRateLimited, err.Error())
		}
		return transcript.StructuredSummary{}, fmt.Errorf("summarizer: chat request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return transcript.StructuredSummary{}, fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}

	return ParseResponse(resp.Choices[0].Message.Content)
}

// ParseResponse decodes the model's JSON reply into a StructuredSummary.
// Missing fields default to empty lists; anything that does not decode as
// the expected object shape is ErrMalformedResponse.
func ParseResponse(content string) (transcript.StructuredSummary, error) {
	var sum transcript.StructuredSummary
	dec := json.NewDecoder(strings.NewReader(content))
	if err := dec.Decode(&sum); err != nil {
		return transcript.StructuredSummary{}, fmt.Errorf("%w: %s", ErrMalformedResponse, err.Error())
	}

	if sum.Summary == nil {
		sum.Summary = []string{}
	}
	if sum.ActionItems == nil {
		sum.ActionItems = []transcript.ActionItem{}
	}
	if sum.KeyDecisions == nil {
		sum.KeyDecisions = []string{}
	}
	if sum.FollowUpQuestions == nil {
		sum.FollowUpQuestions = []string{}
	}

	return sum, nil
}

// isRateLimit reports whether the OpenAI error is an HTTP 429.
func isRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
