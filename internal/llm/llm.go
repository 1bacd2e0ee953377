package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/acemcq/acemcq/internal/llm/prompts"
	"github.com/acemcq/acemcq/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// GenerationError reports why a generated batch of questions was rejected.
// The whole batch is discarded; callers never receive a partial exam.
type GenerationError struct {
	Errors []string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("question generation failed: %s", strings.Join(e.Errors, "; "))
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the endpoint is reachable and the credentials work.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// GenerateQuestions asks the LLM for a batch of multiple-choice questions
// on the given topic. The response must be a JSON array of complete
// questions; one attempt, no retries.
func (c *Client) GenerateQuestions(ctx context.Context, topic string, difficulty prompts.Difficulty, count int) ([]model.Question, error) {
	systemPrompt := prompts.BuildGeneratePrompt(topic, count, difficulty)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM generation response", "raw", raw)

	questions, err := parseQuestions(raw)
	if err != nil {
		return nil, err
	}

	return questions, nil
}

// Hint asks the LLM for a short tutoring hint for one question.
func (c *Client) Hint(ctx context.Context, question model.Question) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompts.BuildHintPrompt(question)},
		},
		Temperature: 0.5,
	})
	if err != nil {
		return "", fmt.Errorf("LLM hint call: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices for hint")
	}

	hint := strings.TrimSpace(resp.Choices[0].Message.Content)
	if hint == "" {
		return "", fmt.Errorf("LLM returned empty hint")
	}
	return hint, nil
}

// AnalyzeMistakes asks the LLM for a weak-area analysis over the questions
// the student answered incorrectly.
func (c *Client) AnalyzeMistakes(ctx context.Context, exam *model.Exam, wrong []int) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompts.BuildAnalysisPrompt(exam, wrong)},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("LLM analysis call: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices for analysis")
	}

	analysis := strings.TrimSpace(resp.Choices[0].Message.Content)
	if analysis == "" {
		return "", fmt.Errorf("LLM returned empty analysis")
	}
	return analysis, nil
}

// parseQuestions strips markdown fences, parses the JSON array and
// validates every question before accepting the batch.
func parseQuestions(raw string) ([]model.Question, error) {
	cleaned := stripCodeFences(raw)

	var questions []model.Question
	if err := json.Unmarshal([]byte(cleaned), &questions); err != nil {
		return nil, &GenerationError{Errors: []string{"response is not a JSON array of questions: " + err.Error()}}
	}

	if err := validateQuestions(questions); err != nil {
		return nil, err
	}

	// Renumber so imported exams always carry stable sequential ids.
	for i := range questions {
		questions[i].ID = i + 1
	}

	return questions, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

func validateQuestions(questions []model.Question) error {
	var errs []string

	if len(questions) == 0 {
		return &GenerationError{Errors: []string{"no questions in response"}}
	}

	for i, q := range questions {
		qNum := i + 1

		if strings.TrimSpace(q.Question) == "" {
			errs = append(errs, fmt.Sprintf("question %d: empty question text", qNum))
		}
		if len(q.Options) != model.OptionCount {
			errs = append(errs, fmt.Sprintf("question %d: expected %d options, got %d", qNum, model.OptionCount, len(q.Options)))
			continue
		}
		for j, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				errs = append(errs, fmt.Sprintf("question %d: option %d is empty", qNum, j+1))
			}
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= model.OptionCount {
			errs = append(errs, fmt.Sprintf("question %d: correctIndex %d outside [0,%d]", qNum, q.CorrectIndex, model.OptionCount-1))
		}
	}

	if len(errs) > 0 {
		return &GenerationError{Errors: errs}
	}

	return nil
}
