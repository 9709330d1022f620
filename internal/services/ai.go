package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/models"
)

// AIService extracts task drafts from free text using OpenAI. Optional:
// when no API key is configured the service is nil and the endpoint is
// not registered.
type AIService struct {
	client *openai.Client
}

// GeneratedTask is a task draft extracted from text. Drafts are returned
// to the caller for review; nothing is persisted until they create the
// tasks themselves.
type GeneratedTask struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"due_date"`
}

// NewAIService creates a new AIService.
func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
	}
}

// GenerateTasksFromText analyzes text and extracts task drafts using OpenAI.
func (s *AIService) GenerateTasksFromText(ctx context.Context, text string) ([]GeneratedTask, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	currentTime := time.Now().Format("2006-01-02 15:04:05")
	prompt := fmt.Sprintf(`You are a task extraction assistant. Extract concrete, actionable tasks from the text below.

Current time: %s

Text:
%s

Return a JSON array of the extracted tasks in this exact shape:
[
  {
    "title": "short task title",
    "description": "detailed description of the task",
    "priority": "one of: low, medium, high, urgent",
    "due_date": "deadline in ISO8601 format, e.g. 2026-09-15T23:59:59Z, or null when no deadline is mentioned"
  }
]

Rules:
- Return an empty array [] when the text contains no tasks
- Convert relative deadlines ("tomorrow", "next week") into concrete timestamps
- due_date must be an ISO8601 string or null
- Return only the JSON, no surrounding prose`, currentTime, text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4o,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)

	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)

	var tasks []GeneratedTask
	if err := json.Unmarshal([]byte(content), &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	for i := range tasks {
		if !tasks[i].Priority.Valid() {
			tasks[i].Priority = models.TaskPriorityMedium
		}
	}
	if len(tasks) > constants.MaxAIGeneratedTasks {
		tasks = tasks[:constants.MaxAIGeneratedTasks]
	}

	return tasks, nil
}
