package summarize

import "github.com/skulwise/skulwise/internal/llm"

// SummarySchema constrains the model's study-material output.
var SummarySchema = &llm.Schema{
	Name:        "study-summary",
	Description: "A summary of study notes with key points and flashcards",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "Brief summary of the main concepts",
			},
			"keyPoints": map[string]any{
				"type":        "array",
				"minItems":    3,
				"maxItems":    5,
				"items":       map[string]any{"type": "string"},
				"description": "The most important points, one sentence each",
			},
			"flashcards": map[string]any{
				"type":     "array",
				"minItems": 5,
				"maxItems": 10,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{"type": "string"},
						"answer":   map[string]any{"type": "string"},
					},
					"required":             []any{"question", "answer"},
					"additionalProperties": false,
				},
				"description": "Question and answer pairs for review",
			},
		},
		"required":             []any{"summary", "keyPoints", "flashcards"},
		"additionalProperties": false,
	},
}

const systemPrompt = `You are an expert at summarizing study notes and creating educational content.
Your task is to:
1. Create a concise summary of the main concepts
2. Extract 3-5 key points
3. Generate 5-10 flashcards for study

Keep answers short enough to read aloud. Use plain text without markdown.`
