// Package analysis asks an LLM for a short profile of the person in a
// conversation transcript.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/convoview/internal/conversation"
	"github.com/comigor/convoview/internal/llm"
	"github.com/comigor/convoview/internal/logger"
)

// ErrEmptyTranscript is returned when there is nothing to analyze.
var ErrEmptyTranscript = errors.New("transcript is empty")

// Profile is the analysis result.
type Profile struct {
	UserName       string   `json:"user_name" yaml:"user_name"`
	Mood           string   `json:"mood" yaml:"mood"`
	EmotionTrend   string   `json:"emotion_trend" yaml:"emotion_trend"`
	Topics         []string `json:"topics" yaml:"topics"`
	ProfileTags    []string `json:"profile_tags" yaml:"profile_tags"`
	PersonaSummary string   `json:"persona_summary" yaml:"persona_summary"`
}

const promptTemplate = `Analyze the following conversation transcript. Based *only* on the content of the transcript, generate a JSON object containing the following fields:
- "user_name": Infer the user's name if mentioned, otherwise use "Unknown".
- "mood": Identify the dominant overall mood (e.g., "lonely", "anxious", "grateful", "neutral", "sad", "frustrated", "happy").
- "emotion_trend": Describe any noticeable shift in emotion during the conversation (e.g., "started sad, ended neutral", "consistently positive").
- "topics": List key topics discussed. Max 5 topics.
- "profile_tags": Generate 3-5 hashtags describing the user's situation or personality based on the conversation.
- "persona_summary": Write a brief (1-2 sentences) summary of the user's state and potential needs as revealed in this conversation.

Respond only with the JSON object. If a field cannot be determined, use "Unknown", "neutral", an empty list or a generic statement. Do not invent information.

Transcript:
---
%s
---`

// Analyzer turns transcripts into profiles.
type Analyzer struct {
	client llm.Client
	model  string
}

// New creates an Analyzer using model on client.
func New(client llm.Client, model string) *Analyzer {
	return &Analyzer{client: client, model: model}
}

// Analyze profiles the conversation's transcript.
func (a *Analyzer) Analyze(ctx context.Context, detail *conversation.Detail) (*Profile, error) {
	transcript := conversation.FormatTranscript(detail)
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrEmptyTranscript
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(promptTemplate, transcript)},
		},
		Temperature:    0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	content := resp.Choices[0].Message.Content
	logger.L.Debug("analysis response received", "model", a.model, "length", len(content))
	return parseProfile(content)
}

// parseProfile accepts bare JSON or JSON wrapped in a markdown fence.
func parseProfile(content string) (*Profile, error) {
	body := strings.TrimSpace(content)
	if start := strings.Index(body, "{"); start > 0 {
		body = body[start:]
	}
	if end := strings.LastIndex(body, "}"); end >= 0 && end < len(body)-1 {
		body = body[:end+1]
	}

	var p Profile
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return &p, nil
}
