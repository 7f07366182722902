// Package models defines the prompt, query and result types shared by the
// storage, indexing, search and HTTP layers.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidInput marks request payloads that fail validation.
var ErrInvalidInput = errors.New("invalid input")

// Prompt is a shared AI prompt with its metadata.
type Prompt struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ToolUsed    []string  `json:"tool_used"`
	PromptText  string    `json:"prompt_text"`
	Tags        []string  `json:"tags"`
	Username    string    `json:"username,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PromptInput is the payload for creating a prompt.
type PromptInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ToolUsed    []string `json:"tool_used"`
	PromptText  string   `json:"prompt_text"`
	Tags        []string `json:"tags"`
	Username    string   `json:"username,omitempty"`
}

// Validate trims the input and checks required fields.
func (in *PromptInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.PromptText = strings.TrimSpace(in.PromptText)
	in.Username = strings.TrimSpace(in.Username)
	if in.Title == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
	}
	if in.PromptText == "" {
		return fmt.Errorf("%w: prompt_text cannot be empty", ErrInvalidInput)
	}
	in.ToolUsed = compact(in.ToolUsed)
	in.Tags = compact(in.Tags)
	return nil
}

// ToPrompt builds a Prompt with the given id from the input.
func (in *PromptInput) ToPrompt(id string) *Prompt {
	return &Prompt{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		ToolUsed:    in.ToolUsed,
		PromptText:  in.PromptText,
		Tags:        in.Tags,
		Username:    in.Username,
	}
}

// SearchableText is the text a prompt is embedded from: title, description,
// prompt text, tools and tags joined by single spaces.
func (p *Prompt) SearchableText() string {
	parts := []string{p.Title, p.Description, p.PromptText}
	parts = append(parts, p.ToolUsed...)
	parts = append(parts, p.Tags...)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// compact trims entries and drops empty ones. It never returns nil.
func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
