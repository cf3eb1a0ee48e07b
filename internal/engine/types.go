// Package engine runs the article processing pipeline: cleaning,
// length enforcement, paragraph-preserving translation, and batch
// fan-out under a shared rate budget.
package engine

import (
	"context"
	"time"
)

// Article is one scraped input article. It is owned by the caller and
// never mutated.
type Article struct {
	Index         int    `json:"index"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	ContentLength int    `json:"content_length"`
	WordCount     int    `json:"word_count"`
	CapturedAt    string `json:"captured_at"`
}

// Processed is the bilingual output record for one article. Field names
// match the export collaborator's expected payload.
type Processed struct {
	ID                string   `json:"id"`
	OriginalTitle     string   `json:"original_title"`
	TranslatedTitle   string   `json:"translated_title"`
	OriginalContent   string   `json:"original_content"`
	AdjustedContent   string   `json:"adjusted_content"`
	AdjustedWordCount int      `json:"adjusted_word_count"`
	TranslatedContent string   `json:"translated_content"`
	TargetLanguage    string   `json:"target_language"`
	Timestamp         string   `json:"processing_timestamp"`
	URL               string   `json:"url"`
	Success           bool     `json:"success"`
	IsNews            bool     `json:"is_news"`
	CleanRemovedEN    int      `json:"clean_removed_en"`
	CleanRemovedZH    int      `json:"clean_removed_zh"`
	CleanRemovedKinds []string `json:"clean_removed_kinds"`
	DetectedLanguage  string   `json:"detected_language,omitempty"`
	LanguageMismatch  bool     `json:"language_mismatch,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// BatchResult is the payload handed to the export collaborator.
type BatchResult struct {
	Articles []Processed   `json:"articles"`
	Metadata BatchMetadata `json:"metadata"`
}

// BatchMetadata summarizes a batch run. Processed counts every emitted
// record including rejects; Failed counts only hard-error conversions.
type BatchMetadata struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Dispatcher is the completion backend the engine calls through. An
// empty model delegates to the dispatcher's racing path. *llm.Client
// implements it; tests substitute fakes.
type Dispatcher interface {
	Call(ctx context.Context, systemPrompt, userPrompt, model string, maxTokens int) (string, error)
	RaceValidated(ctx context.Context, systemPrompt, userPrompt string, models []string, maxTokens int, valid func(string) bool) (string, string, bool, error)
	SetMinInterval(d time.Duration)
}
