package models

type ImageResult struct {
	Success         bool   `json:"success"`
	ImageURL        string `json:"imageUrl,omitempty"`
	Error           string `json:"error,omitempty"`
	CorrectedPrompt string `json:"correctedPrompt,omitempty"`
}
