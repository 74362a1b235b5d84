package models

import "time"

type ResponseStyle string

const (
	StyleFormal    ResponseStyle = "formal"
	StyleCasual    ResponseStyle = "casual"
	StyleTechnical ResponseStyle = "technical"
)

type UserPattern struct {
	Keywords  []string  `json:"keywords"`
	Responses []string  `json:"responses"`
	Frequency int       `json:"frequency"`
	LastUsed  time.Time `json:"lastUsed"`
	Context   []string  `json:"context"`
}

type Preferences struct {
	Language      string         `json:"language"`
	ResponseStyle ResponseStyle  `json:"responseStyle"`
	Topics        map[string]int `json:"topics"`
}

// LearningProfile is advisory only; nothing validates it against user intent.
type LearningProfile struct {
	UserPatterns map[string]*UserPattern `json:"userPatterns"`
	Preferences  Preferences             `json:"preferences"`
	PersonalInfo map[string]string       `json:"personalInfo"`
	LastUpdated  time.Time               `json:"lastUpdated"`
}

type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

type LearningStats struct {
	TotalPatterns     int           `json:"totalPatterns"`
	TotalInteractions int           `json:"totalInteractions"`
	TopTopics         []TopicCount  `json:"topTopics"`
	PreferredLanguage string        `json:"preferredLanguage"`
	ResponseStyle     ResponseStyle `json:"responseStyle"`
}
