package models

// SearchResult is a single merged hit from any search source.
type SearchResult struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Snippet        string  `json:"snippet"`
	Source         string  `json:"source"`
	RelevanceScore float64 `json:"relevanceScore"`
}

type SearchResponse struct {
	Success      bool             `json:"success"`
	Results      []SearchResult   `json:"results"`
	Query        string           `json:"query"`
	TotalResults int              `json:"totalResults"`
	SearchTime   int64            `json:"searchTime"` // milliseconds
	Error        string           `json:"error,omitempty"`
	Analysis     *LogicalAnalysis `json:"analysis,omitempty"`
}

type EvidenceStrength string

const (
	EvidenceWeak     EvidenceStrength = "weak"
	EvidenceModerate EvidenceStrength = "moderate"
	EvidenceStrong   EvidenceStrength = "strong"
)

type LogicalAnalysis struct {
	Premises         []string         `json:"premises"`
	Reasoning        []string         `json:"reasoning"`
	Conclusion       string           `json:"conclusion"`
	EvidenceStrength EvidenceStrength `json:"evidenceStrength"`
	LogicalFallacies []string         `json:"logicalFallacies"`
	CounterArguments []string         `json:"counterArguments"`
}
