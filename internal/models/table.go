package models

type TableStyle string

const (
	StyleScientific  TableStyle = "scientific"
	StyleBusiness    TableStyle = "business"
	StyleEducational TableStyle = "educational"
	StyleComparison  TableStyle = "comparison"
)

type TableRequest struct {
	Topic   string     `json:"topic"`
	Columns []string   `json:"columns"`
	Rows    []string   `json:"rows"`
	Data    [][]string `json:"data,omitempty"`
	Style   TableStyle `json:"style"`
}

type TableResponse struct {
	Success           bool     `json:"success"`
	TableHTML         string   `json:"tableHtml"`
	Explanation       string   `json:"explanation"`
	Summary           string   `json:"summary"`
	MindMapPrinciples []string `json:"mindMapPrinciples"`
	Error             string   `json:"error,omitempty"`
}
