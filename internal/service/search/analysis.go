package search

import (
	"fmt"
	"strings"

	"meligy/internal/models"
)

var reasoningSteps = []string{
	"Analyzing available evidence and sources",
	"Applying logical deduction and inductive reasoning",
	"Cross-referencing multiple reliable sources",
	"Evaluating argument strength and validity",
}

var counterArguments = []string{
	"Alternative interpretations of the data may exist",
	"Additional research might reveal different perspectives",
	"Context and situational factors could influence outcomes",
	"Methodological limitations might affect conclusions",
}

// Analyze builds a heuristic logical reading of the snippets found for topic.
func Analyze(topic string, information []string) models.LogicalAnalysis {
	premises := []string{}
	for _, info := range information {
		if strings.Contains(info, "because") || strings.Contains(info, "since") || strings.Contains(info, "given that") {
			premises = append(premises, info)
		}
	}
	return models.LogicalAnalysis{
		Premises:         premises,
		Reasoning:        append([]string(nil), reasoningSteps...),
		Conclusion:       conclusion(topic, information),
		EvidenceStrength: evidenceStrength(information),
		LogicalFallacies: fallacies(information),
		CounterArguments: append([]string(nil), counterArguments...),
	}
}

func conclusion(topic string, information []string) string {
	if len(information) == 0 {
		return fmt.Sprintf("Based on available information, more research is needed to draw definitive conclusions about %s.", topic)
	}
	for _, info := range information {
		if strings.Contains(info, "proven") || strings.Contains(info, "demonstrated") || strings.Contains(info, "confirmed") {
			return fmt.Sprintf("Based on the available evidence, there is strong support for the claims regarding %s.", topic)
		}
	}
	return fmt.Sprintf("The available information suggests trends and patterns related to %s, though further verification would strengthen these findings.", topic)
}

func evidenceStrength(information []string) models.EvidenceStrength {
	score := 0
	has := func(s string, subs ...string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}
	for _, info := range information {
		if has(info, "peer-reviewed", "scientific study") {
			score += 3
		}
		if has(info, "research", "data") {
			score += 2
		}
		if has(info, "expert", "authority") {
			score += 2
		}
		if has(info, "multiple sources") {
			score += 2
		}
		if has(info, "opinion", "believe") {
			score--
		}
	}
	switch {
	case score >= 6:
		return models.EvidenceStrong
	case score >= 3:
		return models.EvidenceModerate
	}
	return models.EvidenceWeak
}

// fallacies lists each detected fallacy once, in first-seen order.
func fallacies(information []string) []string {
	out := []string{}
	add := func(name string) {
		for _, f := range out {
			if f == name {
				return
			}
		}
		out = append(out, name)
	}
	for _, info := range information {
		lower := strings.ToLower(info)
		if strings.Contains(lower, "everyone knows") || strings.Contains(lower, "obviously") {
			add("Appeal to common belief")
		}
		if strings.Contains(lower, "always") || strings.Contains(lower, "never") {
			add("False dichotomy or overgeneralization")
		}
		if strings.Contains(lower, "because i said so") || strings.Contains(lower, "trust me") {
			add("Appeal to authority without credentials")
		}
	}
	return out
}
