package analysis

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// parseCommentsSummary decodes the comments payload. The backend nests it as
// a JSON-encoded string inside the JSON poll response, so it is parsed
// defensively: a missing or malformed payload means "no comments", which is
// a valid terminal state, never an error.
func parseCommentsSummary(raw string) (SentimentCounts, []Cluster) {
	if strings.TrimSpace(raw) == "" {
		return SentimentCounts{}, nil
	}

	var payload struct {
		Analysis struct {
			Result SentimentCounts `json:"result"`
		} `json:"analysis"`
		Clusters struct {
			Result []Cluster `json:"result"`
		} `json:"clusters"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		log.Printf("unparseable comments payload, treating as no comments: %v", err)
		return SentimentCounts{}, nil
	}

	counts := payload.Analysis.Result
	if counts.Positive < 0 {
		counts.Positive = 0
	}
	if counts.Neutral < 0 {
		counts.Neutral = 0
	}
	if counts.Negative < 0 {
		counts.Negative = 0
	}

	var clusters []Cluster
	for _, c := range payload.Clusters.Result {
		if len(c.Keywords) == 0 || len(c.Comments) == 0 {
			continue
		}
		clusters = append(clusters, c)
	}
	return counts, clusters
}

// parseMetrics flattens the metrics object into named numeric scores. Its
// shape varies between backend builds (flat ROUGE numbers, nested BERTScore
// objects), so values are picked out defensively: top-level numbers keep
// their name, numbers one level down get a dotted name, anything else is
// dropped.
func parseMetrics(raw json.RawMessage) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}

	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}

	metrics := make(map[string]float64)
	for name, value := range values {
		switch v := value.(type) {
		case float64:
			metrics[name] = v
		case map[string]any:
			for sub, subValue := range v {
				if f, ok := subValue.(float64); ok {
					metrics[fmt.Sprintf("%s.%s", name, sub)] = f
				}
			}
		}
	}
	if len(metrics) == 0 {
		return nil
	}
	return metrics
}
