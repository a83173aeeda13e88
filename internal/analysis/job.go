package analysis

import "strings"

// JobStatus is the lifecycle state of an analysis job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// SentimentCounts are the positive/neutral/negative comment tallies.
type SentimentCounts struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Total returns the number of classified comments.
func (s SentimentCounts) Total() int {
	return s.Positive + s.Neutral + s.Negative
}

// Cluster is one keyword-labeled group of comments. A normalized cluster
// always has non-empty keywords and comments.
type Cluster struct {
	Keywords []string `json:"keywords"`
	Comments []string `json:"comments"`
}

// Key returns the display label for the cluster.
func (c Cluster) Key() string {
	return strings.Join(c.Keywords, ", ")
}

// Job is one article analysis, from submission through its terminal state.
// Jobs are not persisted; they live only as long as the caller observes them.
type Job struct {
	SourceURL string
	ID        string
	Status    JobStatus
	Title     string
	Summary   string
	Metrics   map[string]float64
	Sentiment SentimentCounts
	Clusters  []Cluster
}
