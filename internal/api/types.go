package api

import "encoding/json"

// QueueStatus is the admission-check response.
type QueueStatus struct {
	IsAvailable bool `json:"is_available"`
}

// CreateResponse is the job-submission response. Older backend builds return
// the identifier as "articleId", newer ones as "jobId"; both are accepted.
type CreateResponse struct {
	ArticleID string `json:"articleId"`
	JobID     string `json:"jobId"`
}

// ID returns the issued job identifier, preferring the older articleId field.
func (c CreateResponse) ID() string {
	if c.ArticleID != "" {
		return c.ArticleID
	}
	return c.JobID
}

// AnalysisResult is the poll response for a submitted job. CommentsSummary is
// a JSON-encoded string nested inside the JSON response; it is parsed
// defensively by the analysis package, not here. Metrics is kept raw for the
// same reason: its shape varies between backend builds.
type AnalysisResult struct {
	Status          string          `json:"status"`
	Title           string          `json:"title"`
	ArticleSummary  string          `json:"article_summary"`
	CommentsSummary string          `json:"comments_summary"`
	Metrics         json.RawMessage `json:"metrics"`
}

// TokenPair is the login response from auth/jwt/create/.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AccessToken is the refresh response from auth/jwt/refresh/.
type AccessToken struct {
	Access string `json:"access"`
}

// HistoryEntry is one past analysis belonging to the authenticated user.
type HistoryEntry struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

// HistoryPage is one page of the user's analysis history.
type HistoryPage struct {
	Results []HistoryEntry `json:"results"`
	Count   int            `json:"count"`
}

// RecentArticle is one entry from the public latest-articles listing.
type RecentArticle struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
}
