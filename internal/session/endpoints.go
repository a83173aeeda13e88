package session

import (
	"context"
	"fmt"
	"net/http"

	"habrsum/internal/api"
)

// CheckQueueStatus asks whether the backend will admit a new analysis job.
// The check is always anonymous.
func (m *Manager) CheckQueueStatus(ctx context.Context) (bool, error) {
	resp, err := m.Do(ctx, api.Request{
		Method: http.MethodGet,
		URL:    m.client.Endpoint("status/"),
	}, false)
	if err != nil {
		return false, err
	}
	var status api.QueueStatus
	if err := resp.Decode(&status); err != nil {
		return false, err
	}
	return status.IsAvailable, nil
}

// CreateAnalysis submits a URL for analysis and returns the issued job
// identifier. With authenticated set, the request carries the session so the
// backend records the article in the user's history.
func (m *Manager) CreateAnalysis(ctx context.Context, url string, authenticated bool) (string, error) {
	resp, err := m.Do(ctx, api.Request{
		Method: http.MethodPost,
		URL:    m.client.Endpoint("create/"),
		Body:   map[string]string{"url": url},
	}, authenticated)
	if err != nil {
		return "", err
	}
	var created api.CreateResponse
	if err := resp.Decode(&created); err != nil {
		return "", err
	}
	id := created.ID()
	if id == "" {
		return "", fmt.Errorf("backend returned no job identifier")
	}
	return id, nil
}

// GetAnalysisResults fetches the current state of a submitted job.
func (m *Manager) GetAnalysisResults(ctx context.Context, id string) (*api.AnalysisResult, error) {
	resp, err := m.Do(ctx, api.Request{
		Method: http.MethodGet,
		URL:    m.client.Endpoint("article/" + id + "/"),
	}, false)
	if err != nil {
		return nil, err
	}
	var result api.AnalysisResult
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// LatestArticles fetches the public listing of recently analyzed articles.
func (m *Manager) LatestArticles(ctx context.Context) ([]api.RecentArticle, error) {
	resp, err := m.Do(ctx, api.Request{
		Method: http.MethodGet,
		URL:    m.client.Endpoint("latest/"),
	}, false)
	if err != nil {
		return nil, err
	}
	var articles []api.RecentArticle
	if err := resp.Decode(&articles); err != nil {
		return nil, err
	}
	return articles, nil
}
