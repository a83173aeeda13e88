package session

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"habrsum/internal/api"
	"habrsum/internal/store"
)

// RefreshHistory fetches the most recent history page and replaces the
// cached copy in memory and in the store. For an anonymous session the cache
// is simply cleared.
func (m *Manager) RefreshHistory(ctx context.Context) error {
	if !m.IsAuthenticated() {
		m.mu.Lock()
		m.history = nil
		m.mu.Unlock()
		return nil
	}

	url := fmt.Sprintf("%s?page=1&page_size=%d", m.client.Endpoint("list/"), m.pageSize)
	resp, err := m.Do(ctx, api.Request{Method: http.MethodGet, URL: url}, true)
	if err != nil {
		return err
	}

	var page api.HistoryPage
	if err := resp.Decode(&page); err != nil {
		return err
	}

	m.mu.Lock()
	m.history = page.Results
	m.mu.Unlock()

	cached := make([]store.HistoryEntry, 0, len(page.Results))
	for _, e := range page.Results {
		cached = append(cached, store.HistoryEntry{ID: e.ID, Title: e.Title, CreatedAt: e.CreatedAt})
	}
	if err := m.store.ReplaceHistory(cached); err != nil {
		log.Printf("caching history: %v", err)
	}
	return nil
}

// History returns a copy of the cached history page.
func (m *Manager) History() []api.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]api.HistoryEntry, len(m.history))
	copy(entries, m.history)
	return entries
}

// DeleteHistoryItem removes one past analysis and refetches the history
// page. The refetch is best-effort.
func (m *Manager) DeleteHistoryItem(ctx context.Context, id int64) error {
	_, err := m.Do(ctx, api.Request{
		Method: http.MethodDelete,
		URL:    m.client.Endpoint(fmt.Sprintf("article/%d/", id)),
	}, true)
	if err != nil {
		return err
	}
	if err := m.RefreshHistory(ctx); err != nil {
		log.Printf("refreshing history after delete: %v", err)
	}
	return nil
}
