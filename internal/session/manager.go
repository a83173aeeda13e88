// Package session owns the credential lifecycle: login, registration,
// logout, transparent access-token refresh, and the authorized-request
// primitive every protected call goes through. Tokens are mutated only here
// and mirrored to the store so a session survives across invocations.
package session

import (
	"context"
	"log"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"habrsum/internal/api"
	"habrsum/internal/store"
)

// Manager holds the current session and performs authenticated requests.
type Manager struct {
	client   *api.Client
	store    *store.Store
	pageSize int

	mu       sync.Mutex
	username string
	access   string
	refresh  string
	history  []api.HistoryEntry

	// Coalesces concurrent refresh attempts into one in-flight call.
	refreshGroup singleflight.Group
}

// New creates a manager backed by the given transport and store. pageSize is
// the history page fetched and cached (minimum 1).
func New(client *api.Client, st *store.Store, pageSize int) *Manager {
	if pageSize < 1 {
		pageSize = 10
	}
	return &Manager{client: client, store: st, pageSize: pageSize}
}

// Load re-hydrates the session from the store. An incomplete persisted
// session is discarded rather than half-restored.
func (m *Manager) Load() error {
	sess, err := m.store.LoadSession()
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	cached, err := m.store.History()
	if err != nil {
		log.Printf("reading cached history: %v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.username = sess.Username
	m.access = sess.AccessToken
	m.refresh = sess.RefreshToken
	m.history = m.history[:0]
	for _, e := range cached {
		m.history = append(m.history, api.HistoryEntry{ID: e.ID, Title: e.Title, CreatedAt: e.CreatedAt})
	}
	return nil
}

// IsAuthenticated reports whether a complete session is present.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.username != "" && m.access != "" && m.refresh != ""
}

// Username returns the logged-in username, or "" when anonymous.
func (m *Manager) Username() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.username
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token pair and persists the session.
// A rejected pair fails with ErrInvalidCredentials. On success the history
// cache is refreshed best-effort; its failure does not fail the login.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	resp, err := m.client.Do(ctx, api.Request{
		Method: http.MethodPost,
		URL:    m.client.AuthEndpoint("jwt/create/"),
		Body:   credentials{Username: username, Password: password},
	})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return api.ErrInvalidCredentials
	}
	if err := resp.Err(); err != nil {
		return err
	}

	var tokens api.TokenPair
	if err := resp.Decode(&tokens); err != nil {
		return err
	}

	m.mu.Lock()
	m.username = username
	m.access = tokens.Access
	m.refresh = tokens.Refresh
	m.mu.Unlock()

	if err := m.store.SaveSession(store.Session{
		Username:     username,
		AccessToken:  tokens.Access,
		RefreshToken: tokens.Refresh,
	}); err != nil {
		log.Printf("persisting session: %v", err)
	}

	if err := m.RefreshHistory(ctx); err != nil {
		log.Printf("refreshing history after login: %v", err)
	}
	return nil
}

// Register creates a new account. It does not authenticate the caller.
// Field violations come back as a *api.ValidationError.
func (m *Manager) Register(ctx context.Context, username, password string) error {
	resp, err := m.client.Do(ctx, api.Request{
		Method: http.MethodPost,
		URL:    m.client.AuthEndpoint("users/"),
		Body:   credentials{Username: username, Password: password},
	})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusBadRequest {
		return api.NewValidationError(resp.Body)
	}
	return resp.Err()
}

// Logout discards the session and cached history, in memory and in the
// store. It is idempotent and never fails; store errors are only logged.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.username = ""
	m.access = ""
	m.refresh = ""
	m.history = nil
	m.mu.Unlock()

	if err := m.store.ClearSession(); err != nil {
		log.Printf("clearing persisted session: %v", err)
	}
	if err := m.store.ClearHistory(); err != nil {
		log.Printf("clearing persisted history: %v", err)
	}
}

// RefreshAccessToken exchanges the refresh token for a new access token.
// Concurrent callers share one in-flight exchange. Fails with
// ErrSessionExpired when the refresh token is absent or rejected.
func (m *Manager) RefreshAccessToken(ctx context.Context) (string, error) {
	token, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		return m.doRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (m *Manager) doRefresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	refresh := m.refresh
	m.mu.Unlock()
	if refresh == "" {
		return "", api.ErrSessionExpired
	}

	resp, err := m.client.Do(ctx, api.Request{
		Method: http.MethodPost,
		URL:    m.client.AuthEndpoint("jwt/refresh/"),
		Body:   map[string]string{"refresh": refresh},
	})
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", api.ErrSessionExpired
	}

	var token api.AccessToken
	if err := resp.Decode(&token); err != nil {
		return "", err
	}
	if token.Access == "" {
		return "", api.ErrSessionExpired
	}

	m.mu.Lock()
	m.access = token.Access
	m.mu.Unlock()
	if err := m.store.UpdateAccessToken(token.Access); err != nil {
		log.Printf("persisting refreshed token: %v", err)
	}
	return token.Access, nil
}

// Do is the authorized-request primitive. Without requireAuth the request is
// sent with no credential attached. With it, the current access token is
// attached; a 401 triggers exactly one refresh and one retry, and a second
// 401 (or a failed refresh) forces a logout and fails with ErrSessionExpired.
// Any other non-2xx response is returned as the decoded backend error.
func (m *Manager) Do(ctx context.Context, req api.Request, requireAuth bool) (*api.Response, error) {
	if !requireAuth {
		req.Token = ""
		resp, err := m.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := resp.Err(); err != nil {
			return nil, err
		}
		return resp, nil
	}

	m.mu.Lock()
	token := m.access
	m.mu.Unlock()
	if token == "" {
		return nil, api.ErrSessionExpired
	}

	req.Token = token
	resp, err := m.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		newToken, refreshErr := m.RefreshAccessToken(ctx)
		if refreshErr != nil {
			m.Logout()
			return nil, api.ErrSessionExpired
		}
		req.Token = newToken
		resp, err = m.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			m.Logout()
			return nil, api.ErrSessionExpired
		}
	}

	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}
