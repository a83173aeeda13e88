package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"habrsum/internal/api"
)

// fakeBackend scripts queue-status and poll responses. The last entry of
// each sequence repeats once exhausted.
type fakeBackend struct {
	mu sync.Mutex

	statuses  []bool
	statusErr error

	createID  string
	createErr error

	results    []*api.AnalysisResult
	resultsErr error

	statusCalls  int
	createCalls  int
	pollCalls    int
	createAuthed bool
}

func (f *fakeBackend) CheckQueueStatus(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return false, f.statusErr
	}
	i := f.statusCalls - 1
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return f.statuses[i], nil
}

func (f *fakeBackend) CreateAnalysis(ctx context.Context, url string, authenticated bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.createAuthed = authenticated
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.createID, nil
}

func (f *fakeBackend) GetAnalysisResults(ctx context.Context, id string) (*api.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollCalls++
	if f.resultsErr != nil {
		return nil, f.resultsErr
	}
	i := f.pollCalls - 1
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i], nil
}

type fakeHistory struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeHistory) RefreshHistory(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func fastConfig() Config {
	return Config{
		QueueRetryInterval: time.Millisecond,
		PollInterval:       time.Millisecond,
		MaxPollAttempts:    50,
	}
}

func TestAnalyzeBlankURLIsNoop(t *testing.T) {
	backend := &fakeBackend{statuses: []bool{true}}
	c := New(backend, nil, fastConfig())

	job, err := c.Analyze(context.Background(), "   ", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job != nil {
		t.Errorf("expected no job for blank URL, got %+v", job)
	}
	if backend.statusCalls != 0 || backend.createCalls != 0 {
		t.Error("blank URL must not touch the backend")
	}
}

func TestAdmissionRetriesUntilAvailable(t *testing.T) {
	backend := &fakeBackend{
		statuses: []bool{false, false, false, true},
		createID: "42",
		results:  []*api.AnalysisResult{{Status: "completed", Title: "T"}},
	}
	c := New(backend, nil, fastConfig())

	var waits int
	c.OnStatus = func(u Update) {
		if u.Stage == StageQueueFull {
			waits++
		}
	}

	job, err := c.Analyze(context.Background(), "https://habr.com/ru/articles/1/", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.statusCalls != 4 {
		t.Errorf("expected submission after the fourth check, got %d checks", backend.statusCalls)
	}
	if backend.createCalls != 1 {
		t.Errorf("expected one submission, got %d", backend.createCalls)
	}
	if waits != 3 {
		t.Errorf("expected 3 waiting notifications, got %d", waits)
	}
	if job.Status != StatusCompleted {
		t.Errorf("expected completed job, got %s", job.Status)
	}
}

func TestQueueCheckFailureIsQueueError(t *testing.T) {
	backend := &fakeBackend{statusErr: errors.New("connection refused")}
	c := New(backend, nil, fastConfig())

	job, err := c.Analyze(context.Background(), "https://habr.com/x", false)
	var queueErr *QueueError
	if !errors.As(err, &queueErr) {
		t.Fatalf("expected *QueueError, got %v", err)
	}
	if job == nil || job.Status != StatusFailed {
		t.Errorf("expected failed job, got %+v", job)
	}
	if backend.createCalls != 0 {
		t.Error("failed admission check must not submit")
	}
}

func TestAnalyzeEndToEnd(t *testing.T) {
	comments := `{"analysis":{"result":{"positive":2,"neutral":1,"negative":0}},"clusters":{"result":[]}}`
	backend := &fakeBackend{
		statuses: []bool{true},
		createID: "42",
		results: []*api.AnalysisResult{
			{Status: "processing"},
			{Status: "completed", Title: "T", ArticleSummary: "S", CommentsSummary: comments},
		},
	}
	history := &fakeHistory{}
	c := New(backend, history, fastConfig())

	job, err := c.Analyze(context.Background(), "https://habr.com/ru/articles/1/", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", job.Status)
	}
	if job.ID != "42" {
		t.Errorf("expected job ID 42, got %q", job.ID)
	}
	if job.Title != "T" || job.Summary != "S" {
		t.Errorf("unexpected title/summary: %q / %q", job.Title, job.Summary)
	}
	want := SentimentCounts{Positive: 2, Neutral: 1, Negative: 0}
	if job.Sentiment != want {
		t.Errorf("expected sentiment %+v, got %+v", want, job.Sentiment)
	}
	if len(job.Clusters) != 0 {
		t.Errorf("expected no clusters, got %d", len(job.Clusters))
	}
	if backend.pollCalls != 2 {
		t.Errorf("expected 2 polls, got %d", backend.pollCalls)
	}
	if history.calls != 1 {
		t.Errorf("expected exactly one history refresh, got %d", history.calls)
	}
	if !backend.createAuthed {
		t.Error("expected authenticated submission")
	}
}

func TestAnonymousJobSkipsHistory(t *testing.T) {
	backend := &fakeBackend{
		statuses: []bool{true},
		createID: "7",
		results:  []*api.AnalysisResult{{Status: "completed"}},
	}
	history := &fakeHistory{}
	c := New(backend, history, fastConfig())

	if _, err := c.Analyze(context.Background(), "https://habr.com/x", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if history.calls != 0 {
		t.Errorf("anonymous job must not refresh history, got %d calls", history.calls)
	}
	if backend.createAuthed {
		t.Error("expected anonymous submission")
	}
}

func TestPollFailureTerminatesJob(t *testing.T) {
	wantErr := &api.NetworkError{Err: errors.New("reset")}
	backend := &fakeBackend{
		statuses:   []bool{true},
		createID:   "7",
		resultsErr: wantErr,
	}
	c := New(backend, nil, fastConfig())

	job, err := c.Analyze(context.Background(), "https://habr.com/x", false)
	var netErr *api.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *api.NetworkError, got %v", err)
	}
	if job.Status != StatusFailed {
		t.Errorf("expected failed job, got %s", job.Status)
	}
	if backend.pollCalls != 1 {
		t.Errorf("poll loop must not retry on failure, got %d polls", backend.pollCalls)
	}
}

func TestBackendFailedStatusTerminatesJob(t *testing.T) {
	backend := &fakeBackend{
		statuses: []bool{true},
		createID: "7",
		results:  []*api.AnalysisResult{{Status: "failed"}},
	}
	c := New(backend, nil, fastConfig())

	job, err := c.Analyze(context.Background(), "https://habr.com/x", false)
	if err == nil {
		t.Fatal("expected error for failed analysis")
	}
	if job.Status != StatusFailed {
		t.Errorf("expected failed job, got %s", job.Status)
	}
}

func TestPollCeilingTimesOut(t *testing.T) {
	backend := &fakeBackend{
		statuses: []bool{true},
		createID: "7",
		results:  []*api.AnalysisResult{{Status: "processing"}},
	}
	cfg := fastConfig()
	cfg.MaxPollAttempts = 3
	c := New(backend, nil, cfg)

	job, err := c.Analyze(context.Background(), "https://habr.com/x", false)
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
	if job.Status != StatusFailed {
		t.Errorf("expected failed job, got %s", job.Status)
	}
	if backend.pollCalls != 3 {
		t.Errorf("expected 3 polls before giving up, got %d", backend.pollCalls)
	}
}

func TestCancellationStopsPolling(t *testing.T) {
	backend := &fakeBackend{
		statuses: []bool{true},
		createID: "7",
		results:  []*api.AnalysisResult{{Status: "processing"}},
	}
	cfg := fastConfig()
	cfg.PollInterval = time.Hour
	c := New(backend, nil, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	c.OnStatus = func(u Update) {
		if u.Stage == StageProcessing {
			cancel()
		}
	}

	done := make(chan struct{})
	var err error
	go func() {
		_, err = c.Analyze(ctx, "https://habr.com/x", false)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Analyze did not return after cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if backend.pollCalls != 1 {
		t.Errorf("expected no further polls after cancellation, got %d", backend.pollCalls)
	}
}

func TestCancellationStopsAdmissionRetry(t *testing.T) {
	backend := &fakeBackend{statuses: []bool{false}}
	cfg := fastConfig()
	cfg.QueueRetryInterval = time.Hour
	c := New(backend, nil, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	c.OnStatus = func(u Update) {
		if u.Stage == StageQueueFull {
			cancel()
		}
	}

	done := make(chan struct{})
	var err error
	go func() {
		_, err = c.Analyze(ctx, "https://habr.com/x", false)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Analyze did not return after cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if backend.createCalls != 0 {
		t.Error("cancelled admission wait must not submit")
	}
}
