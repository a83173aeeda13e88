// Package analysis drives the asynchronous article-analysis workflow:
// queue admission, job submission, result polling, and normalization of the
// completed payload into a presentation-ready job.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"habrsum/internal/api"
)

// Backend is the slice of the session manager the controller needs.
type Backend interface {
	CheckQueueStatus(ctx context.Context) (bool, error)
	CreateAnalysis(ctx context.Context, url string, authenticated bool) (string, error)
	GetAnalysisResults(ctx context.Context, id string) (*api.AnalysisResult, error)
}

// HistoryRefresher refetches the authenticated history after a completion.
type HistoryRefresher interface {
	RefreshHistory(ctx context.Context) error
}

// ErrPollTimeout is returned when a job does not reach a terminal state
// within the configured number of poll attempts.
var ErrPollTimeout = errors.New("analysis did not complete in time")

// QueueError is a transport failure of the admission check itself, distinct
// from the queue reporting itself full.
type QueueError struct {
	Err error
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("queue status check failed: %v", e.Err)
}

func (e *QueueError) Unwrap() error { return e.Err }

// Stage identifies a progress notification during Analyze.
type Stage string

const (
	StageQueueFull  Stage = "queue_full"
	StageSubmitted  Stage = "submitted"
	StageProcessing Stage = "processing"
	StageCompleted  Stage = "completed"
)

// Update is one progress notification delivered to OnStatus.
type Update struct {
	Stage   Stage
	Message string
}

// Config holds the workflow timing knobs. Zero values take the defaults
// observed in the original frontend (30s admission retry, 5s poll), except
// MaxPollAttempts which caps the otherwise unbounded poll loop.
type Config struct {
	QueueRetryInterval time.Duration
	PollInterval       time.Duration
	MaxPollAttempts    int
}

// Controller runs the analyze workflow. One Analyze call is one independent
// job; concurrent calls are not deduplicated by URL.
type Controller struct {
	backend Backend
	history HistoryRefresher
	cfg     Config

	// OnStatus, when set, receives progress updates. It is called from the
	// goroutine running Analyze.
	OnStatus func(Update)
}

// New creates a controller. history may be nil for anonymous-only use.
func New(backend Backend, history HistoryRefresher, cfg Config) *Controller {
	if cfg.QueueRetryInterval <= 0 {
		cfg.QueueRetryInterval = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = 120
	}
	return &Controller{backend: backend, history: history, cfg: cfg}
}

func (c *Controller) notify(stage Stage, message string) {
	if c.OnStatus != nil {
		c.OnStatus(Update{Stage: stage, Message: message})
	}
}

// Analyze runs the full workflow for one URL. A blank URL is a no-op, not an
// error. Cancelling ctx stops any pending admission or poll wait immediately
// and applies no further state mutation. The returned job is non-nil for
// every started workflow, including failed ones.
func (c *Controller) Analyze(ctx context.Context, rawURL string, authenticated bool) (*Job, error) {
	url := strings.TrimSpace(rawURL)
	if url == "" {
		return nil, nil
	}

	job := &Job{SourceURL: url, Status: StatusPending}

	for {
		available, err := c.backend.CheckQueueStatus(ctx)
		if err != nil {
			job.Status = StatusFailed
			return job, &QueueError{Err: err}
		}
		if available {
			break
		}
		c.notify(StageQueueFull, "queue is full, waiting")
		if err := wait(ctx, c.cfg.QueueRetryInterval); err != nil {
			return job, err
		}
	}

	id, err := c.backend.CreateAnalysis(ctx, url, authenticated)
	if err != nil {
		job.Status = StatusFailed
		return job, err
	}
	job.ID = id
	job.Status = StatusQueued
	c.notify(StageSubmitted, "analysis submitted")

	for attempt := 1; ; attempt++ {
		result, err := c.backend.GetAnalysisResults(ctx, job.ID)
		if err != nil {
			job.Status = StatusFailed
			return job, err
		}

		switch result.Status {
		case "completed":
			c.complete(ctx, job, result, authenticated)
			return job, nil
		case "failed":
			job.Status = StatusFailed
			return job, fmt.Errorf("backend reported analysis of %s as failed", url)
		}

		if attempt >= c.cfg.MaxPollAttempts {
			job.Status = StatusFailed
			return job, ErrPollTimeout
		}

		job.Status = StatusProcessing
		c.notify(StageProcessing, "waiting for results")
		if err := wait(ctx, c.cfg.PollInterval); err != nil {
			return job, err
		}
	}
}

func (c *Controller) complete(ctx context.Context, job *Job, result *api.AnalysisResult, authenticated bool) {
	job.Status = StatusCompleted
	job.Title = result.Title
	job.Summary = result.ArticleSummary
	job.Metrics = parseMetrics(result.Metrics)
	job.Sentiment, job.Clusters = parseCommentsSummary(result.CommentsSummary)

	if authenticated && c.history != nil {
		if err := c.history.RefreshHistory(ctx); err != nil {
			log.Printf("refreshing history after completion: %v", err)
		}
	}
	c.notify(StageCompleted, "analysis completed")
}

// wait sleeps for d or until ctx is cancelled.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
