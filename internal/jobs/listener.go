package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"brand-catalog-service/internal/domain"
)

// NotifyChannel is the Postgres channel job triggers publish on.
const NotifyChannel = "job_changes"

// JobGetter loads a job by id.
type JobGetter interface {
	GetJob(ctx context.Context, id string) (*domain.Job, error)
}

// Listener relays Postgres job notifications into a Hub. A notification
// carries either the full job row as JSON or just the job id.
type Listener struct {
	dsn    string
	jobs   JobGetter
	hub    *Hub
	logger *zap.Logger
}

// NewListener creates a Listener for the database at dsn.
func NewListener(dsn string, jobs JobGetter, hub *Hub, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{dsn: dsn, jobs: jobs, hub: hub, logger: logger.Named("job_listener")}
}

// Run listens until ctx is done.
func (l *Listener) Run(ctx context.Context) error {
	pl := pq.NewListener(l.dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.logger.Warn("listener connection event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	defer pl.Close()

	if err := pl.Listen(NotifyChannel); err != nil {
		return fmt.Errorf("jobs: listen %s: %w", NotifyChannel, err)
	}
	l.logger.Info("listening for job changes", zap.String("channel", NotifyChannel))

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-pl.Notify:
			// nil after a reconnect; changes during the gap are lost.
			if n == nil {
				l.logger.Info("listener reconnected")
				continue
			}
			l.handle(ctx, n.Extra)
		case <-ping.C:
			if err := pl.Ping(); err != nil {
				l.logger.Warn("listener ping failed", zap.Error(err))
			}
		}
	}
}

func (l *Listener) handle(ctx context.Context, payload string) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return
	}
	if strings.HasPrefix(payload, "{") {
		var job domain.Job
		if err := json.Unmarshal([]byte(payload), &job); err == nil && job.ID != "" && job.UserID != "" {
			l.hub.Publish(job)
			return
		}
		var ref struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal([]byte(payload), &ref); err != nil || ref.ID == "" {
			l.logger.Warn("unreadable job notification", zap.String("payload", payload))
			return
		}
		payload = ref.ID
	}
	job, err := l.jobs.GetJob(ctx, payload)
	if err != nil {
		l.logger.Warn("job from notification not loaded", zap.String("job_id", payload), zap.Error(err))
		return
	}
	l.hub.Publish(*job)
}
