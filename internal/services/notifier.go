package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/xwerkax/BloomlyApp/internal/clients/redis"
	types "github.com/xwerkax/BloomlyApp/internal/domain"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

const (
	EventReminderRefreshed = "reminder_refreshed"
	EventJobCreated        = "job_created"
	EventJobProgress       = "job_progress"
	EventJobFailed         = "job_failed"
	EventJobDone           = "job_done"
)

// EventPublisher is the publishing half of the redis event bus.
type EventPublisher interface {
	Publish(ctx context.Context, channel, event string, data any) error
}

type ReminderPublisher interface {
	ReminderRefreshed(ctx context.Context, rem *types.Reminder, outcome RefreshOutcome)
}

type JobNotifier interface {
	JobCreated(job *types.JobRun)
	JobProgress(job *types.JobRun, stage string, progress int, message string)
	JobFailed(job *types.JobRun, stage string, errorMessage string)
	JobDone(job *types.JobRun)
}

// ReminderEvent is the payload published on the reminders channel after commit.
type ReminderEvent struct {
	PlantID    uuid.UUID      `json:"plant_id"`
	ReminderID uuid.UUID      `json:"reminder_id"`
	DueAt      time.Time      `json:"due_at"`
	Outcome    RefreshOutcome `json:"outcome"`
}

// Notifier fans domain events out to the bus. With a nil publisher it only logs.
type Notifier struct {
	pub EventPublisher
	log *logger.Logger
}

func NewNotifier(pub EventPublisher, baseLog *logger.Logger) *Notifier {
	return &Notifier{pub: pub, log: baseLog.With("service", "Notifier")}
}

func (n *Notifier) publish(ctx context.Context, channel, event string, data any) {
	if n == nil {
		return
	}
	if n.pub == nil {
		n.log.Debug("event", "channel", channel, "event", event)
		return
	}
	if err := n.pub.Publish(ctx, channel, event, data); err != nil {
		n.log.Warn("Event publish failed", "channel", channel, "event", event, "error", err)
	}
}

func (n *Notifier) ReminderRefreshed(ctx context.Context, rem *types.Reminder, outcome RefreshOutcome) {
	if rem == nil {
		return
	}
	n.publish(ctx, redis.ChannelReminders, EventReminderRefreshed, ReminderEvent{
		PlantID:    rem.PlantID,
		ReminderID: rem.ID,
		DueAt:      rem.DueAt,
		Outcome:    outcome,
	})
}

func (n *Notifier) JobCreated(job *types.JobRun) {
	n.publish(context.Background(), redis.ChannelJobs, EventJobCreated, map[string]any{"job": job})
}

func (n *Notifier) JobProgress(job *types.JobRun, stage string, progress int, message string) {
	n.publish(context.Background(), redis.ChannelJobs, EventJobProgress, map[string]any{
		"job_id":   safeJobID(job),
		"job_type": safeJobType(job),
		"stage":    stage,
		"progress": progress,
		"message":  message,
	})
}

func (n *Notifier) JobFailed(job *types.JobRun, stage string, errorMessage string) {
	n.publish(context.Background(), redis.ChannelJobs, EventJobFailed, map[string]any{
		"job_id":   safeJobID(job),
		"job_type": safeJobType(job),
		"stage":    stage,
		"error":    errorMessage,
	})
}

func (n *Notifier) JobDone(job *types.JobRun) {
	n.publish(context.Background(), redis.ChannelJobs, EventJobDone, map[string]any{
		"job_id":   safeJobID(job),
		"job_type": safeJobType(job),
		"job":      job,
	})
}

func safeJobID(job *types.JobRun) uuid.UUID {
	if job == nil {
		return uuid.Nil
	}
	return job.ID
}

func safeJobType(job *types.JobRun) string {
	if job == nil {
		return ""
	}
	return job.JobType
}
