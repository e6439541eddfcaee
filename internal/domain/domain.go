package domain

import (
	"github.com/xwerkax/BloomlyApp/internal/domain/care"
	"github.com/xwerkax/BloomlyApp/internal/domain/jobs"
)

const (
	ReminderPending   = care.ReminderPending
	ReminderDone      = care.ReminderDone
	ReminderCancelled = care.ReminderCancelled

	ModelTypeGB   = care.ModelTypeGB
	ModelTypeRF   = care.ModelTypeRF
	ModelTypeStat = care.ModelTypeStat

	JobStatusQueued    = jobs.StatusQueued
	JobStatusRunning   = jobs.StatusRunning
	JobStatusSucceeded = jobs.StatusSucceeded
	JobStatusFailed    = jobs.StatusFailed
	JobStatusCanceled  = jobs.StatusCanceled
)

type (
	Plant         = care.Plant
	WateringEvent = care.WateringEvent
	CareAnalysis  = care.CareAnalysis
	Reminder      = care.Reminder
	ModelArtifact = care.ModelArtifact

	JobRun = jobs.JobRun
)

// Models lists every table owned by the service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&Plant{},
		&WateringEvent{},
		&CareAnalysis{},
		&Reminder{},
		&ModelArtifact{},
		&JobRun{},
	}
}
