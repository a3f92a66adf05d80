package scheduler

import (
	"time"

	"github.com/photobackup/engine/internal/notification"
)

const (
	notifyEventScheduledStarted   = notification.EventScheduledStarted
	notifyEventScheduledCompleted = notification.EventScheduledCompleted
)

func (s *Scheduler) publishScheduled(eventType notification.EventType, scheduleID, jobID string) {
	if s.notify == nil {
		return
	}
	s.notify.Publish(notification.ScheduledEvent{
		Type:       eventType,
		ScheduleID: scheduleID,
		JobID:      jobID,
		Timestamp:  time.Now(),
	})
}
