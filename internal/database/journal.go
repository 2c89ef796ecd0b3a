package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/STRATINT/zonewatch/internal/hub"
	"github.com/STRATINT/zonewatch/internal/models"
)

// ActivityWriter persists journal entries.
type ActivityWriter interface {
	Log(ctx context.Context, log models.ActivityLog) error
}

// ActivityPruner removes old journal entries.
type ActivityPruner interface {
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// Journal is a hub subscriber that records every state change in the
// activity log. Write failures are logged and never reach the publisher.
type Journal struct {
	hub          *hub.Hub
	writer       ActivityWriter
	logger       *slog.Logger
	writeTimeout time.Duration
	retention    time.Duration
	pruneEvery   time.Duration
}

// JournalOption configures a Journal.
type JournalOption func(*Journal)

// WithRetention prunes entries older than age every interval. The writer must
// also implement ActivityPruner.
func WithRetention(age, interval time.Duration) JournalOption {
	return func(j *Journal) {
		j.retention = age
		j.pruneEvery = interval
	}
}

// NewJournal creates a journal fed by h.
func NewJournal(h *hub.Hub, writer ActivityWriter, logger *slog.Logger, opts ...JournalOption) *Journal {
	j := &Journal{
		hub:          h,
		writer:       writer,
		logger:       logger.With("component", "journal"),
		writeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run consumes events until ctx is cancelled. If the hub drops the journal
// for falling behind, it resubscribes and carries on.
func (j *Journal) Run(ctx context.Context) error {
	sub := j.hub.Subscribe()
	defer func() { j.hub.Unsubscribe(sub) }()

	var prune <-chan time.Time
	pruner, canPrune := j.writer.(ActivityPruner)
	if canPrune && j.retention > 0 && j.pruneEvery > 0 {
		ticker := time.NewTicker(j.pruneEvery)
		defer ticker.Stop()
		prune = ticker.C
	}

	j.logger.Info("Activity journal started")
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("Activity journal stopped")
			return nil
		case <-sub.Done():
			if ctx.Err() != nil {
				j.logger.Info("Activity journal stopped")
				return nil
			}
			j.logger.Warn("Activity journal fell behind, resubscribing")
			sub = j.hub.Subscribe()
		case evt := <-sub.Events():
			j.record(ctx, evt)
		case <-prune:
			n, err := pruner.DeleteOlderThan(ctx, j.retention)
			if err != nil {
				j.logger.Warn("Failed to prune activity journal", "error", err)
				continue
			}
			j.logger.Debug("Pruned activity journal", "deleted", n)
		}
	}
}

func (j *Journal) record(ctx context.Context, evt models.Event) {
	entry, ok := Entry(evt)
	if !ok {
		return
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), j.writeTimeout)
	defer cancel()

	if err := j.writer.Log(wctx, entry); err != nil {
		j.logger.Warn("Failed to write activity log", "type", evt.Type, "error", err)
	}
}

// Entry converts a broadcast event into a journal entry.
func Entry(evt models.Event) (models.ActivityLog, bool) {
	activityType, ok := models.ActivityTypeFor(evt.Type)
	if !ok {
		return models.ActivityLog{}, false
	}
	entry := models.ActivityLog{ActivityType: activityType}

	switch data := evt.Data.(type) {
	case models.AlertNotification:
		id := data.ID
		entry.AlertID = &id
		entry.ZoneID = data.ZoneID
		entry.Message = fmt.Sprintf("%s alert in %s: %s", data.Kind, data.Zone.Name, data.Title)
		entry.Details = map[string]interface{}{
			"type":            data.Kind,
			"threatLevel":     data.Analysis.ThreatLevel,
			"confidence":      data.Analysis.Confidence,
			"recommendations": data.Analysis.Recommendations,
		}
	case models.Alert:
		id := data.ID
		entry.AlertID = &id
		entry.ZoneID = data.ZoneID
		entry.Message = fmt.Sprintf("Alert %d resolved", data.ID)
	case models.Zone:
		id := data.ID
		entry.ZoneID = &id
		verb := "created"
		if evt.Type == models.EventZoneUpdated {
			verb = "updated"
		}
		entry.Message = fmt.Sprintf("Zone %q %s", data.Name, verb)
		entry.Details = map[string]interface{}{
			"alertThreshold": data.AlertThreshold,
			"radius":         data.Radius,
			"isActive":       data.IsActive,
		}
	case models.ZoneDeleted:
		id := data.ID
		entry.ZoneID = &id
		entry.Message = fmt.Sprintf("Zone %d deleted", data.ID)
	default:
		return models.ActivityLog{}, false
	}

	return entry, true
}
