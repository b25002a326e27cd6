package store

import (
	"context"
	"fmt"
	"time"

	"github.com/amitRaDev/GMS/internal/model"
)

// GateLogQuery narrows and pages a ledger listing.
type GateLogQuery struct {
	Page          int
	Limit         int
	VehicleNumber string // substring match
	EventType     model.GateEventType
}

// GateLogPage is one page of ledger entries, newest first.
type GateLogPage struct {
	Data       []model.GateLog `json:"data"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int64           `json:"totalPages"`
}

// GateStats aggregates confirmed entry/exit counts.
type GateStats struct {
	TotalEntries int64 `json:"totalEntries"`
	TotalExits   int64 `json:"totalExits"`
	TodayEntries int64 `json:"todayEntries"`
	TodayExits   int64 `json:"todayExits"`
}

// AppendGateLog inserts one audit entry. The ledger is append-only; no update
// or delete path exists anywhere in the store.
func (s *gormStore) AppendGateLog(ctx context.Context, entry *model.GateLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append gate log for %q: %w", entry.VehicleNumber, err)
	}
	return nil
}

// ListGateLogs returns a filtered page of the ledger ordered newest first.
func (s *gormStore) ListGateLogs(ctx context.Context, q GateLogQuery) (*GateLogPage, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&model.GateLog{})
	if q.VehicleNumber != "" {
		query = query.Where("vehicle_number LIKE ?", "%"+q.VehicleNumber+"%")
	}
	if q.EventType != "" {
		query = query.Where("event_type = ?", q.EventType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count gate logs: %w", err)
	}

	var logs []model.GateLog
	// id is a tiebreak so entries with identical timestamps page stably.
	if err := query.
		Order("created_at DESC, id DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list gate logs: %w", err)
	}

	totalPages := (total + int64(q.Limit) - 1) / int64(q.Limit)
	return &GateLogPage{
		Data:       logs,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: totalPages,
	}, nil
}

// GateStats counts confirmed entries and exits, all-time and since local
// midnight in the given location.
func (s *gormStore) GateStats(ctx context.Context, loc *time.Location) (GateStats, error) {
	if loc == nil {
		loc = time.Local
	}
	now := time.Now().In(loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	var stats GateStats
	counts := []struct {
		dst       *int64
		eventType model.GateEventType
		since     *time.Time
	}{
		{&stats.TotalEntries, model.EventEntryAllowed, nil},
		{&stats.TotalExits, model.EventExitAllowed, nil},
		{&stats.TodayEntries, model.EventEntryAllowed, &midnight},
		{&stats.TodayExits, model.EventExitAllowed, &midnight},
	}

	for _, c := range counts {
		query := s.db.WithContext(ctx).Model(&model.GateLog{}).Where("event_type = ?", c.eventType)
		if c.since != nil {
			query = query.Where("created_at >= ?", *c.since)
		}
		if err := query.Count(c.dst).Error; err != nil {
			return GateStats{}, fmt.Errorf("failed to count %s logs: %w", c.eventType, err)
		}
	}
	return stats, nil
}
