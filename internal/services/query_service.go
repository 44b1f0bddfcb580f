package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"summer-miles/ledger/internal/common"
	"summer-miles/ledger/internal/constants"
	"summer-miles/ledger/internal/db/repositories"
	"summer-miles/ledger/internal/logging"
	"summer-miles/ledger/internal/models/dtos"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultTimelineLimit = 20
	MaxTimelineLimit     = 100
	MaxCommunityDays     = 90
)

// QueryService serves the read-only views. It never writes to the ledger.
type QueryService struct {
	store    *repositories.Store
	timeline *repositories.TimelineReader
	cache    common.CacheInterface
	statsTTL time.Duration
	loads    singleflight.Group
	clock    Clock
}

func NewQueryService(store *repositories.Store, timeline *repositories.TimelineReader, cache common.CacheInterface, statsTTL time.Duration) *QueryService {
	return &QueryService{store: store, timeline: timeline, cache: cache, statsTTL: statsTTL}
}

func (s *QueryService) WithClock(clock Clock) *QueryService {
	s.clock = clock
	return s
}

// Timeline returns one page of the user's activities, newest first. The cursor is the
// timestamp of the last item of the previous page.
func (s *QueryService) Timeline(ctx context.Context, userID string, limit int, cursor string) (dtos.TimelinePage, error) {
	if limit <= 0 {
		limit = DefaultTimelineLimit
	}
	if limit > MaxTimelineLimit {
		limit = MaxTimelineLimit
	}

	var before *time.Time
	if cursor != "" {
		ts, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			return dtos.TimelinePage{}, fmt.Errorf("%w: bad cursor", ErrInvalidInput)
		}
		before = &ts
	}

	rows, err := s.timeline.Page(ctx, userID, limit, before)
	if err != nil {
		return dtos.TimelinePage{}, fmt.Errorf("load timeline: %w", err)
	}

	page := dtos.TimelinePage{Items: make([]dtos.TimelineItem, 0, len(rows))}
	for _, row := range rows {
		page.Items = append(page.Items, timelineItem(row))
	}
	if len(rows) == limit {
		next := rows[len(rows)-1].Ts.UTC().Format(time.RFC3339Nano)
		page.NextCursor = &next
	}
	return page, nil
}

// ActivityView returns a single activity with its effective-miles view.
func (s *QueryService) ActivityView(ctx context.Context, userID, activityID string) (dtos.TimelineItem, error) {
	row, err := s.timeline.Activity(ctx, userID, activityID)
	if err != nil {
		return dtos.TimelineItem{}, fmt.Errorf("load activity: %w", err)
	}
	if row == nil {
		return dtos.TimelineItem{}, ErrNotFound
	}
	return timelineItem(*row), nil
}

func timelineItem(row repositories.TimelineRow) dtos.TimelineItem {
	item := dtos.TimelineItem{
		ID:                 row.ID,
		Provider:           row.Provider,
		ExternalActivityID: row.ExternalActivityID,
		Ts:                 row.Ts.UTC(),
		Miles:              row.Miles,
		DurationMin:        row.DurationMin,
		IsExcluded:         row.IsExcluded,
		EffectiveMiles:     row.EffectiveMiles(),
		TotalCorrection:    row.TotalCorrection,
		CorrectionsCount:   row.CorrectionsCount,
	}
	if row.ExclusionReason.Valid {
		reason := row.ExclusionReason.String
		item.ExclusionReason = &reason
	}
	if row.LatestNote.Valid {
		note := row.LatestNote.String
		item.LatestNote = &note
	}
	return item
}

// Aggregate returns the cached roll-up; users with no activity get a zero total.
func (s *QueryService) Aggregate(ctx context.Context, userID string) (dtos.AggregateResponse, error) {
	aggregate, err := repositories.NewAggregateRepo(s.store.DB()).Get(ctx, userID)
	if err != nil {
		return dtos.AggregateResponse{}, fmt.Errorf("load aggregate: %w", err)
	}
	resp := dtos.AggregateResponse{UserID: userID}
	if aggregate != nil {
		updated := aggregate.UpdatedAt.UTC()
		resp.TotalMiles = aggregate.TotalMiles
		resp.LastActivityTs = aggregate.LastActivityTs
		resp.UpdatedAt = &updated
	}
	return resp, nil
}

// CommunityDaily returns the last days of stats for a crew through the read cache.
func (s *QueryService) CommunityDaily(ctx context.Context, crewID string, days int) ([]dtos.DailyStatResponse, error) {
	if crewID == "" {
		crewID = constants.GlobalCrewID
	}
	if days <= 0 {
		days = 7
	}
	if days > MaxCommunityDays {
		days = MaxCommunityDays
	}

	key := string(constants.CachePrefixCommunityDaily) + crewID + "_" + strconv.Itoa(days)
	var cached []dtos.DailyStatResponse
	found, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		logging.Warn("Community stats cache read failed", "key", key, "error", err)
	}
	if found {
		return cached, nil
	}

	v, err, _ := s.loads.Do(key, func() (interface{}, error) {
		since := s.clock.now().AddDate(0, 0, -(days - 1)).Format(constants.DayLayout)
		stats, err := repositories.NewDailyStatRepo(s.store.DB()).ListSince(ctx, crewID, since)
		if err != nil {
			return nil, err
		}
		out := make([]dtos.DailyStatResponse, 0, len(stats))
		for _, stat := range stats {
			out = append(out, dtos.DailyStatResponse{
				Day:           stat.Day,
				CrewID:        stat.CrewID,
				Miles:         stat.Miles,
				ActivityCount: stat.ActivityCount,
			})
		}
		if err := s.cache.SetJSON(ctx, key, out, s.statsTTL); err != nil {
			logging.Warn("Community stats cache write failed", "key", key, "error", err)
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load community stats: %w", err)
	}
	return v.([]dtos.DailyStatResponse), nil
}
