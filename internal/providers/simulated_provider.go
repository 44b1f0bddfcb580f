package providers

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"summer-miles/ledger/internal/constants"

	"golang.org/x/time/rate"
)

// SimulatedProvider generates one deterministic activity per UTC day, so repeated syncs
// over the same window report the same external ids.
type SimulatedProvider struct {
	name         string
	lookbackDays int
	limiter      *rate.Limiter
	now          func() time.Time
}

// NewSimulatedProvider builds a provider whose fetches are limited to ratePerSecond.
// A non-positive rate disables the limiter.
func NewSimulatedProvider(name string, lookbackDays int, ratePerSecond float64) *SimulatedProvider {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	if lookbackDays <= 0 {
		lookbackDays = 1
	}
	return &SimulatedProvider{
		name:         name,
		lookbackDays: lookbackDays,
		limiter:      rate.NewLimiter(limit, 1),
		now:          time.Now,
	}
}

// WithClock replaces the time source. Tests use it to pin generated days.
func (p *SimulatedProvider) WithClock(now func() time.Time) *SimulatedProvider {
	p.now = now
	return p
}

func (p *SimulatedProvider) Name() string {
	return p.name
}

func (p *SimulatedProvider) FetchActivities(ctx context.Context, userID string, since time.Time) ([]FetchedActivity, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, &ProviderError{Code: constants.ErrCodeRateLimited, Provider: p.name, Err: err}
	}

	today := p.now().UTC().Truncate(24 * time.Hour)
	activities := make([]FetchedActivity, 0, p.lookbackDays)
	for i := p.lookbackDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		seed := p.seed(userID, day)

		ts := day.Add(6*time.Hour + time.Duration(seed%(12*60))*time.Minute)
		if ts.Before(since) {
			continue
		}
		miles := 1 + float64(seed%500)/100
		activities = append(activities, FetchedActivity{
			ExternalActivityID: fmt.Sprintf("%s-%s", userID, day.Format(constants.DayLayout)),
			Timestamp:          ts,
			DistanceMiles:      miles,
			DurationMin:        miles * 11,
		})
	}
	return activities, nil
}

func (p *SimulatedProvider) seed(userID string, day time.Time) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(p.name + "|" + userID + "|" + day.Format(constants.DayLayout)))
	return h.Sum64()
}
