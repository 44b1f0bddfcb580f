package services

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"summer-miles/ledger/internal/constants"
	gormModels "summer-miles/ledger/internal/models/gorm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day1 = time.Date(2025, 7, 1, 8, 30, 0, 0, time.UTC)

func TestInsertActivities_IdempotentReingestion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := []ActivityInput{activityAt("strava", "run-1", day1, 5)}

	first, err := env.ingestion.InsertActivities(ctx, "alice", batch)
	require.NoError(t, err)
	second, err := env.ingestion.InsertActivities(ctx, "alice", batch)
	require.NoError(t, err)

	assert.Equal(t, IngestResult{Added: 1, Dupes: 0}, first)
	assert.Equal(t, IngestResult{Added: 0, Dupes: 1}, second)
	assert.InDelta(t, 5.0, env.totalMiles(t, "alice"), 1e-9)

	var count int64
	require.NoError(t, env.db.Model(&gormModels.Activity{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestInsertActivities_ResyncUpdatesRawFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ingestion.InsertActivities(ctx, "alice", []ActivityInput{activityAt("strava", "run-1", day1, 5)})
	require.NoError(t, err)
	res, err := env.ingestion.InsertActivities(ctx, "alice", []ActivityInput{activityAt("strava", "run-1", day1, 6.5)})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Dupes)
	assert.InDelta(t, 6.5, env.totalMiles(t, "alice"), 1e-9)
}

func TestApplyIntegrityRules_Boundaries(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		excluded bool
		reason   string
	}{
		{"exactly the cap is kept", 100.0, false, ""},
		{"just over the cap is suspicious", 100.01, true, constants.ExclusionSuspiciousDistance},
		{"zero is filtered", 0, true, constants.ExclusionZeroDistance},
		{"negative is filtered", -3, true, constants.ExclusionZeroDistance},
		{"smallest positive is kept", 0.01, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			excluded, reason := ApplyIntegrityRules(tt.distance)
			assert.Equal(t, tt.excluded, excluded)
			if tt.reason == "" {
				assert.Nil(t, reason)
			} else {
				require.NotNil(t, reason)
				assert.Equal(t, tt.reason, *reason)
			}
		})
	}
}

func TestInsertActivities_ExcludedActivitiesAreStoredButNotCounted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.ingestion.InsertActivities(ctx, "alice", []ActivityInput{
		activityAt("strava", "a", day1, 100.0),
		activityAt("strava", "b", day1.Add(time.Hour), 100.01),
		activityAt("strava", "c", day1.Add(2*time.Hour), 0),
		activityAt("strava", "d", day1.Add(3*time.Hour), 0.01),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Added)

	assert.InDelta(t, 100.01, env.totalMiles(t, "alice"), 1e-9)

	var suspicious gormModels.Activity
	require.NoError(t, env.db.Where("id = ?", "strava:b").Take(&suspicious).Error)
	assert.True(t, suspicious.IsExcluded)
	require.NotNil(t, suspicious.ExclusionReason)
	assert.Equal(t, constants.ExclusionSuspiciousDistance, *suspicious.ExclusionReason)

	agg, err := env.query.Aggregate(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, agg.LastActivityTs)
	assert.True(t, agg.LastActivityTs.Equal(day1.Add(3*time.Hour)), "last ts should ignore excluded rows")
}

func TestInsertActivities_MissingIdentityIsFoldedIntoDupes(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.ingestion.InsertActivities(context.Background(), "alice", []ActivityInput{
		activityAt("", "no-provider", day1, 3),
		activityAt("strava", "", day1, 3),
		activityAt("strava", "ok", day1, 3),
	})
	require.NoError(t, err)

	assert.Equal(t, IngestResult{Added: 1, Dupes: 2}, res)
	assert.InDelta(t, 3.0, env.totalMiles(t, "alice"), 1e-9)
}

func TestInsertActivities_ForeignIdentityDoesNotMoveMiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ingestion.InsertActivities(ctx, "alice", []ActivityInput{activityAt("strava", "shared", day1, 4)})
	require.NoError(t, err)
	res, err := env.ingestion.InsertActivities(ctx, "bob", []ActivityInput{activityAt("strava", "shared", day1, 40)})
	require.NoError(t, err)

	assert.Equal(t, IngestResult{Added: 0, Dupes: 1}, res)
	assert.InDelta(t, 4.0, env.totalMiles(t, "alice"), 1e-9)
	assert.InDelta(t, 0.0, env.totalMiles(t, "bob"), 1e-9)
}

func TestInsertActivities_RefreshesDailyStatsForEveryCrew(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.db.Create(&gormModels.Crew{ID: "crew-sunrise", Name: "Sunrise"}).Error)
	require.NoError(t, env.db.Create(&gormModels.CrewMember{ID: "m1", CrewID: "crew-sunrise", UserID: "alice"}).Error)

	_, err := env.ingestion.InsertActivities(ctx, "alice", []ActivityInput{
		activityAt("strava", "a", day1, 2),
		activityAt("strava", "b", day1.Add(time.Hour), 3),
		activityAt("strava", "c", day1.Add(24*time.Hour), 1),
	})
	require.NoError(t, err)
	_, err = env.ingestion.InsertActivities(ctx, "bob", []ActivityInput{activityAt("garmin", "z", day1, 10)})
	require.NoError(t, err)

	var stats []gormModels.DailyStat
	require.NoError(t, env.db.Order("day, crew_id").Find(&stats).Error)

	byKey := map[string]gormModels.DailyStat{}
	for _, s := range stats {
		byKey[s.Day+"/"+s.CrewID] = s
	}
	assert.InDelta(t, 15.0, byKey["2025-07-01/global"].Miles, 1e-9)
	assert.Equal(t, int64(3), byKey["2025-07-01/global"].ActivityCount)
	assert.InDelta(t, 5.0, byKey["2025-07-01/crew-sunrise"].Miles, 1e-9)
	assert.InDelta(t, 1.0, byKey["2025-07-02/global"].Miles, 1e-9)
}

func TestInsertActivities_ResyncToAnotherDayClearsTheOldDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ingestion.InsertActivities(ctx, "alice", []ActivityInput{activityAt("strava", "run-1", day1, 5)})
	require.NoError(t, err)
	res, err := env.ingestion.InsertActivities(ctx, "alice", []ActivityInput{activityAt("strava", "run-1", day1.Add(48*time.Hour), 5)})
	require.NoError(t, err)
	assert.Equal(t, IngestResult{Added: 0, Dupes: 1}, res)

	var old, moved gormModels.DailyStat
	require.NoError(t, env.db.Where("day = ? AND crew_id = ?", "2025-07-01", constants.GlobalCrewID).Take(&old).Error)
	require.NoError(t, env.db.Where("day = ? AND crew_id = ?", "2025-07-03", constants.GlobalCrewID).Take(&moved).Error)

	assert.Zero(t, old.Miles)
	assert.Zero(t, old.ActivityCount)
	assert.InDelta(t, 5.0, moved.Miles, 1e-9)
	assert.Equal(t, int64(1), moved.ActivityCount)
	assert.InDelta(t, 5.0, env.totalMiles(t, "alice"), 1e-9)
}

func TestInsertActivities_WritesOutboxOnlyWhenMirrorEnabled(t *testing.T) {
	ctx := context.Background()

	plain := newTestEnv(t)
	_, err := plain.ingestion.InsertActivities(ctx, "alice", []ActivityInput{activityAt("strava", "a", day1, 2)})
	require.NoError(t, err)
	var count int64
	require.NoError(t, plain.db.Model(&gormModels.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)

	mirrored := newTestEnv(t, withMirror())
	_, err = mirrored.ingestion.InsertActivities(ctx, "alice", []ActivityInput{
		activityAt("strava", "a", day1, 2),
		activityAt("strava", "b", day1, 3),
	})
	require.NoError(t, err)

	var events []gormModels.OutboxEvent
	require.NoError(t, mirrored.db.Order("id").Find(&events).Error)
	require.Len(t, events, 2)
	assert.Equal(t, constants.EventActivityUpserted, events[0].EventType)
	assert.Equal(t, "strava:a", events[0].AggregateID)
	assert.Contains(t, string(events[0].Payload), `"external_activity_id":"a"`)
}

func TestInsertActivities_ConcurrentUsersStayIsolated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		i := i
		for _, user := range []string{"alice", "bob"} {
			user := user
			wg.Add(1)
			go func() {
				defer wg.Done()
				miles := 1.0
				if user == "bob" {
					miles = 2.0
				}
				_, err := env.ingestion.InsertActivities(ctx, user, []ActivityInput{
					activityAt("strava", user+"-"+time.Duration(i).String(), day1.Add(time.Duration(i)*time.Minute), miles),
				})
				errs <- err
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.InDelta(t, 20.0, env.totalMiles(t, "alice"), 1e-9)
	assert.InDelta(t, 40.0, env.totalMiles(t, "bob"), 1e-9)
}

// recomputeFromScratch walks the raw ledger rows without touching any cached table.
func recomputeFromScratch(t *testing.T, env *testEnv, userID string) float64 {
	t.Helper()
	var activities []gormModels.Activity
	require.NoError(t, env.db.Where("user_id = ?", userID).Find(&activities).Error)
	var corrections []gormModels.ActivityCorrection
	require.NoError(t, env.db.Find(&corrections).Error)

	deltas := map[string]float64{}
	for _, c := range corrections {
		deltas[c.ActivityID] += c.DeltaMiles
	}
	total := 0.0
	for _, a := range activities {
		if !a.IsExcluded {
			total += a.Miles + deltas[a.ID]
		}
	}
	return total
}

func TestAggregate_MatchesFromScratchRecomputeUnderRandomInterleaving(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	var ids []string
	for step := 0; step < 120; step++ {
		switch {
		case len(ids) == 0 || rng.Intn(3) > 0:
			ext := "ext-" + time.Duration(rng.Intn(30)).String()
			miles := float64(rng.Intn(12000))/100 - 5
			_, err := env.ingestion.InsertActivities(ctx, "alice", []ActivityInput{
				activityAt("strava", ext, day1.Add(time.Duration(rng.Intn(96))*time.Hour), miles),
			})
			require.NoError(t, err)
			ids = append(ids, ActivityID("strava", ext))
		default:
			target := ids[rng.Intn(len(ids))]
			delta := float64(rng.Intn(1000))/100 - 5
			_, err := env.corrections.CorrectActivity(ctx, CorrectionInput{
				UserID:     "alice",
				ActivityID: target,
				DeltaMiles: delta,
				Reason:     "random",
			})
			require.NoError(t, err)
		}

		require.InDelta(t, recomputeFromScratch(t, env, "alice"), env.totalMiles(t, "alice"), 1e-6, "step %d", step)
	}

	require.NoError(t, env.aggregation.RecalculateAggregates(ctx, "alice"))
	assert.InDelta(t, recomputeFromScratch(t, env, "alice"), env.totalMiles(t, "alice"), 1e-6)
}
