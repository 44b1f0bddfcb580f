package services

import (
	"context"
	"testing"
	"time"

	"summer-miles/ledger/internal/constants"
	gormModels "summer-miles/ledger/internal/models/gorm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// seedEverything touches every user-keyed table for userID.
func seedEverything(t *testing.T, env *testEnv, userID string) string {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, env.db.FirstOrCreate(&gormModels.Crew{ID: "crew-1", Name: "Night Owls"}).Error)
	require.NoError(t, env.db.Create(&gormModels.CrewMember{ID: "m-" + userID, CrewID: "crew-1", UserID: userID}).Error)

	res := env.sync.SyncUser(ctx, userID, "strava")
	require.Equal(t, constants.SyncSuccess, res.Status)

	id := seedActivity(t, env, userID, userID+"-manual", 4)
	action := correctWithUndo(t, env, userID, id, 1.5)
	require.NotEmpty(t, action.ID)
	_, err := env.corrections.AddNote(ctx, userID, id, "hill repeats")
	require.NoError(t, err)

	require.NoError(t, env.db.Create(&gormModels.UserState{UserID: userID, State: datatypes.JSON(`{"streak":3}`)}).Error)
	require.NoError(t, env.db.Create(&gormModels.MotivationEvent{
		ID: "mot-" + userID, UserID: userID, Kind: "streak", Payload: datatypes.JSON(`{}`), CreatedAt: env.clock.Now(),
	}).Error)
	require.NoError(t, env.db.Create(&gormModels.Incident{
		ID: "inc-" + userID, UserID: userID, Provider: "strava", Kind: constants.IncidentRefreshFailed, CreatedAt: env.clock.Now(),
	}).Error)
	return id
}

func TestExport_ContainsNestedHistory(t *testing.T) {
	env := newTestEnv(t)
	id := seedEverything(t, env, "alice")

	export, err := env.userData.Export(context.Background(), "alice")
	require.NoError(t, err)

	require.NotNil(t, export.Profile)
	assert.Equal(t, "alice", export.Profile.ID)
	assert.Len(t, export.Activities, 4)
	require.NotNil(t, export.Aggregate)
	assert.Len(t, export.SyncRuns, 1)
	assert.Len(t, export.Incidents, 1)
	assert.Len(t, export.Connections, 1)
	assert.Len(t, export.CrewMemberships, 1)
	assert.NotNil(t, export.UserState)
	assert.Len(t, export.Actions, 1)
	assert.Len(t, export.MotivationEvents, 1)

	for _, activity := range export.Activities {
		if activity.ID != id {
			assert.Empty(t, activity.Corrections)
			continue
		}
		require.Len(t, activity.Corrections, 1)
		assert.InDelta(t, 1.5, activity.Corrections[0].DeltaMiles, 1e-9)
		require.Len(t, activity.Notes, 1)
		assert.Equal(t, "hill repeats", activity.Notes[0].Body)
	}
}

func TestDeleteUserData_LeavesNoOrphansAndKeepsOthers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedEverything(t, env, "alice")
	seedEverything(t, env, "bob")
	bobTotal := env.totalMiles(t, "bob")

	require.NoError(t, env.userData.DeleteUserData(ctx, "alice"))

	remaining, err := env.userData.RemainingRows(ctx, "alice")
	require.NoError(t, err)
	for table, count := range remaining {
		assert.Zero(t, count, "table %s still has rows for alice", table)
	}
	assert.Contains(t, remaining, "activities")
	assert.Contains(t, remaining, "activity_corrections")

	var orphanCorrections int64
	require.NoError(t, env.db.Model(&gormModels.ActivityCorrection{}).
		Where("activity_id NOT IN (?)", env.db.Model(&gormModels.Activity{}).Select("id")).
		Count(&orphanCorrections).Error)
	assert.Zero(t, orphanCorrections)

	assert.InDelta(t, bobTotal, env.totalMiles(t, "bob"), 1e-9)
	bobRows, err := env.userData.RemainingRows(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(4), bobRows["activities"])
}

func TestDeleteUserData_RebuildsCommunityStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ingestion.InsertActivities(ctx, "alice", []ActivityInput{activityAt("strava", "a", day1, 5)})
	require.NoError(t, err)
	_, err = env.ingestion.InsertActivities(ctx, "bob", []ActivityInput{activityAt("strava", "b", day1.Add(time.Hour), 2)})
	require.NoError(t, err)

	require.NoError(t, env.userData.DeleteUserData(ctx, "alice"))

	var stat gormModels.DailyStat
	require.NoError(t, env.db.Where("day = ? AND crew_id = ?", "2025-07-01", constants.GlobalCrewID).Take(&stat).Error)
	assert.InDelta(t, 2.0, stat.Miles, 1e-9)
	assert.Equal(t, int64(1), stat.ActivityCount)
}
