package repositories

import (
	"context"
	"errors"
	"fmt"

	"summer-miles/ledger/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// ExportedActivity is an activity with its full correction and note history.
type ExportedActivity struct {
	gorm.Activity
	Corrections []gorm.ActivityCorrection `json:"corrections"`
	Notes       []gorm.ActivityNote       `json:"notes"`
}

// UserExport is the lossless dump of everything stored for one user.
type UserExport struct {
	Profile          *gorm.User                `json:"profile"`
	Activities       []ExportedActivity        `json:"activities"`
	Aggregate        *gorm.UserAggregate       `json:"aggregate"`
	SyncRuns         []gorm.SyncRun            `json:"sync_runs"`
	Incidents        []gorm.Incident           `json:"incidents"`
	Connections      []gorm.ProviderConnection `json:"connections"`
	CrewMemberships  []gorm.CrewMember         `json:"crew_memberships"`
	UserState        *gorm.UserState           `json:"user_state"`
	Actions          []gorm.UserAction         `json:"actions"`
	MotivationEvents []gorm.MotivationEvent    `json:"motivation_events"`
}

// UserDataRepo exports and erases a user's data across every dependent table.
type UserDataRepo struct {
	db *gormlib.DB
}

func NewUserDataRepo(db *gormlib.DB) *UserDataRepo {
	return &UserDataRepo{db: db}
}

// Export reads every table keyed by the user.
func (r *UserDataRepo) Export(ctx context.Context, userID string) (*UserExport, error) {
	db := r.db.WithContext(ctx)
	out := &UserExport{}

	var user gorm.User
	if err := db.Where("id = ?", userID).Take(&user).Error; err == nil {
		out.Profile = &user
	} else if !errors.Is(err, gormlib.ErrRecordNotFound) {
		return nil, fmt.Errorf("export profile: %w", err)
	}

	var activities []gorm.Activity
	if err := db.Where("user_id = ?", userID).Order("ts ASC").Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("export activities: %w", err)
	}
	var corrections []gorm.ActivityCorrection
	if err := db.Where("user_id = ?", userID).Order("created_at ASC").Find(&corrections).Error; err != nil {
		return nil, fmt.Errorf("export corrections: %w", err)
	}
	var notes []gorm.ActivityNote
	if err := db.Where("user_id = ?", userID).Order("created_at ASC").Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("export notes: %w", err)
	}

	byActivity := make(map[string]int, len(activities))
	out.Activities = make([]ExportedActivity, len(activities))
	for i, activity := range activities {
		out.Activities[i] = ExportedActivity{
			Activity:    activity,
			Corrections: []gorm.ActivityCorrection{},
			Notes:       []gorm.ActivityNote{},
		}
		byActivity[activity.ID] = i
	}
	for _, correction := range corrections {
		if i, ok := byActivity[correction.ActivityID]; ok {
			out.Activities[i].Corrections = append(out.Activities[i].Corrections, correction)
		}
	}
	for _, note := range notes {
		if i, ok := byActivity[note.ActivityID]; ok {
			out.Activities[i].Notes = append(out.Activities[i].Notes, note)
		}
	}

	var aggregate gorm.UserAggregate
	if err := db.Where("user_id = ?", userID).Take(&aggregate).Error; err == nil {
		out.Aggregate = &aggregate
	} else if !errors.Is(err, gormlib.ErrRecordNotFound) {
		return nil, fmt.Errorf("export aggregate: %w", err)
	}

	var state gorm.UserState
	if err := db.Where("user_id = ?", userID).Take(&state).Error; err == nil {
		out.UserState = &state
	} else if !errors.Is(err, gormlib.ErrRecordNotFound) {
		return nil, fmt.Errorf("export user state: %w", err)
	}

	lists := []struct {
		name  string
		dest  interface{}
		order string
	}{
		{"sync runs", &out.SyncRuns, "created_at ASC"},
		{"incidents", &out.Incidents, "created_at ASC"},
		{"connections", &out.Connections, "provider ASC"},
		{"crew memberships", &out.CrewMemberships, "crew_id ASC"},
		{"actions", &out.Actions, "created_at ASC"},
		{"motivation events", &out.MotivationEvents, "created_at ASC"},
	}
	for _, list := range lists {
		if err := db.Where("user_id = ?", userID).Order(list.order).Find(list.dest).Error; err != nil {
			return nil, fmt.Errorf("export %s: %w", list.name, err)
		}
	}

	return out, nil
}

// DeleteAll removes the user's rows in dependency order and returns the UTC days their
// activities touched along with the crews they belonged to. Run it inside a transaction.
func (r *UserDataRepo) DeleteAll(ctx context.Context, userID string) (days []string, crewIDs []string, err error) {
	db := r.db.WithContext(ctx)

	var activities []gorm.Activity
	if err := db.Select("id", "ts").Where("user_id = ?", userID).Find(&activities).Error; err != nil {
		return nil, nil, fmt.Errorf("collect activity days: %w", err)
	}
	seen := make(map[string]bool)
	for _, activity := range activities {
		day := DayKey(activity.Ts)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}

	crewIDs, err = NewDailyStatRepo(r.db).CrewsForUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("collect crews: %w", err)
	}

	steps := []struct {
		name  string
		model interface{}
		where string
	}{
		{"notes", &gorm.ActivityNote{}, "user_id = ?"},
		{"corrections", &gorm.ActivityCorrection{}, "user_id = ?"},
		{"activities", &gorm.Activity{}, "user_id = ?"},
		{"aggregate", &gorm.UserAggregate{}, "user_id = ?"},
		{"sync runs", &gorm.SyncRun{}, "user_id = ?"},
		{"incidents", &gorm.Incident{}, "user_id = ?"},
		{"connections", &gorm.ProviderConnection{}, "user_id = ?"},
		{"crew membership", &gorm.CrewMember{}, "user_id = ?"},
		{"user state", &gorm.UserState{}, "user_id = ?"},
		{"actions", &gorm.UserAction{}, "user_id = ?"},
		{"motivation events", &gorm.MotivationEvent{}, "user_id = ?"},
		{"outbox events", &gorm.OutboxEvent{}, "user_id = ?"},
		{"user", &gorm.User{}, "id = ?"},
	}
	for _, step := range steps {
		if err := db.Where(step.where, userID).Delete(step.model).Error; err != nil {
			return nil, nil, fmt.Errorf("delete %s: %w", step.name, err)
		}
	}

	return days, crewIDs, nil
}

// CountOwnedRows reports how many rows each user-keyed table still holds for userID.
func (r *UserDataRepo) CountOwnedRows(ctx context.Context, userID string) (map[string]int64, error) {
	db := r.db.WithContext(ctx)
	counts := make(map[string]int64)
	for _, model := range gorm.All() {
		table := model.(interface{ TableName() string }).TableName()
		column := "user_id"
		switch table {
		case "users":
			column = "id"
		case "crews", "daily_stats", "provider_conditions":
			continue
		}
		var count int64
		if err := db.Model(model).Where(column+" = ?", userID).Count(&count).Error; err != nil {
			return nil, err
		}
		counts[table] = count
	}
	return counts, nil
}
