package gorm

// All lists every ledger model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Crew{},
		&CrewMember{},
		&UserState{},
		&MotivationEvent{},
		&Activity{},
		&ActivityCorrection{},
		&ActivityNote{},
		&UserAggregate{},
		&DailyStat{},
		&ProviderConnection{},
		&ProviderCondition{},
		&Incident{},
		&SyncRun{},
		&UserAction{},
		&OutboxEvent{},
	}
}
