package models

import "time"

// ActivityRecord captures one usage event for the admin digest and export.
type ActivityRecord struct {
	ChatID      int64     `bson:"chat_id" json:"chat_id"`
	Username    string    `bson:"username" json:"username"`
	PhoneNumber string    `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	Event       string    `bson:"event" json:"event"`
	At          time.Time `bson:"at" json:"at"`
}

// ActivitySummary aggregates usage over a period.
type ActivitySummary struct {
	Since       time.Time
	Events      int
	UniqueChats int
	Completed   int
}
