package models

import "time"

// UserProfile is a typed row of raw.user_profiles and, after dedup, of
// staging.latest_user_profiles.
type UserProfile struct {
	UserID      string     `json:"user_id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Country     string     `json:"country"`
	Tier        string     `json:"tier"`
	KYCStatus   string     `json:"kyc_status"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	IngestedAt  time.Time  `json:"ingested_at"`
	SourceFile  string     `json:"source_file"`
	RowSeq      int64      `json:"row_seq"`
}
