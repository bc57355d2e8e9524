// Package common provides shared constants, types, and utilities
// used across the Next Generation Tracker client.
package common

// UserProfile is the account summary served by the backend.
// It is cached locally for display and never treated as authoritative.
type UserProfile struct {
	ID                   string  `json:"_id,omitempty"`
	Username             string  `json:"username"`
	Email                string  `json:"email,omitempty"`
	JobsCompleted        int     `json:"jobsCompleted"`
	JobsCancelled        int     `json:"jobsCancelled"`
	TotalMassTransported float64 `json:"totalMassTransported"`
	TotalMoneyEarned     float64 `json:"totalMoneyEarned"`
	TopSpeed             float64 `json:"topSpeed"`
	TotalDistance        float64 `json:"totalDistance"`
}

// Usable reports whether the profile carries enough data to show a dashboard.
func (p *UserProfile) Usable() bool {
	return p != nil && p.Username != ""
}

// JobReport is the one-shot payload sent to the backend when a job ends.
type JobReport struct {
	IsLate               bool    `json:"isLate"`
	WasFinished          bool    `json:"wasFinished"`
	GameID               string  `json:"gameId"`
	SourceCityID         string  `json:"sourceCityId"`
	SourceCompanyID      string  `json:"sourceCompanyId"`
	DestinationCityID    string  `json:"destinationCityId"`
	DestinationCompanyID string  `json:"destinationCompanyId"`
	CargoID              string  `json:"cargoId"`
	TopSpeed             float64 `json:"topSpeed"`
	Income               int64   `json:"income"`
	Mass                 int64   `json:"mass"`
	DistanceDriven       float64 `json:"distanceDriven"`
	CargoDamage          float64 `json:"cargoDamage"`
}
