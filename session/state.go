// Package session holds the UI context's mutable state and the event loop
// that serializes access to it.
package session

import (
	"math"

	"github.com/ngtracker/ngt-desktop/common"
	"github.com/ngtracker/ngt-desktop/config"
	"github.com/ngtracker/ngt-desktop/telemetry"
)

// Snapshot accumulates job data between job start and delivery or
// cancellation.
type Snapshot struct {
	TopSpeed float64
	Job      telemetry.Job
	IsLate   bool
	GameID   string
}

// Reset clears the per-job accumulators.
func (s *Snapshot) Reset() {
	s.TopSpeed = 0
	s.IsLate = false
}

// Observe folds one time-change sample into the snapshot. A frame without
// an active job keeps the last job reference and lateness untouched.
func (s *Snapshot) Observe(current telemetry.Timestamp, frame telemetry.Frame) {
	s.TopSpeed = math.Max(s.TopSpeed, frame.Truck.Speed.Value)
	s.GameID = frame.Game.Game.Name
	if !frame.Job.Active() {
		return
	}
	s.Job = frame.Job
	if current.Value > frame.Job.DeliveryTime.Value {
		s.IsLate = true
	}
}

// Report builds the job report for a delivery (finished) or cancellation.
func (s *Snapshot) Report(finished bool) common.JobReport {
	job := s.Job
	return common.JobReport{
		IsLate:               s.IsLate,
		WasFinished:          finished,
		GameID:               s.GameID,
		SourceCityID:         job.Source.City.ID,
		SourceCompanyID:      job.Source.Company.ID,
		DestinationCityID:    job.Destination.City.ID,
		DestinationCompanyID: job.Destination.Company.ID,
		CargoID:              job.Cargo.ID,
		TopSpeed:             s.TopSpeed,
		Income:               job.Income,
		Mass:                 int64(math.Round(job.Cargo.Mass)),
		DistanceDriven:       job.PlannedDistance.Km,
		CargoDamage:          job.Cargo.Damage,
	}
}

// State is owned by the Loop and must only be touched from loop tasks.
type State struct {
	Session  *config.Session
	Profile  *common.UserProfile
	Snapshot Snapshot
	LoggedIn bool
}

// NewState returns an empty logged-out state.
func NewState() *State {
	return &State{Session: &config.Session{}}
}

// Token returns the bearer token of the current session.
func (s *State) Token() string {
	if s.Session == nil {
		return ""
	}
	return s.Session.Token
}
