package telemetry

// Frame is one sample of game state as published by the telemetry server.
type Frame struct {
	Game   GameState `json:"game"`
	Truck  Truck     `json:"truck"`
	Job    Job       `json:"job"`
	Events []Event   `json:"events,omitempty"`
}

// GameState describes the running game.
type GameState struct {
	SDKActive bool      `json:"sdkActive"`
	Paused    bool      `json:"paused"`
	Game      GameInfo  `json:"game"`
	Time      Timestamp `json:"time"`
}

// GameInfo identifies the game title.
type GameInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Timestamp is an in-game time expressed in minutes since game start.
type Timestamp struct {
	Value int64 `json:"value"`
}

// Truck holds the subset of truck state the tracker needs.
type Truck struct {
	Speed Measure `json:"speed"`
}

// Measure is a numeric reading.
type Measure struct {
	Value float64 `json:"value"`
}

// Job is the active delivery contract.
type Job struct {
	Income          int64     `json:"income"`
	DeliveryTime    Timestamp `json:"deliveryTime"`
	Source          Place     `json:"source"`
	Destination     Place     `json:"destination"`
	Cargo           Cargo     `json:"cargo"`
	PlannedDistance Distance  `json:"plannedDistance"`
}

// Active reports whether the frame carries a job.
func (j Job) Active() bool {
	return j.Cargo.ID != ""
}

// Place is a city/company pair.
type Place struct {
	City    Ref `json:"city"`
	Company Ref `json:"company"`
}

// Ref is an identifier with a display name.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Cargo describes the transported load.
type Cargo struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Mass   float64 `json:"mass"`
	Damage float64 `json:"damage"`
}

// Distance is a planned route length.
type Distance struct {
	Km float64 `json:"km"`
}

// EventType names a discrete job event carried in a frame.
type EventType string

const (
	EventJobStarted   EventType = "job.started"
	EventJobDelivered EventType = "job.delivered"
	EventJobCancelled EventType = "job.cancelled"
)

// Event is a discrete occurrence reported alongside a frame.
type Event struct {
	Type EventType `json:"type"`
}
