package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ngtracker/ngt-desktop/telemetry"
)

func sampleJob() telemetry.Job {
	return telemetry.Job{
		Income:       12500,
		DeliveryTime: telemetry.Timestamp{Value: 500},
		Source: telemetry.Place{
			City:    telemetry.Ref{ID: "berlin"},
			Company: telemetry.Ref{ID: "tradeaux"},
		},
		Destination: telemetry.Place{
			City:    telemetry.Ref{ID: "praha"},
			Company: telemetry.Ref{ID: "lkw"},
		},
		Cargo:           telemetry.Cargo{ID: "apples", Mass: 18250.6, Damage: 0.02},
		PlannedDistance: telemetry.Distance{Km: 352},
	}
}

func frame(speed float64) telemetry.Frame {
	return telemetry.Frame{
		Game:  telemetry.GameState{Game: telemetry.GameInfo{Name: "ets2"}},
		Truck: telemetry.Truck{Speed: telemetry.Measure{Value: speed}},
		Job:   sampleJob(),
	}
}

func TestSnapshot_Observe(t *testing.T) {
	var s Snapshot

	s.Observe(telemetry.Timestamp{Value: 100}, frame(80))
	s.Observe(telemetry.Timestamp{Value: 101}, frame(65))
	if s.TopSpeed != 80 {
		t.Errorf("TopSpeed = %v, want running max 80", s.TopSpeed)
	}
	if s.IsLate {
		t.Error("IsLate should be false before the deadline")
	}
	if s.GameID != "ets2" {
		t.Errorf("GameID = %q", s.GameID)
	}

	// Equal to the deadline is not late.
	s.Observe(telemetry.Timestamp{Value: 500}, frame(10))
	if s.IsLate {
		t.Error("IsLate should stay false at the deadline")
	}

	s.Observe(telemetry.Timestamp{Value: 501}, frame(10))
	if !s.IsLate {
		t.Error("IsLate should be true after the deadline")
	}

	s.Reset()
	if s.IsLate || s.TopSpeed != 0 {
		t.Errorf("Reset() left %+v", s)
	}
}

func TestSnapshot_ObserveWithoutJob(t *testing.T) {
	var s Snapshot
	s.Observe(telemetry.Timestamp{Value: 100}, frame(40))

	idle := frame(55)
	idle.Job = telemetry.Job{}
	s.Observe(telemetry.Timestamp{Value: 900}, idle)

	if s.Job.Cargo.ID != "apples" {
		t.Errorf("Job = %+v, want the last active job kept", s.Job)
	}
	if s.IsLate {
		t.Error("a frame without a job must not mark the snapshot late")
	}
	if s.TopSpeed != 55 {
		t.Errorf("TopSpeed = %v, want 55", s.TopSpeed)
	}
}

func TestSnapshot_Report(t *testing.T) {
	s := Snapshot{TopSpeed: 92.3, Job: sampleJob(), IsLate: true, GameID: "ets2"}

	r := s.Report(false)
	if r.WasFinished || !r.IsLate {
		t.Errorf("flags = finished:%v late:%v", r.WasFinished, r.IsLate)
	}
	if r.Mass != 18251 {
		t.Errorf("Mass = %d, want rounded 18251", r.Mass)
	}
	if r.SourceCityID != "berlin" || r.DestinationCompanyID != "lkw" || r.CargoID != "apples" {
		t.Errorf("ids = %+v", r)
	}
	if r.DistanceDriven != 352 || r.Income != 12500 || r.TopSpeed != 92.3 {
		t.Errorf("numbers = %+v", r)
	}
}

func TestState_Token(t *testing.T) {
	s := NewState()
	if s.Token() != "" {
		t.Errorf("Token() = %q on a new state", s.Token())
	}
	s.Session.Token = "tok123"
	if s.Token() != "tok123" {
		t.Errorf("Token() = %q", s.Token())
	}
	s.Session = nil
	if s.Token() != "" {
		t.Error("Token() should handle a nil session")
	}
}

func TestLoop_RunsTasksInOrder(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() { order = append(order, i) })
	}
	l.Wait()

	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v", order)
		}
	}
	if len(order) != 5 {
		t.Errorf("ran %d tasks, want 5", len(order))
	}
}

func TestLoop_GoPostsCallback(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	var background, callback atomic.Bool
	l.Go(func() func() {
		time.Sleep(5 * time.Millisecond)
		background.Store(true)
		return func() { callback.Store(true) }
	})
	l.Go(func() func() { return nil })
	l.Wait()

	if !background.Load() || !callback.Load() {
		t.Errorf("background = %v, callback = %v", background.Load(), callback.Load())
	}
}

func TestLoop_RecoversFromPanic(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	ran := false
	l.Post(func() { panic("boom") })
	l.Post(func() { ran = true })
	l.Wait()

	if !ran {
		t.Error("loop should keep running after a panicking task")
	}
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
