package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/khuttun/labyrinth/internal/config"
)

func runTestBoard(t *testing.T) *Board {
	t.Helper()
	board, err := NewBoard(10, 10, NewVec2(5, 5),
		nil,
		[]Hole{{Center: NewVec2(2, 2), Radius: 0.3}},
		Goal{Center: NewVec2(9, 9), Radius: 0.5})
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	return board
}

func runTestConfig() *config.Config {
	return &config.Config{
		Gravity:             50,
		Damping:             0.4,
		Restitution:         0.45,
		MaxTilt:             0.5,
		SimulationHz:        120,
		CollisionIterations: 4,
		BallRadius:          0.25,
		HoleRadius:          0.3,
		RunExpiryMinutes:    10,
		SnapshotTTLSeconds:  3600,
	}
}

func newTestRun(t *testing.T, pilot Pilot) *Run {
	t.Helper()
	cfg := runTestConfig()
	sim, err := NewSimulator(SimulatorConfig(cfg))
	if err != nil {
		t.Fatalf("simulator: %v", err)
	}
	return NewRun("run_test", "tok", 1, "Test", runTestBoard(t), sim, cfg.BallRadius, pilot)
}

func TestRunAdvanceConsumesFixedSteps(t *testing.T) {
	run := newTestRun(t, nil)
	start := run.CreatedAt

	// 34ms at a 120 Hz simulation rate is 4 full steps with a remainder.
	snap, terminal := run.Advance(start.Add(34 * time.Millisecond))
	if terminal {
		t.Fatal("flat board must not end the run")
	}
	dt := run.sim.Config().FixedTimestep
	wantMs := int64(4 * dt * 1000)
	if snap.ElapsedMs != wantMs {
		t.Errorf("elapsed: got %dms, want %dms", snap.ElapsedMs, wantMs)
	}
	if snap.Status != RunInProgress {
		t.Errorf("status: got %s", snap.Status)
	}
}

func TestRunAdvanceCapsStalledFrames(t *testing.T) {
	run := newTestRun(t, nil)

	// A 10-second stall must not fire 1200 steps at once.
	snap, _ := run.Advance(run.CreatedAt.Add(10 * time.Second))
	maxMs := int64(maxFrameTime * 1000)
	if snap.ElapsedMs > maxMs {
		t.Errorf("elapsed %dms exceeds frame cap %dms", snap.ElapsedMs, maxMs)
	}
}

func TestRunBallStaysStillOnFlatBoard(t *testing.T) {
	run := newTestRun(t, nil)
	snap, _ := run.Advance(run.CreatedAt.Add(time.Second / 4))
	if snap.Ball.Position.X != 5 || snap.Ball.Position.Y != 5 {
		t.Errorf("ball moved with zero tilt: %+v", snap.Ball.Position)
	}
}

func TestRunTiltMovesBall(t *testing.T) {
	run := newTestRun(t, nil)
	run.Tilt(0, 0.3) // roll accelerates along +X
	snap, _ := run.Advance(run.CreatedAt.Add(time.Second / 4))
	if !(snap.Ball.Position.X > 5) {
		t.Errorf("ball did not roll: %+v", snap.Ball.Position)
	}
	if snap.Tilt.Roll != 0.3 {
		t.Errorf("tilt: got %g", snap.Tilt.Roll)
	}
}

func TestRunTiltClampsToMax(t *testing.T) {
	run := newTestRun(t, nil)
	run.Tilt(3, -3)
	snap := run.Snapshot()
	if snap.Tilt.Pitch != 0.5 || snap.Tilt.Roll != -0.5 {
		t.Errorf("tilt not clamped: %+v", snap.Tilt)
	}
}

func TestRunTerminalStateFreezesAndRestarts(t *testing.T) {
	run := newTestRun(t, nil)
	// Steer hard toward the hole at (2, 2).
	run.Tilt(-0.5, -0.5)

	now := run.CreatedAt
	var terminal bool
	for i := 0; i < 600 && !terminal; i++ {
		now = now.Add(time.Second / 30)
		_, terminal = run.Advance(now)
	}
	if !terminal {
		t.Fatal("ball never fell into the hole")
	}
	snap := run.Snapshot()
	if snap.Status != RunLost || snap.Hole != 0 {
		t.Fatalf("expected lost run into hole 0, got %+v", snap)
	}

	// Frozen: further input and time do nothing.
	run.Tilt(0.2, 0.2)
	frozen, terminal2 := run.Advance(now.Add(time.Second))
	if terminal2 {
		t.Error("terminal must be reported once")
	}
	if frozen.Ball.Position != snap.Ball.Position || frozen.ElapsedMs != snap.ElapsedMs {
		t.Errorf("terminal run kept moving: %+v vs %+v", frozen, snap)
	}
	if frozen.Tilt != snap.Tilt {
		t.Error("tilt input accepted after terminal state")
	}

	// Restart puts everything back.
	run.Restart()
	fresh := run.Snapshot()
	if fresh.Status != RunInProgress || fresh.Hole != -1 || fresh.ElapsedMs != 0 {
		t.Errorf("restart state: %+v", fresh)
	}
	if fresh.Ball.Position.X != 5 || fresh.Ball.Position.Y != 5 {
		t.Errorf("ball not back at start: %+v", fresh.Ball.Position)
	}
	if !fresh.Ball.Velocity.IsZero() || fresh.Tilt.Pitch != 0 || fresh.Tilt.Roll != 0 {
		t.Errorf("restart left residual motion: %+v", fresh)
	}
}

type scriptedPilot struct {
	dPitch, dRoll float64
	moves         int
	resets        int
}

func (p *scriptedPilot) NextMove(ball Ball, tilt TiltState, now time.Time) (float64, float64) {
	p.moves++
	return p.dPitch, p.dRoll
}

func (p *scriptedPilot) Reset() { p.resets++ }

func TestRunPilotDrivesTilt(t *testing.T) {
	pilot := &scriptedPilot{dRoll: 0.1}
	run := newTestRun(t, pilot)

	snap, _ := run.Advance(run.CreatedAt.Add(time.Second / 30))
	if pilot.moves != 1 {
		t.Errorf("pilot consulted %d times, want once per Advance", pilot.moves)
	}
	if snap.Tilt.Roll != 0.1 {
		t.Errorf("pilot tilt not applied: %+v", snap.Tilt)
	}

	run.Restart()
	if pilot.resets != 1 {
		t.Errorf("pilot resets: got %d, want 1", pilot.resets)
	}
}

func newTestManager(t *testing.T) *RunManager {
	t.Helper()
	rm := NewRunManager(nil, nil, runTestConfig())
	t.Cleanup(rm.Stop)
	return rm
}

func TestManagerCreateAndGet(t *testing.T) {
	rm := newTestManager(t)

	run, err := rm.CreateRun(1, "Test", runTestBoard(t), nil, 0, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if run.Token == "" || len(run.Token) != 32 {
		t.Errorf("token: %q", run.Token)
	}

	got, err := rm.Get(run.Token)
	if err != nil || got != run {
		t.Fatalf("get: %v %v", got, err)
	}
	if rm.ActiveCount() != 1 {
		t.Errorf("active count: %d", rm.ActiveCount())
	}

	if _, err := rm.Get("bogus"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("unknown token: got %v, want ErrRunNotFound", err)
	}
}

func TestManagerTokensAreUnique(t *testing.T) {
	rm := newTestManager(t)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		run, err := rm.CreateRun(1, "Test", runTestBoard(t), nil, 0, "")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if seen[run.Token] {
			t.Fatalf("duplicate token %q", run.Token)
		}
		seen[run.Token] = true
	}
}

func TestManagerRemoveAbandonsActiveRun(t *testing.T) {
	rm := newTestManager(t)
	run, err := rm.CreateRun(1, "Test", runTestBoard(t), nil, 0, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rm.Remove(run.Token)
	if run.Status() != RunAbandoned {
		t.Errorf("status after remove: %s", run.Status())
	}
	if _, err := rm.Get(run.Token); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("run still reachable after remove: %v", err)
	}
	// Removing twice is harmless.
	rm.Remove(run.Token)
}

func TestManagerLeaderboardEmptyWithoutStores(t *testing.T) {
	rm := newTestManager(t)
	entries, err := rm.Leaderboard(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty leaderboard, got %+v", entries)
	}
}
