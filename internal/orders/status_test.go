package orders

import (
	"math/rand"
	"testing"
	"time"

	"github.com/imrishuroy/go-queue-orderflow/internal/apperr"
)

var allStatuses = []Status{StatusPlaced, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPlaced, StatusPreparing}:    true,
		{StatusPlaced, StatusCancelled}:    true,
		{StatusPreparing, StatusReady}:     true,
		{StatusPreparing, StatusCancelled}: true,
		{StatusReady, StatusCompleted}:     true,
	}
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowed[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus(" ready "); err != nil || s != StatusReady {
		t.Fatalf("ParseStatus: %v %v", s, err)
	}
	if _, err := ParseStatus("SHIPPED"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestAdvance_StampsTimes(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	o := Order{OrderID: "o-1", Status: StatusPlaced, OrderTime: t0}

	o, changed, err := Advance(o, StatusPreparing, t0.Add(time.Minute))
	if err != nil || !changed {
		t.Fatalf("PLACED->PREPARING: changed=%v err=%v", changed, err)
	}
	if o.ReadyTime != nil || o.CompletedTime != nil {
		t.Fatal("PREPARING must not stamp ready/completed")
	}

	o, _, _ = Advance(o, StatusReady, t0.Add(5*time.Minute))
	if o.ReadyTime == nil || !o.ReadyTime.Equal(t0.Add(5*time.Minute)) {
		t.Fatalf("ready time = %v", o.ReadyTime)
	}

	o, _, _ = Advance(o, StatusCompleted, t0.Add(6*time.Minute))
	if o.CompletedTime == nil || o.CompletedTime.Before(*o.ReadyTime) {
		t.Fatalf("completed time = %v", o.CompletedTime)
	}
}

func TestAdvance_SameStatusIsNoop(t *testing.T) {
	o := Order{OrderID: "o-1", Status: StatusPreparing, Version: 3}
	got, changed, err := Advance(o, StatusPreparing, time.Now())
	if err != nil || changed || got.Version != 3 {
		t.Fatalf("expected unchanged order, got changed=%v err=%v", changed, err)
	}
}

func TestAdvance_RejectsOffGraph(t *testing.T) {
	o := Order{OrderID: "o-1", Status: StatusCancelled}
	_, _, err := Advance(o, StatusReady, time.Now())
	if !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid_transition, got %v", err)
	}
}

func TestAdvance_ClampsClockSkew(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	o := Order{OrderID: "o-1", Status: StatusPreparing, OrderTime: t0}
	o, _, _ = Advance(o, StatusReady, t0.Add(-time.Hour))
	if o.ReadyTime.Before(o.OrderTime) {
		t.Fatalf("ready %v before order %v", o.ReadyTime, o.OrderTime)
	}
}

// Random request sequences must only ever realize walks of the lifecycle graph.
func TestAdvance_RandomWalksStayOnGraph(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for run := 0; run < 500; run++ {
		o := Order{OrderID: "o", Status: StatusPlaced, OrderTime: t0}
		path := []Status{o.Status}
		now := t0
		for step := 0; step < 8; step++ {
			now = now.Add(time.Duration(rng.Intn(5)) * time.Minute)
			next, changed, err := Advance(o, allStatuses[rng.Intn(len(allStatuses))], now)
			if err != nil || !changed {
				continue
			}
			o = next
			path = append(path, o.Status)
		}

		for i := 1; i < len(path); i++ {
			if !CanTransition(path[i-1], path[i]) {
				t.Fatalf("invalid walk %v", path)
			}
		}
		seen := map[Status]bool{}
		for _, s := range path {
			seen[s] = true
		}
		if seen[StatusCompleted] && !seen[StatusReady] {
			t.Fatalf("completed without ready: %v", path)
		}
		if seen[StatusCancelled] && (seen[StatusReady] || seen[StatusCompleted]) {
			t.Fatalf("cancelled order reached ready/completed: %v", path)
		}
		if o.ReadyTime != nil && o.ReadyTime.Before(o.OrderTime) {
			t.Fatalf("ready before order time")
		}
		if o.CompletedTime != nil && o.ReadyTime != nil && o.CompletedTime.Before(*o.ReadyTime) {
			t.Fatalf("completed before ready")
		}
	}
}
