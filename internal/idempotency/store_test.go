package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-queue-orderflow/internal/aws/awsmock"
)

const table = "idempotency"

func newTestStore() (*Store, *awsmock.Dynamo) {
	db := awsmock.NewDynamo(map[string]string{table: "idempotency_key"})
	s := NewStore(db, table, 48*time.Hour)
	s.nowFunc = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s, db
}

func TestBegin_Get_MarkDone(t *testing.T) {
	s, db := newTestStore()
	ctx := context.Background()

	rec, started, err := s.Begin(ctx, "key-1", "POST /orders", "hash-a")
	if err != nil {
		t.Fatalf("Begin error: %v", err)
	}
	if !started {
		t.Fatalf("expected started=true")
	}
	if rec.Status != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", rec.Status)
	}
	if want := s.nowFunc().Add(48 * time.Hour).Unix(); rec.ExpiresAt != want {
		t.Fatalf("expires_at: got %d want %d", rec.ExpiresAt, want)
	}

	// second begin sees the in-flight attempt
	rec2, started2, err := s.Begin(ctx, "key-1", "POST /orders", "hash-a")
	if err != nil {
		t.Fatalf("second Begin error: %v", err)
	}
	if started2 {
		t.Fatalf("expected started=false on duplicate")
	}
	if rec2.Status != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", rec2.Status)
	}

	if err := s.MarkDone(ctx, "key-1", "order-9", `{"orderId":"order-9"}`, 201); err != nil {
		t.Fatalf("MarkDone error: %v", err)
	}

	item := db.Item(table, "key-1")
	if sv, ok := item["status"].(*types.AttributeValueMemberS); !ok || sv.Value != StatusDone {
		t.Fatalf("status not DONE in raw item: %#v", item["status"])
	}

	got, started3, err := s.Begin(ctx, "key-1", "POST /orders", "hash-a")
	if err != nil {
		t.Fatalf("Begin after done: %v", err)
	}
	if started3 {
		t.Fatalf("a finished key must not start again")
	}
	if got.ResourceID != "order-9" || got.ResponseStatus != 201 || got.ResponseBody != `{"orderId":"order-9"}` {
		t.Fatalf("unexpected replay record: %+v", got)
	}
}

func TestBegin_RestartsFailedKey(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	if _, _, err := s.Begin(ctx, "key-2", "POST /payments", "h"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.MarkFailed(ctx, "key-2", "gateway timeout"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	rec, err := s.Get(ctx, "key-2")
	if err != nil || rec == nil {
		t.Fatalf("Get: %v %v", rec, err)
	}
	if rec.Status != StatusFailed || rec.Note != "gateway timeout" {
		t.Fatalf("unexpected failed record: %+v", rec)
	}

	rec, started, err := s.Begin(ctx, "key-2", "POST /payments", "h")
	if err != nil {
		t.Fatalf("Begin after failure: %v", err)
	}
	if !started {
		t.Fatalf("failed key should be reclaimed")
	}
	if rec.Status != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS after restart, got %s", rec.Status)
	}
}

func TestBegin_KeyReused(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	if _, _, err := s.Begin(ctx, "key-3", "POST /orders", "hash-a"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	_, _, err := s.Begin(ctx, "key-3", "POST /orders", "hash-b")
	if !errors.Is(err, ErrKeyReused) {
		t.Fatalf("expected ErrKeyReused, got %v", err)
	}
	_, _, err = s.Begin(ctx, "key-3", "POST /payments", "hash-a")
	if !errors.Is(err, ErrKeyReused) {
		t.Fatalf("expected ErrKeyReused for another route, got %v", err)
	}
}

func TestGet_Missing(t *testing.T) {
	s, _ := newTestStore()
	rec, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestMark_UnknownKey(t *testing.T) {
	s, db := newTestStore()
	ctx := context.Background()
	if err := s.MarkDone(ctx, "ghost", "", "{}", 200); err == nil {
		t.Fatal("expected error marking an unknown key done")
	}
	if err := s.MarkFailed(ctx, "ghost", "x"); err == nil {
		t.Fatal("expected error marking an unknown key failed")
	}
	if db.Len(table) != 0 {
		t.Fatalf("no item should have been created, have %d", db.Len(table))
	}
}
