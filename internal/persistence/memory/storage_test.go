package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
	"github.com/example/trainer-scheduler/internal/payment"
	"github.com/example/trainer-scheduler/internal/persistence"
	"github.com/example/trainer-scheduler/internal/testfixtures"
)

func TestStorage_Clients(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := New()

	bia := testfixtures.NewClient(testfixtures.WithClientID("bia"), testfixtures.WithClientName("Bia"))
	ana := testfixtures.NewClient(testfixtures.WithClientID("ana"), testfixtures.WithClientName("Ana"))
	for _, client := range []model.Client{bia, ana} {
		if err := storage.SaveClient(ctx, client); err != nil {
			t.Fatalf("SaveClient failed: %v", err)
		}
	}

	clients, err := storage.LoadClients(ctx)
	if err != nil {
		t.Fatalf("LoadClients failed: %v", err)
	}
	if len(clients) != 2 || clients[0].ID != "ana" {
		t.Fatalf("expected clients ordered by name, got %#v", clients)
	}

	clients[0].Template[0].Weekday = time.Sunday
	reloaded, _ := storage.LoadClients(ctx)
	if reloaded[0].Template[0].Weekday == time.Sunday {
		t.Fatalf("expected storage to hand out copies")
	}

	if err := storage.SaveClient(ctx, model.Client{}); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected constraint violation for missing id, got %v", err)
	}
}

func TestStorage_Occurrences(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := New()

	march := testfixtures.NewOccurrence(testfixtures.WithOccurrenceSlot("ana", "2024-03-04", "08:00"))
	april := testfixtures.NewOccurrence(testfixtures.WithOccurrenceSlot("ana", "2024-04-01", "08:00"))
	for _, occ := range []model.Occurrence{april, march} {
		if err := storage.SaveOccurrence(ctx, occ); err != nil {
			t.Fatalf("SaveOccurrence failed: %v", err)
		}
	}

	loaded, err := storage.LoadOccurrences(ctx, calendar.MustParseDate("2024-03-01"), calendar.MustParseDate("2024-03-31"))
	if err != nil {
		t.Fatalf("LoadOccurrences failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != march.ID {
		t.Fatalf("unexpected occurrences: %#v", loaded)
	}

	if _, err := storage.LoadOccurrences(ctx, calendar.MustParseDate("2024-03-31"), calendar.MustParseDate("2024-03-01")); !errors.Is(err, calendar.ErrInvalidRange) {
		t.Fatalf("expected invalid range, got %v", err)
	}

	if err := storage.DeleteOccurrence(ctx, march.ID); err != nil {
		t.Fatalf("DeleteOccurrence failed: %v", err)
	}
	if err := storage.DeleteOccurrence(ctx, march.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	for _, key := range []string{march.Key(), march.Key(), ""} {
		if err := storage.SaveTombstone(ctx, key); err != nil {
			t.Fatalf("SaveTombstone failed: %v", err)
		}
	}
	tombstones, err := storage.LoadTombstones(ctx)
	if err != nil {
		t.Fatalf("LoadTombstones failed: %v", err)
	}
	if len(tombstones) != 1 || tombstones[0] != march.Key() {
		t.Fatalf("unexpected tombstones: %v", tombstones)
	}
}

func TestStorage_Statuses(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := New()
	paidAt := testfixtures.ReferenceTime()

	snapshot := []payment.Status{
		{ClientID: "bia", DueDate: calendar.MustParseDate("2024-03-10")},
		{ClientID: "ana", DueDate: calendar.MustParseDate("2024-03-05"), Paid: true, PaidAt: &paidAt},
	}
	if err := storage.SaveStatuses(ctx, snapshot); err != nil {
		t.Fatalf("SaveStatuses failed: %v", err)
	}

	loaded, err := storage.LoadStatuses(ctx)
	if err != nil {
		t.Fatalf("LoadStatuses failed: %v", err)
	}
	if len(loaded) != 2 || loaded[0].ClientID != "ana" || !loaded[0].PaidAt.Equal(paidAt) {
		t.Fatalf("unexpected statuses: %#v", loaded)
	}
}

func TestStorage_HonoursCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New().LoadClients(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
