package submission

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func waitlistEntry(email string) Waitlist {
	return Waitlist{
		Email:            email,
		Company:          "Acme",
		Role:             "CEO",
		OrganizationSize: "50-100",
		GDPRConsent:      true,
		SecurityConsent:  true,
		Meta:             Meta{IP: "203.0.113.7", UserAgent: "test-agent"},
	}
}

func TestAppendAssignsIDAndTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewWaitlistStore(Options{Now: func() time.Time { return now }})

	got, err := store.Append(context.Background(), waitlistEntry("a@b.com"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got.ID == "" {
		t.Fatal("expected id")
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected createdAt %v", got.CreatedAt)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", store.Len())
	}
	if store.Form() != FormWaitlist {
		t.Fatalf("unexpected form %q", store.Form())
	}
}

func TestAppendRefusesMissingConsent(t *testing.T) {
	store := NewWaitlistStore(Options{})
	entry := waitlistEntry("a@b.com")
	entry.SecurityConsent = false
	if _, err := store.Append(context.Background(), entry); !errors.Is(err, ErrMissingConsent) {
		t.Fatalf("expected ErrMissingConsent, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatal("no record should be stored")
	}

	contacts := NewContactStore(Options{})
	if _, err := contacts.Append(context.Background(), Contact{Email: "a@b.com"}); !errors.Is(err, ErrMissingConsent) {
		t.Fatalf("expected ErrMissingConsent, got %v", err)
	}
}

func TestAppendSweepsExpiredRecords(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	store := NewWaitlistStore(Options{
		Now:       func() time.Time { return now },
		Retention: 24 * time.Hour,
	})
	ctx := context.Background()

	if _, err := store.Append(ctx, waitlistEntry("old@b.com")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	now = start.Add(12 * time.Hour)
	if _, err := store.Append(ctx, waitlistEntry("mid@b.com")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	now = start.Add(25 * time.Hour)
	if _, err := store.Append(ctx, waitlistEntry("new@b.com")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	list := store.List(ctx)
	if len(list) != 2 {
		t.Fatalf("expected oldest record swept, got %d records", len(list))
	}
	if list[0].Email != "mid@b.com" || list[1].Email != "new@b.com" {
		t.Fatalf("unexpected order: %s, %s", list[0].Email, list[1].Email)
	}
}

func TestRetainIsPure(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	in := []Waitlist{
		{ID: "a", CreatedAt: now.Add(-72 * time.Hour)},
		{ID: "b", CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "c", CreatedAt: now.Add(-time.Hour)},
	}
	out := Retain(in, now, 48*time.Hour)
	if len(out) != 2 || out[0].ID != "b" || out[1].ID != "c" {
		t.Fatalf("unexpected retained records %+v", out)
	}
	if len(in) != 3 || in[0].ID != "a" {
		t.Fatal("input slice must not be modified")
	}
	if got := Retain(in, now, 100*time.Hour); len(got) != 3 {
		t.Fatalf("expected nothing dropped, got %d", len(got))
	}
}

func TestListReturnsCopy(t *testing.T) {
	store := NewWaitlistStore(Options{})
	ctx := context.Background()
	if _, err := store.Append(ctx, waitlistEntry("a@b.com")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	list := store.List(ctx)
	list[0].Email = "mutated@b.com"
	if store.List(ctx)[0].Email != "a@b.com" {
		t.Fatal("List must not expose internal storage")
	}
}

func TestConcurrentAppendsGetUniqueIDs(t *testing.T) {
	store := NewWaitlistStore(Options{})
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	idCh := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := store.Append(ctx, waitlistEntry("a@b.com"))
			if err != nil {
				t.Errorf("Append: %v", err)
				return
			}
			idCh <- rec.ID
		}()
	}
	wg.Wait()
	close(idCh)

	seen := make(map[string]struct{}, n)
	for id := range idCh {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
	if store.Len() != n {
		t.Fatalf("expected %d records, got %d", n, store.Len())
	}
}

func TestRequestMetaIsNotSerialized(t *testing.T) {
	rec := waitlistEntry("a@b.com")
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)
	if strings.Contains(body, "203.0.113.7") || strings.Contains(body, "test-agent") {
		t.Fatalf("request metadata leaked: %s", body)
	}
	if !strings.Contains(body, `"gdprConsent":true`) {
		t.Fatalf("expected consent flag in output: %s", body)
	}
}
