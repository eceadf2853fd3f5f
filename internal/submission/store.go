package submission

import (
	"context"
	"sync"
	"time"

	"formgate.org/internal/ids"
	"formgate.org/internal/obs"
)

// Options tunes a Store. Zero values pick the defaults.
type Options struct {
	Now       func() time.Time
	Retention time.Duration
	IDs       *ids.Generator
}

// Store keeps submissions of one form in process memory, oldest first.
type Store[R Record[R]] struct {
	mu        sync.RWMutex
	form      string
	now       func() time.Time
	retention time.Duration
	ids       *ids.Generator
	records   []R
}

// NewStore returns an empty store for form.
func NewStore[R Record[R]](form string, opts Options) *Store[R] {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.IDs == nil {
		opts.IDs = ids.NewGenerator(opts.Now)
	}
	return &Store[R]{
		form:      form,
		now:       opts.Now,
		retention: opts.Retention,
		ids:       opts.IDs,
	}
}

// NewWaitlistStore returns a Store for waitlist sign-ups.
func NewWaitlistStore(opts Options) *Store[Waitlist] {
	return NewStore[Waitlist](FormWaitlist, opts)
}

// NewContactStore returns a Store for contact messages.
func NewContactStore(opts Options) *Store[Contact] {
	return NewStore[Contact](FormContact, opts)
}

// Form returns the form this store holds.
func (s *Store[R]) Form() string { return s.form }

// Append assigns an id and creation time to r, stores it and then sweeps
// records older than the retention period. Records without consent are
// refused.
func (s *Store[R]) Append(ctx context.Context, r R) (R, error) {
	if !r.Consented() {
		var zero R
		return zero, ErrMissingConsent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	stored := r.Stamp(s.ids.New(), now)
	s.records = append(s.records, stored)
	s.records = Retain(s.records, now, s.retention)

	obs.StoredRecords.WithLabelValues(s.form).Set(float64(len(s.records)))
	return stored, nil
}

// List returns a copy of all stored records, oldest first.
func (s *Store[R]) List(ctx context.Context) []R {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]R, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of stored records.
func (s *Store[R]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Retain returns the records created within period of now. The input slice is
// not modified.
func Retain[R Record[R]](records []R, now time.Time, period time.Duration) []R {
	cutoff := now.Add(-period)
	drop := 0
	for _, r := range records {
		if r.Created().Before(cutoff) {
			drop++
		}
	}
	if drop == 0 {
		return records
	}
	out := make([]R, 0, len(records)-drop)
	for _, r := range records {
		if !r.Created().Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}
