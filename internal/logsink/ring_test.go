// SPDX-License-Identifier: MPL-2.0

package logsink

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fxbridge/fxbridge/internal/core/clock"
)

func TestRing_BoundedFIFO(t *testing.T) {
	t.Parallel()

	r := NewRing(DefaultCapacity)
	for i := range 150 {
		r.Append(Info, fmt.Sprintf("entry %d", i))
	}

	got := r.Snapshot()
	if len(got) != 100 {
		t.Fatalf("len(Snapshot()) = %d, want 100", len(got))
	}
	for i, e := range got {
		want := fmt.Sprintf("entry %d", i+50)
		if e.Message != want {
			t.Fatalf("entry %d = %q, want %q", i, e.Message, want)
		}
	}
	if r.Len() != 100 {
		t.Errorf("Len() = %d, want 100", r.Len())
	}
}

func TestRing_PartialFill(t *testing.T) {
	t.Parallel()

	r := NewRing(5)
	r.Append(Warning, "a")
	r.Append(Error, "b")

	got := r.Snapshot()
	if len(got) != 2 || got[0].Message != "a" || got[1].Message != "b" {
		t.Fatalf("Snapshot() = %+v", got)
	}
	if got[0].Severity != Warning || got[1].Severity != Error {
		t.Errorf("severities = %s, %s", got[0].Severity, got[1].Severity)
	}
}

func TestRing_DefaultCapacity(t *testing.T) {
	t.Parallel()

	if got := NewRing(0).Capacity(); got != DefaultCapacity {
		t.Errorf("Capacity() = %d, want %d", got, DefaultCapacity)
	}
}

func TestRing_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	r := NewRing(3)
	r.Append(Info, "original")
	snap := r.Snapshot()
	snap[0].Message = "mutated"

	if r.Snapshot()[0].Message != "original" {
		t.Error("Snapshot must not alias ring storage")
	}
}

func TestRing_TimestampsFromClock(t *testing.T) {
	t.Parallel()

	fc := clock.NewFake(time.Time{})
	r := NewRing(3, WithClock(fc))
	r.Append(Info, "first")
	fc.Advance(time.Minute)
	r.Append(Info, "second")

	snap := r.Snapshot()
	if got := snap[1].Timestamp.Sub(snap[0].Timestamp); got != time.Minute {
		t.Errorf("timestamp gap = %v, want 1m", got)
	}
}

func TestRing_ConcurrentAppend(t *testing.T) {
	t.Parallel()

	r := NewRing(DefaultCapacity)
	var wg sync.WaitGroup
	for w := range 4 {
		wg.Go(func() {
			for i := range 100 {
				r.Append(Info, fmt.Sprintf("w%d-%d", w, i))
			}
		})
	}
	wg.Wait()

	if r.Len() != DefaultCapacity {
		t.Errorf("Len() = %d, want %d", r.Len(), DefaultCapacity)
	}
}

func TestRing_Subscribe(t *testing.T) {
	t.Parallel()

	r := NewRing(10)
	r.Append(Info, "before")

	ch, cancel := r.Subscribe(4)
	r.Append(Success, "after")

	select {
	case e := <-ch:
		if e.Message != "after" {
			t.Errorf("subscriber got %q, want %q", e.Message, "after")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive entry")
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	r.Append(Info, "not delivered")
}

func TestRing_SlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	r := NewRing(10)
	_, cancel := r.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for range 50 {
			r.Append(Info, "spam")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Append blocked on a full subscriber")
	}
}

func TestRing_MirrorsToLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	r := NewRing(5, WithLogger(logger))

	r.Append(Warning, "heartbeat timeout")
	r.Append(Success, "Set Bloom to ON")

	out := buf.String()
	if !strings.Contains(out, "heartbeat timeout") || !strings.Contains(out, "Set Bloom to ON") {
		t.Errorf("logger output missing entries: %q", out)
	}
	if !strings.Contains(out, "severity=success") {
		t.Errorf("success entries should be tagged: %q", out)
	}
}

func TestSeverity_TextRoundTrip(t *testing.T) {
	t.Parallel()

	e := Entry{Message: "x", Severity: Warning}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"severity":"warning"`) {
		t.Errorf("severity not encoded by name: %s", data)
	}

	var back Entry
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Severity != Warning {
		t.Errorf("Severity = %s, want warning", back.Severity)
	}
}

func TestSeverity_Validate(t *testing.T) {
	t.Parallel()

	if err := Severity(9).Validate(); !errors.Is(err, ErrInvalidSeverity) {
		t.Errorf("Validate() = %v, want ErrInvalidSeverity", err)
	}
	var s Severity
	if err := s.UnmarshalText([]byte("fatal")); !errors.Is(err, ErrInvalidSeverity) {
		t.Errorf("UnmarshalText(fatal) = %v, want ErrInvalidSeverity", err)
	}
	if Severity(9).String() != "unknown" {
		t.Error("undefined severity should stringify as unknown")
	}
}
