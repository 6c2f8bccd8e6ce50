// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
	"time"
)

func TestRestartDelay_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		delay   RestartDelay
		wantErr bool
	}{
		{1, false},
		{5, false},
		{60, false},
		{0, true},
		{61, true},
		{-5, true},
	}

	for _, tt := range tests {
		t.Run(tt.delay.String(), func(t *testing.T) {
			t.Parallel()
			err := tt.delay.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("RestartDelay(%d).Validate() error = %v, wantErr %v", tt.delay, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidRestartDelay) {
				t.Errorf("error should wrap ErrInvalidRestartDelay, got: %v", err)
			}
		})
	}
}

func TestRestartDelay_Duration(t *testing.T) {
	t.Parallel()

	if got := RestartDelay(5).Duration(); got != 5*time.Second {
		t.Errorf("Duration() = %v, want 5s", got)
	}
}

func TestMaxRestartAttempts_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempts MaxRestartAttempts
		wantErr  bool
	}{
		{1, false},
		{10, false},
		{50, false},
		{0, true},
		{51, true},
	}

	for _, tt := range tests {
		t.Run(tt.attempts.String(), func(t *testing.T) {
			t.Parallel()
			err := tt.attempts.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("MaxRestartAttempts(%d).Validate() error = %v, wantErr %v", tt.attempts, err, tt.wantErr)
			}
			if tt.wantErr {
				var typed *InvalidMaxRestartAttemptsError
				if !errors.As(err, &typed) {
					t.Errorf("error should be *InvalidMaxRestartAttemptsError, got: %T", err)
				}
				if !errors.Is(err, ErrInvalidMaxRestartAttempts) {
					t.Errorf("error should wrap ErrInvalidMaxRestartAttempts, got: %v", err)
				}
			}
		})
	}
}
