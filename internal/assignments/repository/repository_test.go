package repository

import (
	"testing"
	"time"
)

func TestGraceExpired(t *testing.T) {
	now := time.Date(2026, time.March, 5, 14, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	cases := []struct {
		name       string
		acceptedAt *time.Time
		want       bool
	}{
		{"never accepted", nil, false},
		{"just accepted", at(0), false},
		{"inside window", at(GracePeriod - time.Second), false},
		{"exactly at boundary", at(GracePeriod), false},
		{"past window", at(GracePeriod + time.Second), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := graceExpired(tc.acceptedAt, now); got != tc.want {
				t.Fatalf("graceExpired = %v, want %v", got, tc.want)
			}
		})
	}
}
