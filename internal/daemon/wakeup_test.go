package daemon

import (
	"testing"
	"time"
)

func TestSelect(t *testing.T) {
	at := func(d time.Duration) Candidate { return Candidate{At: t0.Add(d), OK: true} }
	none := Candidate{}

	tests := []struct {
		name            string
		backup, rem, ui Candidate
		wantOK          bool
		wantAt          time.Time
		wantReason      Reason
	}{
		{"nothing", none, none, none, false, time.Time{}, 0},
		{"earliest wins", at(time.Hour), at(time.Minute), at(time.Second), true, t0.Add(time.Second), UpdateUI},
		{"reminder only", none, at(time.Hour), none, true, t0.Add(time.Hour), ShowReminder},
		{"tie goes to run scripts", at(time.Minute), at(time.Minute), at(time.Minute), true, t0.Add(time.Minute), RunScripts},
		{"tie reminder beats ui", none, at(time.Minute), at(time.Minute), true, t0.Add(time.Minute), ShowReminder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, ok := Select(tt.backup, tt.rem, tt.ui)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if !ok {
				return
			}
			if !w.At.Equal(tt.wantAt) || w.Reason != tt.wantReason {
				t.Errorf("expected %v/%s, got %v/%s", tt.wantAt, tt.wantReason, w.At, w.Reason)
			}
		})
	}
}
