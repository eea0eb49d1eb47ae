package watch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"beepstream/internal/models"
)

func TestPollReconcilesFromSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/logs" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"logs":[{"id":"a","message":"disk full","beepType":"beep","timestamp":"2026-08-30T10:00:00Z","archived":false}]}`))
	}))
	defer srv.Close()

	beeper := &countingBeeper{}
	r := &Reconciler{Beeper: beeper, Period: 10 * time.Millisecond}
	p := &Poller{BaseURL: srv.URL, Reconciler: r}

	p.pollOnce(context.Background())
	if !r.Alerting() {
		t.Fatalf("active beep snapshot did not start the alarm")
	}
	r.StopAlarm()
}

func TestPollEmptySnapshotStopsAlarm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"logs":[]}`))
	}))
	defer srv.Close()

	r := &Reconciler{Beeper: &countingBeeper{}, Period: 10 * time.Millisecond}
	r.Reconcile(true)
	p := &Poller{BaseURL: srv.URL, Reconciler: r}

	p.pollOnce(context.Background())
	if r.Alerting() {
		t.Fatalf("empty snapshot left the alarm running")
	}
}

func TestPollSilentOnlySnapshotStopsAlarm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"logs":[{"id":"b","message":"fyi","beepType":"silent","timestamp":"2026-08-30T10:00:00Z","archived":false}]}`))
	}))
	defer srv.Close()

	r := &Reconciler{Beeper: &countingBeeper{}, Period: 10 * time.Millisecond}
	r.Reconcile(true)
	p := &Poller{BaseURL: srv.URL, Reconciler: r}

	p.pollOnce(context.Background())
	if r.Alerting() {
		t.Fatalf("silent-only snapshot left the alarm running")
	}
}

func TestFailedPollKeepsCurrentState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := &Reconciler{Beeper: &countingBeeper{}, Period: 10 * time.Millisecond}
	r.Reconcile(true)
	p := &Poller{BaseURL: srv.URL, Reconciler: r}

	p.pollOnce(context.Background())
	if !r.Alerting() {
		t.Fatalf("failed poll silenced the alarm")
	}
	r.StopAlarm()
}

func TestFetchActiveLogsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success":false,"error":"Failed to fetch logs"}`))
	}))
	defer srv.Close()

	p := &Poller{BaseURL: srv.URL}
	if _, err := p.FetchActiveLogs(context.Background()); err == nil {
		t.Fatalf("expected error for success=false body")
	}
}

func TestHasActiveBeep(t *testing.T) {
	logs := []models.Log{
		{BeepType: models.BeepTypeSilent},
		{BeepType: models.BeepTypeBeep, Archived: true},
	}
	if hasActiveBeep(logs) {
		t.Fatalf("archived beep counted as active")
	}
	logs = append(logs, models.Log{BeepType: models.BeepTypeBeep})
	if !hasActiveBeep(logs) {
		t.Fatalf("active beep not detected")
	}
}
