// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordTick(t *testing.T) {
	RecordTick(150*time.Millisecond, 3, 7)

	if got := testutil.ToFloat64(PartiesActive); got != 3 {
		t.Errorf("PartiesActive = %v, want 3", got)
	}
	if got := testutil.ToFloat64(ListenersActive); got != 7 {
		t.Errorf("ListenersActive = %v, want 7", got)
	}

	var m dto.Metric
	if err := TickDuration.Write(&m); err != nil {
		t.Fatalf("write histogram: %v", err)
	}
	if m.GetHistogram().GetSampleCount() == 0 {
		t.Error("tick histogram has no samples")
	}
}

func TestRecordCommand(t *testing.T) {
	before := testutil.ToFloat64(CorrectiveCommands.WithLabelValues("play", "relay", "success"))
	RecordCommand("play", "relay", true)
	RecordCommand("play", "relay", false)

	if got := testutil.ToFloat64(CorrectiveCommands.WithLabelValues("play", "relay", "success")); got != before+1 {
		t.Errorf("success counter = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(CorrectiveCommands.WithLabelValues("play", "relay", "failure")); got < 1 {
		t.Errorf("failure counter = %v, want >= 1", got)
	}
}

func TestRecordUpstreamRequest_StatusLabels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		label  string
	}{
		{"ok", 200, "200"},
		{"unauthorized", 401, "401"},
		{"transport error", 0, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := UpstreamRequests.WithLabelValues("test_op_"+tt.name, tt.label)
			before := testutil.ToFloat64(c)
			RecordUpstreamRequest("test_op_"+tt.name, tt.status, time.Millisecond)
			if got := testutil.ToFloat64(c); got != before+1 {
				t.Errorf("counter = %v, want %v", got, before+1)
			}
		})
	}
}

func TestRecordEventPublished(t *testing.T) {
	RecordEventPublished("party.test", nil)
	RecordEventPublished("party.test", errors.New("closed"))

	if got := testutil.ToFloat64(EventsPublished.WithLabelValues("party.test", "success")); got < 1 {
		t.Errorf("success = %v", got)
	}
	if got := testutil.ToFloat64(EventsPublished.WithLabelValues("party.test", "failure")); got < 1 {
		t.Errorf("failure = %v", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	c := APIRequestsTotal.WithLabelValues("POST", "/api/v1/parties", "201")
	before := testutil.ToFloat64(c)
	RecordAPIRequest("POST", "/api/v1/parties", 201, 3*time.Millisecond)
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Errorf("counter = %v, want %v", got, before+1)
	}
}
