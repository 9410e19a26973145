package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordChatTurn("balance", "balance")
	m.RecordTransfer("success", 20*time.Millisecond)
	m.ObserveAssistantCall("success", time.Second)
	m.RecordOutboxEvent("published")
	m.ObserveHTTP("POST", "/api/v1/chat", 200, time.Millisecond)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{
		"ledgerbot_chat_turns_total",
		"ledgerbot_transfers_total",
		"ledgerbot_transfer_duration_seconds",
		"ledgerbot_assistant_calls_total",
		"ledgerbot_outbox_events_total",
		"ledgerbot_http_requests_total",
	} {
		if !names[want] {
			t.Errorf("expected metric %s to be registered", want)
		}
	}
}

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordChatTurn("transfer", "transfer_success")
	m.RecordChatTurn("transfer", "transfer_success")
	m.RecordTransfer("rejected", time.Millisecond)
	m.ObserveAssistantCall("cache_hit", 0)

	if got := testutil.ToFloat64(m.ChatTurns.WithLabelValues("transfer", "transfer_success")); got != 2 {
		t.Fatalf("expected 2 chat turns, got %v", got)
	}
	if got := testutil.ToFloat64(m.Transfers.WithLabelValues("rejected")); got != 1 {
		t.Fatalf("expected 1 rejected transfer, got %v", got)
	}
	if got := testutil.CollectAndCount(m.AssistantDuration); got != 1 {
		t.Fatalf("expected histogram to be collected once, got %d", got)
	}
	if got := testutil.ToFloat64(m.AssistantCalls.WithLabelValues("cache_hit")); got != 1 {
		t.Fatalf("expected 1 cache hit, got %v", got)
	}
}

func TestNewTwiceOnSameRegistryPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	New(registry)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected duplicate registration to panic")
		}
	}()
	New(registry)
}
