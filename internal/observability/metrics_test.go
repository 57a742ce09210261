package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// metrics is shared across this file's test functions since NewMetrics
// registers its collectors with the default Prometheus registry, which
// panics on a second registration of the same metric name.
var metrics = NewMetrics()

func TestRecordLLMRequest(t *testing.T) {
	metrics.RecordLLMRequest("anthropic", "claude-sonnet-4", "success", 1.2, 100, 50)

	if got := testutil.ToFloat64(metrics.LLMRequestCounter.WithLabelValues("anthropic", "claude-sonnet-4", "success")); got != 1 {
		t.Errorf("LLMRequestCounter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("anthropic", "claude-sonnet-4", "prompt")); got != 100 {
		t.Errorf("LLMTokensUsed(prompt) = %v, want 100", got)
	}
	if got := testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("anthropic", "claude-sonnet-4", "completion")); got != 50 {
		t.Errorf("LLMTokensUsed(completion) = %v, want 50", got)
	}
}

func TestRecordLLMRequestSkipsZeroTokenCounts(t *testing.T) {
	metrics.RecordLLMRequest("openai", "gpt-4o", "error", 0.5, 0, 0)

	if got := testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("openai", "gpt-4o", "prompt")); got != 0 {
		t.Errorf("LLMTokensUsed(prompt) = %v, want 0 for a zero-token request", got)
	}
}

func TestRecordToolExecution(t *testing.T) {
	metrics.RecordToolExecution("web_search", "success", 0.3)
	metrics.RecordToolExecution("web_search", "success", 0.4)

	if got := testutil.ToFloat64(metrics.ToolExecutionCounter.WithLabelValues("web_search", "success")); got != 2 {
		t.Errorf("ToolExecutionCounter = %v, want 2", got)
	}
}

func TestRecordError(t *testing.T) {
	metrics.RecordError("scheduler", "tool_timeout")

	if got := testutil.ToFloat64(metrics.ErrorCounter.WithLabelValues("scheduler", "tool_timeout")); got != 1 {
		t.Errorf("ErrorCounter = %v, want 1", got)
	}
}

func TestSessionStartedAndEnded(t *testing.T) {
	before := testutil.ToFloat64(metrics.ActiveSessions)
	metrics.SessionStarted()
	metrics.SessionStarted()
	metrics.SessionEnded()

	if got, want := testutil.ToFloat64(metrics.ActiveSessions), before+1; got != want {
		t.Errorf("ActiveSessions = %v, want %v", got, want)
	}
}

func TestRecordEventPushed(t *testing.T) {
	metrics.RecordEventPushed("tool_sync_update", 3, 7)

	if got := testutil.ToFloat64(metrics.EventsPushed.WithLabelValues("tool_sync_update")); got != 1 {
		t.Errorf("EventsPushed = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(metrics.FrontendLag); got < 1 {
		t.Error("expected at least one FrontendLag observation")
	}
	if got := testutil.CollectAndCount(metrics.LLMLag); got < 1 {
		t.Error("expected at least one LLMLag observation")
	}
}
