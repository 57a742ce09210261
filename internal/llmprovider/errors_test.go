package llmprovider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailoverReasonIsRetryable(t *testing.T) {
	cases := map[FailoverReason]bool{
		FailoverRateLimit:        true,
		FailoverTimeout:          true,
		FailoverServerError:      true,
		FailoverBilling:          false,
		FailoverAuth:             false,
		FailoverInvalidRequest:   false,
		FailoverModelUnavailable: false,
		FailoverContentFilter:    false,
		FailoverUnknown:          false,
	}
	for reason, want := range cases {
		assert.Equal(t, want, reason.IsRetryable(), string(reason))
	}
}

func TestFailoverReasonShouldFailover(t *testing.T) {
	cases := map[FailoverReason]bool{
		FailoverBilling:          true,
		FailoverAuth:             true,
		FailoverModelUnavailable: true,
		FailoverRateLimit:        false,
		FailoverTimeout:          false,
		FailoverServerError:      false,
	}
	for reason, want := range cases {
		assert.Equal(t, want, reason.ShouldFailover(), string(reason))
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		want FailoverReason
	}{
		{errors.New("request timed out"), FailoverTimeout},
		{errors.New("429 Too Many Requests"), FailoverRateLimit},
		{errors.New("401 unauthorized"), FailoverAuth},
		{errors.New("insufficient quota"), FailoverBilling},
		{errors.New("blocked by safety settings"), FailoverContentFilter},
		{errors.New("model not found"), FailoverModelUnavailable},
		{errors.New("502 bad gateway server error"), FailoverServerError},
		{errors.New("something odd"), FailoverUnknown},
		{nil, FailoverUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ClassifyError(c.err))
	}
}

func TestProviderErrorWithStatus(t *testing.T) {
	pe := NewProviderError("anthropic", "claude-sonnet-4", errors.New("boom")).WithStatus(429)
	assert.Equal(t, FailoverRateLimit, pe.Reason)
	assert.Contains(t, pe.Error(), "anthropic")
	assert.Contains(t, pe.Error(), "model=claude-sonnet-4")
}

func TestIsRetryableAndShouldFailover(t *testing.T) {
	pe := NewProviderError("openai", "gpt-4o", errors.New("boom")).WithCode("rate_limit_exceeded")
	assert.True(t, IsRetryable(pe))
	assert.False(t, ShouldFailover(pe))

	billing := NewProviderError("openai", "gpt-4o", errors.New("boom")).WithCode("insufficient_quota")
	assert.False(t, IsRetryable(billing))
	assert.True(t, ShouldFailover(billing))
}
