package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"not configured", fmt.Errorf("provider: %w", ErrNotConfigured), KindConfiguration},
		{"provider auth", NewProviderError(KindAuth, "call", errors.New("401")), KindAuth},
		{"wrapped provider", fmt.Errorf("run: %w", NewProviderError(KindRateLimit, "call", nil)), KindRateLimit},
		{"plain", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsAbort(t *testing.T) {
	assert.True(t, IsAbort(context.Canceled))
	assert.True(t, IsAbort(fmt.Errorf("stream: %w", context.DeadlineExceeded)))
	assert.False(t, IsAbort(errors.New("boom")))
	assert.False(t, IsAbort(nil))
}

func TestKindMessageSanitized(t *testing.T) {
	// Every kind maps to a non-empty message free of raw error detail.
	kinds := []ErrorKind{KindConfiguration, KindNetwork, KindAuth, KindRateLimit, KindMalformed, KindUnknown}
	for _, kind := range kinds {
		msg := KindMessage(kind)
		assert.NotEmpty(t, msg)
		assert.NotContains(t, msg, "%")
	}
}

func TestProviderErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := NewProviderError(KindNetwork, "openai stream", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "openai stream")
}
