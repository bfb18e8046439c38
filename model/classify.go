package model

import (
	"errors"
	"strings"

	"github.com/hupe1980/agentrun/core"
)

// WrapErr classifies a raw SDK error into a core.ProviderError. The
// heuristics cover the common status lines of the OpenAI and Anthropic SDKs;
// anything unrecognized stays KindUnknown so it is never mislabeled.
func WrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if core.IsAbort(err) {
		return err
	}
	var pe *core.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return core.NewProviderError(classify(err), op, err)
}

func classify(err error) core.ErrorKind {
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "401", "unauthorized", "invalid api key", "authentication"):
		return core.KindAuth
	case containsAny(msg, "429", "rate limit", "quota", "overloaded"):
		return core.KindRateLimit
	case containsAny(msg, "connection", "dial", "timeout", "no such host", "eof", "broken pipe"):
		return core.KindNetwork
	case containsAny(msg, "unmarshal", "decode", "unexpected response", "no choices"):
		return core.KindMalformed
	default:
		return core.KindUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
