package chat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hpkotak/mindful/internal/provider"
)

func TestClassify(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindDefault},
		{"status 401", &provider.StatusError{Provider: "gemini", StatusCode: 401, Status: "401 Unauthorized"}, KindAuthentication},
		{"status 403", &provider.StatusError{Provider: "gemini", StatusCode: 403, Status: "403 Forbidden"}, KindAuthentication},
		{"invalid credentials", errors.New("Invalid credentials"), KindAuthentication},
		{"gemini bad key", errors.New("INVALID_ARGUMENT: API key not valid. Please pass a valid API key."), KindAuthentication},
		{"auth wins over network", errors.New("401 unauthorized: connection reset"), KindAuthentication},
		{"safety sentinel", fmt.Errorf("gemini: %w: finish reason SAFETY", provider.ErrSafetyBlocked), KindSafety},
		{"content policy", errors.New("request violates content policy"), KindSafety},
		{"connection refused", refused, KindNetwork},
		{"wrapped refused", fmt.Errorf("gemini streamGenerateContent: %w", refused), KindNetwork},
		{"port not mistaken for status", errors.New(`Post "http://127.0.0.1:40123/x": dial tcp 127.0.0.1:40123: connect: connection refused`), KindNetwork},
		{"dns", errors.New("dial tcp: lookup generativelanguage.googleapis.com: no such host"), KindNetwork},
		{"deadline", fmt.Errorf("gemini request: %w", context.DeadlineExceeded), KindNetwork},
		{"status 503", &provider.StatusError{Provider: "gemini", StatusCode: 503, Status: "503 Service Unavailable"}, KindServer},
		{"status 500", errors.New("upstream returned 500"), KindServer},
		{"overloaded", errors.New("UNAVAILABLE: The model is overloaded"), KindServer},
		{"port 5001 not a 500", errors.New("model not ready on :5001"), KindDefault},
		{"unmatched", errors.New("something odd happened"), KindDefault},
		{"empty response", ErrEmptyResponse, KindDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err), "Classify(%v)", tt.err)
		})
	}
}

func TestErrorKindMessages(t *testing.T) {
	kinds := []ErrorKind{KindDefault, KindAuthentication, KindSafety, KindNetwork, KindServer}
	seen := make(map[string]bool)
	for _, k := range kinds {
		msg := k.Message()
		assert.NotEmpty(t, msg, k.String())
		assert.False(t, seen[msg], "duplicate message for %s", k)
		seen[msg] = true
	}

	assert.Equal(t, KindDefault.Message(), ErrorKind(99).Message())
	assert.Contains(t, KindNetwork.Message(), "trouble staying connected")
	assert.Contains(t, KindAuthentication.Message(), "locked out of your house")
}

func TestErrorKindString(t *testing.T) {
	tests := map[ErrorKind]string{
		KindDefault:        "default",
		KindAuthentication: "authentication",
		KindSafety:         "safety",
		KindNetwork:        "network",
		KindServer:         "server",
		ErrorKind(42):      "default",
	}
	for k, want := range tests {
		assert.Equal(t, want, k.String())
	}
}
