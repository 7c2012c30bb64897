package main

import (
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initMockSentry(t *testing.T) *sentry.MockTransport {
	t.Helper()
	transport := &sentry.MockTransport{}
	require.NoError(t, sentry.Init(sentry.ClientOptions{
		Dsn:        "https://public@sentry.example.com/1",
		Transport:  transport,
		BeforeSend: scrubHeaders,
	}))
	t.Cleanup(func() {
		_ = sentry.Init(sentry.ClientOptions{})
	})
	return transport
}

// TestReportStartupFailureReachesSentry проверяет, что ошибка запуска уходит в Sentry до выхода.
func TestReportStartupFailureReachesSentry(t *testing.T) {
	transport := initMockSentry(t)

	reportStartupFailure(errors.New("connect database: connection refused"))

	events := transport.Events()
	require.Len(t, events, 1)
	require.NotEmpty(t, events[0].Exception)
	assert.Equal(t, "connect database: connection refused", events[0].Exception[len(events[0].Exception)-1].Value)
}

// TestScrubHeadersDropsCredentials проверяет очистку заголовков авторизации.
func TestScrubHeadersDropsCredentials(t *testing.T) {
	event := &sentry.Event{Request: &sentry.Request{Headers: map[string]string{
		"Authorization": "Bearer secret",
		"Cookie":        "session=1",
		"User-Agent":    "ecopulse-app",
	}}}

	scrubbed := scrubHeaders(event, nil)
	assert.Equal(t, map[string]string{"User-Agent": "ecopulse-app"}, scrubbed.Request.Headers)
}
