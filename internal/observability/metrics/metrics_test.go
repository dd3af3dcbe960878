package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.OTPIssued.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.OTPIssued))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.OTPIssued))
}

func TestHandler_ExposesCounters(t *testing.T) {
	m := New()
	m.EmailsSent.WithLabelValues("ok").Inc()
	m.ObserveHTTP(http.MethodPost, "/email/send", "200", 15*time.Millisecond)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `mailer_emails_sent_total{result="ok"} 1`)
	assert.Contains(t, string(body), `mailer_http_requests_total{method="POST",route="/email/send",status="200"} 1`)
}
