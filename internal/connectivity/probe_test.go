package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestHTTPProbe_OnlineWhenServerResponds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	probe := NewHTTPProbe(server.URL, time.Hour, time.Second, testLogger())
	require.NoError(t, probe.Start(context.Background()))
	defer probe.Stop()

	assert.True(t, probe.IsOnline())
}

func TestHTTPProbe_AnyHTTPResponseCountsAsOnline(t *testing.T) {
	// Even a 503 proves the network path works.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	probe := NewHTTPProbe(server.URL, time.Hour, time.Second, testLogger())
	require.NoError(t, probe.Start(context.Background()))
	defer probe.Stop()

	assert.True(t, probe.IsOnline())
}

func TestHTTPProbe_OfflineWhenUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	probe := NewHTTPProbe(server.URL, time.Hour, 100*time.Millisecond, testLogger())
	require.NoError(t, probe.Start(context.Background()))
	defer probe.Stop()

	assert.False(t, probe.IsOnline())
}

func TestHTTPProbe_FiresCallbackOnTransition(t *testing.T) {
	var reachable atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !reachable.Load() {
			// Hijack and drop the connection to simulate a transport failure.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	probe := NewHTTPProbe(server.URL, 20*time.Millisecond, time.Second, testLogger())

	var fired atomic.Int32
	probe.OnBecameOnline(func() { fired.Add(1) })

	require.NoError(t, probe.Start(context.Background()))
	defer probe.Stop()

	require.False(t, probe.IsOnline())

	reachable.Store(true)

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, probe.IsOnline())
}

func TestHTTPProbe_NoCallbackWhileStayingOnline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	probe := NewHTTPProbe(server.URL, 10*time.Millisecond, time.Second, testLogger())

	var fired atomic.Int32
	probe.OnBecameOnline(func() { fired.Add(1) })

	require.NoError(t, probe.Start(context.Background()))
	defer probe.Stop()

	// Initial check goes offline-to-online once; repeated online checks
	// must not re-fire.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestHTTPProbe_Unsubscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	probe := NewHTTPProbe(server.URL, time.Hour, time.Second, testLogger())

	var fired atomic.Int32
	unsubscribe := probe.OnBecameOnline(func() { fired.Add(1) })
	unsubscribe()

	require.NoError(t, probe.Start(context.Background()))
	defer probe.Stop()

	assert.True(t, probe.IsOnline())
	assert.Equal(t, int32(0), fired.Load())
}

func TestHTTPProbe_DoubleStartFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	probe := NewHTTPProbe(server.URL, time.Hour, time.Second, testLogger())
	require.NoError(t, probe.Start(context.Background()))
	defer probe.Stop()

	assert.Error(t, probe.Start(context.Background()))
}

func TestHTTPProbe_StopIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	probe := NewHTTPProbe(server.URL, time.Hour, time.Second, testLogger())
	require.NoError(t, probe.Start(context.Background()))

	probe.Stop()
	probe.Stop()
}
