package healthcheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportBeforeFirstRound(t *testing.T) {
	c := New("", nil)
	c.Register("oracle", func(context.Context) error { return nil })

	r := c.Report()
	assert.Equal(t, "degraded", r.Status)
	assert.Equal(t, StatusUnknown, r.Dependencies["oracle"].Status)
}

func TestRunOnce(t *testing.T) {
	c := New("", nil)
	c.Register("oracle", func(context.Context) error { return nil })
	c.Register("schema", func(context.Context) error { return errors.New("connection refused") })

	c.RunOnce(context.Background())
	r := c.Report()
	assert.Equal(t, "degraded", r.Status)
	assert.Equal(t, StatusUp, r.Dependencies["oracle"].Status)
	schema := r.Dependencies["schema"]
	assert.Equal(t, StatusDown, schema.Status)
	require.Len(t, schema.History, 1)
	assert.Equal(t, "connection refused", schema.History[0].Error)
	assert.Equal(t, []string{"oracle", "schema"}, c.Names())
}

func TestAllUpIsHealthy(t *testing.T) {
	c := New("", nil)
	c.Register("values", func(context.Context) error { return nil })
	c.RunOnce(context.Background())
	assert.Equal(t, "healthy", c.Report().Status)
}

func TestHistoryIsBounded(t *testing.T) {
	c := New("", nil)
	c.Register("oracle", func(context.Context) error { return nil })
	for i := 0; i < historySize+5; i++ {
		c.RunOnce(context.Background())
	}
	assert.Len(t, c.Report().Dependencies["oracle"].History, historySize)
}

func TestReportIsACopy(t *testing.T) {
	c := New("", nil)
	c.Register("oracle", func(context.Context) error { return nil })
	c.RunOnce(context.Background())

	r := c.Report()
	r.Dependencies["oracle"].Status = StatusDown
	assert.Equal(t, StatusUp, c.Report().Dependencies["oracle"].Status)
}

func TestStartRunsImmediately(t *testing.T) {
	c := New("@every 1h", nil)
	done := make(chan struct{}, 1)
	c.Register("oracle", func(context.Context) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})
	require.NoError(t, c.Start())
	defer c.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first round did not run")
	}
}

func TestStopWaitsForFirstRound(t *testing.T) {
	c := New("@every 1h", nil)
	started := make(chan struct{})
	release := make(chan struct{})
	c.Register("oracle", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, c.Start())
	<-started

	stopped := make(chan struct{})
	go func() {
		c.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while the first round was still probing")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the first round finished")
	}
	assert.Equal(t, StatusUp, c.Report().Dependencies["oracle"].Status)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	c := New("whenever", nil)
	assert.Error(t, c.Start())
}

func TestHTTPProbe(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	assert.NoError(t, HTTPProbe(nil, ok.URL+"/health")(context.Background()))
	err := HTTPProbe(nil, bad.URL+"/health")(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")

	bad.Close()
	assert.Error(t, HTTPProbe(nil, bad.URL+"/health")(context.Background()))
}
