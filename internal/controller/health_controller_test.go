package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okPinger() Pinger {
	return PingerFunc(func(context.Context) error { return nil })
}

func failingPinger() Pinger {
	return PingerFunc(func(context.Context) error { return errors.New("down") })
}

func TestHealthController_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		redis      Pinger
		wantStatus int
		wantReason string
	}{
		{"ready", okPinger(), okPinger(), http.StatusOK, ""},
		{"ready without redis", okPinger(), nil, http.StatusOK, ""},
		{"database down", failingPinger(), okPinger(), http.StatusServiceUnavailable, "database unavailable"},
		{"redis down", okPinger(), failingPinger(), http.StatusServiceUnavailable, "redis unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthController(tt.db, tt.redis)
			w := httptest.NewRecorder()
			h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.wantReason, body["reason"])
		})
	}
}

func TestHealthController_Liveness(t *testing.T) {
	h := NewHealthController(failingPinger(), nil)

	w := httptest.NewRecorder()
	h.Liveness(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())

	w = httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRedisPinger(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	p := RedisPinger(client)
	assert.NoError(t, p.Ping(context.Background()))

	mr.Close()
	assert.Error(t, p.Ping(context.Background()))
}
