package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, path string) (int, map[string]interface{}) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHandler(t *testing.T) {
	s := New(":0").
		Register("odometer", func() interface{} { return map[string]int{"odometer": 42} }).
		Register("modem", func() interface{} { return map[string]int{"overruns": 1} })
	h := s.Handler()

	code, body := get(t, h, "/health")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body["status"])

	code, body = get(t, h, "/status")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "odometer")
	require.Contains(t, body, "modem")

	code, body = get(t, h, "/status/odometer")
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 42, body["odometer"])

	code, body = get(t, h, "/status/gps")
	require.Equal(t, http.StatusNotFound, code)
	require.NotEmpty(t, body["error"])

	require.Equal(t, []string{"modem", "odometer"}, s.Components())
}
