package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nvr-ai/go-bgseg/config"
	"github.com/nvr-ai/go-bgseg/filter"
	"github.com/nvr-ai/go-bgseg/metrics"
	"github.com/nvr-ai/go-bgseg/models/model"
	"github.com/nvr-ai/go-bgseg/profiler"
	"github.com/nvr-ai/go-bgseg/test"
)

type fixture struct {
	session *filter.Session
	metrics *metrics.Metrics
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	in, out := test.BHWC(16, 16, 1)
	factory := &test.FakeFactory{Inputs: in, Outputs: out, Fill: test.Constant(0.2)}
	m := metrics.New()
	prof := profiler.New(profiler.Options{Clock: clock.NewMock()})

	session := filter.NewSession(factory.Factory(),
		filter.WithLogger(zaptest.NewLogger(t)),
		filter.WithRecorder(filter.MultiRecorder{m, prof}),
		filter.WithClock(clock.NewMock()))
	t.Cleanup(func() { _ = session.Close() })

	s := config.Default()
	s.Model = string(model.NameDefault)
	require.NoError(t, session.Apply(s))

	srv := New(session, Options{Metrics: m.Handler(), Profiler: prof, Logger: zaptest.NewLogger(t)})
	return &fixture{session: session, metrics: m, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), f.session.ID())
}

func TestModels(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data   []string `json:"data"`
		Loaded string   `json:"loaded"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Data, "mediapipe")
	assert.Equal(t, "default", body.Loaded)
}

func TestPutSettingsPartialUpdate(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPut, "/api/settings", []byte(`{"enable_threshold": true, "threshold": 0.7}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := f.session.Settings()
	assert.True(t, got.EnableThreshold)
	assert.InDelta(t, 0.7, got.Threshold, 1e-9)
	assert.Equal(t, "default", got.Model)

	w = f.do(t, http.MethodGet, "/api/settings", nil)
	assert.Contains(t, w.Body.String(), `"threshold":0.7`)
}

func TestPutSettingsRejected(t *testing.T) {
	f := newFixture(t)
	before := f.session.Settings()

	w := f.do(t, http.MethodPut, "/api/settings", []byte(`{"threshold": 3}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "configuration")

	w = f.do(t, http.MethodPut, "/api/settings", []byte(`{not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, before, f.session.Settings())
}

func TestMaskPNG(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/mask.png", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	frame := test.NewMockFrameGenerator(32, 24).GenerateStaticFrame()
	defer frame.Close()
	outcome, err := f.session.Tick(frame)
	require.NoError(t, err)
	require.Equal(t, filter.Published, outcome)

	w = f.do(t, http.MethodGet, "/api/mask.png", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
}

func TestMetricsAndProfile(t *testing.T) {
	f := newFixture(t)
	frame := test.NewMockFrameGenerator(32, 24).GenerateStaticFrame()
	defer frame.Close()
	_, err := f.session.Tick(frame)
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `bgseg_ticks_total{outcome="published"} 1`)

	w = f.do(t, http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"inference"`)
}
