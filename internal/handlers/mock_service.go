package handlers

import (
	"context"
	"net/http"
	"time"

	"controlling_camera/internal/camera"
	"controlling_camera/internal/models"
	"controlling_camera/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

// mockController records every submitted command name.
type mockController struct {
	err        error
	calls      []string
	lastTarget camera.Target
	lastCode   models.PropertyCode
	lastIndex  int
	lastRaw    int64
}

func (m *mockController) record(name string) error {
	m.calls = append(m.calls, name)
	return m.err
}

func (m *mockController) Connect(target camera.Target) error {
	m.lastTarget = target
	return m.record("connect")
}
func (m *mockController) Disconnect() error { return m.record("disconnect") }
func (m *mockController) SetProperty(code models.PropertyCode, valueIndex int) error {
	m.lastCode = code
	m.lastIndex = valueIndex
	return m.record("set_property")
}
func (m *mockController) SetPropertyRaw(code models.PropertyCode, raw int64) error {
	m.lastCode = code
	m.lastRaw = raw
	return m.record("set_property_raw")
}
func (m *mockController) Capture() error          { return m.record("capture") }
func (m *mockController) StartRecording() error   { return m.record("start_recording") }
func (m *mockController) StopRecording() error    { return m.record("stop_recording") }
func (m *mockController) HalfPressShutter() error { return m.record("half_press_shutter") }
func (m *mockController) ReleaseShutter() error   { return m.record("release_shutter") }
func (m *mockController) SyncProperties() error   { return m.record("sync_properties") }
func (m *mockController) Discover() error         { return m.record("discover") }
func (m *mockController) FetchFingerprint(target camera.Target) error {
	m.lastTarget = target
	return m.record("fetch_ssh_fingerprint")
}

type mockMonitoring struct {
	state models.StateSnapshot
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.StateSnapshot, error) {
	return m.state, m.err
}

type mockEventLog struct {
	resp     []models.CameraEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.CameraEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockRegistry struct {
	resp []models.KnownCamera
	err  error
}

func (m *mockRegistry) List(ctx context.Context) ([]models.KnownCamera, error) {
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
