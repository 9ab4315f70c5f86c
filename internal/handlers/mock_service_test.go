package handlers

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"auber_controller/internal/models"
	"auber_controller/internal/program"
	"auber_controller/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

// mockAuth hands out an operator identity unless role says otherwise.
type mockAuth struct {
	signedUp models.User
	signErr  error
	token    string
	tokenErr error
	parseID  int
	role     string
	parseErr error

	lastUsername   string
	lastPassword   string
	lastParseToken string
}

func (m *mockAuth) SignUp(ctx context.Context, username, password string) (models.User, error) {
	m.lastUsername, m.lastPassword = username, password
	return m.signedUp, m.signErr
}
func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastUsername, m.lastPassword = username, password
	return m.token, m.tokenErr
}
func (m *mockAuth) ParseToken(token string) (service.Identity, error) {
	m.lastParseToken = token
	if m.parseErr != nil {
		return service.Identity{}, m.parseErr
	}
	role := m.role
	if role == "" {
		role = models.RoleOperator
	}
	return service.Identity{UserID: m.parseID, Role: role}, nil
}

type mockPrograms struct {
	records   []program.Record
	listErr   error
	getErr    error
	saveErr   error
	deleteErr error

	lastGet    string
	lastSaved  program.Record
	lastDelete string
}

func (m *mockPrograms) List(ctx context.Context) ([]program.Record, error) {
	return m.records, m.listErr
}
func (m *mockPrograms) Get(ctx context.Context, name string) (program.Record, error) {
	m.lastGet = name
	if m.getErr != nil {
		return program.Record{}, m.getErr
	}
	for _, r := range m.records {
		if r.Name == name {
			return r, nil
		}
	}
	return program.Record{}, service.ErrProgramNotFound
}
func (m *mockPrograms) Save(ctx context.Context, rec program.Record) error {
	m.lastSaved = rec
	return m.saveErr
}
func (m *mockPrograms) Delete(ctx context.Context, name string) error {
	m.lastDelete = name
	return m.deleteErr
}
func (m *mockPrograms) Load(ctx context.Context, name string) (*program.Program, error) {
	return nil, service.ErrProgramNotFound
}
func (m *mockPrograms) SeedPresets(ctx context.Context) (int, error) { return 0, nil }
func (m *mockPrograms) Import(ctx context.Context, r io.Reader) (int, error) { return 0, nil }
func (m *mockPrograms) Export(ctx context.Context, w io.Writer, names ...string) error {
	return nil
}

type mockController struct {
	runErr      error
	stopErr     error
	setpointErr error

	lastRun      string
	lastSteps    []program.Step
	lastSetpoint float64
	runCalls     int
	customCalls  int
	stopCalls    int
}

func (m *mockController) RunProgram(ctx context.Context, name string) error {
	m.runCalls++
	m.lastRun = name
	return m.runErr
}
func (m *mockController) RunCustom(ctx context.Context, steps []program.Step) error {
	m.customCalls++
	m.lastSteps = steps
	return m.runErr
}
func (m *mockController) StopProgram(ctx context.Context) error {
	m.stopCalls++
	return m.stopErr
}
func (m *mockController) SetSetpoint(ctx context.Context, c float64) (float64, error) {
	m.lastSetpoint = c
	if m.setpointErr != nil {
		return 0, m.setpointErr
	}
	return c, nil
}

// mockMonitoring fails every call after the first failAfter ones when failAfter > 0.
type mockMonitoring struct {
	mu        sync.Mutex
	state     models.ControllerState
	err       error
	failAfter int
	calls     int
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.ControllerState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failAfter > 0 && m.calls > m.failAfter {
		return models.ControllerState{}, m.err
	}
	if m.failAfter == 0 && m.err != nil {
		return models.ControllerState{}, m.err
	}
	return m.state, nil
}

type mockEventLog struct {
	resp     []models.ControllerEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.ControllerEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockTelemetry struct {
	resp       []models.TelemetrySample
	err        error
	lastFilter service.TelemetryFilter
}

func (m *mockTelemetry) List(ctx context.Context, f service.TelemetryFilter) ([]models.TelemetrySample, error) {
	m.lastFilter = f
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

func withAuth(req *http.Request) *http.Request {
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
