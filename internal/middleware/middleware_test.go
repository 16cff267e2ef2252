package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"kickride/internal/domain"
	"kickride/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// renderErrors writes aborted middleware errors the way the handler
// package's renderer does, without importing it.
func renderErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		if e, ok := service.AsError(err); ok {
			c.JSON(e.Status, gin.H{"opcode": e.Opcode})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"opcode": -1})
	}
}

func opcodeOf(w *httptest.ResponseRecorder) int {
	var body struct {
		Opcode int `json:"opcode"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Opcode
}

// ============================================
// Mock Authorizer
// ============================================

type MockAuthorizer struct {
	mu        sync.Mutex
	sessions  map[string]*domain.Rider
	CallCount int
}

func NewMockAuthorizer() *MockAuthorizer {
	return &MockAuthorizer{sessions: make(map[string]*domain.Rider)}
}

func (m *MockAuthorizer) Authorize(_ context.Context, sessionID string) (*domain.Rider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount++
	rider, ok := m.sessions[sessionID]
	if !ok {
		return nil, service.ErrRequiredLogin
	}
	return rider, nil
}

// ============================================
// Mock Session Cache
// ============================================

type MockSessionCache struct {
	mu       sync.Mutex
	sessions map[string]*domain.Rider
	SetCount int
}

func NewMockSessionCache() *MockSessionCache {
	return &MockSessionCache{sessions: make(map[string]*domain.Rider)}
}

func (m *MockSessionCache) GetSession(_ context.Context, sessionID string) (*domain.Rider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionID], nil
}

func (m *MockSessionCache) SetSession(_ context.Context, sessionID string, rider *domain.Rider, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCount++
	m.sessions[sessionID] = rider
	return nil
}

// ============================================
// Mock Ride Lookup
// ============================================

type MockRideLookup struct {
	Current  map[string]*domain.Ride
	Rides    map[string]*domain.Ride
	ReadyErr error
}

func NewMockRideLookup() *MockRideLookup {
	return &MockRideLookup{
		Current: make(map[string]*domain.Ride),
		Rides:   make(map[string]*domain.Ride),
	}
}

func (m *MockRideLookup) GetCurrentRide(_ context.Context, userID string) (*domain.Ride, error) {
	return m.Current[userID], nil
}

func (m *MockRideLookup) GetRideOrThrow(_ context.Context, rideID, userID string) (*domain.Ride, error) {
	ride, ok := m.Rides[rideID]
	if !ok || (userID != "" && ride.UserID != userID) {
		return nil, service.ErrCannotFindRide
	}
	return ride, nil
}

func (m *MockRideLookup) GetRideByRemoteIDOrThrow(_ context.Context, remoteRideID string) (*domain.Ride, error) {
	for _, ride := range m.Rides {
		if ride.RemoteRideID() == remoteRideID {
			return ride, nil
		}
	}
	return nil, service.ErrCannotFindRide
}

func (m *MockRideLookup) CheckReady(context.Context, string) error {
	return m.ReadyErr
}

// ============================================
// Mock Response Store
// ============================================

type MockResponseStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMockResponseStore() *MockResponseStore {
	return &MockResponseStore{data: make(map[string][]byte)}
}

func (m *MockResponseStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *MockResponseStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockResponseStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
