package service

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"kickride/internal/coreservice"
	"kickride/internal/domain"
	"kickride/internal/platform"
	"kickride/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is an in-memory RideRepository that enforces one open
// ride per user the way the partial unique index does.
type MockRideRepository struct {
	mu        sync.RWMutex
	rides     map[string]*domain.Ride
	locations []*domain.Location

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
	CountError  error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{rides: make(map[string]*domain.Ride)}
}

// AddRide adds a ride to the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *ride
	m.rides[ride.ID] = &copy
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride, first *domain.Location) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rides {
		if r.UserID == ride.UserID && r.EndedAt == nil {
			return repository.ErrActiveRideExists
		}
	}
	ride.UpdatedAt = ride.CreatedAt
	copy := *ride
	m.rides[ride.ID] = &copy
	if first != nil {
		m.locations = append(m.locations, first)
	}
	return nil
}

func (m *MockRideRepository) Update(ctx context.Context, rideID string, patch repository.RidePatch) (*domain.Ride, error) {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return nil, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.UserID != nil {
		ride.UserID = *patch.UserID
	}
	if patch.KickboardCode != nil {
		ride.KickboardCode = *patch.KickboardCode
	}
	if patch.SetCoupon {
		ride.CouponID = patch.CouponID
	}
	if patch.Photo != nil {
		ride.Photo = patch.Photo
	}
	if patch.IsLocked != nil {
		ride.IsLocked = *patch.IsLocked
	}
	if patch.IsLightsOn != nil {
		ride.IsLightsOn = *patch.IsLightsOn
	}
	if patch.MaxSpeed != nil {
		v := *patch.MaxSpeed
		ride.MaxSpeed = &v
	}
	if patch.Price != nil {
		v := *patch.Price
		ride.Price = &v
	}
	if patch.EndedAt != nil && ride.EndedAt == nil {
		v := *patch.EndedAt
		ride.EndedAt = &v
	}
	ride.UpdatedAt = time.Now()
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, rideID, userID string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[rideID]
	if !ok || (userID != "" && ride.UserID != userID) {
		return nil, repository.ErrNotFound
	}
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) GetCurrentByUser(ctx context.Context, userID string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rides {
		if r.UserID == userID && r.EndedAt == nil {
			copy := *r
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockRideRepository) GetByRemoteRideID(ctx context.Context, remoteRideID string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rides {
		if r.RemoteRideID() == remoteRideID {
			copy := *r
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockRideRepository) List(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := m.match(filter)
	sort.Slice(matched, func(i, j int) bool {
		if filter.OrderDesc {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	total := len(matched)
	start := min(filter.Skip, total)
	end := min(start+filter.Take, total)
	return matched[start:end], total, nil
}

func (m *MockRideRepository) Count(ctx context.Context, filter repository.RideFilter) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.match(filter)), nil
}

func (m *MockRideRepository) match(f repository.RideFilter) []*domain.Ride {
	var result []*domain.Ride
	for _, r := range m.rides {
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if f.CouponID != "" && (r.CouponID == nil || *r.CouponID != f.CouponID) {
			continue
		}
		if !f.CreatedFrom.IsZero() && r.CreatedAt.Before(f.CreatedFrom) {
			continue
		}
		if !f.CreatedTo.IsZero() && r.CreatedAt.After(f.CreatedTo) {
			continue
		}
		copy := *r
		result = append(result, &copy)
	}
	return result
}

func (m *MockRideRepository) CreateLocation(ctx context.Context, loc *domain.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = append(m.locations, loc)
	return nil
}

// ActiveRides returns the number of open rides of a user.
func (m *MockRideRepository) ActiveRides(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.rides {
		if r.UserID == userID && r.EndedAt == nil {
			n++
		}
	}
	return n
}

// LocationCount returns the number of stored location samples.
func (m *MockRideRepository) LocationCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.locations)
}

// ──────────────────────────────────────────────
// MOCK PLATFORM
// ──────────────────────────────────────────────

// MockPlatform records every call made to the fleet platform.
type MockPlatform struct {
	mu    sync.Mutex
	calls []string
	seq   int32

	LastStart    platform.StartRideRequest
	LastDiscount *domain.DiscountReference
	LastSpeed    *int

	// Error injection
	StartError     error
	TerminateError error
	DiscountError  error
	ControlError   error
}

// NewMockPlatform creates a new mock platform.
func NewMockPlatform() *MockPlatform {
	return &MockPlatform{}
}

func (m *MockPlatform) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// Calls returns the recorded call names in order.
func (m *MockPlatform) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount returns how many times call was made.
func (m *MockPlatform) CallCount(call string) int {
	n := 0
	for _, c := range m.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (m *MockPlatform) StartRide(ctx context.Context, req platform.StartRideRequest) (string, error) {
	m.record("start")
	if m.StartError != nil {
		return "", m.StartError
	}
	m.mu.Lock()
	m.LastStart = req
	m.mu.Unlock()
	n := atomic.AddInt32(&m.seq, 1)
	return fmt.Sprintf("remote-%d", n), nil
}

func (m *MockPlatform) TerminateRide(ctx context.Context, remoteRideID string, at *domain.GeoPoint) error {
	m.record("terminate")
	return m.TerminateError
}

func (m *MockPlatform) SetDiscount(ctx context.Context, remoteRideID string, discount *domain.DiscountReference) error {
	m.record("discount")
	m.mu.Lock()
	m.LastDiscount = discount
	m.mu.Unlock()
	return m.DiscountError
}

func (m *MockPlatform) SetLock(ctx context.Context, remoteRideID string, locked bool) error {
	m.record("lock")
	return m.ControlError
}

func (m *MockPlatform) SetLights(ctx context.Context, remoteRideID string, on bool) error {
	m.record("lights")
	return m.ControlError
}

func (m *MockPlatform) SetMaxSpeed(ctx context.Context, remoteRideID string, maxSpeed *int) error {
	m.record("speed")
	m.mu.Lock()
	m.LastSpeed = maxSpeed
	m.mu.Unlock()
	return m.ControlError
}

func (m *MockPlatform) GetStatus(ctx context.Context, remoteRideID string) (*domain.RideStatus, error) {
	m.record("status")
	return &domain.RideStatus{IsEnabled: true}, nil
}

func (m *MockPlatform) GetTimeline(ctx context.Context, remoteRideID string) ([]domain.TimelineEntry, error) {
	m.record("timeline")
	return []domain.TimelineEntry{}, nil
}

func (m *MockPlatform) GetPricing(ctx context.Context, remoteRideID string, at domain.GeoPoint) (*domain.RidePricing, error) {
	m.record("pricing")
	return &domain.RidePricing{Total: 1200}, nil
}

func (m *MockPlatform) SetReturnedPhoto(ctx context.Context, remoteRideID, photo string) error {
	m.record("photo")
	return nil
}

func (m *MockPlatform) GetHelmet(ctx context.Context, remoteRideID, deviceInfo string) (domain.Helmet, error) {
	m.record("helmet")
	return domain.Helmet(`{}`), nil
}

func (m *MockPlatform) GetHelmetCredentials(ctx context.Context, remoteRideID string) (domain.Helmet, error) {
	m.record("helmet_credentials")
	return domain.Helmet(`{}`), nil
}

func (m *MockPlatform) BorrowHelmet(ctx context.Context, remoteRideID string, complete bool) (domain.Helmet, error) {
	m.record("helmet_borrow")
	return domain.Helmet(`{}`), nil
}

func (m *MockPlatform) ReturnHelmet(ctx context.Context, remoteRideID string, complete bool) (domain.Helmet, error) {
	m.record("helmet_return")
	return domain.Helmet(`{}`), nil
}

// ──────────────────────────────────────────────
// MOCK PAYMENTS
// ──────────────────────────────────────────────

// MockPayments is an in-memory coupon store.
type MockPayments struct {
	mu      sync.Mutex
	coupons map[string]*domain.Coupon

	RedeemCallCount  int32
	ReleaseCallCount int32
	Released         []string

	// Error injection
	RedeemError  error
	ReleaseError error
	ReadyError   error
}

// NewMockPayments creates a new mock payments service.
func NewMockPayments() *MockPayments {
	return &MockPayments{coupons: make(map[string]*domain.Coupon)}
}

// AddCoupon registers a coupon.
func (m *MockPayments) AddCoupon(coupon *domain.Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coupons[coupon.CouponID] = coupon
}

func (m *MockPayments) GetCoupon(ctx context.Context, userID, couponID string) (*domain.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coupon, ok := m.coupons[couponID]
	if !ok {
		return nil, notFoundError()
	}
	copy := *coupon
	return &copy, nil
}

func (m *MockPayments) RedeemCoupon(ctx context.Context, userID, couponID string) (*domain.CouponProperties, error) {
	atomic.AddInt32(&m.RedeemCallCount, 1)
	if m.RedeemError != nil {
		return nil, m.RedeemError
	}
	return &domain.CouponProperties{OpenAPI: &domain.DiscountReference{
		DiscountID:      "discount-" + couponID[:4],
		DiscountGroupID: "group-1",
	}}, nil
}

func (m *MockPayments) ReleaseCoupon(ctx context.Context, userID, couponID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	if m.ReleaseError != nil {
		return m.ReleaseError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Released = append(m.Released, couponID)
	return nil
}

func (m *MockPayments) Ready(ctx context.Context, userID string) error {
	return m.ReadyError
}

func notFoundError() error {
	return &coreservice.APIError{Service: "payments", Status: http.StatusNotFound, Opcode: 404, Message: "not found"}
}

// ──────────────────────────────────────────────
// MOCK ACCOUNTS
// ──────────────────────────────────────────────

// MockAccounts records points and notifications.
type MockAccounts struct {
	PointsCallCount       int32
	NotificationCallCount int32

	// Error injection
	PointsError  error
	LicenseError error
}

func (m *MockAccounts) GetUser(ctx context.Context, userID string) (*domain.Rider, error) {
	return &domain.Rider{UserID: userID}, nil
}

func (m *MockAccounts) GetLicense(ctx context.Context, userID string) (*domain.License, error) {
	if m.LicenseError != nil {
		return nil, m.LicenseError
	}
	return &domain.License{UserID: userID}, nil
}

func (m *MockAccounts) AwardPoints(ctx context.Context, userID, kind string, points int) error {
	atomic.AddInt32(&m.PointsCallCount, 1)
	return m.PointsError
}

func (m *MockAccounts) SendNotification(ctx context.Context, userID, title, message string, data map[string]any) error {
	atomic.AddInt32(&m.NotificationCallCount, 1)
	return nil
}

// ──────────────────────────────────────────────
// MOCK LOCKER / REPORTER
// ──────────────────────────────────────────────

// MockLocker is an in-process RiderLocker.
type MockLocker struct {
	mu    sync.Mutex
	held  map[string]bool
	Error error
}

// NewMockLocker creates a new mock locker.
func NewMockLocker() *MockLocker {
	return &MockLocker{held: make(map[string]bool)}
}

func (m *MockLocker) AcquireRiderLock(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	if m.Error != nil {
		return "", m.Error
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[userID] {
		return "", nil
	}
	m.held[userID] = true
	return "token-" + userID, nil
}

func (m *MockLocker) ReleaseRiderLock(ctx context.Context, userID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, userID)
	return nil
}

// MockReporter collects reported errors.
type MockReporter struct {
	mu       sync.Mutex
	Reported []error
}

func (m *MockReporter) Report(ctx context.Context, err error, attrs map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reported = append(m.Reported, err)
}

// Count returns the number of reported errors.
func (m *MockReporter) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Reported)
}
