package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/garyjia/perdin/internal/application/dispatcher"
	"github.com/garyjia/perdin/internal/application/port"
	"github.com/garyjia/perdin/internal/domain/access"
	"github.com/garyjia/perdin/internal/domain/entity"
	"github.com/garyjia/perdin/internal/domain/event"
)

// Mock repositories

type mockCityRepo struct {
	cities     map[int64]*entity.City
	referenced map[int64]bool
	nextID     int64
	deleteErr  error
}

func newMockCityRepo(cities ...*entity.City) *mockCityRepo {
	m := &mockCityRepo{cities: make(map[int64]*entity.City), referenced: make(map[int64]bool), nextID: 100}
	for _, c := range cities {
		m.cities[c.ID] = c
	}
	return m
}

func (m *mockCityRepo) Create(ctx context.Context, city *entity.City) error {
	m.nextID++
	city.ID = m.nextID
	m.cities[city.ID] = city
	return nil
}

func (m *mockCityRepo) GetByID(ctx context.Context, id int64) (*entity.City, error) {
	c, ok := m.cities[id]
	if !ok {
		return nil, fmt.Errorf("city %d: %w", id, port.ErrNotFound)
	}
	return c, nil
}

func (m *mockCityRepo) List(ctx context.Context) ([]*entity.City, error) {
	out := make([]*entity.City, 0, len(m.cities))
	for _, c := range m.cities {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockCityRepo) Update(ctx context.Context, city *entity.City) error {
	if _, ok := m.cities[city.ID]; !ok {
		return port.ErrNotFound
	}
	m.cities[city.ID] = city
	return nil
}

func (m *mockCityRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.cities[id]; !ok {
		return port.ErrNotFound
	}
	delete(m.cities, id)
	return nil
}

func (m *mockCityRepo) IsReferenced(ctx context.Context, id int64) (bool, error) {
	return m.referenced[id], nil
}

type mockTripRepo struct {
	trips      map[int64]*entity.TripRequest
	nextID     int64
	getCalls   int
	lastFilter port.TripFilter
	listResult []*entity.TripRequestView
	createErr  error
}

func newMockTripRepo() *mockTripRepo {
	return &mockTripRepo{trips: make(map[int64]*entity.TripRequest)}
}

func (m *mockTripRepo) Create(ctx context.Context, trip *entity.TripRequest) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	trip.ID = m.nextID
	trip.CreatedAt = time.Date(2025, 6, 20, 8, 0, 0, 0, time.UTC)
	trip.UpdatedAt = trip.CreatedAt
	cp := *trip
	m.trips[trip.ID] = &cp
	return nil
}

func (m *mockTripRepo) GetByID(ctx context.Context, id int64) (*entity.TripRequest, error) {
	m.getCalls++
	t, ok := m.trips[id]
	if !ok {
		return nil, fmt.Errorf("trip request %d: %w", id, port.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (m *mockTripRepo) UpdateStatus(ctx context.Context, id int64, expected, next string, reviewerID int64, at time.Time) error {
	t, ok := m.trips[id]
	if !ok {
		return port.ErrNotFound
	}
	if t.Status != expected {
		return port.ErrConflict
	}
	t.Status = next
	t.ReviewedBy = &reviewerID
	t.ReviewedAt = &at
	return nil
}

func (m *mockTripRepo) List(ctx context.Context, filter port.TripFilter) ([]*entity.TripRequestView, error) {
	m.lastFilter = filter
	return m.listResult, nil
}

type mockHistoryRepo struct {
	histories []*entity.TripHistory
}

func (m *mockHistoryRepo) Create(ctx context.Context, history *entity.TripHistory) error {
	m.histories = append(m.histories, history)
	return nil
}

func (m *mockHistoryRepo) GetByTripID(ctx context.Context, tripID int64) ([]*entity.TripHistory, error) {
	var out []*entity.TripHistory
	for _, h := range m.histories {
		if h.TripID == tripID {
			out = append(out, h)
		}
	}
	return out, nil
}

type mockUserRepo struct {
	users  map[int64]*entity.User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*entity.User)}
}

func (m *mockUserRepo) Create(ctx context.Context, user *entity.User) error {
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == strings.ToLower(user.Email) {
			return port.ErrDuplicate
		}
	}
	m.nextID++
	user.ID = m.nextID
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByLogin(ctx context.Context, login string) (*entity.User, error) {
	for _, u := range m.users {
		if u.Username == login || u.Email == strings.ToLower(login) {
			return u, nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *mockUserRepo) List(ctx context.Context) ([]*entity.User, error) {
	out := make([]*entity.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, id int64, role string) error {
	u, ok := m.users[id]
	if !ok {
		return port.ErrNotFound
	}
	u.Role = role
	return nil
}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockDispatcher struct {
	events []*event.Event
}

func (m *mockDispatcher) Subscribe(eventType event.Type, handler dispatcher.Handler) {}

func (m *mockDispatcher) SubscribeNamed(eventType event.Type, name string, handler dispatcher.Handler) {
}

func (m *mockDispatcher) Unsubscribe(eventType event.Type, name string) {}

func (m *mockDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.events = append(m.events, evt)
	return nil
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.events = append(m.events, evt)
}

func (m *mockDispatcher) ListHandlers(eventType event.Type) []dispatcher.HandlerInfo {
	return nil
}

func (m *mockDispatcher) Close() error {
	return nil
}

// plainHasher stores passwords reversed so tests can tell hash from input
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) {
	r := []rune(plain)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return "h:" + string(r), nil
}

func (h plainHasher) Verify(hash, plain string) bool {
	want, _ := h.Hash(plain)
	return hash == want
}

type mockTokens struct {
	issued map[string]access.Identity
}

func (m *mockTokens) Issue(user *entity.User) (string, time.Time, error) {
	if m.issued == nil {
		m.issued = make(map[string]access.Identity)
	}
	token := fmt.Sprintf("token-%d", user.ID)
	m.issued[token] = access.Identity{UserID: user.ID, Name: user.Name, Role: user.Role}
	return token, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), nil
}

func (m *mockTokens) Parse(token string) (access.Identity, error) {
	id, ok := m.issued[token]
	if !ok {
		return access.Identity{}, errors.New("token is malformed")
	}
	return id, nil
}

type csvReport struct{}

func (csvReport) WriteTrips(w io.Writer, trips []*entity.TripRequestView) error {
	for _, t := range trips {
		if _, err := fmt.Fprintf(w, "%d,%s\n", t.ID, t.Status); err != nil {
			return err
		}
	}
	return nil
}

func (csvReport) ContentType() string   { return "text/csv" }
func (csvReport) FileExtension() string { return "csv" }

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
