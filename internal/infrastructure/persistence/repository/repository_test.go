package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/perdin/internal/application/port"
	"github.com/garyjia/perdin/internal/domain/entity"
	"github.com/garyjia/perdin/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/perdin/migrations"
	"github.com/garyjia/perdin/pkg/database"
)

type fixture struct {
	db      *database.DB
	tx      *sqlite.DB
	cities  port.CityRepository
	trips   port.TripRepository
	users   port.UserRepository
	history port.HistoryRepository
}

func setup(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "test.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrationsFS(migrations.FS, "embedded"))

	return &fixture{
		db:      db,
		tx:      sqlite.NewDB(db.DB, logger),
		cities:  NewCityRepository(db.DB, logger),
		trips:   NewTripRepository(db.DB, logger),
		users:   NewUserRepository(db.DB, logger),
		history: NewHistoryRepository(db.DB, logger),
	}
}

func (f *fixture) user(t *testing.T, name, role string) *entity.User {
	t.Helper()
	u := &entity.User{Name: name, Username: name, Email: name + "@example.com", PasswordHash: "x", Role: role}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) city(t *testing.T, name, province, island string) *entity.City {
	t.Helper()
	c := &entity.City{Name: name, Latitude: -6.2, Longitude: 106.8, Province: province, Island: island}
	require.NoError(t, f.cities.Create(context.Background(), c))
	return c
}

func (f *fixture) trip(t *testing.T, requester *entity.User, from, to *entity.City, purpose string) *entity.TripRequest {
	t.Helper()
	tr := &entity.TripRequest{
		RequesterID:       requester.ID,
		Purpose:           purpose,
		DepartureDate:     time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		ReturnDate:        time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC),
		OriginCityID:      from.ID,
		DestinationCityID: to.ID,
		DurationDays:      3,
		DistanceKm:        116.24,
		PerDayAllowance:   decimal.NewFromInt(250000),
		TotalAllowance:    decimal.NewFromInt(750000),
		AllowanceRule:     "same_island",
		Status:            entity.StatusPending,
	}
	require.NoError(t, f.trips.Create(context.Background(), tr))
	return tr
}

func TestMigrationsAreIdempotent(t *testing.T) {
	f := setup(t)
	require.NoError(t, database.NewMigrator(f.db, zap.NewNop()).RunMigrationsFS(migrations.FS, "embedded"))

	var count int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, 4, count)
}

func TestCityRepository_CRUD(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	jakarta := f.city(t, "Jakarta", "DKI Jakarta", "Jawa")
	assert.NotZero(t, jakarta.ID)
	assert.False(t, jakarta.CreatedAt.IsZero())

	tokyo := &entity.City{Name: "Tokyo", Latitude: 35.6762, Longitude: 139.6503, Province: "Tokyo", Island: "Honshu", Foreign: true}
	require.NoError(t, f.cities.Create(ctx, tokyo))

	got, err := f.cities.GetByID(ctx, tokyo.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tokyo", got.Name)
	assert.True(t, got.Foreign)
	assert.InDelta(t, 35.6762, got.Latitude, 1e-9)

	list, err := f.cities.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Jakarta", list[0].Name)

	got.Province = "Tokyo-to"
	require.NoError(t, f.cities.Update(ctx, got))
	again, err := f.cities.GetByID(ctx, tokyo.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tokyo-to", again.Province)

	require.NoError(t, f.cities.Delete(ctx, tokyo.ID))
	_, err = f.cities.GetByID(ctx, tokyo.ID)
	assert.ErrorIs(t, err, port.ErrNotFound)

	assert.ErrorIs(t, f.cities.Delete(ctx, tokyo.ID), port.ErrNotFound)
	assert.ErrorIs(t, f.cities.Update(ctx, &entity.City{ID: 999, Name: "x"}), port.ErrNotFound)
}

func TestCityRepository_DeleteReferencedCity(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := f.user(t, "ani", entity.RoleEmployee)
	a := f.city(t, "Jakarta", "DKI Jakarta", "Jawa")
	b := f.city(t, "Bandung", "Jawa Barat", "Jawa")
	c := f.city(t, "Medan", "Sumatera Utara", "Sumatera")
	f.trip(t, u, a, b, "audit")

	ref, err := f.cities.IsReferenced(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, ref)

	ref, err = f.cities.IsReferenced(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, ref)

	err = f.cities.Delete(ctx, b.ID)
	assert.ErrorIs(t, err, port.ErrReferenced)

	_, err = f.cities.GetByID(ctx, b.ID)
	assert.NoError(t, err)
}

func TestTripRepository_CreateAndGet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := f.user(t, "budi", entity.RoleEmployee)
	a := f.city(t, "Jakarta", "DKI Jakarta", "Jawa")
	b := f.city(t, "Bandung", "Jawa Barat", "Jawa")
	created := f.trip(t, u, a, b, "vendor meeting")

	got, err := f.trips.GetByID(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, "vendor meeting", got.Purpose)
	assert.Equal(t, "2025-07-01", got.DepartureDate.Format(entity.DateLayout))
	assert.Equal(t, "2025-07-03", got.ReturnDate.Format(entity.DateLayout))
	assert.Equal(t, 3, got.DurationDays)
	assert.True(t, decimal.NewFromInt(250000).Equal(got.PerDayAllowance))
	assert.True(t, decimal.NewFromInt(750000).Equal(got.TotalAllowance))
	assert.Equal(t, entity.StatusPending, got.Status)
	assert.Nil(t, got.ReviewedBy)
	assert.Nil(t, got.ReviewedAt)

	_, err = f.trips.GetByID(ctx, 12345)
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestTripRepository_UpdateStatusIsCompareAndSwap(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := f.user(t, "citra", entity.RoleEmployee)
	hr := f.user(t, "dewi", entity.RoleHR)
	a := f.city(t, "Jakarta", "DKI Jakarta", "Jawa")
	b := f.city(t, "Bandung", "Jawa Barat", "Jawa")
	tr := f.trip(t, u, a, b, "training")

	at := time.Date(2025, 7, 10, 9, 30, 0, 0, time.UTC)
	require.NoError(t, f.trips.UpdateStatus(ctx, tr.ID, entity.StatusPending, entity.StatusApproved, hr.ID, at))

	err := f.trips.UpdateStatus(ctx, tr.ID, entity.StatusPending, entity.StatusRejected, u.ID, at.Add(time.Hour))
	assert.ErrorIs(t, err, port.ErrConflict)

	got, err := f.trips.GetByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, got.Status)
	require.NotNil(t, got.ReviewedBy)
	assert.Equal(t, hr.ID, *got.ReviewedBy)
	require.NotNil(t, got.ReviewedAt)
	assert.True(t, at.Equal(*got.ReviewedAt))

	err = f.trips.UpdateStatus(ctx, 9999, entity.StatusPending, entity.StatusApproved, hr.ID, at)
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestTripRepository_ListFilters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	eko := f.user(t, "Eko", entity.RoleEmployee)
	fitri := f.user(t, "Fitri", entity.RoleEmployee)
	hr := f.user(t, "Gita", entity.RoleHR)
	jkt := f.city(t, "Jakarta", "DKI Jakarta", "Jawa")
	bdg := f.city(t, "Bandung", "Jawa Barat", "Jawa")
	dps := f.city(t, "Denpasar", "Bali", "Bali")

	t1 := f.trip(t, eko, jkt, bdg, "supplier visit")
	t2 := f.trip(t, fitri, jkt, dps, "conference 100%")
	t3 := f.trip(t, eko, bdg, dps, "site survey")
	require.NoError(t, f.trips.UpdateStatus(ctx, t2.ID, entity.StatusPending, entity.StatusApproved, hr.ID, time.Now()))

	all, err := f.trips.List(ctx, port.TripFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{t3.ID, t2.ID, t1.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "Eko", all[0].RequesterName)
	assert.Equal(t, "Bandung", all[0].OriginCityName)
	assert.Equal(t, "Denpasar", all[0].DestinationCityName)

	mine, err := f.trips.List(ctx, port.TripFilter{RequesterID: eko.ID})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	pending, err := f.trips.List(ctx, port.TripFilter{Status: entity.StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	tests := []struct {
		search string
		want   int
	}{
		{"fitri", 1},
		{"DENPASAR", 2},
		{"survey", 1},
		{"100%", 1},
		{"%", 1},
		{"nothing", 0},
	}
	for _, tt := range tests {
		got, err := f.trips.List(ctx, port.TripFilter{Search: tt.search})
		require.NoError(t, err)
		assert.Len(t, got, tt.want, "search %q", tt.search)
	}

	page, err := f.trips.List(ctx, port.TripFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, t2.ID, page[0].ID)
}

func TestUserRepository(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := &entity.User{Name: "Hana", Username: "hana", Email: "Hana@Example.com", PasswordHash: "h", Role: entity.RoleEmployee}
	require.NoError(t, f.users.Create(ctx, u))
	assert.Equal(t, "hana@example.com", u.Email)

	dup := &entity.User{Name: "Other", Username: "hana", Email: "other@example.com", PasswordHash: "h", Role: entity.RoleEmployee}
	assert.ErrorIs(t, f.users.Create(ctx, dup), port.ErrDuplicate)

	byName, err := f.users.GetByLogin(ctx, "hana")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	byEmail, err := f.users.GetByLogin(ctx, "HANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = f.users.GetByLogin(ctx, "nobody")
	assert.ErrorIs(t, err, port.ErrNotFound)

	require.NoError(t, f.users.UpdateRole(ctx, u.ID, entity.RoleHR))
	got, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleHR, got.Role)

	assert.ErrorIs(t, f.users.UpdateRole(ctx, 999, entity.RoleHR), port.ErrNotFound)

	list, err := f.users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestHistoryRepository_OrderedTrail(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := f.user(t, "ida", entity.RoleEmployee)
	a := f.city(t, "Jakarta", "DKI Jakarta", "Jawa")
	b := f.city(t, "Bandung", "Jawa Barat", "Jawa")
	tr := f.trip(t, u, a, b, "workshop")

	base := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, f.history.Create(ctx, &entity.TripHistory{TripID: tr.ID, ActorID: u.ID, NewStatus: entity.StatusPending, Action: entity.ActionSubmit, Timestamp: base}))
	require.NoError(t, f.history.Create(ctx, &entity.TripHistory{TripID: tr.ID, ActorID: 2, PreviousStatus: entity.StatusPending, NewStatus: entity.StatusRejected, Action: entity.ActionReject, Timestamp: base.Add(time.Hour)}))

	trail, err := f.history.GetByTripID(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, entity.ActionSubmit, trail[0].Action)
	assert.Equal(t, entity.ActionReject, trail[1].Action)
	assert.True(t, base.Equal(trail[0].Timestamp))
}

func TestRepositoriesJoinTransaction(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := f.user(t, "joko", entity.RoleEmployee)
	a := f.city(t, "Jakarta", "DKI Jakarta", "Jawa")
	b := f.city(t, "Bandung", "Jawa Barat", "Jawa")
	require.NotZero(t, u.ID)

	boom := errors.New("boom")
	var createdID int64
	err := f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		created := &entity.TripRequest{
			RequesterID: u.ID, Purpose: "inside tx",
			DepartureDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
			ReturnDate:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
			OriginCityID:  a.ID, DestinationCityID: b.ID, DurationDays: 1,
			PerDayAllowance: decimal.Zero, TotalAllowance: decimal.Zero,
			AllowanceRule: "day_trip", Status: entity.StatusPending,
		}
		if err := f.trips.Create(txCtx, created); err != nil {
			return err
		}
		createdID = created.ID
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = f.trips.GetByID(ctx, createdID)
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestTripRepository_ConcurrentReviewsOneWinner(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := f.user(t, "kiki", entity.RoleEmployee)
	a := f.city(t, "Jakarta", "DKI Jakarta", "Jawa")
	b := f.city(t, "Bandung", "Jawa Barat", "Jawa")
	tr := f.trip(t, u, a, b, "race")

	const reviewers = 8
	var (
		wg       sync.WaitGroup
		results  = make(chan error, reviewers)
		decision = []string{entity.StatusApproved, entity.StatusRejected}
	)
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
				return f.trips.UpdateStatus(txCtx, tr.ID, entity.StatusPending, decision[i%2], u.ID, time.Now())
			})
		}(i)
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, port.ErrConflict):
			lost++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, reviewers-1, lost)

	got, err := f.trips.GetByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.NotEqual(t, entity.StatusPending, got.Status)
	require.NotNil(t, got.ReviewedBy)
	assert.Equal(t, u.ID, *got.ReviewedBy)
	assert.NotNil(t, got.ReviewedAt)
}
