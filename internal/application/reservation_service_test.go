package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parkshare/service-reservation/internal/domain"
	"github.com/parkshare/service-reservation/internal/domain/reservation"
	"github.com/parkshare/service-reservation/internal/domain/space"
	"github.com/parkshare/service-reservation/internal/domain/vehicle"
	"github.com/parkshare/service-reservation/internal/events"
)

type serviceFixture struct {
	service      *ReservationService
	reservations *fakeReservationRepo
	spaces       *fakeSpaceRepo
	vehicles     *fakeVehicleRepo
	publisher    *fakePublisher
	now          time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		reservations: newFakeReservationRepo(),
		spaces:       newFakeSpaceRepo(),
		vehicles:     newFakeVehicleRepo(),
		publisher:    &fakePublisher{},
		// A fixed Monday morning keeps weekday-based coverage deterministic.
		now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}
	f.service = NewReservationService(
		f.reservations,
		f.spaces,
		f.vehicles,
		reservation.NewStandardPricingPolicy(reservation.RoundFloor),
		f.publisher,
		2*time.Hour,
		zap.NewNop(),
	)
	f.service.now = func() time.Time { return f.now }
	return f
}

// seedSpace creates an active space covering every day all day, with one
// hourly product at 3000 per hour. Returns the space and the product.
func (f *serviceFixture) seedSpace(t *testing.T, autoApprove bool) (*space.Space, *space.Product) {
	t.Helper()

	rules := make([]space.AvailabilityRule, 7)
	for wd := 0; wd < 7; wd++ {
		rules[wd] = space.AllDay(wd)
	}
	sp, err := space.NewSpace(uuid.New(), "Driveway", "", "1 Test St", 52.37, 4.89, autoApprove, rules)
	require.NoError(t, err)
	require.NoError(t, f.spaces.Save(context.Background(), sp))

	product, err := space.NewProduct(sp.ID(), space.ProductHourly, "Hourly", 3000)
	require.NoError(t, err)
	require.NoError(t, f.spaces.SaveProduct(context.Background(), product))

	return sp, product
}

func (f *serviceFixture) createRequest(productID uuid.UUID, start time.Time, d time.Duration) CreateReservationRequest {
	return CreateReservationRequest{
		ProductID: productID,
		StartAt:   start,
		EndAt:     start.Add(d),
		Plate:     "AB-123-C",
	}
}

func TestCreateReservationPending(t *testing.T) {
	f := newServiceFixture(t)
	sp, product := f.seedSpace(t, false)
	driverID := uuid.New()
	start := f.now.Add(24 * time.Hour)

	dto, err := f.service.CreateReservation(context.Background(), driverID,
		f.createRequest(product.ID(), start, 150*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, "PENDING", dto.Status)
	assert.Equal(t, sp.ID(), dto.SpaceID)
	assert.Equal(t, sp.HostID(), dto.HostID, "host is snapshotted onto the reservation")
	assert.Equal(t, driverID, dto.DriverID)
	assert.Equal(t, int64(7500), dto.PriceTotal, "2.5h at 3000/h")
	assert.Equal(t, "AB-123-C", dto.Plate)
	assert.Nil(t, dto.ConfirmedAt)

	assert.Equal(t, []string{events.ReservationRequested}, f.publisher.typesOn(events.TopicReservationEvents))
}

func TestCreateReservationAutoApproval(t *testing.T) {
	f := newServiceFixture(t)
	_, product := f.seedSpace(t, true)
	start := f.now.Add(24 * time.Hour)

	dto, err := f.service.CreateReservation(context.Background(), uuid.New(),
		f.createRequest(product.ID(), start, time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "CONFIRMED", dto.Status)
	assert.NotNil(t, dto.ConfirmedAt)

	assert.Equal(t,
		[]string{events.ReservationRequested, events.ReservationConfirmed},
		f.publisher.typesOn(events.TopicReservationEvents))
}

func TestCreateReservationCatalogGuards(t *testing.T) {
	f := newServiceFixture(t)
	sp, product := f.seedSpace(t, false)
	start := f.now.Add(24 * time.Hour)

	t.Run("unknown product", func(t *testing.T) {
		_, err := f.service.CreateReservation(context.Background(), uuid.New(),
			f.createRequest(uuid.New(), start, time.Hour))
		assert.True(t, domain.IsCode(err, domain.CodeNotFound))
	})

	t.Run("inactive product", func(t *testing.T) {
		retired, err := space.NewProduct(sp.ID(), space.ProductDayPass, "Day pass", 18000)
		require.NoError(t, err)
		retired.Deactivate()
		require.NoError(t, f.spaces.SaveProduct(context.Background(), retired))

		_, err = f.service.CreateReservation(context.Background(), uuid.New(),
			f.createRequest(retired.ID(), start, 24*time.Hour))
		assert.True(t, domain.IsCode(err, domain.CodeNotFound))
	})

	t.Run("inactive space", func(t *testing.T) {
		sp.SetActive(false)
		require.NoError(t, f.spaces.Update(context.Background(), sp))
		defer func() {
			sp.SetActive(true)
			_ = f.spaces.Update(context.Background(), sp)
		}()

		_, err := f.service.CreateReservation(context.Background(), uuid.New(),
			f.createRequest(product.ID(), start, time.Hour))
		assert.True(t, domain.IsCode(err, domain.CodeSpaceInactive))
	})
}

func TestCreateReservationIntervalGuards(t *testing.T) {
	f := newServiceFixture(t)
	_, product := f.seedSpace(t, false)

	t.Run("start in the past", func(t *testing.T) {
		_, err := f.service.CreateReservation(context.Background(), uuid.New(),
			f.createRequest(product.ID(), f.now.Add(-time.Hour), time.Hour))
		assert.True(t, domain.IsCode(err, domain.CodeInvalidInterval))
	})

	t.Run("start exactly now", func(t *testing.T) {
		_, err := f.service.CreateReservation(context.Background(), uuid.New(),
			f.createRequest(product.ID(), f.now, time.Hour))
		assert.True(t, domain.IsCode(err, domain.CodeInvalidInterval))
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := f.service.CreateReservation(context.Background(), uuid.New(),
			f.createRequest(product.ID(), f.now.Add(24*time.Hour), -time.Hour))
		assert.True(t, domain.IsCode(err, domain.CodeInvalidInterval))
	})

	t.Run("off-grid duration", func(t *testing.T) {
		_, err := f.service.CreateReservation(context.Background(), uuid.New(),
			f.createRequest(product.ID(), f.now.Add(24*time.Hour), 45*time.Minute))
		assert.True(t, domain.IsCode(err, domain.CodeInvalidInterval))
	})
}

func TestCreateReservationOutsideAvailability(t *testing.T) {
	f := newServiceFixture(t)

	// Monday 08:00-18:00 only.
	sp, err := space.NewSpace(uuid.New(), "Office lot", "", "2 Test St", 52.37, 4.89, false,
		[]space.AvailabilityRule{{Weekday: 0, OpensAt: 8 * 60, ClosesAt: 18 * 60}})
	require.NoError(t, err)
	require.NoError(t, f.spaces.Save(context.Background(), sp))

	product, err := space.NewProduct(sp.ID(), space.ProductHourly, "Hourly", 3000)
	require.NoError(t, err)
	require.NoError(t, f.spaces.SaveProduct(context.Background(), product))

	// Next Monday 17:00-19:00 runs past closing.
	start := f.now.AddDate(0, 0, 7).Add(9 * time.Hour)
	_, err = f.service.CreateReservation(context.Background(), uuid.New(),
		f.createRequest(product.ID(), start, 2*time.Hour))
	assert.True(t, domain.IsCode(err, domain.CodeValidation))

	// Next Monday 09:00-11:00 fits.
	start = f.now.AddDate(0, 0, 7).Add(time.Hour)
	_, err = f.service.CreateReservation(context.Background(), uuid.New(),
		f.createRequest(product.ID(), start, 2*time.Hour))
	assert.NoError(t, err)
}

func TestCreateReservationVehicleResolution(t *testing.T) {
	f := newServiceFixture(t)
	_, product := f.seedSpace(t, false)
	driverID := uuid.New()
	start := f.now.Add(24 * time.Hour)

	t.Run("registered vehicle snapshots its plate", func(t *testing.T) {
		v, err := vehicle.NewVehicle(driverID, "XY-987-Z", "Kei van", true)
		require.NoError(t, err)
		require.NoError(t, f.vehicles.Save(context.Background(), v))

		req := f.createRequest(product.ID(), start, time.Hour)
		req.Plate = ""
		vid := v.ID()
		req.VehicleID = &vid

		dto, err := f.service.CreateReservation(context.Background(), driverID, req)
		require.NoError(t, err)
		assert.Equal(t, "XY-987-Z", dto.Plate)
		require.NotNil(t, dto.VehicleID)
		assert.Equal(t, v.ID(), *dto.VehicleID)
	})

	t.Run("someone else's vehicle is rejected", func(t *testing.T) {
		other, err := vehicle.NewVehicle(uuid.New(), "ZZ-111-A", "", false)
		require.NoError(t, err)
		require.NoError(t, f.vehicles.Save(context.Background(), other))

		req := f.createRequest(product.ID(), start.Add(6*time.Hour), time.Hour)
		req.Plate = ""
		oid := other.ID()
		req.VehicleID = &oid

		_, err = f.service.CreateReservation(context.Background(), driverID, req)
		assert.True(t, domain.IsCode(err, domain.CodeUnauthorized))
	})

	t.Run("neither vehicle nor plate", func(t *testing.T) {
		req := f.createRequest(product.ID(), start.Add(12*time.Hour), time.Hour)
		req.Plate = ""

		_, err := f.service.CreateReservation(context.Background(), driverID, req)
		assert.True(t, domain.IsCode(err, domain.CodeValidation))
	})
}

func TestCreateReservationSlotConflict(t *testing.T) {
	f := newServiceFixture(t)
	_, product := f.seedSpace(t, false)
	start := f.now.Add(24 * time.Hour)

	_, err := f.service.CreateReservation(context.Background(), uuid.New(),
		f.createRequest(product.ID(), start, 2*time.Hour))
	require.NoError(t, err)

	t.Run("overlapping interval conflicts", func(t *testing.T) {
		_, err := f.service.CreateReservation(context.Background(), uuid.New(),
			f.createRequest(product.ID(), start.Add(time.Hour), 2*time.Hour))
		assert.True(t, domain.IsCode(err, domain.CodeSlotConflict))
	})

	t.Run("back-to-back interval fits", func(t *testing.T) {
		_, err := f.service.CreateReservation(context.Background(), uuid.New(),
			f.createRequest(product.ID(), start.Add(2*time.Hour), time.Hour))
		assert.NoError(t, err)
	})

	t.Run("released slot can be rebooked", func(t *testing.T) {
		later := start.Add(12 * time.Hour)
		dto, err := f.service.CreateReservation(context.Background(), uuid.New(),
			f.createRequest(product.ID(), later, time.Hour))
		require.NoError(t, err)

		_, err = f.service.RejectReservation(context.Background(), dto.ID, dto.HostID)
		require.NoError(t, err)

		_, err = f.service.CreateReservation(context.Background(), uuid.New(),
			f.createRequest(product.ID(), later, time.Hour))
		assert.NoError(t, err, "rejected reservations release their slot")
	})
}

func TestConcurrentCreateOnlyOneWins(t *testing.T) {
	f := newServiceFixture(t)
	_, product := f.seedSpace(t, false)
	start := f.now.Add(24 * time.Hour)
	req := f.createRequest(product.ID(), start, 2*time.Hour)

	const racers = 8
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.CreateReservation(context.Background(), uuid.New(), req)
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case domain.IsCode(err, domain.CodeSlotConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, conflicts)
}

func TestApproveAndRejectAuthorization(t *testing.T) {
	f := newServiceFixture(t)
	sp, product := f.seedSpace(t, false)
	start := f.now.Add(24 * time.Hour)

	dto, err := f.service.CreateReservation(context.Background(), uuid.New(),
		f.createRequest(product.ID(), start, time.Hour))
	require.NoError(t, err)

	_, err = f.service.ApproveReservation(context.Background(), dto.ID, uuid.New())
	assert.True(t, domain.IsCode(err, domain.CodeUnauthorized))

	approved, err := f.service.ApproveReservation(context.Background(), dto.ID, sp.HostID())
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", approved.Status)
	assert.Equal(t, int64(2), approved.Version)

	_, err = f.service.RejectReservation(context.Background(), dto.ID, sp.HostID())
	assert.True(t, domain.IsCode(err, domain.CodeInvalidTransition), "confirmed cannot be rejected")

	assert.Contains(t, f.publisher.typesOn(events.TopicReservationEvents), events.ReservationConfirmed)
}

func TestCancelReservationLeadTime(t *testing.T) {
	f := newServiceFixture(t)
	_, product := f.seedSpace(t, false)
	driverID := uuid.New()
	start := f.now.Add(24 * time.Hour)

	dto, err := f.service.CreateReservation(context.Background(), driverID,
		f.createRequest(product.ID(), start, time.Hour))
	require.NoError(t, err)

	t.Run("non-driver cannot cancel", func(t *testing.T) {
		_, err := f.service.CancelReservation(context.Background(), dto.ID, dto.HostID)
		assert.True(t, domain.IsCode(err, domain.CodeUnauthorized))
	})

	t.Run("inside the lead window", func(t *testing.T) {
		f.now = start.Add(-time.Hour)
		defer func() { f.now = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }()

		_, err := f.service.CancelReservation(context.Background(), dto.ID, driverID)
		assert.True(t, domain.IsCode(err, domain.CodeDeadlinePassed))
	})

	t.Run("outside the lead window", func(t *testing.T) {
		canceled, err := f.service.CancelReservation(context.Background(), dto.ID, driverID)
		require.NoError(t, err)
		assert.Equal(t, "CANCELED", canceled.Status)
		assert.NotNil(t, canceled.CanceledAt)
	})

	assert.Contains(t, f.publisher.typesOn(events.TopicReservationEvents), events.ReservationCanceled)
}

func TestTransitionRetriesLostVersionRace(t *testing.T) {
	f := newServiceFixture(t)
	sp, product := f.seedSpace(t, false)
	start := f.now.Add(24 * time.Hour)

	dto, err := f.service.CreateReservation(context.Background(), uuid.New(),
		f.createRequest(product.ID(), start, time.Hour))
	require.NoError(t, err)

	// First Update loses the version race; the retry must succeed.
	f.reservations.failUpdates = 1
	approved, err := f.service.ApproveReservation(context.Background(), dto.ID, sp.HostID())
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", approved.Status)

	// Two straight losses surface an error.
	f.reservations.failUpdates = 2
	driver := dto.DriverID
	f.now = start.Add(-12 * time.Hour)
	_, err = f.service.CancelReservation(context.Background(), dto.ID, driver)
	assert.Error(t, err)
}

func TestGetReservationVisibility(t *testing.T) {
	f := newServiceFixture(t)
	sp, product := f.seedSpace(t, false)
	driverID := uuid.New()
	start := f.now.Add(24 * time.Hour)

	dto, err := f.service.CreateReservation(context.Background(), driverID,
		f.createRequest(product.ID(), start, time.Hour))
	require.NoError(t, err)

	_, err = f.service.GetReservation(context.Background(), dto.ID, driverID)
	assert.NoError(t, err)

	_, err = f.service.GetReservation(context.Background(), dto.ID, sp.HostID())
	assert.NoError(t, err)

	_, err = f.service.GetReservation(context.Background(), dto.ID, uuid.New())
	assert.True(t, domain.IsCode(err, domain.CodeUnauthorized))
}

func TestListReservations(t *testing.T) {
	f := newServiceFixture(t)
	sp, product := f.seedSpace(t, false)
	driverID := uuid.New()
	start := f.now.Add(24 * time.Hour)

	for i := 0; i < 3; i++ {
		_, err := f.service.CreateReservation(context.Background(), driverID,
			f.createRequest(product.ID(), start.Add(time.Duration(i)*4*time.Hour), time.Hour))
		require.NoError(t, err)
	}

	byDriver, err := f.service.GetDriverReservations(context.Background(), driverID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), byDriver.Total)
	assert.Len(t, byDriver.Items, 3)

	byHost, err := f.service.GetHostReservations(context.Background(), sp.HostID(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), byHost.Total)
	assert.Len(t, byHost.Items, 2)
}

func TestRejectPendingBySpace(t *testing.T) {
	f := newServiceFixture(t)
	sp, product := f.seedSpace(t, false)
	start := f.now.Add(24 * time.Hour)

	first, err := f.service.CreateReservation(context.Background(), uuid.New(),
		f.createRequest(product.ID(), start, time.Hour))
	require.NoError(t, err)
	second, err := f.service.CreateReservation(context.Background(), uuid.New(),
		f.createRequest(product.ID(), start.Add(4*time.Hour), time.Hour))
	require.NoError(t, err)

	// One of them got confirmed before the deactivation landed.
	confirmed, err := f.service.ApproveReservation(context.Background(), second.ID, sp.HostID())
	require.NoError(t, err)

	rejected, err := f.service.RejectPendingBySpace(context.Background(), sp.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, rejected, "only pending reservations are rejected")

	got, err := f.service.GetReservation(context.Background(), first.ID, first.DriverID)
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", got.Status)

	kept, err := f.service.GetReservation(context.Background(), confirmed.ID, confirmed.DriverID)
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", kept.Status)
}

func TestCompleteDueReservations(t *testing.T) {
	f := newServiceFixture(t)
	_, product := f.seedSpace(t, true)
	start := f.now.Add(24 * time.Hour)

	ended, err := f.service.CreateReservation(context.Background(), uuid.New(),
		f.createRequest(product.ID(), start, 2*time.Hour))
	require.NoError(t, err)
	ongoing, err := f.service.CreateReservation(context.Background(), uuid.New(),
		f.createRequest(product.ID(), start.Add(6*time.Hour), 2*time.Hour))
	require.NoError(t, err)

	// Advance the clock past the first reservation's end only.
	f.now = start.Add(3 * time.Hour)

	completed, err := f.service.CompleteDueReservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, completed)

	got, err := f.service.GetReservation(context.Background(), ended.ID, ended.DriverID)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", got.Status)
	assert.NotNil(t, got.CompletedAt)

	still, err := f.service.GetReservation(context.Background(), ongoing.ID, ongoing.DriverID)
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", still.Status)

	assert.Contains(t, f.publisher.typesOn(events.TopicReservationEvents), events.ReservationCompleted)
}

func TestCheckAvailability(t *testing.T) {
	f := newServiceFixture(t)
	sp, product := f.seedSpace(t, true)
	start := f.now.Add(24 * time.Hour)

	probe := func(s, e time.Time) *AvailabilityDTO {
		t.Helper()
		result, err := f.service.CheckAvailability(context.Background(), sp.ID(), s, e)
		require.NoError(t, err)
		return result
	}

	assert.True(t, probe(start, start.Add(2*time.Hour)).Available)

	_, err := f.service.CreateReservation(context.Background(), uuid.New(),
		f.createRequest(product.ID(), start, 2*time.Hour))
	require.NoError(t, err)

	taken := probe(start.Add(time.Hour), start.Add(3*time.Hour))
	assert.False(t, taken.Available)
	assert.Contains(t, taken.Reason, "overlaps")

	assert.True(t, probe(start.Add(2*time.Hour), start.Add(3*time.Hour)).Available,
		"back-to-back interval is free")

	_, err = f.service.CheckAvailability(context.Background(), sp.ID(), start.Add(time.Hour), start)
	assert.True(t, domain.IsCode(err, domain.CodeInvalidInterval))

	_, err = f.service.CheckAvailability(context.Background(), uuid.New(), start, start.Add(time.Hour))
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))

	sp.SetActive(false)
	require.NoError(t, f.spaces.Update(context.Background(), sp))
	inactive := probe(start.Add(2*time.Hour), start.Add(3*time.Hour))
	assert.False(t, inactive.Available)
	assert.Contains(t, inactive.Reason, "not active")
}
