package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parkshare/service-reservation/internal/domain"
	"github.com/parkshare/service-reservation/internal/domain/reservation"
	"github.com/parkshare/service-reservation/internal/domain/space"
	"github.com/parkshare/service-reservation/internal/domain/vehicle"
	"github.com/parkshare/service-reservation/internal/kafka"
)

// fakeReservationRepo is an in-memory reservation.Repository. CreateIfSlotFree
// serializes the check-then-insert under one mutex, mirroring the per-space
// lock the real implementation takes.
type fakeReservationRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*reservation.Reservation

	// failUpdates makes the next N Update calls lose the version race.
	failUpdates int
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{items: make(map[uuid.UUID]*reservation.Reservation)}
}

func (f *fakeReservationRepo) FindByID(_ context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[id]
	if !ok {
		return nil, domain.NewNotFoundError("reservation", id.String())
	}
	// Hand out a copy so a failed Update does not leak mutations back into
	// the store, matching real persistence semantics.
	cp := *r
	return &cp, nil
}

func (f *fakeReservationRepo) FindByDriver(_ context.Context, driverID uuid.UUID, page, limit int) ([]*reservation.Reservation, int64, error) {
	return f.page(func(r *reservation.Reservation) bool { return r.DriverID() == driverID }, page, limit)
}

func (f *fakeReservationRepo) FindByHost(_ context.Context, hostID uuid.UUID, page, limit int) ([]*reservation.Reservation, int64, error) {
	return f.page(func(r *reservation.Reservation) bool { return r.HostID() == hostID }, page, limit)
}

func (f *fakeReservationRepo) page(match func(*reservation.Reservation) bool, page, limit int) ([]*reservation.Reservation, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []*reservation.Reservation
	for _, r := range f.items {
		if match(r) {
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt().After(all[j].CreatedAt()) })

	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (f *fakeReservationRepo) FindPendingBySpace(_ context.Context, spaceID uuid.UUID) ([]*reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*reservation.Reservation
	for _, r := range f.items {
		if r.SpaceID() == spaceID && r.Status() == reservation.StatusPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) FindConfirmedEndedBefore(_ context.Context, cutoff time.Time) ([]*reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*reservation.Reservation
	for _, r := range f.items {
		if r.Status() == reservation.StatusConfirmed && !r.EndAt().After(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) CountOverlapping(_ context.Context, spaceID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countOverlappingLocked(spaceID, start, end, excludeID), nil
}

func (f *fakeReservationRepo) countOverlappingLocked(spaceID uuid.UUID, start, end time.Time, excludeID uuid.UUID) int64 {
	ivl := reservation.NewInterval(start, end)
	var count int64
	for _, r := range f.items {
		if r.ID() == excludeID || r.SpaceID() != spaceID || !r.Status().Occupies() {
			continue
		}
		if r.Interval().Overlaps(ivl) {
			count++
		}
	}
	return count
}

func (f *fakeReservationRepo) CreateIfSlotFree(_ context.Context, r *reservation.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countOverlappingLocked(r.SpaceID(), r.StartAt(), r.EndAt(), uuid.Nil) > 0 {
		return domain.NewSlotConflictError("requested interval overlaps an existing reservation")
	}
	cp := *r
	f.items[r.ID()] = &cp
	return nil
}

func (f *fakeReservationRepo) Update(_ context.Context, r *reservation.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdates > 0 {
		f.failUpdates--
		return domain.NewConflictError("reservation was modified by another transaction")
	}
	if _, ok := f.items[r.ID()]; !ok {
		return domain.NewNotFoundError("reservation", r.ID().String())
	}
	cp := *r
	f.items[r.ID()] = &cp
	return nil
}

// fakeSpaceRepo is an in-memory space.Repository.
type fakeSpaceRepo struct {
	mu       sync.Mutex
	spaces   map[uuid.UUID]*space.Space
	products map[uuid.UUID]*space.Product
}

func newFakeSpaceRepo() *fakeSpaceRepo {
	return &fakeSpaceRepo{
		spaces:   make(map[uuid.UUID]*space.Space),
		products: make(map[uuid.UUID]*space.Product),
	}
}

func (f *fakeSpaceRepo) FindByID(_ context.Context, id uuid.UUID) (*space.Space, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sp, ok := f.spaces[id]
	if !ok {
		return nil, domain.NewNotFoundError("space", id.String())
	}
	return sp, nil
}

func (f *fakeSpaceRepo) ListActive(_ context.Context, bounds *space.Bounds, page, limit int) ([]*space.Space, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*space.Space
	for _, sp := range f.spaces {
		if !sp.IsActive() {
			continue
		}
		if bounds != nil && !bounds.Contains(sp.Latitude(), sp.Longitude()) {
			continue
		}
		out = append(out, sp)
	}
	return out, int64(len(out)), nil
}

func (f *fakeSpaceRepo) ListByHost(_ context.Context, hostID uuid.UUID, page, limit int) ([]*space.Space, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*space.Space
	for _, sp := range f.spaces {
		if sp.HostID() == hostID {
			out = append(out, sp)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeSpaceRepo) Save(_ context.Context, sp *space.Space) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spaces[sp.ID()] = sp
	return nil
}

func (f *fakeSpaceRepo) Update(_ context.Context, sp *space.Space) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.spaces[sp.ID()]; !ok {
		return domain.NewNotFoundError("space", sp.ID().String())
	}
	f.spaces[sp.ID()] = sp
	return nil
}

func (f *fakeSpaceRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.spaces[id]; !ok {
		return domain.NewNotFoundError("space", id.String())
	}
	delete(f.spaces, id)
	return nil
}

func (f *fakeSpaceRepo) FindProduct(_ context.Context, id uuid.UUID) (*space.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, domain.NewNotFoundError("product", id.String())
	}
	return p, nil
}

func (f *fakeSpaceRepo) ListProducts(_ context.Context, spaceID uuid.UUID) ([]*space.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*space.Product
	for _, p := range f.products {
		if p.SpaceID() == spaceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeSpaceRepo) SaveProduct(_ context.Context, p *space.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID()] = p
	return nil
}

func (f *fakeSpaceRepo) UpdateProduct(_ context.Context, p *space.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[p.ID()]; !ok {
		return domain.NewNotFoundError("product", p.ID().String())
	}
	f.products[p.ID()] = p
	return nil
}

// fakeVehicleRepo is an in-memory vehicle.Repository.
type fakeVehicleRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*vehicle.Vehicle
}

func newFakeVehicleRepo() *fakeVehicleRepo {
	return &fakeVehicleRepo{items: make(map[uuid.UUID]*vehicle.Vehicle)}
}

func (f *fakeVehicleRepo) FindByID(_ context.Context, id uuid.UUID) (*vehicle.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.items[id]
	if !ok {
		return nil, domain.NewNotFoundError("vehicle", id.String())
	}
	return v, nil
}

func (f *fakeVehicleRepo) ListByDriver(_ context.Context, driverID uuid.UUID) ([]*vehicle.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*vehicle.Vehicle
	for _, v := range f.items {
		if v.DriverID() == driverID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVehicleRepo) Save(_ context.Context, v *vehicle.Vehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v.IsDefault() {
		for id, existing := range f.items {
			if existing.DriverID() == v.DriverID() && existing.IsDefault() {
				existing.SetDefault(false)
				f.items[id] = existing
			}
		}
	}
	f.items[v.ID()] = v
	return nil
}

func (f *fakeVehicleRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return domain.NewNotFoundError("vehicle", id.String())
	}
	delete(f.items, id)
	return nil
}

// capturedEvent is one publish recorded by the fake publisher.
type capturedEvent struct {
	Topic string
	Key   string
	Event kafka.CloudEvent
}

// fakePublisher records published events instead of writing to Kafka.
type fakePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (f *fakePublisher) Publish(_ context.Context, topic, key string, event kafka.CloudEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, capturedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (f *fakePublisher) typesOn(topic string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		if e.Topic == topic {
			out = append(out, e.Event.Type)
		}
	}
	return out
}
