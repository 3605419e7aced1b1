package space

import (
	"time"

	"github.com/google/uuid"
	"github.com/parkshare/service-reservation/internal/domain"
)

// Space is the aggregate root for a listed parking location. It owns the
// weekly availability rules; products are attached entities resolved through
// the repository.
type Space struct {
	id             uuid.UUID
	hostID         uuid.UUID
	title          string
	description    string
	address        string
	latitude       float64
	longitude      float64
	isActive       bool
	isAutoApproval bool
	rules          []AvailabilityRule
	version        int64
	createdAt      time.Time
	updatedAt      time.Time
}

// NewSpace creates a new active space listing with validated fields.
func NewSpace(
	hostID uuid.UUID,
	title, description, address string,
	latitude, longitude float64,
	isAutoApproval bool,
	rules []AvailabilityRule,
) (*Space, error) {
	if hostID == uuid.Nil {
		return nil, domain.NewValidationError("host ID is required")
	}
	if title == "" {
		return nil, domain.NewValidationError("title is required")
	}
	if latitude < -90 || latitude > 90 {
		return nil, domain.NewValidationError("latitude must be between -90 and 90")
	}
	if longitude < -180 || longitude > 180 {
		return nil, domain.NewValidationError("longitude must be between -180 and 180")
	}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	return &Space{
		id:             uuid.New(),
		hostID:         hostID,
		title:          title,
		description:    description,
		address:        address,
		latitude:       latitude,
		longitude:      longitude,
		isActive:       true,
		isAutoApproval: isAutoApproval,
		rules:          rules,
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// Reconstruct rebuilds a Space from persistence data (no validation).
func Reconstruct(
	id, hostID uuid.UUID,
	title, description, address string,
	latitude, longitude float64,
	isActive, isAutoApproval bool,
	rules []AvailabilityRule,
	version int64,
	createdAt, updatedAt time.Time,
) *Space {
	return &Space{
		id:             id,
		hostID:         hostID,
		title:          title,
		description:    description,
		address:        address,
		latitude:       latitude,
		longitude:      longitude,
		isActive:       isActive,
		isAutoApproval: isAutoApproval,
		rules:          rules,
		version:        version,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// --- Getters ---

func (s *Space) ID() uuid.UUID             { return s.id }
func (s *Space) HostID() uuid.UUID         { return s.hostID }
func (s *Space) Title() string             { return s.title }
func (s *Space) Description() string       { return s.description }
func (s *Space) Address() string           { return s.address }
func (s *Space) Latitude() float64         { return s.latitude }
func (s *Space) Longitude() float64        { return s.longitude }
func (s *Space) IsActive() bool            { return s.isActive }
func (s *Space) IsAutoApproval() bool      { return s.isAutoApproval }
func (s *Space) Rules() []AvailabilityRule { return s.rules }
func (s *Space) Version() int64            { return s.version }
func (s *Space) CreatedAt() time.Time      { return s.createdAt }
func (s *Space) UpdatedAt() time.Time      { return s.updatedAt }

// --- Behavior ---

// IsOwnedBy checks if the space belongs to the given host.
func (s *Space) IsOwnedBy(hostID uuid.UUID) bool {
	return s.hostID == hostID
}

// Update applies partial updates to the listing fields.
func (s *Space) Update(title, description, address string, latitude, longitude *float64, isAutoApproval *bool) error {
	if title != "" {
		s.title = title
	}
	if description != "" {
		s.description = description
	}
	if address != "" {
		s.address = address
	}
	if latitude != nil {
		if *latitude < -90 || *latitude > 90 {
			return domain.NewValidationError("latitude must be between -90 and 90")
		}
		s.latitude = *latitude
	}
	if longitude != nil {
		if *longitude < -180 || *longitude > 180 {
			return domain.NewValidationError("longitude must be between -180 and 180")
		}
		s.longitude = *longitude
	}
	if isAutoApproval != nil {
		s.isAutoApproval = *isAutoApproval
	}
	s.version++
	s.updatedAt = time.Now().UTC()
	return nil
}

// SetActive toggles host-controlled visibility. An inactive space keeps its
// existing reservations but admits no new ones.
func (s *Space) SetActive(active bool) {
	s.isActive = active
	s.version++
	s.updatedAt = time.Now().UTC()
}

// ReplaceRules swaps the weekly availability rules.
func (s *Space) ReplaceRules(rules []AvailabilityRule) error {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	s.rules = rules
	s.version++
	s.updatedAt = time.Now().UTC()
	return nil
}

// CoversInterval reports whether a single weekly rule covers the whole
// requested interval. Clock times are compared in the timestamps' own
// location; an end falling exactly on midnight counts as 24:00 of the
// start day, which is what lets midnight-to-midnight day passes match a
// 00:00-24:00 rule.
func (s *Space) CoversInterval(startAt, endAt time.Time) bool {
	weekday := mondayIndexed(startAt.Weekday())

	startMin := startAt.Hour()*60 + startAt.Minute()
	endMin := endAt.Hour()*60 + endAt.Minute()
	if endMin == 0 {
		endMin = minutesPerDay
	}

	for _, r := range s.rules {
		if r.Weekday == weekday && r.OpensAt <= startMin && r.ClosesAt >= endMin {
			return true
		}
	}
	return false
}

// mondayIndexed converts time.Weekday (Sunday=0) to the Monday=0 convention
// the rules are stored in.
func mondayIndexed(d time.Weekday) int {
	return (int(d) + 6) % 7
}
