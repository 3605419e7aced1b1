package reservation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkshare/service-reservation/internal/domain"
	"github.com/parkshare/service-reservation/internal/domain/space"
)

func hourlyProduct(t *testing.T, price int64) *space.Product {
	t.Helper()
	p, err := space.NewProduct(uuid.New(), space.ProductHourly, "Hourly", price)
	require.NoError(t, err)
	return p
}

func dayPassProduct(t *testing.T, price int64) *space.Product {
	t.Helper()
	p, err := space.NewProduct(uuid.New(), space.ProductDayPass, "Day pass", price)
	require.NoError(t, err)
	return p
}

func intervalOf(d time.Duration) Interval {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return NewInterval(start, start.Add(d))
}

func TestQuoteHourly(t *testing.T) {
	policy := NewStandardPricingPolicy(RoundFloor)

	tests := []struct {
		name     string
		price    int64
		duration time.Duration
		want     int64
	}{
		{"single hour", 3000, time.Hour, 3000},
		{"half hour", 3000, 30 * time.Minute, 1500},
		{"two and a half hours", 3000, 150 * time.Minute, 7500},
		{"floor truncates fraction", 1001, 30 * time.Minute, 500},
		{"long stay", 2000, 12 * time.Hour, 24000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, err := policy.Quote(hourlyProduct(t, tt.price), intervalOf(tt.duration))
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
		})
	}
}

func TestQuoteHourlyNearestRounding(t *testing.T) {
	policy := NewStandardPricingPolicy(RoundNearest)

	// 1001 * 30 / 60 = 500.5, nearest rounds up where floor truncates.
	total, err := policy.Quote(hourlyProduct(t, 1001), intervalOf(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(501), total)
}

func TestQuoteHourlyRejectsOffGridIntervals(t *testing.T) {
	policy := NewStandardPricingPolicy(RoundFloor)

	for _, d := range []time.Duration{20 * time.Minute, 45 * time.Minute, 90*time.Minute + time.Second} {
		_, err := policy.Quote(hourlyProduct(t, 3000), intervalOf(d))
		assert.True(t, domain.IsCode(err, domain.CodeInvalidInterval), "duration %s should be rejected", d)
	}
}

func TestQuoteDayPass(t *testing.T) {
	policy := NewStandardPricingPolicy(RoundFloor)

	total, err := policy.Quote(dayPassProduct(t, 18000), intervalOf(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(18000), total)
}

func TestQuoteDayPassRequiresExactSpan(t *testing.T) {
	policy := NewStandardPricingPolicy(RoundFloor)

	for _, d := range []time.Duration{23 * time.Hour, 25 * time.Hour, 48 * time.Hour} {
		_, err := policy.Quote(dayPassProduct(t, 18000), intervalOf(d))
		assert.True(t, domain.IsCode(err, domain.CodeInvalidInterval), "duration %s should be rejected", d)
	}
}

func TestQuoteRejectsInvalidInterval(t *testing.T) {
	policy := NewStandardPricingPolicy(RoundFloor)

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	_, err := policy.Quote(hourlyProduct(t, 3000), NewInterval(start, start))
	assert.True(t, domain.IsCode(err, domain.CodeInvalidInterval))
}
