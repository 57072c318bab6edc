package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wrenchwise/workshop-api/config"
	"github.com/wrenchwise/workshop-api/internal/types"
)

type MockTokenPurger struct {
	mock.Mock
}

func (m *MockTokenPurger) PurgeExpiredRememberTokens(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockStockScanner struct {
	mock.Mock
}

func (m *MockStockScanner) ListLowStock(ctx context.Context) ([]types.InventoryItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.InventoryItem), args.Error(1)
}

type MockStockAlerter struct {
	mock.Mock
}

func (m *MockStockAlerter) LowStock(ctx context.Context, item *types.InventoryItem) {
	m.Called(ctx, item)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStartRejectsBadCronSpec(t *testing.T) {
	cfg := config.SchedulerConfig{Enabled: true, TokenPurgeSpec: "not a cron spec", LowStockSweepSpec: "@hourly"}
	s := New(cfg, new(MockTokenPurger), new(MockStockScanner), new(MockStockAlerter), testLogger())
	assert.Error(t, s.Start())
}

func TestStartDisabledRegistersNothing(t *testing.T) {
	cfg := config.SchedulerConfig{Enabled: false, TokenPurgeSpec: "garbage", LowStockSweepSpec: "garbage"}
	s := New(cfg, new(MockTokenPurger), new(MockStockScanner), new(MockStockAlerter), testLogger())
	require.NoError(t, s.Start())
}

func TestPurgeTokens(t *testing.T) {
	purger := new(MockTokenPurger)
	purger.On("PurgeExpiredRememberTokens", mock.Anything, mock.Anything).Return(int64(3), nil).Once()

	s := New(config.SchedulerConfig{}, purger, new(MockStockScanner), new(MockStockAlerter), testLogger())
	s.purgeTokens()
	purger.AssertExpectations(t)
}

func TestSweepLowStock(t *testing.T) {
	t.Run("alerts once per item", func(t *testing.T) {
		scanner := new(MockStockScanner)
		alerter := new(MockStockAlerter)
		items := []types.InventoryItem{
			{ID: uuid.New(), SKU: "FLT-OIL-001", Quantity: 1, MinQuantity: 5},
			{ID: uuid.New(), SKU: "BRK-PAD-014", Quantity: 0, MinQuantity: 4},
		}

		scanner.On("ListLowStock", mock.Anything).Return(items, nil)
		alerter.On("LowStock", mock.Anything, &items[0]).Once()
		alerter.On("LowStock", mock.Anything, &items[1]).Once()

		s := New(config.SchedulerConfig{}, new(MockTokenPurger), scanner, alerter, testLogger())
		s.sweepLowStock()
		alerter.AssertExpectations(t)
	})

	t.Run("scan failure raises no alerts", func(t *testing.T) {
		scanner := new(MockStockScanner)
		alerter := new(MockStockAlerter)
		scanner.On("ListLowStock", mock.Anything).Return(nil, assert.AnError)

		s := New(config.SchedulerConfig{}, new(MockTokenPurger), scanner, alerter, testLogger())
		s.sweepLowStock()
		alerter.AssertNotCalled(t, "LowStock", mock.Anything, mock.Anything)
	})
}
