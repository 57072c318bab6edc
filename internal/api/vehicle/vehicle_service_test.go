package vehicle

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wrenchwise/workshop-api/internal/gateway"
	"github.com/wrenchwise/workshop-api/internal/types"
)

// MockVehicleRepo is a mock implementation of the VehicleRepo interface
type MockVehicleRepo struct {
	mock.Mock
}

func (m *MockVehicleRepo) List(ctx context.Context, filter types.ListFilter) (*types.Page[types.Vehicle], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Page[types.Vehicle]), args.Error(1)
}

func (m *MockVehicleRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]types.Vehicle, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Vehicle), args.Error(1)
}

func (m *MockVehicleRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Vehicle), args.Error(1)
}

func (m *MockVehicleRepo) GetByPlate(ctx context.Context, plate string) (*types.Vehicle, error) {
	args := m.Called(ctx, plate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Vehicle), args.Error(1)
}

func (m *MockVehicleRepo) Create(ctx context.Context, params types.CreateVehicleParams) (*types.Vehicle, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Vehicle), args.Error(1)
}

func (m *MockVehicleRepo) Update(ctx context.Context, id uuid.UUID, params types.UpdateVehicleParams) error {
	args := m.Called(ctx, id, params)
	return args.Error(0)
}

func (m *MockVehicleRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockVehicleRepo) OpenWorkOrderCount(ctx context.Context, id uuid.UUID) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func newTestGateway(t *testing.T) (*gateway.Gateway, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return gateway.New(mockPool, slog.New(slog.NewTextHandler(io.Discard, nil))), mockPool
}

func countRows(n int) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"count"}).AddRow(n)
}

func TestCreateVehicle(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	customerID := uuid.New()
	params := types.CreateVehicleParams{
		CustomerID:   customerID.String(),
		LicensePlate: "AB-12-CD",
		Make:         "Toyota",
		Model:        "Corolla",
	}

	t.Run("valid vehicle", func(t *testing.T) {
		gw, mockPool := newTestGateway(t)
		repo := new(MockVehicleRepo)

		mockPool.ExpectQuery("SELECT COUNT(*) FROM customers WHERE id = $1").
			WithArgs(params.CustomerID).WillReturnRows(countRows(1))
		mockPool.ExpectQuery("SELECT COUNT(*) FROM vehicles WHERE license_plate = $1 AND deleted_at IS NULL").
			WithArgs(params.LicensePlate).WillReturnRows(countRows(0))

		created := &types.Vehicle{ID: uuid.New(), CustomerID: customerID, LicensePlate: params.LicensePlate}
		repo.On("Create", ctx, params).Return(created, nil)

		svc := NewServiceImpl(repo, gw, logger)
		got, err := svc.Create(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("unknown customer is a field error", func(t *testing.T) {
		gw, mockPool := newTestGateway(t)
		repo := new(MockVehicleRepo)

		mockPool.ExpectQuery("SELECT COUNT(*) FROM customers WHERE id = $1").
			WithArgs(params.CustomerID).WillReturnRows(countRows(0))
		mockPool.ExpectQuery("SELECT COUNT(*) FROM vehicles WHERE license_plate = $1 AND deleted_at IS NULL").
			WithArgs(params.LicensePlate).WillReturnRows(countRows(0))

		svc := NewServiceImpl(repo, gw, logger)
		_, err := svc.Create(ctx, params)

		ve, ok := types.AsValidationError(err)
		require.True(t, ok)
		assert.Contains(t, ve.Fields, "customer_id")
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate plate is a field error", func(t *testing.T) {
		gw, mockPool := newTestGateway(t)
		repo := new(MockVehicleRepo)

		mockPool.ExpectQuery("SELECT COUNT(*) FROM customers WHERE id = $1").
			WithArgs(params.CustomerID).WillReturnRows(countRows(1))
		mockPool.ExpectQuery("SELECT COUNT(*) FROM vehicles WHERE license_plate = $1 AND deleted_at IS NULL").
			WithArgs(params.LicensePlate).WillReturnRows(countRows(1))

		svc := NewServiceImpl(repo, gw, logger)
		_, err := svc.Create(ctx, params)

		ve, ok := types.AsValidationError(err)
		require.True(t, ok)
		assert.Contains(t, ve.Fields, "license_plate")
	})

	t.Run("plate is uppercased before validation and storage", func(t *testing.T) {
		gw, mockPool := newTestGateway(t)
		repo := new(MockVehicleRepo)

		lower := params
		lower.LicensePlate = " ab-12-cd "
		upper := params
		upper.LicensePlate = "AB-12-CD"

		mockPool.ExpectQuery("SELECT COUNT(*) FROM customers WHERE id = $1").
			WithArgs(params.CustomerID).WillReturnRows(countRows(1))
		mockPool.ExpectQuery("SELECT COUNT(*) FROM vehicles WHERE license_plate = $1 AND deleted_at IS NULL").
			WithArgs("AB-12-CD").WillReturnRows(countRows(0))

		created := &types.Vehicle{ID: uuid.New(), CustomerID: customerID, LicensePlate: "AB-12-CD"}
		repo.On("Create", ctx, upper).Return(created, nil)

		svc := NewServiceImpl(repo, gw, logger)
		got, err := svc.Create(ctx, lower)
		require.NoError(t, err)
		assert.Equal(t, "AB-12-CD", got.LicensePlate)
		repo.AssertExpectations(t)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestDeleteVehicle(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("refused with open work orders", func(t *testing.T) {
		gw, _ := newTestGateway(t)
		repo := new(MockVehicleRepo)
		id := uuid.New()

		repo.On("OpenWorkOrderCount", ctx, id).Return(1, nil)

		svc := NewServiceImpl(repo, gw, logger)
		assert.ErrorIs(t, svc.Delete(ctx, id), types.ErrConflict)
		repo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
	})

	t.Run("deletes when nothing is open", func(t *testing.T) {
		gw, _ := newTestGateway(t)
		repo := new(MockVehicleRepo)
		id := uuid.New()

		repo.On("OpenWorkOrderCount", ctx, id).Return(0, nil)
		repo.On("SoftDelete", ctx, id).Return(nil)

		svc := NewServiceImpl(repo, gw, logger)
		require.NoError(t, svc.Delete(ctx, id))
		repo.AssertExpectations(t)
	})
}
