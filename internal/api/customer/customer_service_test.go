package customer

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

// MockCustomerRepo is a mock implementation of the CustomerRepo interface
type MockCustomerRepo struct {
	mock.Mock
}

func (m *MockCustomerRepo) List(ctx context.Context, filter types.ListFilter) (*types.Page[types.Customer], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Page[types.Customer]), args.Error(1)
}

func (m *MockCustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Customer), args.Error(1)
}

func (m *MockCustomerRepo) Create(ctx context.Context, params types.CreateCustomerParams) (*types.Customer, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Customer), args.Error(1)
}

func (m *MockCustomerRepo) Update(ctx context.Context, id uuid.UUID, params types.UpdateCustomerParams) error {
	args := m.Called(ctx, id, params)
	return args.Error(0)
}

func (m *MockCustomerRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCustomerRepo) VehicleCount(ctx context.Context, id uuid.UUID) (int, error) {
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

func TestCreateCustomer(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("valid customer passes validation", func(t *testing.T) {
		gw, mockPool := newTestGateway(t)
		repo := new(MockCustomerRepo)
		params := types.CreateCustomerParams{Name: "Maria Santos", Phone: "+351912345678"}

		mockPool.ExpectQuery("SELECT COUNT(*) FROM customers WHERE phone = $1 AND deleted_at IS NULL").
			WithArgs(params.Phone).WillReturnRows(countRows(0))

		created := &types.Customer{ID: uuid.New(), Name: params.Name, Phone: params.Phone}
		repo.On("Create", ctx, params).Return(created, nil)

		svc := NewServiceImpl(repo, gw, logger)
		got, err := svc.Create(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("duplicate phone is a field error", func(t *testing.T) {
		gw, mockPool := newTestGateway(t)
		repo := new(MockCustomerRepo)
		params := types.CreateCustomerParams{Name: "Maria Santos", Phone: "+351912345678"}

		mockPool.ExpectQuery("SELECT COUNT(*) FROM customers WHERE phone = $1 AND deleted_at IS NULL").
			WithArgs(params.Phone).WillReturnRows(countRows(1))

		svc := NewServiceImpl(repo, gw, logger)
		_, err := svc.Create(ctx, params)

		ve, ok := types.AsValidationError(err)
		require.True(t, ok, "expected validation error, got %v", err)
		assert.Contains(t, ve.Fields, "phone")
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("missing name and phone fail without touching the repo", func(t *testing.T) {
		gw, _ := newTestGateway(t)
		repo := new(MockCustomerRepo)

		svc := NewServiceImpl(repo, gw, logger)
		_, err := svc.Create(ctx, types.CreateCustomerParams{})

		ve, ok := types.AsValidationError(err)
		require.True(t, ok)
		assert.Contains(t, ve.Fields, "name")
		assert.Contains(t, ve.Fields, "phone")
	})
}

func TestDeleteCustomer(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("refused while vehicles remain", func(t *testing.T) {
		gw, _ := newTestGateway(t)
		repo := new(MockCustomerRepo)
		id := uuid.New()

		repo.On("VehicleCount", ctx, id).Return(2, nil)

		svc := NewServiceImpl(repo, gw, logger)
		err := svc.Delete(ctx, id)
		assert.ErrorIs(t, err, types.ErrConflict)
		repo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
	})

	t.Run("soft deletes when no vehicles", func(t *testing.T) {
		gw, _ := newTestGateway(t)
		repo := new(MockCustomerRepo)
		id := uuid.New()

		repo.On("VehicleCount", ctx, id).Return(0, nil)
		repo.On("SoftDelete", ctx, id).Return(nil)

		svc := NewServiceImpl(repo, gw, logger)
		require.NoError(t, svc.Delete(ctx, id))
		repo.AssertExpectations(t)
	})
}

func TestListClampsPagination(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw, _ := newTestGateway(t)
	repo := new(MockCustomerRepo)

	repo.On("List", ctx, types.ListFilter{Limit: defaultPageSize}).
		Return(&types.Page[types.Customer]{Items: []types.Customer{}}, nil)
	repo.On("List", ctx, types.ListFilter{Limit: maxPageSize}).
		Return(&types.Page[types.Customer]{Items: []types.Customer{}}, nil)

	svc := NewServiceImpl(repo, gw, logger)

	_, err := svc.List(ctx, types.ListFilter{Limit: 0, Offset: -3})
	require.NoError(t, err)
	_, err = svc.List(ctx, types.ListFilter{Limit: 100000})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
