package workorder

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wrenchwise/workshop-api/internal/gateway"
	"github.com/wrenchwise/workshop-api/internal/types"
)

// MockWorkOrderRepo is a mock implementation of the WorkOrderRepo interface
type MockWorkOrderRepo struct {
	mock.Mock
}

func (m *MockWorkOrderRepo) List(ctx context.Context, filter types.WorkOrderFilter) (*types.Page[types.WorkOrder], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Page[types.WorkOrder]), args.Error(1)
}

func (m *MockWorkOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.WorkOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.WorkOrder), args.Error(1)
}

func (m *MockWorkOrderRepo) Create(ctx context.Context, params types.CreateWorkOrderParams, orderNumber string, createdBy uuid.UUID) (*types.WorkOrder, error) {
	args := m.Called(ctx, params, orderNumber, createdBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.WorkOrder), args.Error(1)
}

func (m *MockWorkOrderRepo) Update(ctx context.Context, id uuid.UUID, params types.UpdateWorkOrderParams) error {
	args := m.Called(ctx, id, params)
	return args.Error(0)
}

func (m *MockWorkOrderRepo) SetStatus(ctx context.Context, id uuid.UUID, status types.WorkOrderStatus, now time.Time) error {
	args := m.Called(ctx, id, status, now)
	return args.Error(0)
}

func (m *MockWorkOrderRepo) ListParts(ctx context.Context, workOrderID uuid.UUID) ([]types.WorkOrderPart, error) {
	args := m.Called(ctx, workOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.WorkOrderPart), args.Error(1)
}

func (m *MockWorkOrderRepo) AddPart(ctx context.Context, workOrderID uuid.UUID, params types.AddPartParams) (*types.WorkOrderPart, error) {
	args := m.Called(ctx, workOrderID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.WorkOrderPart), args.Error(1)
}

func (m *MockWorkOrderRepo) RemovePart(ctx context.Context, workOrderID, partID uuid.UUID) error {
	args := m.Called(ctx, workOrderID, partID)
	return args.Error(0)
}

func (m *MockWorkOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockWorkOrderRepo) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	args := m.Called(ctx, since)
	return args.Int(0), args.Error(1)
}

// MockNotifier records lifecycle events.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) WorkOrderStatusChanged(ctx context.Context, wo *types.WorkOrder, from, to types.WorkOrderStatus) {
	m.Called(ctx, wo, from, to)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGateway(t *testing.T) (*gateway.Gateway, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return gateway.New(mockPool, testLogger()), mockPool
}

func countRows(n int) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"count"}).AddRow(n)
}

func TestCreateWorkOrder(t *testing.T) {
	ctx := context.Background()
	gw, mockPool := newTestGateway(t)
	repo := new(MockWorkOrderRepo)

	customerID := uuid.New()
	vehicleID := uuid.New()
	createdBy := uuid.New()
	params := types.CreateWorkOrderParams{
		CustomerID:  customerID.String(),
		VehicleID:   vehicleID.String(),
		Priority:    "high",
		Description: "Brake pads squealing, inspect discs",
		LaborCost:   80,
	}

	mockPool.ExpectQuery("SELECT COUNT(*) FROM customers WHERE id = $1").
		WithArgs(params.CustomerID).WillReturnRows(countRows(1))
	mockPool.ExpectQuery("SELECT COUNT(*) FROM vehicles WHERE id = $1").
		WithArgs(params.VehicleID).WillReturnRows(countRows(1))

	repo.On("CountCreatedSince", ctx, mock.Anything).Return(2, nil)
	created := &types.WorkOrder{ID: uuid.New(), Status: types.StatusPending}
	repo.On("Create", ctx, params, mock.MatchedBy(func(orderNumber string) bool {
		// WO-YYYYMMDD-0003: third order of the day
		return len(orderNumber) == 16 && orderNumber[:3] == "WO-" && orderNumber[11:] == "-0003"
	}), createdBy).Return(created, nil)

	svc := NewServiceImpl(repo, gw, nil, testLogger())
	got, err := svc.Create(ctx, params, createdBy)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	repo.AssertExpectations(t)
}

func TestCreateWorkOrder_UnknownVehicle(t *testing.T) {
	ctx := context.Background()
	gw, mockPool := newTestGateway(t)
	repo := new(MockWorkOrderRepo)

	params := types.CreateWorkOrderParams{
		CustomerID:  uuid.NewString(),
		VehicleID:   uuid.NewString(),
		Priority:    "normal",
		Description: "Oil change",
	}

	mockPool.ExpectQuery("SELECT COUNT(*) FROM customers WHERE id = $1").
		WithArgs(params.CustomerID).WillReturnRows(countRows(1))
	mockPool.ExpectQuery("SELECT COUNT(*) FROM vehicles WHERE id = $1").
		WithArgs(params.VehicleID).WillReturnRows(countRows(0))

	svc := NewServiceImpl(repo, gw, nil, testLogger())
	_, err := svc.Create(ctx, params, uuid.New())

	ve, ok := types.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "vehicle_id")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChangeStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("legal transition notifies", func(t *testing.T) {
		gw, _ := newTestGateway(t)
		repo := new(MockWorkOrderRepo)
		notifier := new(MockNotifier)
		id := uuid.New()

		pending := &types.WorkOrder{ID: id, Status: types.StatusPending}
		inProgress := &types.WorkOrder{ID: id, Status: types.StatusInProgress}
		repo.On("GetByID", ctx, id).Return(pending, nil).Once()
		repo.On("SetStatus", ctx, id, types.StatusInProgress, mock.Anything).Return(nil)
		repo.On("GetByID", ctx, id).Return(inProgress, nil).Once()
		notifier.On("WorkOrderStatusChanged", ctx, inProgress, types.StatusPending, types.StatusInProgress).Return()

		svc := NewServiceImpl(repo, gw, notifier, testLogger())
		got, err := svc.ChangeStatus(ctx, id, types.StatusInProgress)
		require.NoError(t, err)
		assert.Equal(t, types.StatusInProgress, got.Status)
		notifier.AssertExpectations(t)
	})

	t.Run("illegal transition is a conflict", func(t *testing.T) {
		gw, _ := newTestGateway(t)
		repo := new(MockWorkOrderRepo)
		id := uuid.New()

		repo.On("GetByID", ctx, id).Return(&types.WorkOrder{ID: id, Status: types.StatusPending}, nil)

		svc := NewServiceImpl(repo, gw, nil, testLogger())
		_, err := svc.ChangeStatus(ctx, id, types.StatusDelivered)
		assert.ErrorIs(t, err, types.ErrConflict)
		repo.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("terminal states accept nothing", func(t *testing.T) {
		gw, _ := newTestGateway(t)
		repo := new(MockWorkOrderRepo)
		id := uuid.New()

		repo.On("GetByID", ctx, id).Return(&types.WorkOrder{ID: id, Status: types.StatusCancelled}, nil)

		svc := NewServiceImpl(repo, gw, nil, testLogger())
		_, err := svc.ChangeStatus(ctx, id, types.StatusPending)
		assert.ErrorIs(t, err, types.ErrConflict)
	})
}

func TestAddPartGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("closed order refuses parts", func(t *testing.T) {
		gw, _ := newTestGateway(t)
		repo := new(MockWorkOrderRepo)
		id := uuid.New()

		repo.On("GetByID", ctx, id).Return(&types.WorkOrder{ID: id, Status: types.StatusCompleted}, nil)

		svc := NewServiceImpl(repo, gw, nil, testLogger())
		_, err := svc.AddPart(ctx, id, types.AddPartParams{ItemID: uuid.NewString(), Quantity: 1})
		assert.ErrorIs(t, err, types.ErrConflict)
		repo.AssertNotCalled(t, "AddPart", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("non-positive quantity is a field error", func(t *testing.T) {
		gw, _ := newTestGateway(t)
		repo := new(MockWorkOrderRepo)

		svc := NewServiceImpl(repo, gw, nil, testLogger())
		_, err := svc.AddPart(ctx, uuid.New(), types.AddPartParams{ItemID: uuid.NewString(), Quantity: 0})

		ve, ok := types.AsValidationError(err)
		require.True(t, ok)
		assert.Contains(t, ve.Fields, "quantity")
	})
}

func TestDeleteWorkOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("pending order is deleted", func(t *testing.T) {
		gw, _ := newTestGateway(t)
		repo := new(MockWorkOrderRepo)
		id := uuid.New()

		repo.On("GetByID", ctx, id).Return(&types.WorkOrder{ID: id, Status: types.StatusPending}, nil)
		repo.On("Delete", ctx, id).Return(nil)

		svc := NewServiceImpl(repo, gw, nil, testLogger())
		require.NoError(t, svc.Delete(ctx, id))
		repo.AssertExpectations(t)
	})

	t.Run("order with history is refused", func(t *testing.T) {
		gw, _ := newTestGateway(t)
		repo := new(MockWorkOrderRepo)
		id := uuid.New()

		repo.On("GetByID", ctx, id).Return(&types.WorkOrder{ID: id, Status: types.StatusInProgress}, nil)

		svc := NewServiceImpl(repo, gw, nil, testLogger())
		err := svc.Delete(ctx, id)
		assert.ErrorIs(t, err, types.ErrConflict)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("missing order surfaces not found", func(t *testing.T) {
		gw, _ := newTestGateway(t)
		repo := new(MockWorkOrderRepo)
		id := uuid.New()

		repo.On("GetByID", ctx, id).Return(nil, types.ErrNotFound)

		svc := NewServiceImpl(repo, gw, nil, testLogger())
		assert.ErrorIs(t, svc.Delete(ctx, id), types.ErrNotFound)
	})
}
