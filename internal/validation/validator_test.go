package validation

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrenchwise/workshop-api/internal/gateway"
)

func newTestGateway(t *testing.T) (*gateway.Gateway, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return gateway.New(mockPool, slog.New(slog.NewTextHandler(io.Discard, nil))), mockPool
}

func TestRulesAccumulatePerField(t *testing.T) {
	ctx := context.Background()
	v := New(map[string]string{"email": "x"}, nil)
	v.Email("email").Min("email", 5)

	assert.False(t, v.IsValid(ctx))
	assert.Len(t, v.Errors(ctx)["email"], 2, "each failing rule appends its own message")
}

func TestRequiredAndBlankValues(t *testing.T) {
	ctx := context.Background()
	v := New(map[string]string{"name": "  ", "phone": ""}, nil)
	v.Required("name").Required("phone").Required("missing")

	errs := v.Errors(ctx)
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "phone")
	assert.Contains(t, errs, "missing")
}

func TestNonRequiredRulesSkipAbsentFields(t *testing.T) {
	ctx := context.Background()
	v := New(map[string]string{}, nil)
	v.Email("email").Numeric("year").Phone("phone")

	assert.True(t, v.IsValid(ctx))
}

func TestSometimesAppliesOnlyWhenPresent(t *testing.T) {
	ctx := context.Background()

	v := New(map[string]string{"email": ""}, nil)
	v.Sometimes("email", func(v *Validator) { v.Email("email") })
	assert.True(t, v.IsValid(ctx), "blank optional field skips nested rules")

	v = New(map[string]string{"email": "not-an-email"}, nil)
	v.Sometimes("email", func(v *Validator) { v.Email("email") })
	assert.False(t, v.IsValid(ctx))
}

func TestBetweenAndIn(t *testing.T) {
	ctx := context.Background()
	v := New(map[string]string{
		"labor_cost": "1000000000",
		"priority":   "whenever",
	}, nil)
	v.Between("labor_cost", 0, 999_999_999).In("priority", []string{"low", "normal", "high", "urgent"})

	errs := v.Errors(ctx)
	assert.Contains(t, errs, "labor_cost")
	assert.Contains(t, errs, "priority")
}

func TestUniqueQueriesGateway(t *testing.T) {
	ctx := context.Background()

	t.Run("existing phone on another customer fails", func(t *testing.T) {
		gw, mock := newTestGateway(t)
		mock.ExpectQuery("SELECT COUNT(*) FROM customers WHERE phone = $1").
			WithArgs("0812345678").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

		v := New(map[string]string{"phone": "0812345678"}, gw)
		v.Unique("phone", "customers", "phone", "")

		assert.False(t, v.IsValid(ctx))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("same record excluded from its own uniqueness check", func(t *testing.T) {
		gw, mock := newTestGateway(t)
		mock.ExpectQuery("SELECT COUNT(*) FROM customers WHERE phone = $1 AND id != $2").
			WithArgs("0812345678", "c1").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

		v := New(map[string]string{"phone": "0812345678"}, gw)
		v.Unique("phone", "customers", "phone", "c1")

		assert.True(t, v.IsValid(ctx))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("live uniqueness ignores soft-deleted rows", func(t *testing.T) {
		gw, mock := newTestGateway(t)
		mock.ExpectQuery("SELECT COUNT(*) FROM customers WHERE phone = $1 AND deleted_at IS NULL").
			WithArgs("0812345678").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

		v := New(map[string]string{"phone": "0812345678"}, gw)
		v.UniqueLive("phone", "customers", "phone", "")

		assert.True(t, v.IsValid(ctx))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("live uniqueness with excluded id", func(t *testing.T) {
		gw, mock := newTestGateway(t)
		mock.ExpectQuery("SELECT COUNT(*) FROM customers WHERE phone = $1 AND id != $2 AND deleted_at IS NULL").
			WithArgs("0812345678", "c1").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

		v := New(map[string]string{"phone": "0812345678"}, gw)
		v.UniqueLive("phone", "customers", "phone", "c1")

		assert.False(t, v.IsValid(ctx))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestExistsQueriesGateway(t *testing.T) {
	ctx := context.Background()
	gw, mock := newTestGateway(t)
	mock.ExpectQuery("SELECT COUNT(*) FROM customers WHERE id = $1").
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	v := New(map[string]string{"customer_id": "nope"}, gw)
	v.Exists("customer_id", "customers", "id")

	assert.False(t, v.IsValid(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidatedDataExcludesFailedFields(t *testing.T) {
	ctx := context.Background()
	v := New(map[string]string{
		"name":  "Jane <script>",
		"email": "broken",
	}, nil)
	v.Required("name").Email("email")

	data := v.ValidatedData(ctx)
	assert.NotContains(t, data, "email", "fields with any error are silently excluded")
	assert.Equal(t, "Jane &lt;script&gt;", data["name"], "safe output is HTML-escaped")
}

func TestValidatedDataOnlyCoversTouchedFields(t *testing.T) {
	ctx := context.Background()
	v := New(map[string]string{"name": "Jane", "stray": "x"}, nil)
	v.Required("name")

	data := v.ValidatedData(ctx)
	assert.Contains(t, data, "name")
	assert.NotContains(t, data, "stray")
}

func TestCompositeCustomerValidator(t *testing.T) {
	ctx := context.Background()
	gw, mock := newTestGateway(t)
	mock.ExpectQuery("SELECT COUNT(*) FROM customers WHERE phone = $1").
		WithArgs("0812345678").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	v := Customer(map[string]string{
		"name":  "Jane Doe",
		"phone": "0812345678",
	}, gw, "")

	assert.True(t, v.IsValid(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}
