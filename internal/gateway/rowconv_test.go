package gateway

import (
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsFloatNumeric(t *testing.T) {
	t.Run("wire-decoded numeric", func(t *testing.T) {
		// NUMERIC(12,2) money columns arrive as pgtype.Numeric, not float64.
		m := pgtype.NewMap()
		var n pgtype.Numeric
		require.NoError(t, m.Scan(pgtype.NumericOID, pgtype.TextFormatCode, []byte("42.50"), &n))

		row := map[string]any{"unit_price": n}
		assert.InDelta(t, 42.5, AsFloat(row, "unit_price"), 1e-9)
	})

	t.Run("constructed numeric", func(t *testing.T) {
		n := pgtype.Numeric{Int: big.NewInt(123456789), Exp: -2, Valid: true}
		row := map[string]any{"total_cost": n}
		assert.InDelta(t, 1234567.89, AsFloat(row, "total_cost"), 1e-6)
	})

	t.Run("null numeric is zero", func(t *testing.T) {
		row := map[string]any{"labor_cost": pgtype.Numeric{}}
		assert.Zero(t, AsFloat(row, "labor_cost"))
	})

	t.Run("plain float passes through", func(t *testing.T) {
		row := map[string]any{"labor_cost": 99.5}
		assert.Equal(t, 99.5, AsFloat(row, "labor_cost"))
	})
}
