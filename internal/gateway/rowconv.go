package gateway

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Row value accessors. Gateway rows are column→value maps typed by the
// pgx codecs; these helpers centralize the assertions and treat SQL NULL
// as the zero value (or nil for the pointer variants).

func AsString(row map[string]any, col string) string {
	if v, ok := row[col].(string); ok {
		return v
	}
	return ""
}

func AsStringPtr(row map[string]any, col string) *string {
	if v, ok := row[col].(string); ok {
		return &v
	}
	return nil
}

func AsInt(row map[string]any, col string) int {
	switch v := row[col].(type) {
	case int:
		return v
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

func AsIntPtr(row map[string]any, col string) *int {
	if row[col] == nil {
		return nil
	}
	n := AsInt(row, col)
	return &n
}

func AsFloat(row map[string]any, col string) float64 {
	switch v := row[col].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case pgtype.Numeric:
		// NUMERIC columns come off the wire as pgtype.Numeric.
		f, err := v.Float64Value()
		if err != nil || !f.Valid {
			return 0
		}
		return f.Float64
	}
	return 0
}

func AsBool(row map[string]any, col string) bool {
	if v, ok := row[col].(bool); ok {
		return v
	}
	return false
}

func AsTime(row map[string]any, col string) time.Time {
	if v, ok := row[col].(time.Time); ok {
		return v
	}
	return time.Time{}
}

func AsTimePtr(row map[string]any, col string) *time.Time {
	if v, ok := row[col].(time.Time); ok {
		return &v
	}
	return nil
}

func AsUUID(row map[string]any, col string) uuid.UUID {
	switch v := row[col].(type) {
	case uuid.UUID:
		return v
	case [16]byte:
		return uuid.UUID(v)
	case string:
		if id, err := uuid.Parse(v); err == nil {
			return id
		}
	}
	return uuid.Nil
}

func AsUUIDPtr(row map[string]any, col string) *uuid.UUID {
	if row[col] == nil {
		return nil
	}
	id := AsUUID(row, col)
	return &id
}
