package validation

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wrenchwise/workshop-api/internal/gateway"
)

// ruleKind is the closed set of validation rules. Rules are plain data;
// apply dispatches on the kind, so there is no dynamic method lookup.
type ruleKind int

const (
	ruleRequired ruleKind = iota
	ruleEmail
	ruleMin
	ruleMax
	ruleNumeric
	ruleDate
	rulePhone
	ruleUnique
	ruleExists
	ruleIn
	ruleBetween
	ruleRegex
	ruleCustom
	ruleSometimes
)

type rule struct {
	kind    ruleKind
	field   string
	message string

	length  int             // min / max
	lo, hi  float64         // between
	choices []string        // in
	pattern *regexp.Regexp  // regex
	fn      func(string) bool // custom

	table, column, exclude string // unique / exists
	liveOnly               bool   // unique scoped to rows not soft-deleted
	nested                 []rule // sometimes
}

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\-\s()]{5,19}$`)
)

// Validator accumulates field-level errors over a flat field→value map.
// Rule methods chain and never short-circuit: a field collects one message
// per failing rule. unique and exists run live queries through the query
// gateway when the rules are applied.
type Validator struct {
	data  map[string]string
	rules []rule

	gw *gateway.Gateway

	applied bool
	errors  map[string][]string
	touched map[string]bool
	dbErr   error
}

// New builds a validator over data. gw may be nil when no unique/exists
// rules are used.
func New(data map[string]string, gw *gateway.Gateway) *Validator {
	return &Validator{
		data:    data,
		gw:      gw,
		errors:  make(map[string][]string),
		touched: make(map[string]bool),
	}
}

func (v *Validator) add(r rule) *Validator {
	v.rules = append(v.rules, r)
	v.applied = false
	return v
}

func pick(message []string, fallback string) string {
	if len(message) > 0 && message[0] != "" {
		return message[0]
	}
	return fallback
}

// Required fails when the field is absent or blank.
func (v *Validator) Required(field string, message ...string) *Validator {
	return v.add(rule{kind: ruleRequired, field: field, message: pick(message, field+" is required")})
}

// Email validates format. Like every non-required rule it passes on an
// absent or blank value; combine with Required or Sometimes.
func (v *Validator) Email(field string, message ...string) *Validator {
	return v.add(rule{kind: ruleEmail, field: field, message: pick(message, field+" must be a valid email address")})
}

// Min enforces a minimum length in characters.
func (v *Validator) Min(field string, length int, message ...string) *Validator {
	return v.add(rule{kind: ruleMin, field: field, length: length,
		message: pick(message, fmt.Sprintf("%s must be at least %d characters", field, length))})
}

// Max enforces a maximum length in characters.
func (v *Validator) Max(field string, length int, message ...string) *Validator {
	return v.add(rule{kind: ruleMax, field: field, length: length,
		message: pick(message, fmt.Sprintf("%s must be at most %d characters", field, length))})
}

func (v *Validator) Numeric(field string, message ...string) *Validator {
	return v.add(rule{kind: ruleNumeric, field: field, message: pick(message, field+" must be numeric")})
}

// Date expects ISO 8601 (YYYY-MM-DD).
func (v *Validator) Date(field string, message ...string) *Validator {
	return v.add(rule{kind: ruleDate, field: field, message: pick(message, field+" must be a valid date")})
}

func (v *Validator) Phone(field string, message ...string) *Validator {
	return v.add(rule{kind: rulePhone, field: field, message: pick(message, field+" must be a valid phone number")})
}

// Unique fails when another row of table already holds this value in
// column. excludeID skips one row by id so a record being updated does
// not conflict with itself; pass "" for inserts.
func (v *Validator) Unique(field, table, column, excludeID string, message ...string) *Validator {
	return v.add(rule{kind: ruleUnique, field: field, table: table, column: column, exclude: excludeID,
		message: pick(message, field+" is already taken")})
}

// UniqueLive is Unique restricted to rows where deleted_at IS NULL, for
// tables whose unique indexes are partial over live rows. A value held
// only by a soft-deleted row stays available.
func (v *Validator) UniqueLive(field, table, column, excludeID string, message ...string) *Validator {
	return v.add(rule{kind: ruleUnique, field: field, table: table, column: column, exclude: excludeID,
		liveOnly: true, message: pick(message, field+" is already taken")})
}

// Exists fails unless some row of table holds this value in column.
func (v *Validator) Exists(field, table, column string, message ...string) *Validator {
	return v.add(rule{kind: ruleExists, field: field, table: table, column: column,
		message: pick(message, field+" does not exist")})
}

// In restricts the value to a closed choice list.
func (v *Validator) In(field string, choices []string, message ...string) *Validator {
	return v.add(rule{kind: ruleIn, field: field, choices: choices,
		message: pick(message, field+" must be one of: "+strings.Join(choices, ", "))})
}

// Between enforces an inclusive numeric range.
func (v *Validator) Between(field string, lo, hi float64, message ...string) *Validator {
	return v.add(rule{kind: ruleBetween, field: field, lo: lo, hi: hi,
		message: pick(message, fmt.Sprintf("%s must be between %v and %v", field, lo, hi))})
}

func (v *Validator) Regex(field string, pattern *regexp.Regexp, message ...string) *Validator {
	return v.add(rule{kind: ruleRegex, field: field, pattern: pattern,
		message: pick(message, field+" has an invalid format")})
}

// Custom applies fn to the field value; false fails.
func (v *Validator) Custom(field string, fn func(value string) bool, message ...string) *Validator {
	return v.add(rule{kind: ruleCustom, field: field, fn: fn,
		message: pick(message, field+" is invalid")})
}

// Sometimes applies the rules declared inside fn only when the field is
// present and non-empty. This is the mechanism for optional fields that
// still need format or uniqueness checks when supplied.
func (v *Validator) Sometimes(field string, fn func(v *Validator)) *Validator {
	sub := New(v.data, v.gw)
	fn(sub)
	return v.add(rule{kind: ruleSometimes, field: field, nested: sub.rules})
}

func (v *Validator) value(field string) (string, bool) {
	val, ok := v.data[field]
	return val, ok && strings.TrimSpace(val) != ""
}

func (v *Validator) fail(field, message string) {
	v.errors[field] = append(v.errors[field], message)
}

// apply evaluates all accumulated rules once per rule set.
func (v *Validator) apply(ctx context.Context) {
	if v.applied {
		return
	}
	v.applied = true
	v.run(ctx, v.rules)
}

func (v *Validator) run(ctx context.Context, rules []rule) {
	for _, r := range rules {
		v.touched[r.field] = true
		val, present := v.value(r.field)

		if r.kind == ruleRequired {
			if !present {
				v.fail(r.field, r.message)
			}
			continue
		}
		if r.kind == ruleSometimes {
			if present {
				v.run(ctx, r.nested)
			}
			continue
		}
		if !present {
			continue
		}

		switch r.kind {
		case ruleEmail:
			if !emailPattern.MatchString(val) {
				v.fail(r.field, r.message)
			}
		case ruleMin:
			if utf8.RuneCountInString(val) < r.length {
				v.fail(r.field, r.message)
			}
		case ruleMax:
			if utf8.RuneCountInString(val) > r.length {
				v.fail(r.field, r.message)
			}
		case ruleNumeric:
			if _, err := strconv.ParseFloat(val, 64); err != nil {
				v.fail(r.field, r.message)
			}
		case ruleDate:
			if _, err := time.Parse("2006-01-02", val); err != nil {
				v.fail(r.field, r.message)
			}
		case rulePhone:
			if !phonePattern.MatchString(val) {
				v.fail(r.field, r.message)
			}
		case ruleIn:
			ok := false
			for _, c := range r.choices {
				if val == c {
					ok = true
					break
				}
			}
			if !ok {
				v.fail(r.field, r.message)
			}
		case ruleBetween:
			n, err := strconv.ParseFloat(val, 64)
			if err != nil || n < r.lo || n > r.hi {
				v.fail(r.field, r.message)
			}
		case ruleRegex:
			if !r.pattern.MatchString(val) {
				v.fail(r.field, r.message)
			}
		case ruleCustom:
			if !r.fn(val) {
				v.fail(r.field, r.message)
			}
		case ruleUnique:
			where := r.column + " = ?"
			params := []any{val}
			if r.exclude != "" {
				where += " AND id != ?"
				params = append(params, r.exclude)
			}
			if r.liveOnly {
				where += " AND deleted_at IS NULL"
			}
			taken, err := v.gw.Exists(ctx, r.table, where, params...)
			if err != nil {
				v.dbErr = err
				continue
			}
			if taken {
				v.fail(r.field, r.message)
			}
		case ruleExists:
			found, err := v.gw.Exists(ctx, r.table, r.column+" = ?", val)
			if err != nil {
				v.dbErr = err
				continue
			}
			if !found {
				v.fail(r.field, r.message)
			}
		}
	}
}

// Validate runs all rules. It returns a non-nil error only for
// infrastructure failures (a unique/exists query that could not run);
// field-level failures are reported through IsValid and Errors.
func (v *Validator) Validate(ctx context.Context) error {
	v.apply(ctx)
	return v.dbErr
}

// IsValid is true iff no field accumulated any error.
func (v *Validator) IsValid(ctx context.Context) bool {
	v.apply(ctx)
	return v.dbErr == nil && len(v.errors) == 0
}

// Errors returns the field→messages map. Messages keep rule order.
func (v *Validator) Errors(ctx context.Context) map[string][]string {
	v.apply(ctx)
	return v.errors
}

// ValidatedData returns only the fields that had rules applied and zero
// errors, each HTML-escaped. Fields with errors are silently excluded.
func (v *Validator) ValidatedData(ctx context.Context) map[string]string {
	v.apply(ctx)
	out := make(map[string]string)
	for field := range v.touched {
		if _, failed := v.errors[field]; failed {
			continue
		}
		if val, ok := v.data[field]; ok {
			out[field] = html.EscapeString(val)
		}
	}
	return out
}
