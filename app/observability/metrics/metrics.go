package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// Make fields public so they can be accessed from other packages.
type AppMetrics struct {
	LoginAttemptsTotal     metric.Int64Counter
	LoginFailuresTotal     metric.Int64Counter
	LoginRateLimitedTotal  metric.Int64Counter
	AccountLockoutsTotal   metric.Int64Counter
	RoleDenialsTotal       metric.Int64Counter
	ActiveSessions         metric.Int64UpDownCounter
	DbQueryDurationSeconds metric.Float64Histogram
	DbQueryErrorsTotal     metric.Int64Counter
	WorkOrdersCreatedTotal metric.Int64Counter
	LowStockAlertsTotal    metric.Int64Counter
}

var (
	// Global instance of AppMetrics (initialized once)
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() { // Ensure this only runs once
		meter := otel.GetMeterProvider().Meter("WrenchWise")
		var err error
		m := &AppMetrics{}

		m.LoginAttemptsTotal, err = meter.Int64Counter(
			"login_attempts_total",
			metric.WithDescription("Total number of login attempts received"),
			metric.WithUnit("{attempt}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_attempts_total: %v", err)
		}

		m.LoginFailuresTotal, err = meter.Int64Counter(
			"login_failures_total",
			metric.WithDescription("Total number of login attempts rejected on bad credentials"),
			metric.WithUnit("{attempt}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_failures_total: %v", err)
		}

		m.LoginRateLimitedTotal, err = meter.Int64Counter(
			"login_rate_limited_total",
			metric.WithDescription("Total number of login attempts rejected by the throttle"),
			metric.WithUnit("{attempt}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_rate_limited_total: %v", err)
		}

		m.AccountLockoutsTotal, err = meter.Int64Counter(
			"account_lockouts_total",
			metric.WithDescription("Total number of accounts locked after repeated failures"),
			metric.WithUnit("{account}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create account_lockouts_total: %v", err)
		}

		m.RoleDenialsTotal, err = meter.Int64Counter(
			"role_denials_total",
			metric.WithDescription("Total number of requests rejected by role checks"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create role_denials_total: %v", err)
		}

		m.ActiveSessions, err = meter.Int64UpDownCounter(
			"active_sessions",
			metric.WithDescription("Number of live server-side sessions"),
			metric.WithUnit("{session}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create active_sessions: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		m.WorkOrdersCreatedTotal, err = meter.Int64Counter(
			"work_orders_created_total",
			metric.WithDescription("Total number of work orders opened"),
			metric.WithUnit("{work_order}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create work_orders_created_total: %v", err)
		}

		m.LowStockAlertsTotal, err = meter.Int64Counter(
			"low_stock_alerts_total",
			metric.WithDescription("Total number of low-stock notifications raised"),
			metric.WithUnit("{alert}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create low_stock_alerts_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m // Assign to global variable
	})
}

// Get returns the globally initialized AppMetrics instance, or nil when
// InitAppMetrics has not run (tests, tooling). Callers nil-check.
func Get() *AppMetrics {
	return appMetrics
}
