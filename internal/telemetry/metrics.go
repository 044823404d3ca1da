package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/tenancy"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Organization metrics
	OrganizationsCreatedTotal metric.Int64Counter
	OrganizationsDeletedTotal metric.Int64Counter
	ProvisioningFailuresTotal metric.Int64Counter

	// Project metrics
	ProjectsCreatedTotal metric.Int64Counter
	ProjectsDeletedTotal metric.Int64Counter

	// Membership metrics
	MembershipChangesTotal   metric.Int64Counter
	LastOwnerRejectionsTotal metric.Int64Counter

	// Authorization metrics
	AuthzDenialsTotal metric.Int64Counter

	// Identity metrics
	SignInsTotal       metric.Int64Counter
	SignUpsTotal       metric.Int64Counter
	RateLimitedTotal   metric.Int64Counter
	SessionsSweptTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	// Organization metrics
	m.OrganizationsCreatedTotal, _ = meter.Int64Counter(
		"tenancy.organizations.created.total",
		metric.WithDescription("Total number of organizations created"),
		metric.WithUnit("{organization}"),
	)

	m.OrganizationsDeletedTotal, _ = meter.Int64Counter(
		"tenancy.organizations.deleted.total",
		metric.WithDescription("Total number of organizations deleted"),
		metric.WithUnit("{organization}"),
	)

	m.ProvisioningFailuresTotal, _ = meter.Int64Counter(
		"tenancy.provisioning.failures.total",
		metric.WithDescription("Total number of personal organization provisioning failures swallowed at sign up"),
		metric.WithUnit("{failure}"),
	)

	// Project metrics
	m.ProjectsCreatedTotal, _ = meter.Int64Counter(
		"tenancy.projects.created.total",
		metric.WithDescription("Total number of projects created"),
		metric.WithUnit("{project}"),
	)

	m.ProjectsDeletedTotal, _ = meter.Int64Counter(
		"tenancy.projects.deleted.total",
		metric.WithDescription("Total number of projects deleted"),
		metric.WithUnit("{project}"),
	)

	// Membership metrics
	m.MembershipChangesTotal, _ = meter.Int64Counter(
		"tenancy.memberships.changes.total",
		metric.WithDescription("Total number of membership additions, role changes and removals"),
		metric.WithUnit("{change}"),
	)

	m.LastOwnerRejectionsTotal, _ = meter.Int64Counter(
		"tenancy.memberships.last_owner_rejections.total",
		metric.WithDescription("Total number of membership changes rejected because they would remove the last owner"),
		metric.WithUnit("{rejection}"),
	)

	// Authorization metrics
	m.AuthzDenialsTotal, _ = meter.Int64Counter(
		"tenancy.authz.denials.total",
		metric.WithDescription("Total number of authorization denials"),
		metric.WithUnit("{denial}"),
	)

	// Identity metrics
	m.SignInsTotal, _ = meter.Int64Counter(
		"tenancy.auth.sign_ins.total",
		metric.WithDescription("Total number of sign in attempts"),
		metric.WithUnit("{attempt}"),
	)

	m.SignUpsTotal, _ = meter.Int64Counter(
		"tenancy.auth.sign_ups.total",
		metric.WithDescription("Total number of users registered"),
		metric.WithUnit("{user}"),
	)

	m.RateLimitedTotal, _ = meter.Int64Counter(
		"tenancy.auth.rate_limited.total",
		metric.WithDescription("Total number of requests rejected by the sign in rate limiter"),
		metric.WithUnit("{request}"),
	)

	m.SessionsSweptTotal, _ = meter.Int64Counter(
		"tenancy.sessions.swept.total",
		metric.WithDescription("Total number of expired sessions removed by the sweeper"),
		metric.WithUnit("{session}"),
	)

	return m
}
