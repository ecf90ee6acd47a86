package ports

import (
	"context"

	"courier-sync/internal/features/reconcile/domain"
	trackingdomain "courier-sync/internal/features/tracking/domain"
)

// TenantStore reads tenants and their courier configuration.
type TenantStore interface {
	// ListTenants returns every active tenant.
	ListTenants(ctx context.Context) ([]domain.Tenant, error)
	// GetTenant returns one active tenant or domain.ErrTenantNotFound.
	GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error)
	// ListCourierServices returns every courier config of a tenant, enabled or not.
	ListCourierServices(ctx context.Context, tenantID string) ([]trackingdomain.ProviderConfig, error)
}

// OrderStore reads and partially updates tenant orders.
type OrderStore interface {
	// FindEligibleOrders returns up to limit orders with a consignment, excluding the given
	// statuses, stalest sync first.
	FindEligibleOrders(ctx context.Context, tenantID string, excluded []domain.OrderStatus, limit int) ([]domain.Order, error)
	// UpdateCourierInfo applies a partial update and returns the updated order.
	UpdateCourierInfo(ctx context.Context, tenantID, orderID string, update domain.CourierUpdate) (*domain.Order, error)
}

// Notifier publishes order change events on the tenant channel.
type Notifier interface {
	Publish(ctx context.Context, tenantID string, event domain.OrderChangedEvent) error
}

// ReportRepository keeps the latest run report.
type ReportRepository interface {
	Save(ctx context.Context, report *domain.RunResult) error
	// Latest returns domain.ErrReportNotFound when nothing was saved.
	Latest(ctx context.Context) (*domain.RunResult, error)
}

// RunService is the primary port used by the trigger interfaces.
type RunService interface {
	RunOnce(ctx context.Context, opts domain.RunOptions) (*domain.RunResult, error)
	LastReport(ctx context.Context) (*domain.RunResult, error)
}
