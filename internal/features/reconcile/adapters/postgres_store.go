package adapters

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"courier-sync/internal/features/reconcile/domain"
	trackingdomain "courier-sync/internal/features/tracking/domain"

	"github.com/lib/pq"
)

// PostgresStore implements ports.TenantStore and ports.OrderStore over the shared tenant database.
// Every query is scoped by tenant_id.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens and verifies a lib/pq connection pool.
func OpenPostgres(ctx context.Context, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// ListTenants implements ports.TenantStore.
func (s *PostgresStore) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, active, COALESCE(database_ref, '')
		FROM tenants
		WHERE active = TRUE
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w: %v", domain.ErrTenantStoreUnavailable, err)
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Active, &t.DatabaseRef); err != nil {
			return nil, fmt.Errorf("scan tenant: %w: %v", domain.ErrTenantStoreUnavailable, err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tenants: %w: %v", domain.ErrTenantStoreUnavailable, err)
	}
	return tenants, nil
}

// GetTenant implements ports.TenantStore.
func (s *PostgresStore) GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := s.db.QueryRowContext(ctx, `
		SELECT id, active, COALESCE(database_ref, '')
		FROM tenants
		WHERE id = $1 AND active = TRUE`, tenantID).Scan(&t.ID, &t.Active, &t.DatabaseRef)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTenantNotFound, tenantID)
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant %s: %w: %v", tenantID, domain.ErrTenantStoreUnavailable, err)
	}
	return &t, nil
}

// ListCourierServices implements ports.TenantStore.
func (s *PostgresStore) ListCourierServices(ctx context.Context, tenantID string) ([]trackingdomain.ProviderConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider_id, COALESCE(display_name, ''), enabled, COALESCE(credentials, '{}'::jsonb)::text
		FROM courier_services
		WHERE tenant_id = $1
		ORDER BY provider_id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list courier services of %s: %w: %v", tenantID, domain.ErrTenantStoreUnavailable, err)
	}
	defer rows.Close()

	var configs []trackingdomain.ProviderConfig
	for rows.Next() {
		var (
			cfg   trackingdomain.ProviderConfig
			creds string
		)
		if err := rows.Scan(&cfg.ProviderID, &cfg.DisplayName, &cfg.Enabled, &creds); err != nil {
			return nil, fmt.Errorf("scan courier service: %w: %v", domain.ErrTenantStoreUnavailable, err)
		}
		if err := json.Unmarshal([]byte(creds), &cfg.Credentials); err != nil {
			return nil, fmt.Errorf("decode credentials of %s/%s: %w", tenantID, cfg.ProviderID, err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list courier services of %s: %w: %v", tenantID, domain.ErrTenantStoreUnavailable, err)
	}
	return configs, nil
}

// FindEligibleOrders implements ports.OrderStore with the domain eligibility predicate.
// Orders never attempted come first, then the least recently attempted.
func (s *PostgresStore) FindEligibleOrders(ctx context.Context, tenantID string, excluded []domain.OrderStatus, limit int) ([]domain.Order, error) {
	statuses := make([]string, len(excluded))
	for i, st := range excluded {
		statuses[i] = strings.ToLower(strings.TrimSpace(string(st)))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, COALESCE(customer_name, ''), COALESCE(customer_phone, ''), courier::text
		FROM orders
		WHERE tenant_id = $1
		  AND btrim(COALESCE(courier->>'consignment_id', '')) <> ''
		  AND btrim(COALESCE(courier->>'provider_id', '')) <> ''
		  AND lower(btrim(status)) <> ALL($2)
		ORDER BY COALESCE((courier->>'last_attempted_at')::timestamptz, (courier->>'last_synced_at')::timestamptz) ASC NULLS FIRST, id
		LIMIT $3`, tenantID, pq.Array(statuses), limit)
	if err != nil {
		return nil, fmt.Errorf("find eligible orders of %s: %w: %v", tenantID, domain.ErrTenantStoreUnavailable, err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows, tenantID)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find eligible orders of %s: %w: %v", tenantID, domain.ErrTenantStoreUnavailable, err)
	}
	return orders, nil
}

// UpdateCourierInfo implements ports.OrderStore. The courier record is merged with || so
// fields absent from the update keep their value.
func (s *PostgresStore) UpdateCourierInfo(ctx context.Context, tenantID, orderID string, update domain.CourierUpdate) (*domain.Order, error) {
	patch, err := courierPatch(update)
	if err != nil {
		return nil, err
	}

	var orderStatus sql.NullString
	if update.OrderStatus != nil {
		orderStatus = sql.NullString{String: string(*update.OrderStatus), Valid: true}
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE orders
		SET courier = COALESCE(courier, '{}'::jsonb) || $3::jsonb,
		    status = COALESCE($4, status),
		    updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
		RETURNING id, status, COALESCE(customer_name, ''), COALESCE(customer_phone, ''), courier::text`,
		tenantID, orderID, patch, orderStatus)

	o, err := scanOrder(row, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrOrderNotFound, tenantID, orderID)
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// courierPatch renders the set fields of an update as a JSON object.
func courierPatch(update domain.CourierUpdate) (string, error) {
	patch := map[string]any{}
	if !update.LastSyncedAt.IsZero() {
		patch["last_synced_at"] = update.LastSyncedAt.UTC()
	}
	if !update.AttemptedAt.IsZero() {
		patch["last_attempted_at"] = update.AttemptedAt.UTC()
	}
	if update.DeliveryStatus != nil {
		patch["delivery_status"] = *update.DeliveryStatus
	}
	if update.ConsignmentID != nil {
		patch["consignment_id"] = *update.ConsignmentID
	}
	if update.RawResponse != nil {
		if json.Valid(update.RawResponse) {
			patch["raw_response"] = update.RawResponse
		} else {
			patch["raw_response"] = string(update.RawResponse)
		}
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return "", fmt.Errorf("encode courier update: %w", err)
	}
	return string(data), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner, tenantID string) (*domain.Order, error) {
	var (
		o       domain.Order
		status  string
		courier sql.NullString
	)
	if err := row.Scan(&o.ID, &status, &o.Customer.Name, &o.Customer.Phone, &courier); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w: %v", domain.ErrTenantStoreUnavailable, err)
	}
	o.TenantID = tenantID
	o.Status = domain.OrderStatus(status)
	if courier.Valid && courier.String != "" {
		var info domain.CourierInfo
		if err := json.Unmarshal([]byte(courier.String), &info); err != nil {
			return nil, fmt.Errorf("decode courier of order %s: %w", o.ID, err)
		}
		o.Courier = &info
	}
	return &o, nil
}
