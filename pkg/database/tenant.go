package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoTenant is returned when a tenant scope is requested for uuid.Nil.
var ErrNoTenant = errors.New("tenant ID is required for a tenant scope")

const resetTimeout = 5 * time.Second

// TenantScope wraps a connection with tenant context and ensures cleanup.
// The connection has app.current_tenant_id set for RLS policy evaluation.
type TenantScope struct {
	Conn     *pgxpool.Conn
	TenantID uuid.UUID
}

// Close resets tenant context and releases the connection to the pool.
// This MUST be called to prevent tenant context from leaking to the next request.
// A connection whose reset fails is closed instead of being returned to the pool.
func (s *TenantScope) Close() {
	if s.Conn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), resetTimeout)
	defer cancel()

	if _, err := s.Conn.Exec(ctx, "RESET app.current_tenant_id"); err != nil {
		_ = s.Conn.Conn().Close(ctx)
	}
	s.Conn.Release()
	s.Conn = nil
}

// WithTenant acquires a connection and sets the tenant context for RLS.
// The returned TenantScope MUST be closed with defer scope.Close().
func (db *DB) WithTenant(ctx context.Context, tenantID uuid.UUID) (*TenantScope, error) {
	if tenantID == uuid.Nil {
		return nil, ErrNoTenant
	}

	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	_, err = conn.Exec(ctx, "SELECT set_config('app.current_tenant_id', $1, false)", tenantID.String())
	if err != nil {
		conn.Release()
		return nil, err
	}

	return &TenantScope{Conn: conn, TenantID: tenantID}, nil
}
