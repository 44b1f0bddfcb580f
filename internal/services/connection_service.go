package services

import (
	"context"
	"fmt"
	"time"

	"summer-miles/ledger/internal/constants"
	"summer-miles/ledger/internal/db/repositories"
	gormModels "summer-miles/ledger/internal/models/gorm"
	"summer-miles/ledger/internal/providers"

	"github.com/google/uuid"
)

// ConnectionDetails is the caller's view of a connection, with lazy expiry applied.
type ConnectionDetails struct {
	Provider      string                     `json:"provider"`
	Status        constants.ConnectionStatus `json:"status"`
	ExpiresAt     time.Time                  `json:"expires_at"`
	LastRefreshAt *time.Time                 `json:"last_refresh_at"`
}

// ProviderConditions are the simulated network flags consulted before each sync.
type ProviderConditions struct {
	Provider  string `json:"provider"`
	Outage    bool   `json:"outage"`
	RateLimit bool   `json:"rate_limit"`
	Delay     bool   `json:"delay"`
}

// ConnectionService drives the per-(user, provider) token state machine.
type ConnectionService struct {
	store    *repositories.Store
	registry *providers.Registry
	tokenTTL time.Duration
	clock    Clock
}

func NewConnectionService(store *repositories.Store, registry *providers.Registry, tokenTTL time.Duration) *ConnectionService {
	return &ConnectionService{store: store, registry: registry, tokenTTL: tokenTTL}
}

func (s *ConnectionService) WithClock(clock Clock) *ConnectionService {
	s.clock = clock
	return s
}

// Supports reports whether provider can be connected and synced.
func (s *ConnectionService) Supports(provider string) bool {
	_, ok := s.registry.Get(provider)
	return ok
}

// GetConnectionDetails returns the connection, creating an active one on first use.
// An active connection past its expiry is reported as expired without being rewritten.
func (s *ConnectionService) GetConnectionDetails(ctx context.Context, userID, provider string) (ConnectionDetails, error) {
	conn, err := s.ensure(ctx, userID, provider)
	if err != nil {
		return ConnectionDetails{}, err
	}
	return s.details(conn), nil
}

// RefreshSimulatedToken extends the token. It fails while the provider is flagged as down and
// never revives a revoked connection.
func (s *ConnectionService) RefreshSimulatedToken(ctx context.Context, userID, provider string) (ConnectionDetails, error) {
	conn, err := s.ensure(ctx, userID, provider)
	if err != nil {
		return ConnectionDetails{}, err
	}
	if conn.Status == constants.ConnectionRevoked {
		return s.details(conn), ErrConnectionRevoked
	}

	cond, err := s.GetConditions(ctx, provider)
	if err != nil {
		return ConnectionDetails{}, err
	}
	if cond.Outage {
		return s.details(conn), ErrProviderOutage
	}

	now := s.clock.now()
	conn.Status = constants.ConnectionActive
	conn.ExpiresAt = now.Add(s.tokenTTL)
	conn.LastRefreshAt = &now
	if err := repositories.NewConnectionRepo(s.store.DB()).Save(ctx, conn); err != nil {
		return ConnectionDetails{}, fmt.Errorf("save connection: %w", err)
	}
	return s.details(conn), nil
}

// SimulateBreak forces the connection into the expired or revoked state.
func (s *ConnectionService) SimulateBreak(ctx context.Context, userID, provider string, mode constants.BreakMode) (ConnectionDetails, error) {
	conn, err := s.ensure(ctx, userID, provider)
	if err != nil {
		return ConnectionDetails{}, err
	}

	now := s.clock.now()
	switch mode {
	case constants.BreakExpired:
		conn.Status = constants.ConnectionExpired
		conn.ExpiresAt = now.Add(-time.Hour)
	case constants.BreakRevoked:
		conn.Status = constants.ConnectionRevoked
		conn.ExpiresAt = now.Add(24 * time.Hour)
	default:
		return ConnectionDetails{}, fmt.Errorf("%w: unknown break mode %q", ErrInvalidInput, mode)
	}

	if err := repositories.NewConnectionRepo(s.store.DB()).Save(ctx, conn); err != nil {
		return ConnectionDetails{}, fmt.Errorf("save connection: %w", err)
	}
	return s.details(conn), nil
}

// Reconnect is the explicit user action that restores a connection, including a revoked one.
func (s *ConnectionService) Reconnect(ctx context.Context, userID, provider string) (ConnectionDetails, error) {
	conn, err := s.ensure(ctx, userID, provider)
	if err != nil {
		return ConnectionDetails{}, err
	}

	now := s.clock.now()
	conn.Status = constants.ConnectionActive
	conn.ExpiresAt = now.Add(s.tokenTTL)
	conn.LastRefreshAt = &now
	if err := repositories.NewConnectionRepo(s.store.DB()).Save(ctx, conn); err != nil {
		return ConnectionDetails{}, fmt.Errorf("save connection: %w", err)
	}
	return s.details(conn), nil
}

func (s *ConnectionService) GetConditions(ctx context.Context, provider string) (ProviderConditions, error) {
	cond, err := repositories.NewConnectionRepo(s.store.DB()).GetCondition(ctx, provider)
	if err != nil {
		return ProviderConditions{}, fmt.Errorf("load provider conditions: %w", err)
	}
	return ProviderConditions{
		Provider:  provider,
		Outage:    cond.Outage,
		RateLimit: cond.RateLimit,
		Delay:     cond.Delay,
	}, nil
}

func (s *ConnectionService) SetConditions(ctx context.Context, conditions ProviderConditions) (ProviderConditions, error) {
	if !s.Supports(conditions.Provider) {
		return ProviderConditions{}, ErrUnsupportedProvider
	}
	err := repositories.NewConnectionRepo(s.store.DB()).SetCondition(ctx, &gormModels.ProviderCondition{
		Provider:  conditions.Provider,
		Outage:    conditions.Outage,
		RateLimit: conditions.RateLimit,
		Delay:     conditions.Delay,
		UpdatedAt: s.clock.now(),
	})
	if err != nil {
		return ProviderConditions{}, fmt.Errorf("save provider conditions: %w", err)
	}
	return conditions, nil
}

func (s *ConnectionService) ensure(ctx context.Context, userID, provider string) (*gormModels.ProviderConnection, error) {
	if !s.Supports(provider) {
		return nil, ErrUnsupportedProvider
	}

	repo := repositories.NewConnectionRepo(s.store.DB())
	conn, err := repo.Get(ctx, userID, provider)
	if err != nil {
		return nil, fmt.Errorf("load connection: %w", err)
	}
	if conn != nil {
		return conn, nil
	}

	conn, err = repo.Create(ctx, &gormModels.ProviderConnection{
		ID:        uuid.NewString(),
		UserID:    userID,
		Provider:  provider,
		Status:    constants.ConnectionActive,
		ExpiresAt: s.clock.now().Add(s.tokenTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}
	return conn, nil
}

func (s *ConnectionService) details(conn *gormModels.ProviderConnection) ConnectionDetails {
	status := conn.Status
	if status == constants.ConnectionActive && conn.ExpiresAt.Before(s.clock.now()) {
		status = constants.ConnectionExpired
	}
	return ConnectionDetails{
		Provider:      conn.Provider,
		Status:        status,
		ExpiresAt:     conn.ExpiresAt.UTC(),
		LastRefreshAt: conn.LastRefreshAt,
	}
}
