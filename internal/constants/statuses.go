package constants

import (
	"database/sql/driver"
	"fmt"
)

// ConnectionStatus is the stored state of a provider connection.
type ConnectionStatus string

const (
	ConnectionActive  ConnectionStatus = "active"
	ConnectionExpired ConnectionStatus = "expired"
	ConnectionRevoked ConnectionStatus = "revoked"
)

func (s ConnectionStatus) String() string { return string(s) }

// Scan implements the sql.Scanner interface
func (s *ConnectionStatus) Scan(src interface{}) error {
	if src == nil {
		*s = ""
		return nil
	}
	switch v := src.(type) {
	case string:
		*s = ConnectionStatus(v)
	case []byte:
		*s = ConnectionStatus(v)
	default:
		return fmt.Errorf("ConnectionStatus: cannot scan type %T", src)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (s ConnectionStatus) Value() (driver.Value, error) { return string(s), nil }

// SyncStatus is the outcome recorded on a sync run. Results returned to callers
// only ever carry success, error or rate_limited; outage is a log-level status.
type SyncStatus string

const (
	SyncSuccess     SyncStatus = "success"
	SyncError       SyncStatus = "error"
	SyncOutage      SyncStatus = "outage"
	SyncRateLimited SyncStatus = "rate_limited"
)

func (s SyncStatus) String() string { return string(s) }

// Scan implements the sql.Scanner interface
func (s *SyncStatus) Scan(src interface{}) error {
	if src == nil {
		*s = ""
		return nil
	}
	switch v := src.(type) {
	case string:
		*s = SyncStatus(v)
	case []byte:
		*s = SyncStatus(v)
	default:
		return fmt.Errorf("SyncStatus: cannot scan type %T", src)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (s SyncStatus) Value() (driver.Value, error) { return string(s), nil }

// BreakMode selects which failure SimulateBreak forces.
type BreakMode string

const (
	BreakExpired BreakMode = "expired"
	BreakRevoked BreakMode = "revoked"
)
