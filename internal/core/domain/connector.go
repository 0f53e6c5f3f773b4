package domain

import "time"

// Connector represents a configured source integration.
// Its identity is immutable; configuration may be changed by administrators.
type Connector struct {
	// ID is the unique identifier for the connector.
	ID string

	// Source identifies the connector implementation (e.g., "box", "github").
	Source string

	// Name is the human-readable name for this connector.
	Name string

	// Config contains source-specific configuration, such as folder IDs
	// or repository filters.
	Config map[string]string

	// RefreshInterval defines how often incremental indexing should run.
	RefreshInterval time.Duration

	// PruneInterval defines how often pruning should run.
	PruneInterval time.Duration

	// Schedule is an optional cron expression overriding RefreshInterval.
	// Empty means interval-based scheduling.
	Schedule string

	// IndexingStart, when set, excludes items modified before it.
	IndexingStart *time.Time

	// Disabled stops all scheduling for this connector's pairs.
	Disabled bool

	// CreatedAt is when the connector was created.
	CreatedAt time.Time

	// UpdatedAt is when the connector was last updated.
	UpdatedAt time.Time
}

// CCPairStatus describes the aggregate health of a connector-credential pair.
type CCPairStatus string

const (
	// CCPairActive means the pair is healthy and schedulable.
	CCPairActive CCPairStatus = "ACTIVE"
	// CCPairPaused means an administrator suspended the pair.
	CCPairPaused CCPairStatus = "PAUSED"
	// CCPairFailed means the pair exceeded the consecutive-failure threshold.
	CCPairFailed CCPairStatus = "FAILED"
)

// CCPair binds one Connector to one Credential. It is the unit of
// scheduling: every sync or prune cycle operates on exactly one pair.
type CCPair struct {
	// ID is the unique identifier for the pair.
	ID string

	// ConnectorID references the Connector.
	ConnectorID string

	// CredentialID references the Credential.
	CredentialID string

	// Status is the pair's aggregate health.
	Status CCPairStatus

	// LastSuccessfulIndexTime is when the last successful sync completed.
	// Zero means no successful sync has happened yet; the next run is a
	// full load rather than an incremental poll.
	LastSuccessfulIndexTime time.Time

	// LastAttemptStatus mirrors the most recent index attempt's status.
	LastAttemptStatus AttemptStatus

	// TotalDocsIndexed is the cumulative indexed-document counter.
	TotalDocsIndexed int

	// FailureStreak counts consecutive failed attempts. Reset on success.
	FailureStreak int

	// CreatedAt is when the pair was created.
	CreatedAt time.Time

	// UpdatedAt is when the pair was last updated.
	UpdatedAt time.Time
}

// Schedulable reports whether the pair may be picked up by the scheduler.
// Paused and failed pairs require administrator action to resume.
func (p *CCPair) Schedulable(connector *Connector) bool {
	if connector == nil || connector.Disabled {
		return false
	}
	return p.Status == CCPairActive
}

// SyncDue reports whether an incremental sync is due at now, given the
// connector's refresh interval.
func (p *CCPair) SyncDue(connector *Connector, now time.Time) bool {
	if !p.Schedulable(connector) {
		return false
	}
	if p.LastSuccessfulIndexTime.IsZero() {
		return true
	}
	return now.Sub(p.LastSuccessfulIndexTime) >= connector.RefreshInterval
}
