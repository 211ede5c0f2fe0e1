package health

import "context"

// DBPinger checks the index-state cache connection.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// RemoteChecker checks the remote visual search backend.
type RemoteChecker interface {
	HealthCheck(ctx context.Context) error
}
