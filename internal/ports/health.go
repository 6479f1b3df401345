package ports

import "context"

// Probe checks one dependency for the deep health endpoint. A non-empty
// detail is reported next to the status.
type Probe func(ctx context.Context) (detail string, err error)
