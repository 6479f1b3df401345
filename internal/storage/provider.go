package storage

import "textoverlay/internal/ports"

// Provider is the storage contract used by the API and the CLI.
// It is an alias to ports.StorageProvider to keep call-sites simple.
type Provider = ports.StorageProvider
