package domain

import "context"

// Database produces a local backup artifact for a configured database.
// Engines without a native differential dump may treat the kind as advisory
// and fall back to a full dump.
type Database interface {
	Dump(ctx context.Context, kind BackupKind, outputPath string) error
	Name() string
	Engine() string
	Ping(ctx context.Context) error
}
