package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dealgrid/playrun/pkg/persistence"
	"github.com/dealgrid/playrun/pkg/persistence/file"
	"github.com/dealgrid/playrun/pkg/persistence/postgresql"
)

// NewPersistence selects a storage backend from the database URL scheme.
// postgres:// and postgresql:// URLs get the PostgreSQL backend; anything
// else is treated as a directory path for the file backend.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}

		return p, nil
	}

	return file.NewPersistence(databaseURL), nil
}
