package commands

import (
	"errors"

	"github.com/robalyx/presencewatch/internal/database"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

var (
	ErrNameRequired    = errors.New("NAME argument required")
	ErrInvalidGuildID  = errors.New("invalid guild ID")
	ErrGuildIDRequired = errors.New("GUILD_ID argument required")
)

// CLIDependencies holds the common dependencies needed by CLI commands.
type CLIDependencies struct {
	DB       database.Client
	Migrator *migrate.Migrator
	Logger   *zap.Logger
}
