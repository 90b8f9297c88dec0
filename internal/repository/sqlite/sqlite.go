// Package sqlite implements the repository contracts on the local
// sqlite database.
package sqlite

import (
	"log/slog"
	"time"

	"github.com/talentdesk/backoffice/internal/db"
	"github.com/talentdesk/backoffice/pkg/repository"
)

type SQLiteRepo struct {
	conn   *db.DB
	logger *slog.Logger
}

var _ repository.StaffRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteRepo{conn: conn, logger: logger}
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}
