package exchangelog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
)

// PostgresRecorder persists exchanges to the exchanges table.
type PostgresRecorder struct {
	db  *pgxpool.Pool
	log logger.Logger
}

// NewPostgresRecorder creates a recorder over an existing pool. The
// schema must already be migrated, see MigrationManager.
func NewPostgresRecorder(db *pgxpool.Pool, log logger.Logger) *PostgresRecorder {
	return &PostgresRecorder{db: db, log: log}
}

// Record inserts one exchange row.
func (r *PostgresRecorder) Record(ctx context.Context, ex Exchange) error {
	const query = `
		INSERT INTO exchanges (id, user_id, username, full_name, intent, question, answer, asked_at, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		uuid.New(),
		ex.UserID,
		ex.Username,
		ex.FullName,
		ex.Intent,
		ex.Question,
		ex.Answer,
		ex.AskedAt,
		ex.AnsweredAt,
	)
	if err != nil {
		r.log.Error("failed to insert exchange",
			logger.UserIDField(ex.UserID),
			logger.ErrorField(err))
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}
