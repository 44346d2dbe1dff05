package postgres

import (
	"context"
	"fmt"
)

// CursorRepo implements ports.CursorRepository. Admission and cursor
// advance happen in one upsert, so two concurrent events for the same
// aggregate serialize on the row and resolve consistently.
type CursorRepo struct {
	pool Pool
}

// NewCursorRepo creates a new CursorRepo.
func NewCursorRepo(pool Pool) *CursorRepo {
	return &CursorRepo{pool: pool}
}

// Admit admits the event iff its priority is >= the aggregate's
// last-applied priority, advancing the cursor when admitted. Equal
// priorities are admitted so sibling terminal events both land.
func (r *CursorRepo) Admit(ctx context.Context, aggregateID string, priority int) (bool, error) {
	query := `INSERT INTO aggregate_cursors (aggregate_id, last_priority, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (aggregate_id) DO UPDATE
		SET last_priority = EXCLUDED.last_priority, updated_at = NOW()
		WHERE aggregate_cursors.last_priority <= EXCLUDED.last_priority`

	tag, err := r.pool.Exec(ctx, query, aggregateID, priority)
	if err != nil {
		return false, fmt.Errorf("admit event for aggregate: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
