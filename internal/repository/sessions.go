package repository

import (
	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
)

func (r *Repository) CreateSession(session *domain.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, access_token, refresh_token, is_active, expires_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		RETURNING is_active, created_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{session.ID, session.UserID, session.AccessToken, session.RefreshToken, session.ExpiresAt}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&session.IsActive, &session.CreatedAt); err != nil {
		return err
	}

	return nil
}

// InvalidateUserSessions marks every session of the user inactive. It is a
// no-op when the user holds no active sessions, which keeps logout idempotent.
func (r *Repository) InvalidateUserSessions(userID int64) error {
	query := `
		UPDATE sessions
		SET is_active = FALSE, invalidated_at = NOW()
		WHERE user_id = $1 AND is_active = TRUE
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, userID); err != nil {
		return err
	}

	return nil
}

// ExpireStaleSessions deactivates sessions whose expiry has passed. The
// periodic sweep keeps the table honest even when clients never log out.
func (r *Repository) ExpireStaleSessions() (int64, error) {
	query := `
		UPDATE sessions
		SET is_active = FALSE, invalidated_at = NOW()
		WHERE is_active = TRUE AND expires_at <= NOW()
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (r *Repository) CountActiveSessions(userID int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM sessions
		WHERE user_id = $1 AND is_active = TRUE AND expires_at > NOW()
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	var count int
	if err := r.dbpool.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}
