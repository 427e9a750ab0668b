package store

import (
	"context"
	"database/sql"
)

// SubmissionRepo is an audit log of generated prefill links, one row per
// completed conversation.
type SubmissionRepo struct{ DB *sql.DB }

func NewSubmissionRepo(db *sql.DB) *SubmissionRepo { return &SubmissionRepo{DB: db} }

func (r *SubmissionRepo) Insert(ctx context.Context, chatID int64, docType, institution, letterNumber, formURL string) error {
	const q = `
insert into submissions (chat_id, document_type, institution, letter_number, form_url)
values ($1,$2,$3,$4,$5)`
	_, err := r.DB.ExecContext(ctx, q, chatID, docType, institution, letterNumber, formURL)
	return err
}

// CountByChat is used by /start to show how many links a chat has generated.
func (r *SubmissionRepo) CountByChat(ctx context.Context, chatID int64) (int64, error) {
	const q = `select count(*) from submissions where chat_id = $1`
	var n int64
	if err := r.DB.QueryRowContext(ctx, q, chatID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
