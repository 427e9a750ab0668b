package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/deniganda/Cek-KodeRUP/internal/extract"
)

var ErrNotFound = sql.ErrNoRows

// ExtractRepo caches extraction results keyed by image hash so a resubmitted
// document does not pay for the OCR battery twice.
type ExtractRepo struct{ DB *sql.DB }

func NewExtractRepo(db *sql.DB) *ExtractRepo { return &ExtractRepo{DB: db} }

// Find returns the freshest cached result for (imageHash, docType, engine,
// model). If maxAge > 0 and the row is older, returns ErrNotFound so the
// caller re-runs the battery.
func (r *ExtractRepo) Find(ctx context.Context, imageHash, docType, engine, model string, maxAge time.Duration) (extract.Result, error) {
	const q = `
select result_json, created_at
from extractions
where image_hash = $1 and doc_type = $2 and engine = $3 and model = $4
order by created_at desc
limit 1`
	var (
		js []byte
		ts time.Time
	)
	if err := r.DB.QueryRowContext(ctx, q, imageHash, docType, engine, model).Scan(&js, &ts); err != nil {
		return nil, err
	}
	if maxAge > 0 && time.Since(ts) > maxAge {
		return nil, ErrNotFound
	}
	var res extract.Result
	if err := json.Unmarshal(js, &res); err != nil {
		// broken cache row counts as a miss
		return nil, ErrNotFound
	}
	return res, nil
}

// Upsert stores the raw OCR text plus the battery answers for one document.
func (r *ExtractRepo) Upsert(ctx context.Context, chatID int64, imageHash, docType, engine, model, rawText string, res extract.Result) error {
	js, _ := json.Marshal(res)
	const q = `
insert into extractions (chat_id, image_hash, doc_type, engine, model, raw_text, result_json)
values ($1,$2,$3,$4,$5,$6,$7)
on conflict (image_hash, doc_type, engine, model) do update
set chat_id = excluded.chat_id,
    raw_text = excluded.raw_text,
    result_json = excluded.result_json,
    created_at = now()`
	_, err := r.DB.ExecContext(ctx, q, chatID, imageHash, docType, engine, model, rawText, js)
	return err
}

// PurgeOlderThan drops stale cache rows so the table stays small.
func (r *ExtractRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from extractions where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
