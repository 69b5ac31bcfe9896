package fraud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrResultNotFound is returned when no verdict exists for a session
var ErrResultNotFound = errors.New("analysis result not found")

// Repository persists analysis verdicts to Postgres for audit and the manual
// review queue. Raw transcripts and audio are never written here, only the
// derived verdict.
type Repository struct {
	db *pgxpool.Pool
}

var _ ResultRepository = (*Repository)(nil)

// NewRepository creates a new fraud result repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveResult stores one verdict
func (r *Repository) SaveResult(ctx context.Context, session *SessionData, result *FraudAnalysisResult) error {
	flagsJSON, err := json.Marshal(result.Flags)
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}
	checksJSON, err := json.Marshal(result.Checks)
	if err != nil {
		return fmt.Errorf("marshal checks: %w", err)
	}

	query := `
		INSERT INTO fraud_results (
			id, session_id, business_id, customer_hash, risk_score,
			recommendation, confidence, flags, checks, analyzed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.Exec(ctx, query,
		uuid.New(),
		result.SessionID,
		session.BusinessID,
		session.CustomerHash,
		result.OverallRiskScore,
		result.Recommendation,
		result.Confidence,
		flagsJSON,
		checksJSON,
		result.AnalyzedAt,
	)

	return err
}

// GetResultBySession retrieves the latest verdict for a session
func (r *Repository) GetResultBySession(ctx context.Context, sessionID string) (*StoredResult, error) {
	query := `
		SELECT id, session_id, business_id, customer_hash, risk_score,
		       recommendation, confidence, flags, checks, analyzed_at
		FROM fraud_results
		WHERE session_id = $1
		ORDER BY analyzed_at DESC
		LIMIT 1
	`

	stored, err := scanResult(r.db.QueryRow(ctx, query, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrResultNotFound
	}
	return stored, err
}

// ListPendingReview retrieves verdicts flagged for manual review, highest risk
// first.
func (r *Repository) ListPendingReview(ctx context.Context, limit, offset int) ([]*StoredResult, error) {
	query := `
		SELECT id, session_id, business_id, customer_hash, risk_score,
		       recommendation, confidence, flags, checks, analyzed_at
		FROM fraud_results
		WHERE recommendation = 'review'
		ORDER BY risk_score DESC, analyzed_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*StoredResult, 0)
	for rows.Next() {
		stored, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, stored)
	}

	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*StoredResult, error) {
	var stored StoredResult
	var flagsJSON, checksJSON []byte

	err := row.Scan(
		&stored.ID,
		&stored.SessionID,
		&stored.BusinessID,
		&stored.CustomerHash,
		&stored.RiskScore,
		&stored.Recommendation,
		&stored.Confidence,
		&flagsJSON,
		&checksJSON,
		&stored.AnalyzedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(flagsJSON, &stored.Flags); err != nil {
		stored.Flags = nil
	}
	if err := json.Unmarshal(checksJSON, &stored.Checks); err != nil {
		stored.Checks = nil
	}

	return &stored, nil
}
