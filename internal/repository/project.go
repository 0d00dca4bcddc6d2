package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/splitroute/splitroute/internal/model"
)

// Common errors for project repository operations.
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrCodeExists      = errors.New("short code already exists")
)

// CreateProject inserts a new project. Variants and rules are expected
// to be normalized already.
func (r *Repository) CreateProject(ctx context.Context, p *model.Project) error {
	variants, rules, fraudCfg, abCfg, err := marshalProjectFields(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO projects (id, group_id, code, variants, targeting_rules, safe_link, fraud_protection, ab_test, click_count, click_limit, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.pool.Exec(ctx, query,
		p.ID, p.GroupID, p.Code, variants, rules, nullableString(p.SafeLink),
		fraudCfg, abCfg, p.ClickCount, p.ClickLimit, p.ExpiresAt,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// UpdateProject rewrites a project's mutable fields.
func (r *Repository) UpdateProject(ctx context.Context, p *model.Project) error {
	variants, rules, fraudCfg, abCfg, err := marshalProjectFields(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE projects
		SET variants = $2, targeting_rules = $3, safe_link = $4, fraud_protection = $5, ab_test = $6, click_limit = $7, expires_at = $8, updated_at = $9
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		p.ID, variants, rules, nullableString(p.SafeLink), fraudCfg, abCfg,
		p.ClickLimit, p.ExpiresAt, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}

	return nil
}

// GetProjectByCode retrieves a project by its short code.
// This is the hot path for redirects.
func (r *Repository) GetProjectByCode(ctx context.Context, code string) (*model.Project, error) {
	query := `
		SELECT id, group_id, code, variants, targeting_rules, safe_link, fraud_protection, ab_test, click_count, click_limit, expires_at, created_at, updated_at
		FROM projects
		WHERE code = $1
	`

	p, err := scanProject(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project by code: %w", err)
	}

	return p, nil
}

// GetProjectByID retrieves a project by its ID.
func (r *Repository) GetProjectByID(ctx context.Context, id string) (*model.Project, error) {
	query := `
		SELECT id, group_id, code, variants, targeting_rules, safe_link, fraud_protection, ab_test, click_count, click_limit, expires_at, created_at, updated_at
		FROM projects
		WHERE id = $1
	`

	p, err := scanProject(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project by ID: %w", err)
	}

	return p, nil
}

// IncrementClickCount bumps the project click counter. Postgres does
// the increment, so unlike the KV counters this one does not lose
// updates.
func (r *Repository) IncrementClickCount(ctx context.Context, id string) error {
	query := `UPDATE projects SET click_count = click_count + 1 WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment click count: %w", err)
	}
	return nil
}

// scanProject scans one project row, decoding the JSONB columns.
func scanProject(row pgx.Row) (*model.Project, error) {
	var (
		p        model.Project
		variants []byte
		rules    []byte
		safeLink *string
		fraudCfg []byte
		abCfg    []byte
	)

	err := row.Scan(
		&p.ID, &p.GroupID, &p.Code, &variants, &rules, &safeLink,
		&fraudCfg, &abCfg, &p.ClickCount, &p.ClickLimit, &p.ExpiresAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if safeLink != nil {
		p.SafeLink = *safeLink
	}
	if len(variants) > 0 {
		if err := json.Unmarshal(variants, &p.Variants); err != nil {
			return nil, fmt.Errorf("decode variants: %w", err)
		}
	}
	if len(rules) > 0 {
		if err := json.Unmarshal(rules, &p.TargetingRules); err != nil {
			return nil, fmt.Errorf("decode targeting rules: %w", err)
		}
	}
	if len(fraudCfg) > 0 {
		if err := json.Unmarshal(fraudCfg, &p.FraudProtection); err != nil {
			return nil, fmt.Errorf("decode fraud protection: %w", err)
		}
	}
	if len(abCfg) > 0 {
		if err := json.Unmarshal(abCfg, &p.ABTest); err != nil {
			return nil, fmt.Errorf("decode ab test: %w", err)
		}
	}

	return &p, nil
}

// marshalProjectFields encodes the JSONB columns.
func marshalProjectFields(p *model.Project) (variants, rules, fraudCfg, abCfg []byte, err error) {
	if variants, err = json.Marshal(p.Variants); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode variants: %w", err)
	}
	if p.TargetingRules != nil {
		if rules, err = json.Marshal(p.TargetingRules); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("encode targeting rules: %w", err)
		}
	}
	if p.FraudProtection != nil {
		if fraudCfg, err = json.Marshal(p.FraudProtection); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("encode fraud protection: %w", err)
		}
	}
	if p.ABTest != nil {
		if abCfg, err = json.Marshal(p.ABTest); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("encode ab test: %w", err)
		}
	}
	return variants, rules, fraudCfg, abCfg, nil
}

// nullableString maps "" to SQL NULL.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
