package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soclabs/copilot/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Connection pool configuration
	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// CreateRule inserts a new exclusion rule, generating its id when unset.
func (r *PostgresRepository) CreateRule(ctx context.Context, rule *models.ExclusionRule) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if rule.ID == "" {
		id, _ := uuid.NewV7()
		rule.ID = id.String()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	matchesJSON, err := json.Marshal(rule.FieldMatches)
	if err != nil {
		return fmt.Errorf("failed to marshal field matches: %w", err)
	}

	query := `
		INSERT INTO exclusion_rules
		(id, name, channel, title, field_matches, customer_code, enabled, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.pool.Exec(ctx, query,
		rule.ID, rule.Name, rule.Channel, rule.Title, matchesJSON,
		rule.CustomerCode, rule.Enabled, rule.CreatedBy, rule.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create exclusion rule: %w", err)
	}

	return nil
}

const ruleColumns = `
	id, name, channel, title, field_matches, customer_code, enabled,
	created_by, created_at, last_matched_at, match_count
`

func scanRule(row pgx.Row) (*models.ExclusionRule, error) {
	rule := &models.ExclusionRule{}
	var matchesJSON []byte
	err := row.Scan(
		&rule.ID, &rule.Name, &rule.Channel, &rule.Title, &matchesJSON,
		&rule.CustomerCode, &rule.Enabled, &rule.CreatedBy, &rule.CreatedAt,
		&rule.LastMatchedAt, &rule.MatchCount,
	)
	if err != nil {
		return nil, err
	}
	if len(matchesJSON) > 0 {
		if err := json.Unmarshal(matchesJSON, &rule.FieldMatches); err != nil {
			return nil, fmt.Errorf("failed to unmarshal field matches: %w", err)
		}
	}
	return rule, nil
}

// GetRule retrieves a rule by id.
func (r *PostgresRepository) GetRule(ctx context.Context, id string) (*models.ExclusionRule, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM exclusion_rules WHERE id = $1`, ruleColumns)
	rule, err := scanRule(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to get exclusion rule: %w", err)
	}
	return rule, nil
}

// ListRules retrieves a paginated rule list, newest first.
func (r *PostgresRepository) ListRules(ctx context.Context, req *models.ListExclusionRulesRequest) ([]models.ExclusionRule, int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	whereClause := "WHERE 1=1"
	args := []interface{}{}
	argPos := 1

	if req.EnabledOnly {
		whereClause += " AND enabled = TRUE"
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM exclusion_rules %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count exclusion rules: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, req.Skip)

	query := fmt.Sprintf(`
		SELECT %s FROM exclusion_rules
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, ruleColumns, whereClause, argPos, argPos+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list exclusion rules: %w", err)
	}
	defer rows.Close()

	rules := []models.ExclusionRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan exclusion rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}

	return rules, total, nil
}

// UpdateRule applies a partial update and returns the updated rule.
func (r *PostgresRepository) UpdateRule(ctx context.Context, id string, req *models.UpdateExclusionRuleRequest) (*models.ExclusionRule, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	setClauses := []string{}
	args := []interface{}{}
	argPos := 1

	if req.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argPos))
		args = append(args, *req.Name)
		argPos++
	}
	if req.Channel != nil {
		setClauses = append(setClauses, fmt.Sprintf("channel = $%d", argPos))
		args = append(args, *req.Channel)
		argPos++
	}
	if req.Title != nil {
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", argPos))
		args = append(args, *req.Title)
		argPos++
	}
	if req.FieldMatches != nil {
		matchesJSON, err := json.Marshal(*req.FieldMatches)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field matches: %w", err)
		}
		setClauses = append(setClauses, fmt.Sprintf("field_matches = $%d", argPos))
		args = append(args, matchesJSON)
		argPos++
	}
	if req.CustomerCode != nil {
		setClauses = append(setClauses, fmt.Sprintf("customer_code = $%d", argPos))
		args = append(args, *req.CustomerCode)
		argPos++
	}
	if req.Enabled != nil {
		setClauses = append(setClauses, fmt.Sprintf("enabled = $%d", argPos))
		args = append(args, *req.Enabled)
		argPos++
	}

	if len(setClauses) == 0 {
		return r.GetRule(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE exclusion_rules SET %s WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), argPos, ruleColumns)

	rule, err := scanRule(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to update exclusion rule: %w", err)
	}
	return rule, nil
}

// DeleteRule removes a rule permanently.
func (r *PostgresRepository) DeleteRule(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, `DELETE FROM exclusion_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete exclusion rule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// ToggleRule flips a rule's enabled flag and returns the updated rule.
func (r *PostgresRepository) ToggleRule(ctx context.Context, id string) (*models.ExclusionRule, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE exclusion_rules SET enabled = NOT enabled WHERE id = $1
		RETURNING %s
	`, ruleColumns)

	rule, err := scanRule(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to toggle exclusion rule: %w", err)
	}
	return rule, nil
}

// RecordMatch bumps bookkeeping for a rule that suppressed an event.
func (r *PostgresRepository) RecordMatch(ctx context.Context, ruleID string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		UPDATE exclusion_rules
		SET match_count = match_count + 1, last_matched_at = NOW()
		WHERE id = $1
	`, ruleID)
	if err != nil {
		return fmt.Errorf("failed to record rule match: %w", err)
	}
	return nil
}

// GetCustomerAlertSettings looks up the per-customer case-system mapping.
func (r *PostgresRepository) GetCustomerAlertSettings(ctx context.Context, customerCode string) (*models.CustomerAlertSettings, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	settings := &models.CustomerAlertSettings{}
	err := r.pool.QueryRow(ctx, `
		SELECT customer_code, case_customer_id, case_index, timefield_name, dashboard_url, webhook_url
		FROM customer_alert_settings
		WHERE customer_code = $1
	`, customerCode).Scan(
		&settings.CustomerCode, &settings.CaseCustomerID, &settings.CaseIndex,
		&settings.TimefieldName, &settings.DashboardURL, &settings.WebhookURL,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer alert settings: %w", err)
	}
	return settings, nil
}

// ListCustomerCodes returns every provisioned customer code.
func (r *PostgresRepository) ListCustomerCodes(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT customer_code FROM customer_alert_settings ORDER BY customer_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list customer codes: %w", err)
	}
	defer rows.Close()

	codes := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan customer code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return codes, nil
}
