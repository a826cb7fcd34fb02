package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"aigovern/domain/core"
	"aigovern/domain/govtest"
	"aigovern/ports"
)

// ResultRepositoryImpl implements ports.ResultRepository for PostgreSQL
type ResultRepositoryImpl struct {
	db *sqlx.DB
}

// NewResultRepository creates a new PostgreSQL result repository
func NewResultRepository(db *sqlx.DB) ports.ResultRepository {
	return &ResultRepositoryImpl{db: db}
}

// SaveResult upserts one test result and replaces its metrics in a single
// transaction. Results are keyed by (run_id, test_name) so a retried
// battery replaces prior rows instead of duplicating them.
func (r *ResultRepositoryImpl) SaveResult(ctx context.Context, result *govtest.TestResult) error {
	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Drop metrics hanging off a prior attempt's result row first, so the
	// upsert below can replace that row's id without violating the FK.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM test_metrics
		WHERE result_id IN (
			SELECT id FROM test_results WHERE run_id = $1 AND test_name = $2
		)`, result.RunID.String(), string(result.TestName))
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO test_results (
			id, run_id, test_name, status, passed, score, summary,
			duration_ms, contains_pii, data_classification, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (run_id, test_name) DO UPDATE SET
			id = EXCLUDED.id,
			status = EXCLUDED.status,
			passed = EXCLUDED.passed,
			score = EXCLUDED.score,
			summary = EXCLUDED.summary,
			duration_ms = EXCLUDED.duration_ms,
			contains_pii = EXCLUDED.contains_pii,
			data_classification = EXCLUDED.data_classification,
			created_at = EXCLUDED.created_at`,
		result.ID.String(), result.RunID.String(), string(result.TestName),
		string(result.Status), result.Passed, result.Score, summaryJSON,
		result.Duration.Milliseconds(), result.ContainsPII,
		string(result.DataClassification), result.CreatedAt.Time())
	if err != nil {
		return err
	}

	// Metrics belong to exactly one result
	for _, m := range result.Metrics {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO test_metrics (
				id, result_id, name, value, threshold, direction, passed,
				slice_key, slice_value, contains_pii, data_classification
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			m.ID.String(), result.ID.String(), m.Name, m.Value, m.Threshold,
			string(m.Direction), m.Passed,
			nullIfEmpty(m.SliceKey), nullIfEmpty(m.SliceValue),
			m.ContainsPII, string(m.DataClassification))
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListResults returns a run's results in insertion order with their
// metrics attached. A caller reading mid-execution sees a partial,
// monotonically growing set.
func (r *ResultRepositoryImpl) ListResults(ctx context.Context, runID core.RunID) ([]govtest.TestResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, test_name, status, passed, score, summary,
			   duration_ms, contains_pii, data_classification, created_at
		FROM test_results
		WHERE run_id = $1
		ORDER BY created_at ASC, test_name ASC`, runID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []govtest.TestResult
	for rows.Next() {
		var res govtest.TestResult
		var id, rid, testName, status, classification string
		var summaryJSON []byte
		var durationMs int64
		var createdAt time.Time

		err := rows.Scan(&id, &rid, &testName, &status, &res.Passed, &res.Score,
			&summaryJSON, &durationMs, &res.ContainsPII, &classification, &createdAt)
		if err != nil {
			return nil, err
		}
		res.ID = core.ResultID(id)
		res.RunID = core.RunID(rid)
		res.TestName = govtest.TestName(testName)
		res.Status = govtest.ResultStatus(status)
		res.Duration = time.Duration(durationMs) * time.Millisecond
		res.DataClassification = classificationFromString(classification)
		res.CreatedAt = core.NewTimestamp(createdAt)
		if len(summaryJSON) > 0 {
			json.Unmarshal(summaryJSON, &res.Summary)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		metrics, err := r.listMetrics(ctx, results[i].ID)
		if err != nil {
			return nil, err
		}
		results[i].Metrics = metrics
	}
	return results, nil
}

func (r *ResultRepositoryImpl) listMetrics(ctx context.Context, resultID core.ResultID) ([]govtest.Metric, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, value, threshold, direction, passed,
			   slice_key, slice_value, contains_pii, data_classification
		FROM test_metrics
		WHERE result_id = $1
		ORDER BY id ASC`, resultID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []govtest.Metric
	for rows.Next() {
		var m govtest.Metric
		var id, direction, classification string
		var sliceKey, sliceValue *string
		err := rows.Scan(&id, &m.Name, &m.Value, &m.Threshold, &direction,
			&m.Passed, &sliceKey, &sliceValue, &m.ContainsPII, &classification)
		if err != nil {
			return nil, err
		}
		m.ID = core.MetricID(id)
		m.Direction = govtest.Direction(direction)
		m.DataClassification = classificationFromString(classification)
		if sliceKey != nil {
			m.SliceKey = *sliceKey
		}
		if sliceValue != nil {
			m.SliceValue = *sliceValue
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}
