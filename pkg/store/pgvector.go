package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/docsift/internal/models"
)

// ErrNotFound is returned by Get for an unknown report ID.
var ErrNotFound = errors.New("report not found")

type ReportStoreConfig struct {
	ConnString  string
	TableName   string
	VectorDim   int
	SearchLimit int
}

// ReportStore keeps finished reports and their lines in Postgres. Lines
// carry a pgvector embedding for similarity search.
type ReportStore struct {
	config ReportStoreConfig
	pool   *pgxpool.Pool
	tables tableNames
}

type tableNames struct {
	reports string
	lines   string
	index   string
}

func NewWithConfig(ctx context.Context, config ReportStoreConfig) (*ReportStore, error) {
	if config.TableName == "" {
		config.TableName = "reports"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768 // nomic-embed-text
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	rs := &ReportStore{
		config: config,
		pool:   pool,
		tables: tableNames{
			reports: pgx.Identifier{config.TableName}.Sanitize(),
			lines:   pgx.Identifier{config.TableName + "_lines"}.Sanitize(),
			index:   pgx.Identifier{config.TableName + "_lines_embedding_idx"}.Sanitize(),
		},
	}

	if err := rs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return rs, nil
}

func (rs *ReportStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	if _, err := rs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createReports := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			file_type TEXT NOT NULL,
			analysis_type TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			report JSONB NOT NULL
		)`, rs.tables.reports)
	if _, err := rs.pool.Exec(ctx, createReports); err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}

	createLines := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			report_id TEXT NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
			line_number INTEGER NOT NULL,
			page INTEGER NOT NULL,
			text TEXT NOT NULL,
			sentiment TEXT,
			embedding vector(%d),
			PRIMARY KEY (report_id, line_number)
		)`, rs.tables.lines, rs.tables.reports, rs.config.VectorDim)
	if _, err := rs.pool.Exec(ctx, createLines); err != nil {
		return fmt.Errorf("failed to create lines table: %w", err)
	}

	// Create vector index
	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		rs.tables.index, rs.tables.lines)
	if _, err := rs.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Save writes the report and one row per unit. A unit without a usable
// embedding is stored with a NULL vector and is not searchable.
func (rs *ReportStore) Save(ctx context.Context, report *models.Report, units []models.LineUnit, embeddings [][]float32) error {
	stored := *report
	stored.Filename = sanitizeText(report.Filename)
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	tx, err := rs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertReport := fmt.Sprintf(`
		INSERT INTO %s (id, filename, file_type, analysis_type, created_at, report)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET report = EXCLUDED.report`,
		rs.tables.reports)
	_, err = tx.Exec(ctx, insertReport,
		report.ID,
		stored.Filename,
		report.FileType,
		string(report.AnalysisType),
		report.CreatedAt,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	insertLine := fmt.Sprintf(`
		INSERT INTO %s (report_id, line_number, page, text, sentiment, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (report_id, line_number) DO UPDATE SET
			text = EXCLUDED.text,
			sentiment = EXCLUDED.sentiment,
			embedding = EXCLUDED.embedding`,
		rs.tables.lines)

	batch := &pgx.Batch{}
	for i, unit := range units {
		batch.Queue(insertLine,
			report.ID,
			unit.SequenceIndex,
			unit.Location,
			sanitizeText(unit.Text),
			lineSentiment(report, i),
			rs.vector(embeddings, i),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert lines: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (rs *ReportStore) vector(embeddings [][]float32, i int) *pgvector.Vector {
	if i >= len(embeddings) || len(embeddings[i]) != rs.config.VectorDim {
		return nil
	}
	v := pgvector.NewVector(embeddings[i])
	return &v
}

func lineSentiment(report *models.Report, i int) *string {
	if i >= len(report.IndividualAnalysis) || report.IndividualAnalysis[i].Sentiment == nil {
		return nil
	}
	s := string(*report.IndividualAnalysis[i].Sentiment)
	return &s
}

func (rs *ReportStore) Get(ctx context.Context, id string) (*models.Report, error) {
	query := fmt.Sprintf(`SELECT report FROM %s WHERE id = $1`, rs.tables.reports)

	var data []byte
	if err := rs.pool.QueryRow(ctx, query, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}

// SimilarLines returns the stored lines closest to embedding by cosine
// distance, nearest first.
func (rs *ReportStore) SimilarLines(ctx context.Context, embedding []float32, limit int) ([]models.StoredLine, error) {
	if limit <= 0 {
		limit = rs.config.SearchLimit
	}

	query := fmt.Sprintf(`
		SELECT l.report_id, r.filename, l.line_number, l.page, l.text, l.sentiment,
			l.embedding <=> $1 AS distance
		FROM %s l
		JOIN %s r ON r.id = l.report_id
		WHERE l.embedding IS NOT NULL
		ORDER BY distance
		LIMIT $2`,
		rs.tables.lines, rs.tables.reports)

	rows, err := rs.pool.Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	var lines []models.StoredLine
	for rows.Next() {
		var line models.StoredLine
		var sentiment *string
		err := rows.Scan(
			&line.ReportID,
			&line.Filename,
			&line.LineNumber,
			&line.Location,
			&line.Text,
			&sentiment,
			&line.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if sentiment != nil {
			s := models.Sentiment(*sentiment)
			line.Sentiment = &s
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return lines, nil
}

func (rs *ReportStore) Close() {
	if rs.pool != nil {
		rs.pool.Close()
	}
}

// sanitizeText drops bytes Postgres refuses in text columns: invalid UTF-8
// and NUL.
func sanitizeText(s string) string {
	if utf8.ValidString(s) && !strings.ContainsRune(s, 0) {
		return s
	}
	return strings.ReplaceAll(strings.ToValidUTF8(s, ""), "\x00", "")
}
