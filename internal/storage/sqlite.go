// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/contraudit/contraudit/internal/models"
	"github.com/contraudit/contraudit/internal/vector"
)

// SQLiteStorage implements Storage using SQLite. Embeddings are stored as
// little-endian float32 blobs.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		title TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		embedding BLOB,
		title_emb BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS template_chunks (
		chunk_id TEXT PRIMARY KEY,
		template_id TEXT NOT NULL,
		ord INTEGER NOT NULL,
		heading TEXT,
		text TEXT NOT NULL,
		embedding BLOB,
		FOREIGN KEY (template_id) REFERENCES templates(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_template_chunks_template ON template_chunks(template_id, ord);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		title TEXT,
		embedding BLOB,
		title_emb BLOB,
		similar_id TEXT REFERENCES templates(id),
		similarity_score REAL,
		user_choice_doc_id TEXT REFERENCES templates(id),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);

	CREATE TABLE IF NOT EXISTS document_chunks (
		chunk_id TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		ord INTEGER NOT NULL,
		heading TEXT,
		text TEXT NOT NULL,
		embedding BLOB,
		FOREIGN KEY (doc_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_document_chunks_doc ON document_chunks(doc_id, ord);

	CREATE TABLE IF NOT EXISTS violations (
		id TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		rule_key TEXT NOT NULL,
		description TEXT NOT NULL,
		extracted_value TEXT,
		expected TEXT,
		found_text TEXT,
		severity TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (doc_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_violations_doc ON violations(doc_id);
	`
	_, err := db.Exec(schema)
	return err
}

func encodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return vector.Float32SliceToBytes(v)
}

func decodeEmbedding(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	return vector.BytesToFloat32Slice(b)
}

// SaveTemplate inserts a template and its chunks in one transaction.
func (s *SQLiteStorage) SaveTemplate(ctx context.Context, tpl *models.DocumentRecord) error {
	return s.saveRecord(ctx, tpl, "templates", "template_chunks", "template_id")
}

// SaveDocument inserts an incoming document and its chunks in one transaction.
func (s *SQLiteStorage) SaveDocument(ctx context.Context, doc *models.DocumentRecord) error {
	return s.saveRecord(ctx, doc, "documents", "document_chunks", "doc_id")
}

func (s *SQLiteStorage) saveRecord(ctx context.Context, rec *models.DocumentRecord, table, chunkTable, fkColumn string) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.CreatedAt = time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if table == "templates" {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO templates (id, name, title, is_active, embedding, title_emb, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Name, rec.Title, rec.IsActive,
			encodeEmbedding(rec.DocumentEmbedding), encodeEmbedding(rec.TitleEmbedding), rec.CreatedAt,
		)
	} else {
		var similarID, userChoice sql.NullString
		var score sql.NullFloat64
		if rec.SimilarID != "" {
			similarID = sql.NullString{String: rec.SimilarID, Valid: true}
			score = sql.NullFloat64{Float64: rec.SimilarityScore, Valid: true}
		}
		if rec.UserChoice != "" {
			userChoice = sql.NullString{String: rec.UserChoice, Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (id, name, title, embedding, title_emb, similar_id, similarity_score, user_choice_doc_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Name, rec.Title,
			encodeEmbedding(rec.DocumentEmbedding), encodeEmbedding(rec.TitleEmbedding),
			similarID, score, userChoice, rec.CreatedAt,
		)
	}
	if err != nil {
		return err
	}

	if len(rec.Chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
			`INSERT INTO %s (chunk_id, %s, ord, heading, text, embedding) VALUES (?, ?, ?, ?, ?, ?)`,
			chunkTable, fkColumn,
		))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, ch := range rec.Chunks {
			if ch.ID == "" {
				ch.ID = fmt.Sprintf("%s_%d", rec.ID, ch.Order)
			}
			ch.DocumentID = rec.ID
			if _, err := stmt.ExecContext(ctx, ch.ID, rec.ID, ch.Order, ch.Heading, ch.Text, encodeEmbedding(ch.Embedding)); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// GetTemplate returns a template with its chunks.
func (s *SQLiteStorage) GetTemplate(ctx context.Context, id string) (*models.DocumentRecord, error) {
	var tpl models.DocumentRecord
	var embedding, titleEmb []byte
	var title sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, title, is_active, embedding, title_emb, created_at
		 FROM templates WHERE id = ?`, id,
	).Scan(&tpl.ID, &tpl.Name, &title, &tpl.IsActive, &embedding, &titleEmb, &tpl.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("template not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	tpl.Title = title.String
	tpl.DocumentEmbedding = decodeEmbedding(embedding)
	tpl.TitleEmbedding = decodeEmbedding(titleEmb)

	tpl.Chunks, err = s.TemplateChunks(ctx, id)
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

// ListTemplates returns templates without their chunks, newest first.
func (s *SQLiteStorage) ListTemplates(ctx context.Context, activeOnly bool) ([]*models.DocumentRecord, error) {
	query := `SELECT id, name, title, is_active, embedding, title_emb, created_at FROM templates`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*models.DocumentRecord
	for rows.Next() {
		var tpl models.DocumentRecord
		var embedding, titleEmb []byte
		var title sql.NullString
		if err := rows.Scan(&tpl.ID, &tpl.Name, &title, &tpl.IsActive, &embedding, &titleEmb, &tpl.CreatedAt); err != nil {
			return nil, err
		}
		tpl.Title = title.String
		tpl.DocumentEmbedding = decodeEmbedding(embedding)
		tpl.TitleEmbedding = decodeEmbedding(titleEmb)
		templates = append(templates, &tpl)
	}
	return templates, rows.Err()
}

// TemplateChunks returns all chunks of a template ordered by position.
func (s *SQLiteStorage) TemplateChunks(ctx context.Context, templateID string) ([]*models.Chunk, error) {
	return s.chunks(ctx, `SELECT chunk_id, template_id, ord, heading, text, embedding
		FROM template_chunks WHERE template_id = ? ORDER BY ord`, templateID)
}

func (s *SQLiteStorage) chunks(ctx context.Context, query, id string) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		var ch models.Chunk
		var heading sql.NullString
		var embedding []byte
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.Order, &heading, &ch.Text, &embedding); err != nil {
			return nil, err
		}
		ch.Heading = heading.String
		ch.Embedding = decodeEmbedding(embedding)
		chunks = append(chunks, &ch)
	}
	return chunks, rows.Err()
}

// SetTemplateActive toggles template participation in matching.
func (s *SQLiteStorage) SetTemplateActive(ctx context.Context, id string, active bool) error {
	result, err := s.db.ExecContext(ctx, `UPDATE templates SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("template not found: %s", id)
	}
	return nil
}

// GetDocument returns an incoming document with its chunks.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error) {
	var doc models.DocumentRecord
	var embedding, titleEmb []byte
	var title, similarID, userChoice sql.NullString
	var score sql.NullFloat64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, title, embedding, title_emb, similar_id, similarity_score, user_choice_doc_id, created_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Name, &title, &embedding, &titleEmb, &similarID, &score, &userChoice, &doc.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	doc.Title = title.String
	doc.DocumentEmbedding = decodeEmbedding(embedding)
	doc.TitleEmbedding = decodeEmbedding(titleEmb)
	doc.SimilarID = similarID.String
	doc.SimilarityScore = score.Float64
	doc.UserChoice = userChoice.String

	doc.Chunks, err = s.chunks(ctx, `SELECT chunk_id, doc_id, ord, heading, text, embedding
		FROM document_chunks WHERE doc_id = ? ORDER BY ord`, id)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns incoming documents without chunks, newest first.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, title, similar_id, similarity_score, user_choice_doc_id, created_at
		 FROM documents ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.DocumentRecord
	for rows.Next() {
		var doc models.DocumentRecord
		var title, similarID, userChoice sql.NullString
		var score sql.NullFloat64
		if err := rows.Scan(&doc.ID, &doc.Name, &title, &similarID, &score, &userChoice, &doc.CreatedAt); err != nil {
			return nil, err
		}
		doc.Title = title.String
		doc.SimilarID = similarID.String
		doc.SimilarityScore = score.Float64
		doc.UserChoice = userChoice.String
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// UpdateUserChoice records a manual template override for a document.
func (s *SQLiteStorage) UpdateUserChoice(ctx context.Context, docID, templateID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET user_choice_doc_id = ? WHERE id = ?`, templateID, docID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", docID)
	}
	return nil
}

// SaveViolations replaces the audit findings for a document.
func (s *SQLiteStorage) SaveViolations(ctx context.Context, docID string, violations []*models.Violation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM violations WHERE doc_id = ?`, docID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO violations (id, doc_id, rule_key, description, extracted_value, expected, found_text, severity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range violations {
		if _, err := stmt.ExecContext(ctx, uuid.New().String(), docID,
			v.RuleKey, v.Description, v.Extracted, v.Expected, v.FoundText, string(v.Severity)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetViolations returns the audit findings for a document in insertion order.
func (s *SQLiteStorage) GetViolations(ctx context.Context, docID string) ([]*models.Violation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rule_key, description, extracted_value, expected, found_text, severity
		 FROM violations WHERE doc_id = ? ORDER BY rowid`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var violations []*models.Violation
	for rows.Next() {
		var v models.Violation
		var severity string
		if err := rows.Scan(&v.RuleKey, &v.Description, &v.Extracted, &v.Expected, &v.FoundText, &severity); err != nil {
			return nil, err
		}
		v.Severity = models.Severity(severity)
		violations = append(violations, &v)
	}
	return violations, rows.Err()
}

// CountTemplates returns the total number of templates.
func (s *SQLiteStorage) CountTemplates(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates`).Scan(&count)
	return count, err
}

// CountDocuments returns the total number of incoming documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

var _ Storage = (*SQLiteStorage)(nil)
