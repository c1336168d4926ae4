// Package classifier runs the document pipeline: parse, chunk, embed, match
// against the template library, decide, and audit.
package classifier

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/contraudit/contraudit/internal/audit"
	"github.com/contraudit/contraudit/internal/cache"
	"github.com/contraudit/contraudit/internal/chunker"
	"github.com/contraudit/contraudit/internal/config"
	"github.com/contraudit/contraudit/internal/embedding"
	"github.com/contraudit/contraudit/internal/extract"
	"github.com/contraudit/contraudit/internal/fields"
	"github.com/contraudit/contraudit/internal/matcher"
	"github.com/contraudit/contraudit/internal/models"
	"github.com/contraudit/contraudit/internal/storage"
	"github.com/contraudit/contraudit/internal/title"
)

// Classifier orchestrates the pipeline with the given collaborators.
type Classifier struct {
	storage  storage.Storage
	embedder embedding.Embedder
	matcher  *matcher.Matcher
	auditor  *audit.Engine
	chunker  *chunker.Chunker
	cache    *cache.ArtifactCache
	cfg      *config.Config
	logger   *zap.Logger
}

// New creates a Classifier. The embedder is normally a batching gateway;
// tests pass a mock.
func New(
	store storage.Storage,
	embedder embedding.Embedder,
	m *matcher.Matcher,
	auditor *audit.Engine,
	artifacts *cache.ArtifactCache,
	cfg *config.Config,
	logger *zap.Logger,
) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		storage:  store,
		embedder: embedder,
		matcher:  m,
		auditor:  auditor,
		chunker:  chunker.New(cfg.Chunking.MaxTokens, cfg.Chunking.OverlapTokens),
		cache:    artifacts,
		cfg:      cfg,
		logger:   logger,
	}
}

// prepared is a parsed and embedded document ready for matching or indexing.
type prepared struct {
	record *models.DocumentRecord
	chunks []*models.Chunk
}

// prepare parses content, extracts the title, chunks, and embeds everything
// in one batch: chunk texts, then the full text, then the title.
func (c *Classifier) prepare(ctx context.Context, name string, content []byte) (*prepared, error) {
	ext := strings.ToLower(filepath.Ext(name))
	parser, err := extract.ForExtension(ext)
	if err != nil {
		return nil, err
	}

	var elements []models.Element
	if c.cache != nil {
		elements, err = c.cache.GetOrParse(content, parser.Parse)
	} else {
		elements, err = parser.Parse(content)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	docID := uuid.New().String()
	docTitle := title.FromElements(elements)
	chunks := c.chunker.Chunk(docID, elements)

	record := &models.DocumentRecord{
		ID:     docID,
		Name:   name,
		Title:  docTitle,
		Chunks: chunks,
	}
	if len(chunks) == 0 {
		return &prepared{record: record}, nil
	}

	texts := make([]string, 0, len(chunks)+2)
	for _, ch := range chunks {
		texts = append(texts, ch.Text)
	}
	texts = append(texts, record.FullText())
	texts = append(texts, docTitle)

	vectors, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", name, err)
	}
	for i, ch := range chunks {
		ch.Embedding = vectors[i]
	}
	record.DocumentEmbedding = vectors[len(chunks)]
	if docTitle != "" {
		record.TitleEmbedding = vectors[len(chunks)+1]
	}

	return &prepared{record: record, chunks: chunks}, nil
}

// IndexTemplate ingests a reference contract into the template library and
// activates it for matching.
func (c *Classifier) IndexTemplate(ctx context.Context, name string, content []byte) (*models.DocumentRecord, error) {
	prep, err := c.prepare(ctx, name, content)
	if err != nil {
		return nil, err
	}
	if len(prep.chunks) == 0 {
		return nil, fmt.Errorf("template %s has no text content", name)
	}
	prep.record.IsActive = true
	if err := c.storage.SaveTemplate(ctx, prep.record); err != nil {
		return nil, fmt.Errorf("save template %s: %w", name, err)
	}
	c.logger.Info("template indexed",
		zap.String("id", prep.record.ID),
		zap.String("name", name),
		zap.String("title", prep.record.Title),
		zap.Int("chunks", len(prep.chunks)))
	return prep.record, nil
}

// Snapshot captures the active template library for one matching run.
// Concurrent template changes do not affect runs holding the snapshot.
func (c *Classifier) Snapshot(ctx context.Context) (*matcher.Snapshot, error) {
	templates, err := c.storage.ListTemplates(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	snap := &matcher.Snapshot{Templates: make([]*matcher.Template, 0, len(templates))}
	for _, tpl := range templates {
		chunks, err := c.storage.TemplateChunks(ctx, tpl.ID)
		if err != nil {
			return nil, fmt.Errorf("load chunks for template %s: %w", tpl.ID, err)
		}
		chunkEmbs := make([][]float32, 0, len(chunks))
		for _, ch := range chunks {
			if len(ch.Embedding) > 0 {
				chunkEmbs = append(chunkEmbs, ch.Embedding)
			}
		}
		snap.Templates = append(snap.Templates, &matcher.Template{
			ID:                tpl.ID,
			Name:              tpl.Name,
			TitleEmbedding:    tpl.TitleEmbedding,
			DocumentEmbedding: tpl.DocumentEmbedding,
			ChunkEmbeddings:   chunkEmbs,
		})
	}
	return snap, nil
}

// Classify runs the matching pipeline for one document against the snapshot
// and persists the result. A document with no usable text yields UNKNOWN and
// is not persisted.
func (c *Classifier) Classify(ctx context.Context, name string, content []byte, snap *matcher.Snapshot) (*models.ClassifyResult, error) {
	prep, err := c.prepare(ctx, name, content)
	if err != nil {
		return nil, err
	}
	if len(prep.chunks) == 0 {
		c.logger.Warn("document has no usable text", zap.String("name", name))
		return &models.ClassifyResult{
			Decision: models.Decision{Verdict: models.VerdictUnknown},
		}, nil
	}

	chunkEmbs := make([][]float32, len(prep.chunks))
	for i, ch := range prep.chunks {
		chunkEmbs[i] = ch.Embedding
	}

	candidates, err := c.matcher.Match(ctx, prep.record.DocumentEmbedding, prep.record.TitleEmbedding, chunkEmbs, snap)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", name, err)
	}
	decision := matcher.Decide(candidates, c.cfg.Matching.Threshold)

	if decision.MatchedTemplateID != "" {
		prep.record.SimilarID = decision.MatchedTemplateID
		prep.record.SimilarityScore = decision.Score
	}
	if err := c.storage.SaveDocument(ctx, prep.record); err != nil {
		return nil, fmt.Errorf("save document %s: %w", name, err)
	}

	result := &models.ClassifyResult{
		DocumentID: prep.record.ID,
		Decision:   decision,
		Candidates: candidates,
	}
	if decision.MatchedTemplateID != "" {
		for _, tpl := range snap.Templates {
			if tpl.ID == decision.MatchedTemplateID {
				result.Chunks = c.matcher.ChunkScores(prep.chunks, tpl)
				break
			}
		}
	}

	c.logger.Info("document classified",
		zap.String("id", prep.record.ID),
		zap.String("name", name),
		zap.String("verdict", string(decision.Verdict)),
		zap.Float64("score", decision.Score))
	return result, nil
}

// Audit checks a stored document against the standardness policy and
// persists the findings.
func (c *Classifier) Audit(ctx context.Context, docID string) (*models.AuditResult, error) {
	doc, err := c.storage.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	result := c.auditor.Audit(docID, fields.Extract(doc.Chunks))
	if err := c.storage.SaveViolations(ctx, docID, result.Violations); err != nil {
		return nil, fmt.Errorf("save violations for %s: %w", docID, err)
	}
	c.logger.Info("document audited",
		zap.String("id", docID),
		zap.String("status", string(result.Status)),
		zap.Int("violations", len(result.Violations)))
	return result, nil
}

// AuditContent audits raw document content without persisting anything.
func (c *Classifier) AuditContent(ctx context.Context, name string, content []byte) (*models.AuditResult, error) {
	ext := strings.ToLower(filepath.Ext(name))
	parser, err := extract.ForExtension(ext)
	if err != nil {
		return nil, err
	}
	elements, err := parser.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	chunks := c.chunker.Chunk("", elements)
	return c.auditor.Audit("", fields.Extract(chunks)), nil
}

// Outcome is the per-file result of a batch run. Err is set when that file
// failed; other files are unaffected.
type Outcome struct {
	Path     string
	Classify *models.ClassifyResult
	Audit    *models.AuditResult
	Err      error
}

const batchWorkers = 4

// ClassifyPaths classifies and audits every path concurrently against one
// template snapshot. A failed file yields an Outcome with Err set; the batch
// itself fails only when the snapshot cannot be captured.
func (c *Classifier) ClassifyPaths(ctx context.Context, paths []string) ([]*Outcome, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	outcomes := make([]*Outcome, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchWorkers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			outcomes[i] = c.classifyPath(ctx, path, snap)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (c *Classifier) classifyPath(ctx context.Context, path string, snap *matcher.Snapshot) *Outcome {
	out := &Outcome{Path: path}
	content, err := readFile(path)
	if err != nil {
		out.Err = err
		return out
	}
	result, err := c.Classify(ctx, filepath.Base(path), content, snap)
	if err != nil {
		if embedding.IsTransient(err) {
			c.logger.Warn("transient embedding failure", zap.String("path", path), zap.Error(err))
		}
		out.Err = err
		return out
	}
	out.Classify = result
	if result.DocumentID != "" {
		out.Audit, out.Err = c.Audit(ctx, result.DocumentID)
	}
	return out
}
