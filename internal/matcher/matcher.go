// Package matcher ranks template candidates against an incoming document
// by combining document-level and chunk-level embedding similarity.
package matcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/contraudit/contraudit/internal/config"
	"github.com/contraudit/contraudit/internal/models"
	"github.com/contraudit/contraudit/internal/vector"
)

// Template is one reference document captured in a Snapshot.
type Template struct {
	ID                string
	Name              string
	TitleEmbedding    []float32
	DocumentEmbedding []float32
	ChunkEmbeddings   [][]float32
}

// Snapshot is the set of active templates a matching run compares against.
// It is captured once at the start of a run so concurrent template updates
// do not change results mid-run.
type Snapshot struct {
	Templates []*Template

	once  sync.Once
	index *vector.MemoryIndex
}

// chunkIndex builds the cross-template chunk index on first use. Entries are
// keyed "<templateID>/<ord>" so a search can be filtered down to one template.
func (s *Snapshot) chunkIndex() *vector.MemoryIndex {
	s.once.Do(func() {
		dim := 0
		for _, tpl := range s.Templates {
			if len(tpl.ChunkEmbeddings) > 0 {
				dim = len(tpl.ChunkEmbeddings[0])
				break
			}
		}
		if dim == 0 {
			return
		}
		idx, err := vector.NewMemoryIndex(dim)
		if err != nil {
			return
		}
		for _, tpl := range s.Templates {
			ids := make([]string, 0, len(tpl.ChunkEmbeddings))
			vecs := make([][]float32, 0, len(tpl.ChunkEmbeddings))
			for ord, emb := range tpl.ChunkEmbeddings {
				if len(emb) != dim {
					continue
				}
				ids = append(ids, fmt.Sprintf("%s/%d", tpl.ID, ord))
				vecs = append(vecs, emb)
			}
			if err := idx.Add(context.Background(), ids, vecs); err != nil {
				return
			}
		}
		s.index = idx
	})
	return s.index
}

// Index returns the snapshot's chunk index, for persistence on shutdown.
// Nil when no template has chunks.
func (s *Snapshot) Index() *vector.MemoryIndex {
	return s.chunkIndex()
}

// Matcher scores an incoming document against a template snapshot.
type Matcher struct {
	cfg config.MatchingConfig
}

// New creates a Matcher with the given weights and thresholds.
func New(cfg config.MatchingConfig) *Matcher {
	return &Matcher{cfg: cfg}
}

const matchWorkers = 8

// Match scores every template in the snapshot and returns candidates sorted
// best-first. Ties on combined score break on document score, then on
// template ID. Chunk score is 0 when either side has no chunks.
func (m *Matcher) Match(ctx context.Context, docEmb, titleEmb []float32, chunkEmbs [][]float32, snap *Snapshot) ([]*models.Candidate, error) {
	if snap == nil || len(snap.Templates) == 0 {
		return nil, nil
	}

	candidates := make([]*models.Candidate, len(snap.Templates))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(matchWorkers)
	for i, tpl := range snap.Templates {
		i, tpl := i, tpl
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			docScore := m.docScore(docEmb, titleEmb, tpl)
			chunkScore := m.chunkScore(ctx, chunkEmbs, tpl, snap)
			combined := m.cfg.DocWeight*docScore + m.cfg.ChunkWeight*chunkScore
			c := &models.Candidate{
				TemplateID:    tpl.ID,
				DocScore:      docScore,
				ChunkScore:    chunkScore,
				CombinedScore: combined,
			}
			mu.Lock()
			candidates[i] = c
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CombinedScore != candidates[j].CombinedScore {
			return candidates[i].CombinedScore > candidates[j].CombinedScore
		}
		if candidates[i].DocScore != candidates[j].DocScore {
			return candidates[i].DocScore > candidates[j].DocScore
		}
		return candidates[i].TemplateID < candidates[j].TemplateID
	})
	if m.cfg.TopK > 0 && len(candidates) > m.cfg.TopK {
		candidates = candidates[:m.cfg.TopK]
	}
	return candidates, nil
}

// docScore blends full-document similarity with title similarity. When either
// side lacks a title embedding the document similarity is used alone.
func (m *Matcher) docScore(docEmb, titleEmb []float32, tpl *Template) float64 {
	docSim := vector.Similarity(docEmb, tpl.DocumentEmbedding)
	if len(titleEmb) == 0 || len(tpl.TitleEmbedding) == 0 {
		return docSim
	}
	titleSim := vector.Similarity(titleEmb, tpl.TitleEmbedding)
	w := m.cfg.TitleWeight
	return (1-w)*docSim + w*titleSim
}

// chunkScore is the mean over incoming chunks of the best template-chunk
// similarity per incoming chunk, found via the snapshot's chunk index
// filtered to the given template.
func (m *Matcher) chunkScore(ctx context.Context, chunkEmbs [][]float32, tpl *Template, snap *Snapshot) float64 {
	if len(chunkEmbs) == 0 || len(tpl.ChunkEmbeddings) == 0 {
		return 0
	}
	idx := snap.chunkIndex()
	if idx == nil {
		return 0
	}
	prefix := tpl.ID + "/"
	allow := func(id string) bool { return strings.HasPrefix(id, prefix) }
	var sum float64
	for _, ce := range chunkEmbs {
		results, err := idx.SearchFiltered(ctx, ce, 1, allow)
		if err != nil || len(results) == 0 {
			continue
		}
		sum += results[0].Score
	}
	return sum / float64(len(chunkEmbs))
}

// ChunkScores returns per-incoming-chunk best similarities against the given
// template, for result explanation.
func (m *Matcher) ChunkScores(chunks []*models.Chunk, tpl *Template) []*models.ChunkScore {
	out := make([]*models.ChunkScore, 0, len(chunks))
	for _, ch := range chunks {
		best := 0.0
		for _, te := range tpl.ChunkEmbeddings {
			if s := vector.Similarity(ch.Embedding, te); s > best {
				best = s
			}
		}
		out = append(out, &models.ChunkScore{
			Order:   ch.Order,
			Heading: ch.Heading,
			Score:   best,
		})
	}
	return out
}
