package tenant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fyrsmithlabs/recalld/internal/blob"
	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/index"
	"github.com/fyrsmithlabs/recalld/internal/logging"
)

var (
	// ErrMissingTenant is returned when the tenant identifier is empty.
	ErrMissingTenant = errors.New("tenant id required")
)

// state holds one tenant's vectors, documents and index.
//
// Locking: insertMu serializes whole insert batches for the tenant, so two
// concurrent batches never interleave at per-document granularity. mu guards
// the three sequences; readers take RLock and always observe vectors and
// documents at equal length. External I/O (embedding, blob reads/writes)
// happens outside mu so reads on the same tenant and all operations on other
// tenants are never blocked by a network round trip.
type state struct {
	insertMu sync.Mutex

	mu        sync.RWMutex
	loaded    bool
	vectors   [][]float32
	documents []Document
	index     *index.Flat
}

// Manager owns all tenant state for the process. It is an explicit,
// injectable container: construct one at service start and share it between
// handlers. State lives for the lifetime of the Manager; there is no
// eviction.
type Manager struct {
	blobs    blob.Store
	embedder embeddings.Embedder
	dim      int
	now      func() time.Time
	logger   *logging.Logger

	mu      sync.Mutex
	tenants map[string]*state
	loads   singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the timestamp clock. For tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager. The embedding dimension is taken from the
// embedder and fixed for the Manager's lifetime.
func NewManager(blobs blob.Store, embedder embeddings.Embedder, logger *logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		blobs:    blobs,
		embedder: embedder,
		dim:      embedder.Dimension(),
		now:      time.Now,
		logger:   logger.Named("tenant"),
		tenants:  make(map[string]*state),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ensure creates empty state for the tenant if absent. Idempotent: an
// existing, already-populated state is never reset.
func (m *Manager) Ensure(tenantID string) error {
	_, err := m.ensure(tenantID)
	return err
}

func (m *Manager) ensure(tenantID string) (*state, error) {
	if err := ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.tenants[tenantID]
	if !ok {
		idx, err := index.NewFlat(m.dim)
		if err != nil {
			return nil, err
		}
		st = &state{index: idx}
		m.tenants[tenantID] = st
	}
	return st, nil
}

// ensureLoaded restores the tenant's snapshot if the in-memory state is
// still empty. Concurrent first touches coalesce into one in-flight restore
// shared by all waiters. Restore failure is non-fatal: the state stays empty
// and is rebuilt going forward. A missing snapshot marks the tenant loaded;
// any other error leaves it unloaded so a later touch retries.
func (m *Manager) ensureLoaded(ctx context.Context, tenantID string, st *state) {
	st.mu.RLock()
	done := st.loaded || len(st.vectors) > 0
	st.mu.RUnlock()
	if done {
		return
	}

	m.loads.Do(tenantID, func() (interface{}, error) {
		st.mu.RLock()
		done := st.loaded || len(st.vectors) > 0
		st.mu.RUnlock()
		if done {
			return nil, nil
		}

		vectors, documents, err := loadSnapshot(ctx, m.blobs, tenantID, m.dim)
		if err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				m.logger.Debug(ctx, "no snapshot for tenant", zap.String("tenant_id", tenantID))
				st.mu.Lock()
				st.loaded = true
				st.mu.Unlock()
			} else {
				m.logger.Warn(ctx, "snapshot restore failed, starting empty",
					zap.String("tenant_id", tenantID), zap.Error(err))
			}
			return nil, nil
		}

		st.mu.Lock()
		defer st.mu.Unlock()
		// Re-check under the write lock: an insert may have populated the
		// state while the snapshot was being read. Its data wins.
		if st.loaded || len(st.vectors) > 0 {
			return nil, nil
		}
		if err := st.index.Rebuild(vectors); err != nil {
			m.logger.Warn(ctx, "index rebuild failed, starting empty",
				zap.String("tenant_id", tenantID), zap.Error(err))
			return nil, nil
		}
		st.vectors = vectors
		st.documents = documents
		st.loaded = true
		m.logger.Info(ctx, "restored tenant snapshot",
			zap.String("tenant_id", tenantID), zap.Int("records", len(documents)))
		return nil, nil
	})
}

// Insert embeds and appends the given texts for the tenant, then persists
// the full snapshot. Prior history is restored first, so inserts merge with
// it rather than overwrite it.
//
// Per-document failures (empty text, embedding error) skip only that
// document; earlier documents of the batch stay committed. The vector and
// document sequences are appended together under one lock hold, so they can
// never diverge in length. A failed snapshot write is returned as an error,
// but the in-memory state is retained: memory is the source of truth for the
// rest of the process lifetime and a later successful write catches up.
//
// Returns the number of documents inserted.
func (m *Manager) Insert(ctx context.Context, tenantID string, texts []string) (int, error) {
	st, err := m.ensure(tenantID)
	if err != nil {
		return 0, err
	}

	st.insertMu.Lock()
	defer st.insertMu.Unlock()

	m.ensureLoaded(ctx, tenantID, st)

	inserted := 0
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}

		if strings.TrimSpace(text) == "" {
			m.logger.Warn(ctx, "skipping empty document", zap.String("tenant_id", tenantID))
			continue
		}

		// One embedding call per document so a failure skips only that
		// document. The call happens outside the state lock.
		vecs, err := m.embedder.EmbedDocuments(ctx, []string{text})
		if err != nil {
			if ctx.Err() != nil {
				return inserted, ctx.Err()
			}
			m.logger.Warn(ctx, "embedding failed, skipping document",
				zap.String("tenant_id", tenantID), zap.Error(err))
			continue
		}
		if len(vecs) == 0 || len(vecs[0]) != m.dim {
			m.logger.Warn(ctx, "unexpected embedding shape, skipping document",
				zap.String("tenant_id", tenantID))
			continue
		}

		timestamp := m.now().UTC().Format(timestampLayout)

		st.mu.Lock()
		// Index first: its dimension check is the only append that can
		// fail, and it must not leave the sequences out of step.
		if err := st.index.Insert(vecs[0]); err != nil {
			st.mu.Unlock()
			m.logger.Warn(ctx, "index insert failed, skipping document",
				zap.String("tenant_id", tenantID), zap.Error(err))
			continue
		}
		st.vectors = append(st.vectors, vecs[0])
		st.documents = append(st.documents, Document{Text: text, Timestamp: timestamp})
		st.loaded = true
		st.mu.Unlock()

		inserted++
	}

	if inserted == 0 {
		return 0, nil
	}

	// Snapshot under read lock, write without any lock. insertMu already
	// excludes concurrent writers for this tenant.
	st.mu.RLock()
	vectors := st.vectors
	documents := st.documents
	st.mu.RUnlock()

	if err := saveSnapshot(ctx, m.blobs, tenantID, vectors, documents, m.dim); err != nil {
		m.logger.Error(ctx, "snapshot persist failed, in-memory state retained",
			zap.String("tenant_id", tenantID), zap.Error(err))
		return inserted, err
	}

	m.logger.Info(ctx, "inserted documents",
		zap.String("tenant_id", tenantID),
		zap.Int("inserted", inserted),
		zap.Int("total", len(documents)))
	return inserted, nil
}

// Len returns the tenant's record count, restoring the snapshot first if the
// state is empty.
func (m *Manager) Len(ctx context.Context, tenantID string) (int, error) {
	st, err := m.ensure(tenantID)
	if err != nil {
		return 0, err
	}
	m.ensureLoaded(ctx, tenantID, st)

	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.documents), nil
}

// Search returns the texts of the k documents nearest to the query vector,
// ascending by distance. Position-to-text mapping and the search run under
// one read lock, so the result is a consistent snapshot. Positions outside
// the document range are dropped rather than crashing.
func (m *Manager) Search(ctx context.Context, tenantID string, query []float32, k int) ([]string, error) {
	st, err := m.ensure(tenantID)
	if err != nil {
		return nil, err
	}
	m.ensureLoaded(ctx, tenantID, st)

	st.mu.RLock()
	defer st.mu.RUnlock()

	if st.index.Len() == 0 {
		return nil, nil
	}

	results, err := st.index.Search(query, k)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Position < 0 || r.Position >= len(st.documents) {
			continue
		}
		texts = append(texts, st.documents[r.Position].Text)
	}
	return texts, nil
}

// Latest returns the document with the greatest timestamp, restoring the
// snapshot first if the state is empty. Ties go to the later insertion. The
// second return is false when the tenant has no documents.
func (m *Manager) Latest(ctx context.Context, tenantID string) (Document, bool, error) {
	st, err := m.ensure(tenantID)
	if err != nil {
		return Document{}, false, err
	}
	m.ensureLoaded(ctx, tenantID, st)

	st.mu.RLock()
	defer st.mu.RUnlock()

	if len(st.documents) == 0 {
		return Document{}, false, nil
	}

	latest := st.documents[0]
	for _, doc := range st.documents[1:] {
		if doc.Timestamp >= latest.Timestamp {
			latest = doc
		}
	}
	return latest, true, nil
}
