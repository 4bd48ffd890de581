package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/did-method-plc/go-diddoc"
	"github.com/emirpasic/gods/maps/treemap"
	"go.opentelemetry.io/otel/metric"
)

var (
	// Returned (possibly wrapped) by DeleteDoc if there is no document for the subject
	ErrNotFound = errors.New("document not found")
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

type DocEntry struct {
	Subject   diddoc.Subject
	CID       string // CID of the canonical encoding, as computed by Document.CID
	UpdatedAt time.Time
	Doc       *diddoc.Document
}

type DocStore interface {
	// GetDoc returns the stored document for a subject.
	// Returns nil (and no error) if there is none.
	GetDoc(ctx context.Context, subject diddoc.Subject) (*DocEntry, error)

	// PutDoc stores a document keyed by its id, replacing any previous version.
	PutDoc(ctx context.Context, doc *diddoc.Document) (*DocEntry, error)

	// DeleteDoc removes the document for a subject. Returns ErrNotFound if there is none.
	DeleteDoc(ctx context.Context, subject diddoc.Subject) error

	// ListSubjects returns stored subjects in ascending order, starting after the given cursor ("" for the beginning).
	// A limit <= 0 means DefaultListLimit; limits above MaxListLimit are clamped.
	ListSubjects(ctx context.Context, after string, limit int) ([]diddoc.Subject, error)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}

func newEntry(doc *diddoc.Document) (*DocEntry, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}
	c, err := doc.CID()
	if err != nil {
		return nil, err
	}
	return &DocEntry{
		Subject:   doc.Subject(),
		CID:       c.String(),
		UpdatedAt: time.Now().UTC(),
		Doc:       doc,
	}, nil
}

// MemDocStore is an in-memory DocStore, mostly useful for testing.
// Documents are immutable, so entries are shared rather than copied.
type MemDocStore struct {
	docs *treemap.Map // string -> *DocEntry
	lock sync.RWMutex
}

var _ DocStore = (*MemDocStore)(nil)

func NewMemDocStore() *MemDocStore {
	return &MemDocStore{
		docs: treemap.NewWithStringComparator(),
	}
}

func (store *MemDocStore) GetDoc(ctx context.Context, subject diddoc.Subject) (*DocEntry, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	v, ok := store.docs.Get(subject.String())
	if !ok {
		return nil, nil
	}
	entry := *v.(*DocEntry)
	return &entry, nil
}

func (store *MemDocStore) PutDoc(ctx context.Context, doc *diddoc.Document) (*DocEntry, error) {
	entry, err := newEntry(doc)
	if err != nil {
		return nil, err
	}

	store.lock.Lock()
	store.docs.Put(entry.Subject.String(), entry)
	store.lock.Unlock()

	DocsPutCounter.Add(ctx, 1, metric.WithAttributes(StoreMemory))
	out := *entry
	return &out, nil
}

func (store *MemDocStore) DeleteDoc(ctx context.Context, subject diddoc.Subject) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	if _, ok := store.docs.Get(subject.String()); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, subject)
	}
	store.docs.Remove(subject.String())
	DocsDeletedCounter.Add(ctx, 1, metric.WithAttributes(StoreMemory))
	return nil
}

func (store *MemDocStore) ListSubjects(ctx context.Context, after string, limit int) ([]diddoc.Subject, error) {
	limit = clampLimit(limit)

	store.lock.RLock()
	defer store.lock.RUnlock()

	subjects := []diddoc.Subject{}
	it := store.docs.Iterator()
	for it.Next() && len(subjects) < limit {
		key := it.Key().(string)
		if key <= after {
			continue
		}
		subjects = append(subjects, diddoc.Subject(key))
	}
	return subjects, nil
}
