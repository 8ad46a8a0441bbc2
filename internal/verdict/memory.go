package verdict

import (
	"context"
	"sort"
	"sync"
	"time"

	"phishguard/internal/models"
)

// MemoryRepository keeps verdicts in process. Used by tests and by the API
// when no database is configured.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[string]models.Verdict
	now  func() time.Time
}

func NewMemoryRepository(now func() time.Time) *MemoryRepository {
	if now == nil {
		now = time.Now
	}
	return &MemoryRepository{
		rows: make(map[string]models.Verdict),
		now:  now,
	}
}

func (m *MemoryRepository) Get(ctx context.Context, url string) (models.Verdict, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.rows[url]
	return v, ok, nil
}

func (m *MemoryRepository) Upsert(ctx context.Context, url string, status models.Classification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[url] = models.Verdict{URL: url, Status: status, LastChecked: m.now()}
	return nil
}

// List returns verdicts most recently checked first.
func (m *MemoryRepository) List(ctx context.Context) ([]models.Verdict, error) {
	m.mu.RLock()
	out := make([]models.Verdict, 0, len(m.rows))
	for _, v := range m.rows {
		out = append(out, v)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastChecked.Equal(out[j].LastChecked) {
			return out[i].URL < out[j].URL
		}
		return out[i].LastChecked.After(out[j].LastChecked)
	})
	return out, nil
}

// Len is the number of stored verdicts.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}
