package store

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"svnglobal/internal/util"
	"svnglobal/pkg/domain"
)

// MemoryStore keeps catalog rows in-process. Used by tests and local demos.
type MemoryStore struct {
	mu        sync.RWMutex
	seq       int64
	products  map[string]memRow[domain.Product]
	reports   map[string]memRow[domain.TestReport]
	inquiries map[string]memRow[domain.ContactInquiry]
	roles     []domain.UserRole
}

// memRow remembers insertion order so rows created in the same instant
// still list newest first.
type memRow[T any] struct {
	value T
	seq   int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:  make(map[string]memRow[domain.Product]),
		reports:   make(map[string]memRow[domain.TestReport]),
		inquiries: make(map[string]memRow[domain.ContactInquiry]),
	}
}

func (m *MemoryStore) seqFor(prev int64, exists bool) int64 {
	if exists {
		return prev
	}
	m.seq++
	return m.seq
}

func (m *MemoryStore) SaveProduct(_ context.Context, p domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.products[p.ID]
	if ok {
		p.CreatedAt = prev.value.CreatedAt
	}
	p.Features = slices.Clone(p.Features)
	p.Applications = slices.Clone(p.Applications)
	m.products[p.ID] = memRow[domain.Product]{value: p, seq: m.seqFor(prev.seq, ok)}
	return nil
}

func (m *MemoryStore) GetProduct(_ context.Context, id string) (domain.Product, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.products[id]
	return row.value, ok, nil
}

func (m *MemoryStore) ListProducts(_ context.Context, q ProductQuery) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	category := strings.TrimSpace(q.Category)
	rows := make([]memRow[domain.Product], 0, len(m.products))
	for _, row := range m.products {
		if q.ActiveOnly && !row.value.IsActive {
			continue
		}
		if category != "" && (row.value.Category == nil || *row.value.Category != category) {
			continue
		}
		rows = append(rows, row)
	}
	return newestFirst(rows, func(p domain.Product) time.Time { return p.CreatedAt }), nil
}

func (m *MemoryStore) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
	return nil
}

func (m *MemoryStore) CountProducts(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.products)), nil
}

func (m *MemoryStore) SaveTestReport(_ context.Context, r domain.TestReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.reports[r.ID]
	if ok {
		r.CreatedAt = prev.value.CreatedAt
	}
	r.Certifications = slices.Clone(r.Certifications)
	r.Parameters = slices.Clone(r.Parameters)
	m.reports[r.ID] = memRow[domain.TestReport]{value: r, seq: m.seqFor(prev.seq, ok)}
	return nil
}

func (m *MemoryStore) GetTestReport(_ context.Context, id string) (domain.TestReport, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.reports[id]
	return row.value, ok, nil
}

func (m *MemoryStore) ListTestReports(_ context.Context, q TestReportQuery) ([]domain.TestReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	category := strings.TrimSpace(q.Category)
	search := strings.ToLower(strings.TrimSpace(q.Search))
	rows := make([]memRow[domain.TestReport], 0, len(m.reports))
	for _, row := range m.reports {
		r := row.value
		if q.PublicOnly && !r.IsPublic {
			continue
		}
		if category != "" && (r.Category == nil || *r.Category != category) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(r.Title), search) &&
			(r.Description == nil || !strings.Contains(strings.ToLower(*r.Description), search)) {
			continue
		}
		rows = append(rows, row)
	}
	return newestFirst(rows, func(r domain.TestReport) time.Time { return r.CreatedAt }), nil
}

func (m *MemoryStore) DeleteTestReport(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reports, id)
	return nil
}

func (m *MemoryStore) CountTestReports(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.reports)), nil
}

func (m *MemoryStore) SaveInquiry(_ context.Context, inq domain.ContactInquiry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.inquiries[inq.ID]
	m.inquiries[inq.ID] = memRow[domain.ContactInquiry]{value: inq, seq: m.seqFor(prev.seq, ok)}
	return nil
}

func (m *MemoryStore) ListInquiries(_ context.Context, q InquiryQuery) ([]domain.ContactInquiry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := make([]memRow[domain.ContactInquiry], 0, len(m.inquiries))
	for _, row := range m.inquiries {
		if q.UnreadOnly && row.value.IsRead {
			continue
		}
		rows = append(rows, row)
	}
	return newestFirst(rows, func(inq domain.ContactInquiry) time.Time { return inq.CreatedAt }), nil
}

func (m *MemoryStore) SetInquiryRead(_ context.Context, id string, read bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.inquiries[id]
	if !ok {
		return false, nil
	}
	row.value.IsRead = read
	m.inquiries[id] = row
	return true, nil
}

func (m *MemoryStore) DeleteInquiry(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inquiries, id)
	return nil
}

func (m *MemoryStore) CountInquiries(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.inquiries)), nil
}

func (m *MemoryStore) SaveRole(_ context.Context, role domain.UserRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveRoleLocked(role)
	return nil
}

func (m *MemoryStore) saveRoleLocked(role domain.UserRole) bool {
	for _, existing := range m.roles {
		if existing.UserID == role.UserID && existing.Role == role.Role {
			return false
		}
	}
	m.roles = append(m.roles, role)
	return true
}

func (m *MemoryStore) ListRoles(_ context.Context, userID string) ([]domain.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.Role
	for _, role := range m.roles {
		if role.UserID == userID {
			res = append(res, role.Role)
		}
	}
	slices.Sort(res)
	return res, nil
}

func (m *MemoryStore) AssignFirstAdmin(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, role := range m.roles {
		if role.Role == domain.RoleAdmin {
			return false, nil
		}
	}
	return m.saveRoleLocked(domain.UserRole{
		ID:        util.NewID(),
		UserID:    userID,
		Role:      domain.RoleAdmin,
		CreatedAt: time.Now().UTC(),
	}), nil
}

func newestFirst[T any](rows []memRow[T], createdAt func(T) time.Time) []T {
	sort.Slice(rows, func(i, j int) bool {
		ti, tj := createdAt(rows[i].value), createdAt(rows[j].value)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return rows[i].seq > rows[j].seq
	})
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.value)
	}
	return out
}
