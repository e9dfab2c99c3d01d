package netflow

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultTemplateExpiry is how long a template may stay unused before it is dropped.
const DefaultTemplateExpiry = 30 * time.Minute

// TemplateKey identifies a template. NetFlow v9 leaves ObservationDomainId at zero.
type TemplateKey struct {
	ExporterId          uint32 `json:"exporter-id"`
	ObservationDomainId uint32 `json:"observation-domain-id"`
	TemplateId          uint16 `json:"template-id"`
}

func (k TemplateKey) String() string {
	return fmt.Sprintf("%d/%d/%d", k.ExporterId, k.ObservationDomainId, k.TemplateId)
}

// Template is a registered layout of data records.
type Template struct {
	TemplateId uint16    `json:"template-id"`
	Fields     []Field   `json:"fields"`
	CreatedAt  time.Time `json:"created-at"`
	LastUsedAt time.Time `json:"last-used-at"`
}

// FieldsLength is the sum of the field lengths, without padding.
func (t Template) FieldsLength() int {
	var sum int
	for _, field := range t.Fields {
		sum += int(field.Length)
	}
	return sum
}

// RecordSize is the length of one data record rounded up to a multiple of 4.
func (t Template) RecordSize() int {
	return (t.FieldsLength() + 3) &^ 3
}

// TemplateStore holds the templates of one protocol for every exporter.
type TemplateStore interface {
	// AddTemplate inserts or fully replaces a template. It reports whether a
	// previous definition was replaced.
	AddTemplate(key TemplateKey, fields []Field) (replaced bool)
	// GetTemplate returns a live template and refreshes its last use.
	GetTemplate(key TemplateKey) (Template, bool)
	RemoveTemplate(key TemplateKey) bool
	// SweepExpired removes every template unused for longer than the expiry window.
	SweepExpired() []TemplateKey
	GetTemplates() map[TemplateKey]Template
}

type MemoryTemplateStore struct {
	lock      sync.Mutex
	templates map[TemplateKey]*Template
	clock     clock.Clock
	expiry    time.Duration
}

// NewTemplateStore creates an in-memory store. An expiry of zero or less
// disables expiration.
func NewTemplateStore(clk clock.Clock, expiry time.Duration) *MemoryTemplateStore {
	if clk == nil {
		clk = clock.New()
	}
	return &MemoryTemplateStore{
		templates: make(map[TemplateKey]*Template),
		clock:     clk,
		expiry:    expiry,
	}
}

func (s *MemoryTemplateStore) expired(template *Template, now time.Time) bool {
	return s.expiry > 0 && now.Sub(template.LastUsedAt) > s.expiry
}

func (s *MemoryTemplateStore) AddTemplate(key TemplateKey, fields []Field) bool {
	now := s.clock.Now()
	copied := make([]Field, len(fields))
	copy(copied, fields)

	s.lock.Lock()
	defer s.lock.Unlock()
	_, replaced := s.templates[key]
	s.templates[key] = &Template{
		TemplateId: key.TemplateId,
		Fields:     copied,
		CreatedAt:  now,
		LastUsedAt: now,
	}
	return replaced
}

func (s *MemoryTemplateStore) GetTemplate(key TemplateKey) (Template, bool) {
	now := s.clock.Now()

	s.lock.Lock()
	defer s.lock.Unlock()
	template, ok := s.templates[key]
	if !ok {
		return Template{}, false
	}
	if s.expired(template, now) {
		delete(s.templates, key)
		return Template{}, false
	}
	template.LastUsedAt = now
	return *template, true
}

func (s *MemoryTemplateStore) RemoveTemplate(key TemplateKey) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.templates[key]; !ok {
		return false
	}
	delete(s.templates, key)
	return true
}

func (s *MemoryTemplateStore) SweepExpired() []TemplateKey {
	now := s.clock.Now()

	s.lock.Lock()
	defer s.lock.Unlock()
	var removed []TemplateKey
	for key, template := range s.templates {
		if s.expired(template, now) {
			delete(s.templates, key)
			removed = append(removed, key)
		}
	}
	return removed
}

func (s *MemoryTemplateStore) GetTemplates() map[TemplateKey]Template {
	s.lock.Lock()
	defer s.lock.Unlock()
	ret := make(map[TemplateKey]Template, len(s.templates))
	for key, template := range s.templates {
		ret[key] = *template
	}
	return ret
}
