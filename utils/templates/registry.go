// Package templates holds the template stores shared by every flow pipe.
package templates

import (
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/netsampler/trustflow/decoders/netflow"
)

const (
	ProtocolNetFlowV9 = "netflow_v9"
	ProtocolIPFIX     = "ipfix"
)

// StoreWrapper decorates the store created for a protocol.
type StoreWrapper func(protocol string, store netflow.TemplateStore) netflow.TemplateStore

// Registry owns one template store per protocol and the exporter ids that
// scope template keys. Stores are shared by all exporters.
type Registry struct {
	netflowV9 netflow.TemplateStore
	ipfix     netflow.TemplateStore

	lock         sync.RWMutex
	exporterIds  map[netip.Addr]uint32
	exporterAddr map[uint32]netip.Addr
	nextId       uint32
}

// NewRegistry creates empty stores expiring templates unused for expiry.
func NewRegistry(clk clock.Clock, expiry time.Duration, wrapper StoreWrapper) *Registry {
	var netflowV9, ipfix netflow.TemplateStore = netflow.NewTemplateStore(clk, expiry), netflow.NewTemplateStore(clk, expiry)
	if wrapper != nil {
		netflowV9 = wrapper(ProtocolNetFlowV9, netflowV9)
		ipfix = wrapper(ProtocolIPFIX, ipfix)
	}
	return &Registry{
		netflowV9:    netflowV9,
		ipfix:        ipfix,
		exporterIds:  make(map[netip.Addr]uint32),
		exporterAddr: make(map[uint32]netip.Addr),
	}
}

func (r *Registry) NetFlowV9() netflow.TemplateStore {
	return r.netflowV9
}

func (r *Registry) IPFIX() netflow.TemplateStore {
	return r.ipfix
}

// ExporterId returns the id of an exporter address, assigning the next one
// the first time the address is seen.
func (r *Registry) ExporterId(addr netip.Addr) uint32 {
	addr = addr.Unmap()
	r.lock.RLock()
	id, ok := r.exporterIds[addr]
	r.lock.RUnlock()
	if ok {
		return id
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if id, ok := r.exporterIds[addr]; ok {
		return id
	}
	r.nextId++
	r.exporterIds[addr] = r.nextId
	r.exporterAddr[r.nextId] = addr
	return r.nextId
}

func (r *Registry) exporter(id uint32) string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if addr, ok := r.exporterAddr[id]; ok {
		return addr.String()
	}
	return ""
}

// SweepExpired removes expired templates from both stores.
func (r *Registry) SweepExpired() int {
	return len(r.netflowV9.SweepExpired()) + len(r.ipfix.SweepExpired())
}

type FieldEntry struct {
	Name       string `json:"name"`
	Type       uint16 `json:"type"`
	Length     uint16 `json:"length"`
	Enterprise uint32 `json:"enterprise,omitempty"`
}

type TemplateEntry struct {
	Protocol            string       `json:"protocol"`
	Exporter            string       `json:"exporter"`
	ObservationDomainId uint32       `json:"observation_domain_id,omitempty"`
	TemplateId          uint16       `json:"template_id"`
	RecordSize          int          `json:"record_size"`
	CreatedAt           time.Time    `json:"created_at"`
	LastUsedAt          time.Time    `json:"last_used_at"`
	Fields              []FieldEntry `json:"fields"`
}

func (r *Registry) dumpStore(protocol string, version uint16, store netflow.TemplateStore) []TemplateEntry {
	var entries []TemplateEntry
	for key, template := range store.GetTemplates() {
		entry := TemplateEntry{
			Protocol:            protocol,
			Exporter:            r.exporter(key.ExporterId),
			ObservationDomainId: key.ObservationDomainId,
			TemplateId:          key.TemplateId,
			RecordSize:          template.RecordSize(),
			CreatedAt:           template.CreatedAt,
			LastUsedAt:          template.LastUsedAt,
		}
		for _, field := range template.Fields {
			entry.Fields = append(entry.Fields, FieldEntry{
				Name:       netflow.FieldName(version, field),
				Type:       field.Type,
				Length:     field.Length,
				Enterprise: field.Pen,
			})
		}
		entries = append(entries, entry)
	}
	return entries
}

// Dump lists every live template, ordered by protocol, exporter and key.
func (r *Registry) Dump() []TemplateEntry {
	entries := make([]TemplateEntry, 0)
	entries = append(entries, r.dumpStore(ProtocolNetFlowV9, 9, r.netflowV9)...)
	entries = append(entries, r.dumpStore(ProtocolIPFIX, 10, r.ipfix)...)
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Protocol != b.Protocol {
			return a.Protocol < b.Protocol
		}
		if a.Exporter != b.Exporter {
			return a.Exporter < b.Exporter
		}
		if a.ObservationDomainId != b.ObservationDomainId {
			return a.ObservationDomainId < b.ObservationDomainId
		}
		return a.TemplateId < b.TemplateId
	})
	return entries
}
