package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/netsampler/trustflow/decoders/netflow"
)

// PromTemplateStore keeps the template gauge of a protocol in line with the
// wrapped store and counts template events.
type PromTemplateStore struct {
	protocol string
	wrapped  netflow.TemplateStore
}

// PromTemplateWrapper matches templates.StoreWrapper.
func PromTemplateWrapper(protocol string, wrapped netflow.TemplateStore) netflow.TemplateStore {
	return NewPromTemplateStore(protocol, wrapped)
}

func NewPromTemplateStore(protocol string, wrapped netflow.TemplateStore) *PromTemplateStore {
	s := &PromTemplateStore{
		protocol: protocol,
		wrapped:  wrapped,
	}
	s.refresh()
	return s
}

func (s *PromTemplateStore) event(event string, count int) {
	if count == 0 {
		return
	}
	NetFlowTemplateEvents.With(
		prometheus.Labels{
			"protocol": s.protocol,
			"event":    event,
		}).
		Add(float64(count))
}

func (s *PromTemplateStore) refresh() {
	NetFlowTemplatesStats.With(
		prometheus.Labels{
			"protocol": s.protocol,
		}).
		Set(float64(len(s.wrapped.GetTemplates())))
}

func (s *PromTemplateStore) AddTemplate(key netflow.TemplateKey, fields []netflow.Field) bool {
	replaced := s.wrapped.AddTemplate(key, fields)
	if replaced {
		s.event("replaced", 1)
	} else {
		s.event("added", 1)
		s.refresh()
	}
	return replaced
}

func (s *PromTemplateStore) GetTemplate(key netflow.TemplateKey) (netflow.Template, bool) {
	template, ok := s.wrapped.GetTemplate(key)
	if !ok {
		// a miss may have removed an expired template
		s.refresh()
	}
	return template, ok
}

func (s *PromTemplateStore) RemoveTemplate(key netflow.TemplateKey) bool {
	removed := s.wrapped.RemoveTemplate(key)
	if removed {
		s.event("withdrawn", 1)
		s.refresh()
	}
	return removed
}

func (s *PromTemplateStore) SweepExpired() []netflow.TemplateKey {
	expired := s.wrapped.SweepExpired()
	if len(expired) > 0 {
		s.event("expired", len(expired))
		s.refresh()
	}
	return expired
}

func (s *PromTemplateStore) GetTemplates() map[netflow.TemplateKey]netflow.Template {
	return s.wrapped.GetTemplates()
}
