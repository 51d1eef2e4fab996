package llm

import (
	"fmt"

	"github.com/yungbote/replygen-backend/internal/domain/chat"
)

// Selection is the backend chosen for an assistant together with the
// catalog entry describing it.
type Selection struct {
	Backend Backend
	Spec    BackendSpec
}

type Selector struct {
	catalog *Catalog
	drivers map[string]Backend
}

func NewSelector(catalog *Catalog, drivers map[string]Backend) *Selector {
	return &Selector{catalog: catalog, drivers: drivers}
}

// For picks the backend for an assistant. An API service override names its
// driver explicitly; otherwise the model name is matched against the catalog.
func (s *Selector) For(a *chat.Assistant) (Selection, error) {
	if a == nil {
		return Selection{}, fmt.Errorf("missing assistant")
	}
	spec := s.catalog.Match(a.Model())
	if a.APIService != nil && a.APIService.Driver != "" {
		override, ok := s.catalog.ByDriver(a.APIService.Driver)
		if !ok {
			return Selection{}, fmt.Errorf("api service %s: unknown driver %q", a.APIService.ID, a.APIService.Driver)
		}
		spec = override
	}
	b, ok := s.drivers[spec.Driver]
	if !ok || b == nil {
		return Selection{}, fmt.Errorf("no backend registered for driver %q", spec.Driver)
	}
	return Selection{Backend: b, Spec: spec}, nil
}
