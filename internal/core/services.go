package core

import (
	"github.com/go-chi/chi/v5"
)

// Service is the interface every HTTP-facing module implements.
// The edge router mounts each service under "/<Name()>".
type Service interface {
	// Name returns the unique identifier for this service (e.g., "media").
	// It doubles as the URL prefix the service is mounted at.
	Name() string

	// RegisterRoutes sets up HTTP routes for this service on the provided router.
	// The router is a sub-router scoped to this service's path prefix.
	RegisterRoutes(router chi.Router)
}

// Registry holds the services an edge router serves.
type Registry struct {
	services []Service
}

// NewRegistry returns a registry pre-populated with services.
func NewRegistry(services ...Service) *Registry {
	r := &Registry{}
	for _, s := range services {
		r.Register(s)
	}
	return r
}

// Register adds a service. Registering a second service with the same name
// replaces the first.
func (r *Registry) Register(s Service) {
	for i, existing := range r.services {
		if existing.Name() == s.Name() {
			r.services[i] = s
			return
		}
	}
	r.services = append(r.services, s)
}

// Services returns the registered services in registration order.
func (r *Registry) Services() []Service {
	return append([]Service(nil), r.services...)
}
