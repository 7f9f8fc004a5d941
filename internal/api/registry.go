package api

import (
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

// Group is a CLI command group such as "books" or "books export".
// Endpoints registered in a group get their commands nested under it.
type Group struct {
	Path  string
	Short string
}

type entry struct {
	ep    Endpoint
	group string
}

// Registry holds all registered endpoints and the CLI group of each.
type Registry struct {
	entries []entry
	groups  map[string]Group
}

// NewRegistry creates a new endpoint registry.
func NewRegistry() *Registry {
	return &Registry{groups: make(map[string]Group)}
}

// Register adds endpoints whose commands sit directly under the api command.
func (r *Registry) Register(eps ...Endpoint) {
	for _, ep := range eps {
		r.entries = append(r.entries, entry{ep: ep})
	}
}

// RegisterGroup adds endpoints whose commands sit under g.
func (r *Registry) RegisterGroup(g Group, eps ...Endpoint) {
	g.Path = strings.Join(strings.Fields(g.Path), " ")
	if _, ok := r.groups[g.Path]; !ok || g.Short != "" {
		r.groups[g.Path] = g
	}
	for _, ep := range eps {
		r.entries = append(r.entries, entry{ep: ep, group: g.Path})
	}
}

// RegisterRoutes registers all endpoint HTTP routes with the given mux, in
// registration order. initMiddleware wraps handlers that require full server
// initialization.
func (r *Registry) RegisterRoutes(mux *http.ServeMux, initMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	for _, e := range r.entries {
		method, path, handler := e.ep.Route()
		if e.ep.RequiresInit() {
			handler = initMiddleware(handler)
		}
		mux.HandleFunc(method+" "+path, handler)
	}
}

// AddCommands attaches every endpoint command to root, creating group
// commands on first use. getServerURL is called when a command runs, after
// flags are parsed.
func (r *Registry) AddCommands(root *cobra.Command, getServerURL func() string) {
	made := map[string]*cobra.Command{"": root}
	var parent func(path string) *cobra.Command
	parent = func(path string) *cobra.Command {
		if c, ok := made[path]; ok {
			return c
		}
		up, name := "", path
		if i := strings.LastIndexByte(path, ' '); i >= 0 {
			up, name = path[:i], path[i+1:]
		}
		c := &cobra.Command{Use: name, Short: r.groups[path].Short}
		parent(up).AddCommand(c)
		made[path] = c
		return c
	}

	for _, e := range r.entries {
		if cmd := e.ep.Command(getServerURL); cmd != nil {
			parent(e.group).AddCommand(cmd)
		}
	}
}

// Endpoints returns all registered endpoints.
func (r *Registry) Endpoints() []Endpoint {
	eps := make([]Endpoint, len(r.entries))
	for i, e := range r.entries {
		eps[i] = e.ep
	}
	return eps
}
