package server

import (
	"net/http"

	"connectrpc.com/authn"
	"connectrpc.com/connect"
	"github.com/wolfeidau/tenancy/internal/engine"
	"github.com/wolfeidau/tenancy/internal/rpc"
)

// Server wires the organization and project services to an engine.
type Server struct {
	orgServer     *OrganizationServiceServer
	projectServer *ProjectServiceServer
	authFunc      authn.AuthFunc
}

// NewServer creates a new server. authFunc resolves the caller of every RPC.
func NewServer(eng *engine.Engine, authFunc authn.AuthFunc) *Server {
	return &Server{
		orgServer:     NewOrganizationServiceServer(eng),
		projectServer: NewProjectServiceServer(eng),
		authFunc:      authFunc,
	}
}

// Handler returns the HTTP handler serving /health and both services.
// RPC paths require authentication, /health does not.
func (s *Server) Handler(interceptors ...connect.Interceptor) http.Handler {
	mux := http.NewServeMux()
	s.Register(mux, interceptors...)
	return mux
}

// Register mounts /health and both services on mux.
func (s *Server) Register(mux *http.ServeMux, interceptors ...connect.Interceptor) {
	// Health check endpoint for load balancer
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	authMiddleware := authn.NewMiddleware(s.authFunc)
	opts := connect.WithInterceptors(interceptors...)

	orgPath, orgHandler := rpc.NewOrganizationServiceHandler(s.orgServer, opts)
	mux.Handle(orgPath, authMiddleware.Wrap(orgHandler))

	projectPath, projectHandler := rpc.NewProjectServiceHandler(s.projectServer, opts)
	mux.Handle(projectPath, authMiddleware.Wrap(projectHandler))
}
