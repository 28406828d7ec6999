package api

import (
	"net/http"

	"github.com/darmiel/idtoken/internal/api/middleware"
	"github.com/darmiel/idtoken/internal/service"
)

type Server struct {
	svc *service.AuthService
}

func NewServer(svc *service.AuthService) *Server {
	return &Server{
		svc: svc,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+AboutRoute, s.handleAbout)

	// token routes
	mux.HandleFunc("POST "+CreateCustomTokenRoute, s.handleCreateCustomToken)
	mux.HandleFunc("POST "+VerifyIDTokenRoute, s.handleVerifyIDToken)
	mux.HandleFunc("POST "+VerifySessionCookieRoute, s.handleVerifySessionCookie)

	// admin routes
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("GET "+ListAuditsRoute, s.handleAdminAudit)
	adminMux.HandleFunc("POST "+ExplainRoute, s.handleExplain)
	mux.Handle(AdminParent, middleware.AdminAuth(s.svc)(adminMux))

	return middleware.CorrelationIDMiddleware(
		middleware.LoggingMiddleware(HealthCheckRoute)(
			middleware.RecoverMiddleware(
				mux)))
}
