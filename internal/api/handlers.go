package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/darmiel/idtoken/internal/api/presenter"
	"github.com/darmiel/idtoken/internal/buildinfo"
	"github.com/darmiel/idtoken/internal/core"
	"github.com/darmiel/idtoken/internal/service"
)

type MintPayload struct {
	UID      string         `json:"uid"`
	Claims   map[string]any `json:"claims,omitempty"`
	TenantID string         `json:"tenant_id,omitempty"`
}

type AboutResult struct {
	Build   buildinfo.Info  `json:"build"`
	Service service.Summary `json:"service"`
}

type MintResult struct {
	Token     string `json:"token"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}

type VerifyPayload struct {
	// Token is the ID token or session cookie to verify.
	Token string `json:"token"`
}

type VerifyResult struct {
	Token *core.DecodedToken `json:"token"`

	// Claims are the developer claims of the token.
	Claims map[string]any `json:"claims,omitempty"`
}

func DecodePayload(r *http.Request, dest any, allowEmpty bool) error {
	switch r.Header.Get("Content-Type") {
	case "application/json", "":
		// strict encoding for JSON
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(dest); err != nil {
			if !errors.Is(err, io.EOF) || !allowEmpty {
				return err
			}
		}
		// ensure there's no extra data
		if dec.More() {
			return errors.New("extra data in request body")
		}
		return nil
	default:
		return errors.New("unsupported content type")
	}
}

// handleHealth responds with a simple OK status to indicate the server is healthy.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleAbout responds with the build info and what the auth service is configured to do.
func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, AboutResult{
		Build:   buildinfo.GetBuildInfo(),
		Service: s.svc.Summary(),
	}, http.StatusOK)
}

// handleCreateCustomToken mints a custom token for the uid in the payload.
func (s *Server) handleCreateCustomToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload MintPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode mint request payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("uid", payload.UID)
	})

	result, err := s.svc.CreateCustomToken(ctx, service.MintRequest{
		UID:      payload.UID,
		Claims:   payload.Claims,
		TenantID: payload.TenantID,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("custom token minting failed")
		presenter.Err(w, r, err)
		return
	}

	logger.Info().Msg("custom token minted")
	presenter.JSON(w, r, MintResult{
		Token:     result.Token,
		IssuedAt:  result.IssuedAt,
		ExpiresAt: result.ExpiresAt,
	}, http.StatusCreated)
}

func (s *Server) handleVerifyIDToken(w http.ResponseWriter, r *http.Request) {
	s.handleVerify(w, r, (*service.AuthService).VerifyIDToken)
}

func (s *Server) handleVerifySessionCookie(w http.ResponseWriter, r *http.Request) {
	s.handleVerify(w, r, (*service.AuthService).VerifySessionCookie)
}

type verifyFunc func(svc *service.AuthService, ctx context.Context, token string, checkRevoked bool) (*core.DecodedToken, error)

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request, verify verifyFunc) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload VerifyPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode verify request payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	checkRevoked := false
	if v := q.Get(CheckRevokedParam); v != "" {
		var err error
		if checkRevoked, err = strconv.ParseBool(v); err != nil {
			presenter.Error(w, r, "invalid "+CheckRevokedParam+" parameter", http.StatusBadRequest)
			return
		}
	}

	svc, err := s.svc.ScopedTo(q.Get(TenantParam))
	if err != nil {
		logger.Warn().Err(err).Str("tenant", q.Get(TenantParam)).Msg("tenant override rejected")
		presenter.Err(w, r, err)
		return
	}

	decoded, err := verify(svc, ctx, payload.Token, checkRevoked)
	if err != nil {
		logger.Info().Err(err).Msg("verification failed")
		presenter.Err(w, r, err)
		return
	}

	presenter.JSON(w, r, VerifyResult{
		Token:  decoded,
		Claims: decoded.Claims,
	}, http.StatusOK)
}

// handleAdminAudit processes requests to retrieve audit log entries.
func (s *Server) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	// filters
	q := r.URL.Query()
	query := service.AuditQuery{
		Action:        q.Get("action"),
		Subject:       q.Get("subject"),
		CorrelationID: q.Get("correlation_id"),
		Fingerprint:   q.Get("fingerprint"),
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil {
			logger.Warn().Err(err).Str("limit", limitStr).Msg("invalid limit parameter")
			presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		query.Limit = v
	}
	if failed := q.Get("failed"); failed != "" {
		v, err := strconv.ParseBool(failed)
		if err != nil {
			presenter.Error(w, r, "invalid failed parameter", http.StatusBadRequest)
			return
		}
		query.FailedOnly = v
	}

	entries, err := s.svc.ListAudits(query)
	if err != nil {
		logger.Error().Err(err).Msg("failed to retrieve audit logs")
		presenter.Err(w, r, err)
		return
	}

	presenter.JSON(w, r, entries, http.StatusOK)
}

// handleExplain traces the admin rules against the token in the payload.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload VerifyPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode explain request payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	trace, err := s.svc.ExplainAdmin(ctx, payload.Token)
	if err != nil {
		logger.Info().Err(err).Msg("explained token is invalid")
		presenter.Err(w, r, err)
		return
	}

	logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("sub", trace.Subject)
	})
	presenter.JSON(w, r, trace, http.StatusOK)
}
