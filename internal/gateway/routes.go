package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/soyeahso/gork/internal/version"
)

const rpcTimeout = 10 * time.Second

func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("/", handleNotFound)
}

func (s *Server) registerRPCHandlers() {
	s.Handle("health", s.rpcHealth)
	s.Handle("status", s.rpcStatus)
	s.Handle("channels.status", s.rpcChannelsStatus)
	s.Handle("ratelimit.get", s.rpcRateLimitGet)
	s.Handle("ratelimit.reset", s.rpcRateLimitReset)
}

func (s *Server) rpcHealth(rc *RequestContext) {
	rc.Respond(HealthResponse{
		Status:  "ok",
		Version: s.version,
		Clients: s.clients.Count(),
	})
}

// StatusResponse summarizes the running bot.
type StatusResponse struct {
	Version       string   `json:"version"`
	Commit        string   `json:"commit"`
	UptimeSeconds float64  `json:"uptimeSeconds"`
	Clients       int      `json:"clients"`
	Channels      int      `json:"channels"`
	Model         string   `json:"model"`
	Fallbacks     []string `json:"fallbacks,omitempty"`
	Streaming     bool     `json:"streaming"`
	TestingMode   bool     `json:"testingMode"`
	RateAllowed   int      `json:"rateAllowed"`
	RateInterval  string   `json:"rateInterval"`
}

func (s *Server) rpcStatus(rc *RequestContext) {
	resp := StatusResponse{
		Version:     s.version,
		Commit:      version.Short(),
		Clients:     s.clients.Count(),
		Model:       s.cfg.AI.Model,
		Fallbacks:   s.cfg.AI.FallbackModels,
		Streaming:   s.cfg.Bot.StreamOutput,
		TestingMode: s.cfg.AI.TestingMode,
	}
	if !s.startedAt.IsZero() {
		resp.UptimeSeconds = time.Since(s.startedAt).Seconds()
	}
	if s.channels != nil {
		resp.Channels = s.channels.Count()
	}
	if s.limiter != nil {
		lc := s.limiter.Config()
		resp.RateAllowed = lc.Allowed
		resp.RateInterval = lc.Interval.String()
	}
	rc.Respond(resp)
}

func (s *Server) rpcChannelsStatus(rc *RequestContext) {
	if s.channels == nil {
		rc.Respond(map[string]any{"channels": []any{}})
		return
	}
	rc.Respond(map[string]any{"channels": s.channels.Status()})
}

type rateLimitParams struct {
	UserID string `json:"userId"`
}

func (s *Server) rateLimitUser(rc *RequestContext) (string, bool) {
	if s.limiter == nil {
		rc.RespondError("unavailable", "rate limiter not configured")
		return "", false
	}
	var p rateLimitParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return "", false
	}
	if p.UserID == "" {
		rc.RespondError("invalid_params", "userId is required")
		return "", false
	}
	return p.UserID, true
}

func (s *Server) rpcRateLimitGet(rc *RequestContext) {
	userID, ok := s.rateLimitUser(rc)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	st, found, err := s.limiter.Get(ctx, userID)
	if err != nil {
		rc.RespondError("store_error", err.Error())
		return
	}
	resp := map[string]any{"userId": userID, "found": found}
	if found {
		resp["count"] = st.Count
		resp["windowStart"] = st.WindowStart
		resp["remaining"] = max(s.limiter.Config().Allowed-st.Count, 0)
	}
	rc.Respond(resp)
}

func (s *Server) rpcRateLimitReset(rc *RequestContext) {
	userID, ok := s.rateLimitUser(rc)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	if err := s.limiter.Reset(ctx, userID); err != nil {
		rc.RespondError("store_error", err.Error())
		return
	}
	s.log.Info().Str("user", userID).Str("conn_id", rc.Client.ConnID).Msg("rate limit reset")
	rc.Respond(map[string]any{"userId": userID, "reset": true})
}
