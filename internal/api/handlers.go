// Package api exposes an admin/status HTTP surface over a running
// swimguard agent: read access to the member table and a narrow
// operator-facing write path, the way SWIM-derived systems like
// hashicorp/memberlist and serf pair their wire protocol with a control
// surface (SPEC_FULL §3 "An admin/status surface").
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ruvnet/swimguard/internal/agent"
	"github.com/ruvnet/swimguard/internal/dto"
	"github.com/ruvnet/swimguard/internal/errors"
	"github.com/ruvnet/swimguard/internal/middleware"
	"github.com/ruvnet/swimguard/internal/swim"
	"github.com/ruvnet/swimguard/internal/validation"
	"github.com/ruvnet/swimguard/pkg/metrics"
)

// suspectRequestsPerMinute and suspectBurst throttle /suspect harder than the
// blanket per-IP limit: it forces a real protocol state transition, so it
// gets its own tighter endpoint-level bucket on top of middleware.RateLimit.
const (
	suspectRequestsPerMinute = 10
	suspectBurst             = 3
)

// Handler serves the admin/status API for one agent.
type Handler struct {
	agent     *agent.Agent
	metrics   *metrics.Metrics
	validator *validation.Validator
	logger    *zap.Logger
}

// NewHandler creates a new admin API handler.
func NewHandler(a *agent.Agent, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		agent:     a,
		metrics:   m,
		validator: validation.NewValidator(),
		logger:    logger,
	}
}

// SetupRoutes configures the admin API's routes.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/metrics", h.Metrics)
	router.GET("/status", h.Status)
	router.GET("/members", h.Members)
	router.POST("/join", h.Join)
	router.POST("/suspect", middleware.EndpointRateLimit(suspectRequestsPerMinute, suspectBurst), h.Suspect)
	router.POST("/config", h.UpdateConfig)
}

// Health reports process liveness. Always public (see middleware.Auth's
// publicPaths), so orchestrators can probe it without a token.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "healthy", Timestamp: time.Now()})
}

// Metrics serves the Prometheus scrape endpoint. Also public, same
// reasoning as Health.
func (h *Handler) Metrics(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Status reports the full cluster snapshot as seen by this node.
func (h *Handler) Status(c *gin.Context) {
	snap := h.agent.Engine().Snapshot()
	c.JSON(http.StatusOK, dto.ClusterStatusResponse{
		Self:                  snap.Self.String(),
		Incarnation:           uint64(snap.Incarnation),
		ProtocolPeriod:        snap.ProtocolPeriod,
		LocalHealthMultiplier: snap.LHM,
		ProbeListSize:         snap.ProbeListSize,
		MemberCount:           len(snap.Members),
		Members:               toMemberResponses(snap.Members),
	})
}

// Members reports only the member table, for callers that don't need the
// rest of the snapshot.
func (h *Handler) Members(c *gin.Context) {
	c.JSON(http.StatusOK, toMemberResponses(h.agent.Engine().AllMembers()))
}

// Join seeds addr into the member table as Alive{0}.
func (h *Handler) Join(c *gin.Context) {
	var req dto.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.validationFailed(c, err)
		return
	}

	h.agent.Join(req.Addr)
	c.JSON(http.StatusOK, gin.H{"addr": req.Addr, "joined": true})
}

// Suspect marks a known member Suspect without waiting for a missed probe.
func (h *Handler) Suspect(c *gin.Context) {
	var req dto.ForceSuspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.validationFailed(c, err)
		return
	}

	result, ok := h.agent.Engine().ForceSuspect(swim.Node{Addr: req.Addr})
	if !ok {
		apiErr := errors.NewUnknownMemberError(req.Addr)
		c.JSON(apiErr.HTTPStatus(), apiErr)
		return
	}

	h.logger.Info("member force-suspected via admin API",
		zap.String("addr", req.Addr),
		zap.String("status", result.Current.Kind.String()))
	c.JSON(http.StatusOK, gin.H{"addr": req.Addr, "status": result.Current.Kind.String()})
}

// UpdateConfig adjusts a single runtime-tunable Lifeguard parameter.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var req dto.ConfigUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.validationFailed(c, err)
		return
	}

	engine := h.agent.Engine()
	switch req.Key {
	case "max_local_health_multiplier":
		engine.SetMaxLocalHealthMultiplier(req.Value)
	case "max_independent_suspicions":
		engine.SetMaxIndependentSuspicions(req.Value)
	case "disable_unreachable_phase":
		engine.SetDisableUnreachablePhase(req.Value != 0)
	default:
		apiErr := errors.NewInvalidConfigError("unknown key: " + req.Key)
		c.JSON(apiErr.HTTPStatus(), apiErr)
		return
	}

	h.logger.Info("runtime config updated", zap.String("key", req.Key), zap.Int("value", req.Value))
	c.JSON(http.StatusOK, gin.H{"key": req.Key, "value": req.Value})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	apiErr := errors.WrapError(err, errors.BadRequest, "invalid request body")
	c.JSON(apiErr.HTTPStatus(), apiErr)
}

func (h *Handler) validationFailed(c *gin.Context, err error) {
	apiErr := errors.NewValidationError(err.Error())
	c.JSON(apiErr.HTTPStatus(), apiErr)
}

func toMemberResponses(members []swim.Member) []dto.MemberResponse {
	out := make([]dto.MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, dto.MemberResponse{
			Addr:                  m.Peer.Addr,
			Gen:                   m.Peer.Gen,
			Status:                m.Status.Kind.String(),
			Incarnation:           uint64(m.Status.Incarnation),
			SuspectedByCount:      len(m.Status.SuspectedBy),
			ProtocolPeriodUpdated: m.ProtocolPeriod,
		})
	}
	return out
}
