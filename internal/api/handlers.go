package api

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/passbi/passbi_planner/internal/apperrors"
	"github.com/passbi/passbi_planner/internal/knowledge"
	"github.com/passbi/passbi_planner/internal/models"
	"github.com/passbi/passbi_planner/internal/query"
	"github.com/passbi/passbi_planner/internal/routing"
)

// Planner synthesizes multi-modal plans
type Planner interface {
	PlanAll(ctx context.Context, originText, destinationText string) (*models.Plan, error)
	PlanMode(ctx context.Context, originText, destinationText string, mode models.Mode) (*models.RouteResult, error)
}

// Ingester turns route results into retrievable knowledge
type Ingester interface {
	Ingest(ctx context.Context, r *models.RouteResult) (int, error)
}

// Answerer answers questions within a conversation
type Answerer interface {
	Query(ctx context.Context, conv *query.Conversation, req query.Request) string
}

// PlanCache memoizes plans by origin and destination
type PlanCache interface {
	GetOrCompute(ctx context.Context, origin, destination string, compute func(context.Context) (*models.Plan, error)) (*models.Plan, bool, error)
}

// HealthCheck reports the state of one dependency
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators a Handler serves requests with
type Deps struct {
	Planner    Planner
	Ingester   Ingester
	Engine     Answerer
	Sessions   *query.SessionStore
	Cache      PlanCache              // optional
	Checks     map[string]HealthCheck // optional
	AutoIngest bool
}

// Handler serves the planner HTTP API
type Handler struct {
	deps     Deps
	validate *validator.Validate
}

// NewHandler creates a handler from its dependencies
func NewHandler(deps Deps) *Handler {
	if deps.Sessions == nil {
		deps.Sessions = query.NewSessionStore(0)
	}
	return &Handler{
		deps:     deps,
		validate: validator.New(),
	}
}

// Register mounts every route on app. limiter guards the query endpoint and may be nil.
func (h *Handler) Register(app *fiber.App, limiter fiber.Handler) {
	app.Get("/health", h.Health)

	v1 := app.Group("/v1")
	v1.Post("/plan", h.Plan)
	v1.Post("/ingest", h.Ingest)
	if limiter != nil {
		v1.Post("/query", limiter, h.Query)
	} else {
		v1.Post("/query", h.Query)
	}
	v1.Delete("/sessions/:id", h.DeleteSession)
}

// PlanRequest is the body of POST /v1/plan
type PlanRequest struct {
	Origin      string `json:"origin" validate:"required,max=256"`
	Destination string `json:"destination" validate:"required,max=256"`
}

// PlanResponse is the API view of a plan
type PlanResponse struct {
	Origin        models.Location            `json:"origin"`
	Destination   models.Location            `json:"destination"`
	Routes        map[models.Mode]*RouteView `json:"routes"`
	Unavailable   []models.Mode              `json:"unavailable"`
	Cached        bool                       `json:"cached"`
	IngestedUnits int                        `json:"ingested_units"`
}

// RouteView is a route with display-ready figures
type RouteView struct {
	Mode                models.Mode   `json:"mode"`
	DistanceKm          float64       `json:"distance_km"`
	DistanceMiles       float64       `json:"distance_miles"`
	Distance            string        `json:"distance"`
	DurationSeconds     int           `json:"duration_seconds"`
	Duration            string        `json:"duration"`
	Estimated           bool          `json:"estimated"`
	EstimatedCost       float64       `json:"estimated_cost"`
	EnvironmentalImpact string        `json:"environmental_impact,omitempty"`
	BestFor             []string      `json:"best_for,omitempty"`
	Steps               []models.Step `json:"steps"`
}

// Plan handles POST /v1/plan
func (h *Handler) Plan(c *fiber.Ctx) error {
	var req PlanRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	compute := func(ctx context.Context) (*models.Plan, error) {
		return h.deps.Planner.PlanAll(ctx, req.Origin, req.Destination)
	}

	var (
		plan   *models.Plan
		cached bool
		err    error
	)
	if h.deps.Cache != nil {
		plan, cached, err = h.deps.Cache.GetOrCompute(ctx, req.Origin, req.Destination, compute)
	} else {
		plan, err = compute(ctx)
	}
	if err != nil {
		return err
	}

	// Cached plans were ingested when first computed
	ingested := 0
	if h.deps.AutoIngest && !cached {
		ingested = h.ingestPlan(ctx, plan)
	}

	resp := PlanResponse{
		Origin:        plan.Origin,
		Destination:   plan.Destination,
		Routes:        make(map[models.Mode]*RouteView, len(plan.Routes)),
		Unavailable:   plan.Unavailable,
		Cached:        cached,
		IngestedUnits: ingested,
	}
	if resp.Unavailable == nil {
		resp.Unavailable = []models.Mode{}
	}
	for mode, r := range plan.Routes {
		resp.Routes[mode] = newRouteView(r)
	}

	return c.JSON(resp)
}

func (h *Handler) ingestPlan(ctx context.Context, plan *models.Plan) int {
	if h.deps.Ingester == nil {
		return 0
	}

	total := 0
	for _, mode := range models.AllModes() {
		r, ok := plan.Routes[mode]
		if !ok {
			continue
		}
		n, err := h.deps.Ingester.Ingest(ctx, r)
		if err != nil {
			log.Printf("Failed to ingest %s route: %v", mode, err)
			continue
		}
		total += n
	}
	return total
}

func newRouteView(r *models.RouteResult) *RouteView {
	view := &RouteView{
		Mode:            r.Mode,
		DistanceKm:      r.DistanceKm,
		DistanceMiles:   r.DistanceKm / knowledge.KmPerMile,
		Distance:        knowledge.FormatDistance(r.DistanceKm),
		DurationSeconds: r.DurationSeconds,
		Duration:        knowledge.FormatDuration(r.DurationSeconds),
		Estimated:       r.Estimated,
		EstimatedCost:   r.EstimatedCost,
		Steps:           r.Steps,
	}
	if view.Steps == nil {
		view.Steps = []models.Step{}
	}
	if p, ok := routing.GetProfile(r.Mode); ok {
		view.EnvironmentalImpact = p.EnvironmentalImpact
		view.BestFor = p.BestFor
	}
	return view
}

// IngestRequest is the body of POST /v1/ingest
type IngestRequest struct {
	Origin      string `json:"origin" validate:"required,max=256"`
	Destination string `json:"destination" validate:"required,max=256"`
	Mode        string `json:"mode" validate:"max=32"`
}

// Ingest handles POST /v1/ingest. Unknown or missing modes fall back to car.
func (h *Handler) Ingest(c *fiber.Ctx) error {
	var req IngestRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}
	if h.deps.Ingester == nil {
		return apperrors.Newf(apperrors.InternalError, "knowledge store not configured")
	}

	ctx := c.UserContext()
	mode := models.ParseMode(req.Mode, models.ModeCar)

	route, err := h.deps.Planner.PlanMode(ctx, req.Origin, req.Destination, mode)
	if err != nil {
		return err
	}

	n, err := h.deps.Ingester.Ingest(ctx, route)
	if err != nil {
		return apperrors.New(apperrors.RetrievalOrModelError, "failed to store route knowledge", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"mode":  mode,
		"units": n,
		"route": newRouteView(route),
	})
}

// QueryRequest is the body of POST /v1/query
type QueryRequest struct {
	Question            string       `json:"question" validate:"required,max=2000"`
	TransportPreference string       `json:"transport_preference" validate:"max=32"`
	UserLocation        string       `json:"user_location" validate:"max=256"`
	SessionID           string       `json:"session_id" validate:"max=64"`
	Route               *RouteFilter `json:"route,omitempty"`
}

// RouteFilter restricts retrieval to one ingested route
type RouteFilter struct {
	Origin      string `json:"origin" validate:"required"`
	Destination string `json:"destination" validate:"required"`
	Mode        string `json:"mode" validate:"required"`
}

// QueryResponse is the answer plus the session to continue with
type QueryResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
}

// Query handles POST /v1/query
func (h *Handler) Query(c *fiber.Ctx) error {
	var req QueryRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}

	qr := query.Request{
		Text:                req.Question,
		TransportPreference: req.TransportPreference,
		UserLocation:        req.UserLocation,
	}
	if req.Route != nil {
		mode, ok := models.LookupMode(req.Route.Mode)
		if !ok {
			return apperrors.Newf(apperrors.InvalidRequest, "unknown route mode %q", req.Route.Mode).
				WithDetails([]FieldError{{Field: "Mode", Rule: "mode"}})
		}
		qr.Route = &models.RouteKey{
			Origin:      req.Route.Origin,
			Destination: req.Route.Destination,
			Mode:        mode,
		}
	}

	conv := h.deps.Sessions.Get(req.SessionID)

	answer := h.deps.Engine.Query(c.UserContext(), conv, qr)

	return c.JSON(QueryResponse{
		Answer:    answer,
		SessionID: conv.ID,
	})
}

// DeleteSession handles DELETE /v1/sessions/:id
func (h *Handler) DeleteSession(c *fiber.Ctx) error {
	if !h.deps.Sessions.Delete(c.Params("id")) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "session not found",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Health handles the /health endpoint
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	status := "healthy"
	httpStatus := fiber.StatusOK
	checks := fiber.Map{}

	for name, check := range h.deps.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = "unhealthy"
			httpStatus = fiber.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":   status,
		"checks":   checks,
		"sessions": h.deps.Sessions.Len(),
	})
}

// parse decodes the JSON body into out and validates it
func (h *Handler) parse(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.New(apperrors.InvalidRequest, "invalid request body", err)
	}
	if err := h.validate.Struct(out); err != nil {
		return apperrors.New(apperrors.InvalidRequest, "request validation failed", err).
			WithDetails(validationDetails(err))
	}
	return nil
}
