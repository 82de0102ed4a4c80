package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/indoor-mall-nav/navign-sub000/internal/pathfind"
	"github.com/indoor-mall-nav/navign-sub000/internal/router"
)

var (
	errMissingRouteQuery = errors.New("httpapi: start and end query parameters are required")
	errMissingPathQuery  = errors.New("httpapi: start_x, start_y, end_x and end_y query parameters must be valid floats")
)

// RoutingMetrics records router/pathfind query latency (spec §4.8/§4.9).
// *navignmetrics.Collector implements this; nil is replaced with a no-op.
type RoutingMetrics interface {
	ObserveRouteQuery(seconds float64)
	ObservePathQuery(backend string, seconds float64)
}

type noopRoutingMetrics struct{}

func (noopRoutingMetrics) ObserveRouteQuery(float64)        {}
func (noopRoutingMetrics) ObservePathQuery(string, float64) {}

// RoutingHandler exposes the inter-area router (C9) and intra-area
// pathfinder (C10) query surface over HTTP.
type RoutingHandler struct {
	routers    *router.Registry
	pathfinder *pathfind.Registry
	metrics    RoutingMetrics
	now        func() time.Time
}

// NewRoutingHandler returns a RoutingHandler backed by routers and
// pathfinder. metrics may be nil.
func NewRoutingHandler(routers *router.Registry, pathfinder *pathfind.Registry, metrics RoutingMetrics) *RoutingHandler {
	if metrics == nil {
		metrics = noopRoutingMetrics{}
	}
	return &RoutingHandler{routers: routers, pathfinder: pathfinder, metrics: metrics, now: time.Now}
}

// Register binds the router/pathfind query routes onto mux.
func (h *RoutingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/entities/{entity}/route", h.route)
	mux.HandleFunc("GET /api/entities/{entity}/areas/{area}/path", h.path)
}

type routeStep struct {
	AreaID       string `json:"area_id"`
	ConnectionID string `json:"connection_id,omitempty"`
}

type routeInstruction struct {
	Kind           string  `json:"kind"`
	AreaID         string  `json:"area_id"`
	ConnectionID   string  `json:"connection_id,omitempty"`
	ConnectionKind string  `json:"connection_kind,omitempty"`
	Distance       float64 `json:"distance"`
}

type routeResponse struct {
	Steps        []routeStep        `json:"steps"`
	Instructions []routeInstruction `json:"instructions"`
}

// allowQuery reports a Limits boolean flag: present and absent both
// default to allowed, only an explicit "false" disables the mode.
func allowQuery(q map[string][]string, name string) bool {
	v, ok := q[name]
	if !ok || len(v) == 0 {
		return true
	}
	return v[0] != "false"
}

func (h *RoutingHandler) route(w http.ResponseWriter, r *http.Request) {
	if _, ok := UserIDFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, ErrMissingBearerToken)
		return
	}

	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, errMissingRouteQuery)
		return
	}
	limits := router.Limits{
		AllowElevator:  allowQuery(q, "allow_elevator"),
		AllowStairs:    allowQuery(q, "allow_stairs"),
		AllowEscalator: allowQuery(q, "allow_escalator"),
	}

	graph, err := h.routers.Get(r.PathValue("entity"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	began := h.now()
	steps, err := graph.Route(start, end, limits)
	h.metrics.ObserveRouteQuery(h.now().Sub(began).Seconds())
	if err != nil {
		writeError(w, statusForRoutingError(err), err)
		return
	}

	resp := routeResponse{Steps: make([]routeStep, len(steps))}
	for i, s := range steps {
		resp.Steps[i] = routeStep{AreaID: s.AreaID, ConnectionID: s.ConnectionID}
	}
	for _, ins := range graph.Instructions(steps) {
		resp.Instructions = append(resp.Instructions, routeInstruction{
			Kind:           ins.Kind.String(),
			AreaID:         ins.AreaID,
			ConnectionID:   ins.ConnectionID,
			ConnectionKind: ins.ConnectionKind.String(),
			Distance:       ins.Distance,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type pathPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type pathInstruction struct {
	Kind     string  `json:"kind"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Distance float64 `json:"distance"`
}

type pathResponse struct {
	Waypoints    []pathPoint       `json:"waypoints"`
	Instructions []pathInstruction `json:"instructions"`
}

func (h *RoutingHandler) path(w http.ResponseWriter, r *http.Request) {
	if _, ok := UserIDFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, ErrMissingBearerToken)
		return
	}

	q := r.URL.Query()
	startX, errX1 := strconv.ParseFloat(q.Get("start_x"), 64)
	startY, errY1 := strconv.ParseFloat(q.Get("start_y"), 64)
	endX, errX2 := strconv.ParseFloat(q.Get("end_x"), 64)
	endY, errY2 := strconv.ParseFloat(q.Get("end_y"), 64)
	if errX1 != nil || errY1 != nil || errX2 != nil || errY2 != nil {
		writeError(w, http.StatusBadRequest, errMissingPathQuery)
		return
	}

	backend, err := h.pathfinder.Get(r.PathValue("area"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	began := h.now()
	waypoints, err := backend.Route(pathfind.Point{X: startX, Y: startY}, pathfind.Point{X: endX, Y: endY})
	h.metrics.ObservePathQuery(backendLabel(backend), h.now().Sub(began).Seconds())
	if err != nil {
		writeError(w, statusForRoutingError(err), err)
		return
	}

	resp := pathResponse{Waypoints: make([]pathPoint, len(waypoints))}
	for i, p := range waypoints {
		resp.Waypoints[i] = pathPoint{X: p.X, Y: p.Y}
	}
	for _, ins := range pathfind.Instructions(waypoints) {
		resp.Instructions = append(resp.Instructions, pathInstruction{
			Kind:     ins.Kind.String(),
			X:        ins.Point.X,
			Y:        ins.Point.Y,
			Distance: ins.Distance,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func backendLabel(b pathfind.Backend) string {
	switch b.(type) {
	case *pathfind.GridBackend:
		return "grid"
	case *pathfind.MeshBackend:
		return "mesh"
	default:
		return "unknown"
	}
}

// statusForRoutingError translates router/pathfind sentinel errors into
// HTTP status codes, the same classification shape as statusForError.
func statusForRoutingError(err error) int {
	switch {
	case errors.Is(err, router.ErrAreaNotFound),
		errors.Is(err, router.ErrEntityNotFound),
		errors.Is(err, pathfind.ErrAreaNotRegistered):
		return http.StatusNotFound
	case errors.Is(err, router.ErrNoRoute),
		errors.Is(err, pathfind.ErrNoPath):
		return http.StatusConflict
	case errors.Is(err, pathfind.ErrOutsidePolygon),
		errors.Is(err, pathfind.ErrDegeneratePolygon):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
