package http

import (
	"math"
	"net/http"
	"strconv"

	"github.com/aukilabs/broadphase/models"
	"github.com/aukilabs/broadphase/modules/contact"
	"github.com/aukilabs/broadphase/modules/inspect"
	"github.com/aukilabs/broadphase/quadtree"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/segmentio/encoding/json"
)

// WorldSummary describes a world in the debug API.
type WorldSummary struct {
	ID     string             `json:"id"`
	UUID   string             `json:"uuid"`
	Frame  uint64             `json:"frame"`
	Bodies int                `json:"bodies"`
	Tree   quadtree.DebugInfo `json:"tree"`
}

// QueryResult is the response of a circle query.
type QueryResult struct {
	Center quadtree.Vector2   `json:"center"`
	Radius float32            `json:"radius"`
	Bodies []models.BodyState `json:"bodies"`
}

// ContactsResult lists the bodies a detector touched on the last frame.
type ContactsResult struct {
	Detector quadtree.Handle   `json:"detector"`
	Contacts []quadtree.Handle `json:"contacts"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewDebugRouter returns the read only API that exposes the worlds of store.
func NewDebugRouter(store *models.WorldStore) *mux.Router {
	d := debugHandler{worlds: store}

	router := mux.NewRouter()
	router.HandleFunc("/worlds", d.listWorlds).Methods(http.MethodGet)
	router.HandleFunc("/worlds/{world_id}", d.getWorld).Methods(http.MethodGet)
	router.HandleFunc("/worlds/{world_id}/nodes", d.getNodes).Methods(http.MethodGet)
	router.HandleFunc("/worlds/{world_id}/bodies", d.listBodies).Methods(http.MethodGet)
	router.HandleFunc("/worlds/{world_id}/query", d.query).Methods(http.MethodGet)
	router.HandleFunc("/worlds/{world_id}/bodies/{body_id}/contacts", d.getContacts).Methods(http.MethodGet)
	return router
}

// HandleWithCORS lets browsers on any origin read h.
func HandleWithCORS(h http.Handler) http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return cors(h)
}

type debugHandler struct {
	worlds *models.WorldStore
}

func (d debugHandler) listWorlds(w http.ResponseWriter, r *http.Request) {
	worlds := d.worlds.List()

	summaries := make([]WorldSummary, len(worlds))
	for i, world := range worlds {
		summaries[i] = d.summary(world)
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (d debugHandler) getWorld(w http.ResponseWriter, r *http.Request) {
	world, ok := d.world(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d.summary(world))
}

func (d debugHandler) getNodes(w http.ResponseWriter, r *http.Request) {
	world, ok := d.world(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, inspect.Latest(world))
}

func (d debugHandler) listBodies(w http.ResponseWriter, r *http.Request) {
	world, ok := d.world(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.BodyStates(world.Bodies()))
}

func (d debugHandler) query(w http.ResponseWriter, r *http.Request) {
	world, ok := d.world(w, r)
	if !ok {
		return
	}

	values := r.URL.Query()
	x, errX := parseFloat32(values.Get("x"))
	y, errY := parseFloat32(values.Get("y"))
	radius, errR := parseFloat32(values.Get("r"))
	center := quadtree.Vector2{X: x, Y: y}

	if errX != nil || errY != nil || errR != nil ||
		!center.IsFinite() || !(radius >= 0) || math.IsInf(float64(radius), 0) {
		writeError(w, http.StatusBadRequest, "x, y and r must be finite numbers and r must not be negative")
		return
	}

	res := QueryResult{
		Center: center,
		Radius: radius,
		Bodies: []models.BodyState{},
	}

	for _, id := range world.Query(center, radius) {
		if b, ok := world.BodyByID(id); ok {
			res.Bodies = append(res.Bodies, b.State())
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (d debugHandler) getContacts(w http.ResponseWriter, r *http.Request) {
	world, ok := d.world(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(mux.Vars(r)["body_id"], 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "body id must be an unsigned integer")
		return
	}

	body, ok := world.BodyByID(quadtree.Handle(id))
	if !ok {
		writeError(w, http.StatusNotFound, "body not found")
		return
	}

	state, ok := contact.StateOf(world)
	if !ok {
		writeError(w, http.StatusNotFound, "contact events are disabled for the world")
		return
	}

	writeJSON(w, http.StatusOK, ContactsResult{
		Detector: body.ID,
		Contacts: state.Contacts(body.ID),
	})
}

func (d debugHandler) world(w http.ResponseWriter, r *http.Request) (*models.World, bool) {
	world, ok := d.worlds.GetByGlobalID(mux.Vars(r)["world_id"])
	if !ok {
		writeError(w, http.StatusNotFound, "world not found")
	}
	return world, ok
}

func (d debugHandler) summary(world *models.World) WorldSummary {
	return WorldSummary{
		ID:     d.worlds.GlobalWorldID(world.ID),
		UUID:   world.UUID,
		Frame:  world.Frame(),
		Bodies: world.BodyCount(),
		Tree:   world.DebugInfo(),
	}
}

func parseFloat32(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	return float32(v), err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logs.Warn(errors.New("writing json response failed").
			WithTag("status", status).
			Wrap(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
