package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
	"quizroom-service/internal/metrics"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// Prefix is prepended to every route, for use behind a reverse proxy.
	Prefix string
	// DefaultQuiz is played by rooms created without a quiz parameter.
	DefaultQuiz string
	Metrics     *metrics.Collector
}

// NewRouter wires the websocket endpoint and the room management routes.
func NewRouter(service *app.QuizService, opts RouterOptions) http.Handler {
	prefix := strings.TrimSuffix(opts.Prefix, "/")
	h := &managementHandler{service: service, defaultQuiz: opts.DefaultQuiz, metrics: opts.Metrics, prefix: prefix}
	ws := NewWSHandler(service)

	mux := httprouter.New()
	mux.GET(prefix+"/websocket", ws.ServeWS)
	mux.GET(prefix+"/create_room", h.createRoom)
	mux.POST(prefix+"/create_room", h.createRoom)
	mux.GET(prefix+"/join_room", h.joinRoom)
	mux.GET(prefix+"/rooms/:key", h.roomInfo)
	mux.GET(prefix+"/rooms/:key/qr", h.roomQR)
	mux.GET(prefix+"/healthz", h.healthz)
	mux.GET(prefix+"/metrics", h.metricsSnapshot)

	mux.GlobalOPTIONS = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corsHeaders(w)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		log.Printf("panic serving %s: %v", r.URL.Path, v)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
	return mux
}

type managementHandler struct {
	service     *app.QuizService
	defaultQuiz string
	metrics     *metrics.Collector
	prefix      string
}

type createRoomResponse struct {
	RoomName string `json:"room_name"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *managementHandler) createRoom(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	quizID := r.URL.Query().Get("quiz")
	if quizID == "" {
		quizID = h.defaultQuiz
	}
	room, err := h.service.CreateRoom(r.Context(), quizID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Quiz not found"})
		return
	}
	if err != nil {
		log.Printf("create room: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Could not create room"})
		return
	}
	writeJSON(w, http.StatusOK, createRoomResponse{RoomName: room.Key()})
}

// joinRoom only checks that a room exists; joining happens over the websocket.
func (h *managementHandler) joinRoom(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, ok := h.service.FindRoom(r.URL.Query().Get("room_key")); !ok {
		writeJSON(w, http.StatusOK, errorResponse{Error: "Room not found"})
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *managementHandler) roomInfo(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	room, ok := h.service.FindRoom(ps.ByName("key"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Room not found"})
		return
	}
	writeJSON(w, http.StatusOK, room.Snapshot())
}

// roomQR renders a PNG QR code pointing at the room's join link.
func (h *managementHandler) roomQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	room, ok := h.service.FindRoom(ps.ByName("key"))
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	png, err := qrcode.Encode(joinURL(r, h.prefix, room.Key()), qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}
	corsHeaders(w)
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (h *managementHandler) healthz(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (h *managementHandler) metricsSnapshot(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}

// joinURL derives the public link for a room, respecting TLS and
// X-Forwarded-Proto.
func joinURL(r *http.Request, prefix, key string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     prefix + "/",
		RawQuery: url.Values{"room": {key}}.Encode(),
	}
	return u.String()
}

func corsHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "x-requested-with")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	corsHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
