package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"pokesprite/internal/cache"
	"pokesprite/internal/catalog"
	"pokesprite/internal/config"
	"pokesprite/internal/imaging"
	"pokesprite/internal/sprite"
)

type Catalog interface {
	List(ctx context.Context) ([]catalog.Entry, error)
	Details(ctx context.Context, id int) (*catalog.Details, error)
	SpriteURL(ctx context.Context, id int) (string, error)
}

type Sprites interface {
	Resolve(ctx context.Context, reference string) (*imaging.Sprite, bool)
	Key(reference string) string
	Clear() int
	SpriteSize() int
	MemoryLen() int
	Entries() ([]cache.Entry, error)
	OnLoaded(fn sprite.LoadedFunc) (unsubscribe func())
}

type Handlers struct {
	config  *config.Config
	logger  *zap.Logger
	catalog Catalog
	sprites Sprites
}

func New(config *config.Config, logger *zap.Logger, catalog Catalog, sprites Sprites) *Handlers {
	return &Handlers{
		config:  config,
		logger:  logger,
		catalog: catalog,
		sprites: sprites,
	}
}

// Handler returns the full route table wrapped in CORS and request logging.
func (h *Handlers) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/pokemon", h.HandlePokemonList).Methods(http.MethodGet)
	r.HandleFunc("/api/pokemon/{id:[0-9]+}", h.HandlePokemonDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/pokemon/{id:[0-9]+}/sprite", h.HandlePokemonSprite).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/api/sprites", h.HandleSprite).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/api/sprites/size", h.HandleSpriteSize).Methods(http.MethodGet)
	r.HandleFunc("/api/sprites/events", h.HandleSpriteEvents).Methods(http.MethodGet)
	r.HandleFunc("/api/cache", h.HandleCacheList).Methods(http.MethodGet)
	r.HandleFunc("/api/cache", h.HandleCacheClear).Methods(http.MethodDelete)
	r.HandleFunc("/healthz", h.HandleHealthz).Methods(http.MethodGet)

	return h.CORSMiddleware(h.RequestLoggingMiddleware(r))
}

func (h *Handlers) RequestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		wrapped.Header().Set("X-Request-Id", requestID)

		next.ServeHTTP(wrapped, r)

		h.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("ip", h.extractIP(r)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Int64("bytes", wrapped.bytesWritten),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("user_agent", r.UserAgent()),
		)
	})
}

func (h *Handlers) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigin := ""

		if h.config.AllowedOrigin != "" {
			allowedOrigin = h.config.AllowedOrigin
		} else if origin == "" {
			allowedOrigin = "*"
		} else if origin == "http://"+r.Host || origin == "https://"+r.Host {
			allowedOrigin = origin
		}

		if allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) HandlePokemonList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalog.List(r.Context())
	if err != nil {
		http.Error(w, "Catalog unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, entries)
}

func (h *Handlers) HandlePokemonDetails(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	details, err := h.catalog.Details(r.Context(), id)
	if err != nil {
		h.catalogError(w, err)
		return
	}
	writeJSON(w, details)
}

func (h *Handlers) HandlePokemonSprite(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	ref, err := h.catalog.SpriteURL(r.Context(), id)
	if err != nil {
		h.catalogError(w, err)
		return
	}
	h.serveSprite(w, r, ref)
}

func (h *Handlers) HandleSprite(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("url")
	if !sprite.ValidReference(ref) {
		http.Error(w, "Invalid sprite url", http.StatusBadRequest)
		return
	}
	h.serveSprite(w, r, ref)
}

func (h *Handlers) HandleSpriteSize(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]int{"size": h.sprites.SpriteSize()})
}

type spriteEvent struct {
	Reference string `json:"reference"`
	Key       string `json:"key"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// HandleSpriteEvents streams a server-sent event for every sprite fetched
// from the network while the client stays connected. Events are dropped for
// clients that do not keep up.
func (h *Handlers) HandleSpriteEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	events := make(chan spriteEvent, 16)
	unsubscribe := h.sprites.OnLoaded(func(ref string, s *imaging.Sprite) {
		select {
		case events <- spriteEvent{Reference: ref, Key: h.sprites.Key(ref), Width: s.Width, Height: s.Height}:
		default:
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: sprite\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (h *Handlers) HandleCacheList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.sprites.Entries()
	if err != nil {
		h.logger.Error("Failed to list cache", zap.Error(err))
		http.Error(w, "Failed to list cache", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{
		"memory_sprites": h.sprites.MemoryLen(),
		"disk_sprites":   len(entries),
		"entries":        entries,
	})
}

func (h *Handlers) HandleCacheClear(w http.ResponseWriter, r *http.Request) {
	removed := h.sprites.Clear()
	writeJSON(w, map[string]int{"removed": removed})
}

func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handlers) serveSprite(w http.ResponseWriter, r *http.Request, ref string) {
	s, ok := h.sprites.Resolve(r.Context(), ref)
	if !ok {
		http.Error(w, "Sprite unavailable", http.StatusNotFound)
		return
	}

	// Dimensions are part of the tag because the decoded size follows sprites.size.
	etag := fmt.Sprintf(`"%s-%dx%d"`, h.sprites.Key(ref)[:16], s.Width, s.Height)
	if match := r.Header.Get("If-None-Match"); match != "" && strings.Contains(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(s.Data)))
	w.Header().Set("X-Sprite-Size", fmt.Sprintf("%dx%d", s.Width, s.Height))

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	w.Write(s.Data)
}

func (h *Handlers) catalogError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	http.Error(w, "Catalog unavailable", http.StatusBadGateway)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (h *Handlers) extractIP(r *http.Request) string {
	ip := r.Header.Get("X-Real-Ip")
	if ip != "" {
		return strings.Split(ip, ":")[0]
	}

	addr := r.RemoteAddr
	if addr != "" {
		return strings.Split(addr, ":")[0]
	}

	return "unknown"
}

type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
