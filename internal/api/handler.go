package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"

	"github.com/amitRaDev/GMS/internal/camera"
	"github.com/amitRaDev/GMS/internal/gate"
	"github.com/amitRaDev/GMS/internal/mw"
	"github.com/amitRaDev/GMS/internal/store"
	"github.com/amitRaDev/GMS/internal/ws"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	gate      *gate.Service
	camera    *camera.Service
	hub       *ws.Hub
	webpush   *webpush.Options
	respCache *cache.Cache
	loc       *time.Location
}

// NewHandler creates a new API handler. The location is used for the
// today/all-time split in gate statistics; nil means UTC.
func NewHandler(s store.Store, gateSvc *gate.Service, cameraSvc *camera.Service, hub *ws.Hub, webpushOptions *webpush.Options, respCache *cache.Cache, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		store:     s,
		gate:      gateSvc,
		camera:    cameraSvc,
		hub:       hub,
		webpush:   webpushOptions,
		respCache: respCache,
		loc:       loc,
	}
}

// invalidateCache drops cached GET responses after any state mutation.
func (h *Handler) invalidateCache() {
	mw.Invalidate(h.respCache)
}
