package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Dosada05/carnival-system/live"
	"github.com/Dosada05/carnival-system/models"
	"github.com/gorilla/websocket"
)

type CarnivalGetter interface {
	GetByID(ctx context.Context, carnivalID int) (*models.Carnival, error)
}

type WebSocketHandler struct {
	hub       *live.Hub
	carnivals CarnivalGetter
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

func NewWebSocketHandler(hub *live.Hub, carnivals CarnivalGetter, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		carnivals: carnivals,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// ServeWs подписывает клиента на события конкретного карнавала.
// Клиент подключается к /ws/carnivals/{carnivalID}
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	carnivalID, err := getIDFromURL(r, "carnivalID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if _, err := h.carnivals.GetByID(r.Context(), carnivalID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отправляет HTTP ошибку клиенту.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.Int("carnival_id", carnivalID), slog.Any("error", err))
		return
	}

	h.hub.Subscribe(live.NewClient(h.hub, conn, carnivalID))
	h.logger.DebugContext(r.Context(), "websocket client subscribed", slog.Int("carnival_id", carnivalID))
}
