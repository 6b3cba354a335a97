package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/QuizRush/internal/adapters/signal"
	"github.com/dkeye/QuizRush/internal/app/orch"
	"github.com/dkeye/QuizRush/internal/config"
	"github.com/dkeye/QuizRush/internal/domain"
)

const clientTokenKey = "client_token"

// ClientTokenMiddleware gives every browser a stable token kept in the
// signed session cookie. It only correlates log lines.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = uuid.NewString()
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(cfg.CORSOrigins))

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("QuizRushSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": o.Rooms.Len()})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")
	rooms := &roomsHandler{orch: o}
	api.GET("/rooms", rooms.list)
	api.POST("/rooms", rooms.create)
	api.GET("/rooms/:id", rooms.get)

	ctrl := signal.NewSignalWSController(o, signal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		SendBuffer: cfg.SendBuffer,
	})
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("client", c.GetString(clientTokenKey)).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	return r
}

type roomsHandler struct {
	orch *orch.Orchestrator
}

type createRoomRequest struct {
	Name       string                `json:"name" binding:"required"`
	HostName   string                `json:"hostName" binding:"required"`
	IsPrivate  bool                  `json:"isPrivate"`
	Password   string                `json:"password" binding:"required_if=IsPrivate true"`
	MaxPlayers int                   `json:"maxPlayers" binding:"required,min=2,max=8"`
	Settings   *domain.SettingsPatch `json:"settings"`
}

type createRoomResponse struct {
	RoomID domain.RoomID   `json:"roomId"`
	HostID domain.PlayerID `json:"hostId"`
}

// list only shows public rooms still in the lobby.
func (h *roomsHandler) list(c *gin.Context) {
	c.JSON(http.StatusOK, h.orch.Rooms.ListPublicWaiting())
}

func (h *roomsHandler) create(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	settings := domain.DefaultSettings()
	if req.Settings != nil {
		settings = settings.Apply(*req.Settings)
	}
	room, hostID, err := h.orch.Rooms.Create(domain.RoomConfig{
		Name:       req.Name,
		HostName:   req.HostName,
		Private:    req.IsPrivate,
		Password:   req.Password,
		MaxPlayers: req.MaxPlayers,
		Settings:   settings,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, createRoomResponse{RoomID: room.ID(), HostID: hostID})
}

func (h *roomsHandler) get(c *gin.Context) {
	room, ok := h.orch.Rooms.Get(domain.RoomID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrRoomNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, room.View())
}
