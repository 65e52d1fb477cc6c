// Package facade is a thin, read-only control-plane surface over
// BeaconPeerStore and the relay server's reservation table: a gin REST
// API with JWT-authenticated routes, a gorm/sqlite credential store, and
// a gorilla/websocket event push channel. It is a passive viewer only;
// protocol logic belongs entirely to the beacon/noise/mux/pnet packages.
package facade

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/unicornultrafoundation/p2pcore/internal/beacon"
	"github.com/unicornultrafoundation/p2pcore/internal/identity"
	"github.com/unicornultrafoundation/p2pcore/internal/relayserver"
)

// Config configures the façade server.
type Config struct {
	Listen      string
	DatabaseDSN string
	JWTSecret   string
}

// Facade serves read-only views of peer-discovery and relay state.
type Facade struct {
	cfg    Config
	db     *gorm.DB
	router *gin.Engine
	hub    *hub
	log    *slog.Logger

	store   beacon.BeaconPeerStore
	relay   *relayserver.Server
}

// New wires a Facade over an existing BeaconPeerStore and relay Server.
func New(cfg Config, store beacon.BeaconPeerStore, relay *relayserver.Server, log *slog.Logger) (*Facade, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := InitDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	f := &Facade{
		cfg:   cfg,
		db:    db,
		hub:   newHub(log),
		log:   log.With("component", "facade"),
		store: store,
		relay: relay,
	}

	if err := f.ensureAdmin("admin", "admin"); err != nil {
		return nil, fmt.Errorf("facade: ensure admin user: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	f.router = router
	f.setupRoutes(router)
	return f, nil
}

func (f *Facade) ensureAdmin(username, password string) error {
	var count int64
	if err := f.db.Model(&AdminUser{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return f.db.Create(&AdminUser{Username: username, Password: hash}).Error
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (f *Facade) setupRoutes(r *gin.Engine) {
	r.POST("/api/v1/login", f.handleLogin)
	r.GET("/ws/events", f.hub.handleConnect)

	api := r.Group("/api/v1")
	api.Use(AuthMiddleware(f.cfg.JWTSecret))
	api.GET("/peers", f.handleListPeers)
	api.GET("/peers/:id", f.handleGetPeer)
	api.GET("/reservations", f.handleListReservations)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (f *Facade) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var user AdminUser
	if err := f.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": ErrInvalidCredentials.Error()})
		return
	}
	if !checkPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": ErrInvalidCredentials.Error()})
		return
	}
	token, expiresAt, err := GenerateToken(user.Username, f.cfg.JWTSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": expiresAt})
}

func (f *Facade) handleListPeers(c *gin.Context) {
	var since time.Time
	c.JSON(http.StatusOK, f.store.ConfirmedNewerThan(since))
}

func (f *Facade) handleGetPeer(c *gin.Context) {
	id, err := parsePeerIDParam(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record, ok := f.store.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "peer not found"})
		return
	}
	c.JSON(http.StatusOK, record)
}

func parsePeerIDParam(s string) (identity.PeerID, error) {
	return identity.PeerIDFromHex(s)
}

func (f *Facade) handleListReservations(c *gin.Context) {
	if f.relay == nil {
		c.JSON(http.StatusOK, gin.H{"reservations": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": f.relay.Reservations().ReservationCount()})
}

// Run starts serving HTTP on the configured listen address.
func (f *Facade) Run() error {
	f.log.Info("facade starting", "listen", f.cfg.Listen)
	return f.router.Run(f.cfg.Listen)
}

// PublishEvent pushes a beacon event to all connected websocket viewers.
func (f *Facade) PublishEvent(ev beacon.Event) {
	f.hub.broadcast(ev)
}
