// Package dashboard serves the settings API for guild managers.
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"oblivion/internal/analytics"
	"oblivion/internal/clock"
	"oblivion/internal/modules/modlog"
	"oblivion/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Directory answers guild structure questions from the bot's cache.
type Directory interface {
	Channels(guildID string) ([]Channel, error)
	Roles(guildID string) ([]Role, error)
	MemberCount(guildID string) (int, bool)
}

type Options struct {
	Addr         string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	SessionTTL   time.Duration
}

type Server struct {
	opts      Options
	store     *storage.Store
	cases     *modlog.Ledger
	analytics *analytics.Service
	directory Directory
	identity  IdentityFetcher
	oauth     *oauth2.Config
	sessions  *sessionStore
	clock     clock.Clock
	logger    *zap.Logger
	router    *gin.Engine
}

func New(opts Options, store *storage.Store, cases *modlog.Ledger, stats *analytics.Service, directory Directory, logger *zap.Logger) *Server {
	s := &Server{
		opts:      opts,
		store:     store,
		cases:     cases,
		analytics: stats,
		directory: directory,
		identity:  discordIdentity{},
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes:       []string{"identify", "guilds"},
			Endpoint:     discordEndpoint,
		},
		sessions: newSessionStore(opts.SessionTTL),
		clock:    clock.Real(),
		logger:   logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) WithIdentity(fetcher IdentityFetcher) {
	s.identity = fetcher
}

func (s *Server) WithClock(c clock.Clock) {
	s.clock = c
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLog)

	router.GET("/login", s.handleLogin)
	router.GET("/auth/callback", s.handleCallback)
	router.GET("/logout", s.handleLogout)

	api := router.Group("/api", s.requireSession)
	api.GET("/me", s.handleMe)

	guild := api.Group("/guilds/:guild", s.requireGuild)
	guild.GET("/settings", s.handleGetSettings)
	guild.POST("/settings", s.handleUpdateSettings)
	guild.GET("/stats", s.handleStats)
	guild.GET("/cases", s.handleCases)
	guild.GET("/channels", s.handleChannels)
	guild.GET("/roles", s.handleRoles)
	return router
}

func (s *Server) requestLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("elapsed", time.Since(start)),
	}
	switch status := c.Writer.Status(); {
	case status >= http.StatusInternalServerError:
		s.logger.Error("dashboard request", fields...)
	case status >= http.StatusBadRequest:
		s.logger.Warn("dashboard request", fields...)
	default:
		s.logger.Debug("dashboard request", fields...)
	}
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", zap.String("addr", s.opts.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
