package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	sessionCookie = "oblivion_session"
	stateCookie   = "oblivion_oauth_state"

	permissionManageGuild = 0x20
)

var discordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/api/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

// GuildAccess is one entry of the user's OAuth guild list.
type GuildAccess struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Owner       bool   `json:"owner"`
	Permissions int64  `json:"permissions"`
}

// CanManage reports whether the user may change the guild's settings.
func (g GuildAccess) CanManage() bool {
	return g.Owner || g.Permissions&permissionManageGuild == permissionManageGuild
}

type Identity struct {
	UserID   string
	Username string
	Guilds   []GuildAccess
}

// IdentityFetcher resolves the logged-in user from an OAuth token.
type IdentityFetcher interface {
	Fetch(ctx context.Context, token *oauth2.Token) (Identity, error)
}

type discordIdentity struct{}

func (discordIdentity) Fetch(_ context.Context, token *oauth2.Token) (Identity, error) {
	session, err := discordgo.New("Bearer " + token.AccessToken)
	if err != nil {
		return Identity{}, err
	}
	user, err := session.User("@me")
	if err != nil {
		return Identity{}, fmt.Errorf("fetch user: %w", err)
	}
	guilds, err := session.UserGuilds(100, "", "")
	if err != nil {
		return Identity{}, fmt.Errorf("fetch guilds: %w", err)
	}
	identity := Identity{UserID: user.ID, Username: user.Username}
	for _, g := range guilds {
		identity.Guilds = append(identity.Guilds, GuildAccess{ID: g.ID, Name: g.Name, Owner: g.Owner, Permissions: g.Permissions})
	}
	return identity, nil
}

type Session struct {
	ID       string
	UserID   string
	Username string
	Guilds   map[string]GuildAccess
}

type sessionStore struct {
	ttl   time.Duration
	items *cache.Cache
}

func newSessionStore(ttl time.Duration) *sessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &sessionStore{ttl: ttl, items: cache.New(ttl, 10*time.Minute)}
}

func (s *sessionStore) create(identity Identity) *Session {
	session := &Session{
		ID:       uuid.NewString(),
		UserID:   identity.UserID,
		Username: identity.Username,
		Guilds:   make(map[string]GuildAccess, len(identity.Guilds)),
	}
	for _, g := range identity.Guilds {
		session.Guilds[g.ID] = g
	}
	s.items.Set(session.ID, session, s.ttl)
	return session
}

func (s *sessionStore) get(id string) (*Session, bool) {
	value, ok := s.items.Get(id)
	if !ok {
		return nil, false
	}
	return value.(*Session), true
}

func (s *sessionStore) delete(id string) {
	s.items.Delete(id)
}

func (s *Server) handleLogin(c *gin.Context) {
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 600, "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

func (s *Server) handleCallback(c *gin.Context) {
	expected, err := c.Cookie(stateCookie)
	if err != nil || expected == "" || c.Query("state") != expected {
		s.logger.Warn("dashboard oauth state mismatch", zap.String("remote", c.ClientIP()))
		c.Redirect(http.StatusTemporaryRedirect, "/?error=bad-state")
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	token, err := s.oauth.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		s.logger.Warn("dashboard oauth exchange failed", zap.Error(err))
		c.Redirect(http.StatusTemporaryRedirect, "/?error=oauth2failure")
		return
	}
	identity, err := s.identity.Fetch(c.Request.Context(), token)
	if err != nil {
		s.logger.Warn("dashboard identity fetch failed", zap.Error(err))
		c.Redirect(http.StatusTemporaryRedirect, "/?error=loginfailed")
		return
	}

	session := s.sessions.create(identity)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, session.ID, int(s.sessions.ttl/time.Second), "/", "", false, true)
	s.logger.Info("dashboard login", zap.String("user_id", identity.UserID))
	c.Redirect(http.StatusTemporaryRedirect, "/")
}

func (s *Server) handleLogout(c *gin.Context) {
	if id, err := c.Cookie(sessionCookie); err == nil {
		s.sessions.delete(id)
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, "/")
}

func (s *Server) requireSession(c *gin.Context) {
	id, err := c.Cookie(sessionCookie)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Not logged in"})
		return
	}
	session, ok := s.sessions.get(id)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Session expired"})
		return
	}
	c.Set("session", session)
	c.Next()
}

// requireGuild runs after requireSession and checks the user's access to
// the :guild route parameter.
func (s *Server) requireGuild(c *gin.Context) {
	session := c.MustGet("session").(*Session)
	access, ok := session.Guilds[c.Param("guild")]
	if !ok || !access.CanManage() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "No permission"})
		return
	}
	c.Next()
}
