package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"oblivion/internal/analytics"
	"oblivion/internal/modules/modlog"
	"oblivion/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type fakeDirectory struct{}

func (fakeDirectory) Channels(guildID string) ([]Channel, error) {
	if guildID != "g1" {
		return nil, errors.New("unknown guild")
	}
	return []Channel{{ID: "c1", Name: "general"}}, nil
}

func (fakeDirectory) Roles(string) ([]Role, error) {
	return []Role{{ID: "r1", Name: "Member"}}, nil
}

func (fakeDirectory) MemberCount(string) (int, bool) { return 42, true }

type staticIdentity struct{ identity Identity }

func (s staticIdentity) Fetch(context.Context, *oauth2.Token) (Identity, error) {
	return s.identity, nil
}

func newServer(t *testing.T) (*Server, *storage.Store) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	logger := zap.NewNop()
	srv := New(Options{ClientID: "id", ClientSecret: "secret", RedirectURL: "http://localhost/auth/callback", SessionTTL: time.Hour},
		store, modlog.NewLedger(store, logger), analytics.New(store), fakeDirectory{}, logger)
	return srv, store
}

func (s *Server) login(guilds ...GuildAccess) *http.Cookie {
	session := s.sessions.create(Identity{UserID: "u1", Username: "user", Guilds: guilds})
	return &http.Cookie{Name: sessionCookie, Value: session.ID}
}

func do(srv *Server, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestGuildRoutesRequireSession(t *testing.T) {
	srv, _ := newServer(t)
	if rec := do(srv, http.MethodGet, "/api/guilds/g1/settings", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	stale := &http.Cookie{Name: sessionCookie, Value: "missing"}
	if rec := do(srv, http.MethodGet, "/api/guilds/g1/settings", "", stale); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown session, got %d", rec.Code)
	}
}

func TestGuildRoutesRequireManageGuild(t *testing.T) {
	srv, _ := newServer(t)
	member := srv.login(GuildAccess{ID: "g1", Permissions: 0x400})
	if rec := do(srv, http.MethodGet, "/api/guilds/g1/settings", "", member); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if rec := do(srv, http.MethodGet, "/api/guilds/g2/settings", "", member); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign guild, got %d", rec.Code)
	}
	owner := srv.login(GuildAccess{ID: "g1", Owner: true})
	if rec := do(srv, http.MethodGet, "/api/guilds/g1/settings", "", owner); rec.Code != http.StatusOK {
		t.Fatalf("owner should pass, got %d", rec.Code)
	}
}

func TestUpdateSettings(t *testing.T) {
	srv, store := newServer(t)
	cookie := srv.login(GuildAccess{ID: "g1", Permissions: permissionManageGuild})

	rec := do(srv, http.MethodPost, "/api/guilds/g1/settings", `{"modLogChannel":"c1","antiInvite":true,"antiInviteAction":"both","bannedWords":["Foo"]}`, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Success  bool         `json:"success"`
		Settings settingsView `json:"settings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Settings.ModLogChannel != "c1" || body.Settings.AntiInviteAction != "both" {
		t.Fatalf("unexpected response %+v", body)
	}

	settings, err := store.GetGuildSettings(context.Background(), "g1")
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if !settings.AntiInvite || settings.AntiInviteAction != storage.ActionBoth || settings.AntiSpamAction != storage.ActionDelete {
		t.Fatalf("unexpected stored settings %+v", settings)
	}
	if !settings.LevelUpMessages {
		t.Fatalf("absent fields should keep their value")
	}

	rec = do(srv, http.MethodPost, "/api/guilds/g1/settings", `{"antiLinkAction":"explode"}`, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d", rec.Code)
	}
}

func TestCasesStatsAndDirectory(t *testing.T) {
	srv, store := newServer(t)
	cookie := srv.login(GuildAccess{ID: "g1", Permissions: permissionManageGuild})
	if _, err := store.CreateModCase(context.Background(), storage.ModCase{GuildID: "g1", UserID: "u2", ModeratorID: "u1", Action: "Warn", Reason: "r"}); err != nil {
		t.Fatalf("create case: %v", err)
	}

	rec := do(srv, http.MethodGet, "/api/guilds/g1/cases", "", cookie)
	var cases struct {
		Cases []storage.ModCase `json:"cases"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cases); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || len(cases.Cases) != 1 || cases.Cases[0].CaseNumber != 1 {
		t.Fatalf("unexpected cases response %d %s", rec.Code, rec.Body.String())
	}

	rec = do(srv, http.MethodGet, "/api/guilds/g1/stats", "", cookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"memberCount":42`) || !strings.Contains(rec.Body.String(), `"total_cases":1`) {
		t.Fatalf("unexpected stats response %s", rec.Body.String())
	}

	rec = do(srv, http.MethodGet, "/api/guilds/g1/channels", "", cookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"general"`) {
		t.Fatalf("unexpected channels response %s", rec.Body.String())
	}
	rec = do(srv, http.MethodGet, "/api/guilds/g1/roles", "", cookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"Member"`) {
		t.Fatalf("unexpected roles response %s", rec.Body.String())
	}
}

func TestLoginCallbackCreatesSession(t *testing.T) {
	srv, _ := newServer(t)
	rec := do(srv, http.MethodGet, "/login", "", nil)
	if rec.Code != http.StatusTemporaryRedirect || !strings.HasPrefix(rec.Header().Get("Location"), discordEndpoint.AuthURL) {
		t.Fatalf("expected redirect to discord, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = do(srv, http.MethodGet, "/auth/callback?state=forged&code=x", "", &http.Cookie{Name: stateCookie, Value: "expected"})
	if loc := rec.Header().Get("Location"); loc != "/?error=bad-state" {
		t.Fatalf("forged state should be rejected, got %q", loc)
	}
}

func TestMeListsManageableGuilds(t *testing.T) {
	srv, _ := newServer(t)
	srv.WithIdentity(staticIdentity{})
	cookie := srv.login(GuildAccess{ID: "g1", Owner: true}, GuildAccess{ID: "g2"})
	rec := do(srv, http.MethodGet, "/api/me", "", cookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"g1"`) || strings.Contains(rec.Body.String(), `"g2"`) {
		t.Fatalf("unexpected me response %s", rec.Body.String())
	}
}
