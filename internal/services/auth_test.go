package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/Contextualist/submit-patch/internal/clients/bangumi"
	"github.com/Contextualist/submit-patch/internal/domain"
	"github.com/Contextualist/submit-patch/internal/pkg/dbctx"
	errs "github.com/Contextualist/submit-patch/internal/pkg/errors"
	"github.com/Contextualist/submit-patch/internal/repos"
	"github.com/Contextualist/submit-patch/internal/repos/testutil"
)

type fakeOAuth struct {
	profile bangumi.Profile
}

func (f *fakeOAuth) AuthorizeURL(state string) string {
	return "https://bgm.tv/oauth/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeOAuth) ExchangeCode(_ context.Context, code string) (string, error) {
	if code != "good-code" {
		return "", errs.ErrUpstream
	}
	return "access-token", nil
}

func (f *fakeOAuth) GetMe(_ context.Context, accessToken string) (*bangumi.Profile, error) {
	if accessToken != "access-token" {
		return nil, errs.ErrUpstream
	}
	p := f.profile
	return &p, nil
}

type memSessions struct {
	byID map[string]domain.User
	n    int
}

func newMemSessions() *memSessions {
	return &memSessions{byID: map[string]domain.User{}}
}

func (m *memSessions) Create(_ context.Context, user domain.User) (string, error) {
	m.n++
	sid := strings.Repeat("s", m.n)
	m.byID[sid] = user
	return sid, nil
}

func (m *memSessions) Get(_ context.Context, sid string) (*domain.User, error) {
	u, ok := m.byID[sid]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memSessions) Delete(_ context.Context, sid string) error {
	delete(m.byID, sid)
	return nil
}

func newAuthService(t *testing.T, oauth *fakeOAuth, sessions *memSessions) AuthService {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return NewAuthService(log, oauth, sessions, repos.NewPatchUserRepo(db, log), []byte("test-state-key"))
}

func stateFromLoginURL(t *testing.T, loginURL string) string {
	t.Helper()
	u, err := url.Parse(loginURL)
	if err != nil {
		t.Fatalf("parse login url: %v", err)
	}
	state := u.Query().Get("state")
	if state == "" {
		t.Fatalf("login url carries no state: %s", loginURL)
	}
	return state
}

func TestLoginFlow_RoundTrip(t *testing.T) {
	oauth := &fakeOAuth{profile: bangumi.Profile{UserID: 300, GroupID: domain.GroupWikiEditor, Username: "ed", Nickname: "Ed"}}
	sessions := newMemSessions()
	svc := newAuthService(t, oauth, sessions)

	loginURL, err := svc.LoginURL("/patches?state=pending")
	if err != nil {
		t.Fatalf("login url: %v", err)
	}
	state := stateFromLoginURL(t, loginURL)

	sid, backTo, err := svc.HandleCallback(context.Background(), "good-code", state)
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if backTo != "/patches?state=pending" {
		t.Fatalf("back_to = %q", backTo)
	}

	user, err := svc.GetSession(context.Background(), sid)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if user == nil || user.UserID != 300 || !user.AllowEdit() {
		t.Fatalf("unexpected session user: %+v", user)
	}

	if err := svc.Logout(context.Background(), sid); err != nil {
		t.Fatalf("logout: %v", err)
	}
	user, err = svc.GetSession(context.Background(), sid)
	if err != nil {
		t.Fatalf("get session after logout: %v", err)
	}
	if user != nil {
		t.Fatalf("session must be gone after logout")
	}
}

func TestHandleCallback_TamperedStateRejected(t *testing.T) {
	oauth := &fakeOAuth{profile: bangumi.Profile{UserID: 300}}
	svc := newAuthService(t, oauth, newMemSessions())

	if _, _, err := svc.HandleCallback(context.Background(), "good-code", "not-a-jwt"); !errs.IsValidation(err) {
		t.Fatalf("expected validation error for bad state, got %v", err)
	}
}

func TestHandleCallback_ExchangeFailureSurfaces(t *testing.T) {
	oauth := &fakeOAuth{profile: bangumi.Profile{UserID: 300}}
	svc := newAuthService(t, oauth, newMemSessions())

	loginURL, err := svc.LoginURL("/")
	if err != nil {
		t.Fatalf("login url: %v", err)
	}
	state := stateFromLoginURL(t, loginURL)

	if _, _, err := svc.HandleCallback(context.Background(), "bad-code", state); !errors.Is(err, errs.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestHandleCallback_RefreshesDisplayIdentity(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	userRepo := repos.NewPatchUserRepo(db, log)
	oauth := &fakeOAuth{profile: bangumi.Profile{UserID: 301, GroupID: 10, Username: "dana", Nickname: "Dana"}}
	svc := NewAuthService(log, oauth, newMemSessions(), userRepo, []byte("test-state-key"))

	loginURL, err := svc.LoginURL("/")
	if err != nil {
		t.Fatalf("login url: %v", err)
	}
	if _, _, err := svc.HandleCallback(context.Background(), "good-code", stateFromLoginURL(t, loginURL)); err != nil {
		t.Fatalf("callback: %v", err)
	}

	oauth.profile.Nickname = "Dana v2"
	loginURL, err = svc.LoginURL("/")
	if err != nil {
		t.Fatalf("login url: %v", err)
	}
	if _, _, err := svc.HandleCallback(context.Background(), "good-code", stateFromLoginURL(t, loginURL)); err != nil {
		t.Fatalf("second callback: %v", err)
	}

	stored, err := userRepo.GetByID(dbctx.New(context.Background()), 301)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored == nil || stored.Nickname != "Dana v2" {
		t.Fatalf("expected refreshed nickname, got %+v", stored)
	}
}
