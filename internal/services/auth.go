package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Contextualist/submit-patch/internal/clients/bangumi"
	"github.com/Contextualist/submit-patch/internal/domain"
	"github.com/Contextualist/submit-patch/internal/pkg/dbctx"
	errs "github.com/Contextualist/submit-patch/internal/pkg/errors"
	"github.com/Contextualist/submit-patch/internal/pkg/logger"
	"github.com/Contextualist/submit-patch/internal/repos"
	"github.com/Contextualist/submit-patch/internal/session"
)

const stateTTL = 10 * time.Minute

// AuthService runs the bgm.tv OAuth login flow and manages the
// server-side session that the rest of the app reads the actor from.
type AuthService interface {
	LoginURL(backTo string) (string, error)
	HandleCallback(ctx context.Context, code, state string) (sid string, backTo string, err error)
	GetSession(ctx context.Context, sid string) (*domain.User, error)
	Logout(ctx context.Context, sid string) error
}

type authService struct {
	log      *logger.Logger
	oauth    bangumi.OAuthClient
	sessions session.Store
	userRepo repos.PatchUserRepo
	stateKey []byte
}

func NewAuthService(
	log *logger.Logger,
	oauth bangumi.OAuthClient,
	sessions session.Store,
	userRepo repos.PatchUserRepo,
	stateKey []byte,
) AuthService {
	return &authService{
		log:      log.With("service", "AuthService"),
		oauth:    oauth,
		sessions: sessions,
		userRepo: userRepo,
		stateKey: stateKey,
	}
}

type stateClaims struct {
	BackTo string `json:"back_to,omitempty"`
	jwt.RegisteredClaims
}

// LoginURL signs the return path into the OAuth state parameter so the
// callback can both verify the round trip and restore navigation.
func (s *authService) LoginURL(backTo string) (string, error) {
	now := time.Now()
	claims := stateClaims{
		BackTo: backTo,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.stateKey)
	if err != nil {
		return "", fmt.Errorf("sign oauth state: %w", err)
	}
	return s.oauth.AuthorizeURL(state), nil
}

func (s *authService) HandleCallback(ctx context.Context, code, state string) (string, string, error) {
	claims := &stateClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.stateKey, nil
	})
	if err != nil {
		return "", "", errs.Validation("login state invalid or expired")
	}
	if code == "" {
		return "", "", errs.Validation("missing authorization code")
	}

	token, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return "", "", err
	}
	profile, err := s.oauth.GetMe(ctx, token)
	if err != nil {
		return "", "", err
	}

	if err := s.userRepo.Upsert(dbctx.New(ctx), &domain.PatchUser{
		UserID:   profile.UserID,
		Username: profile.Username,
		Nickname: profile.Nickname,
	}); err != nil {
		return "", "", err
	}

	sid, err := s.sessions.Create(ctx, domain.User{
		UserID:  profile.UserID,
		GroupID: profile.GroupID,
	})
	if err != nil {
		return "", "", err
	}

	s.log.Info("user logged in", "user_id", profile.UserID, "group_id", profile.GroupID)
	return sid, claims.BackTo, nil
}

func (s *authService) GetSession(ctx context.Context, sid string) (*domain.User, error) {
	return s.sessions.Get(ctx, sid)
}

func (s *authService) Logout(ctx context.Context, sid string) error {
	return s.sessions.Delete(ctx, sid)
}
