package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meditrust/meditrust/internal/domain/audit"
	"github.com/meditrust/meditrust/internal/platform/auth"
	"github.com/meditrust/meditrust/internal/platform/chain"
)

const minPasswordLength = 8

type Service struct {
	repo   Repository
	issuer *auth.TokenIssuer
	audits audit.Recorder
	log    zerolog.Logger
}

func NewService(repo Repository, issuer *auth.TokenIssuer, audits audit.Recorder, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		issuer: issuer,
		audits: audits,
		log:    log.With().Str("component", "identity").Logger(),
	}
}

type RegisterInput struct {
	Email         string  `json:"email"`
	Username      string  `json:"username"`
	Password      string  `json:"password"`
	Role          string  `json:"role"`
	WalletAddress *string `json:"wallet_address,omitempty"`
}

func (in *RegisterInput) validate() error {
	email := strings.TrimSpace(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if strings.TrimSpace(in.Username) == "" {
		return &ValidationError{Field: "username", Reason: "must not be empty"}
	}
	if len(in.Password) < minPasswordLength {
		return &ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}
	if !ValidRole(in.Role) {
		return &ValidationError{Field: "role", Reason: "must be patient, doctor, or admin"}
	}
	if in.WalletAddress != nil && !chain.IsHexAddress(*in.WalletAddress) {
		return &ValidationError{Field: "wallet_address", Reason: "must be a 0x-prefixed 40-hex address"}
	}
	return nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if _, err := s.repo.GetByUsername(ctx, in.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := &User{
		ID:            uuid.New(),
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		Username:      strings.TrimSpace(in.Username),
		PasswordHash:  hash,
		WalletAddress: in.WalletAddress,
		Role:          in.Role,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", u.ID.String()).Str("role", u.Role).Msg("user registered")
	return u, nil
}

// Login verifies credentials and issues a token. Both outcomes are audited;
// a failed attempt records the attempted email as the actor since no user was
// resolved.
func (s *Service) Login(ctx context.Context, email, password, sourceIP string) (string, *User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.audits.Record(ctx, audit.Entry{
				ActorID:    email,
				OwnerID:    email,
				ActionType: audit.ActionLoginFailure,
				SourceIP:   sourceIP,
				Details:    map[string]interface{}{"reason": "unknown email"},
			})
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !u.Active || !auth.VerifyPassword(password, u.PasswordHash) {
		s.audits.Record(ctx, audit.Entry{
			ActorID:    u.ID.String(),
			OwnerID:    u.ID.String(),
			ActionType: audit.ActionLoginFailure,
			SourceIP:   sourceIP,
		})
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(u.ID.String(), u.Role, u.Wallet())
	if err != nil {
		return "", nil, err
	}

	s.audits.Record(ctx, audit.Entry{
		ActorID:    u.ID.String(),
		OwnerID:    u.ID.String(),
		ActionType: audit.ActionLoginSuccess,
		SourceIP:   sourceIP,
	})
	return token, u, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}
