package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meditrust/meditrust/internal/domain/audit"
	"github.com/meditrust/meditrust/internal/platform/auth"
)

type mockRepo struct {
	users []*User
}

func (m *mockRepo) Create(ctx context.Context, u *User) error {
	m.users = append(m.users, u)
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

type mockRecorder struct {
	entries []audit.Entry
}

func (m *mockRecorder) Record(ctx context.Context, e audit.Entry) {
	m.entries = append(m.entries, e)
}

func (m *mockRecorder) last(t *testing.T) audit.Entry {
	t.Helper()
	if len(m.entries) == 0 {
		t.Fatal("expected at least one audit entry")
	}
	return m.entries[len(m.entries)-1]
}

func newTestService(repo *mockRepo, rec *mockRecorder) *Service {
	issuer := auth.NewTokenIssuer("test-secret-at-least-32-chars-long!!", time.Hour)
	return NewService(repo, issuer, rec, zerolog.Nop())
}

func wallet(s string) *string { return &s }

func TestRegister(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, &mockRecorder{})

	u, err := svc.Register(context.Background(), RegisterInput{
		Email:         "Alice@Example.com",
		Username:      "alice",
		Password:      "correct horse",
		Role:          RolePatient,
		WalletAddress: wallet("0x1111111111111111111111111111111111111111"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID == uuid.Nil {
		t.Error("expected generated id")
	}
	if u.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %q", u.Email)
	}
	if u.PasswordHash == "correct horse" || u.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}
	if !u.Active {
		t.Error("new users must be active")
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService(&mockRepo{}, &mockRecorder{})

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing email", RegisterInput{Username: "x", Password: "longenough", Role: RolePatient}},
		{"not an email", RegisterInput{Email: "nope", Username: "x", Password: "longenough", Role: RolePatient}},
		{"empty username", RegisterInput{Email: "a@b.com", Password: "longenough", Role: RolePatient}},
		{"short password", RegisterInput{Email: "a@b.com", Username: "x", Password: "short", Role: RolePatient}},
		{"unknown role", RegisterInput{Email: "a@b.com", Username: "x", Password: "longenough", Role: "superuser"}},
		{"bad wallet", RegisterInput{Email: "a@b.com", Username: "x", Password: "longenough", Role: RoleDoctor, WalletAddress: wallet("1234")}},
		{"wallet missing prefix", RegisterInput{Email: "a@b.com", Username: "x", Password: "longenough", Role: RoleDoctor, WalletAddress: wallet("1111111111111111111111111111111111111111xx")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T: %v", err, err)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, &mockRecorder{})

	in := RegisterInput{Email: "a@b.com", Username: "first", Password: "longenough", Role: RolePatient}
	if _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	in.Username = "second"
	if _, err := svc.Register(context.Background(), in); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, &mockRecorder{})

	in := RegisterInput{Email: "a@b.com", Username: "same", Password: "longenough", Role: RolePatient}
	if _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	in.Email = "other@b.com"
	if _, err := svc.Register(context.Background(), in); err != ErrUsernameTaken {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	repo := &mockRepo{}
	rec := &mockRecorder{}
	svc := newTestService(repo, rec)

	u, err := svc.Register(context.Background(), RegisterInput{
		Email: "a@b.com", Username: "alice", Password: "longenough", Role: RolePatient,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	token, got, err := svc.Login(context.Background(), "a@b.com", "longenough", "10.0.0.1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Error("expected a token")
	}
	if got.ID != u.ID {
		t.Error("login returned wrong user")
	}

	e := rec.last(t)
	if e.ActionType != audit.ActionLoginSuccess {
		t.Errorf("expected LOGIN_SUCCESS audit, got %q", e.ActionType)
	}
	if e.SourceIP != "10.0.0.1" {
		t.Errorf("expected source ip recorded, got %q", e.SourceIP)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := &mockRepo{}
	rec := &mockRecorder{}
	svc := newTestService(repo, rec)

	if _, err := svc.Register(context.Background(), RegisterInput{
		Email: "a@b.com", Username: "alice", Password: "longenough", Role: RolePatient,
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, _, err := svc.Login(context.Background(), "a@b.com", "wrongwrong", "10.0.0.1")
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if rec.last(t).ActionType != audit.ActionLoginFailure {
		t.Errorf("expected LOGIN_FAILURE audit, got %q", rec.last(t).ActionType)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	rec := &mockRecorder{}
	svc := newTestService(&mockRepo{}, rec)

	_, _, err := svc.Login(context.Background(), "ghost@b.com", "whatever1", "10.0.0.1")
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	e := rec.last(t)
	if e.ActionType != audit.ActionLoginFailure {
		t.Errorf("expected LOGIN_FAILURE audit, got %q", e.ActionType)
	}
	if e.ActorID != "ghost@b.com" {
		t.Errorf("expected attempted email as actor, got %q", e.ActorID)
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	repo := &mockRepo{}
	rec := &mockRecorder{}
	svc := newTestService(repo, rec)

	u, err := svc.Register(context.Background(), RegisterInput{
		Email: "a@b.com", Username: "alice", Password: "longenough", Role: RolePatient,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	u.Active = false

	if _, _, err := svc.Login(context.Background(), "a@b.com", "longenough", ""); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for inactive user, got %v", err)
	}
}
