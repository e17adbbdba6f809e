package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/wko-katas/katas-engine/internal/models"
	"github.com/wko-katas/katas-engine/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.MemoryRepository) {
	t.Helper()

	repo := storage.NewMemoryRepository()
	svc, err := NewService(repo, Config{Secret: "test-secret", BcryptCost: bcrypt.MinCost}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc, repo
}

func seedAdmin(t *testing.T, svc *Service) *Claims {
	t.Helper()

	if _, err := svc.SeedAdmin(context.Background(), "admin", "admin123", "Administrador"); err != nil {
		t.Fatalf("SeedAdmin failed: %v", err)
	}
	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("admin login failed: %v", err)
	}
	claims, err := svc.Verify(resp.Token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	return claims
}

func TestNewServiceRequiresSecret(t *testing.T) {
	if _, err := NewService(storage.NewMemoryRepository(), Config{}, nil); err == nil {
		t.Error("expected error without secret")
	}
}

func TestSeedAdminOnlyWhenEmpty(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	created, err := svc.SeedAdmin(ctx, "admin", "admin123", "Administrador")
	if err != nil || !created {
		t.Fatalf("expected admin to be created, got %v %v", created, err)
	}

	created, err = svc.SeedAdmin(ctx, "other", "pw", "Other")
	if err != nil || created {
		t.Errorf("expected no second seed, got %v %v", created, err)
	}

	admin, _ := repo.GetUserByUsername(ctx, "admin")
	if admin.Belt != models.BeltNegro4Dan {
		t.Errorf("expected admin belt, got %q", admin.Belt)
	}
	if admin.PasswordHash == "admin123" {
		t.Error("password must be hashed")
	}
}

func TestLoginAndVerify(t *testing.T) {
	svc, _ := newTestService(t)
	admin := seedAdmin(t, svc)

	if admin.Username != "admin" || admin.Belt != models.BeltNegro4Dan || admin.UserID != 1 {
		t.Errorf("unexpected claims %+v", admin)
	}
	if admin.ID == "" {
		t.Error("expected a token id")
	}
	if got := admin.ExpiresAt.Sub(admin.IssuedAt.Time); got != DefaultTokenTTL {
		t.Errorf("expected 7 day expiry, got %v", got)
	}
}

func TestLoginFailures(t *testing.T) {
	svc, _ := newTestService(t)
	seedAdmin(t, svc)
	ctx := context.Background()

	tests := []struct {
		name string
		req  models.LoginRequest
		want error
	}{
		{"wrong password", models.LoginRequest{Username: "admin", Password: "nope"}, ErrInvalidCredentials},
		{"unknown user", models.LoginRequest{Username: "ghost", Password: "admin123"}, ErrInvalidCredentials},
		{"missing fields", models.LoginRequest{Username: "admin"}, ErrMissingFields},
	}

	for _, tt := range tests {
		if _, err := svc.Login(ctx, tt.req); !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	svc, _ := newTestService(t)
	user := &models.User{ID: 5, Username: "ana", Belt: models.BeltAzul}

	token, err := svc.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	other, _ := NewService(storage.NewMemoryRepository(), Config{Secret: "other-secret"}, nil)
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for foreign signature, got %v", err)
	}

	if _, err := svc.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for garbage, got %v", err)
	}
	if _, err := svc.Verify(""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for empty token, got %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService(t)
	admin := seedAdmin(t, svc)
	ctx := context.Background()

	req := models.RegisterRequest{Username: "ana", Password: "pw", Name: "Ana", Belt: models.BeltVerde}
	user, err := svc.Register(ctx, admin, req)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID == 0 || user.Belt != models.BeltVerde {
		t.Errorf("unexpected user %+v", user)
	}

	if _, err := svc.Register(ctx, admin, req); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}

	resp, err := svc.Login(ctx, models.LoginRequest{Username: "ana", Password: "pw"})
	if err != nil {
		t.Fatalf("new user login failed: %v", err)
	}
	ana, _ := svc.Verify(resp.Token)

	if _, err := svc.Register(ctx, ana, models.RegisterRequest{Username: "x", Password: "pw", Name: "X", Belt: models.BeltBlanco}); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for non-admin caller, got %v", err)
	}
	if _, err := svc.Register(ctx, nil, req); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden without caller, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	admin := seedAdmin(t, svc)
	ctx := context.Background()

	if _, err := svc.Register(ctx, admin, models.RegisterRequest{Username: "x", Password: "pw", Belt: models.BeltAzul}); !errors.Is(err, ErrMissingFields) {
		t.Errorf("expected ErrMissingFields, got %v", err)
	}
	if _, err := svc.Register(ctx, admin, models.RegisterRequest{Username: "x", Password: "pw", Name: "X", Belt: "Morado"}); !errors.Is(err, ErrUnknownBelt) {
		t.Errorf("expected ErrUnknownBelt, got %v", err)
	}
}

func TestUpdateAndDeleteUser(t *testing.T) {
	svc, _ := newTestService(t)
	admin := seedAdmin(t, svc)
	ctx := context.Background()

	user, _ := svc.Register(ctx, admin, models.RegisterRequest{Username: "ana", Password: "pw", Name: "Ana", Belt: models.BeltAzul})

	belt := models.BeltAmarillo
	updated, err := svc.UpdateUser(ctx, user.ID, models.UserUpdate{Belt: &belt})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if updated.Belt != models.BeltAmarillo || updated.Name != "Ana" {
		t.Errorf("unexpected update result %+v", updated)
	}

	bad := models.BeltLevel("Morado")
	if _, err := svc.UpdateUser(ctx, user.ID, models.UserUpdate{Belt: &bad}); !errors.Is(err, ErrUnknownBelt) {
		t.Errorf("expected ErrUnknownBelt, got %v", err)
	}
	if _, err := svc.UpdateUser(ctx, 999, models.UserUpdate{}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	if err := svc.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if err := svc.DeleteUser(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	users, _ := svc.ListUsers(ctx)
	if len(users) != 1 || users[0].Username != "admin" {
		t.Errorf("expected only admin to remain, got %+v", users)
	}
}
