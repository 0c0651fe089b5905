package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestAccountService() (*AccountService, *mockUserRepo) {
	users := newMockUserRepo()
	svc := NewAccountService(users)
	svc.hashCost = bcrypt.MinCost
	return svc, users
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"empty username", RegisterRequest{Username: "", Password: "s3cretpass", PasswordConfirm: "s3cretpass"}},
		{"username with space", RegisterRequest{Username: "a b", Password: "s3cretpass", PasswordConfirm: "s3cretpass"}},
		{"bad email", RegisterRequest{Username: "alice", Email: "nope", Password: "s3cretpass", PasswordConfirm: "s3cretpass"}},
		{"short password", RegisterRequest{Username: "alice", Password: "short", PasswordConfirm: "short"}},
		{"numeric password", RegisterRequest{Username: "alice", Password: "12345678", PasswordConfirm: "12345678"}},
		{"mismatch", RegisterRequest{Username: "alice", Password: "s3cretpass", PasswordConfirm: "s3cretpasS"}},
		{"password over 72 bytes", RegisterRequest{Username: "alice", Password: strings.Repeat("pw", 40), PasswordConfirm: strings.Repeat("pw", 40)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestAccountService()
			_, err := svc.Register(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got: %v", err)
			}
		})
	}
}

func TestRegister_AndAuthenticate(t *testing.T) {
	svc, _ := newTestAccountService()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{
		Username:        " alice ",
		Email:           "alice@example.com",
		Password:        "s3cretpass",
		PasswordConfirm: "s3cretpass",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == 0 || user.Username != "alice" {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.PasswordHash == "s3cretpass" {
		t.Fatal("password stored in clear text")
	}

	got, err := svc.Authenticate(ctx, "alice", "s3cretpass")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, got.ID)
	}

	if _, err := svc.Authenticate(ctx, "alice", "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "mallory", "s3cretpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got: %v", err)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _ := newTestAccountService()
	req := RegisterRequest{Username: "alice", Password: "s3cretpass", PasswordConfirm: "s3cretpass"}

	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), req); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got: %v", err)
	}
}

func TestCurrentUser(t *testing.T) {
	svc, _ := newTestAccountService()

	u, err := svc.CurrentUser(context.Background(), 0)
	if err != nil || u != nil {
		t.Fatalf("expected anonymous, got %+v %v", u, err)
	}

	u, err = svc.CurrentUser(context.Background(), 42)
	if err != nil || u != nil {
		t.Fatalf("expected deleted user to read as anonymous, got %+v %v", u, err)
	}
}
