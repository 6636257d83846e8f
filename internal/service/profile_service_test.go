package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
)

func TestProfileService_UpdateProfile(t *testing.T) {
	users := newMockUserRepo()
	svc := NewProfileService(users, NewAuditService(&mockAuditRepo{}), testLogger())
	user := users.add(&models.User{Email: "p@example.com", Name: "Old"})
	users.add(&models.User{Email: "taken@example.com"})

	tests := []struct {
		name    string
		newName string
		email   string
		want    Result
	}{
		{"valid", "Camille", "camille@example.com", Result{Success: true}},
		{"empty name", "  ", "camille@example.com", Result{Error: "Le nom doit contenir entre 1 et 100 caractères"}},
		{"bad email", "Camille", "not-an-email", Result{Error: "Adresse email invalide"}},
		{"email taken", "Camille", "taken@example.com", Result{Error: apierrors.ErrEmailTaken.Message}},
		{"own email", "Camille", "camille@example.com", Result{Success: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.UpdateProfile(context.Background(), user.ID, tt.newName, tt.email)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "camille@example.com", users.users[user.ID].Email)
}

func TestProfileService_UpdatePreferences(t *testing.T) {
	users := newMockUserRepo()
	svc := NewProfileService(users, NewAuditService(&mockAuditRepo{}), testLogger())
	user := users.add(&models.User{Email: "p@example.com"})

	assert.Equal(t, Result{Success: true}, svc.UpdatePreferences(context.Background(), user.ID, models.LocaleEN, models.ThemeDark))
	assert.Equal(t, models.LocaleEN, users.users[user.ID].Locale)

	got := svc.UpdatePreferences(context.Background(), user.ID, models.Locale("de"), models.ThemeDark)
	assert.False(t, got.Success)
	assert.Equal(t, "Langue non prise en charge", got.Error)

	got = svc.UpdatePreferences(context.Background(), user.ID, models.LocaleFR, models.Theme("neon"))
	assert.False(t, got.Success)
}

func TestProfileService_DeleteAccount(t *testing.T) {
	users := newMockUserRepo()
	audits := &mockAuditRepo{}
	svc := NewProfileService(users, NewAuditService(audits), testLogger())

	hash, err := hashPassword("motdepasse-solide")
	require.NoError(t, err)
	user := users.add(&models.User{Email: "p@example.com", PasswordHash: &hash})

	err = svc.DeleteAccount(context.Background(), user.ID, "mauvais")
	assert.ErrorIs(t, err, apierrors.ErrInvalidCredentials)
	assert.Contains(t, users.users, user.ID)

	require.NoError(t, svc.DeleteAccount(context.Background(), user.ID, "motdepasse-solide"))
	assert.NotContains(t, users.users, user.ID)
	require.Len(t, audits.logs, 1)
	assert.Nil(t, audits.logs[0].ActorID)
}
