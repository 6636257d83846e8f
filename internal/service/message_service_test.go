package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
)

func TestMessageService_RequiresAcceptedAssociation(t *testing.T) {
	assocs := newMockAssociationRepo()
	messages := &mockMessageRepo{}
	svc := NewMessageService(&mockTx{}, assocs, messages)
	patient, provider := uuid.New(), uuid.New()
	ctx := context.Background()

	a := &models.Association{PatientID: patient, ProviderID: provider, Status: models.AssociationPending}
	require.NoError(t, assocs.Create(ctx, a))

	_, err := svc.Send(ctx, provider, patient, "Bonjour")
	assert.ErrorIs(t, err, apierrors.ErrNoAssociation)

	a.Status = models.AssociationAccepted
	msg, err := svc.Send(ctx, provider, patient, " Bonjour ")
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", msg.Body)
	assert.Equal(t, a.ID, msg.AssociationID)

	_, err = svc.Send(ctx, provider, patient, "   ")
	assert.Equal(t, "validation_error", apierrors.AsAPIError(err).Code)
}

func TestMessageService_ConversationMarksRead(t *testing.T) {
	assocs := newMockAssociationRepo()
	messages := &mockMessageRepo{}
	svc := NewMessageService(&mockTx{}, assocs, messages)
	patient, provider := uuid.New(), uuid.New()
	ctx := context.Background()
	require.NoError(t, assocs.Create(ctx, &models.Association{PatientID: patient, ProviderID: provider, Status: models.AssociationAccepted}))

	_, err := svc.Send(ctx, provider, patient, "Comment va le genou ?")
	require.NoError(t, err)
	_, err = svc.Send(ctx, patient, provider, "Mieux, merci")
	require.NoError(t, err)

	n, err := svc.UnreadCount(ctx, patient)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	conv, err := svc.Conversation(ctx, patient, provider)
	require.NoError(t, err)
	assert.Len(t, conv, 2)

	n, err = svc.UnreadCount(ctx, patient)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = svc.UnreadCount(ctx, provider)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
