package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/eRom/health-sub001/internal/database"
	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/repository"
)

const maxMessageLength = 2000

// MessageService exchanges messages between associated patients and providers.
type MessageService interface {
	Send(ctx context.Context, senderID, recipientID uuid.UUID, body string) (*models.Message, error)
	// Conversation lists the messages with otherID and marks those sent to userID as read.
	Conversation(ctx context.Context, userID, otherID uuid.UUID) ([]*models.Message, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

type messageService struct {
	tx              database.TxManager
	associationRepo repository.AssociationRepository
	messageRepo     repository.MessageRepository
}

// NewMessageService creates a new message service.
func NewMessageService(
	tx database.TxManager,
	associationRepo repository.AssociationRepository,
	messageRepo repository.MessageRepository,
) MessageService {
	return &messageService{
		tx:              tx,
		associationRepo: associationRepo,
		messageRepo:     messageRepo,
	}
}

func (s *messageService) Send(ctx context.Context, senderID, recipientID uuid.UUID, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apierrors.NewValidationError("body", "Le message ne peut pas être vide")
	}
	if utf8.RuneCountInString(body) > maxMessageLength {
		return nil, apierrors.NewValidationError("body", "Le message ne doit pas dépasser 2000 caractères")
	}
	if senderID == recipientID {
		return nil, apierrors.ErrNoAssociation
	}

	var msg *models.Message
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		assoc, err := s.associationRepo.GetAcceptedBetween(ctx, senderID, recipientID)
		if err != nil {
			return err
		}
		if assoc == nil {
			return apierrors.ErrNoAssociation
		}
		msg = &models.Message{
			AssociationID: assoc.ID,
			SenderID:      senderID,
			RecipientID:   recipientID,
			Body:          body,
		}
		return s.messageRepo.Create(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *messageService) Conversation(ctx context.Context, userID, otherID uuid.UUID) ([]*models.Message, error) {
	var messages []*models.Message
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		assoc, err := s.associationRepo.GetAcceptedBetween(ctx, userID, otherID)
		if err != nil {
			return err
		}
		if assoc == nil {
			return apierrors.ErrNoAssociation
		}
		messages, err = s.messageRepo.ListByAssociation(ctx, assoc.ID)
		if err != nil {
			return err
		}
		_, err = s.messageRepo.MarkRead(ctx, assoc.ID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *messageService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.messageRepo.CountUnread(ctx, userID)
}

// Compile-time check
var _ MessageService = (*messageService)(nil)
