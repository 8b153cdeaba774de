package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"carrental/internal/db"
	"carrental/internal/entities"
	apperrors "carrental/internal/errors"
	"carrental/internal/utils"
)

const (
	TicketOpen       = "Open"
	TicketInProgress = "In Progress"
	TicketWaiting    = "Waiting"
	TicketResolved   = "Resolved"
	TicketClosed     = "Closed"

	SenderUser    = "User"
	SenderSupport = "Support"
)

var (
	ticketStatuses   = []string{TicketOpen, TicketInProgress, TicketWaiting, TicketResolved, TicketClosed}
	ticketCategories = []string{"Booking", "Payment", "Car Issue", "Account", "Technical", "Emergency", "General"}
	ticketPriorities = []string{"Low", "Medium", "High", "Urgent"}
)

type SupportRepository interface {
	Create(ctx context.Context, t *db.SupportTicket) error
	GetByID(ctx context.Context, id string) (*db.SupportTicket, error)
	GetByNumber(ctx context.Context, number string) (*db.SupportTicket, error)
	List(ctx context.Context, f entities.TicketFilter) ([]db.SupportTicket, int64, error)
	Update(ctx context.Context, id string, fn func(t *db.SupportTicket) ([]db.SupportMessage, error)) (*db.SupportTicket, error)
}

type SupportService struct {
	repo   SupportRepository
	logger *zerolog.Logger
	now    func() time.Time
}

func NewSupportService(repo SupportRepository, logger *zerolog.Logger) *SupportService {
	return &SupportService{repo: repo, logger: logger, now: time.Now}
}

func (s *SupportService) Create(ctx context.Context, userID string, req entities.TicketRequest) (*db.SupportTicket, error) {
	subject := strings.TrimSpace(req.Subject)
	description := strings.TrimSpace(req.Description)
	if subject == "" || description == "" {
		return nil, fmt.Errorf("%w: subject and description are required", apperrors.ErrValidation)
	}
	if req.Category == "" {
		req.Category = "General"
	}
	if req.Priority == "" {
		req.Priority = "Medium"
	}
	if !slices.Contains(ticketCategories, req.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", apperrors.ErrValidation, req.Category)
	}
	if !slices.Contains(ticketPriorities, req.Priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", apperrors.ErrValidation, req.Priority)
	}

	now := s.now().UTC()
	number, err := utils.TicketNumber(now)
	if err != nil {
		return nil, err
	}
	t := &db.SupportTicket{
		ID:               uuid.NewString(),
		TicketNumber:     number,
		UserID:           userID,
		Subject:          subject,
		Category:         req.Category,
		Priority:         req.Priority,
		Status:           TicketOpen,
		Description:      description,
		RelatedBookingID: req.RelatedBookingID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	t.Messages = []db.SupportMessage{{
		ID:        uuid.NewString(),
		TicketID:  t.ID,
		Sender:    SenderUser,
		Message:   description,
		CreatedAt: now,
	}}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info().Str("ticket", t.TicketNumber).Str("user_id", userID).Str("priority", t.Priority).Msg("support ticket opened")
	return t, nil
}

func (s *SupportService) Get(ctx context.Context, id, userID string, isAdmin bool) (*db.SupportTicket, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return visible(t, userID, isAdmin)
}

func (s *SupportService) GetByNumber(ctx context.Context, number, userID string, isAdmin bool) (*db.SupportTicket, error) {
	t, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return visible(t, userID, isAdmin)
}

func visible(t *db.SupportTicket, userID string, isAdmin bool) (*db.SupportTicket, error) {
	if !isAdmin && t.UserID != userID {
		return nil, fmt.Errorf("ticket %s: %w", t.ID, apperrors.ErrNotFound)
	}
	return t, nil
}

// List returns tickets matching f. Non-admin callers only see their own.
func (s *SupportService) List(ctx context.Context, f entities.TicketFilter, userID string, isAdmin bool) ([]db.SupportTicket, int64, error) {
	if !isAdmin {
		f.UserID = userID
	}
	f.Limit, f.Offset = page(f.Limit, f.Offset)
	return s.repo.List(ctx, f)
}

// AddMessage appends a message to the conversation. A customer reply on a
// ticket waiting for them puts it back in progress.
func (s *SupportService) AddMessage(ctx context.Context, id, userID string, isAdmin bool, req entities.TicketMessageRequest) (*db.SupportTicket, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, fmt.Errorf("%w: message is required", apperrors.ErrValidation)
	}
	return s.repo.Update(ctx, id, func(t *db.SupportTicket) ([]db.SupportMessage, error) {
		if !isAdmin && t.UserID != userID {
			return nil, fmt.Errorf("ticket %s: %w", id, apperrors.ErrNotFound)
		}
		if t.Status == TicketClosed {
			return nil, fmt.Errorf("%w: ticket is closed", apperrors.ErrValidation)
		}
		now := s.now().UTC()
		sender := SenderUser
		if isAdmin && t.UserID != userID {
			sender = SenderSupport
		}
		if sender == SenderUser && t.Status == TicketWaiting {
			t.Status = TicketInProgress
		}
		t.UpdatedAt = now
		return []db.SupportMessage{{ID: uuid.NewString(), TicketID: t.ID, Sender: sender, Message: text, CreatedAt: now}}, nil
	})
}

// UpdateStatus moves the ticket to a new status. Resolution time is recorded
// the first time it is resolved.
func (s *SupportService) UpdateStatus(ctx context.Context, id string, req entities.TicketStatusRequest) (*db.SupportTicket, error) {
	if !slices.Contains(ticketStatuses, req.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, req.Status)
	}
	return s.repo.Update(ctx, id, func(t *db.SupportTicket) ([]db.SupportMessage, error) {
		now := s.now().UTC()
		t.Status = req.Status
		if req.AssignedTo != nil {
			t.AssignedTo = req.AssignedTo
		}
		if (req.Status == TicketResolved || req.Status == TicketClosed) && t.ResolutionMinutes == nil {
			minutes := int(now.Sub(t.CreatedAt).Minutes())
			t.ResolutionMinutes = &minutes
		}
		t.UpdatedAt = now
		return nil, nil
	})
}

// Rate stores the customer's satisfaction score and closes the ticket.
func (s *SupportService) Rate(ctx context.Context, id, userID string, req entities.TicketRatingRequest) (*db.SupportTicket, error) {
	if req.Score < 1 || req.Score > 5 {
		return nil, fmt.Errorf("%w: score must be between 1 and 5", apperrors.ErrValidation)
	}
	return s.repo.Update(ctx, id, func(t *db.SupportTicket) ([]db.SupportMessage, error) {
		if t.UserID != userID {
			return nil, fmt.Errorf("ticket %s: %w", id, apperrors.ErrNotFound)
		}
		if t.RatingScore != nil {
			return nil, fmt.Errorf("%w: ticket already rated", apperrors.ErrValidation)
		}
		now := s.now().UTC()
		score := req.Score
		feedback := strings.TrimSpace(req.Feedback)
		t.RatingScore = &score
		t.RatingFeedback = &feedback
		t.RatedAt = &now
		if t.ResolutionMinutes == nil {
			minutes := int(now.Sub(t.CreatedAt).Minutes())
			t.ResolutionMinutes = &minutes
		}
		t.Status = TicketClosed
		t.UpdatedAt = now
		return nil, nil
	})
}
