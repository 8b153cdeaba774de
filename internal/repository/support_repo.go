package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"carrental/internal/db"
	"carrental/internal/entities"
)

const ticketColumns = `id, ticket_number, user_id, subject, category, priority, status, description, assigned_to,
	related_booking_id, rating_score, rating_feedback, rated_at, resolution_minutes, created_at, updated_at`

type SupportRepository struct {
	DB *sqlx.DB
}

func NewSupportRepository(db *sqlx.DB) *SupportRepository {
	return &SupportRepository{DB: db}
}

// Create stores the ticket and its opening message.
func (r *SupportRepository) Create(ctx context.Context, t *db.SupportTicket) error {
	return inTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO support_tickets (`+ticketColumns+`)
			VALUES (:id, :ticket_number, :user_id, :subject, :category, :priority, :status, :description, :assigned_to,
				:related_booking_id, :rating_score, :rating_feedback, :rated_at, :resolution_minutes, :created_at, :updated_at)`, t)
		if err != nil {
			return fmt.Errorf("error inserting ticket: %w", err)
		}
		for _, m := range t.Messages {
			if err := insertMessage(ctx, tx, &m); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SupportRepository) GetByID(ctx context.Context, id string) (*db.SupportTicket, error) {
	return r.getBy(ctx, "id", id)
}

func (r *SupportRepository) GetByNumber(ctx context.Context, number string) (*db.SupportTicket, error) {
	return r.getBy(ctx, "ticket_number", number)
}

func (r *SupportRepository) getBy(ctx context.Context, column, value string) (*db.SupportTicket, error) {
	var t db.SupportTicket
	err := r.DB.GetContext(ctx, &t, `SELECT `+ticketColumns+` FROM support_tickets WHERE `+column+` = $1`, value)
	if err != nil {
		return nil, notFound(err, "ticket")
	}
	t.Messages = []db.SupportMessage{}
	err = r.DB.SelectContext(ctx, &t.Messages, `
		SELECT id, ticket_id, sender, message, created_at
		FROM support_messages WHERE ticket_id = $1 ORDER BY created_at`, t.ID)
	if err != nil {
		return nil, fmt.Errorf("error querying ticket messages: %w", err)
	}
	return &t, nil
}

func (r *SupportRepository) List(ctx context.Context, f entities.TicketFilter) ([]db.SupportTicket, int64, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	idx := 1

	for _, c := range []struct{ column, value string }{
		{"user_id", f.UserID},
		{"status", f.Status},
		{"category", f.Category},
		{"priority", f.Priority},
	} {
		if c.value == "" {
			continue
		}
		where += " AND " + c.column + " = $" + strconv.Itoa(idx)
		args = append(args, c.value)
		idx++
	}

	var total int64
	if err := r.DB.GetContext(ctx, &total, `SELECT COUNT(*) FROM support_tickets`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("error counting tickets: %w", err)
	}
	query := `SELECT ` + ticketColumns + ` FROM support_tickets` + where +
		" ORDER BY created_at DESC LIMIT $" + strconv.Itoa(idx) + " OFFSET $" + strconv.Itoa(idx+1)
	args = append(args, f.Limit, f.Offset)

	tickets := []db.SupportTicket{}
	if err := r.DB.SelectContext(ctx, &tickets, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error listing tickets: %w", err)
	}
	return tickets, total, nil
}

// Update locks the ticket, applies fn and writes back the mutable columns.
// Messages fn appends without an id yet are inserted.
func (r *SupportRepository) Update(ctx context.Context, id string, fn func(t *db.SupportTicket) ([]db.SupportMessage, error)) (*db.SupportTicket, error) {
	err := inTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		var t db.SupportTicket
		err := tx.GetContext(ctx, &t, `SELECT `+ticketColumns+` FROM support_tickets WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return notFound(err, "ticket")
		}
		added, err := fn(&t)
		if err != nil {
			return err
		}
		_, err = tx.NamedExecContext(ctx, `
			UPDATE support_tickets SET
				status = :status, priority = :priority, assigned_to = :assigned_to,
				rating_score = :rating_score, rating_feedback = :rating_feedback, rated_at = :rated_at,
				resolution_minutes = :resolution_minutes, updated_at = :updated_at
			WHERE id = :id`, &t)
		if err != nil {
			return fmt.Errorf("error updating ticket: %w", err)
		}
		for _, m := range added {
			if err := insertMessage(ctx, tx, &m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func insertMessage(ctx context.Context, tx *sqlx.Tx, m *db.SupportMessage) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO support_messages (id, ticket_id, sender, message, created_at)
		VALUES (:id, :ticket_id, :sender, :message, :created_at)`, m)
	if err != nil {
		return fmt.Errorf("error inserting ticket message: %w", err)
	}
	return nil
}
