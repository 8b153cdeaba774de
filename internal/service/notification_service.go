package service

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"carrental/internal/db"
	"carrental/internal/entities"
	"carrental/internal/loyalty"
)

//go:embed templates/booking_email.html
var bookingEmailHTML string

var bookingEmailTmpl = template.Must(template.New("booking_email").Parse(bookingEmailHTML))

const sendTimeout = 30 * time.Second

// NotificationService tells customers about their bookings by email and SMS.
// Booking notices are sent in the background and never fail the request that
// triggered them.
type NotificationService struct {
	email  EmailSender
	sms    SMSSender
	logger *zerolog.Logger
	loc    *time.Location
	wg     sync.WaitGroup
}

func NewNotificationService(email EmailSender, sms SMSSender, logger *zerolog.Logger) *NotificationService {
	loc, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		loc = time.FixedZone("CET", 1*60*60)
	}
	return &NotificationService{email: email, sms: sms, logger: logger, loc: loc}
}

func (s *NotificationService) BookingConfirmed(user *db.User, car *db.Car, b *db.Booking, result loyalty.AccrualResult) {
	data := entities.BookingEmailData{
		UserName:           user.Username,
		BookingID:          b.ID,
		CarName:            car.Name,
		StartTimeFormatted: b.TimeFrom.In(s.loc).Format("02 Jan 2006 15:04 MST"),
		EndTimeFormatted:   b.TimeTo.In(s.loc).Format("02 Jan 2006 15:04 MST"),
		Amount:             fmt.Sprintf("%.2f %s", b.Amount, car.Currency),
		TransactionID:      b.TransactionID,
		PointsEarned:       result.PointsEarned,
		Tier:               string(result.Tier),
		CurrentYear:        time.Now().In(s.loc).Year(),
	}
	for _, badge := range result.NewBadges {
		data.NewBadges = append(data.NewBadges, badge.Name)
	}

	var subject, plain, sms string
	switch user.Language {
	case "es":
		subject = fmt.Sprintf("Tu reserva %s está confirmada", b.ID)
		plain = fmt.Sprintf("Hola %s,\n\nTu reserva del %s está confirmada.\nRecogida: %s\nDevolución: %s\nImporte: %s\nPuntos ganados: %d (nivel %s)\n",
			data.UserName, data.CarName, data.StartTimeFormatted, data.EndTimeFormatted, data.Amount, data.PointsEarned, data.Tier)
		sms = fmt.Sprintf("Car Rental: reserva %s confirmada. Recogida: %s.", b.ID, b.TimeFrom.In(s.loc).Format("02/01 15:04"))
	case "it":
		subject = fmt.Sprintf("La tua prenotazione %s è confermata", b.ID)
		plain = fmt.Sprintf("Ciao %s,\n\nLa tua prenotazione per %s è confermata.\nRitiro: %s\nRiconsegna: %s\nImporto: %s\nPunti guadagnati: %d (livello %s)\n",
			data.UserName, data.CarName, data.StartTimeFormatted, data.EndTimeFormatted, data.Amount, data.PointsEarned, data.Tier)
		sms = fmt.Sprintf("Car Rental: prenotazione %s confermata. Ritiro: %s.", b.ID, b.TimeFrom.In(s.loc).Format("02/01 15:04"))
	default:
		subject = fmt.Sprintf("Your booking %s is confirmed", b.ID)
		plain = fmt.Sprintf("Hello %s,\n\nYour booking for %s is confirmed.\nPick-up: %s\nReturn: %s\nAmount: %s\nPoints earned: %d (tier %s)\n",
			data.UserName, data.CarName, data.StartTimeFormatted, data.EndTimeFormatted, data.Amount, data.PointsEarned, data.Tier)
		sms = fmt.Sprintf("Car Rental: booking %s confirmed. Pick-up: %s.", b.ID, b.TimeFrom.In(s.loc).Format("02/01 15:04"))
	}

	var html bytes.Buffer
	if err := bookingEmailTmpl.Execute(&html, data); err != nil {
		s.logger.Error().Err(err).Str("booking_id", b.ID).Msg("render booking email")
	}
	s.dispatch(b.ID, user, subject, plain, html.String(), sms)
}

func (s *NotificationService) BookingCancelled(user *db.User, car *db.Car, b *db.Booking) {
	var subject, plain string
	switch user.Language {
	case "es":
		subject = fmt.Sprintf("Tu reserva %s ha sido cancelada", b.ID)
		plain = fmt.Sprintf("Hola %s,\n\nTu reserva del %s ha sido cancelada y el importe será reembolsado.\n", user.Username, car.Name)
	case "it":
		subject = fmt.Sprintf("La tua prenotazione %s è stata annullata", b.ID)
		plain = fmt.Sprintf("Ciao %s,\n\nLa tua prenotazione per %s è stata annullata e l'importo sarà rimborsato.\n", user.Username, car.Name)
	default:
		subject = fmt.Sprintf("Your booking %s has been cancelled", b.ID)
		plain = fmt.Sprintf("Hello %s,\n\nYour booking for %s has been cancelled and the amount will be refunded.\n", user.Username, car.Name)
	}
	s.dispatch(b.ID, user, subject, plain, "", "")
}

// PickupReminder texts the customer ahead of pick-up. It runs synchronously
// so the caller only marks the booking reminded after a successful send.
func (s *NotificationService) PickupReminder(ctx context.Context, r db.BookingReminder) error {
	if r.Phone == "" {
		return nil
	}
	at := r.TimeFrom.In(s.loc).Format("02/01 15:04")
	var body string
	switch r.Language {
	case "es":
		body = fmt.Sprintf("Car Rental: recuerda que recoges tu %s el %s.", r.CarName, at)
	case "it":
		body = fmt.Sprintf("Car Rental: ricorda il ritiro della tua %s il %s.", r.CarName, at)
	default:
		body = fmt.Sprintf("Car Rental: reminder, your %s pick-up is at %s.", r.CarName, at)
	}
	return s.sms.SendSMS(ctx, r.Phone, body)
}

// Wait blocks until background sends have finished.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func (s *NotificationService) dispatch(bookingID string, user *db.User, subject, plain, html, sms string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if user.Email != "" {
			if err := s.email.SendEmail(ctx, user.Email, user.Username, subject, plain, html); err != nil {
				s.logger.Warn().Err(err).Str("booking_id", bookingID).Msg("booking email failed")
			}
		}
		if sms != "" && user.Phone != "" {
			if err := s.sms.SendSMS(ctx, user.Phone, sms); err != nil {
				s.logger.Warn().Err(err).Str("booking_id", bookingID).Msg("booking sms failed")
			}
		}
	}()
}
