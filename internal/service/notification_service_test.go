package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/db"
	"carrental/internal/loyalty"
)

type sentEmail struct {
	to, subject, plain, html string
}

type fakeSender struct {
	mu     sync.Mutex
	emails []sentEmail
	sms    []string
}

func (f *fakeSender) SendEmail(_ context.Context, toEmail, _, subject, plainText, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, sentEmail{toEmail, subject, plainText, html})
	return nil
}

func (f *fakeSender) SendSMS(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sms = append(f.sms, to+": "+body)
	return nil
}

func sampleBooking() (*db.Car, *db.Booking) {
	car := &db.Car{ID: "car-1", Name: "Alfa Romeo Giulia", Currency: "EUR"}
	b := &db.Booking{
		ID:            "b-1",
		CarID:         car.ID,
		TimeFrom:      time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC),
		TimeTo:        time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC),
		Amount:        240,
		TransactionID: "BOOK-1234ABCD",
	}
	return car, b
}

func TestBookingConfirmed_SendsEmailAndSMS(t *testing.T) {
	sender := &fakeSender{}
	svc := NewNotificationService(sender, sender, nopLogger())
	car, b := sampleBooking()
	user := &db.User{Username: "marta", Email: "marta@example.com", Phone: "+39333000111"}

	svc.BookingConfirmed(user, car, b, loyalty.AccrualResult{
		PointsEarned: 240,
		Tier:         loyalty.TierBronze,
		NewBadges:    []loyalty.Badge{{Name: "First Ride"}},
	})
	svc.Wait()

	require.Len(t, sender.emails, 1)
	email := sender.emails[0]
	assert.Equal(t, "marta@example.com", email.to)
	assert.Contains(t, email.subject, "b-1")
	assert.Contains(t, email.plain, "Points earned: 240")
	assert.Contains(t, email.html, "First Ride")
	assert.Contains(t, email.html, "240.00 EUR")
	require.Len(t, sender.sms, 1)
	assert.Contains(t, sender.sms[0], "+39333000111")
}

func TestBookingConfirmed_LocalizedAndWithoutPhone(t *testing.T) {
	sender := &fakeSender{}
	svc := NewNotificationService(sender, sender, nopLogger())
	car, b := sampleBooking()
	user := &db.User{Username: "pablo", Email: "pablo@example.com", Language: "es"}

	svc.BookingConfirmed(user, car, b, loyalty.AccrualResult{PointsEarned: 240, Tier: loyalty.TierBronze})
	svc.Wait()

	require.Len(t, sender.emails, 1)
	assert.Contains(t, sender.emails[0].subject, "confirmada")
	assert.Empty(t, sender.sms)
}

func TestBookingCancelled_EmailOnly(t *testing.T) {
	sender := &fakeSender{}
	svc := NewNotificationService(sender, sender, nopLogger())
	car, b := sampleBooking()
	user := &db.User{Username: "anna", Email: "anna@example.com", Phone: "+39333000222", Language: "it"}

	svc.BookingCancelled(user, car, b)
	svc.Wait()

	require.Len(t, sender.emails, 1)
	assert.Contains(t, sender.emails[0].subject, "annullata")
	assert.Empty(t, sender.sms)
}

func TestPickupReminder(t *testing.T) {
	sender := &fakeSender{}
	svc := NewNotificationService(sender, sender, nopLogger())

	require.NoError(t, svc.PickupReminder(context.Background(), db.BookingReminder{BookingID: "b-1"}))
	assert.Empty(t, sender.sms)

	err := svc.PickupReminder(context.Background(), db.BookingReminder{
		BookingID: "b-1",
		CarName:   "Fiat Panda",
		Phone:     "+39333000333",
		TimeFrom:  time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, sender.sms, 1)
	assert.Contains(t, sender.sms[0], "Fiat Panda")
}
