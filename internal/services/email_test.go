package services

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gopkg.in/gomail.v2"

	"studiorent/internal/models"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func sampleReservation(t *testing.T) *models.Reservation {
	r := mustRange(t, "2026-10-01", "2026-10-02")
	return &models.Reservation{
		ReservationNumber: "RSV-ABCD1234",
		CustomerName:      "Ada",
		Email:             "ada@example.com",
		Phone:             "123",
		Range:             &r,
		Days:              2,
		Items:             []models.CartItem{{ID: "cam1", Name: "FX6", PricePerDay: d(1000), Quantity: 1}},
		Subtotal:          d(2000),
		CreatedAt:         time.Now(),
	}
}

func TestEmailService_DisabledWithoutCredentials(t *testing.T) {
	es := NewEmailService(EmailConfig{Host: "smtp.example.com", Port: 587}, zaptest.NewLogger(t))
	assert.False(t, es.Enabled())
	assert.NoError(t, es.SendReservationConfirmation(sampleReservation(t)))
	assert.NoError(t, es.SendStudioNotification(sampleReservation(t)))
}

func TestEmailService_Enabled(t *testing.T) {
	es := NewEmailService(EmailConfig{Host: "smtp.example.com", Port: 587, User: "u@example.com", Password: "p"}, zaptest.NewLogger(t))
	assert.True(t, es.Enabled())
	assert.Equal(t, "u@example.com", es.from)
}

func TestEmailService_SendsReservationMails(t *testing.T) {
	sender := &fakeSender{}
	es := &EmailService{sender: sender, from: "desk@studio.test", studio: "ops@studio.test", logger: zaptest.NewLogger(t)}

	require.NoError(t, es.SendReservationConfirmation(sampleReservation(t)))
	require.NoError(t, es.SendStudioNotification(sampleReservation(t)))
	require.Len(t, sender.sent, 2)

	customer := sender.sent[0]
	assert.Equal(t, []string{"ada@example.com"}, customer.GetHeader("To"))
	assert.Equal(t, []string{"Reservation RSV-ABCD1234 received"}, customer.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := customer.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "FX6")

	assert.Equal(t, []string{"ops@studio.test"}, sender.sent[1].GetHeader("To"))
}

func TestEmailService_SendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("refused")}
	es := &EmailService{sender: sender, from: "a@b.c", logger: zaptest.NewLogger(t)}
	assert.Error(t, es.SendReservationConfirmation(sampleReservation(t)))
}
