package services

import (
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"studiorent/internal/models"
)

// EmailConfig holds SMTP settings. An empty User or Password disables sending.
type EmailConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	From        string
	StudioEmail string
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailService sends reservation mails over SMTP.
type EmailService struct {
	sender mailSender
	from   string
	studio string
	logger *zap.Logger
}

// NewEmailService builds the SMTP dialer, or a log-only service when credentials are missing.
func NewEmailService(cfg EmailConfig, logger *zap.Logger) *EmailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	es := &EmailService{
		from:   cfg.From,
		studio: cfg.StudioEmail,
		logger: logger,
	}
	if cfg.User == "" || cfg.Password == "" {
		logger.Info("SMTP credentials not set, email delivery disabled")
		if es.from == "" {
			es.from = "noreply@studiorent.local"
		}
		return es
	}
	if es.from == "" {
		es.from = cfg.User
	}
	es.sender = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return es
}

// Enabled reports whether mails actually leave the process.
func (es *EmailService) Enabled() bool { return es.sender != nil }

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`
<h2>Reservation request received</h2>
<p>Hello {{.CustomerName}},</p>
<p>We received your rental request <strong>{{.ReservationNumber}}</strong> for {{.Days}} day(s){{if .Range}} ({{.From}} to {{.To}}){{end}}.</p>
<ul>
{{range .Items}}<li>{{.Quantity}} x {{.Name}} @ {{.PricePerDay}}/day</li>
{{end}}</ul>
<p>Estimated subtotal: <strong>{{.Subtotal}}</strong></p>
<p>We will confirm availability shortly.</p>
`))

var studioTmpl = template.Must(template.New("studio").Parse(`
<h2>New reservation {{.ReservationNumber}}</h2>
<p>{{.CustomerName}} &lt;{{.Email}}&gt; {{.Phone}}{{if .Company}}, {{.Company}}{{end}}</p>
<p>{{.Days}} day(s){{if .Range}} from {{.From}} to {{.To}}{{end}}, subtotal {{.Subtotal}}</p>
<ul>
{{range .Items}}<li>{{.Quantity}} x {{.Name}} ({{.ID}})</li>
{{end}}</ul>
{{if .Notes}}<p>Notes: {{.Notes}}</p>{{end}}
`))

type mailView struct {
	*models.Reservation
	From string
	To   string
}

func renderReservation(tmpl *template.Template, r *models.Reservation) (string, error) {
	view := mailView{Reservation: r}
	if r.Range != nil {
		view.From = models.FormatDate(r.Range.From)
		view.To = models.FormatDate(r.Range.To)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, view); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (es *EmailService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", es.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return es.sender.DialAndSend(m)
}

// SendReservationConfirmation mails the customer a summary of their request.
func (es *EmailService) SendReservationConfirmation(r *models.Reservation) error {
	if !es.Enabled() {
		es.logger.Info("email disabled, confirmation not sent",
			zap.String("reservation", r.ReservationNumber),
			zap.String("to", r.Email))
		return nil
	}
	body, err := renderReservation(confirmationTmpl, r)
	if err != nil {
		return err
	}
	if err := es.send(r.Email, fmt.Sprintf("Reservation %s received", r.ReservationNumber), body); err != nil {
		es.logger.Error("confirmation email failed", zap.String("reservation", r.ReservationNumber), zap.Error(err))
		return err
	}
	es.logger.Info("confirmation email sent", zap.String("reservation", r.ReservationNumber), zap.String("to", r.Email))
	return nil
}

// SendStudioNotification tells the studio a new reservation arrived.
func (es *EmailService) SendStudioNotification(r *models.Reservation) error {
	if !es.Enabled() || es.studio == "" {
		es.logger.Info("studio notification skipped", zap.String("reservation", r.ReservationNumber))
		return nil
	}
	body, err := renderReservation(studioTmpl, r)
	if err != nil {
		return err
	}
	if err := es.send(es.studio, fmt.Sprintf("New reservation %s", r.ReservationNumber), body); err != nil {
		es.logger.Error("studio notification failed", zap.String("reservation", r.ReservationNumber), zap.Error(err))
		return err
	}
	return nil
}
