package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"

	"github.com/fareone/bookings/internal/domain"
)

type Mailer struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	Enabled bool
}

func NewMailer(apiKey, fromName, fromEmail string) *Mailer {
	m := &Mailer{
		Enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}
	if m.Enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}
	return m
}

func (m *Mailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	if !m.Enabled {
		return "", errors.New("mailer disabled (missing MAILERSEND_API_KEY or MAILER_FROM)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)
	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	// MailerSend uses X-Message-Id
	return res.Header.Get("X-Message-Id"), nil
}

func (m *Mailer) SendAdminLoginCode(email, code string) error {
	subject := "Your Fare 1 Taxi admin login code"
	text := fmt.Sprintf("Your one-time login code is %s. It expires in 5 minutes.", code)
	html := fmt.Sprintf(`<p>Your one-time login code is <b>%s</b></p><p>It expires in 5 minutes.</p>`, code)
	_, err := m.Send(email, "", subject, text, html)
	return err
}

func (m *Mailer) SendBookingConfirmation(o *domain.Order) error {
	subject := fmt.Sprintf("Booking received - ref %s", o.ID)
	var b strings.Builder
	fmt.Fprintf(&b, "Thanks %s, we have your booking.\n\n", o.RiderName)
	fmt.Fprintf(&b, "Ref: %s\n", o.ID)
	fmt.Fprintf(&b, "Pickup: %s\n", o.Pickup)
	fmt.Fprintf(&b, "Dropoff: %s\n", o.Dropoff)
	fmt.Fprintf(&b, "Date: %s %s\n", o.Date, o.Time)
	fmt.Fprintf(&b, "Vehicle: %s\n", o.Vehicle)
	fmt.Fprintf(&b, "Price: GBP %s\n", o.Price)
	if o.ReturnDate != "" {
		fmt.Fprintf(&b, "Return: %s %s from %s\n", o.ReturnDate, o.ReturnTime, o.ReturnPickup)
	}
	_, err := m.Send(o.RiderEmail, o.RiderName, subject, b.String(), "")
	return err
}

var _ Service = (*Mailer)(nil)
