package mailer

import "github.com/fareone/bookings/internal/domain"

type Service interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
	SendAdminLoginCode(email, code string) error
	SendBookingConfirmation(order *domain.Order) error
}
