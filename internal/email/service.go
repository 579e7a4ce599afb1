package email

import (
	"fmt"
	"mime"
	"net/smtp"
)

// Service sends mail through a plain SMTP relay.
type Service struct {
	host string
	port string
	from string
}

func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
	}
}

// SendOrderConfirmation mails the payment confirmation for one order.
func (s *Service) SendOrderConfirmation(to string, summary OrderSummary) error {
	subject := fmt.Sprintf("[주문 확인] 주문이 완료되었습니다 (주문번호: %s)", ShortOrderID(summary.OrderID))
	return s.send(to, subject, BuildOrderConfirmationBody(summary))
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, mime.BEncoding.Encode("UTF-8", subject), body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
