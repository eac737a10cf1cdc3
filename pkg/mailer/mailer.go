package mailer

import (
	"context"
	"log"
	"strings"
)

// Sender delivers a plain-text email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes outgoing mail to the process log instead of an SMTP
// relay or email API.
type LogSender struct {
	From string
}

func NewLogSender(from string) *LogSender {
	return &LogSender{From: from}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Println("====================================================")
	log.Printf("--- EMAIL ---")
	log.Printf("From: %s", s.From)
	log.Printf("To: %s", to)
	log.Printf("Subject: %s", subject)
	for _, line := range strings.Split(body, "\n") {
		log.Println(line)
	}
	log.Println("====================================================")
	return nil
}
