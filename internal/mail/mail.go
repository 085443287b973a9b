// Package mail delivers outbound email.
package mail

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/dmitrijs2005/filesmanager/internal/logging"
	gomail "github.com/wneessen/go-mail"
)

type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Welcome is the message sent to every newly registered user.
func Welcome(from, to string) Message {
	return Message{
		From:    from,
		To:      to,
		Subject: "Welcome to Files Manager",
		Body:    fmt.Sprintf("Welcome %s!\r\n\r\nYour account is ready.\r\n", to),
	}
}

// build converts m into a plain text go-mail message. Malformed addresses
// are rejected here.
func (m Message) build() (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, fmt.Errorf("from %q: %w", m.From, err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("to %q: %w", m.To, err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, m.Body)
	return msg, nil
}

type SMTPOptions struct {
	Host     string
	Port     int
	User     string
	Password string
}

// dialAndSend is a seam for testing delivery.
var dialAndSend = func(ctx context.Context, c *gomail.Client, msgs ...*gomail.Msg) error {
	return c.DialAndSendWithContext(ctx, msgs...)
}

type SMTPMailer struct {
	opts SMTPOptions
}

func NewSMTPMailer(opts SMTPOptions) *SMTPMailer {
	return &SMTPMailer{opts: opts}
}

func (m *SMTPMailer) client(dial gomail.DialContextFunc) (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(m.opts.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithDialContextFunc(dial),
	}
	if m.opts.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.opts.User),
			gomail.WithPassword(m.opts.Password),
		)
	}
	return gomail.NewClient(m.opts.Host, opts...)
}

// boundDialer dials connections that live no longer than ctx: they take
// its deadline and are closed when it is cancelled. go-mail only applies
// its own context to the dial itself.
type boundDialer struct {
	ctx   context.Context
	mu    sync.Mutex
	stops []func() bool
}

func (d *boundDialer) dial(dialCtx context.Context, network, address string) (net.Conn, error) {
	var nd net.Dialer
	conn, err := nd.DialContext(dialCtx, network, address)
	if err != nil {
		return nil, err
	}
	if deadline, ok := d.ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	stop := context.AfterFunc(d.ctx, func() { _ = conn.Close() })
	d.mu.Lock()
	d.stops = append(d.stops, stop)
	d.mu.Unlock()
	return conn, nil
}

func (d *boundDialer) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, stop := range d.stops {
		stop()
	}
}

// Send delivers msg over a fresh SMTP connection. Cancelling ctx aborts
// the whole transaction.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	built, err := msg.build()
	if err != nil {
		return err
	}

	d := &boundDialer{ctx: ctx}
	defer d.release()

	c, err := m.client(d.dial)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := dialAndSend(ctx, c, built); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// LogMailer only logs messages. It stands in when no SMTP host is set.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(logger logging.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("module", "mail")}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info(ctx, "mail not delivered, no smtp configured", "to", msg.To, "subject", msg.Subject)
	return nil
}
