package email_test

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/pixauto-notifier/internal/config"
	emailprovider "github.com/example/pixauto-notifier/internal/providers/email"
)

var smtpCfg = config.SMTPConfig{
	Host: "smtp.example.com",
	Port: 2525,
	From: "pix@example.com",
}

func TestNewSMTPProviderValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SMTPConfig
	}{
		{name: "missing host", cfg: config.SMTPConfig{Port: 25, From: "pix@example.com"}},
		{name: "invalid port", cfg: config.SMTPConfig{Host: "smtp.example.com", From: "pix@example.com"}},
		{name: "missing from", cfg: config.SMTPConfig{Host: "smtp.example.com", Port: 25}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := emailprovider.NewSMTPProvider(tc.cfg, zerolog.New(io.Discard)); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestSMTPProviderRejectsBadPayload(t *testing.T) {
	provider, err := emailprovider.NewSMTPProvider(smtpCfg, zerolog.New(io.Discard), emailprovider.WithSMTPTLSConfig(nil))
	if err != nil {
		t.Fatalf("unexpected error creating provider: %v", err)
	}
	if _, err := provider.Send(context.Background(), nil); err == nil {
		t.Fatalf("expected error when payload is nil")
	}
	if _, err := provider.Send(context.Background(), &emailprovider.Payload{To: "not an address"}); err == nil {
		t.Fatalf("expected error for invalid recipient")
	}
}

func TestSMTPProviderSendsTemplatedMessage(t *testing.T) {
	fixed := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)
	server := &fakeSMTP{}
	provider, err := emailprovider.NewSMTPProvider(smtpCfg, zerolog.New(io.Discard),
		emailprovider.WithSMTPTLSConfig(nil),
		emailprovider.WithSMTPDialer(server.dialer(t)),
		emailprovider.WithSMTPClock(func() time.Time { return fixed }),
	)
	if err != nil {
		t.Fatalf("unexpected error creating provider: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := provider.Send(ctx, &emailprovider.Payload{
		MessageID: "msg-1",
		To:        "joao@x.com",
		Subject:   "Pagamento confirmado",
		Body:      "Line 1\nLine 2",
		Headers: map[string]string{
			"From":            "spoof@example.com",
			"X-Template-Code": "PIXAUTO_PAGAMENTO",
		},
	})
	server.wait()
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if resp.Code != 250 || resp.ID != "msg-1" || !resp.Timestamp.Equal(fixed) {
		t.Fatalf("unexpected response %+v", resp)
	}

	if server.mailFrom != smtpCfg.From {
		t.Fatalf("expected MAIL FROM %q, got %q", smtpCfg.From, server.mailFrom)
	}
	if len(server.rcpts) != 1 || server.rcpts[0] != "joao@x.com" {
		t.Fatalf("unexpected recipients %v", server.rcpts)
	}
	for _, want := range []string{
		"From: pix@example.com\r\n",
		"To: joao@x.com\r\n",
		"Subject: Pagamento confirmado\r\n",
		"X-Template-Code: PIXAUTO_PAGAMENTO\r\n",
		"Message-Id: <msg-1@smtp.example.com>\r\n",
		"Line 1\r\nLine 2",
	} {
		if !strings.Contains(server.data, want) {
			t.Fatalf("expected %q in message, got %q", want, server.data)
		}
	}
	if strings.Contains(server.data, "spoof@example.com") {
		t.Fatalf("expected spoofed From header to be overridden")
	}
}

func TestSMTPProviderEncodesAccentedSubject(t *testing.T) {
	server := &fakeSMTP{}
	provider, err := emailprovider.NewSMTPProvider(smtpCfg, zerolog.New(io.Discard),
		emailprovider.WithSMTPTLSConfig(nil),
		emailprovider.WithSMTPDialer(server.dialer(t)),
	)
	if err != nil {
		t.Fatalf("unexpected error creating provider: %v", err)
	}

	_, err = provider.Send(context.Background(), &emailprovider.Payload{To: "joao@x.com", Subject: "PIX Automático"})
	server.wait()
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if !strings.Contains(server.data, "Subject: =?UTF-8?q?") {
		t.Fatalf("expected RFC 2047 subject, got %q", server.data)
	}
}

func TestSMTPProviderReportsRecipientRejection(t *testing.T) {
	server := &fakeSMTP{rejectRcpt: true}
	provider, err := emailprovider.NewSMTPProvider(smtpCfg, zerolog.New(io.Discard),
		emailprovider.WithSMTPTLSConfig(nil),
		emailprovider.WithSMTPDialer(server.dialer(t)),
	)
	if err != nil {
		t.Fatalf("unexpected error creating provider: %v", err)
	}

	resp, err := provider.Send(context.Background(), &emailprovider.Payload{To: "gone@x.com"})
	if err == nil {
		t.Fatalf("expected rcpt error")
	}
	if resp == nil || resp.Code != 550 {
		t.Fatalf("expected code 550, got %+v", resp)
	}
	server.wait()
}

// fakeSMTP speaks just enough SMTP over a net.Pipe to capture one message.
type fakeSMTP struct {
	rejectRcpt bool

	wg       sync.WaitGroup
	mailFrom string
	rcpts    []string
	data     string
}

func (f *fakeSMTP) dialer(t *testing.T) dialerFunc {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		server, client := net.Pipe()
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			defer server.Close()
			if err := f.converse(server); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				t.Errorf("fake smtp server: %v", err)
			}
		}()
		return client, nil
	}
}

func (f *fakeSMTP) wait() { f.wg.Wait() }

func (f *fakeSMTP) converse(conn net.Conn) error {
	writer := bufio.NewWriter(conn)
	reader := bufio.NewReader(conn)

	writeLine := func(format string, args ...any) error {
		if _, err := fmt.Fprintf(writer, format+"\r\n", args...); err != nil {
			return err
		}
		return writer.Flush()
	}

	if err := writeLine("220 fake smtp ready"); err != nil {
		return err
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")
		upper := strings.ToUpper(line)

		reply := "250 OK"
		switch {
		case strings.HasPrefix(upper, "EHLO "), strings.HasPrefix(upper, "HELO "):
			if err := writeLine("250-fake"); err != nil {
				return err
			}
		case strings.HasPrefix(upper, "MAIL FROM:"):
			f.mailFrom = extractSMTPAddress(line)
		case strings.HasPrefix(upper, "RCPT TO:"):
			f.rcpts = append(f.rcpts, extractSMTPAddress(line))
			if f.rejectRcpt {
				reply = "550 mailbox unavailable"
			}
		case upper == "DATA":
			if err := writeLine("354 end with <CRLF>.<CRLF>"); err != nil {
				return err
			}
			var data strings.Builder
			for {
				msgLine, err := reader.ReadString('\n')
				if err != nil {
					return err
				}
				if msgLine == ".\r\n" {
					break
				}
				data.WriteString(msgLine)
			}
			f.data = data.String()
		case upper == "QUIT":
			return writeLine("221 Bye")
		}
		if err := writeLine(reply); err != nil {
			return err
		}
	}
}

type dialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (d dialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return d(ctx, network, address)
}

func extractSMTPAddress(line string) string {
	start := strings.Index(line, "<")
	end := strings.Index(line, ">")
	if start != -1 && end > start+1 {
		return strings.TrimSpace(line[start+1 : end])
	}
	if idx := strings.Index(line, ":"); idx != -1 {
		return strings.TrimSpace(line[idx+1:])
	}
	return strings.TrimSpace(line)
}
