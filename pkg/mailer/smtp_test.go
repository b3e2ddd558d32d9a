package mailer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	from string
	to   []string
	data []byte
	user string
}

type inbox struct {
	mu       sync.Mutex
	messages []received
}

func (b *inbox) add(r received) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, r)
}

func (b *inbox) all() []received {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]received(nil), b.messages...)
}

type testBackend struct {
	inbox *inbox
}

func (be *testBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &testSession{inbox: be.inbox}, nil
}

type testSession struct {
	inbox *inbox
	cur   received
}

func (s *testSession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *testSession) Auth(_ string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(_, username, password string) error {
		if username != "relay" || password != "secret" {
			return errors.New("invalid credentials")
		}
		s.cur.user = username
		return nil
	}), nil
}

func (s *testSession) Mail(from string, _ *smtp.MailOptions) error {
	s.cur.from = from
	return nil
}

func (s *testSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.cur.to = append(s.cur.to, to)
	return nil
}

func (s *testSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.cur.data = data
	s.inbox.add(s.cur)
	return nil
}

func (s *testSession) Reset() {
	user := s.cur.user
	s.cur = received{user: user}
}

func (s *testSession) Logout() error { return nil }

func startSMTPServer(t *testing.T) (*inbox, int) {
	t.Helper()

	box := &inbox{}
	srv := smtp.NewServer(&testBackend{inbox: box})
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true
	srv.ReadTimeout = 5 * time.Second
	srv.WriteTimeout = 5 * time.Second

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })

	return box, l.Addr().(*net.TCPAddr).Port
}

func TestSMTPSender_Send(t *testing.T) {
	box, port := startSMTPServer(t)

	s, err := NewSMTPSender(Config{
		SMTPHost:      "127.0.0.1",
		SMTPPort:      port,
		SMTPUsername:  "relay",
		SMTPPassword:  "secret",
		SMTPTLSPolicy: "none",
		Timeout:       5 * time.Second,
	})
	require.NoError(t, err)

	id, err := s.Send(context.Background(), validMessage())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs := box.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "relay", msgs[0].user)
	assert.Equal(t, "news@northwind.example.com", msgs[0].from)
	assert.Equal(t, []string{"buyer@shop.test"}, msgs[0].to)
	assert.True(t, bytes.Contains(msgs[0].data, []byte("Subject: Spring restock")))
	assert.True(t, bytes.Contains(msgs[0].data, []byte("text/html")))
	assert.True(t, bytes.Contains(msgs[0].data, []byte("text/plain")))
}

func TestSMTPSender_BadCredentials(t *testing.T) {
	box, port := startSMTPServer(t)

	s, err := NewSMTPSender(Config{
		SMTPHost:      "127.0.0.1",
		SMTPPort:      port,
		SMTPUsername:  "relay",
		SMTPPassword:  "wrong",
		SMTPTLSPolicy: "none",
		Timeout:       5 * time.Second,
	})
	require.NoError(t, err)

	_, err = s.Send(context.Background(), validMessage())
	assert.Error(t, err)
	assert.Empty(t, box.all())
}

func TestSMTPSender_InvalidMessage(t *testing.T) {
	s, err := NewSMTPSender(Config{SMTPHost: "127.0.0.1"})
	require.NoError(t, err)

	_, err = s.Send(context.Background(), Message{To: "x@y.test"})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}
