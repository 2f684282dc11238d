package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	netmail "net/mail"
	"testing"
	"time"

	"smarttest/internal/domain/entity"
	"smarttest/internal/infrastructure/logger"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func reportWithFailures(n, passed int) *entity.RunReport {
	var results []entity.RunResult
	for i := 0; i < passed; i++ {
		results = append(results, entity.RunResult{Name: fmt.Sprintf("test_ok_%d", i), Outcome: entity.OutcomePass})
	}
	for i := 0; i < n; i++ {
		results = append(results, entity.RunResult{
			Name:    fmt.Sprintf("test_bad_%d", i),
			Outcome: entity.OutcomeFail,
			Error:   fmt.Sprintf("assertion failed %d", i),
		})
	}
	return &entity.RunReport{
		RunID:   "run-1",
		Suite:   "awesomeqa",
		Title:   "AwesomeQA Regression",
		Summary: entity.Summarize(results, 12*time.Second),
		Results: results,
	}
}

func TestColor(t *testing.T) {
	assert.Equal(t, "#36a64f", Color(reportWithFailures(0, 3).Summary))
	assert.Equal(t, "#ff9900", Color(reportWithFailures(1, 3).Summary))
	assert.Equal(t, "#ff0000", Color(reportWithFailures(3, 1).Summary))
}

func TestWebhook_PostsSlackBlocks(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, nil).Notify(context.Background(), reportWithFailures(7, 1), true)
	require.NoError(t, err)

	raw, _ := json.Marshal(got)
	payload := string(raw)
	assert.Contains(t, payload, "AwesomeQA Regression")
	assert.Contains(t, payload, "*Failed Tests:*")
	assert.Contains(t, payload, "test_bad_4")
	assert.NotContains(t, payload, "test_bad_5")
	assert.Contains(t, payload, "...and 2 more failures")
	assert.Contains(t, payload, "#ff0000")
	assert.Contains(t, payload, "Duration: 12.00 seconds")
}

func TestWebhook_SummaryModeOmitsFailures(t *testing.T) {
	raw, err := json.Marshal(SlackMessage(reportWithFailures(2, 2), false))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Failed Tests")
	assert.Contains(t, string(raw), "*Failed:*\\n2")
}

func TestWebhook_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_token", http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, nil).Notify(context.Background(), reportWithFailures(0, 1), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "invalid_token")
}

type captureSender struct {
	msgs []*mail.Msg
	err  error
}

func (c *captureSender) DialAndSendWithContext(_ context.Context, msgs ...*mail.Msg) error {
	c.msgs = append(c.msgs, msgs...)
	return c.err
}

func TestEmail_MultipartMessage(t *testing.T) {
	e := NewEmail(EmailConfig{
		Server:     "smtp.example.com",
		Port:       587,
		UseTLS:     true,
		Username:   "bot",
		Password:   "secret",
		From:       "bot@example.com",
		Recipients: []string{"qa@example.com", "dev@example.com"},
	})
	sender := &captureSender{}
	e.dial = func() (mailSender, error) { return sender, nil }

	require.NoError(t, e.Notify(context.Background(), reportWithFailures(1, 1), true))
	require.Len(t, sender.msgs, 1)

	var raw bytes.Buffer
	_, err := sender.msgs[0].WriteTo(&raw)
	require.NoError(t, err)

	msg, err := netmail.ReadMessage(&raw)
	require.NoError(t, err)
	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "SmartTest Results: AwesomeQA Regression", subject)
	assert.Contains(t, msg.Header.Get("From"), "bot@example.com")
	assert.Contains(t, msg.Header.Get("To"), "qa@example.com")
	assert.Contains(t, msg.Header.Get("To"), "dev@example.com")

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	var types []string
	var bodies []string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		b, _ := io.ReadAll(p)
		types = append(types, p.Header.Get("Content-Type"))
		bodies = append(bodies, string(b))
	}
	require.Len(t, types, 2)
	assert.Contains(t, types[0], "text/plain")
	assert.Contains(t, types[1], "text/html")
	assert.Contains(t, bodies[0], "test_bad_0: assertion failed 0")
	assert.Contains(t, bodies[1], "<strong>test_bad_0</strong>")
}

func TestEmail_InvalidSenderAddress(t *testing.T) {
	e := NewEmail(EmailConfig{Server: "localhost", Port: 25, From: "not an address", Recipients: []string{"d@e.f"}})

	_, err := e.Message(reportWithFailures(0, 1), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email from")
}

func TestEmail_SendErrorWrapped(t *testing.T) {
	e := NewEmail(EmailConfig{Server: "localhost", Port: 25, From: "a@b.c", Recipients: []string{"d@e.f"}})
	e.dial = func() (mailSender, error) { return &captureSender{err: errors.New("connection refused")}, nil }

	err := e.Notify(context.Background(), reportWithFailures(0, 1), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "localhost:25")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestEmail_ClientOptions(t *testing.T) {
	for _, cfg := range []EmailConfig{
		{Server: "smtp.example.com", Port: 465, UseTLS: true, Username: "bot", Password: "x"},
		{Server: "smtp.example.com", Port: 587, UseTLS: true},
		{Server: "localhost", Port: 25},
	} {
		c, err := NewEmail(cfg).newClient()
		require.NoError(t, err, "port %d", cfg.Port)
		assert.NotNil(t, c)
	}

	_, err := NewEmail(EmailConfig{Port: 25}).newClient()
	assert.Error(t, err)
}

type stubNotifier struct {
	name  string
	err   error
	calls int
}

func (s *stubNotifier) Name() string { return s.name }
func (s *stubNotifier) Notify(context.Context, *entity.RunReport, bool) error {
	s.calls++
	return s.err
}

func TestDispatcher_ContinuesPastFailures(t *testing.T) {
	bad := &stubNotifier{name: "webhook", err: errors.New("boom")}
	good := &stubNotifier{name: "email"}
	d := NewDispatcher(logger.NewNop(), bad, good)

	err := d.Notify(context.Background(), reportWithFailures(0, 1), false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook: boom")
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, good.calls)
}
