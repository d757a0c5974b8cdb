package notify

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deposit-sweeper-go/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTextRender(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	rendered := Text("Started").render(at)

	assert.Equal(t, "<i>2024-03-01 12:30:00</i><pre>\nStarted</pre>", rendered)
}

func TestFieldsRender(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	msg := Fields{
		{Key: "Sold", Value: "ETHUSDT"},
		{Key: "Quantity", Value: "1.5"},
	}
	rendered := msg.render(at)

	assert.Equal(t,
		"<i>2024-03-01 12:30:00</i>"+
			"<pre>\nSold: <strong>ETHUSDT</strong></pre>"+
			"<pre>\nQuantity: <strong>1.5</strong></pre>",
		rendered)
}

func TestNewTelegramWithoutToken(t *testing.T) {
	notifier := NewTelegram(&config.Telegram{}, zap.NewNop())

	assert.IsType(t, Nop{}, notifier)
	notifier.Send(Text("dropped")) // must not panic
}

func TestTelegramSend(t *testing.T) {
	received := make(chan map[string]string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		received <- map[string]string{
			"chat_id":    r.PostForm.Get("chat_id"),
			"parse_mode": r.PostForm.Get("parse_mode"),
			"text":       r.PostForm.Get("text"),
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tg := &Telegram{
		client: resty.New().SetBaseURL(server.URL),
		token:  "test-token",
		chatID: "12345",
		logger: zap.NewNop(),
	}

	tg.Send(Text("Started"))

	form := <-received
	assert.Equal(t, "12345", form["chat_id"])
	assert.Equal(t, "HTML", form["parse_mode"])
	assert.Contains(t, form["text"], "<pre>\nStarted</pre>")
}

func TestTelegramSendSwallowsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	tg := &Telegram{
		client: resty.New().SetBaseURL(server.URL),
		token:  "test-token",
		chatID: "12345",
		logger: zap.NewNop(),
	}

	// Delivery failure must never reach the caller.
	tg.Send(Text("lost"))

	// Unreachable endpoint likewise.
	server.Close()
	tg.Send(Fields{{Key: "k", Value: "v"}})
}
