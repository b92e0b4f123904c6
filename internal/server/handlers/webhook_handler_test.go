package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/medstock/internal/domain/models"
)

type fakeMessaging struct {
	handled  int
	sent     []models.OutboundMessageRequest
	handleFn func() error
	sendErr  error
}

func (f *fakeMessaging) VerifyWebhookToken(mode, token, challenge string) (string, error) {
	if mode != "subscribe" || token != "secret" {
		return "", errors.New("invalid verify token")
	}
	return challenge, nil
}

func (f *fakeMessaging) HandleWebhook(context.Context, models.WebhookPayload) error {
	f.handled++
	if f.handleFn != nil {
		return f.handleFn()
	}
	return nil
}

func (f *fakeMessaging) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, req)
	return nil
}

func newWebhookEngine(svc *fakeMessaging) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewWebhookHandler(svc, nil)
	r := gin.New()
	r.GET("/webhook", h.Verify)
	r.POST("/webhook", h.Receive)
	r.POST("/send-message", h.SendMessage)
	return r
}

func TestWebhookVerify(t *testing.T) {
	r := newWebhookEngine(&fakeMessaging{})

	w := do(r, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=secret&hub.challenge=42", "")
	if w.Code != http.StatusOK || w.Body.String() != "42" {
		t.Fatalf("unexpected verify response %d %q", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=42", ""); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

const inboundCallback = `{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"messages","value":{"messages":[{"from":"9100","id":"m1","type":"text","text":{"body":"crocin 2 15"}}]}}]}]}`

func TestWebhookReceiveAcknowledgesFailures(t *testing.T) {
	svc := &fakeMessaging{handleFn: func() error { return errors.New("boom") }}
	r := newWebhookEngine(svc)

	if w := do(r, http.MethodPost, "/webhook", inboundCallback); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.handled != 1 {
		t.Fatalf("payload not handled")
	}
	if w := do(r, http.MethodPost, "/webhook", `{not json`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestWebhookReceiveSkipsCallbacksWithoutMessages(t *testing.T) {
	svc := &fakeMessaging{}
	r := newWebhookEngine(svc)

	receipts := `{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"messages","value":{"statuses":[{"id":"m1","status":"read"}]}}]}]}`
	for _, body := range []string{receipts, `{"object":"page","entry":[]}`} {
		if w := do(r, http.MethodPost, "/webhook", body); w.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", body, w.Code)
		}
	}
	if svc.handled != 0 {
		t.Fatalf("callbacks without staff messages should not be dispatched, handled=%d", svc.handled)
	}
}

func TestSendMessage(t *testing.T) {
	svc := &fakeMessaging{}
	r := newWebhookEngine(svc)

	if w := do(r, http.MethodPost, "/send-message", `{"to":"91","message":"stock check"}`); w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if len(svc.sent) != 1 || svc.sent[0].Message != "stock check" {
		t.Fatalf("unexpected sent %+v", svc.sent)
	}
	if w := do(r, http.MethodPost, "/send-message", `{"to":"91"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/send-message", `{"to":"91","message":"   "}`); w.Code != http.StatusBadRequest {
		t.Fatalf("blank message should be rejected, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/send-message", `{"to":" +9198 ","message":" reorder dolo "}`); w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if got := svc.sent[len(svc.sent)-1]; got.To != "9198" || got.Message != "reorder dolo" {
		t.Fatalf("recipient and message not normalized: %+v", got)
	}

	svc.sendErr = errors.New("meta down")
	if w := do(r, http.MethodPost, "/send-message", `{"to":"91","message":"x"}`); w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}
