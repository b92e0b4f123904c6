package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/medstock/internal/config"
	"github.com/mamadbah2/medstock/internal/domain/models"
	"github.com/mamadbah2/medstock/internal/service/commands"
	client "github.com/mamadbah2/medstock/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

const (
	replyUnauthorized = "You are not authorized to use this bot."
	replyUnknown      = "I did not understand that. Send 'help' to see what I can do."
	replyFailure      = "Something went wrong while processing your message. Please try again."
	replyDocument     = "Copy the sheet into the inventory spreadsheet, then send 'import' to load it."
)

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg        config.WhatsAppConfig
	client     client.Client
	dispatcher commands.Dispatcher
	authorized map[string]struct{}
	logger     *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, c client.Client, dispatcher commands.Dispatcher, logger *zap.Logger) *MetaWhatsAppService {
	if logger == nil {
		logger = zap.NewNop()
	}

	authorized := make(map[string]struct{}, len(cfg.AuthorizedUsers))
	for _, user := range cfg.AuthorizedUsers {
		authorized[normalizePhone(user)] = struct{}{}
	}

	return &MetaWhatsAppService{
		cfg:        cfg,
		client:     c,
		dispatcher: dispatcher,
		authorized: authorized,
		logger:     logger,
	}
}

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub.mode %s", mode)
	}

	if verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}

	return challenge, nil
}

// HandleWebhook processes every inbound message of the payload and returns
// the first failure.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}

	return firstErr
}

// IsAuthorized reports whether sender may use the bot. An empty allow list
// admits everyone.
func (s *MetaWhatsAppService) IsAuthorized(sender string) bool {
	if len(s.authorized) == 0 {
		return true
	}
	_, ok := s.authorized[normalizePhone(sender)]
	return ok
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	if !s.IsAuthorized(msg.From) {
		s.logger.Warn("unauthorized sender", zap.String("from", msg.From))
		return s.reply(ctx, msg.From, replyUnauthorized)
	}

	if msg.Document != nil {
		s.logger.Info("document received", zap.String("from", msg.From), zap.String("filename", msg.Document.Filename))
		return s.reply(ctx, msg.From, replyDocument)
	}

	text := msg.Body()
	if text == "" {
		return errors.New("empty message body")
	}

	answer, err := s.dispatcher.HandleMessage(ctx, msg.From, text)
	switch {
	case errors.Is(err, commands.ErrUnsupportedCommand):
		answer = replyUnknown
	case err != nil:
		if sendErr := s.reply(ctx, msg.From, joinNonEmpty(answer, replyFailure)); sendErr != nil {
			s.logger.Error("failed to send failure reply", zap.Error(sendErr))
		}
		return fmt.Errorf("dispatch message: %w", err)
	}

	return s.reply(ctx, msg.From, answer)
}

// SendOutbound pushes a notification, splitting bodies that exceed the API limit.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	for _, chunk := range client.SplitText(req.Message, client.MaxTextLength) {
		ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
		_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
			To:         req.To,
			Body:       chunk,
			PreviewURL: req.PreviewURL,
		})
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *MetaWhatsAppService) reply(ctx context.Context, to, body string) error {
	return s.SendOutbound(ctx, models.OutboundMessageRequest{To: to, Message: body})
}

func normalizePhone(number string) string {
	return strings.TrimPrefix(strings.TrimSpace(number), "+")
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
