package transport

import (
	"context"
	"fmt"
	"time"

	"git.solsynth.dev/hypernet/chatkit/pkg/models"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// RestSender is the durable channel, speaking to the messaging API over
// HTTP with a bearer token.
type RestSender struct {
	baseURL string
	token   string
}

func NewRestSender(baseURL, token string) *RestSender {
	if expiry, err := TokenExpiry(token); err == nil && expiry.Before(time.Now()) {
		log.Warn().Time("expired_at", expiry).Msg("The access token looks expired, requests will likely be rejected...")
	}
	return &RestSender{
		baseURL: baseURL,
		token:   token,
	}
}

type restEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Message  *wireMessage  `json:"message"`
		Messages []wireMessage `json:"messages"`
	} `json:"data"`
}

func (s *RestSender) do(ctx context.Context, method, uri string, payload any) (restEnvelope, error) {
	var envelope restEnvelope

	agent := fiber.AcquireAgent()
	request := agent.Request()
	request.Header.SetMethod(method)
	request.SetRequestURI(uri)
	if payload != nil {
		agent.JSON(payload)
	}
	if len(s.token) > 0 {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+s.token)
	}
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	}

	if err := agent.Parse(); err != nil {
		return envelope, fmt.Errorf("unable to prepare request: %v", err)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return envelope, fmt.Errorf("request failed: %v", errs[0])
	}

	_ = jsoniter.Unmarshal(body, &envelope)
	if code >= fiber.StatusBadRequest {
		if len(envelope.Message) > 0 {
			return envelope, fmt.Errorf("server rejected request: %s", envelope.Message)
		}
		return envelope, fmt.Errorf("server returned status %d", code)
	}

	return envelope, nil
}

func (s *RestSender) conversationURI(conversation models.ConversationKey, suffix string) string {
	kind := "channels"
	if conversation.Type == models.ConversationTypeDirect {
		kind = "direct"
	}
	return fmt.Sprintf("%s/api/%s/%s%s", s.baseURL, kind, conversation.TargetID, suffix)
}

func (s *RestSender) SendMessage(ctx context.Context, request ComposeRequest) (models.Message, error) {
	envelope, err := s.do(ctx, fiber.MethodPost,
		s.conversationURI(request.Conversation, "/messages"), request)
	if err != nil {
		return models.Message{}, err
	}
	if envelope.Data.Message == nil {
		return models.Message{}, fmt.Errorf("server response did not carry the created message")
	}

	message := envelope.Data.Message.canonical()
	message.Conversation = request.Conversation
	message.Origin = models.MessageOriginRestFetch
	return message, nil
}

func (s *RestSender) ListMessages(ctx context.Context, conversation models.ConversationKey, take, offset int) ([]models.Message, error) {
	uri := s.conversationURI(conversation, fmt.Sprintf("/messages?take=%d&offset=%d", take, offset))
	envelope, err := s.do(ctx, fiber.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}

	return lo.Map(envelope.Data.Messages, func(item wireMessage, _ int) models.Message {
		message := item.canonical()
		message.Conversation = conversation
		message.Origin = models.MessageOriginRestFetch
		return message
	}), nil
}

func (s *RestSender) EditMessage(ctx context.Context, conversation models.ConversationKey, id, content string) (models.Message, error) {
	envelope, err := s.do(ctx, fiber.MethodPut,
		s.conversationURI(conversation, "/messages/"+id), map[string]any{
			"content": content,
		})
	if err != nil {
		return models.Message{}, err
	}
	if envelope.Data.Message == nil {
		return models.Message{}, fmt.Errorf("server response did not carry the edited message")
	}

	message := envelope.Data.Message.canonical()
	message.Conversation = conversation
	message.Origin = models.MessageOriginRestFetch
	return message, nil
}

func (s *RestSender) DeleteMessage(ctx context.Context, conversation models.ConversationKey, id string) error {
	_, err := s.do(ctx, fiber.MethodDelete, s.conversationURI(conversation, "/messages/"+id), nil)
	return err
}

func (s *RestSender) ReactMessage(ctx context.Context, conversation models.ConversationKey, id, emoji string, add bool) error {
	method := fiber.MethodPost
	if !add {
		method = fiber.MethodDelete
	}
	_, err := s.do(ctx, method,
		s.conversationURI(conversation, "/messages/"+id+"/reactions"), map[string]any{
			"emoji": emoji,
		})
	return err
}
