package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/perdin/internal/application/port"
)

const (
	receiveIDTypeChatID = "chat_id"
	msgTypeText         = "text"
)

type createMessageFunc func(ctx context.Context, receiveIDType string, body *larkIm.CreateMessageReqBody) (*larkIm.CreateMessageResp, error)

// Messenger sends text messages to one Lark receiver, usually the review group chat.
// Implements port.MessageSender.
type Messenger struct {
	create        createMessageFunc
	receiveIDType string
	receiveID     string
	logger        *zap.Logger
}

// NewMessenger creates a messenger that posts to receiveID. receiveIDType is
// one of chat_id, open_id, user_id or email; empty means chat_id.
func NewMessenger(sdk *SDKClient, receiveIDType, receiveID string, logger *zap.Logger) (*Messenger, error) {
	if receiveID == "" {
		return nil, errors.New("lark receive id is required")
	}
	if receiveIDType == "" {
		receiveIDType = receiveIDTypeChatID
	}

	return &Messenger{
		create: func(ctx context.Context, receiveIDType string, body *larkIm.CreateMessageReqBody) (*larkIm.CreateMessageResp, error) {
			req := larkIm.NewCreateMessageReqBuilder().
				ReceiveIdType(receiveIDType).
				Body(body).
				Build()
			return sdk.GetClient().Im.Message.Create(ctx, req)
		},
		receiveIDType: receiveIDType,
		receiveID:     receiveID,
		logger:        logger,
	}, nil
}

// SendText posts content as a plain text message
func (m *Messenger) SendText(ctx context.Context, content string) error {
	if content == "" {
		return fmt.Errorf("content cannot be empty")
	}

	body, err := json.Marshal(map[string]string{"text": content})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	reqBody := larkIm.NewCreateMessageReqBodyBuilder().
		ReceiveId(m.receiveID).
		MsgType(msgTypeText).
		Content(string(body)).
		Build()

	resp, err := m.create(ctx, m.receiveIDType, reqBody)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("receive_id", m.receiveID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", m.receiveID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Info("Message sent successfully",
		zap.String("message_id", messageID),
		zap.String("receive_id", m.receiveID))

	return nil
}

var _ port.MessageSender = (*Messenger)(nil)
