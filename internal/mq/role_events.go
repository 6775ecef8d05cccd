package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/musicclub/apiserver/types"
)

const (
	attrEventType  = "event-type"
	attrUserID     = "user-id"
	roleChangeType = "role.changed"
)

// RoleEvents publishes and consumes role change notifications on one channel.
type RoleEvents struct {
	mq      *MQ
	channel string
}

func NewRoleEvents(m *MQ, channel string) *RoleEvents {
	return &RoleEvents{mq: m, channel: channel}
}

// PublishRoleChanges sends one message per event. It stops at the first
// failure; events already sent stay sent.
func (r *RoleEvents) PublishRoleChanges(ctx context.Context, events []types.RoleChangeEvent) error {
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode role event for user %d: %w", event.UserID, err)
		}
		userID := strconv.Itoa(event.UserID)
		attrs := map[string]string{
			AttrContentType: "application/json",
			AttrOrderingKey: "user-" + userID,
			attrEventType:   roleChangeType,
			attrUserID:      userID,
		}
		if _, err := r.mq.Publish(ctx, r.channel, data, attrs); err != nil {
			return fmt.Errorf("publish role event for user %d: %w", event.UserID, err)
		}
	}
	return nil
}

// Watch blocks delivering decoded role events to fn until ctx ends.
// Messages that are not role events are acknowledged and skipped.
func (r *RoleEvents) Watch(ctx context.Context, fn func(context.Context, types.RoleChangeEvent) error) error {
	return r.mq.Subscribe(ctx, r.channel, func(ctx context.Context, msg Message) error {
		event, err := DecodeRoleChange(msg)
		if err != nil {
			return nil
		}
		return fn(ctx, event)
	})
}

// DecodeRoleChange parses a role event message.
func DecodeRoleChange(msg Message) (types.RoleChangeEvent, error) {
	if t, ok := msg.Attributes[attrEventType]; ok && t != roleChangeType {
		return types.RoleChangeEvent{}, fmt.Errorf("unexpected event type %q", t)
	}
	var event types.RoleChangeEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return types.RoleChangeEvent{}, fmt.Errorf("decode role event: %w", err)
	}
	if event.UserID <= 0 {
		return types.RoleChangeEvent{}, errors.New("role event without user id")
	}
	return event, nil
}
