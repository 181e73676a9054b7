package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// RestClient implements MessageClient on top of the disgo REST API.
type RestClient struct {
	channels rest.Channels
}

// NewRestClient wraps the channel endpoints of a disgo REST client.
func NewRestClient(channels rest.Channels) *RestClient {
	return &RestClient{channels: channels}
}

// SendMessage creates a message and returns its ID.
func (c *RestClient) SendMessage(
	ctx context.Context, channelID snowflake.ID, message discord.MessageCreate,
) (snowflake.ID, error) {
	msg, err := c.channels.CreateMessage(channelID, message, rest.WithCtx(ctx))
	if err != nil {
		return 0, classifyRestError(err)
	}

	return msg.ID, nil
}

// EditMessage replaces the content of an existing message.
func (c *RestClient) EditMessage(
	ctx context.Context, channelID, messageID snowflake.ID, message discord.MessageUpdate,
) error {
	if _, err := c.channels.UpdateMessage(channelID, messageID, message, rest.WithCtx(ctx)); err != nil {
		return classifyRestError(err)
	}

	return nil
}

// DeleteMessage removes a message.
func (c *RestClient) DeleteMessage(ctx context.Context, channelID, messageID snowflake.ID) error {
	if err := c.channels.DeleteMessage(channelID, messageID, rest.WithCtx(ctx)); err != nil {
		return classifyRestError(err)
	}

	return nil
}

// classifyRestError maps Discord HTTP failures onto the package errors.
func classifyRestError(err error) error {
	var restErr *rest.Error
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return err
	}

	switch restErr.Response.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrMessageNotFound, err)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrMissingAccess, err)
	default:
		return err
	}
}
