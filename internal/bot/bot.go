package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/presencewatch/internal/bot/commands"
	"go.uber.org/zap"
)

// Bot owns the Discord connection and routes slash commands to the
// command service.
type Bot struct {
	client     bot.Client
	service    *commands.Service
	devGuildID snowflake.ID
	ready      chan struct{}
	readyOnce  sync.Once
	logger     *zap.Logger
}

// New creates the Discord client without connecting. devGuildID, when set,
// registers commands in that guild only so changes show up instantly.
func New(token string, devGuildID uint64, logger *zap.Logger) (*Bot, error) {
	b := &Bot{
		devGuildID: snowflake.ID(devGuildID),
		ready:      make(chan struct{}),
		logger:     logger.Named("bot"),
	}

	client, err := disgo.New(token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(gateway.IntentGuilds),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnReady:                         b.handleReady,
			OnApplicationCommandInteraction: b.handleApplicationCommandInteraction,
			OnComponentInteraction:          b.handleComponentInteraction,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}

	b.client = client

	return b, nil
}

// SetService sets the command service. It must be called before Start.
func (b *Bot) SetService(service *commands.Service) {
	b.service = service
}

// Rest returns the Discord REST client.
func (b *Bot) Rest() rest.Rest {
	return b.client.Rest()
}

// Ready is closed once the gateway reports the session as ready.
func (b *Bot) Ready() <-chan struct{} {
	return b.ready
}

// Start registers the slash commands and opens the gateway connection.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Registering commands")

	var err error
	if b.devGuildID != 0 {
		_, err = b.client.Rest().SetGuildCommands(b.client.ApplicationID(), b.devGuildID, commands.Definitions())
	} else {
		_, err = b.client.Rest().SetGlobalCommands(b.client.ApplicationID(), commands.Definitions())
	}

	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	b.logger.Info("Starting bot")

	if err := b.client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	return nil
}

// Close shuts down the gateway connection.
func (b *Bot) Close(ctx context.Context) {
	b.logger.Info("Closing bot")
	b.client.Close(ctx)
}

func (b *Bot) handleReady(event *events.Ready) {
	b.logger.Info("Bot is ready",
		zap.String("user", event.User.Username),
		zap.Int("guilds", len(event.Guilds)))

	b.readyOnce.Do(func() { close(b.ready) })
}
