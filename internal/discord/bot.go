package discord

import (
	"context"
	"strconv"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/comigor/bad-employee-go/internal/chat"
	"github.com/comigor/bad-employee-go/internal/command"
	"github.com/comigor/bad-employee-go/internal/logger"
)

// Processor handles every non-bot message.
type Processor interface {
	Process(ctx context.Context, msg chat.Inbound, out chat.Sender) (string, error)
}

// Bot manages the Discord session lifecycle and message dispatch.
type Bot struct {
	session  *discordgo.Session
	agent    Processor
	commands *command.Registry
	sender   chat.Sender

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
}

// NewBot creates and configures a new Discord bot. The standard commands
// are registered on commands.
func NewBot(token string, agent Processor, commands *command.Registry) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	bot := &Bot{
		session:  s,
		agent:    agent,
		commands: commands,
		sender:   &Sender{session: s},
		ctx:      context.Background(),
		cancel:   func() {},
	}

	commands.Register(command.HelloCommand{})
	commands.Register(command.PingCommand{Latency: s.HeartbeatLatency})
	commands.Register(command.HelpCommand{Registry: commands})

	s.AddHandler(bot.onReady)
	s.AddHandler(bot.onMessageCreate)

	return bot, nil
}

// Start opens the Discord gateway connection. Handlers run until Stop.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.stopped = false
	b.mu.Unlock()

	if err := b.session.Open(); err != nil {
		return err
	}
	logger.L.Info("bot connected to discord")
	return nil
}

// Stop closes the gateway connection and waits for in-flight handlers.
func (b *Bot) Stop() {
	b.mu.Lock()
	b.stopped = true
	b.cancel()
	b.mu.Unlock()

	if err := b.session.Close(); err != nil {
		logger.L.Warn("discord close failed", "error", err)
	}
	b.wg.Wait()
	logger.L.Info("bot disconnected")
}

// track registers one in-flight handler and returns its context.
// It reports false once Stop has begun. wg is only grown under mu.
func (b *Bot) track() (context.Context, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return nil, false
	}
	b.wg.Add(1)
	return b.ctx, true
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	logger.L.Info("connected to discord", "user", r.User.Username, "id", r.User.ID)
	if err := s.UpdateGameStatus(0, "Type "+b.commands.Prefix()+"help"); err != nil {
		logger.L.Warn("failed to set presence", "error", err)
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore own messages
	if m.Author == nil || (s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}

	ctx, ok := b.track()
	if !ok {
		return
	}
	defer b.wg.Done()

	msg, err := toInbound(m.Message, b.channelName(s, m.ChannelID))
	if err != nil {
		logger.L.Warn("dropping message with unparseable author", "author", m.Author.ID, "error", err)
		return
	}
	b.handle(ctx, msg)
}

// handle runs the pipeline and then the prefix commands for one message.
func (b *Bot) handle(ctx context.Context, msg chat.Inbound) {
	logger.L.Info("message received", "channel", msg.ChannelName, "author", msg.AuthorName, "content", msg.Content)

	if _, err := b.agent.Process(ctx, msg, b.sender); err != nil {
		logger.L.Error("message processing failed", "error", err)
	}

	if reply, ok := b.commands.Dispatch(ctx, msg); ok {
		if err := b.sender.Send(ctx, msg.ChannelID, reply); err != nil {
			logger.L.Error("failed to send command reply", "error", err)
		}
	}
}

func (b *Bot) channelName(s *discordgo.Session, channelID string) string {
	ch, err := s.State.Channel(channelID)
	if err != nil {
		ch, err = s.Channel(channelID)
	}
	if err != nil {
		logger.L.Warn("channel lookup failed", "channel", channelID, "error", err)
		return channelID
	}
	if ch.Name == "" {
		return "dm"
	}
	return ch.Name
}

func toInbound(m *discordgo.Message, channelName string) (chat.Inbound, error) {
	authorID, err := strconv.ParseInt(m.Author.ID, 10, 64)
	if err != nil {
		return chat.Inbound{}, err
	}
	name := m.Author.GlobalName
	if name == "" {
		name = m.Author.Username
	}
	return chat.Inbound{
		ID:          m.ID,
		AuthorID:    authorID,
		AuthorName:  name,
		ChannelID:   m.ChannelID,
		ChannelName: channelName,
		Content:     m.ContentWithMentionsReplaced(),
		Raw:         m.Content,
		CreatedAt:   m.Timestamp,
	}, nil
}
