package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
)

const (
	CommandStart  = "start"
	CommandCancel = "cancel"

	shareLocationLabel = "Share Location"

	workerQueueSize = 64
)

type Config struct {
	Token       string `split_words:"true" required:"true"`
	APIEndpoint string `envconfig:"API_ENDPOINT" default:"https://api.telegram.org/bot%s/%s"`
	PollTimeout int    `split_words:"true" default:"60"`
	Workers     int    `split_words:"true" default:"16"`
	Debug       bool   `split_words:"true" default:"false"`
}

// EventHandler is the dialog entry point the bot forwards events to.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev contractx.Event) (contractx.Reply, error)
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot long-polls Telegram and relays messages to an EventHandler.
type Bot struct {
	api     *tgbotapi.BotAPI
	send    sender
	handler EventHandler
	cfg     Config
}

func New(cfg Config, handler EventHandler, client *http.Client) (*Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is required")
	}
	if handler == nil {
		return nil, errors.New("event handler is required")
	}
	if client == nil {
		client = &http.Client{}
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	api.Debug = cfg.Debug

	log.Info().Str("bot", api.Self.UserName).Msg("telegram bot authorized")
	return &Bot{api: api, send: api, handler: handler, cfg: cfg}, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout
	updates := b.api.GetUpdatesChan(u)

	err := b.serve(ctx, updates)
	b.api.StopReceivingUpdates()
	return err
}

// serve fans updates out to cfg.Workers workers. Each chat is pinned to one
// worker, so a chat's updates are handled in arrival order while different
// chats proceed concurrently. It returns once ctx is done or updates is
// closed and every queued update has been handled.
func (b *Bot) serve(ctx context.Context, updates <-chan tgbotapi.Update) error {
	workers := b.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	queues := make([]chan tgbotapi.Update, workers)
	var g errgroup.Group
	for i := range queues {
		queue := make(chan tgbotapi.Update, workerQueueSize)
		queues[i] = queue
		g.Go(func() error {
			for update := range queue {
				b.Dispatch(ctx, update)
			}
			return nil
		})
	}
	defer func() {
		for _, queue := range queues {
			close(queue)
		}
		_ = g.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case queues[workerFor(update, workers)] <- update:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// workerFor picks the worker owning the update's chat. Updates without a
// chat all go to worker 0.
func workerFor(update tgbotapi.Update, workers int) int {
	chat := update.FromChat()
	if chat == nil {
		return 0
	}
	id := chat.ID % int64(workers)
	if id < 0 {
		id = -id
	}
	return int(id)
}

// Dispatch handles one update and sends the reply, if any. Failures are
// logged; a single bad update never stops the bot.
func (b *Bot) Dispatch(ctx context.Context, update tgbotapi.Update) {
	ev, ok := EventFromUpdate(update)
	if !ok {
		return
	}
	logger := log.With().
		Str("conversation_id", ev.ConversationID).
		Str("event", string(ev.Kind)).
		Logger()

	reply, err := b.handler.HandleEvent(ctx, ev)
	if err != nil {
		logger.Error().Err(err).Msg("handle event")
		return
	}

	chatID := update.Message.Chat.ID
	msg, ok := MessageFor(chatID, reply)
	if !ok {
		return
	}
	_, err = b.send.Send(msg)
	if err == nil {
		return
	}
	logger.Error().Err(err).Str("reply_kind", string(reply.Kind)).Msg("send reply")

	if msg.ParseMode == "" || reply.PlainText == "" {
		return
	}
	// Telegram rejects the whole message on a markup error; resend unformatted.
	if _, err := b.send.Send(tgbotapi.NewMessage(chatID, reply.PlainText)); err != nil {
		logger.Error().Err(err).Msg("send plain reply")
		return
	}
	logger.Warn().Msg("formatted reply rejected, sent as plain text")
}

// EventFromUpdate maps a Telegram update to a dialog event. Updates that are
// not messages, unknown commands and unsupported message types are dropped.
func EventFromUpdate(update tgbotapi.Update) (contractx.Event, bool) {
	m := update.Message
	if m == nil || m.Chat == nil {
		return contractx.Event{}, false
	}

	ev := contractx.Event{ConversationID: strconv.FormatInt(m.Chat.ID, 10)}
	switch {
	case m.IsCommand():
		switch m.Command() {
		case CommandStart:
			ev.Kind = contractx.EventStart
		case CommandCancel:
			ev.Kind = contractx.EventCancel
		default:
			return contractx.Event{}, false
		}
	case m.Location != nil:
		ev.Kind = contractx.EventLocation
		ev.Latitude = m.Location.Latitude
		ev.Longitude = m.Location.Longitude
	case m.Text != "":
		ev.Kind = contractx.EventText
		ev.Text = m.Text
	default:
		return contractx.Event{}, false
	}
	return ev, true
}

// MessageFor renders a reply for chatID. It returns false for replies that
// should not be sent.
func MessageFor(chatID int64, reply contractx.Reply) (tgbotapi.MessageConfig, bool) {
	if reply.Kind == contractx.ReplyNone || reply.Text == "" {
		return tgbotapi.MessageConfig{}, false
	}

	msg := tgbotapi.NewMessage(chatID, reply.Text)
	switch reply.Kind {
	case contractx.ReplyLocationPrompt:
		keyboard := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonLocation(shareLocationLabel)),
		)
		keyboard.OneTimeKeyboard = true
		msg.ReplyMarkup = keyboard
	case contractx.ReplyFormatted:
		if reply.Markup == contractx.MarkupMarkdownV2 {
			msg.ParseMode = tgbotapi.ModeMarkdownV2
		}
	}
	return msg, true
}
