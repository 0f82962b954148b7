// Package bot sends trading notifications and answers status queries over
// Telegram.
package bot

import (
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/stratbot/position"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TELEGRAM BOT - Fill notifications & status commands
// ═══════════════════════════════════════════════════════════════════════════════

// StatusProvider supplies the data behind the /status command.
type StatusProvider interface {
	Snapshot() position.Position
	LastTradePrice() (decimal.Decimal, bool)
	CurrentStopPrice() (decimal.Decimal, bool)
}

// Notifier manages the Telegram interface.
type Notifier struct {
	mu      sync.Mutex
	api     *tgbotapi.BotAPI
	chatID  int64
	running bool
	stopCh  chan struct{}

	status StatusProvider
}

// NewNotifier creates a Telegram notifier for the given chat.
func NewNotifier(token string, chatID int64, status StatusProvider) (*Notifier, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	n := &Notifier{
		api:    api,
		chatID: chatID,
		stopCh: make(chan struct{}),
		status: status,
	}
	log.Info().Str("username", api.Self.UserName).Msg("🤖 Telegram bot initialized")
	return n, nil
}

// Start begins listening for commands.
func (n *Notifier) Start() {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return
	}
	n.running = true
	n.mu.Unlock()

	go n.commandLoop()
	log.Info().Msg("📱 Telegram bot started")
}

// Stop shuts the command loop down.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.running {
		return
	}
	n.running = false
	close(n.stopCh)
}

// NotifyFill announces a validated entry or exit fill.
func (n *Notifier) NotifyFill(fill position.Fill) {
	emoji := "🟢"
	action := "Opened"
	if fill.Side == "SELL" {
		emoji = "🔴"
		action = "Closed"
	}
	mode := ""
	if fill.Paper {
		mode = " (PAPER)"
	}
	n.send(fmt.Sprintf(`%s *%s %s position*%s

💰 Price: %s
📦 Quantity: %s
⏰ %s`,
		emoji, action, fill.Symbol, mode,
		fill.Price.StringFixed(2),
		fill.Quantity.String(),
		fill.Time.Format("15:04:05 MST"),
	))
}

// NotifyUnprotected raises the high-severity alert for a position left
// without a stop order.
func (n *Notifier) NotifyUnprotected(err error) {
	n.send(fmt.Sprintf(`🚨 *POSITION UNPROTECTED*

The stop order was cancelled but its replacement failed.
Manual intervention required.

`+"```%v```", err))
}

func (n *Notifier) commandLoop() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := n.api.GetUpdatesChan(u)

	for {
		select {
		case <-n.stopCh:
			n.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if update.Message.Chat.ID != n.chatID {
				continue
			}
			n.handleCommand(update.Message.Command())
		}
	}
}

func (n *Notifier) handleCommand(cmd string) {
	switch cmd {
	case "status":
		n.send(n.formatStatus())
	case "help", "start":
		n.send("Commands:\n/status - current position")
	}
}

func (n *Notifier) formatStatus() string {
	if n.status == nil {
		return "No status provider wired"
	}
	pos := n.status.Snapshot()
	if pos.Direction != position.DirectionLong {
		last := "n/a"
		if p, ok := n.status.LastTradePrice(); ok {
			last = p.StringFixed(2)
		}
		return fmt.Sprintf("📊 No active position\nLast trade price: %s", last)
	}

	stop := "disabled"
	if p, ok := n.status.CurrentStopPrice(); ok {
		stop = p.StringFixed(2)
	}
	return fmt.Sprintf(`📊 *Position: LONG %s/%s*

💰 Entry: %s
📦 Quantity: %s
🛑 Stop: %s
🎯 Target: %s
⏰ Opened: %s`,
		pos.LongSymbol, pos.ShortSymbol,
		pos.EntryPrice.StringFixed(2),
		pos.Quantity.String(),
		stop,
		pos.GainTargetPrice.StringFixed(2),
		pos.OpenedAt.Format("15:04:05 MST"),
	)
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.api.Send(msg); err != nil {
		log.Warn().Err(err).Msg("Failed to send telegram message")
	}
}
