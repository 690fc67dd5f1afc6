package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Notification carries the context of a freshly ingested withdrawal request.
type Notification struct {
	RequestID   string
	BankID      string
	Amount      int64
	Requester   string
	Reason      string
	RequestedAt time.Time
}

// Notifier delivers withdrawal request notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify sends the text through the sendMessage API.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram responded with ok=false")
		}
	}

	n.logger.Info().
		Str("request_id", note.RequestID).
		Str("bank_id", note.BankID).
		Msg("withdrawal request notification sent")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Piggy Vault] New withdrawal request\n")
	builder.WriteString(fmt.Sprintf("Request: %s\n", note.RequestID))
	builder.WriteString(fmt.Sprintf("Bank: %s\n", note.BankID))
	builder.WriteString(fmt.Sprintf("Amount: %s SOL\n", formatLamports(note.Amount)))
	builder.WriteString(fmt.Sprintf("Requested by: %s\n", note.Requester))
	if note.Reason != "" {
		builder.WriteString(fmt.Sprintf("Reason: %s\n", note.Reason))
	}
	builder.WriteString(fmt.Sprintf("At: %s UTC\n", note.RequestedAt.UTC().Format(time.RFC3339)))
	return builder.String()
}

// formatLamports renders a lamport amount in SOL.
func formatLamports(lamports int64) string {
	return decimal.New(lamports, -9).StringFixed(4)
}

var _ Notifier = (*TelegramNotifier)(nil)
