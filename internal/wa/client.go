package wa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"nextflow/internal/metrics"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"
)

// DefaultCountryCode is prefixed to national numbers that carry no country code.
const DefaultCountryCode = "55"

var (
	// ErrNotConnected is returned when sending before the session is paired and online.
	ErrNotConnected = errors.New("whatsapp client not connected")
	// ErrInvalidPhone is returned when a phone number has too few digits to address.
	ErrInvalidPhone = errors.New("invalid phone number")
)

// Config holds configuration to initialise the WhatsApp client.
type Config struct {
	StorePath string
	LogLevel  string
	Metrics   *metrics.Metrics
}

// Client wraps the WhatsMeow client and sends billing notices to client phones.
type Client struct {
	client  *whatsmeow.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a new WhatsApp client instance backed by an SQLite session store.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.StorePath == "" {
		return nil, errors.New("store path is required")
	}

	if err := ensureDir(filepath.Dir(cfg.StorePath)); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}

	storeLogger := waLog.Stdout("whatsmeow/sqlstore", cfg.LogLevel, true)
	container, err := sqlstore.New(ctx, "sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout=10000&_pragma=foreign_keys(ON)", cfg.StorePath), storeLogger)
	if err != nil {
		return nil, fmt.Errorf("create sqlstore: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, waLog.Stdout("whatsmeow/client", cfg.LogLevel, true))

	wc := &Client{
		client:  client,
		logger:  logger.With("component", "wa"),
		metrics: cfg.Metrics,
	}
	client.AddEventHandler(wc.handleEvent)

	return wc, nil
}

// Start connects the client. An unpaired device logs QR codes until scanned.
func (c *Client) Start(ctx context.Context) error {
	if c.client.Store.ID == nil {
		c.logger.Info("pairing required, waiting for QR scan")
		qrChan, err := c.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("get qr channel: %w", err)
		}

		go func() {
			for evt := range qrChan {
				if evt.Event == "code" {
					c.logger.Info("scan the QR code with WhatsApp", "qr", evt.Code)
				} else {
					c.logger.Info("pairing event received", "event", evt.Event)
				}
			}
		}()
	}

	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("connect wa client: %w", err)
	}

	c.logger.Info("whatsapp client connected")
	return nil
}

// Close disconnects the WhatsApp client.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Disconnect()
	}
}

func (c *Client) handleEvent(evt any) {
	switch v := evt.(type) {
	case *events.Connected:
		c.logger.Info("device connected")
	case *events.Disconnected:
		c.logger.Warn("device disconnected")
	case *events.LoggedOut:
		c.logger.Warn("device logged out, pairing required on next start", "reason", v.Reason.String())
	case *events.Message:
		// Replies are not processed; log them so operators can follow up.
		c.logger.Info("received message", "from", v.Info.Sender.User, "text", textOf(v.Message))
	}
}

func textOf(msg *waProto.Message) string {
	if msg == nil {
		return ""
	}
	if s := msg.GetConversation(); s != "" {
		return s
	}
	return msg.GetExtendedTextMessage().GetText()
}

// SendText delivers text to the WhatsApp account registered for phone.
func (c *Client) SendText(ctx context.Context, phone, text string) error {
	user, err := NormalizePhone(phone)
	if err != nil {
		return err
	}
	if !c.client.IsConnected() || !c.client.IsLoggedIn() {
		return ErrNotConnected
	}

	to := types.NewJID(user, types.DefaultUserServer)
	message := &waProto.Message{
		Conversation: proto.String(text),
	}
	if _, err := c.client.SendMessage(ctx, to, message); err != nil {
		if c.metrics != nil {
			c.metrics.Errors.WithLabelValues("wa").Inc()
		}
		return fmt.Errorf("send text: %w", err)
	}
	if c.metrics != nil {
		c.metrics.WAOutgoingMessages.WithLabelValues("text").Inc()
	}
	return nil
}

// NormalizePhone strips formatting and prefixes DefaultCountryCode to
// 10 or 11 digit national numbers.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimLeft(b.String(), "0")
	switch {
	case len(digits) < 10:
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	case len(digits) <= 11:
		return DefaultCountryCode + digits, nil
	default:
		return digits, nil
	}
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}
