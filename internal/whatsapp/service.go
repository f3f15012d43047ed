// Package whatsapp wraps the whatsmeow client as the outbound message
// transport and the inbound message source.
package whatsapp

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"wedding-rsvp/internal/phone"
)

// InboundHandler receives inbound guest messages as (sender phone, body).
type InboundHandler func(ctx context.Context, fromPhone, body string) error

type Config struct {
	DataDir string
}

type Service struct {
	client  *whatsmeow.Client
	cfg     *Config
	log     zerolog.Logger
	inbound InboundHandler
}

// NewService creates a new WhatsApp service backed by a sqlite session store.
func NewService(cfg *Config, log zerolog.Logger) (*Service, error) {
	ctx := context.Background()

	// Use nil logger - sqlstore will use a no-op logger by default
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s/whatsmeow.db?_foreign_keys=on", cfg.DataDir), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	// Use nil logger - whatsmeow will use a no-op logger by default
	client := whatsmeow.NewClient(deviceStore, nil)

	service := &Service{
		client: client,
		cfg:    cfg,
		log:    log.With().Str("component", "whatsapp").Logger(),
	}

	client.AddEventHandler(func(evt interface{}) {
		service.eventHandler(evt)
	})

	return service, nil
}

// Connect connects to WhatsApp, printing a pairing QR code on first run.
func (s *Service) Connect() error {
	if s.client.Store.ID == nil {
		qrChan, _ := s.client.GetQRChannel(context.Background())
		if err := s.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		for evt := range qrChan {
			if evt.Event == "code" {
				q, err := qrcode.New(evt.Code, qrcode.Medium)
				if err != nil {
					fmt.Printf("QR Code: %s\n", evt.Code)
					fmt.Println("Please scan this QR code with WhatsApp to connect.")
				} else {
					fmt.Println("\n" + q.ToSmallString(false))
					fmt.Println("Scan the QR code above with WhatsApp (Settings > Linked Devices > Link a Device).")
				}
			} else {
				s.log.Info().Str("event", evt.Event).Msg("Login event")
			}
		}
	} else {
		if err := s.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
	}
	return nil
}

// Disconnect disconnects from WhatsApp.
func (s *Service) Disconnect() {
	s.client.Disconnect()
}

// SendMessage sends a text message to a canonical +972... number.
func (s *Service) SendMessage(ctx context.Context, toPhone, body string) error {
	jid, err := s.resolveJID(ctx, toPhone)
	if err != nil {
		return err
	}

	s.log.Debug().Str("jid", jid.String()).Str("phone", toPhone).Msg("Sending text message")
	_, err = s.client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: &body,
	})
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", toPhone, err)
	}
	return nil
}

// SendImageMessage sends an image with a caption, used for invitations.
func (s *Service) SendImageMessage(ctx context.Context, toPhone, body, imagePath string) error {
	jid, err := s.resolveJID(ctx, toPhone)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read invitation image: %w", err)
	}

	uploaded, err := s.client.Upload(ctx, data, whatsmeow.MediaImage)
	if err != nil {
		return fmt.Errorf("failed to upload invitation image: %w", err)
	}

	s.log.Debug().Str("jid", jid.String()).Str("image", imagePath).Msg("Sending image message")
	_, err = s.client.SendMessage(ctx, jid, &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{
			Caption:       proto.String(body),
			Mimetype:      proto.String(http.DetectContentType(data)),
			URL:           &uploaded.URL,
			DirectPath:    &uploaded.DirectPath,
			MediaKey:      uploaded.MediaKey,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    &uploaded.FileLength,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send image message to %s: %w", toPhone, err)
	}
	return nil
}

// resolveJID verifies the number is registered on WhatsApp and returns the
// JID the server knows it by.
func (s *Service) resolveJID(ctx context.Context, canonicalPhone string) (types.JID, error) {
	dialable := phone.Dialable(canonicalPhone)

	resp, err := s.client.IsOnWhatsApp(ctx, []string{dialable})
	if err != nil {
		return types.JID{}, fmt.Errorf("failed to verify number on WhatsApp: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return types.JID{}, fmt.Errorf("number %s is not registered on WhatsApp", canonicalPhone)
	}
	return resp[0].JID, nil
}

// eventHandler handles incoming WhatsApp events.
func (s *Service) eventHandler(evt interface{}) {
	if evt == nil {
		return
	}
	switch evt := evt.(type) {
	case *events.Message:
		s.handleMessage(evt)
	case *events.Connected:
		s.log.Info().Msg("Connected to WhatsApp")
	case *events.Disconnected:
		s.log.Info().Msg("Disconnected from WhatsApp")
	case *events.LoggedOut:
		s.log.Info().Msg("Logged out from WhatsApp")
	}
}

// handleMessage forwards inbound guest messages to the reply handler.
func (s *Service) handleMessage(msg *events.Message) {
	if msg.Info.IsFromMe || msg.Message == nil {
		return
	}

	text := msg.Message.GetConversation()
	if text == "" && msg.Message.GetExtendedTextMessage() != nil {
		text = msg.Message.GetExtendedTextMessage().GetText()
	}
	if text == "" {
		return
	}

	fromPhone := strings.Split(msg.Info.Sender.String(), "@")[0]

	if s.inbound == nil {
		s.log.Info().Str("sender", fromPhone).Str("message", text).Msg("Received message")
		return
	}
	if err := s.inbound(context.Background(), fromPhone, text); err != nil {
		s.log.Error().Err(err).Msg("Error handling inbound message")
	}
}

// SetInboundHandler sets the handler for inbound guest messages.
func (s *Service) SetInboundHandler(handler InboundHandler) {
	s.inbound = handler
}
