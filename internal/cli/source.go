package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bscott/mailcloud/internal/config"
	"github.com/bscott/mailcloud/internal/gmail"
	"github.com/bscott/mailcloud/internal/imap"
	"github.com/bscott/mailcloud/internal/mailbox"
)

// session is a mailbox.Source that holds a connection until Close.
type session interface {
	mailbox.Source
	Close() error
}

func openSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session, error) {
	switch cfg.Provider {
	case config.ProviderGmail:
		return openGmail(ctx, cfg, logger)
	case config.ProviderIMAP:
		return openIMAP(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func openGmail(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*gmail.Source, error) {
	auth, err := gmail.NewAuth(cfg.Gmail.CredentialsFile, cfg.Gmail.TokenFile)
	if err != nil {
		return nil, err
	}
	return gmail.Open(ctx, auth, cfg.Gmail.UserID, logger)
}

func openIMAP(cfg *config.Config, logger *slog.Logger) (*imap.Client, error) {
	if cfg.Bridge.Email == "" {
		return nil, fmt.Errorf("not configured - run 'mailcloud config init' first")
	}
	password, err := cfg.GetPassword()
	if err != nil {
		return nil, err
	}

	client := imap.NewClient(imap.Options{
		Host:     cfg.Bridge.IMAPHost,
		Port:     cfg.Bridge.IMAPPort,
		Email:    cfg.Bridge.Email,
		Password: password,
		// Bridge serves a self-signed certificate.
		InsecureSkipVerify: true,
	}, logger)
	if err := client.Connect(); err != nil {
		return nil, err
	}
	return client, nil
}

// cacheNamespace keeps refs from different accounts apart in one cache file.
func cacheNamespace(cfg *config.Config) string {
	if cfg.Provider == config.ProviderIMAP {
		return cfg.Provider + ":" + cfg.Bridge.Email
	}
	return cfg.Provider + ":" + cfg.Gmail.UserID
}
