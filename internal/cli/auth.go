package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"

	"golang.org/x/term"

	"github.com/bscott/mailcloud/internal/config"
	"github.com/bscott/mailcloud/internal/gmail"
)

func (c *AuthCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	if c.Provider != "" {
		cfg.Provider = c.Provider
	}

	switch cfg.Provider {
	case config.ProviderGmail:
		if c.Logout {
			return c.forgetToken(ctx, cfg.Gmail.TokenFile)
		}
		return c.loginGmail(ctx, cfg)
	case config.ProviderIMAP:
		if c.Logout {
			if err := config.DeletePassword(cfg.Bridge.Email); err != nil {
				return fmt.Errorf("failed to remove password from keyring: %w", err)
			}
			ctx.Formatter.PrintSuccess("Password removed from keyring")
			return nil
		}
		return c.storePassword(ctx, cfg)
	default:
		return fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func (c *AuthCmd) loginGmail(ctx *Context, cfg *config.Config) error {
	auth, err := gmail.NewAuth(cfg.Gmail.CredentialsFile, cfg.Gmail.TokenFile)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	prompt := func(url string) {
		w := ctx.Formatter.ErrWriter
		fmt.Fprintln(w, "Open this link in your browser to let mailcloud read your mail:")
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %s\n", url)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Waiting for authorization...")
	}
	if _, err := auth.Login(runCtx, prompt); err != nil {
		return err
	}

	if ctx.Formatter.JSON {
		return ctx.Formatter.PrintJSON(map[string]any{
			"success":    true,
			"token_file": auth.TokenFile(),
		})
	}
	ctx.Formatter.PrintSuccess("Token saved to " + auth.TokenFile())
	return nil
}

func (c *AuthCmd) forgetToken(ctx *Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	ctx.Formatter.PrintSuccess("Removed " + path)
	return nil
}

func (c *AuthCmd) storePassword(ctx *Context, cfg *config.Config) error {
	if cfg.Bridge.Email == "" {
		return fmt.Errorf("bridge.email is not set - run 'mailcloud config set bridge.email <address>' first")
	}

	fmt.Fprintf(ctx.Formatter.ErrWriter, "Bridge password for %s: ", cfg.Bridge.Email)
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(ctx.Formatter.ErrWriter)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if len(passwordBytes) == 0 {
		return fmt.Errorf("bridge password is required")
	}

	if err := cfg.SetPassword(string(passwordBytes)); err != nil {
		return fmt.Errorf("failed to store password in keyring: %w", err)
	}
	ctx.Formatter.PrintSuccess("Password stored in system keyring")
	return nil
}
