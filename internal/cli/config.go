package cli

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/bscott/mailcloud/internal/config"
	"github.com/bscott/mailcloud/internal/logging"
	"github.com/bscott/mailcloud/internal/output"
)

func (c *ConfigInitCmd) Run(ctx *Context) error {
	fmt.Println("mailcloud Configuration Wizard")
	fmt.Println("==============================")
	fmt.Println()
	fmt.Println("This wizard writes a config file describing which mailbox to read")
	fmt.Println("and where the report and word cloud go.")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	cfg := config.DefaultConfig()

	cfg.Provider = ask(reader, "Provider (gmail or imap)", config.ProviderGmail)
	if cfg.Provider != config.ProviderGmail && cfg.Provider != config.ProviderIMAP {
		return fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	labels := ask(reader, "Labels, comma separated", strings.Join(cfg.Labels, ","))
	cfg.Labels = splitList(labels)

	var password string
	switch cfg.Provider {
	case config.ProviderGmail:
		cfg.Gmail.CredentialsFile = ask(reader, "OAuth client credentials file", cfg.Gmail.CredentialsFile)
		cfg.Gmail.TokenFile = ask(reader, "Token file", cfg.Gmail.TokenFile)

	case config.ProviderIMAP:
		cfg.Bridge.Email = ask(reader, "Email address", "")
		if cfg.Bridge.Email == "" {
			return fmt.Errorf("email address is required")
		}
		cfg.Bridge.IMAPHost = ask(reader, "IMAP host", config.DefaultIMAP)

		portStr := ask(reader, "IMAP port", strconv.Itoa(config.DefaultIMAPPort))
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid IMAP port: %s", portStr)
		}
		cfg.Bridge.IMAPPort = port

		fmt.Println()
		fmt.Println("Enter your Proton Bridge password.")
		fmt.Println("(Find this in the Proton Bridge app under your account settings)")
		fmt.Print("Bridge password: ")

		passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(passwordBytes)
		if password == "" {
			return fmt.Errorf("bridge password is required")
		}
	}

	cfg.Output.ReportPath = ask(reader, "Report file", cfg.Output.ReportPath)
	cfg.Output.ImagePath = ask(reader, "Word cloud image", cfg.Output.ImagePath)

	if err := cfg.Validate(); err != nil {
		return err
	}

	configPath := ctx.Globals.Config
	if configPath == "" {
		var err error
		if configPath, err = config.ConfigPath(); err != nil {
			return err
		}
	}
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	if password != "" {
		if err := cfg.SetPassword(password); err != nil {
			return fmt.Errorf("failed to store password in keyring: %w", err)
		}
	}

	fmt.Println()
	fmt.Printf("Configuration saved to %s\n", configPath)
	if password != "" {
		fmt.Println("Password stored securely in system keyring.")
	}
	fmt.Println()
	if cfg.Provider == config.ProviderGmail {
		fmt.Println("Authorize access with: mailcloud auth")
	} else {
		fmt.Println("Test your connection with: mailcloud config validate")
	}

	return nil
}

// ask prints a prompt with its default and returns the trimmed answer, or
// def when the answer is empty.
func ask(reader *bufio.Reader, prompt, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", prompt, def)
	} else {
		fmt.Printf("%s: ", prompt)
	}
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return def
	}
	return answer
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *ConfigShowCmd) Run(ctx *Context) error {
	if ctx.Config == nil {
		return fmt.Errorf("no configuration found - run 'mailcloud config init' first")
	}
	cfg := ctx.Config

	if ctx.Formatter.JSON {
		return ctx.Formatter.PrintJSON(map[string]any{
			"provider": cfg.Provider,
			"labels":   cfg.Labels,
			"workers":  cfg.Workers,
			"gmail": map[string]any{
				"credentials_file": cfg.Gmail.CredentialsFile,
				"token_file":       cfg.Gmail.TokenFile,
				"user_id":          cfg.Gmail.UserID,
			},
			"bridge": map[string]any{
				"imap_host": cfg.Bridge.IMAPHost,
				"imap_port": cfg.Bridge.IMAPPort,
				"email":     cfg.Bridge.Email,
			},
			"image": map[string]any{
				"width":  cfg.Image.Width,
				"height": cfg.Image.Height,
			},
			"output": map[string]any{
				"report_path": cfg.Output.ReportPath,
				"image_path":  cfg.Output.ImagePath,
			},
			"stopwords": map[string]any{
				"extra":       cfg.Stopwords.Extra,
				"no_defaults": cfg.Stopwords.NoDefaults,
			},
			"cache": map[string]any{
				"enabled": cfg.Cache.Enabled,
				"path":    cfg.Cache.Path,
			},
			"log": map[string]any{
				"level":  cfg.Log.Level,
				"format": cfg.Log.Format,
				"file":   cfg.Log.File,
			},
			"metrics": map[string]any{
				"textfile": cfg.Metrics.Textfile,
			},
		})
	}

	w := ctx.Formatter.Writer
	configPath := ctx.Globals.Config
	if configPath == "" {
		configPath, _ = config.ConfigPath()
	}
	fmt.Fprintf(w, "Configuration file: %s\n\n", configPath)

	fmt.Fprintf(w, "Provider: %s\n", cfg.Provider)
	fmt.Fprintf(w, "Labels:   %s\n", strings.Join(cfg.Labels, ", "))
	fmt.Fprintf(w, "Workers:  %d\n", cfg.Workers)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Gmail Settings:")
	fmt.Fprintf(w, "  Credentials: %s\n", cfg.Gmail.CredentialsFile)
	fmt.Fprintf(w, "  Token:       %s\n", cfg.Gmail.TokenFile)
	fmt.Fprintf(w, "  User:        %s\n", cfg.Gmail.UserID)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Bridge Settings:")
	fmt.Fprintf(w, "  IMAP Host: %s\n", cfg.Bridge.IMAPHost)
	fmt.Fprintf(w, "  IMAP Port: %d\n", cfg.Bridge.IMAPPort)
	fmt.Fprintf(w, "  Email:     %s\n", cfg.Bridge.Email)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintf(w, "  Report: %s\n", cfg.Output.ReportPath)
	fmt.Fprintf(w, "  Image:  %s (%dx%d)\n", cfg.Output.ImagePath, cfg.Image.Width, cfg.Image.Height)

	if len(cfg.Stopwords.Extra) > 0 || cfg.Stopwords.NoDefaults {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Stopwords:")
		fmt.Fprintf(w, "  Extra:       %s\n", strings.Join(cfg.Stopwords.Extra, ", "))
		fmt.Fprintf(w, "  No defaults: %t\n", cfg.Stopwords.NoDefaults)
	}

	if cfg.Provider == config.ProviderIMAP {
		_, err := cfg.GetPassword()
		fmt.Fprintln(w)
		if err != nil {
			fmt.Fprintln(w, "Password: not set (run 'mailcloud auth' to set)")
		} else {
			fmt.Fprintln(w, "Password: ********** (stored in keyring)")
		}
	}

	return nil
}

func (c *ConfigSetCmd) Run(ctx *Context) error {
	if ctx.Config == nil {
		ctx.Config = config.DefaultConfig()
	}
	if err := setValue(ctx.Config, c.Key, c.Value); err != nil {
		return err
	}

	if err := ctx.Config.Save(ctx.Globals.Config); err != nil {
		return err
	}

	ctx.Formatter.PrintSuccess(fmt.Sprintf("Set %s = %s", c.Key, c.Value))
	return nil
}

func setValue(cfg *config.Config, key, value string) error {
	parts := strings.Split(key, ".")
	if len(parts) == 1 {
		switch key {
		case "provider":
			if value != config.ProviderGmail && value != config.ProviderIMAP {
				return fmt.Errorf("provider must be '%s' or '%s'", config.ProviderGmail, config.ProviderIMAP)
			}
			cfg.Provider = value
		case "labels":
			cfg.Labels = splitList(value)
		case "workers":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid workers value: %s", value)
			}
			cfg.Workers = n
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		return nil
	}
	if len(parts) != 2 {
		return fmt.Errorf("invalid key format - use key or section.key (e.g., labels, bridge.email)")
	}

	section, name := parts[0], parts[1]

	switch section {
	case "gmail":
		switch name {
		case "credentials_file":
			cfg.Gmail.CredentialsFile = value
		case "token_file":
			cfg.Gmail.TokenFile = value
		case "user_id":
			cfg.Gmail.UserID = value
		default:
			return fmt.Errorf("unknown gmail key: %s", name)
		}
	case "bridge":
		switch name {
		case "imap_host":
			cfg.Bridge.IMAPHost = value
		case "imap_port":
			port, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid port value: %s", value)
			}
			cfg.Bridge.IMAPPort = port
		case "email":
			cfg.Bridge.Email = value
		default:
			return fmt.Errorf("unknown bridge key: %s", name)
		}
	case "image":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid image size: %s", value)
		}
		switch name {
		case "width":
			cfg.Image.Width = n
		case "height":
			cfg.Image.Height = n
		default:
			return fmt.Errorf("unknown image key: %s", name)
		}
	case "output":
		switch name {
		case "report_path":
			cfg.Output.ReportPath = value
		case "image_path":
			cfg.Output.ImagePath = value
		default:
			return fmt.Errorf("unknown output key: %s", name)
		}
	case "stopwords":
		switch name {
		case "extra":
			cfg.Stopwords.Extra = splitList(value)
		case "no_defaults":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %s", value)
			}
			cfg.Stopwords.NoDefaults = b
		default:
			return fmt.Errorf("unknown stopwords key: %s", name)
		}
	case "cache":
		switch name {
		case "enabled":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %s", value)
			}
			cfg.Cache.Enabled = b
		case "path":
			cfg.Cache.Path = value
		default:
			return fmt.Errorf("unknown cache key: %s", name)
		}
	case "log":
		switch name {
		case "level":
			cfg.Log.Level = value
		case "format":
			if value != "text" && value != "json" {
				return fmt.Errorf("format must be 'text' or 'json'")
			}
			cfg.Log.Format = value
		case "file":
			cfg.Log.File = value
		default:
			return fmt.Errorf("unknown log key: %s", name)
		}
	case "metrics":
		if name != "textfile" {
			return fmt.Errorf("unknown metrics key: %s", name)
		}
		cfg.Metrics.Textfile = value
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
	return nil
}

func (c *ConfigValidateCmd) Run(ctx *Context) error {
	if ctx.Config == nil {
		return fmt.Errorf("no configuration found - run 'mailcloud config init' first")
	}

	fail := func(err error) error {
		if ctx.Formatter.JSON {
			return ctx.Formatter.PrintJSON(output.JSONResponse{Error: err.Error()})
		}
		return err
	}

	if err := ctx.Config.Validate(); err != nil {
		return fail(fmt.Errorf("invalid configuration: %w", err))
	}

	src, err := openSession(context.Background(), ctx.Config, ctx.Logger)
	if err != nil {
		return fail(fmt.Errorf("connection failed: %w", err))
	}
	defer src.Close()

	// A Gmail token is only proven by a request.
	if _, err := src.ListPage(context.Background(), "", ""); err != nil {
		return fail(fmt.Errorf("mailbox request failed: %w", err))
	}

	msg := fmt.Sprintf("Successfully opened a %s session", ctx.Config.Provider)
	if ctx.Formatter.JSON {
		return ctx.Formatter.PrintJSON(map[string]any{
			"success": true,
			"message": msg,
		})
	}

	fmt.Fprintln(ctx.Formatter.Writer, msg)
	return nil
}

func (c *ConfigDoctorCmd) Run(ctx *Context) error {
	type checkResult struct {
		Name    string `json:"name"`
		Status  string `json:"status"`
		Message string `json:"message,omitempty"`
	}

	var results []checkResult

	check := func(name, status, message string) {
		results = append(results, checkResult{
			Name:    name,
			Status:  status,
			Message: message,
		})
		if ctx.Formatter.JSON {
			return
		}
		prefix := ctx.Formatter.SuccessText("[OK]")
		if status == "fail" {
			prefix = ctx.Formatter.ErrorText("[FAIL]")
		}
		if message != "" {
			fmt.Fprintf(ctx.Formatter.Writer, "%s %s - %s\n", prefix, name, message)
		} else {
			fmt.Fprintf(ctx.Formatter.Writer, "%s %s\n", prefix, name)
		}
	}

	// Config file exists and parses
	configPath := ctx.Globals.Config
	if configPath == "" {
		configPath, _ = config.ConfigPath()
	}
	var cfg *config.Config
	if _, err := os.Stat(configPath); err != nil {
		check("Config file exists", "fail", fmt.Sprintf("not found at %s", configPath))
	} else {
		check("Config file exists", "ok", "")
		loaded, err := config.Load(configPath)
		if err != nil {
			check("Config valid", "fail", err.Error())
		} else {
			check("Config valid", "ok", "")
			cfg = loaded
		}
	}

	if cfg == nil {
		cfg = ctx.Config
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		check("Settings usable", "fail", err.Error())
	} else {
		check("Settings usable", "ok", "")
	}

	switch cfg.Provider {
	case config.ProviderGmail:
		if _, err := os.Stat(cfg.Gmail.CredentialsFile); err != nil {
			check("OAuth credentials readable", "fail", fmt.Sprintf("cannot read %s", cfg.Gmail.CredentialsFile))
		} else {
			check("OAuth credentials readable", "ok", cfg.Gmail.CredentialsFile)
		}
		if _, err := os.Stat(cfg.Gmail.TokenFile); err != nil {
			check("Token saved", "fail", "no token - run 'mailcloud auth'")
		} else {
			check("Token saved", "ok", cfg.Gmail.TokenFile)
		}

	case config.ProviderIMAP:
		if cfg.Bridge.Email == "" {
			check("Email configured", "fail", "no email address set")
			check("Password in keyring", "fail", "cannot check - email not configured")
		} else {
			check("Email configured", "ok", cfg.Bridge.Email)
			if _, err := cfg.GetPassword(); err != nil {
				check("Password in keyring", "fail", "password not found in keyring")
			} else {
				check("Password in keyring", "ok", "")
			}
		}

		imapAddr := net.JoinHostPort(cfg.Bridge.IMAPHost, strconv.Itoa(cfg.Bridge.IMAPPort))
		imapReachable := false
		conn, err := net.DialTimeout("tcp", imapAddr, 5*time.Second)
		if err != nil {
			check("IMAP port reachable", "fail", fmt.Sprintf("cannot connect to %s - is Proton Bridge running?", imapAddr))
		} else {
			conn.Close()
			imapReachable = true
			check("IMAP port reachable", "ok", imapAddr)
		}

		switch {
		case cfg.Bridge.Email == "":
			check("IMAP login succeeds", "fail", "cannot test - email not configured")
		case !imapReachable:
			check("IMAP login succeeds", "fail", "cannot test - IMAP port not reachable")
		default:
			client, err := openIMAP(cfg, logging.Discard())
			if err != nil {
				check("IMAP login succeeds", "fail", err.Error())
			} else {
				client.Close()
				check("IMAP login succeeds", "ok", "")
			}
		}
	}

	for _, p := range []string{cfg.Output.ReportPath, cfg.Output.ImagePath} {
		if p == "" {
			continue
		}
		dir := filepath.Dir(p)
		if info, err := os.Stat(dir); err == nil && !info.IsDir() {
			check("Output directory usable", "fail", fmt.Sprintf("%s is not a directory", dir))
		}
	}

	if ctx.Formatter.JSON {
		allOk := true
		for _, r := range results {
			if r.Status == "fail" {
				allOk = false
				break
			}
		}
		return ctx.Formatter.PrintJSON(map[string]any{
			"checks":  results,
			"healthy": allOk,
		})
	}

	return nil
}
