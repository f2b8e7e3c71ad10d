package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bscott/mailcloud/internal/config"
	"github.com/bscott/mailcloud/internal/gmail"
	"github.com/bscott/mailcloud/internal/imap"
)

// Run lists the labels that can be passed to `mailcloud run --labels`.
func (c *LabelsCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	if c.Provider != "" {
		cfg.Provider = c.Provider
	}

	ctx.Formatter.Verbosef("Listing labels...")

	switch cfg.Provider {
	case config.ProviderGmail:
		src, err := openGmail(context.Background(), cfg, ctx.Logger)
		if err != nil {
			return err
		}
		defer src.Close()

		labels, err := src.Labels(context.Background())
		if err != nil {
			return err
		}
		return printGmailLabels(ctx, labels)

	case config.ProviderIMAP:
		client, err := openIMAP(cfg, ctx.Logger)
		if err != nil {
			return err
		}
		defer client.Close()

		labels, err := client.Labels()
		if err != nil {
			return err
		}
		return printIMAPLabels(ctx, labels)

	default:
		return fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func printGmailLabels(ctx *Context, labels []gmail.Label) error {
	if ctx.Formatter.JSON {
		return ctx.Formatter.PrintJSON(map[string]any{
			"count":  len(labels),
			"labels": labels,
		})
	}

	if len(labels) == 0 {
		fmt.Fprintln(ctx.Formatter.Writer, "No labels found.")
		return nil
	}

	table := ctx.Formatter.NewTable("NAME", "TYPE", "MESSAGES")
	for _, l := range labels {
		count := "-"
		if l.Type == "user" {
			count = strconv.FormatInt(l.Messages, 10)
		}
		table.AddRow(l.Name, l.Type, count)
	}
	table.Flush()
	return nil
}

func printIMAPLabels(ctx *Context, labels []imap.LabelInfo) error {
	if ctx.Formatter.JSON {
		return ctx.Formatter.PrintJSON(map[string]any{
			"count":  len(labels),
			"labels": labels,
		})
	}

	w := ctx.Formatter.Writer
	if len(labels) == 0 {
		fmt.Fprintln(w, "No labels found.")
		fmt.Fprintf(w, "\nNote: Proton Mail labels appear as folders under '%s'.\n", imap.LabelPrefix)
		return nil
	}

	fmt.Fprintf(w, "Labels (%d):\n\n", len(labels))
	for _, label := range labels {
		fmt.Fprintf(w, "  %s\n", label.Name)
	}
	return nil
}
