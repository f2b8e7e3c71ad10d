package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/bscott/mailcloud/internal/cli"
	"github.com/bscott/mailcloud/internal/output"
)

func main() {
	var c cli.CLI

	parser := kong.Must(&c,
		kong.Name("mailcloud"),
		kong.Description("Word frequency report and word cloud from labeled mail"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	// Handle --help-json before parsing to output full schema
	for _, arg := range os.Args[1:] {
		if arg == "--help-json" {
			if err := cli.PrintHelpJSON(&c); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	ctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		parser.FatalIfErrorf(err)
	}

	execCtx, err := cli.NewContext(&c.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err = ctx.Run(execCtx)
	execCtx.Close()
	if err != nil {
		if execCtx.Formatter.JSON {
			execCtx.Formatter.PrintJSON(output.JSONResponse{Error: err.Error()})
		} else {
			execCtx.Formatter.PrintError(err)
		}
		os.Exit(1)
	}
}
