// Command currency queries the apilayer currency_data API from the command line
// or serves it over a small HTTP API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dalfonso89/currency-data-client/internal/config"
	"github.com/dalfonso89/currency-data-client/internal/logger"
	"github.com/dalfonso89/currency-data-client/internal/service"

	"github.com/spf13/pflag"
)

const usageHeader = `API Layer currency endpoints client

Usage:
  currency [flags] <command>

Commands:
  list         Get all available currencies
  live         Get the most recent exchange rate data (--source, --currencies)
  historical   Get exchange rates for a past day (--date, --source, --currencies)
  convert      Convert one currency to another (--from, --to, --amount)
  serve        Serve the commands above over HTTP (--port)

Flags:
`

// commandFlags are the per-command options; config.RegisterFlags adds the rest.
type commandFlags struct {
	source     string
	currencies string
	date       string
	from       string
	to         string
	amount     float64
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one invocation and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("currency", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	config.RegisterFlags(flags)

	var options commandFlags
	flags.StringVarP(&options.source, "source", "s", "", "reference currency")
	flags.StringVarP(&options.currencies, "currencies", "c", "", "comma separated target currencies")
	flags.StringVar(&options.date, "date", "", "day for historical rates (YYYY-MM-DD)")
	flags.StringVar(&options.from, "from", "", "currency to convert from")
	flags.StringVar(&options.to, "to", "", "currency to convert to")
	flags.Float64Var(&options.amount, "amount", 0, "amount to convert")

	flags.Usage = func() {
		fmt.Fprint(stderr, usageHeader)
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return 2
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	log := logger.NewWithOutput(cfg.LogLevel, stderr)

	if err := cfg.Validate(); err != nil {
		log.Errorf("Invalid configuration: %v", err)
		return 1
	}

	command := flags.Arg(0)
	if command == "serve" {
		if err := serve(cfg, log); err != nil {
			log.Errorf("Server failed: %v", err)
			return 1
		}
		return 0
	}

	result, err := execute(context.Background(), command, options, service.NewCurrencyServiceFromConfig(cfg, log))
	if err != nil {
		log.WithField("command", command).Errorf("Something went wrong. Make sure the APIKEY is valid: %v", err)
		return 1
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Errorf("Failed to encode result: %v", err)
		return 1
	}
	fmt.Fprintln(stdout, string(output))
	return 0
}

// execute runs a one-shot command and returns the value to print
func execute(ctx context.Context, command string, options commandFlags, currencies service.CurrencyProvider) (any, error) {
	switch command {
	case "list":
		return currencies.List(ctx)
	case "live":
		if options.source == "" {
			return nil, errors.New("live requires --source")
		}
		return currencies.Live(ctx, options.source, service.ParseCodeList(options.currencies))
	case "historical":
		if options.source == "" || options.date == "" {
			return nil, errors.New("historical requires --source and --date")
		}
		date, err := time.Parse(time.DateOnly, options.date)
		if err != nil {
			return nil, fmt.Errorf("invalid --date: %w", err)
		}
		return currencies.Historical(ctx, date, options.source, service.ParseCodeList(options.currencies))
	case "convert":
		return currencies.Convert(ctx, options.from, options.to, options.amount)
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}
