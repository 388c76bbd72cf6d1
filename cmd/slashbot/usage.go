package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"reflect"
	"text/tabwriter"

	"github.com/UTD-JLA/slashbot/internal/config"
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])

		fmt.Fprintln(flag.CommandLine.Output(), "Options:")
		flag.PrintDefaults()

		fmt.Fprintln(flag.CommandLine.Output(), "\nEnvironment variables:")
		fmt.Fprintln(flag.CommandLine.Output(), "  DISCORD_APPLICATION_ID: Discord application ID (required)")
		fmt.Fprintln(flag.CommandLine.Output(), "  DISCORD_TOKEN: Discord bot token (required)")
		fmt.Fprintln(flag.CommandLine.Output(), "  LOG_LEVEL: One of audit, fatal, error, warn, info, debug, silly")
		fmt.Fprintln(flag.CommandLine.Output(), "  MAX_LOG_SIZE: Maximum log file size in megabytes")
		fmt.Fprintln(flag.CommandLine.Output(), "  LOG_FILE: Path to a rotating log file")
		fmt.Fprintln(flag.CommandLine.Output(), "  DATABASE_URL: Postgres URL for stored command grants")
		fmt.Fprintln(flag.CommandLine.Output(), "  DESTROY_COMMANDS_ON_CLOSE: Delete registered commands on shutdown")
		fmt.Fprintln(flag.CommandLine.Output(), "\nA .env file in the working directory is loaded first if present.")

		fmt.Fprintln(flag.CommandLine.Output(), "\nConfig file:")
		fmt.Fprintln(flag.CommandLine.Output(), "The optional -config TOML file accepts these keys; the environment wins over it:")
		fmt.Fprintln(flag.CommandLine.Output())
		printConfigKeys(flag.CommandLine.Output(), config.NewConfig())
	}
}

// printConfigKeys lists every TOML key of cfg with its type, environment
// variable and default.
func printConfigKeys(w io.Writer, cfg *config.Config) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	v := reflect.ValueOf(cfg).Elem()

	for i := 0; i < v.NumField(); i++ {
		f := v.Type().Field(i)

		key := f.Tag.Get("toml")
		if key == "" || key == "-" {
			continue
		}

		line := fmt.Sprintf("    %s = %s\t%s", key, f.Type.Kind(), f.Tag.Get("env"))
		if !v.Field(i).IsZero() {
			line += fmt.Sprintf("\t(default %v)", v.Field(i).Interface())
		}

		fmt.Fprintln(tw, line)
	}
}
