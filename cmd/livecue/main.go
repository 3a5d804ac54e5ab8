// Command livecue captures microphone speech, transcribes it live and
// streams model responses to the browser UI on demand.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kbukum/livecue/app"
	"github.com/kbukum/livecue/config"
	"github.com/kbukum/livecue/version"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yml (default: searched under cmd/livecue)")
	envPath := flag.String("env", "", "Path to a .env file (default: searched next to config.yml)")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		return
	}

	if err := run(*configPath, *envPath); err != nil {
		fmt.Fprintf(os.Stderr, "livecue: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envPath string) error {
	var opts []config.LoaderOption
	if configPath != "" {
		opts = append(opts, config.WithConfigFile(configPath))
	}
	if envPath != "" {
		opts = append(opts, config.WithEnvFile(envPath))
	}

	cfg := app.DefaultConfig()
	if err := config.Load(app.ServiceName, cfg, opts...); err != nil {
		return err
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Short()
	}

	ctx := context.Background()
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	return svc.Run(ctx)
}
