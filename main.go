// main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/Clean1ines/shazamio/pkg/config"
	"github.com/Clean1ines/shazamio/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "shazamio",
		Usage: "Распознавание музыки и каталог Shazam для умного дома",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "путь к YAML-файлу конфигурации",
				Sources: cli.EnvVars("SHAZAMIO_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "addon",
				Usage: "HTTP-дополнение: POST /api/<операция>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(ctx, cmd, "addon", runAddon)
				},
			},
			{
				Name:  "bridge",
				Usage: "интеграция: MQTT, Pub/Sub и Telegram поверх реестра сервисов",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(ctx, cmd, "bridge", runBridge)
				},
			},
			{
				Name:      "call",
				Usage:     "вызвать сервис один раз и напечатать результат",
				ArgsUsage: "<операция> [ключ=значение ...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "fail-silent",
						Usage: "вернуть {} вместо ошибки",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(ctx, cmd, "call", func(ctx context.Context, a *app) error {
						if cmd.IsSet("fail-silent") {
							a.cfg.Integration.FailSilent = cmd.Bool("fail-silent")
						}
						return runCall(ctx, a, cmd.Args().Slice(), os.Stdout)
					})
				},
			},
			{
				Name:  "services",
				Usage: "перечислить операции",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					for _, name := range serviceNames() {
						fmt.Println(name)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatalf("shazamio: %v", err)
	}
}

// withApp загружает конфигурацию и логгер и передает их команде.
func withApp(ctx context.Context, cmd *cli.Command, command string, run func(context.Context, *app) error) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	logger, err := logging.New(ctx, cfg.Logging.ProjectID, loggerName(cfg.Logging.Name, command))
	if err != nil {
		return fmt.Errorf("ошибка инициализации Cloud Logging: %w", err)
	}
	defer logger.Close()
	defer logger.Flush()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()
	return run(ctx, a)
}

// loggerName составляет имя журнала из logging.name и подкоманды.
func loggerName(base, command string) string {
	if base == "" {
		return command
	}
	return base + "-" + command
}
