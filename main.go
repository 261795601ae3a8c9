package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"shogo-ma/mcp-cli-go/mcp"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "mcp-cli",
		Usage: "MCPサーバーのツールを対話的に実行します",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the servers configuration file",
				Value:   mcp.DefaultConfigPath,
				EnvVars: []string{"MCP_CONFIG_PATH"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose logging",
			},
			&cli.BoolFlag{
				Name:  "pause",
				Usage: "Wait for Enter after each tool call",
				Value: true,
			},
		},
		Before: func(c *cli.Context) error {
			setupLogging(c.Bool("verbose"))
			return nil
		},
		Action: runInteractive,
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "ツールの一覧を表示します",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "output format: text or anthropic",
						Value: "text",
					},
				},
				Action: runList,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("アプリケーションエラー", slog.Any("error", err))
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func runInteractive(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	servers, err := startServers(ctx, c.String("config"))
	if err != nil {
		return err
	}
	defer mcp.CloseServers(servers, slog.Default())

	host, err := mcp.NewHost(ctx, servers, mcp.WithPause(c.Bool("pause")))
	if err != nil {
		slog.ErrorContext(ctx, "ツール一覧の取得に失敗しました", slog.Any("error", err))
		return cli.Exit("ツール一覧の取得に失敗しました", 1)
	}

	prompter := newPrompter(host.Registry().Names())
	defer prompter.Close()

	if err := host.Start(ctx, prompter); err != nil {
		slog.ErrorContext(ctx, "対話ループが異常終了しました", slog.Any("error", err))
		return cli.Exit("対話ループが異常終了しました", 1)
	}

	return nil
}

func runList(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	servers, err := startServers(ctx, c.String("config"))
	if err != nil {
		return err
	}
	defer mcp.CloseServers(servers, slog.Default())

	registry, err := mcp.CollectTools(ctx, servers, slog.Default())
	if err != nil {
		slog.ErrorContext(ctx, "ツール一覧の取得に失敗しました", slog.Any("error", err))
		return cli.Exit("ツール一覧の取得に失敗しました", 1)
	}

	switch c.String("format") {
	case "text":
		fmt.Print(registry.Describe())
	case "anthropic":
		out, err := mcp.MarshalAnthropicTools(registry.Tools())
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	default:
		return cli.Exit(fmt.Sprintf("未対応のフォーマットです: %s", c.String("format")), 1)
	}

	return nil
}

// startServers loads the configuration and initializes every server. All
// failures are turned into exit code 1.
func startServers(ctx context.Context, configPath string) ([]*mcp.Server, error) {
	config, err := mcp.LoadMCPConfig(configPath)
	if err != nil {
		if errors.Is(err, mcp.ErrConfigNotFound) {
			fmt.Printf("Error: Configuration file '%s' not found.\n", configPath)
			fmt.Println("Please create a servers_config.json file with your MCP server configuration.")
			return nil, cli.Exit("", 1)
		}
		slog.ErrorContext(ctx, "設定ファイルの読み込みに失敗しました", slog.Any("error", err))
		fmt.Printf("Error loading configuration: %v\n", err)
		return nil, cli.Exit("", 1)
	}

	servers, err := mcp.StartServers(ctx, config.Servers, mcp.NewSDKConnector(slog.Default()), slog.Default())
	if err != nil {
		slog.ErrorContext(ctx, "サーバーの初期化に失敗しました", slog.Any("error", err))
		return nil, cli.Exit("サーバーの初期化に失敗しました", 1)
	}

	return servers, nil
}

func newPrompter(toolNames []string) mcp.Prompter {
	if isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd()) {
		return mcp.NewTerminalPrompter(append(toolNames, "/bye"))
	}
	return mcp.NewLinePrompter(os.Stdin, os.Stdout)
}
