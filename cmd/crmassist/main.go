package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Zacy-Sokach/crmassist/internal/api"
	"github.com/Zacy-Sokach/crmassist/internal/chat"
	"github.com/Zacy-Sokach/crmassist/internal/config"
	"github.com/Zacy-Sokach/crmassist/internal/logging"
	"github.com/Zacy-Sokach/crmassist/internal/tui"
	"github.com/Zacy-Sokach/crmassist/internal/utils"
)

var (
	Version = "dev"
)

// 全局参数
var (
	apiURL    string
	debugMode bool
)

func main() {
	// 添加panic恢复
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "程序发生panic: %v\n", r)
			fmt.Fprintln(os.Stderr, "堆栈跟踪:")
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "crmassist",
		Short: "Terminal assistant for the CRM dashboard",
		Long: `crmassist talks to the CRM AI agent backend.

Run without arguments to open the assistant panel. Inside the panel:
  enter    send the message
  ctrl+t   expand or collapse the reasoning steps
  ctrl+o   open or close the assistant
  /help    list slash commands`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPanel(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "CRM backend base URL (overrides config and CRMASSIST_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(emailsCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(interactionsCmd())
	rootCmd.AddCommand(mockCmd())
	rootCmd.AddCommand(configCmd())

	return rootCmd
}

// loadConfig 读取配置并应用命令行覆盖
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if debugMode {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// cliLogger 命令行子命令只在 --debug 时输出日志到 stderr
func cliLogger() *slog.Logger {
	if !debugMode {
		return logging.Discard()
	}
	return logging.NewText(os.Stderr, slog.LevelDebug)
}

func newClient(cfg *config.Config, logger *slog.Logger) *api.Client {
	doer := utils.NewRetryableHTTPClient(api.NewHTTPClient(cfg.Timeout()), cfg.RetryPolicy())
	return api.NewClient(cfg.APIURL, api.WithDoer(doer), api.WithLogger(logger))
}

func runPanel(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !isTerminal() {
		fmt.Println("crmassist 运行在非交互式模式")
		fmt.Println("请在交互式终端中打开助手面板，或使用 crmassist ask <问题>")
		return nil
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	// TUI 占用终端，日志写文件
	logger, closeLog, err := logging.OpenFile(cfg.Log.File, level)
	if err != nil {
		return err
	}
	defer closeLog()

	client := newClient(cfg, logger)
	transport := chat.NewAPITransport(client)

	logger.Info("panel starting", "version", Version, "api_url", client.BaseURL())

	if ctx == nil {
		ctx = context.Background()
	}
	tui.Version = Version
	model := tui.NewModel(tui.Options{
		NewConversation: func() *chat.Conversation {
			return chat.New(transport, chat.WithLogger(logger))
		},
		Logger:  logger,
		Context: ctx,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("程序运行错误: %w", err)
	}
	return nil
}

func isTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
