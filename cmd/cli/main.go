package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rayan4-dot/kudoai/internal/envload"
	"github.com/rayan4-dot/kudoai/internal/version"
	"github.com/rayan4-dot/kudoai/kernel/controller"
	"github.com/rayan4-dot/kudoai/kernel/model"
	modelproviders "github.com/rayan4-dot/kudoai/kernel/model/providers"
	"github.com/rayan4-dot/kudoai/kernel/store"
	"github.com/rayan4-dot/kudoai/kernel/store/filemedium"
	"github.com/rayan4-dot/kudoai/kernel/store/inmemory"
	"github.com/rayan4-dot/kudoai/kernel/store/sqlitemedium"
)

const (
	storeModeFile   = "file"
	storeModeSQLite = "sqlite"
	storeModeMemory = "memory"

	defaultGeminiAlias   = "gemini"
	defaultGeminiModel   = "gemini-1.5-pro"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	initialAppName := appNameFromArgs(args, "kudoai")
	envload.Load()

	configStore, err := loadOrInitAppConfig(initialAppName)
	if err != nil {
		return err
	}
	defaultDataDir, err := chatDataDir(initialAppName)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	var (
		appName     = fs.String("app", initialAppName, "App name")
		storeMode   = fs.String("store", configStore.StoreMode(), "Session store backend: file|sqlite|memory")
		dataDir     = fs.String("data-dir", defaultDataDir, "Session data directory")
		modelAlias  = fs.String("model", configStore.DefaultModel(), "Model alias")
		input       = fs.String("input", "", "Single prompt to run non-interactively")
		logLevel    = fs.String("log-level", "warn", "Diagnostic log level: debug|info|warn|error|off")
		showVersion = fs.Bool("version", false, "Show version and exit")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Println(version.String())
		return nil
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", fs.Args())
	}

	logger, err := newLogger(*logLevel)
	if err != nil {
		return err
	}

	if err := configStore.SetStoreMode(*storeMode); err != nil {
		return err
	}
	credentials, err := loadOrInitCredentialStore(initialAppName)
	if err != nil {
		return err
	}
	if err := mergeCredentialStoreProviderTokens(configStore, credentials); err != nil {
		return err
	}

	medium, closeMedium, err := openMedium(*storeMode, *dataDir)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeMedium(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "warn: close session store failed: %v\n", closeErr)
		}
	}()
	sessions, err := store.New(store.Config{Medium: medium, Logger: logger})
	if err != nil {
		return err
	}

	factory := modelproviders.NewFactory()
	registerBuiltinProviders(factory)
	for _, providerCfg := range configStore.ProviderConfigs() {
		if registerErr := factory.Register(providerCfg); registerErr != nil {
			fmt.Fprintf(os.Stderr, "warn: skip provider %q: %v\n", providerCfg.Alias, registerErr)
		}
	}

	alias := strings.TrimSpace(strings.ToLower(*modelAlias))
	if alias == "" {
		alias = defaultGeminiAlias
	}
	var generator model.Generator
	generator, err = factory.NewByAlias(alias)
	if err != nil {
		if !model.IsMissingCredential(err) {
			return err
		}
		// Start without a model; submits surface the credential notice and
		// /connect can configure one at runtime.
		generator = nil
	}
	if generator != nil {
		if err := configStore.SetDefaultModel(alias); err != nil {
			fmt.Fprintf(os.Stderr, "warn: update default model failed: %v\n", err)
		}
	}

	ctl, err := controller.New(controller.Config{
		Store:     sessions,
		Generator: generator,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	if strings.TrimSpace(*input) != "" {
		return runOnce(ctx, ctl, *input)
	}

	historyPath, err := historyFilePath(initialAppName)
	if err != nil {
		return err
	}
	console := newChatConsole(chatConsoleConfig{
		BaseContext:     ctx,
		Controller:      ctl,
		ModelAlias:      alias,
		ModelConnected:  generator != nil,
		ModelFactory:    factory,
		ConfigStore:     configStore,
		CredentialStore: credentials,
		StoreMode:       *storeMode,
		AppName:         *appName,
		HistoryFile:     historyPath,
		Version:         version.String(),
	})
	return console.loop()
}

// registerBuiltinProviders seeds the factory with the stock Gemini alias so
// a fresh install only needs GEMINI_API_KEY in the environment or .env.
func registerBuiltinProviders(factory *modelproviders.Factory) {
	builtin := modelproviders.Config{
		Alias:    defaultGeminiAlias,
		Provider: "gemini",
		API:      modelproviders.APIGemini,
		Model:    defaultGeminiModel,
		BaseURL:  defaultGeminiBaseURL,
		Auth:     modelproviders.AuthConfig{TokenEnv: "GEMINI_API_KEY"},
	}
	if err := factory.Register(builtin); err != nil {
		fmt.Fprintf(os.Stderr, "warn: register builtin provider: %v\n", err)
	}
}

func openMedium(mode, dataDir string) (store.Medium, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case storeModeMemory:
		return inmemory.New(), noop, nil
	case storeModeSQLite:
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("cli: create data dir: %w", err)
		}
		medium, err := sqlitemedium.New(filepath.Join(dataDir, "sessions.db"))
		if err != nil {
			return nil, nil, err
		}
		return medium, medium.Close, nil
	case storeModeFile, "":
		medium, err := filemedium.New(filepath.Join(dataDir, "sessions"))
		if err != nil {
			return nil, nil, err
		}
		return medium, noop, nil
	default:
		return nil, nil, fmt.Errorf("cli: unknown store mode %q, expected file|sqlite|memory", mode)
	}
}

func newLogger(level string) (zerolog.Logger, error) {
	parsed, err := parseLogLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if parsed == zerolog.Disabled {
		return zerolog.Nop(), nil
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(writer).Level(parsed).With().Timestamp().Logger(), nil
}

func parseLogLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "off", "disabled":
		return zerolog.Disabled, nil
	default:
		return zerolog.Disabled, fmt.Errorf("cli: unknown log level %q", level)
	}
}

// runOnce serves the -input flag: one submit against a fresh session, the
// transcript printed, no interactive loop.
func runOnce(ctx context.Context, ctl *controller.Controller, input string) error {
	if err := ctl.Submit(ctx, input); err != nil {
		return err
	}
	printer := newTranscriptPrinter(os.Stdout)
	for _, msg := range ctl.Messages() {
		printer.printMessage(msg)
	}
	return nil
}

func appNameFromArgs(args []string, fallback string) string {
	name := strings.TrimSpace(fallback)
	for i := 0; i < len(args); i++ {
		token := strings.TrimSpace(args[i])
		if token == "" {
			continue
		}
		if token == "-app" || token == "--app" {
			if i+1 < len(args) {
				return strings.TrimSpace(args[i+1])
			}
			continue
		}
		if strings.HasPrefix(token, "-app=") {
			return strings.TrimSpace(strings.TrimPrefix(token, "-app="))
		}
		if strings.HasPrefix(token, "--app=") {
			return strings.TrimSpace(strings.TrimPrefix(token, "--app="))
		}
	}
	return name
}
