package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mbeoliero/kit/log"
	"github.com/spf13/cobra"

	"github.com/mbeoliero/nexochat/internal/config"
	"github.com/mbeoliero/nexochat/internal/notify"
	"github.com/mbeoliero/nexochat/internal/service"
	"github.com/mbeoliero/nexochat/internal/store"
	"github.com/mbeoliero/nexochat/pkg/idgen"
	"github.com/mbeoliero/nexochat/pkg/jwt"
	"github.com/mbeoliero/nexochat/sdk"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	configPath string
	tokenFlag  string
	tokenPath  string
)

var rootCmd = &cobra.Command{
	Use:           "nexochat",
	Short:         "Terminal client for the nexochat messaging server",
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "session token (default: saved by login)")
	rootCmd.PersistentFlags().StringVar(&tokenPath, "token-file", defaultTokenPath(), "file the session token is saved to")

	rootCmd.AddCommand(newLoginCmd(), newLogoutCmd(), newChatsCmd(), newPeopleCmd(),
		newHistoryCmd(), newSendCmd(), newGroupCmd(), newFollowCmd())
}

// app holds what every command needs
type app struct {
	cfg  *config.Config
	api  *sdk.Client
	gate *sdk.AlertGate
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, gate: &sdk.AlertGate{}}
	api, err := sdk.NewClient(cfg.API.BaseURL,
		sdk.WithTimeout(cfg.API.Timeout),
		sdk.WithNetworkErrorHandler(a.onNetworkError),
	)
	if err != nil {
		return nil, err
	}
	a.api = api

	gen, err := idgen.New(cfg.Client.IdGenerator, cfg.Client.MachineId)
	if err != nil {
		return nil, err
	}
	idgen.SetDefaultGenerator(gen)

	return a, nil
}

// onNetworkError prints one connectivity alert per command run
func (a *app) onNetworkError(err *sdk.TransportError) {
	if !a.gate.Trigger(err) {
		return
	}
	title, body := sdk.AlertText(err)
	fmt.Fprintf(os.Stderr, "%s: %s\n", title, body)
}

// authenticate loads the saved token into the client
func (a *app) authenticate() (*jwt.Claims, error) {
	token := tokenFlag
	if token == "" {
		data, err := os.ReadFile(tokenPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, errors.New("not logged in, run `nexochat login` first")
			}
			return nil, fmt.Errorf("failed to read token: %w", err)
		}
		token = strings.TrimSpace(string(data))
	}

	claims, err := jwt.ParseUnverified(token)
	if err != nil {
		return nil, err
	}
	if claims.ExpiresWithin(timeNow(), 0) {
		return nil, errors.New("session expired, run `nexochat login` again")
	}

	a.api.SetToken(token)
	return claims, nil
}

// chatService builds a service around a fresh, unsubscribed store
func (a *app) chatService(username string) (*service.ChatService, *store.Store) {
	st := store.New(nil, "", notify.Nop{})
	svc := service.NewChatService(a.api, st, idgen.GetDefaultGenerator(),
		personOf(username), a.cfg.API.PageSize)
	return svc, st
}

func saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(tokenPath), 0o700); err != nil {
		return fmt.Errorf("failed to create token dir: %w", err)
	}
	if err := os.WriteFile(tokenPath, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	log.Debug("token saved: path=%s", tokenPath)
	return nil
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nexochat_token"
	}
	return filepath.Join(home, ".nexochat", "token")
}
