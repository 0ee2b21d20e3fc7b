package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"chatwidget/internal/tui"
	"chatwidget/internal/widget"
)

const version = "1.0.0"

func main() {
	var (
		flagAgent      string
		flagConfigURL  string
		flagAPIURL     string
		flagUploadURL  string
		flagStorageDir string
		flagTestMode   bool
		flagMock       bool
	)

	root := &cobra.Command{
		Use:     "chatwidget",
		Short:   "Embeddable conversational widget runtime",
		Long:    "chatwidget embeds a chat client for a remote dialogue engine.\n\nIt loads the agent's configuration bundle, restores the local session and runs the widget UI. Use --mock for an offline demo against canned responses.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := widget.LoadSettings(widget.DefaultSettingsPath())
			if err != nil {
				return err
			}
			if flagAgent != "" {
				settings.AgentID = flagAgent
			}
			if flagConfigURL != "" {
				settings.ConfigURL = flagConfigURL
			}
			if flagAPIURL != "" {
				settings.APIURL = flagAPIURL
			}
			if flagUploadURL != "" {
				settings.UploadURL = flagUploadURL
			}
			if flagStorageDir != "" {
				settings.StorageDir = flagStorageDir
			}
			if flagTestMode {
				settings.TestMode = true
			}
			if flagMock {
				settings.APIURL = widget.MockBaseURL
			}
			if settings.AgentID == "" {
				if flagMock {
					settings.AgentID = "demo"
				} else {
					return fmt.Errorf("no agent id: pass --agent or set CHATWIDGET_AGENT_ID")
				}
			}

			log := widget.NewLogger(settings.StorageDir)

			var cfg widget.Config
			if settings.ConfigURL == "" {
				// No bundle endpoint: run on defaults (demo/mock setups).
				cfg = widget.DefaultConfig(settings.AgentID)
				cfg.Welcome.Enabled = true
				cfg.FileUploadEnabled = true
			} else {
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				cfg, err = widget.FetchConfig(ctx, &http.Client{Timeout: 15 * time.Second}, settings.ConfigURL, settings.AgentID)
				if err != nil {
					// Fatal to construction: nothing renders without a config.
					return fmt.Errorf("load config bundle: %w", err)
				}
			}

			store := widget.NewSessionStore(settings.StorageDir, cfg.AgentID, log)
			sess := store.Init()

			client := widget.NewProtocolClient(cfg.AgentID, settings.APIURL, sess.UserID, settings.TestMode, 0, log)
			uploader := widget.NewFileUploadClient(cfg.AgentID, settings.UploadURL, log)

			p := tea.NewProgram(tui.New(cfg, store, client, uploader, log), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}

	root.Flags().StringVar(&flagAgent, "agent", "", "agent id to load")
	root.Flags().StringVar(&flagConfigURL, "config-url", "", "configuration bundle endpoint")
	root.Flags().StringVar(&flagAPIURL, "api-url", "", "dialogue engine interact endpoint")
	root.Flags().StringVar(&flagUploadURL, "upload-url", "", "file upload endpoint")
	root.Flags().StringVar(&flagStorageDir, "storage-dir", "", "local session storage directory")
	root.Flags().BoolVar(&flagTestMode, "test-mode", false, "mark interactions as test traffic")
	root.Flags().BoolVar(&flagMock, "mock", false, "run offline against canned responses")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
