package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/enesunal-m/voiceagent"
	"github.com/enesunal-m/voiceagent/bridge"
	"github.com/enesunal-m/voiceagent/portaudio"
)

var (
	serveAddr         string
	serveStatic       string
	serveRemoteOutput bool
	serveNoDevices    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser control endpoint",
	Long: `Serve the WebSocket control endpoint at /ws, sample customers at
/sample-data and, with --static, a frontend at /.

Sessions use local devices unless the browser asks for browser audio.
Set OIDC_ISSUER and OIDC_AUDIENCE to require bearer tokens.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :5000)")
	serveCmd.Flags().StringVar(&serveStatic, "static", "", "directory served at /")
	serveCmd.Flags().BoolVar(&serveRemoteOutput, "remote-output", false, "always play agent audio in the browser")
	serveCmd.Flags().BoolVar(&serveNoDevices, "no-devices", false, "do not open local audio devices")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var auth *bridge.Authenticator
	if ac := a.file.authConfig(); ac.Enabled() {
		if auth, err = bridge.NewAuthenticator(ctx, ac); err != nil {
			return err
		}
		defer auth.Close()
		a.log.Info("oidc_enabled", map[string]any{"issuer": ac.Issuer, "token_type": ac.TokenType})
	}

	var driver voiceagent.AudioDriver
	if !serveNoDevices {
		if err := portaudio.Initialize(); err != nil {
			a.log.Warn("audio_unavailable", map[string]any{"err": err})
		} else {
			defer portaudio.Terminate()
			driver = portaudio.NewDriver()
		}
	}

	agent, _ := a.agentConfig("", "")
	cfg := a.cfg
	cfg.Agent = agent

	srv := bridge.New(bridge.Options{
		Config:         cfg,
		Functions:      a.funcs,
		Driver:         driver,
		Business:       a.store,
		DocTopics:      a.topics,
		StaticDir:      firstNonEmpty(serveStatic, a.file.Bridge.Static),
		RemoteOutput:   serveRemoteOutput || a.file.Bridge.RemoteOutput,
		AllowedOrigins: a.file.allowedOrigins(),
		Auth:           auth,
	})
	return srv.ListenAndServe(ctx, firstNonEmpty(serveAddr, a.file.Bridge.Addr, ":5000"))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

