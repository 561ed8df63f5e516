package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/enesunal-m/voiceagent"
	"github.com/enesunal-m/voiceagent/business"
	"github.com/enesunal-m/voiceagent/functions"
	"github.com/enesunal-m/voiceagent/persona"
)

var (
	// Global flags
	configPath string
	logLevel   string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "voice-agent",
	Short: "Voice agent bridge for customer service demos",
	Long: `voice-agent - connects a microphone and speaker, or a browser, to a
Deepgram voice agent that answers as a customer service persona.

Examples:
  # Serve the browser UI on :5000
  voice-agent serve --static ./web

  # Talk to the healthcare persona on the default devices
  voice-agent run --industry healthcare --voice aura-2-helena-en

  # Pick devices by index
  voice-agent devices
  voice-agent run --input-device 2 --output-device 0`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured log output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "DEBUG, INFO, WARN, ERROR or OFF (default from VOICEAGENT_LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd, runCmd, devicesCmd, personasCmd, voicesCmd)
}

// app is what serve and run share once configuration is loaded.
type app struct {
	file   fileConfig
	cfg    voiceagent.Config
	log    *voiceagent.Logger
	store  *business.Store
	funcs  *functions.Registry
	topics []string
}

// loadApp reads configuration and opens the business store. The credential
// is checked first so a missing key fails fast.
func loadApp() (*app, error) {
	fc, err := loadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := fc.sessionConfig()
	if err := requireCredential(cfg); err != nil {
		return nil, err
	}

	log := voiceagent.NewLoggerFromEnv()
	switch {
	case logLevel != "":
		log.SetLevel(voiceagent.ParseLogLevel(logLevel))
	case fc.LogLevel != "":
		log.SetLevel(voiceagent.ParseLogLevel(fc.LogLevel))
	}
	log.SetColor(fc.color(noColor))
	cfg.Logger = log

	store, err := business.Open(fc.businessOptions(log))
	if err != nil {
		return nil, fmt.Errorf("open business store: %w", err)
	}
	topics := fc.DocTopics
	if len(topics) == 0 && fc.DocsDir != "" {
		if topics, err = persona.DocTopics(fc.DocsDir); err != nil {
			store.Close()
			return nil, fmt.Errorf("read documentation topics: %w", err)
		}
	}
	return &app{
		file:   fc,
		cfg:    cfg,
		log:    log,
		store:  store,
		funcs:  functions.NewBuiltin(store),
		topics: topics,
	}, nil
}

// agentConfig applies a persona to the base agent settings.
func (a *app) agentConfig(industry, voice string) (voiceagent.AgentConfig, persona.Profile) {
	if industry == "" {
		industry = a.file.Industry
	}
	if voice == "" {
		voice = a.file.Voice
	}
	p := persona.Build(industry, voice, persona.Options{DocTopics: a.topics})
	agent := a.cfg.Agent
	agent.Prompt = p.Prompt
	agent.Greeting = p.Greeting
	agent.Voice = p.Voice
	return agent, p
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("business_close_failed", map[string]any{"err": err})
	}
}
