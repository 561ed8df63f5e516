package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/enesunal-m/voiceagent"
	"github.com/enesunal-m/voiceagent/portaudio"
)

var (
	runIndustry     string
	runVoice        string
	runInputDevice  int
	runOutputDevice int
	runRecord       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one session on local audio devices",
	Long: `Run one conversation on the local microphone and speaker until the
agent ends the call or the process is interrupted.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runIndustry, "industry", "", "persona industry (see 'personas')")
	runCmd.Flags().StringVar(&runVoice, "voice", "", "voice model (see 'voices')")
	runCmd.Flags().IntVar(&runInputDevice, "input-device", -1, "input device index (default: system default)")
	runCmd.Flags().IntVar(&runOutputDevice, "output-device", -1, "output device index (default: system default)")
	runCmd.Flags().StringVar(&runRecord, "record", "", "write the agent's speech to this WAV file")
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize audio: %w", err)
	}
	defer portaudio.Terminate()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agent, profile := a.agentConfig(runIndustry, runVoice)
	a.log.Info("persona", map[string]any{"company": profile.Company, "voice": profile.VoiceName})

	rec := newRecorder(a.cfg.Audio.OutputSampleRate)
	opts := voiceagent.StartOptions{Agent: &agent}
	if runInputDevice >= 0 {
		opts.InputDevice = &runInputDevice
	}
	if runOutputDevice >= 0 {
		opts.OutputDevice = &runOutputDevice
	}
	if runRecord != "" {
		opts.OutputSink = rec.add
	}

	ctrl := voiceagent.NewController(a.cfg, a.funcs, portaudio.NewDriver(), nil)
	if err := ctrl.Start(ctx, opts); err != nil {
		return err
	}
	sess := ctrl.Current()
	if sess == nil {
		return voiceagent.ErrNoSession
	}

	select {
	case <-sess.Done():
	case <-ctx.Done():
		a.log.Info("interrupted", nil)
	}
	err = ctrl.Stop()
	if err == nil {
		err = sess.Err()
	}

	if runRecord != "" {
		if werr := rec.save(runRecord); werr != nil {
			a.log.Error("record_failed", map[string]any{"path": runRecord, "err": werr})
		} else {
			a.log.Info("recorded", map[string]any{"path": runRecord, "duration": rec.duration().String()})
		}
	}
	return err
}

// recorder accumulates rendered agent audio.
type recorder struct {
	rate int

	mu  sync.Mutex
	pcm []byte
}

// newRecorder reserves room for a minute of audio at rate.
func newRecorder(rate int) *recorder {
	return &recorder{rate: rate, pcm: make([]byte, 0, voiceagent.PCM16BytesFor(time.Minute, rate))}
}

func (r *recorder) add(frame []byte, _ int) error {
	r.mu.Lock()
	r.pcm = append(r.pcm, frame...)
	r.mu.Unlock()
	return nil
}

func (r *recorder) duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return voiceagent.FrameDuration(r.pcm, r.rate)
}

func (r *recorder) save(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return os.WriteFile(path, voiceagent.WAVFromPCM16Mono(r.pcm, r.rate), 0o644)
}
