// Package voiceagent connects a microphone and a speaker to a Deepgram-style
// voice agent over a single WebSocket.
//
// A Session dials the agent endpoint, sends one settings message and then
// runs three duties until the conversation ends: a sender that streams
// 48 kHz PCM16 capture frames as binary messages, a receiver that plays the
// agent's 16 kHz audio and dispatches JSON control events, and an optional
// keepalive. Function calls requested by the agent are served from a
// functions.Registry; the end_call function drives a graceful farewell that
// lets the goodbye finish playing before the connection closes.
//
// Basic Usage:
//
//	cfg := voiceagent.ConfigFromEnv()
//	p := persona.Build("healthcare", "aura-2-thalia-en", persona.Options{})
//	cfg.Agent.Prompt, cfg.Agent.Greeting, cfg.Agent.Voice = p.Prompt, p.Greeting, p.Voice
//
//	capture := voiceagent.NewRemoteCapture(cfg.Audio, cfg.CaptureEnqueueTimeout, nil)
//	sess, err := voiceagent.NewSession(cfg, voiceagent.SessionOptions{
//		Capture:   capture,
//		Functions: registry,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	go sess.Run(ctx)
//	defer sess.Stop()
//
// A Controller keeps at most one session alive at a time and is what the
// browser bridge and the command line drive.
package voiceagent
