// Command voice-agent runs the voice agent bridge.
//
// Usage:
//
//	voice-agent [flags] <command>
//
// Commands:
//
//	serve     - browser control endpoint with optional local audio
//	run       - headless session on local devices
//	devices   - list audio devices
//	personas  - list industries
//	voices    - list voice models
//
// Configuration:
//
//	DEEPGRAM_API_KEY is required by serve and run. Settings may also be read
//	from a YAML file given with --config.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
