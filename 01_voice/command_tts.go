package voice

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandTTS generates speech with a local engine via shell.
// Command is either "edge-tts", a Python script, or any binary accepting
//   --text "..." --output path/to/file.mp3
type CommandTTS struct {
	Command   string
	EdgeVoice string
	TempDir   string
}

// NewCommandTTS resolves the engine: an explicit command wins, then edge-tts on PATH
func NewCommandTTS(command, edgeVoice string) (*CommandTTS, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		if _, err := exec.LookPath("edge-tts"); err != nil {
			return nil, fmt.Errorf("no TTS engine found. Set TTS_COMMAND or install edge-tts: pip install edge-tts")
		}
		command = "edge-tts"
	}
	return &CommandTTS{Command: command, EdgeVoice: edgeVoice}, nil
}

// Speak runs the engine once and returns the bytes it wrote
func (c *CommandTTS) Speak(ctx context.Context, text string) ([]byte, error) {
	f, err := os.CreateTemp(c.TempDir, "tts-*.mp3")
	if err != nil {
		return nil, err
	}
	outFile := f.Name()
	f.Close()
	defer os.Remove(outFile)

	var cmd *exec.Cmd
	switch {
	case c.Command == "edge-tts" || filepath.Base(c.Command) == "edge-tts":
		cmd = exec.CommandContext(ctx,
			c.Command,
			"--voice", c.EdgeVoice,
			"--text", text,
			"--write-media", outFile,
		)

	case strings.HasSuffix(c.Command, ".py"):
		cmd = exec.CommandContext(ctx,
			"python3", c.Command,
			"--text", text,
			"--output", outFile,
		)

	default:
		cmd = exec.CommandContext(ctx,
			c.Command,
			"--text", text,
			"--output", outFile,
		)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", filepath.Base(c.Command), err, strings.TrimSpace(stderr.String()))
	}
	return os.ReadFile(outFile)
}
