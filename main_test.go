package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"serve", "render", "captions"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestCaptionsCommand(t *testing.T) {
	dir := t.TempDir()
	words := filepath.Join(dir, "words.json")
	data := `[{"word":"Hi","start":0,"end":0.4},{"word":"there,","start":0.5,"end":0.9},{"word":"friend!","start":1.0,"end":1.6}]`
	if err := os.WriteFile(words, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	assFile := filepath.Join(dir, "out.ass")

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"captions", "--config", filepath.Join(dir, "none.yaml"), "--words", words, "--ass", assFile})
	if err := root.Execute(); err != nil {
		t.Fatalf("captions: %v", err)
	}

	got := out.String()
	for _, want := range []string{"Hi there,", "friend!", "0:00:01.60", "2 event(s) written"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	script, err := os.ReadFile(assFile)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(script), "Dialogue:") != 2 {
		t.Errorf("script has wrong event count:\n%s", script)
	}
}

func TestReadWordsWhisperFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whisper.json")
	data := `{"segments":[{"words":[{"word":" Hello","start":0,"end":0.5}]}]}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	words, err := readWords(path)
	if err != nil {
		t.Fatalf("readWords: %v", err)
	}
	if len(words) != 1 || words[0].Text != "Hello" {
		t.Errorf("words = %+v", words)
	}
}
