package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rayan4-dot/kudoai/kernel/controller"
	modelproviders "github.com/rayan4-dot/kudoai/kernel/model/providers"
	"github.com/rayan4-dot/kudoai/kernel/store"
	"github.com/rayan4-dot/kudoai/kernel/store/inmemory"
)

type scriptedEditor struct {
	lines []string
	out   io.Writer
}

func (e *scriptedEditor) ReadLine(prompt string) (string, error) {
	_ = prompt
	if len(e.lines) == 0 {
		return "", errInputEOF
	}
	line := e.lines[0]
	e.lines = e.lines[1:]
	return line, nil
}

func (e *scriptedEditor) ReadSecret(prompt string) (string, error) { return e.ReadLine(prompt) }
func (e *scriptedEditor) Output() io.Writer                        { return e.out }
func (e *scriptedEditor) Close() error                             { return nil }

type echoGenerator struct{}

func (echoGenerator) Name() string { return "echo" }

func (echoGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	return "echo: " + prompt, nil
}

func newTestConsole(t *testing.T, lines ...string) (*chatConsole, *bytes.Buffer) {
	t.Helper()
	st, err := store.New(store.Config{Medium: inmemory.New(), Logger: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	ctl, err := controller.New(controller.Config{
		Store:     st,
		Generator: echoGenerator{},
		Logger:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	console := newChatConsole(chatConsoleConfig{
		BaseContext:    context.Background(),
		Controller:     ctl,
		ModelAlias:     "echo",
		ModelConnected: true,
		ModelFactory:   modelproviders.NewFactory(),
		StoreMode:      storeModeMemory,
		AppName:        "kudoai",
		Version:        "test",
	})
	console.editor = &scriptedEditor{lines: lines, out: out}
	console.out = out
	console.printer = newTranscriptPrinter(out)
	return console, out
}

func TestConsole_SubmitAndNew(t *testing.T) {
	console, out := newTestConsole(t)

	if err := console.submitPrompt("hello there"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "echo: hello there") {
		t.Fatalf("output missing reply: %q", out.String())
	}
	if console.ctl.ActiveID() == "" {
		t.Fatal("submit should bind a session")
	}

	if _, err := console.handleSlash("/new"); err != nil {
		t.Fatal(err)
	}
	if console.ctl.ActiveID() != "" {
		t.Fatal("/new should reset to idle")
	}
}

func TestConsole_SessionsAndOpen(t *testing.T) {
	console, out := newTestConsole(t)

	if err := console.submitPrompt("first chat"); err != nil {
		t.Fatal(err)
	}
	id := console.ctl.ActiveID()
	if _, err := console.handleSlash("/new"); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if _, err := console.handleSlash("/sessions"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), id) || !strings.Contains(out.String(), "first chat") {
		t.Fatalf("sessions listing = %q", out.String())
	}

	out.Reset()
	if _, err := console.handleSlash("/open " + id); err != nil {
		t.Fatal(err)
	}
	if console.ctl.ActiveID() != id {
		t.Fatal("/open should bind the session")
	}
	if !strings.Contains(out.String(), "echo: first chat") {
		t.Fatalf("open output = %q", out.String())
	}
}

func TestConsole_OpenUnknownSession(t *testing.T) {
	console, _ := newTestConsole(t)
	if _, err := console.handleSlash("/open chat_404"); err == nil {
		t.Fatal("expected error for unknown chat id")
	}
}

func TestConsole_RenameAndDelete(t *testing.T) {
	console, out := newTestConsole(t)

	if err := console.submitPrompt("to be renamed"); err != nil {
		t.Fatal(err)
	}
	id := console.ctl.ActiveID()

	if _, err := console.handleSlash("/rename " + id + " Weekly sync notes"); err != nil {
		t.Fatal(err)
	}
	if got := console.ctl.Sessions()[id].Title; got != "Weekly sync notes" {
		t.Fatalf("title = %q", got)
	}

	// Deletion prompts for confirmation; feed "y" through the editor.
	console.editor = &scriptedEditor{lines: []string{"y"}, out: out}
	if _, err := console.handleSlash("/delete " + id); err != nil {
		t.Fatal(err)
	}
	if _, ok := console.ctl.Sessions()[id]; ok {
		t.Fatal("session still present after /delete")
	}
	if console.ctl.ActiveID() != "" {
		t.Fatal("deleting the active chat should reset to idle")
	}
}

func TestConsole_DeleteDeclined(t *testing.T) {
	console, out := newTestConsole(t)

	if err := console.submitPrompt("keep me"); err != nil {
		t.Fatal(err)
	}
	id := console.ctl.ActiveID()

	console.editor = &scriptedEditor{lines: []string{"n"}, out: out}
	if _, err := console.handleSlash("/delete " + id); err != nil {
		t.Fatal(err)
	}
	if _, ok := console.ctl.Sessions()[id]; !ok {
		t.Fatal("declined delete must keep the session")
	}
}

func TestConsole_UnknownCommand(t *testing.T) {
	console, _ := newTestConsole(t)
	if _, err := console.handleSlash("/frobnicate"); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestConsole_StatusAndHelp(t *testing.T) {
	console, out := newTestConsole(t)

	if _, err := console.handleSlash("/status"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "model:") || !strings.Contains(out.String(), "echo") {
		t.Fatalf("status output = %q", out.String())
	}

	out.Reset()
	if _, err := console.handleSlash("/help"); err != nil {
		t.Fatal(err)
	}
	for _, usage := range []string{"/open <chat-id>", "/rename <chat-id> <title>", "/connect"} {
		if !strings.Contains(out.String(), usage) {
			t.Errorf("help missing %q", usage)
		}
	}
}
