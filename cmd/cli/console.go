package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rayan4-dot/kudoai/kernel/chat"
	"github.com/rayan4-dot/kudoai/kernel/controller"
	modelproviders "github.com/rayan4-dot/kudoai/kernel/model/providers"
)

type chatConsole struct {
	baseCtx context.Context
	ctl     *controller.Controller

	appName        string
	storeMode      string
	modelAlias     string
	modelConnected bool
	modelFactory   *modelproviders.Factory
	configStore    *appConfigStore
	credentials    *credentialStore
	version        string

	editor  lineEditor
	out     io.Writer
	printer *transcriptPrinter

	commands map[string]slashCommand

	runMu           sync.Mutex
	activeRunCancel context.CancelFunc
	interruptMu     sync.Mutex
	lastInterruptAt time.Time
}

const interruptExitWindow = 2 * time.Second

type slashCommand struct {
	Usage       string
	Description string
	Handle      func(*chatConsole, []string) (bool, error)
}

type chatConsoleConfig struct {
	BaseContext     context.Context
	Controller      *controller.Controller
	ModelAlias      string
	ModelConnected  bool
	ModelFactory    *modelproviders.Factory
	ConfigStore     *appConfigStore
	CredentialStore *credentialStore
	StoreMode       string
	AppName         string
	HistoryFile     string
	Version         string
}

func newChatConsole(cfg chatConsoleConfig) *chatConsole {
	commands := []string{"help", "version", "new", "sessions", "open", "rename", "delete", "status", "models", "model", "connect", "exit"}
	editor, _ := newLineEditor(lineEditorConfig{
		HistoryFile: cfg.HistoryFile,
		Commands:    commands,
	})
	var out io.Writer = os.Stdout
	if editor != nil {
		out = editor.Output()
	}
	console := &chatConsole{
		baseCtx:        cfg.BaseContext,
		ctl:            cfg.Controller,
		appName:        cfg.AppName,
		storeMode:      cfg.StoreMode,
		modelAlias:     cfg.ModelAlias,
		modelConnected: cfg.ModelConnected,
		modelFactory:   cfg.ModelFactory,
		configStore:    cfg.ConfigStore,
		credentials:    cfg.CredentialStore,
		version:        strings.TrimSpace(cfg.Version),
		editor:         editor,
		out:            out,
		printer:        newTranscriptPrinter(out),
	}
	console.commands = map[string]slashCommand{
		"help":     {Usage: "/help", Description: "Show command help", Handle: handleHelp},
		"version":  {Usage: "/version", Description: "Show version", Handle: handleVersion},
		"exit":     {Usage: "/exit", Description: "Quit the console", Handle: handleExit},
		"new":      {Usage: "/new", Description: "Start a new chat", Handle: handleNew},
		"sessions": {Usage: "/sessions", Description: "List saved chats", Handle: handleSessions},
		"open":     {Usage: "/open <chat-id>", Description: "Open a saved chat", Handle: handleOpen},
		"rename":   {Usage: "/rename <chat-id> <title>", Description: "Rename a saved chat", Handle: handleRename},
		"delete":   {Usage: "/delete <chat-id>", Description: "Delete a saved chat", Handle: handleDelete},
		"status":   {Usage: "/status", Description: "Show session and model status", Handle: handleStatus},
		"models":   {Usage: "/models", Description: "List configured model aliases", Handle: handleModels},
		"model":    {Usage: "/model <alias>", Description: "Switch the active model", Handle: handleModel},
		"connect":  {Usage: "/connect", Description: "Add or update a model provider", Handle: handleConnect},
	}
	return console
}

func (c *chatConsole) loop() error {
	c.printf("%s interactive chat. /help for commands.\n", c.appName)
	if !c.modelConnected {
		c.printf("! no model configured; set GEMINI_API_KEY or run /connect\n")
	}
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt)
	exitCh := make(chan struct{}, 1)
	stopSignals := make(chan struct{})
	go c.handleInterruptSignals(sigCh, exitCh, stopSignals)
	defer func() {
		close(stopSignals)
		signal.Stop(sigCh)
		if c.editor != nil {
			_ = c.editor.Close()
		}
	}()
	for {
		select {
		case <-exitCh:
			c.printf("\n")
			return nil
		default:
		}
		line, err := c.editor.ReadLine(c.promptLabel())
		if err != nil {
			if errors.Is(err, errInputInterrupt) {
				if c.registerInterruptAndShouldExit() {
					c.printf("\n")
					return nil
				}
				c.printf("\n")
				continue
			}
			if errors.Is(err, errInputEOF) {
				c.printf("\n")
				return nil
			}
			return err
		}
		if line == "" {
			c.resetInterruptWindow()
			continue
		}
		c.resetInterruptWindow()
		if strings.HasPrefix(line, "/") {
			exitNow, err := c.handleSlash(line)
			if err != nil {
				fmt.Fprintf(c.out, "error: %v\n", err)
			}
			if exitNow {
				return nil
			}
			continue
		}
		if err := c.submitPrompt(line); err != nil {
			if errors.Is(err, context.Canceled) {
				c.printf("! generation interrupted\n")
				continue
			}
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
}

func (c *chatConsole) promptLabel() string {
	if id := c.ctl.ActiveID(); id != "" {
		return shortSessionID(id) + "> "
	}
	return "> "
}

func (c *chatConsole) handleInterruptSignals(sigCh <-chan os.Signal, exitCh chan<- struct{}, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-sigCh:
			if c.cancelActiveRun() {
				c.noteInterrupt()
				continue
			}
			// readline already reports Ctrl+C via errInputInterrupt; avoid
			// double-counting the same keypress as two interrupts.
			if c.usesReadlineEditor() {
				continue
			}
			if c.registerInterruptAndShouldExit() {
				select {
				case exitCh <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (c *chatConsole) handleSlash(line string) (bool, error) {
	parts := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(parts) == 0 {
		return false, nil
	}
	cmd := strings.ToLower(parts[0])
	handler, ok := c.commands[cmd]
	if !ok {
		return false, fmt.Errorf("unknown command %q, use /help", cmd)
	}
	return handler.Handle(c, parts[1:])
}

func (c *chatConsole) submitPrompt(input string) error {
	runCtx, cancel := context.WithCancel(c.baseCtx)
	c.setActiveRunCancel(cancel)
	defer func() {
		c.clearActiveRunCancel()
		cancel()
	}()

	before := len(c.ctl.Messages())
	err := c.ctl.Submit(runCtx, input)
	if errors.Is(err, controller.ErrBusy) {
		return fmt.Errorf("a reply is still pending, wait for it to finish")
	}
	if errors.Is(err, controller.ErrEmptyInput) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, msg := range c.ctl.Messages()[before:] {
		if msg.Role == chat.RoleUser {
			continue
		}
		c.printer.printMessage(msg)
	}
	return nil
}

func handleHelp(c *chatConsole, args []string) (bool, error) {
	if len(args) != 0 {
		return false, fmt.Errorf("usage: /help")
	}
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := c.commands[name]
		c.printf("  %-28s %s\n", cmd.Usage, cmd.Description)
	}
	return false, nil
}

func handleVersion(c *chatConsole, args []string) (bool, error) {
	if len(args) != 0 {
		return false, fmt.Errorf("usage: /version")
	}
	c.printf("%s\n", c.version)
	return false, nil
}

func handleExit(c *chatConsole, args []string) (bool, error) {
	if len(args) != 0 {
		return false, fmt.Errorf("usage: /exit")
	}
	return true, nil
}

func handleNew(c *chatConsole, args []string) (bool, error) {
	if len(args) != 0 {
		return false, fmt.Errorf("usage: /new")
	}
	c.ctl.NewChat()
	c.printf("started a new chat\n")
	return false, nil
}

func handleSessions(c *chatConsole, args []string) (bool, error) {
	if len(args) != 0 {
		return false, fmt.Errorf("usage: /sessions")
	}
	sessions := c.ctl.Sessions()
	if len(sessions) == 0 {
		c.printf("no saved chats\n")
		return false, nil
	}
	c.printer.printSessionList(sessions, c.ctl.ActiveID())
	return false, nil
}

func handleOpen(c *chatConsole, args []string) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("usage: /open <chat-id>")
	}
	id := strings.TrimSpace(args[0])
	if _, ok := c.ctl.Sessions()[id]; !ok {
		return false, fmt.Errorf("unknown chat %q, use /sessions", id)
	}
	messages := c.ctl.SelectChat(id)
	c.printf("opened %s (%d messages)\n", id, len(messages))
	for _, msg := range messages {
		c.printer.printMessage(msg)
	}
	return false, nil
}

func handleRename(c *chatConsole, args []string) (bool, error) {
	if len(args) < 2 {
		return false, fmt.Errorf("usage: /rename <chat-id> <title>")
	}
	id := strings.TrimSpace(args[0])
	title := strings.TrimSpace(strings.Join(args[1:], " "))
	if _, ok := c.ctl.Sessions()[id]; !ok {
		return false, fmt.Errorf("unknown chat %q, use /sessions", id)
	}
	if err := c.ctl.RenameChat(id, title); err != nil {
		if errors.Is(err, controller.ErrEmptyTitle) {
			return false, fmt.Errorf("title must not be empty")
		}
		return false, err
	}
	c.printf("renamed %s to %q\n", id, title)
	return false, nil
}

func handleDelete(c *chatConsole, args []string) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("usage: /delete <chat-id>")
	}
	id := strings.TrimSpace(args[0])
	sess, ok := c.ctl.Sessions()[id]
	if !ok {
		return false, fmt.Errorf("unknown chat %q, use /sessions", id)
	}
	answer, err := c.editor.ReadLine(fmt.Sprintf("delete %q? [y/N]: ", sess.Title))
	if err != nil {
		return false, nil
	}
	if !strings.EqualFold(strings.TrimSpace(answer), "y") {
		c.printf("cancelled\n")
		return false, nil
	}
	wasActive := c.ctl.ActiveID() == id
	c.ctl.DeleteChat(id)
	c.printf("deleted %s\n", id)
	if wasActive {
		c.printf("started a new chat\n")
	}
	return false, nil
}

func handleStatus(c *chatConsole, args []string) (bool, error) {
	if len(args) != 0 {
		return false, fmt.Errorf("usage: /status")
	}
	active := c.ctl.ActiveID()
	if active == "" {
		active = "-"
	}
	modelLabel := c.modelAlias
	if !c.modelConnected {
		modelLabel += " (not connected)"
	}
	c.printf("  app:      %s\n", c.appName)
	c.printf("  store:    %s\n", c.storeMode)
	c.printf("  model:    %s\n", modelLabel)
	c.printf("  chat:     %s\n", active)
	c.printf("  messages: %d\n", len(c.ctl.Messages()))
	c.printf("  pending:  %v\n", c.ctl.Awaiting())
	return false, nil
}

func handleModels(c *chatConsole, args []string) (bool, error) {
	if len(args) != 0 {
		return false, fmt.Errorf("usage: /models")
	}
	aliases := c.modelFactory.ListAliases()
	if len(aliases) == 0 {
		c.printf("no models configured, use /connect\n")
		return false, nil
	}
	for _, alias := range aliases {
		marker := " "
		if alias == c.modelAlias {
			marker = "*"
		}
		c.printf("  %s %s\n", marker, alias)
	}
	return false, nil
}

func handleModel(c *chatConsole, args []string) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("usage: /model <alias>")
	}
	alias := strings.ToLower(strings.TrimSpace(args[0]))
	generator, err := c.modelFactory.NewByAlias(alias)
	if err != nil {
		return false, err
	}
	c.ctl.SetGenerator(generator)
	c.modelAlias = alias
	c.modelConnected = true
	if c.configStore != nil {
		if err := c.configStore.SetDefaultModel(alias); err != nil {
			fmt.Fprintf(c.out, "warn: update default model failed: %v\n", err)
		}
	}
	c.printf("switched to %s\n", alias)
	return false, nil
}

func (c *chatConsole) setActiveRunCancel(cancel context.CancelFunc) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.activeRunCancel = cancel
}

func (c *chatConsole) clearActiveRunCancel() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.activeRunCancel = nil
}

func (c *chatConsole) cancelActiveRun() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.activeRunCancel == nil {
		return false
	}
	c.activeRunCancel()
	c.activeRunCancel = nil
	return true
}

func (c *chatConsole) usesReadlineEditor() bool {
	_, ok := c.editor.(*readlineEditor)
	return ok
}

func (c *chatConsole) noteInterrupt() {
	c.interruptMu.Lock()
	defer c.interruptMu.Unlock()
	c.lastInterruptAt = time.Now()
}

func (c *chatConsole) registerInterruptAndShouldExit() bool {
	c.interruptMu.Lock()
	defer c.interruptMu.Unlock()
	now := time.Now()
	if !c.lastInterruptAt.IsZero() && now.Sub(c.lastInterruptAt) <= interruptExitWindow {
		return true
	}
	c.lastInterruptAt = now
	c.printf("press Ctrl+C again to exit\n")
	return false
}

func (c *chatConsole) resetInterruptWindow() {
	c.interruptMu.Lock()
	defer c.interruptMu.Unlock()
	c.lastInterruptAt = time.Time{}
}

func (c *chatConsole) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
