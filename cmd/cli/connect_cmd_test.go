package main

import (
	"testing"
)

func TestHandleConnect_RegistersGeminiProvider(t *testing.T) {
	console, _ := newTestConsole(t)
	console.editor = &scriptedEditor{lines: []string{
		"1",          // provider: gemini
		"",           // base_url: accept default
		"",           // model: accept default
		"",           // timeout_seconds: accept default
		"secret-key", // api_key
	}, out: console.out}
	console.modelAlias = ""
	console.modelConnected = false

	if _, err := handleConnect(console, nil); err != nil {
		t.Fatal(err)
	}
	if console.modelAlias != "gemini/gemini-1.5-pro" {
		t.Fatalf("alias = %q", console.modelAlias)
	}
	if !console.modelConnected {
		t.Fatal("console should report a connected model")
	}
	aliases := console.modelFactory.ListAliases()
	if len(aliases) != 1 || aliases[0] != "gemini/gemini-1.5-pro" {
		t.Fatalf("factory aliases = %v", aliases)
	}
}

func TestHandleConnect_RequiresAPIKey(t *testing.T) {
	console, _ := newTestConsole(t)
	console.editor = &scriptedEditor{lines: []string{
		"1", // provider: gemini
		"",  // base_url
		"",  // model
		"",  // timeout_seconds
		"",  // api_key left empty
	}, out: console.out}
	if _, err := handleConnect(console, nil); err == nil {
		t.Fatal("expected error when api_key is empty")
	}
}

func TestHandleConnect_RejectsOutOfRangeProvider(t *testing.T) {
	console, _ := newTestConsole(t)
	console.editor = &scriptedEditor{lines: []string{"9"}, out: console.out}
	if _, err := handleConnect(console, nil); err == nil {
		t.Fatal("expected error for out-of-range provider pick")
	}
}
