package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand_Tree(t *testing.T) {
	root := newRootCommand()

	tests := []struct {
		path []string
		use  string
	}{
		{[]string{"tables", "create"}, "create"},
		{[]string{"stream"}, "stream"},
		{[]string{"user", "rename"}, "rename"},
		{[]string{"user", "repair"}, "repair"},
		{[]string{"message", "admin"}, "admin"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.path, " "), func(t *testing.T) {
			cmd, _, err := root.Find(tt.path)
			if err != nil {
				t.Fatalf("Find failed: %v", err)
			}
			if cmd.Name() != tt.use {
				t.Errorf("expected %s, got %s", tt.use, cmd.Name())
			}
		})
	}

	for _, flag := range []string{"config", "aws-region", "table-prefix", "search-provider", "queue-url"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("expected persistent flag %s", flag)
		}
	}
}

func TestRootCommand_ArgsValidated(t *testing.T) {
	tests := [][]string{
		{"user", "rename", "only-one"},
		{"user", "repair"},
		{"message", "admin", "u1"},
		{"tables", "create", "extra"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			root := newRootCommand()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetErr(&out)
			root.SetArgs(args)
			if err := root.Execute(); err == nil {
				t.Error("expected argument error")
			}
		})
	}
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"tables", "create", "--page-size", "0"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "page_size") {
		t.Errorf("expected page size validation error, got %v", err)
	}
}

func TestStreamCommand_RequiresStreamRenames(t *testing.T) {
	t.Setenv("PROJECTIDEAS_METRICS_ENABLED", "false")
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"stream", "--aws-endpoint", "http://localhost:8000"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "stream_renames") {
		t.Errorf("expected stream_renames error, got %v", err)
	}
}
