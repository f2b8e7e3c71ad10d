package cli

import (
	"encoding/json"
	"testing"
)

func TestKebab(t *testing.T) {
	tests := map[string]string{
		"Run":                "run",
		"NoImage":            "no-image",
		"NoDefaultStopwords": "no-default-stopwords",
		"JSON":               "json",
		"HelpJSON":           "help-json",
		"MetricsFile":        "metrics-file",
	}
	for in, want := range tests {
		if got := kebab(in); got != want {
			t.Errorf("kebab(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGenerateHelpJSON(t *testing.T) {
	var c CLI
	data, err := GenerateHelpJSON(&c)
	if err != nil {
		t.Fatalf("GenerateHelpJSON() error = %v", err)
	}

	var schema HelpSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if schema.Name != "mailcloud" || schema.Version != Version {
		t.Errorf("Name/Version = %q/%q", schema.Name, schema.Version)
	}

	commands := make(map[string]CommandSchema)
	for _, cmd := range schema.Commands {
		commands[cmd.Name] = cmd
	}
	for _, name := range []string{"run", "labels", "auth", "config", "version"} {
		if _, ok := commands[name]; !ok {
			t.Errorf("command %q missing", name)
		}
	}

	flags := make(map[string]FlagSchema)
	for _, f := range commands["run"].Flags {
		flags[f.Name] = f
	}
	if f, ok := flags["--labels"]; !ok || f.Short != "-l" || f.Type != "[]string" {
		t.Errorf("--labels = %+v", f)
	}
	if f, ok := flags["--no-image"]; !ok || f.Type != "bool" {
		t.Errorf("--no-image = %+v", f)
	}
	if f, ok := flags["--seed"]; !ok || f.Type != "uint" {
		t.Errorf("--seed = %+v", f)
	}
	for name, f := range flags {
		if f.Required {
			t.Errorf("%s should not be required", name)
		}
	}
	if len(commands["run"].Examples) == 0 {
		t.Error("run has no examples")
	}

	var set *CommandSchema
	for i, sub := range commands["config"].Subcommands {
		if sub.Name == "config set" {
			set = &commands["config"].Subcommands[i]
		}
	}
	if set == nil {
		t.Fatal("config set missing")
	}
	if len(set.Args) != 2 || set.Args[0].Name != "key" || !set.Args[0].Required {
		t.Errorf("config set args = %+v", set.Args)
	}

	global := make(map[string]bool)
	for _, f := range schema.GlobalFlags {
		global[f.Name] = true
	}
	for _, name := range []string{"--json", "--help-json", "--config", "--verbose", "--quiet", "--log-level"} {
		if !global[name] {
			t.Errorf("global flag %s missing", name)
		}
	}
}
