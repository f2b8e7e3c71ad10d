package cli

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

type HelpSchema struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Commands    []CommandSchema `json:"commands"`
	GlobalFlags []FlagSchema    `json:"global_flags"`
}

type CommandSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Args        []ArgSchema     `json:"args,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
	Examples    []string        `json:"examples,omitempty"`
}

type FlagSchema struct {
	Name        string `json:"name"`
	Short       string `json:"short,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description"`
}

type ArgSchema struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

const description = "Word frequency report and word cloud from labeled mail"

var examples = map[string][]string{
	"run": {
		"mailcloud run",
		"mailcloud run --labels jobs-2019-rejections --top 20",
		"mailcloud run --provider imap --workers 8 --json",
		"mailcloud run --query 'from:recruiter@example.com' --no-image",
	},
	"labels":          {"mailcloud labels", "mailcloud labels --provider imap --json"},
	"auth":            {"mailcloud auth", "mailcloud auth --provider imap", "mailcloud auth --logout"},
	"cache info":      {"mailcloud cache info", "mailcloud cache info --json"},
	"cache clear":     {"mailcloud cache clear"},
	"config init":     {"mailcloud config init"},
	"config show":     {"mailcloud config show", "mailcloud config show --json"},
	"config set":      {"mailcloud config set labels jobs-2019-rejections", "mailcloud config set image.width 1200", "mailcloud config set bridge.email user@protonmail.com"},
	"config validate": {"mailcloud config validate"},
	"config doctor":   {"mailcloud config doctor --json"},
	"version":         {"mailcloud version", "mailcloud version --json"},
}

func GenerateHelpJSON(cli *CLI) ([]byte, error) {
	schema := HelpSchema{
		Name:        "mailcloud",
		Version:     Version,
		Description: description,
		GlobalFlags: extractFlags(reflect.TypeOf(cli.Globals)),
		Commands:    extractCommands(reflect.TypeOf(*cli), ""),
	}

	return json.MarshalIndent(schema, "", "  ")
}

// extractCommands walks the kong command tree: every field tagged cmd is a
// command, its own cmd fields are subcommands.
func extractCommands(t reflect.Type, parent string) []CommandSchema {
	var commands []CommandSchema
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if _, ok := field.Tag.Lookup("cmd"); !ok {
			continue
		}

		name := kebab(field.Name)
		if parent != "" {
			name = parent + " " + name
		}
		commands = append(commands, CommandSchema{
			Name:        name,
			Description: field.Tag.Get("help"),
			Flags:       extractFlags(field.Type),
			Args:        extractArgs(field.Type),
			Subcommands: extractCommands(field.Type, name),
			Examples:    examples[name],
		})
	}
	return commands
}

// extractFlags reads flag information from kong struct tags.
func extractFlags(t reflect.Type) []FlagSchema {
	var flags []FlagSchema

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Anonymous || !field.IsExported() {
			continue
		}
		if _, isCmd := field.Tag.Lookup("cmd"); isCmd {
			continue
		}
		if _, isArg := field.Tag.Lookup("arg"); isArg {
			continue
		}

		helpTag := field.Tag.Get("help")
		if helpTag == "" {
			continue
		}

		flagName := kebab(field.Name)
		if nameTag := field.Tag.Get("name"); nameTag != "" {
			flagName = nameTag
		}
		_, required := field.Tag.Lookup("required")

		flag := FlagSchema{
			Name:        "--" + flagName,
			Type:        getTypeString(field.Type),
			Description: helpTag,
			Default:     field.Tag.Get("default"),
			Required:    required,
		}

		if shortTag := field.Tag.Get("short"); shortTag != "" {
			flag.Short = "-" + shortTag
		}

		flags = append(flags, flag)
	}

	return flags
}

func extractArgs(t reflect.Type) []ArgSchema {
	var args []ArgSchema
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if _, ok := field.Tag.Lookup("arg"); !ok {
			continue
		}
		_, optional := field.Tag.Lookup("optional")
		args = append(args, ArgSchema{
			Name:        strings.ToLower(field.Name),
			Type:        getTypeString(field.Type),
			Required:    !optional,
			Description: field.Tag.Get("help"),
		})
	}
	return args
}

// kebab converts a Go field name to kong's default flag name: NoImage
// becomes no-image.
func kebab(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('-')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func getTypeString(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "uint"
	case reflect.Bool:
		return "bool"
	case reflect.Slice:
		return "[]" + getTypeString(t.Elem())
	default:
		return t.String()
	}
}

func PrintHelpJSON(cli *CLI) error {
	data, err := GenerateHelpJSON(cli)
	if err != nil {
		return fmt.Errorf("failed to generate help JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
