package models

import "strings"

// CommandType enumerates supported chat command categories.
type CommandType string

const (
	CommandStock   CommandType = "stok"
	CommandCheck   CommandType = "cek"
	CommandReport  CommandType = "laporan"
	CommandHelp    CommandType = "bantuan"
	CommandUnknown CommandType = "unknown"
)

var commandAliases = map[string]CommandType{
	"stok":    CommandStock,
	"stock":   CommandStock,
	"cek":     CommandCheck,
	"check":   CommandCheck,
	"laporan": CommandReport,
	"report":  CommandReport,
	"bantuan": CommandHelp,
	"help":    CommandHelp,
}

// Command represents a parsed instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages.
func ParseCommand(message string) Command {
	normalized := strings.TrimSpace(strings.ToLower(message))

	tokens := strings.Fields(normalized)
	cmd := Command{Raw: message, Type: CommandUnknown}

	if len(tokens) == 0 {
		return cmd
	}

	if typ, ok := commandAliases[strings.TrimPrefix(tokens[0], "/")]; ok {
		cmd.Type = typ
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
