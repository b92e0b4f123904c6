package models

import "strings"

// CommandType enumerates supported operator command categories.
type CommandType string

const (
	CommandStart     CommandType = "start"
	CommandInventory CommandType = "inventory"
	CommandLowStock  CommandType = "low_stock"
	CommandToday     CommandType = "today"
	CommandReport    CommandType = "report"
	CommandHelp      CommandType = "help"
	CommandUpload    CommandType = "upload"
	CommandBuy       CommandType = "buy"
	CommandUnknown   CommandType = "unknown"
)

var commandKeywords = map[CommandType][]string{
	CommandStart:     {"start"},
	CommandInventory: {"inventory", "inv", "stock", "all", "show all"},
	CommandLowStock:  {"low", "lowstock", "low stock", "shortage", "kam"},
	CommandToday:     {"today", "aaj", "daily", "transactions"},
	CommandReport:    {"report", "full report", "generate report"},
	CommandHelp:      {"help", "madad", "commands", "?"},
	CommandUpload:    {"upload", "import", "excel"},
	CommandBuy:       {"buy", "purchase", "restock"},
}

// Command represents a parsed operator instruction extracted from chat text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
	// Body holds everything after the first line, used by multi-line commands such as buy.
	Body string
}

// ParseCommand derives a Command instance from free-form text messages. Whole-message
// keywords match first; otherwise only commands that take arguments (buy, upload) are
// recognized from the first token, so sale lines starting with a keyword stay sales.
func ParseCommand(message string) Command {
	cmd := Command{Type: CommandUnknown, Raw: message}

	normalized := strings.TrimSpace(strings.ToLower(message))
	if normalized == "" {
		return cmd
	}

	if t, ok := lookupKeyword(strings.TrimPrefix(normalized, "/")); ok {
		cmd.Type = t
		return cmd
	}

	head, body, _ := strings.Cut(strings.TrimSpace(message), "\n")
	tokens := strings.Fields(head)
	if len(tokens) == 0 {
		return cmd
	}

	t, ok := lookupKeyword(strings.TrimPrefix(strings.ToLower(tokens[0]), "/"))
	if !ok || (t != CommandBuy && t != CommandUpload) {
		return cmd
	}
	cmd.Type = t
	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}
	cmd.Body = strings.TrimSpace(body)
	return cmd
}

func lookupKeyword(word string) (CommandType, bool) {
	for t, keywords := range commandKeywords {
		for _, kw := range keywords {
			if word == kw {
				return t, true
			}
		}
	}
	return CommandUnknown, false
}
