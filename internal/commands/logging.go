package commands

import (
	"strings"

	"github.com/goliatone/go-sitegen/internal/logging"
	"github.com/goliatone/go-sitegen/pkg/interfaces"
)

const commandModuleRoot = "sitegen.commands"

// CommandLogger returns a module-scoped logger for command handlers, enriched
// with consistent structured fields so command executions are easy to trace.
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := strings.TrimSpace(module)
	if name == "" {
		name = "core"
	}
	logger := logging.ModuleLogger(provider, commandModuleRoot+"."+name)
	return logging.WithFields(logger, map[string]any{
		"component":      "command",
		"command_module": name,
	})
}
