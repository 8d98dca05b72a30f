package cli

import (
	"log/slog"

	"github.com/sinch/sinch-quickstart/internal/constants"
)

// SetVerbosity sets the logging level for the default logger based on the verbose flag count.
//
// This function has the same behaviors as slog.SetLogLoggerLevel.
func SetVerbosity(level int) {
	slog.SetLogLoggerLevel(getLevel(level))
}

func getLevel(level int) slog.Level {
	if level <= 0 {
		return constants.DefaultLogLevel
	}
	return slog.LevelDebug
}
