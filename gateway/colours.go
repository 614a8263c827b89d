package gateway

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

const (
	Green   = "\033[32m"
	Blue    = "\033[34m"
	Cyan    = "\033[36m"
	Yellow  = "\033[33m"
	Magenta = "\033[35m"
	Red     = "\033[31m"
	Gray    = "\033[90m" // Bright black, often appears as gray

	ResetColor = "\033[0m" // Reset to default color
)

var methodColors = map[string]string{
	"GET":    Green,
	"POST":   Blue,
	"PUT":    Cyan,
	"DELETE": Yellow,
	"PATCH":  Magenta,
}

func logRequest(method, path string, status int) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	displayStatus := fmt.Sprintf("%d", status)
	if status >= 400 || status == 0 {
		displayStatus = Red + displayStatus + ResetColor
	}
	log.Debug().Msgf("[%-19s] %s %s", displayMethod, path, displayStatus)
}
