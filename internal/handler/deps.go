package handler

import (
	"meetsignal/internal/app/meeting"
	"meetsignal/internal/app/signal"
	"meetsignal/internal/configs"
)

// AppDeps is everything the HTTP layer needs from the rest of the process.
type AppDeps struct {
	Hub       *signal.Hub
	Config    *configs.AppConfig
	Directory meeting.Directory
}
