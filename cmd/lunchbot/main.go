package main

import (
	"lunchbot/cmd/lunchbot/commands"
	"lunchbot/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
