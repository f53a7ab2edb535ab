package main

import (
	"context"

	"finscrape/cmd/finscrape/commands"
	"finscrape/lib/telemetry"
	"finscrape/lib/util/serviceutil"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "finscrape")
	telemetry.InitSlog(true)
	telemetry.InstrumentPerfStats(context.Background())
	commands.ExecuteContext(serviceutil.SignalContext())
}
