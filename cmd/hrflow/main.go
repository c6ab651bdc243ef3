package main

import (
	"log/slog"

	"github.com/pulseopti/hrflow/pkg/hrflow"
)

func main() {

	//you may do your own logger setup here or use this default one with slog
	hrflow.SetupLogger()

	if err := hrflow.Start(nil); err != nil {
		slog.Error("Engine exited with error", "error", err)
	}
}
