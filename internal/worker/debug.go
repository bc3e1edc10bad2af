package worker

import (
	"log"
	"os"
)

var debugEnabled = os.Getenv("VITALINK_WORKER_DEBUG") != ""

func debugLog(format string, args ...interface{}) {
	if debugEnabled {
		log.Printf(format, args...)
	}
}
