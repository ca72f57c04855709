package app

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
		// engine.io-client-go starts signal/interval goroutines at package init.
		goleak.IgnoreCurrent(),
	)
}
