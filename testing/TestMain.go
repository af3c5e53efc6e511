package testing

import (
	"os"
	"sync"
	stdtesting "testing"
	"time"
)

var once sync.Once

// ensureTestMode pins process-wide state so date arithmetic in tests does not
// depend on the host timezone.
func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("LEDGER_TEST_MODE", "1")
		if os.Getenv("LEDGER_BASE_CURRENCY") == "" {
			_ = os.Setenv("LEDGER_BASE_CURRENCY", "KES")
		}
		time.Local = time.UTC
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
