// Package testing puts a test binary into Odyssey test mode. Blank-import it
// from tests that exercise entrypoints so no Redis, CRM or Gotenberg
// connection is attempted.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

// loopbackDefaults point every outbound dependency at a port nothing listens on.
var loopbackDefaults = map[string]string{
	"CRM_BASE_URL":  "http://127.0.0.1:0/api",
	"GOTENBERG_URL": "http://127.0.0.1:0",
	"PDF_RENDERER":  "fpdf",
	"REDIS_ADDR":    "127.0.0.1:0",
}

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("ODYSSEY_TEST_MODE", "1")
		for key, value := range loopbackDefaults {
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
