package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("DISTRICTHQ_TEST_MODE") == "" {
			_ = os.Setenv("DISTRICTHQ_TEST_MODE", "1")
		}
	})
}
