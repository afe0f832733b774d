// Package guard forces test mode when imported, keeping package tests from
// accidentally starting real runtimes.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("GATEHOUSE_TEST_MODE") == "" {
			_ = os.Setenv("GATEHOUSE_TEST_MODE", "1")
		}
	})
}
