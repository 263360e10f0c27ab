// SPDX-License-Identifier: ISC

package dsstate_test

import (
	"os"
	"testing"

	"github.com/bitmark-inc/logger"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "dsstate-logtest")
	if err != nil {
		panic(err)
	}

	if err := logger.Initialise(logger.Configuration{
		Directory: dir,
		File:      "test.log",
		Size:      1048576,
		Count:     10,
	}); err != nil {
		os.RemoveAll(dir)
		panic(err)
	}

	code := m.Run()

	logger.Finalise()
	os.RemoveAll(dir)
	os.Exit(code)
}
