// SPDX-License-Identifier: ISC

package background_test

import (
	"testing"
	"time"

	"github.com/shardpow/dsnode/background"
)

const (
	finalCount1 = 987654321
	finalCount2 = 897645312
)

func TestBackground(t *testing.T) {

	result1 := 0
	result2 := 0

	proc1 := func(args interface{}, shutdown <-chan bool, done chan<- bool) {
		<-shutdown
		result1 = finalCount1
		done <- true
	}

	proc2 := func(args interface{}, shutdown <-chan bool, done chan<- bool) {
		<-shutdown
		result2 = finalCount2
		done <- true
	}

	processes := background.Processes{proc1, proc2}

	p := background.Start(processes, t)
	time.Sleep(50 * time.Millisecond)
	background.Stop(p)

	if finalCount1 != result1 {
		t.Fatalf("stop failed: final value expected: %d  actual: %d", finalCount1, result1)
	}
	if finalCount2 != result2 {
		t.Fatalf("stop failed: final value expected: %d  actual: %d", finalCount2, result2)
	}
}
