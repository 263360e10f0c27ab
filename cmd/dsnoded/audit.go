// SPDX-License-Identifier: ISC

package main

import (
	"encoding/json"
	"log"
	"path/filepath"
	"time"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/shardpow/dsnode/messagebus"
)

// auditEvent - the on-disk shape of a drained messagebus.Event
type auditEvent struct {
	Time string `json:"time"`
	Kind int    `json:"kind"`
	From string `json:"from"`
	Item string `json:"item"`
}

// startAuditLog - drain the internal event bus into a rotated JSON
// lines file for later inspection; lumberjack owns the rotation, the
// bus itself never blocks on this consumer falling behind.
func startAuditLog(directory, file string, maxSizeMB, maxBackups int) func() {
	sink := &lumberjack.Logger{
		Filename:   filepath.Join(directory, file),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}
	writer := log.New(sink, "", 0)

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case ev := <-messagebus.Chan():
				record := auditEvent{
					Time: time.Now().Format(time.RFC3339),
					Kind: int(ev.Kind),
					From: ev.From,
					Item: formatItem(ev.Item),
				}
				if encoded, err := json.Marshal(record); err == nil {
					writer.Println(string(encoded))
				}
			case <-stop:
				sink.Close()
				return
			}
		}
	}()
	return func() { close(stop) }
}

func formatItem(item interface{}) string {
	encoded, err := json.Marshal(item)
	if err != nil {
		return ""
	}
	return string(encoded)
}
