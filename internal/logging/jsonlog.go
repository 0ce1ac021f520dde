package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

type entry struct {
	Level   string         `json:"level"`
	Time    string         `json:"time"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func Log(level, msg string, fields map[string]any) {
	e := entry{Level: level, Time: time.Now().UTC().Format(time.RFC3339Nano), Message: msg, Fields: fields}
	b, _ := json.Marshal(e)
	fmt.Fprintln(os.Stdout, string(b))
}

func Info(msg string, fields map[string]any)  { Log("info", msg, fields) }
func Error(msg string, fields map[string]any) { Log("error", msg, fields) }

var once sync.Map

// ErrorOnce logs at most one error per key for the process lifetime.
// Used by the reconciler so a failing tick does not spam the log.
func ErrorOnce(key, msg string, fields map[string]any) {
	if _, loaded := once.LoadOrStore(key, struct{}{}); loaded {
		return
	}
	Error(msg, fields)
}

// ResetOnce clears the once-per-key state. Test helper and sign-in hook.
func ResetOnce() { once = sync.Map{} }
