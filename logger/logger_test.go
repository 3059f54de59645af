package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLoggerFunctions(t *testing.T) {
	Init("invalid") // should default to info
	if log == nil {
		t.Fatal("log not initialized")
	}
	if log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level, got %s", log.GetLevel())
	}
	// Avoid os.Exit on Fatal
	log.ExitFunc = func(int) {}

	Debug("debug")
	Info("info")
	Warn("warn")
	Error("error")
	Debugf("%s", "debugf")
	Infof("%s", "infof")
	Warnf("%s", "warnf")
	Errorf("%s", "errorf")
	Fatal("fatal")
	Fatalf("%s", "fatalf")
	WithFields(logrus.Fields{"path": "a.jpg"}).Info("fields")
}

func TestInitDebugLevel(t *testing.T) {
	Init("debug")
	if !IsDebug() {
		t.Fatal("expected debug level enabled")
	}
	Init("error")
	if IsDebug() {
		t.Fatal("expected debug level disabled")
	}
}
