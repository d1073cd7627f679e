package log

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, name string) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	return ForService(name), buf
}

func TestPrefixInfo(t *testing.T) {
	SetGlobalDebug(false)

	const name = "prefix_service_test"
	l, buf := newTestLogger(t, name)

	l.Infof("hello %s", "world")
	out := buf.String()

	if !strings.Contains(out, "INFO ["+name+"]") {
		t.Fatalf("expected level and prefix in output, got: %q", out)
	}
	if !strings.Contains(out, "hello world") {
		t.Fatalf("expected message in output, got: %q", out)
	}
}

func TestForServiceMemoizes(t *testing.T) {
	a := ForService("memo_test")
	b := ForService("memo_test")
	if a != b {
		t.Fatalf("expected the same logger instance for the same name")
	}
	if ForService("").Name() != "unknown" {
		t.Fatalf("expected empty name to map to unknown")
	}
}

func TestDebugPerService(t *testing.T) {
	SetGlobalDebug(false)

	const name = "debug_service_specific"
	DisableDebugFor(name)
	l, buf := newTestLogger(t, name)

	l.Debugf("should not appear")
	if strings.Contains(buf.String(), "should not appear") {
		t.Fatalf("debug message appeared while debug disabled")
	}

	EnableDebugFor(name)
	defer DisableDebugFor(name)
	l.Debugf("visible now")
	if !strings.Contains(buf.String(), "DEBUG ["+name+"] visible now") {
		t.Fatalf("expected debug message after enabling per-service debug; got: %q", buf.String())
	}
	if DebugEnabledFor("another_service") {
		t.Fatalf("per-service debug leaked to another service")
	}
}

func TestDebugGlobal(t *testing.T) {
	SetGlobalDebug(false)

	const name = "debug_service_global"
	DisableDebugFor(name)
	l, buf := newTestLogger(t, name)

	l.Debugf("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug message appeared while global debug disabled")
	}

	SetGlobalDebug(true)
	defer SetGlobalDebug(false)

	if !l.DebugEnabled() {
		t.Fatalf("expected DebugEnabled after SetGlobalDebug(true)")
	}
	l.Debugf("global visible")
	if !strings.Contains(buf.String(), "global visible") {
		t.Fatalf("expected debug message after enabling global debug; got: %q", buf.String())
	}
}

func TestWarnAndError(t *testing.T) {
	const name = "warn_service_test"
	l, buf := newTestLogger(t, name)

	l.Warnf("attention needed")
	l.Errorf("broken: %d", 42)
	out := buf.String()

	if !strings.Contains(out, "WARN ["+name+"] attention needed") {
		t.Fatalf("expected warn line, got: %q", out)
	}
	if !strings.Contains(out, "ERROR ["+name+"] broken: 42") {
		t.Fatalf("expected error line, got: %q", out)
	}
}
