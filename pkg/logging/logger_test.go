package logging

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"
)

func TestNewWithoutProjectFallsBackToStd(t *testing.T) {
	l, err := New(context.Background(), "", "test")
	if err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}
	var buf bytes.Buffer
	l.std = log.New(&buf, "", 0)
	l.Errorf("сбой %d", 42)
	if !strings.Contains(buf.String(), "Error: сбой 42") {
		t.Errorf("Ожидалась запись с уровнем Error, получено %q", buf.String())
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close без клиента не должен возвращать ошибку: %v", err)
	}
}
