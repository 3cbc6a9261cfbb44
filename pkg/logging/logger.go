// pkg/logging/logger.go
package logging

import (
	"context"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/logging"
)

// Logger пишет структурированные записи в Cloud Logging, а без проекта - в стандартный log.
type Logger struct {
	client *logging.Client
	cloud  *logging.Logger
	std    *log.Logger
}

// Default используется пакетами, которым логгер не передали явно.
var Default = NewStd("shazamio")

// New инициализирует клиента Cloud Logging для проекта.
// Пустой projectID означает локальный запуск: записи идут в stderr.
func New(ctx context.Context, projectID, name string) (*Logger, error) {
	if projectID == "" {
		return NewStd(name), nil
	}
	client, err := logging.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("cloud logging client: %w", err)
	}
	return &Logger{
		client: client,
		cloud:  client.Logger(name),
		std:    log.New(os.Stderr, name+" ", log.LstdFlags),
	}, nil
}

// NewStd создает логгер поверх стандартного log.
func NewStd(name string) *Logger {
	return &Logger{std: log.New(os.Stderr, name+" ", log.LstdFlags)}
}

func (l *Logger) write(severity logging.Severity, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if l.cloud != nil {
		l.cloud.Log(logging.Entry{Severity: severity, Payload: msg})
		return
	}
	l.std.Printf("%s: %s", severity, msg)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.write(logging.Info, format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.write(logging.Warning, format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.write(logging.Error, format, args...)
}

// Printf совместим с интерфейсами, ожидающими *log.Logger-подобный объект.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.write(logging.Default, format, args...)
}

// Writer возвращает io.Writer для сторонних библиотек (gin, paho).
func (l *Logger) Writer() *log.Logger {
	if l.cloud != nil {
		return l.cloud.StandardLogger(logging.Info)
	}
	return l.std
}

// Flush отправляет буферизованные записи.
func (l *Logger) Flush() {
	if l.cloud != nil {
		if err := l.cloud.Flush(); err != nil {
			l.std.Printf("cloud logging flush: %v", err)
		}
	}
}

// Close сбрасывает буфер и закрывает клиента.
func (l *Logger) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}
