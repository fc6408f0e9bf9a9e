package util

import (
	"fmt"
	"log"
	"os"
	"time"
)

const (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	cyan   = "\033[36m"
	white  = "\033[37m"
)

// Logger is a small leveled console logger. Every line carries the
// component instance that produced it, e.g. "OrderService.Assign".
type Logger struct {
	std *log.Logger
}

func NewLogger() *Logger {
	return &Logger{std: log.New(os.Stdout, "", 0)}
}

func (l *Logger) Info(instance, message string) {
	l.printf(cyan, "INFO", instance, message)
}

func (l *Logger) OK(instance, message string) {
	l.printf(green, "OK", instance, message)
}

func (l *Logger) Warn(instance, message string) {
	l.printf(yellow, "WARN", instance, message)
}

func (l *Logger) Error(instance string, err error) {
	l.printf(red, "ERROR", instance, err.Error())
}

func (l *Logger) Fatal(instance string, err error) {
	l.printf(red, "FATAL", instance, err.Error())
	os.Exit(1)
}

func (l *Logger) printf(color, level, instance, message string) {
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	l.std.Printf("%s %s%-5s%s | %-28s | %s", ts, color, level, reset, instance, message)
}

// HTTP writes a request access line.
func (l *Logger) HTTP(status int, elapsed time.Duration, remote, method, path string) {
	l.std.Printf("%s |%s| %7s | %-18s | %s %s",
		time.Now().Format("2006-01-02 15:04:05.000"),
		paintStatus(status), elapsed, remote, method, path)
}

func paintStatus(code int) string {
	switch {
	case code >= 500:
		return red + fmt.Sprintf("%d", code) + reset
	case code >= 400:
		return yellow + fmt.Sprintf("%d", code) + reset
	case code >= 300:
		return blue + fmt.Sprintf("%d", code) + reset
	case code >= 200:
		return green + fmt.Sprintf("%d", code) + reset
	}
	return white + fmt.Sprintf("%d", code) + reset
}
