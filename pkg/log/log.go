// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package log provides simple leveled logging for the ingestion core.
//
// Timestamps are omitted by default because the process is expected to run
// under systemd, which timestamps every line of stdout/stderr itself (flip
// SetLogDateTime if that is not the case). Level prefixes follow the
// syslog/sd-daemon convention so journald can derive a severity from them:
// https://www.freedesktop.org/software/systemd/man/sd-daemon.html
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

var logDateTime bool

var (
	DebugWriter io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
)

var (
	DebugPrefix = "<7>[DEBUG]   "
	InfoPrefix  = "<6>[INFO]    "
	WarnPrefix  = "<4>[WARNING] "
	ErrPrefix   = "<3>[ERROR]   "
)

var (
	debugLog *log.Logger = log.New(DebugWriter, DebugPrefix, 0)
	infoLog  *log.Logger = log.New(InfoWriter, InfoPrefix, 0)
	warnLog  *log.Logger = log.New(WarnWriter, WarnPrefix, log.Lshortfile)
	errLog   *log.Logger = log.New(ErrWriter, ErrPrefix, log.Llongfile)

	debugTimeLog *log.Logger = log.New(DebugWriter, DebugPrefix, log.LstdFlags)
	infoTimeLog  *log.Logger = log.New(InfoWriter, InfoPrefix, log.LstdFlags)
	warnTimeLog  *log.Logger = log.New(WarnWriter, WarnPrefix, log.LstdFlags|log.Lshortfile)
	errTimeLog   *log.Logger = log.New(ErrWriter, ErrPrefix, log.LstdFlags|log.Llongfile)
)

// SetLevel discards writers below lvl ("debug", "info", "warn", "err").
// Unknown values fall back to "debug".
func SetLevel(lvl string) {
	switch lvl {
	case "err", "fatal":
		WarnWriter = io.Discard
		fallthrough
	case "warn":
		InfoWriter = io.Discard
		fallthrough
	case "info":
		DebugWriter = io.Discard
	case "debug":
	default:
		fmt.Printf("log: invalid level %q, defaulting to debug\n", lvl)
		SetLevel("debug")
	}
}

// SetLogDateTime toggles whether log lines carry their own timestamp.
func SetLogDateTime(v bool) { logDateTime = v }

func Debug(v ...any) { emit(DebugWriter, debugLog, debugTimeLog, fmt.Sprint(v...)) }
func Info(v ...any)  { emit(InfoWriter, infoLog, infoTimeLog, fmt.Sprint(v...)) }
func Warn(v ...any)  { emit(WarnWriter, warnLog, warnTimeLog, fmt.Sprint(v...)) }
func Error(v ...any) { emit(ErrWriter, errLog, errTimeLog, fmt.Sprint(v...)) }

func Debugf(format string, v ...any) { emit(DebugWriter, debugLog, debugTimeLog, fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { emit(InfoWriter, infoLog, infoTimeLog, fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { emit(WarnWriter, warnLog, warnTimeLog, fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { emit(ErrWriter, errLog, errTimeLog, fmt.Sprintf(format, v...)) }

// Fatal logs at error level and terminates the process with a non-zero
// exit code, matching the "fatal error" taxonomy entry of the core: an
// invariant violation too severe to keep running.
func Fatal(v ...any) {
	Error(v...)
	os.Exit(1)
}

func Fatalf(format string, v ...any) {
	Errorf(format, v...)
	os.Exit(1)
}

func emit(w io.Writer, plain, withTime *log.Logger, msg string) {
	if w == io.Discard {
		return
	}
	if logDateTime {
		withTime.Output(3, msg)
	} else {
		plain.Output(3, msg)
	}
}
