// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package log

import "fmt"

// Scoped prefixes every message with a fixed tag, e.g. a reader id or
// component name, without needing a full structured-logging dependency.
// The LLRP adapter holds one per reader and the session manager one for
// itself, so that interleaved goroutine output stays attributable.
type Scoped struct {
	tag string
}

// For returns a Scoped logger tagging every line with "component/name".
func For(component, name string) Scoped {
	return Scoped{tag: fmt.Sprintf("[%s/%s] ", component, name)}
}

func (s Scoped) Debug(v ...any) { Debug(s.tag + fmt.Sprint(v...)) }
func (s Scoped) Info(v ...any)  { Info(s.tag + fmt.Sprint(v...)) }
func (s Scoped) Warn(v ...any)  { Warn(s.tag + fmt.Sprint(v...)) }
func (s Scoped) Error(v ...any) { Error(s.tag + fmt.Sprint(v...)) }

func (s Scoped) Debugf(format string, v ...any) { Debugf(s.tag+format, v...) }
func (s Scoped) Infof(format string, v ...any)  { Infof(s.tag+format, v...) }
func (s Scoped) Warnf(format string, v ...any)  { Warnf(s.tag+format, v...) }
func (s Scoped) Errorf(format string, v ...any) { Errorf(s.tag+format, v...) }
