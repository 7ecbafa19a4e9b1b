// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"io"
	"log"
	"os"
)

// LogLevel is the verbosity level of a LogGroup
type LogLevel int

const (
	// ErrLevel=1 - the minimum level of logging.
	ErrLevel LogLevel = iota + 1

	// WarnLevel=2 - warnings and errors
	WarnLevel

	// InfoLevel=3 - pass timings and the sizes of the results
	InfoLevel

	// DebugLevel=4 - recursive calls, skipped entry points, unresolved calls
	DebugLevel

	// TraceLevel=5 - dumps of every local graph and inlining tree. Only usable on small programs.
	TraceLevel
)

var levelPrefixes = map[LogLevel]string{
	ErrLevel:   "[ERROR] ",
	WarnLevel:  "[WARN] ",
	InfoLevel:  "[INFO] ",
	DebugLevel: "[DEBUG] ",
	TraceLevel: "[TRACE] ",
}

// String returns the name of the level as it is printed in log messages
func (l LogLevel) String() string {
	if p, ok := levelPrefixes[l]; ok {
		return p[1 : len(p)-2]
	}
	return "UNKNOWN"
}

// LogGroup is a set of loggers, one per level. A message is printed only when the level of the group is at least
// the level of the message.
type LogGroup struct {
	level   LogLevel
	loggers map[LogLevel]*log.Logger
}

// NewLogGroup returns a log group writing to stderr at the log level of the config
func NewLogGroup(config *Config) *LogGroup {
	l := &LogGroup{level: LogLevel(config.LogLevel), loggers: make(map[LogLevel]*log.Logger, len(levelPrefixes))}
	for level, prefix := range levelPrefixes {
		l.loggers[level] = log.New(os.Stderr, prefix, log.LstdFlags)
	}
	return l
}

// SetLevel sets the level of the log group
func (l *LogGroup) SetLevel(level LogLevel) {
	l.level = level
}

// LogsDebug returns true when debug messages are printed
func (l *LogGroup) LogsDebug() bool {
	return l.level >= DebugLevel
}

// LogsTrace returns true when trace messages are printed. Guard graph dumps with it.
func (l *LogGroup) LogsTrace() bool {
	return l.level >= TraceLevel
}

// SetAllOutput redirects every logger of the group to w
func (l *LogGroup) SetAllOutput(w io.Writer) {
	for _, logger := range l.loggers {
		logger.SetOutput(w)
	}
}

// SetAllFlags sets the flags of every logger of the group
func (l *LogGroup) SetAllFlags(x int) {
	for _, logger := range l.loggers {
		logger.SetFlags(x)
	}
}

func (l *LogGroup) logf(level LogLevel, format string, v ...any) {
	if l.level >= level {
		l.loggers[level].Printf(format, v...)
	}
}

// Tracef prints to the trace logger, in the manner of Printf
func (l *LogGroup) Tracef(format string, v ...any) { l.logf(TraceLevel, format, v...) }

// Debugf prints to the debug logger, in the manner of Printf
func (l *LogGroup) Debugf(format string, v ...any) { l.logf(DebugLevel, format, v...) }

// Infof prints to the info logger, in the manner of Printf
func (l *LogGroup) Infof(format string, v ...any) { l.logf(InfoLevel, format, v...) }

// Warnf prints to the warning logger, in the manner of Printf
func (l *LogGroup) Warnf(format string, v ...any) { l.logf(WarnLevel, format, v...) }

// Errorf prints to the error logger, in the manner of Printf
func (l *LogGroup) Errorf(format string, v ...any) { l.logf(ErrLevel, format, v...) }
