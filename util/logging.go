// Copyright 2018, RadiantBlue Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Severity is the RFC 5424 severity of a log message
type Severity int

// Severities used by the application
const (
	ERROR  Severity = 3
	NOTICE Severity = 5
	INFO   Severity = 6
	DEBUG  Severity = 7
)

func (s Severity) String() string {
	switch s {
	case ERROR:
		return "ERROR"
	case NOTICE:
		return "NOTICE"
	case INFO:
		return "INFO"
	case DEBUG:
		return "DEBUG"
	}
	return fmt.Sprintf("SEVERITY(%d)", int(s))
}

// LogContext is the interface for anything that can supply logging metadata
type LogContext interface {
	AppName() string
	SessionID() string
	LogRootDir() string
}

// BasicLogContext is a LogContext usable where no session exists yet
type BasicLogContext struct {
	sessionID string
	once      sync.Once
}

// AppName returns the application name
func (c *BasicLogContext) AppName() string {
	return AppName
}

// SessionID returns a Session ID, creating it once
func (c *BasicLogContext) SessionID() string {
	c.once.Do(func() {
		if c.sessionID == "" {
			c.sessionID, _ = PsuUUID()
		}
	})
	return c.sessionID
}

// LogRootDir returns an empty string
func (c *BasicLogContext) LogRootDir() string {
	return ""
}

// AppName is the name reported in every log line
const AppName = "bf-atmcorr"

// LogAuditInput describes a single auditable interaction between two parties
type LogAuditInput struct {
	Actor    string
	Action   string
	Actee    string
	Message  string
	Severity Severity
}

var (
	loggerMutex sync.Mutex
	logger      = log.New(os.Stderr, "", 0)
)

// SetLogOutput redirects all log output; used by tests
func SetLogOutput(w io.Writer) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	logger.SetOutput(w)
}

func writeLine(ctx LogContext, severity Severity, kind string, message string) {
	app, session := AppName, "-"
	if ctx != nil {
		if name := ctx.AppName(); name != "" {
			app = name
		}
		if id := ctx.SessionID(); id != "" {
			session = id
		}
	}
	line := fmt.Sprintf("<%d>1 %s %s %s %s %s",
		8+int(severity),
		time.Now().UTC().Format(time.RFC3339),
		app, session, kind,
		strings.Replace(message, "\n", " ", -1))

	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	logger.Println(line)
}

// LogInfo logs an informational message
func LogInfo(ctx LogContext, message string) {
	writeLine(ctx, INFO, "INFO", message)
}

// LogAlert logs a message about something an operator should look into
func LogAlert(ctx LogContext, message string) {
	writeLine(ctx, NOTICE, "ALERT", message)
}

// LogAudit logs an interaction with an external party
func LogAudit(ctx LogContext, input LogAuditInput) {
	severity := input.Severity
	if severity == 0 {
		severity = INFO
	}
	writeLine(ctx, severity, "AUDIT",
		fmt.Sprintf("actor=%q action=%q actee=%q %s", input.Actor, input.Action, input.Actee, input.Message))
}

// LogSimpleErr logs an error with a message and returns an error containing both
func LogSimpleErr(ctx LogContext, message string, err error) error {
	if err == nil {
		writeLine(ctx, ERROR, "ERROR", message)
		return fmt.Errorf("%s", message)
	}
	writeLine(ctx, ERROR, "ERROR", message+err.Error())
	return fmt.Errorf("%s%v", message, err)
}
