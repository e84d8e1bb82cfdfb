// Package logging provides session-based logging for the protocol
// orchestrator, adapted from atomic's SessionLogger: debug goes to the
// session file only, info goes to the session file and to the console unless
// quiet, while Error always reaches both. The original's CLI/AI-transcript helpers (LogUserInput,
// LogAIResponse, LogPEVEvent) have no counterpart here; in their place are
// protocol-specific event loggers for handshakes and failover transitions.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SessionLogger writes to a session log file, and optionally to the
// console, with Info suppressed from console output in quiet mode (Debug
// never reaches the console).
type SessionLogger struct {
	mu          sync.Mutex
	sessionFile *os.File
	sessionPath string
	quietMode   bool
}

// New creates a session logger writing under logDir. quietMode suppresses
// Info console output; Error is always written to both.
func New(logDir string, quietMode bool) (*SessionLogger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	sessionID := time.Now().Format("20060102-150405")
	sessionPath := filepath.Join(logDir, fmt.Sprintf("umicp-%s.log", sessionID))

	file, err := os.OpenFile(sessionPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create session log file: %w", err)
	}

	logger := &SessionLogger{sessionFile: file, sessionPath: sessionPath, quietMode: quietMode}
	logger.writeToFile("=== UMICP session started ===\n")
	logger.writeToFile("Time: %s\n", time.Now().Format(time.RFC3339))
	logger.writeToFile("==============================\n\n")
	return logger, nil
}

// Close closes the session log file.
func (s *SessionLogger) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionFile == nil {
		return nil
	}
	s.writeToFile("\n=== UMICP session ended ===\n")
	return s.sessionFile.Close()
}

// GetSessionPath returns the path of the current session log file.
func (s *SessionLogger) GetSessionPath() string {
	return s.sessionPath
}

// Debug writes a debug message to the session file only.
func (s *SessionLogger) Debug(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeToFile("[%s] DEBUG: %s\n", timestamp(), fmt.Sprintf(format, args...))
}

// Info writes an info message to the session file, and to the console
// unless quiet mode is set.
func (s *SessionLogger) Info(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	message := fmt.Sprintf(format, args...)
	s.writeToFile("[%s] INFO: %s\n", timestamp(), message)
	if !s.quietMode {
		fmt.Println(message)
	}
}

// Error writes an error message to both the session file and stderr.
func (s *SessionLogger) Error(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	message := fmt.Sprintf(format, args...)
	s.writeToFile("[%s] ERROR: %s\n", timestamp(), message)
	fmt.Fprintf(os.Stderr, "error: %s\n", message)
}

// LogHandshake records a security state-machine transition to the session
// file (spec §7).
func (s *SessionLogger) LogHandshake(peerID, fromState, toState string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeToFile("[%s] HANDSHAKE: peer=%s %s -> %s\n", timestamp(), peerID, fromState, toState)
}

// LogFailover records a transport failover-state transition to the session
// file (spec §10).
func (s *SessionLogger) LogFailover(transportID, fromState, toState, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeToFile("[%s] FAILOVER: transport=%s %s -> %s (%s)\n", timestamp(), transportID, fromState, toState, reason)
}

// SetQuietMode enables or disables console output for Info.
func (s *SessionLogger) SetQuietMode(quiet bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quietMode = quiet
}

func (s *SessionLogger) writeToFile(format string, args ...interface{}) {
	if s.sessionFile == nil {
		return
	}
	fmt.Fprintf(s.sessionFile, format, args...)
	s.sessionFile.Sync()
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}

var (
	globalLogger *SessionLogger
	globalMu     sync.Mutex
)

// SetGlobalLogger sets the package-wide default logger, for components that
// don't hold their own *SessionLogger reference.
func SetGlobalLogger(logger *SessionLogger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger returns the package-wide default logger, or nil if none
// has been set.
func GetGlobalLogger() *SessionLogger {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalLogger
}

// Debug logs through the global logger if one is installed, falling back
// to log.Printf otherwise. Mirrors the teacher's broker, which logs through
// log.Printf directly when no session logger is wired in.
func Debug(format string, args ...interface{}) {
	if l := GetGlobalLogger(); l != nil {
		l.Debug(format, args...)
		return
	}
	log.Printf("DEBUG: "+format, args...)
}

// Info logs through the global logger if one is installed, falling back to
// log.Printf otherwise.
func Info(format string, args ...interface{}) {
	if l := GetGlobalLogger(); l != nil {
		l.Info(format, args...)
		return
	}
	log.Printf("INFO: "+format, args...)
}

// Error logs through the global logger if one is installed, falling back to
// log.Printf otherwise.
func Error(format string, args ...interface{}) {
	if l := GetGlobalLogger(); l != nil {
		l.Error(format, args...)
		return
	}
	log.Printf("ERROR: "+format, args...)
}
