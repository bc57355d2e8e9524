package common

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

var logrusLevels = [...]logrus.Level{logrus.DebugLevel, logrus.InfoLevel, logrus.WarnLevel, logrus.ErrorLevel}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

func (l LogLevel) logrus() logrus.Level {
	if l < LevelDebug || l > LevelError {
		return logrus.InfoLevel
	}
	return logrusLevels[l]
}

const (
	defaultMaxFileSize = 5 * 1024 * 1024
	defaultMaxBackups  = 5
)

// LogConfig holds configuration options for the logger.
type LogConfig struct {
	Level       LogLevel
	EnableFile  bool
	Dir         string // defaults to GetLogDir()
	MaxFileSize int64  // bytes before the file is archived, default 5MB
	MaxBackups  int    // archives kept, default 5
}

// callerField carries the file:line of the code that logged the entry.
const callerField = "caller"

// lineFormatter renders entries as "2006/01/02 15:04:05 [LEVEL] file.go:42: message key=value".
type lineFormatter struct{}

func (lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	caller, _ := entry.Data[callerField].(string)
	if caller == "" {
		caller = "???"
	}
	level := strings.ToUpper(entry.Level.String())
	if entry.Level == logrus.WarnLevel {
		level = "WARN"
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "%s [%s] %s: %s", entry.Time.Format("2006/01/02 15:04:05"), level, caller, entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != callerField {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// AppLogger writes caller-annotated lines through logrus to stdout and,
// once file logging is enabled, to a size-rotated file under logs/.
type AppLogger struct {
	base *logrus.Logger

	mu   sync.Mutex
	file *rotatingFile
}

var (
	defaultLogger *AppLogger
	loggerOnce    sync.Once
)

func newAppLogger(w io.Writer, level LogLevel) *AppLogger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(lineFormatter{})
	base.SetLevel(level.logrus())
	return &AppLogger{base: base}
}

// GetLogger returns the process-wide logger.
func GetLogger() *AppLogger {
	loggerOnce.Do(func() {
		defaultLogger = newAppLogger(os.Stdout, LevelInfo)
	})
	return defaultLogger
}

// InitLogger configures the process-wide logger. Call it before anything
// else logs.
func InitLogger(config LogConfig) error {
	logger := GetLogger()
	logger.SetLevel(config.Level)
	if !config.EnableFile {
		return nil
	}

	dir := config.Dir
	if dir == "" {
		dir = GetLogDir()
	}
	return logger.EnableFileLogging(dir, config.MaxFileSize, config.MaxBackups)
}

// SetLevel sets the minimum level that is written.
func (l *AppLogger) SetLevel(level LogLevel) {
	l.base.SetLevel(level.logrus())
}

// Enabled reports whether messages at level are written.
func (l *AppLogger) Enabled(level LogLevel) bool {
	return l.base.IsLevelEnabled(level.logrus())
}

// EnableFileLogging tees output into logDir/LogFileName. Zero limits
// select the defaults.
func (l *AppLogger) EnableFileLogging(logDir string, maxSize int64, maxBackups int) error {
	if logDir == "" {
		return fmt.Errorf("log directory not available")
	}
	if isSymlink(logDir) {
		return fmt.Errorf("refusing to log into symlinked directory %s", logDir)
	}
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return err
	}

	path := filepath.Join(logDir, LogFileName)
	if isSymlink(path) {
		return fmt.Errorf("refusing to log into symlinked file %s", path)
	}

	file, err := openRotatingFile(path, maxSize, maxBackups)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
	}
	l.file = file
	l.base.SetOutput(io.MultiWriter(os.Stdout, file))
	return nil
}

// Close stops file logging and returns output to stdout.
func (l *AppLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	l.base.SetOutput(os.Stdout)
	err := l.file.Close()
	l.file = nil
	return err
}

// CloseLogger closes the process-wide logger.
func CloseLogger() error {
	return GetLogger().Close()
}

// log must be called directly from an exported logging function so that
// the caller two frames up is the code doing the logging.
func (l *AppLogger) log(level LogLevel, msg string, args []interface{}) {
	lvl := level.logrus()
	if !l.base.IsLevelEnabled(lvl) {
		return
	}

	caller := "???"
	if _, file, line, ok := runtime.Caller(2); ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.base.WithField(callerField, caller).Log(lvl, msg)
}

func (l *AppLogger) Debug(msg string, args ...interface{}) { l.log(LevelDebug, msg, args) }
func (l *AppLogger) Info(msg string, args ...interface{})  { l.log(LevelInfo, msg, args) }
func (l *AppLogger) Warn(msg string, args ...interface{})  { l.log(LevelWarn, msg, args) }
func (l *AppLogger) Error(msg string, args ...interface{}) { l.log(LevelError, msg, args) }

func LogDebug(msg string, args ...interface{}) { GetLogger().log(LevelDebug, msg, args) }
func LogInfo(msg string, args ...interface{})  { GetLogger().log(LevelInfo, msg, args) }
func LogWarn(msg string, args ...interface{})  { GetLogger().log(LevelWarn, msg, args) }
func LogError(msg string, args ...interface{}) { GetLogger().log(LevelError, msg, args) }

// isSymlink reports whether path is a symbolic link. Missing paths are not.
func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink != 0
}

// rotatingFile is an append-only log file that is gzipped to
// "<path>.<timestamp>.gz" once a write would grow it past maxSize.
type rotatingFile struct {
	path       string
	maxSize    int64
	maxBackups int

	mu   sync.Mutex
	f    *os.File
	size int64
}

func openRotatingFile(path string, maxSize int64, maxBackups int) (*rotatingFile, error) {
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}
	r := &rotatingFile{path: path, maxSize: maxSize, maxBackups: maxBackups}
	if err := r.open(); err != nil {
		return nil, err
	}
	if r.size >= r.maxSize {
		if err := r.rotate(); err != nil {
			r.f.Close()
			return nil, err
		}
	}
	return r, nil
}

func (r *rotatingFile) open() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	r.f, r.size = f, info.Size()
	return nil
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return 0, os.ErrClosed
	}
	if r.size > 0 && r.size+int64(len(p)) > r.maxSize {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := r.f.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *rotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

func (r *rotatingFile) rotate() error {
	if err := r.f.Close(); err != nil {
		return err
	}
	r.f = nil

	archive := fmt.Sprintf("%s.%s.gz", r.path, time.Now().Format("20060102-150405.000"))
	if err := gzipFile(r.path, archive); err != nil {
		os.Remove(archive)
		if err := os.Rename(r.path, strings.TrimSuffix(archive, ".gz")); err != nil {
			return err
		}
	} else {
		os.Remove(r.path)
	}
	r.prune()
	return r.open()
}

// prune removes the oldest archives beyond maxBackups. Archive names sort
// by their timestamp.
func (r *rotatingFile) prune() {
	archives, err := filepath.Glob(r.path + ".*")
	if err != nil || len(archives) <= r.maxBackups {
		return
	}
	sort.Strings(archives)
	for _, old := range archives[:len(archives)-r.maxBackups] {
		os.Remove(old)
	}
}

func gzipFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	zw := gzip.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		return err
	}
	return zw.Close()
}
