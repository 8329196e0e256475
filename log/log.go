package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const EnvDir = "SPEECHLENS_LOG_PATH"

var (
	diagLog    zerolog.Logger
	diagFile   *os.File
	reportFile *os.File
	logMu      sync.Mutex
	logReady   bool
	pid        int
	dir        string
)

// SubmissionMetrics describes one upload to the analysis backend.
type SubmissionMetrics struct {
	RequestID   string
	Format      string
	Status      int
	AudioS      float64
	PayloadKB   float64
	EncodeMs    float64
	DNSMs       float64
	TCPMs       float64
	TLSMs       float64
	TTFBMs      float64
	DownloadMs  float64
	TotalMs     float64
	ConnReused  bool
	TLSProtocol string
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

// ResolveDir picks the log directory: flag, then SPEECHLENS_LOG_PATH, then
// the OS default.
func ResolveDir(flagPath string) (string, error) {
	if flagPath != "" {
		return absolute(flagPath)
	}
	if envPath := os.Getenv(EnvDir); envPath != "" {
		return absolute(envPath)
	}
	return getDefaultDir()
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}
	pid = os.Getpid()

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, "diagnostics_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	reportFile, err = os.OpenFile(filepath.Join(dir, "reports_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if reportFile != nil {
		reportFile.Close()
		reportFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func Submission(m SubmissionMetrics) {
	if !logReady {
		return
	}

	connStatus := "new"
	if m.ConnReused {
		connStatus = "reused"
	}
	ev := diagLog.Info().
		Str("request_id", m.RequestID).
		Str("format", m.Format).
		Int("status", m.Status).
		Str("conn", connStatus)
	if m.TLSProtocol != "" {
		ev = ev.Str("tls_proto", m.TLSProtocol)
	}
	ev.Float64("audio_s", m.AudioS).
		Float64("payload_kb", m.PayloadKB).
		Float64("encode_ms", m.EncodeMs).
		Float64("dns_ms", m.DNSMs).
		Float64("tcp_ms", m.TCPMs).
		Float64("tls_ms", m.TLSMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("download_ms", m.DownloadMs).
		Float64("total_ms", m.TotalMs).
		Msg("analysis_submit")
}

// Report appends one analysed recording to reports_log.txt:
// "2006-01-02 15:04:05\t[pid]\tconfidence%\tlabel\ttranscript".
func Report(confidencePct float64, label, transcript string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	transcript = strings.ReplaceAll(transcript, "\n", " ")
	line := fmt.Sprintf("%s\t[%d]\t%.0f%%\t%s\t%s\n",
		time.Now().Format("2006-01-02 15:04:05"), pid, confidencePct, label, transcript)
	reportFile.WriteString(line)
}

func Stage(stage string) {
	if logReady {
		diagLog.Debug().Str("stage", stage).Msg("stage")
	}
}

func SessionStart(device, format string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("device", device).
		Str("format", format).
		Msg("session_start")
}

func SessionEnd(elapsedS int, chunks int, bytes int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("elapsed_s", elapsedS).
		Int("chunks", chunks).
		Int("bytes", bytes).
		Msg("session_end")
}
