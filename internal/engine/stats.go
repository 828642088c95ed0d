package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/svg2video/internal/system"
)

// BenchmarkLog is where ShowStats appends one line per rendered clip.
const BenchmarkLog = "benchmark.log"

// Stats collects per-session timings.
type Stats struct {
	Start    time.Time
	Compose  time.Duration // рисование кадров (CPU)
	Encode   time.Duration // передача кадров энкодеру
	Finalize time.Duration
	Total    time.Duration
	Frames   int
}

// FPS is the effective capture rate, not the clip frame rate.
func (st Stats) FPS() float64 {
	if st.Total <= 0 {
		return 0
	}
	return float64(st.Frames) / st.Total.Seconds()
}

// Report formats the console performance report.
func (st Stats) Report(build string, host *system.HostStats) string {
	hostLine := "n/a"
	if host != nil {
		hostLine = host.String()
	}
	return fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Host: %s\n"+
			"Total Time: %.2fs\n"+
			"Compose (CPU): %.2fs\n"+
			"Encoding (GPU/CPU): %.2fs\n"+
			"Finalize: %.2fs\n"+
			"Frames: %d\n"+
			"Effective FPS: %.2f\n"+
			"----------------------------\n",
		build, hostLine, st.Total.Seconds(), st.Compose.Seconds(), st.Encode.Seconds(),
		st.Finalize.Seconds(), st.Frames, st.FPS(),
	)
}

// LogEntry formats one benchmark.log line.
func (st Stats) LogEntry(now time.Time, build, input string) string {
	return fmt.Sprintf("[%s] Build: %s | Input: %s | Frames: %d | Total: %.2fs | Compose: %.2fs | Encode: %.2fs | FPS: %.2f\n",
		now.Format("2006-01-02 15:04:05"),
		build,
		filepath.Base(input),
		st.Frames,
		st.Total.Seconds(),
		st.Compose.Seconds(),
		st.Encode.Seconds(),
		st.FPS(),
	)
}

// AppendBenchmark appends entry to the benchmark log at path.
func AppendBenchmark(path, entry string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(entry); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
