package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"media-converter/internal/codec"
	"media-converter/internal/database"
	"media-converter/internal/ffmpeg"
	"media-converter/internal/formats"
	"media-converter/internal/transcoder"

	"golang.org/x/term"
)

const (
	// Default timeout for database and capability queries
	defaultTimeout = 30 * time.Second
	// Default data directory path
	defaultDataDir = "/data"
	// Width of the progress bar when the terminal size is unknown
	defaultBarWidth = 40
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, canceling...")
		cancel()
	}()

	platform := ffmpeg.New(ffmpeg.Config{
		FFmpegPath:  os.Getenv("FFMPEG_PATH"),
		FFprobePath: os.Getenv("FFPROBE_PATH"),
	})
	defer platform.Cleanup()

	ok := true
	switch command {
	case "run":
		if len(os.Args) < 4 {
			printUsage()
			os.Exit(1)
		}
		output := ""
		if len(os.Args) > 4 {
			output = os.Args[4]
		}
		ok = runConvert(ctx, platform, os.Args[2], os.Args[3], output, newProgressPrinter(os.Stdout))
	case "formats":
		printFormats(os.Stdout)
	case "caps":
		ok = showCapabilities(ctx, platform, os.Stdout)
	case "jobs":
		ok = showJobs(ctx, dataDir(), os.Stdout)
	default:
		sanitized := sanitizeCommand(command)
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitized) //nolint:gosec // G705 - only [a-zA-Z0-9_-] pass sanitizeCommand
		printUsage()
		os.Exit(1)
	}

	if !ok {
		os.Exit(1)
	}
}

// sanitizeCommand replaces any character that is not alphanumeric, a
// hyphen or an underscore with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage() {
	fmt.Println("Media Converter")
	fmt.Println("")
	fmt.Println("Usage: convert <command> [args]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run <input> <format> [output]  - Convert a file")
	fmt.Println("  formats                        - List output formats")
	fmt.Println("  caps                           - Show encoder capabilities")
	fmt.Println("  jobs                           - Show the server's job history")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Println("  FFMPEG_PATH   - ffmpeg binary (default: ffmpeg on PATH)")
	fmt.Println("  FFPROBE_PATH  - ffprobe binary (default: ffprobe on PATH)")
	fmt.Printf("  DATA_DIR      - Server data directory for 'jobs' (default: %s)\n", defaultDataDir)
}

func dataDir() string {
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		return dir
	}
	return defaultDataDir
}

// runConvert converts input to the named format and writes the result next
// to the input unless output is given.
func runConvert(ctx context.Context, platform transcoder.Platform, input, format, output string, p *progressPrinter) bool {
	target, err := formats.Parse(format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	data, err := os.ReadFile(input) //nolint:gosec // G304 - the path is the user's own argument
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to read input: %v\n", err)
		return false
	}

	src := transcoder.Source{Name: filepath.Base(input), MIME: formats.Sniff(data), Data: data}
	trans := transcoder.New(platform, transcoder.DefaultConfig())

	blob, err := trans.Convert(ctx, src, target, transcoder.Callbacks{
		OnProgress: p.Progress,
		OnStatus:   p.Status,
	})
	p.Done()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(err))
		return false
	}

	if output == "" {
		output = outputPath(input, target, blob.MIME)
	}
	if err := os.WriteFile(output, blob.Data, 0o644); err != nil { //nolint:gosec // G306 - converted media is not secret
		fmt.Fprintf(os.Stderr, "Error: Failed to write output: %v\n", err)
		return false
	}
	fmt.Fprintf(p.out, "Wrote %s (%s, %d bytes)\n", output, blob.MIME, len(blob.Data))
	return true
}

// outputPath places the result beside input, using the extension of the
// produced MIME type so a WAV fallback is named .wav.
func outputPath(input string, target formats.Format, mime string) string {
	if f, ok := formats.ForMIME(mime); ok {
		target = f
	}
	return filepath.Join(filepath.Dir(input), formats.OutputName(input, target))
}

func describeError(err error) string {
	var terr *transcoder.Error
	if errors.As(err, &terr) {
		return fmt.Sprintf("%s (%s)", terr.Message, transcoder.ClassName(err))
	}
	if errors.Is(err, context.Canceled) {
		return "conversion canceled"
	}
	return err.Error()
}

func printFormats(w io.Writer) {
	for _, category := range []formats.Category{formats.CategoryAudio, formats.CategoryVideo} {
		fmt.Fprintf(w, "%s:\n", strings.ToUpper(string(category)))
		for _, f := range formats.Targets()[category] {
			mime, _ := f.MIME()
			fmt.Fprintf(w, "  %-5s %-6s %s\n", f, f.Extension(), mime)
		}
	}
}

func showCapabilities(ctx context.Context, platform *ffmpeg.Platform, w io.Writer) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	version, err := platform.Version(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: ffmpeg is not available: %v\n", err)
		return false
	}
	if _, err := platform.Capabilities(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to query encoders: %v\n", err)
		return false
	}

	cfg := transcoder.DefaultConfig()
	fmt.Fprintln(w, version)
	fmt.Fprintf(w, "Threads: %d\n", platform.Threads())
	for _, group := range []struct {
		name       string
		candidates []codec.Signature
	}{
		{"Audio", cfg.AudioCandidates},
		{"Video", cfg.VideoCandidates},
	} {
		fmt.Fprintf(w, "%s capture:\n", group.name)
		for _, sig := range group.candidates {
			mark := "no"
			if platform.IsTypeSupported(sig.MIME) {
				mark = "yes"
			}
			fmt.Fprintf(w, "  %-3s %s\n", mark, sig.MIME)
		}
	}
	return true
}

func showJobs(ctx context.Context, dir string, w io.Writer) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	db, err := database.New(ctx, filepath.Join(dir, "jobs.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open job history: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATA_DIR is set correctly (current: %s)\n", dir)
		return false
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	list, err := db.ListJobs(ctx, 50)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to list jobs: %v\n", err)
		return false
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "No jobs")
		return true
	}
	for _, job := range list {
		detail := job.Message
		if job.Status == database.StatusCompleted {
			f, ok := formats.ForMIME(job.OutputMIME)
			if !ok {
				f = formats.Format(job.Format)
			}
			detail = formats.OutputName(job.Name, f)
		}
		fmt.Fprintf(w, "%s  %-10s %3d%%  %-5s %s  %s\n",
			job.CreatedAt.Local().Format("2006-01-02 15:04"), job.Status, job.Progress, job.Format, job.Name, detail)
	}
	return true
}

// progressPrinter draws a bar on terminals and plain lines elsewhere.
type progressPrinter struct {
	out    io.Writer
	tty    bool
	width  int
	last   int
	status string
}

func newProgressPrinter(f *os.File) *progressPrinter {
	p := &progressPrinter{out: f, width: defaultBarWidth, last: -1}
	fd := int(f.Fd()) //nolint:gosec // G115 - file descriptors fit in int
	if term.IsTerminal(fd) {
		p.tty = true
		if cols, _, err := term.GetSize(fd); err == nil && cols > 40 {
			p.width = min(cols-30, 60)
		}
	}
	return p
}

// Progress records a new percentage.
func (p *progressPrinter) Progress(percent int) {
	if percent == p.last {
		return
	}
	if !p.tty {
		// One line per 10% step
		if p.last >= 0 && percent/10 == p.last/10 && percent != 100 {
			p.last = percent
			return
		}
		p.last = percent
		fmt.Fprintf(p.out, "%3d%%\n", percent)
		return
	}
	p.last = percent
	p.draw()
}

// Status records a new status message.
func (p *progressPrinter) Status(message string) {
	p.status = message
	if !p.tty {
		fmt.Fprintln(p.out, message)
		return
	}
	p.draw()
}

// Done ends the bar line.
func (p *progressPrinter) Done() {
	if p.tty && p.last >= 0 {
		fmt.Fprintln(p.out)
	}
}

func (p *progressPrinter) draw() {
	percent := max(p.last, 0)
	filled := p.width * percent / 100
	bar := strings.Repeat("#", filled) + strings.Repeat(" ", p.width-filled)
	fmt.Fprintf(p.out, "\r\x1b[K[%s] %3d%% %s", bar, percent, p.status)
}
