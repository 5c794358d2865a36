// Package ytdlp runs the external yt-dlp program.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/cesargomez89/ytmanager/internal/logger"
)

var ErrNoURL = errors.New("video URL is required")

type OutputStream string

const (
	StreamStdout OutputStream = "stdout"
	StreamStderr OutputStream = "stderr"
)

type DownloadOptions struct {
	URL string
	// OutputPrefix is the path without extension; yt-dlp appends ".<ext>"
	// for the media and every side file.
	OutputPrefix string
	Format       string
	AudioOnly    bool
	AudioFormat  string
	// Progress receives the download percentage in [0, 1].
	Progress func(fraction float64)
}

type Client struct {
	logger *logger.Logger
	path   string
	format string
}

func NewClient(path, defaultFormat string, log *logger.Logger) *Client {
	if path == "" {
		path = "yt-dlp"
	}
	if log == nil {
		log = logger.Default()
	}
	return &Client{
		path:   path,
		format: defaultFormat,
		logger: log.WithComponent("ytdlp"),
	}
}

// Download fetches one video. The process is killed when ctx is cancelled.
func (c *Client) Download(ctx context.Context, opts DownloadOptions) error {
	if strings.TrimSpace(opts.URL) == "" {
		return ErrNoURL
	}
	if strings.TrimSpace(opts.OutputPrefix) == "" {
		return fmt.Errorf("output prefix is required")
	}

	args := c.downloadArgs(opts)
	c.logger.Debug("Starting download", "url", opts.URL, "prefix", opts.OutputPrefix)

	return c.run(ctx, args, func(stream OutputStream, line string) {
		if stream == StreamStdout && opts.Progress != nil {
			if p, ok := parseProgress(line); ok {
				opts.Progress(p)
			}
		}
	})
}

func (c *Client) downloadArgs(opts DownloadOptions) []string {
	args := []string{
		"--no-playlist",
		"--newline",
		"--no-overwrites",
		"--continue",
		"--write-info-json",
		"-o", opts.OutputPrefix + ".%(ext)s",
	}
	if opts.AudioOnly {
		audioFormat := opts.AudioFormat
		if audioFormat == "" {
			audioFormat = "mp3"
		}
		args = append(args, "-x", "--audio-format", audioFormat)
	} else {
		format := opts.Format
		if format == "" {
			format = c.format
		}
		if format != "" {
			args = append(args, "-f", format)
		}
		args = append(args, "--write-subs", "--sub-langs", "en.*,-live_chat")
	}
	return append(args, opts.URL)
}

// Update runs the self-updater and returns its output.
func (c *Client) Update(ctx context.Context) (string, error) {
	return c.output(ctx, "-U")
}

func (c *Client) Version(ctx context.Context) (string, error) {
	return c.output(ctx, "--version")
}

func (c *Client) output(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (c *Client) run(ctx context.Context, args []string, onLine func(OutputStream, string)) error {
	cmd := exec.CommandContext(ctx, c.path, args...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("setup stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("setup stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start yt-dlp: %w", err)
	}

	var errBuf strings.Builder
	var mu sync.Mutex
	var wg sync.WaitGroup

	read := func(stream OutputStream, r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		scanner.Split(splitByNewlineOrCR)
		for scanner.Scan() {
			line := scanner.Text()
			if stream == StreamStderr {
				mu.Lock()
				appendLimited(&errBuf, line)
				mu.Unlock()
			}
			onLine(stream, line)
		}
	}

	wg.Add(2)
	go read(StreamStdout, stdoutPipe)
	go read(StreamStderr, stderrPipe)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		mu.Lock()
		defer mu.Unlock()
		return fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(errBuf.String()))
	}
	return nil
}

var progressPattern = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)

func parseProgress(line string) (float64, bool) {
	m := progressPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return min(max(pct/100, 0), 1), true
}

func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func appendLimited(b *strings.Builder, line string) {
	const maxKeep = 8192
	if b.Len() >= maxKeep {
		return
	}
	toWrite := line + "\n"
	if remain := maxKeep - b.Len(); len(toWrite) > remain {
		toWrite = toWrite[:remain]
	}
	b.WriteString(toWrite)
}
