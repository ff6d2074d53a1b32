package logging

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
)

// FileWriter appends log lines to dir/filename and rotates the file once
// it would exceed maxSize or is older than a day. Rotated files are
// gzipped and at most maxFiles of them are kept.
type FileWriter struct {
	mu           sync.Mutex
	dir          string
	filename     string
	maxSize      int64
	maxFiles     int
	currentFile  *os.File
	currentSize  int64
	lastRotation time.Time
	rotations    sync.WaitGroup
}

// NewFileWriter creates a new file writer with rotation.
func NewFileWriter(dir, filename string, maxSizeMB, maxFiles int) (*FileWriter, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("logging: log dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	if maxFiles <= 0 {
		maxFiles = 5
	}

	fw := &FileWriter{
		dir:          dir,
		filename:     filename,
		maxSize:      int64(maxSizeMB) * 1024 * 1024,
		maxFiles:     maxFiles,
		lastRotation: time.Now(),
	}
	if err := fw.openFile(); err != nil {
		return nil, err
	}
	return fw, nil
}

// Path is the file currently written to.
func (fw *FileWriter) Path() string {
	return filepath.Join(fw.dir, fw.filename)
}

func (fw *FileWriter) openFile() error {
	f, err := os.OpenFile(fw.Path(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	fw.currentFile = f
	fw.currentSize = info.Size()
	return nil
}

func (fw *FileWriter) Write(p []byte) (int, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.currentFile == nil {
		return 0, os.ErrClosed
	}
	if fw.shouldRotate(int64(len(p))) {
		if err := fw.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := fw.currentFile.Write(p)
	fw.currentSize += int64(n)
	return n, err
}

func (fw *FileWriter) shouldRotate(writeSize int64) bool {
	if fw.currentSize > 0 && fw.currentSize+writeSize > fw.maxSize {
		return true
	}
	return time.Since(fw.lastRotation) > 24*time.Hour
}

func (fw *FileWriter) rotate() error {
	if err := fw.currentFile.Close(); err != nil {
		return fmt.Errorf("close current file: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	rotated := filepath.Join(fw.dir, fmt.Sprintf("%s.%s", fw.filename, timestamp))
	if err := os.Rename(fw.Path(), rotated); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rename log file: %w", err)
	}

	fw.rotations.Add(1)
	go func() {
		defer fw.rotations.Done()
		compressFile(rotated)
		fw.cleanup()
	}()

	if err := fw.openFile(); err != nil {
		return err
	}
	fw.lastRotation = time.Now()
	return nil
}

func compressFile(path string) {
	in, err := os.Open(path)
	if err != nil {
		return
	}
	defer in.Close()

	gzPath := path + ".gz"
	out, err := os.Create(gzPath)
	if err != nil {
		return
	}
	gz := gzip.NewWriter(out)
	_, copyErr := io.Copy(gz, in)
	closeErr := gz.Close()
	out.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(gzPath)
		return
	}
	os.Remove(path)
}

func (fw *FileWriter) cleanup() {
	matches, err := filepath.Glob(filepath.Join(fw.dir, fw.filename+".*.gz"))
	if err != nil || len(matches) <= fw.maxFiles {
		return
	}
	// Timestamps in the names sort chronologically.
	sort.Strings(matches)
	for _, path := range matches[:len(matches)-fw.maxFiles] {
		os.Remove(path)
	}
}

// Close waits for pending compressions and closes the current file.
func (fw *FileWriter) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.rotations.Wait()
	if fw.currentFile == nil {
		return nil
	}
	err := fw.currentFile.Close()
	fw.currentFile = nil
	return err
}

// ReadRecent reads the most recent n log entries from a log file.
func ReadRecent(logPath string, n int) ([]Entry, error) {
	f, err := os.Open(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
