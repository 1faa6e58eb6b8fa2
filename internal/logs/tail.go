package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// followInterval is how often Follow polls the file for appended lines.
const followInterval = 250 * time.Millisecond

// LastLines returns up to limit lines from the end of the file along with
// the offset at which the read stopped. A missing file yields no lines and
// offset zero. A non-positive limit skips straight to the end of the file.
func LastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		offset, seekErr := file.Seek(0, io.SeekEnd)
		if seekErr != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", seekErr)
		}
		return nil, offset, nil
	}

	scanner := newLineScanner(file)
	ring := make([]string, limit)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

// Follow polls the file from offset and hands each newly appended line to
// emit until ctx ends. A swapped or truncated file restarts from its new
// beginning, which is what the log pointer does when a fresh daemon run
// replaces it.
func Follow(ctx context.Context, path string, offset int64, emit func(string)) error {
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()

	for {
		size, err := fileSize(path)
		if err != nil {
			return err
		}
		if size < offset {
			offset = 0
		}

		lines, next, err := readForward(path, offset)
		if err != nil {
			return err
		}
		for _, line := range lines {
			emit(line)
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("log path %q is a directory", path)
	}
	return info.Size(), nil
}

func readForward(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, offset, nil
		}
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	scanner := newLineScanner(file)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, offset, fmt.Errorf("read log file: %w", err)
	}

	next, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, offset, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, next, nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}
