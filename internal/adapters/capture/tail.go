package capture

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// ReadLines returns the complete lines appended to path since offset.
// A file smaller than the offset means the tool rotated or truncated
// its log, so reading restarts from the beginning. newOffset covers
// exactly the returned lines; saving it only after the parsed rows are
// stored gives at-least-once delivery. more reports that maxLines
// stopped the read before the end of the file.
func ReadLines(path string, offset int64, maxLines int) (lines []string, newOffset int64, more bool, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, offset, false, nil
	}
	if err != nil {
		return nil, offset, false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, offset, false, err
	}
	if offset < 0 || info.Size() < offset {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, false, err
	}

	newOffset = offset
	reader := bufio.NewReader(f)
	for maxLines <= 0 || len(lines) < maxLines {
		raw, err := reader.ReadString('\n')
		if err == io.EOF {
			// A trailing fragment without a newline is a line the
			// tool is still writing; leave it for the next cycle.
			break
		}
		if err != nil {
			return lines, newOffset, false, err
		}
		newOffset += int64(len(raw))
		lines = append(lines, strings.TrimRight(raw, "\r\n"))
	}
	return lines, newOffset, newOffset < info.Size(), nil
}
