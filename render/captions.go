package render

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/clipforge/clipforge/speech"
)

// WriteCaptions writes the caption-sidecar format: a sequence of
// 1-indexed records, each an index line, an SRT-style timestamp line,
// one or more text lines, and a blank terminator. Timestamps are
// re-based to clip-local start.
func WriteCaptions(path string, segments []speech.Segment, clipStart, clipEnd float64) error {
	var b strings.Builder
	index := 1
	for _, seg := range segments {
		localStart := seg.Start - clipStart
		localEnd := seg.End - clipStart
		if localEnd <= 0 || localStart >= clipEnd-clipStart {
			continue
		}
		if localStart < 0 {
			localStart = 0
		}
		if localEnd > clipEnd-clipStart {
			localEnd = clipEnd - clipStart
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}

		fmt.Fprintf(&b, "%d\n", index)
		fmt.Fprintf(&b, "%s --> %s\n", srtTimestamp(localStart), srtTimestamp(localEnd))
		fmt.Fprintf(&b, "%s\n\n", text)
		index++
	}
	return writeFileAtomic(path, []byte(b.String()))
}

func srtTimestamp(secs float64) string {
	if secs < 0 {
		secs = 0
	}
	millis := int64(secs * 1000)
	d := time.Duration(millis) * time.Millisecond
	t := time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(d)
	return t.Format("15:04:05") + "," + fmt.Sprintf("%03d", millis%1000)
}

// writeFileAtomic writes via a temp file + rename so a reader never
// observes a partially written caption file.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp caption file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming caption file into place: %w", err)
	}
	return nil
}
