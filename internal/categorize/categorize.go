// Package categorize implements the deterministic, side-effect-free tagging
// rules of the specification: a fixed extension table, a MIME-class
// fallback, size and age thresholds, and filename heuristics.
package categorize

import (
	"sort"
	"strings"
	"time"
)

const day = 24 * time.Hour

var ageThreshold = 3 * 365 * day

const (
	giB = 1 << 30
)

// extensionTags maps a lower-cased, dot-prefixed extension to the tags it
// contributes. Entries mirror common media/office/archive/document kinds.
var extensionTags = map[string][]string{
	".mp3":  {"media", "audio", "music"},
	".flac": {"media", "audio", "music"},
	".wav":  {"media", "audio"},
	".aac":  {"media", "audio"},
	".ogg":  {"media", "audio"},
	".m4a":  {"media", "audio"},

	".mp4":  {"media", "video"},
	".mkv":  {"media", "video"},
	".avi":  {"media", "video"},
	".mov":  {"media", "video"},
	".webm": {"media", "video"},
	".wmv":  {"media", "video"},

	".jpg":  {"media", "image", "photo"},
	".jpeg": {"media", "image", "photo"},
	".png":  {"media", "image"},
	".gif":  {"media", "image"},
	".heic": {"media", "image", "photo"},
	".webp": {"media", "image"},
	".tiff": {"media", "image"},
	".bmp":  {"media", "image"},

	".psd":  {"design", "photoshop"},
	".ai":   {"design"},
	".sketch": {"design"},
	".fig":  {"design"},

	".doc":  {"document"},
	".docx": {"document"},
	".xls":  {"document", "spreadsheet"},
	".xlsx": {"document", "spreadsheet"},
	".ppt":  {"document", "presentation"},
	".pptx": {"document", "presentation"},
	".pdf":  {"document"},
	".txt":  {"document"},
	".md":   {"document"},
	".csv":  {"document", "spreadsheet"},

	".zip": {"archive"},
	".rar": {"archive"},
	".7z":  {"archive"},
	".tar": {"archive"},
	".gz":  {"archive"},

	".srt": {"subtitle"},
	".vtt": {"subtitle"},
	".ass": {"subtitle"},
	".ssa": {"subtitle"},
	".sub": {"subtitle"},
}

var nameSubstringTags = []struct {
	needles []string
	tag     string
}{
	{[]string{"backup", "bak", "old", "copy"}, "backup"},
	{[]string{"temp", "tmp", "cache"}, "temporary"},
	{[]string{"readme", "changelog", "license", "contributing"}, "documentation"},
	{[]string{"screenshot", "screen shot", "capture"}, "screenshot"},
}

// Categorize computes the deterministic, sorted, distinct tag set for a
// file given its name, MIME type, size, and modification time.
func Categorize(name string, mime string, size int64, mtime time.Time) []string {
	set := map[string]struct{}{}
	add := func(tags ...string) {
		for _, t := range tags {
			set[t] = struct{}{}
		}
	}

	if ext := extensionOf(name); ext != "" {
		if tags, ok := extensionTags[ext]; ok {
			add(tags...)
		}
	}

	switch {
	case strings.HasPrefix(mime, "video/"):
		add("media", "video")
	case strings.HasPrefix(mime, "audio/"):
		add("media", "audio")
	case strings.HasPrefix(mime, "image/"):
		add("media", "image")
	case strings.HasPrefix(mime, "text/"):
		add("text")
	case mime == "application/pdf":
		add("document")
	}

	switch {
	case size >= 10*giB:
		add("huge", "large")
	case size >= giB:
		add("large")
	case size == 0:
		add("empty")
	}

	if !mtime.IsZero() && time.Since(mtime) > ageThreshold {
		add("old")
	}

	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, ".") {
		add("hidden")
	}
	for _, rule := range nameSubstringTags {
		for _, needle := range rule.needles {
			if strings.Contains(lower, needle) {
				add(rule.tag)
				break
			}
		}
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func extensionOf(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx:])
}
