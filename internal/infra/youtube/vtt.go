package youtube

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/jinford/tubeseek/internal/core/catalog"
)

// cueTimingRe はWebVTTのキュー行（"00:01:02.500 --> 00:01:05.000 ..."）に一致します
var cueTimingRe = regexp.MustCompile(`^(\d{1,2}:)?\d{2}:\d{2}\.\d{3}\s+-->\s+(\d{1,2}:)?\d{2}:\d{2}\.\d{3}`)

// vttTagRe は <c> や <00:00:01.000> などのインラインタグに一致します
var vttTagRe = regexp.MustCompile(`<[^>]*>`)

// ParseVTT はWebVTT字幕をタイムコード付きセグメント列へ変換します。
// 自動生成字幕に特有の、直前と同一テキストの巻き上げ重複は除去します。
func ParseVTT(r io.Reader) ([]catalog.Segment, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		segments []catalog.Segment
		current  *catalog.Segment
		lastText string
	)

	flush := func() {
		if current == nil {
			return
		}
		text := strings.TrimSpace(current.Text)
		if text != "" && text != lastText {
			current.Text = text
			segments = append(segments, *current)
			lastText = text
		}
		current = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if cueTimingRe.MatchString(line) {
			flush()

			fields := strings.Fields(line)
			start, err := timestampToSeconds(fields[0])
			if err != nil {
				return nil, err
			}
			end, err := timestampToSeconds(fields[2])
			if err != nil {
				return nil, err
			}
			current = &catalog.Segment{StartSeconds: start, EndSeconds: end}
			continue
		}

		if current == nil || line == "" || line == "WEBVTT" ||
			strings.HasPrefix(line, "NOTE") || strings.HasPrefix(line, "Kind:") ||
			strings.HasPrefix(line, "Language:") || strings.HasPrefix(line, "STYLE") {
			continue
		}

		text := cleanCueText(line)
		if text == "" {
			continue
		}
		if current.Text != "" {
			current.Text += " "
		}
		current.Text += text
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vtt: %w", err)
	}
	return segments, nil
}

// cleanCueText はインラインタグと実体参照を取り除きます
func cleanCueText(line string) string {
	text := vttTagRe.ReplaceAllString(line, "")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	return strings.TrimSpace(text)
}

// timestampToSeconds は "HH:MM:SS.mmm" または "MM:SS.mmm" を秒に変換します
func timestampToSeconds(ts string) (float64, error) {
	parts := strings.Split(ts, ":")

	var hours, minutes int
	var seconds float64
	var err error

	switch len(parts) {
	case 3:
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid vtt timestamp %q", ts)
		}
		if minutes, err = strconv.Atoi(parts[1]); err != nil {
			return 0, fmt.Errorf("invalid vtt timestamp %q", ts)
		}
		if seconds, err = strconv.ParseFloat(parts[2], 64); err != nil {
			return 0, fmt.Errorf("invalid vtt timestamp %q", ts)
		}
	case 2:
		if minutes, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid vtt timestamp %q", ts)
		}
		if seconds, err = strconv.ParseFloat(parts[1], 64); err != nil {
			return 0, fmt.Errorf("invalid vtt timestamp %q", ts)
		}
	default:
		return 0, fmt.Errorf("invalid vtt timestamp %q", ts)
	}

	return float64(hours)*3600 + float64(minutes)*60 + seconds, nil
}
