package workers

import (
	"regexp"
	"strconv"
	"strings"
)

// Update is one parsed progress report from an external tool's output.
type Update struct {
	Percent    float64
	ETA        string
	Throughput string
}

// lineParser extracts a progress update from one output line. The boolean is
// false for lines that carry no progress information.
type lineParser func(line string) (Update, bool)

var (
	handbrakePercentRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	handbrakeFpsRe     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s+fps`)
	handbrakeETARe     = regexp.MustCompile(`ETA\s+([0-9hms:]+)`)

	ytdlpRe = regexp.MustCompile(`\[download\]\s+(\d+(?:\.\d+)?)%`)
	rateRe  = regexp.MustCompile(`at\s+(\S+/s)`)
	etaRe   = regexp.MustCompile(`ETA\s+(\S+)`)
)

// parseHandBrakeLine reads HandBrakeCLI encode progress, e.g.
// "Encoding: task 1 of 1, 45.23 % (120.34 fps, avg 115.00 fps, ETA 00h12m34s)".
func parseHandBrakeLine(line string) (Update, bool) {
	if !strings.Contains(line, "Encoding:") {
		return Update{}, false
	}
	match := handbrakePercentRe.FindStringSubmatch(line)
	if match == nil {
		return Update{}, false
	}
	percent, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return Update{}, false
	}

	update := Update{Percent: percent}
	if fps := handbrakeFpsRe.FindStringSubmatch(line); fps != nil {
		update.Throughput = fps[1] + " fps"
	}
	if eta := handbrakeETARe.FindStringSubmatch(line); eta != nil {
		update.ETA = eta[1]
	}
	return update, true
}

// parseYtdlpLine reads yt-dlp --newline progress, e.g.
// "[download]  12.3% of 100.00MiB at 1.23MiB/s ETA 01:23".
func parseYtdlpLine(line string) (Update, bool) {
	match := ytdlpRe.FindStringSubmatch(line)
	if match == nil {
		return Update{}, false
	}
	percent, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return Update{}, false
	}

	update := Update{Percent: percent}
	if rate := rateRe.FindStringSubmatch(line); rate != nil {
		update.Throughput = rate[1]
	}
	if eta := etaRe.FindStringSubmatch(line); eta != nil && eta[1] != "Unknown" {
		update.ETA = eta[1]
	}
	return update, true
}
