package workers

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"shelfd/internal/config"
	"shelfd/internal/runner"
	"shelfd/internal/store"
)

// planner turns claimed jobs into concrete tool invocations.
type planner struct {
	cfg *config.Config
}

func (p planner) plan(job *store.Job) (toolPlan, error) {
	switch job.Category {
	case store.CategoryRip:
		return p.handbrakePlan(job), nil
	case store.CategoryVideo, store.CategoryPlaylist:
		return p.ytdlpPlan(job), nil
	case store.CategoryArticle:
		return p.monolithPlan(job), nil
	default:
		return toolPlan{}, fmt.Errorf("no tool plan for category %q", job.Category)
	}
}

func (p planner) handbrakePlan(job *store.Job) toolPlan {
	hb := p.cfg.HandBrake
	format := hb.Format
	if format == "" {
		format = "mkv"
	}
	output := filepath.Join(p.cfg.Paths.StagingDir, job.ID+"."+format)

	args := []string{
		"-i", job.Source,
		"-t", job.Param("title_index", "1"),
		"-o", output,
	}
	if hb.Preset != "" {
		args = append(args, "--preset", hb.Preset)
	} else {
		args = append(args,
			"-e", hb.VideoEncoder,
			"-q", strconv.Itoa(hb.Quality),
			"-E", hb.AudioEncoder,
			"-B", hb.AudioBitrate,
		)
	}
	args = append(args, "--format", "av_"+format)
	args = append(args, hb.ExtraArgs...)

	return toolPlan{
		command: runner.Command{
			Binary:  hb.Binary,
			Args:    args,
			Timeout: time.Duration(hb.RipTimeout) * time.Second,
		},
		parse:  parseHandBrakeLine,
		output: output,
	}
}

func (p planner) ytdlpPlan(job *store.Job) toolPlan {
	dl := p.cfg.Downloads
	output := filepath.Join(p.cfg.Paths.StagingDir, job.ID+".mp4")

	args := []string{
		"--newline",
		"-f", dl.YtdlpFormat,
		"--merge-output-format", "mp4",
		"-o", output,
	}
	if job.Category == store.CategoryPlaylist {
		args = append(args, "--yes-playlist")
	} else {
		args = append(args, "--no-playlist")
	}
	args = append(args, job.Source)

	return toolPlan{
		command: runner.Command{
			Binary:  dl.YtdlpBinary,
			Args:    args,
			Timeout: time.Duration(dl.DownloadTimeout) * time.Second,
		},
		parse:  parseYtdlpLine,
		output: output,
	}
}

func (p planner) monolithPlan(job *store.Job) toolPlan {
	dl := p.cfg.Downloads
	output := filepath.Join(p.cfg.Paths.StagingDir, job.ID+".html")

	return toolPlan{
		command: runner.Command{
			Binary:  dl.MonolithBinary,
			Args:    []string{"-o", output, job.Source},
			Timeout: time.Duration(dl.DownloadTimeout) * time.Second,
		},
		// monolith prints no progress; the job jumps from 0 to done.
		parse:  nil,
		output: output,
	}
}
