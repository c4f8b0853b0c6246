package config

const (
	defaultDataDir            = "~/.local/share/shelfd/data"
	defaultStagingDir         = "~/.local/share/shelfd/staging"
	defaultLibraryDir         = "~/media"
	defaultLogDir             = "~/.local/share/shelfd/logs"
	defaultMinFreeGiB         = 5
	defaultPollInterval       = 2
	defaultErrorRetryInterval = 10
	defaultProgressInterval   = 2
	defaultHandBrakeBinary    = "HandBrakeCLI"
	defaultHandBrakeFormat    = "mkv"
	defaultVideoEncoder       = "x264"
	defaultQuality            = 20
	defaultAudioEncoder       = "av_aac"
	defaultAudioBitrate       = "160"
	defaultRipTimeout         = 14400
	defaultYtdlpBinary        = "yt-dlp"
	defaultYtdlpFormat        = "bestvideo[height<=1080]+bestaudio/best"
	defaultMonolithBinary     = "monolith"
	defaultDownloadTimeout    = 3600
	defaultCheckIntervalHours = 6
	defaultOpticalDrive       = "/dev/sr0"
	defaultNtfyRequestTimeout = 10
	defaultLogLevel           = "info"
	defaultLogFormat          = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			StagingDir: defaultStagingDir,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
			MinFreeGiB: defaultMinFreeGiB,
		},
		Workers: Workers{
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			ProgressInterval:   defaultProgressInterval,
		},
		HandBrake: HandBrake{
			Binary:       defaultHandBrakeBinary,
			Format:       defaultHandBrakeFormat,
			VideoEncoder: defaultVideoEncoder,
			Quality:      defaultQuality,
			AudioEncoder: defaultAudioEncoder,
			AudioBitrate: defaultAudioBitrate,
			RipTimeout:   defaultRipTimeout,
		},
		Downloads: Downloads{
			YtdlpBinary:     defaultYtdlpBinary,
			YtdlpFormat:     defaultYtdlpFormat,
			MonolithBinary:  defaultMonolithBinary,
			DownloadTimeout: defaultDownloadTimeout,
		},
		Podcasts: Podcasts{
			CheckIntervalHours: defaultCheckIntervalHours,
		},
		Disc: Disc{
			Device: defaultOpticalDrive,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
