package config

const DefaultMarker = "<!-- GENERATED_BY_TXT_WATCHER -->"

var defaultConfig = Config{
	WatchPath:       "./fswatch",
	PollingInterval: 1,
	LogChanges:      true,
	Dispatch: Dispatch{
		Workers:        1,
		HandlerTimeout: 30,
	},
	Notify: Notify{
		Enabled:        false,
		DebounceMillis: 200,
	},
	Logger: Logger{
		Level:  "info",
		Format: "text",
	},
	Server: Server{
		Enabled:     false,
		PrintRoutes: false,
		Port:        9797,
	},
	HTTP: HTTP{
		UserAgent:         "fswatcher/1.0",
		Timeout:           15,
		Retries:           2,
		RequestsPerSecond: 0,
	},
	Watchers: Watchers{
		Txt: TxtWatcher{
			Enabled: true,
			APIURL:  "https://baconipsum.com/api/?type=meat-and-filler&paras=1&format=text",
			Marker:  DefaultMarker,
		},
		JSON: JSONWatcher{
			Enabled:    true,
			WebhookURL: "https://fswatcher.requestcatcher.com/",
		},
		Jpg: JpgWatcher{
			Enabled:      true,
			Quality:      75,
			MaxDimension: 0,
		},
		Zip: ZipWatcher{
			Enabled: true,
		},
		Replace: ReplaceWatcher{
			Enabled: true,
			APIURL:  "https://meme-api.com/gimme",
		},
	},
}

// Default returns a copy of the default configuration
func Default() *Config {
	cfg := defaultConfig
	return &cfg
}
