package cfg

type Cfg struct {
	// Storage
	DBPath       string
	SettingsFile string

	// Application configuration
	Port         string
	BaseUrl      string
	APIAccessKey string
	IdleTimeout  int // milliseconds

	// AI escalation
	GeminiAPIKey    string
	GeminiModel     string
	AIConcurrency   int
	AIRatePerMinute int
	AITimeout       int // seconds

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
