package models

// MConfig Structure
type MConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
	Cadence  string `yaml:"cadence"`

	Market   MMarketConfig   `yaml:"market"`
	Schedule MScheduleConfig `yaml:"schedule"`
	Provider MProviderConfig `yaml:"provider"`
	History  MHistoryConfig  `yaml:"history"`
	Symbols  MSymbolsConfig  `yaml:"symbols"`
	Publish  MPublishConfig  `yaml:"publish"`
	Control  MControlConfig  `yaml:"control"`
	Storage  MStorageConfig  `yaml:"storage"`
}

type MMarketConfig struct {
	Timezone    string `yaml:"timezone"`     // e.g. America/New_York
	CalendarMIC string `yaml:"calendar_mic"` // e.g. xnys, "weekdays" for plain Mon-Fri
	OpenTime    string `yaml:"open_time"`    // HH:MM local
	CloseTime   string `yaml:"close_time"`   // HH:MM local
}

type MScheduleConfig struct {
	GraceSeconds     *int `yaml:"grace_seconds,omitempty"` // added to every calendar trigger, nil = cadence default
	LeadMinutes      int  `yaml:"lead_minutes"`       // intraday first trigger after open, 0 = one cadence
	BootstrapOnStart bool `yaml:"bootstrap_on_start"` // run one full cycle before waiting
}

type MProviderConfig struct {
	Name            string   `yaml:"name"`
	BaseURL         string   `yaml:"base_url"`
	RequestsPerHour int      `yaml:"requests_per_hour"`
	RequestTimeout  int      `yaml:"timeout"`
	MaxRetries      int      `yaml:"retries"`
	UserAgent       string   `yaml:"user_agent"`
	Proxies         []string `yaml:"proxies"`
}

type MHistoryConfig struct {
	Window int `yaml:"window"` // rolling buffer length W
}

type MSymbolsConfig struct {
	Market   MSymbolSource `yaml:"market"`
	AlwaysOn MSymbolSource `yaml:"always_on"`
}

// MSymbolSource selects where a symbol list comes from. When nothing is set
// the class default applies (remote list for market, builtin list for always-on).
type MSymbolSource struct {
	Symbols []string `yaml:"symbols"`
	File    string   `yaml:"file"`
	URL     string   `yaml:"url"`
	Table   string   `yaml:"table"` // schema.table.field in the postgres storage
	None    bool     `yaml:"none"`
}

// IsDefault reports whether no explicit source was configured.
func (s MSymbolSource) IsDefault() bool {
	return !s.None && len(s.Symbols) == 0 && s.File == "" && s.URL == "" && s.Table == ""
}

type MPublishConfig struct {
	Websocket MWebsocketConfig `yaml:"websocket"`
	Redis     MRedisConfig     `yaml:"redis"`
	Local     MLocalConfig     `yaml:"local"`
}

// MLocalConfig turns on the in-process bus, which logs every message.
type MLocalConfig struct {
	Enabled bool `yaml:"enabled"`
}

type MWebsocketConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

type MRedisConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

type MControlConfig struct {
	GrpcEnabled bool   `yaml:"grpc_enabled"`
	GrpcHost    string `yaml:"grpc_host"`
	GrpcPort    int    `yaml:"grpc_port"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // none, sqlite, postgres
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
	CleanupAt          string `yaml:"cleanup_at"` // HH:MM local, daily
}
