package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"skillsched/internal/schedule"
)

// EnvPrefix prefixes every environment override, e.g. SKILLSCHED_LISTEN.
const EnvPrefix = "SKILLSCHED_"

// ICSConfig describes an ICS feed whose events can be imported as
// scheduled actions.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url" validate:"required,url"`
	// ID is used for de-dup and logging.
	ID string `yaml:"id" json:"id" validate:"required"`
	// Channel receives the imported actions when set; otherwise the
	// import command's --channel applies.
	Channel string `yaml:"channel,omitempty" json:"channel,omitempty"`
}

// ChannelConfig describes a chat channel scheduled actions can post to.
type ChannelConfig struct {
	ID          string `yaml:"id" json:"id" validate:"required"`
	Name        string `yaml:"name" json:"name"`
	Context     string `yaml:"context,omitempty" json:"context,omitempty"`
	Private     bool   `yaml:"private,omitempty" json:"private,omitempty"`
	Archived    bool   `yaml:"archived,omitempty" json:"archived,omitempty"`
	ReadOnly    bool   `yaml:"read_only,omitempty" json:"read_only,omitempty"`
	ExcludesBot bool   `yaml:"excludes_bot,omitempty" json:"excludes_bot,omitempty"`
}

func (c ChannelConfig) ScheduleChannel() schedule.ScheduleChannel {
	return schedule.ScheduleChannel{
		ID:               c.ID,
		Name:             c.Name,
		Context:          c.Context,
		IsBotMember:      !c.ExcludesBot,
		IsPrivateChannel: c.Private,
		IsArchived:       c.Archived,
		IsReadOnly:       c.ReadOnly,
	}
}

// SkillConfig describes a skill (behavior group) the API can filter
// scheduled actions by.
type SkillConfig struct {
	ID        string           `yaml:"id" json:"id" validate:"required"`
	Name      string           `yaml:"name" json:"name"`
	Behaviors []BehaviorConfig `yaml:"behaviors,omitempty" json:"behaviors,omitempty" validate:"dive"`
}

// BehaviorConfig is one action of a skill and the message text that
// starts it.
type BehaviorConfig struct {
	ID       string   `yaml:"id" json:"id" validate:"required"`
	Name     string   `yaml:"name" json:"name"`
	Triggers []string `yaml:"triggers,omitempty" json:"triggers,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" validate:"required"`
	Password string `yaml:"password" json:"password" validate:"required"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" validate:"required,hostname_port"`

	// Timezone is the IANA zone given to new scheduled actions
	// (e.g. "America/New_York").
	Timezone string `yaml:"timezone" json:"timezone" validate:"required,timezone"`

	// TimezoneName is the label shown next to Timezone, e.g. "Eastern Time".
	TimezoneName string `yaml:"timezone_name" json:"timezone_name"`

	// StorePath is the JSON file holding scheduled actions.
	StorePath string `yaml:"store_path" json:"store_path" validate:"required"`

	// ICSCacheDir keeps the last good body of every ICS feed.
	ICSCacheDir string `yaml:"ics_cache_dir" json:"ics_cache_dir"`

	// Tick is the cron spec the runner checks for due actions on.
	Tick string `yaml:"tick" json:"tick" validate:"required,cronspec"`

	// PreviewCount is how many upcoming runs validation previews show.
	PreviewCount int `yaml:"preview_count" json:"preview_count" validate:"min=1,max=50"`

	LogLevel  string `yaml:"log_level" json:"log_level" validate:"oneof=DEBUG INFO ERROR"`
	LogFormat string `yaml:"log_format" json:"log_format" validate:"oneof=console json"`

	// CORSOrigins lists origins allowed to call the API from a browser.
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`

	// Channels are the channels the API groups scheduled actions by.
	Channels []ChannelConfig `yaml:"channels" json:"channels" validate:"dive"`

	// Skills let the API match message actions to the skill their
	// trigger starts.
	Skills []SkillConfig `yaml:"skills" json:"skills" validate:"dive"`

	// ICS is the list of feeds available to import-ics.
	ICS []ICSConfig `yaml:"ics" json:"ics" validate:"dive"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty" validate:"omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		Timezone:     "UTC",
		TimezoneName: "",
		StorePath:    "scheduled-actions.json",
		ICSCacheDir:  "",
		Tick:         "* * * * *",
		PreviewCount: 5,
		LogLevel:     "INFO",
		LogFormat:    "console",
		CORSOrigins:  []string{},
		Channels:     []ChannelConfig{},
		Skills:       []SkillConfig{},
		ICS:          []ICSConfig{},
		BasicAuth:    nil,
	}
}

// Normalize fills in missing or zero values so partially-filled configs
// still behave.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.StorePath == "" {
		c.StorePath = d.StorePath
	}
	if c.Tick == "" {
		c.Tick = d.Tick
	}
	if c.PreviewCount <= 0 {
		c.PreviewCount = d.PreviewCount
	}
	c.LogLevel = strings.ToUpper(c.LogLevel)
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	c.LogFormat = strings.ToLower(c.LogFormat)
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
	if c.CORSOrigins == nil {
		c.CORSOrigins = []string{}
	}
	if c.Channels == nil {
		c.Channels = []ChannelConfig{}
	}
	if c.Skills == nil {
		c.Skills = []SkillConfig{}
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// BehaviorGroups converts the configured skills for grouping.
func (c *Config) BehaviorGroups() []schedule.BehaviorGroup {
	out := make([]schedule.BehaviorGroup, 0, len(c.Skills))
	for _, sk := range c.Skills {
		g := schedule.BehaviorGroup{ID: sk.ID, Name: sk.Name, Behaviors: make([]schedule.Behavior, 0, len(sk.Behaviors))}
		for _, b := range sk.Behaviors {
			g.Behaviors = append(g.Behaviors, schedule.Behavior{ID: b.ID, Name: b.Name})
		}
		out = append(out, g)
	}
	return out
}

// Triggers collects the trigger texts of every configured behavior. Text
// shared by several behaviors yields one trigger listing all of them.
func (c *Config) Triggers() []schedule.Trigger {
	var out []schedule.Trigger
	index := make(map[string]int)
	for _, sk := range c.Skills {
		for _, b := range sk.Behaviors {
			for _, text := range b.Triggers {
				i, ok := index[text]
				if !ok {
					i = len(out)
					index[text] = i
					out = append(out, schedule.Trigger{Text: text})
				}
				out[i].BehaviorIDs = append(out[i].BehaviorIDs, b.ID)
			}
		}
	}
	return out
}

// ScheduleChannels converts the configured channels for grouping and export.
func (c *Config) ScheduleChannels() []schedule.ScheduleChannel {
	out := make([]schedule.ScheduleChannel, 0, len(c.Channels))
	for _, ch := range c.Channels {
		out = append(out, ch.ScheduleChannel())
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("cronspec", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// LoadEnvFile reads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from SKILLSCHED_* variables found by lookup,
// normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	str("LISTEN", &c.Listen)
	str("TIMEZONE", &c.Timezone)
	str("TIMEZONE_NAME", &c.TimezoneName)
	str("STORE_PATH", &c.StorePath)
	str("ICS_CACHE_DIR", &c.ICSCacheDir)
	str("TICK", &c.Tick)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	if v, ok := lookup(EnvPrefix + "PREVIEW_COUNT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %sPREVIEW_COUNT: %w", EnvPrefix, err)
		}
		c.PreviewCount = n
	}
	if v, ok := lookup(EnvPrefix + "CORS_ORIGINS"); ok {
		c.CORSOrigins = []string{}
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}

	user, hasUser := lookup(EnvPrefix + "BASIC_AUTH_USERNAME")
	pass, hasPass := lookup(EnvPrefix + "BASIC_AUTH_PASSWORD")
	if hasUser || hasPass {
		if c.BasicAuth == nil {
			c.BasicAuth = &BasicAuthConfig{}
		}
		if hasUser {
			c.BasicAuth.Username = user
		}
		if hasPass {
			c.BasicAuth.Password = pass
		}
	}
	c.Normalize()
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     permissions and returned.
//   - Otherwise the YAML is read and normalized.
//
// Environment overrides are applied afterwards and the result validated.
// They are never written back to the file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run: create default config file.
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		cfg.Normalize()
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path atomically (temp file, sync, rename) with 0600
// permissions, creating the parent directory with 0700.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".skillsched-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
