package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed config.toml.sample
var configTemplate string

const (
	DefaultAjaxURL        = "/wp-admin/admin-ajax.php"
	DefaultSearchAction   = "gi_unified_search"
	DefaultSuggestAction  = "gi_search_suggest"
	DefaultFavoriteAction = "gi_toggle_favorite"
	DefaultTimeout        = 30 * time.Second
	DefaultDebounce       = 300 * time.Millisecond
	DefaultAnimation      = 200 * time.Millisecond
	DefaultStaggerStep    = 50 * time.Millisecond
	DefaultSessionTTL     = 12 * time.Hour
	DefaultMinSuggestLen  = 2
)

type Config struct {
	Debug    bool           `toml:"debug"`
	Locale   string         `toml:"locale"`
	Timeout  Duration       `toml:"timeout"`
	Endpoint EndpointConfig `toml:"endpoint"`
	UI       UIConfig       `toml:"ui"`
	Elements ElementsConfig `toml:"elements"`
	Cache    CacheConfig    `toml:"cache"`
	Strings  Strings        `toml:"strings"`
	Storage  StorageConfig  `toml:"storage"`
	Form     FormConfig     `toml:"form"`
}

// EndpointConfig describes the CMS AJAX endpoint the controller talks to.
type EndpointConfig struct {
	AjaxURL        string `toml:"ajax_url"`
	Nonce          string `toml:"nonce"`
	SearchAction   string `toml:"search_action"`
	SuggestAction  string `toml:"suggest_action"`
	FavoriteAction string `toml:"favorite_action"`
}

type UIConfig struct {
	ShowLoadingOnSearch bool     `toml:"show_loading_on_search"`
	EnableAutoComplete  bool     `toml:"enable_autocomplete"`
	DebounceDelay       Duration `toml:"debounce_delay"`
	AnimationDuration   Duration `toml:"animation_duration"`
	StaggerStep         Duration `toml:"stagger_step"`
	MinSuggestLength    int      `toml:"min_suggest_length"`
}

// ElementsConfig lists the element ids of the search page.
type ElementsConfig struct {
	SearchInputs     []string      `toml:"search_inputs"`
	Filters          FiltersConfig `toml:"filters"`
	SortSelect       string        `toml:"sort_select"`
	PerPageSelect    string        `toml:"per_page_select"`
	ResultsContainer string        `toml:"results_container"`
	Pagination       string        `toml:"pagination"`
	LoadingIndicator string        `toml:"loading_indicator"`
}

type FiltersConfig struct {
	Amount   []string `toml:"amount"`
	Status   []string `toml:"status"`
	Industry []string `toml:"industry"`
	Region   []string `toml:"region"`
}

// ByName returns the filter ids keyed by request field name.
func (f FiltersConfig) ByName() map[string][]string {
	return map[string][]string{
		"amount":   f.Amount,
		"status":   f.Status,
		"industry": f.Industry,
		"region":   f.Region,
	}
}

// FormConfig lists the choices offered by the search form the web host
// serves. The first sort and page size entries are the initial selection.
type FormConfig struct {
	Amount   []Option `toml:"amount"`
	Status   []Option `toml:"status"`
	Industry []Option `toml:"industry"`
	Region   []Option `toml:"region"`
	OrderBy  []Option `toml:"orderby"`
	PerPage  []Option `toml:"per_page"`
}

type Option struct {
	Value string `toml:"value"`
	Label string `toml:"label"`
}

// ByName returns the filter choices keyed by request field name.
func (f FormConfig) ByName() map[string][]Option {
	return map[string][]Option{
		"amount":   f.Amount,
		"status":   f.Status,
		"industry": f.Industry,
		"region":   f.Region,
	}
}

var defaultForm = FormConfig{
	Amount: []Option{
		{"0-100", "〜100万円"},
		{"100-500", "100万〜500万円"},
		{"500-1000", "500万〜1000万円"},
		{"1000-", "1000万円以上"},
	},
	Status: []Option{
		{"open", "募集中"},
		{"upcoming", "募集予定"},
		{"closed", "募集終了"},
	},
	Industry: []Option{
		{"manufacturing", "製造業"},
		{"it", "情報通信業"},
		{"retail", "小売業"},
		{"service", "サービス業"},
		{"agriculture", "農林水産業"},
	},
	Region: []Option{
		{"hokkaido", "北海道"},
		{"tohoku", "東北"},
		{"kanto", "関東"},
		{"chubu", "中部"},
		{"kinki", "近畿"},
		{"chugoku-shikoku", "中国・四国"},
		{"kyushu", "九州・沖縄"},
	},
	OrderBy: []Option{
		{"date_desc", "新着順"},
		{"amount_desc", "金額が高い順"},
		{"deadline_asc", "締切が近い順"},
		{"popular", "人気順"},
	},
	PerPage: []Option{
		{"12", "12件"},
		{"24", "24件"},
		{"48", "48件"},
	},
}

type CacheConfig struct {
	// MaxEntries bounds the response cache. Zero keeps it unbounded for the
	// lifetime of the page.
	MaxEntries   int  `toml:"max_entries"`
	ClearOnReset bool `toml:"clear_on_reset"`
}

// Strings holds the localized messages shown in the results area. Empty
// fields fall back to the built-in catalog for Locale.
type Strings struct {
	NoResults     string `toml:"no_results"`
	SearchFailed  string `toml:"search_failed"`
	RequestFailed string `toml:"request_failed"`
	Loading       string `toml:"loading"`
}

type StorageConfig struct {
	Dir        string   `toml:"dir"`
	SessionTTL Duration `toml:"session_ttl"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

var catalogs = map[language.Tag]Strings{
	language.Japanese: {
		NoResults:     "該当する助成金が見つかりませんでした",
		SearchFailed:  "検索に失敗しました",
		RequestFailed: "検索リクエストに失敗しました",
		Loading:       "検索中...",
	},
	language.English: {
		NoResults:     "No results found",
		SearchFailed:  "Search failed",
		RequestFailed: "Search request failed",
		Loading:       "Loading...",
	},
}

// English is first so unknown locales fall back to it.
var (
	supportedLocales = []language.Tag{language.English, language.Japanese}
	localeMatcher    = language.NewMatcher(supportedLocales)
)

// ResolvedStrings returns Strings with every empty field filled from the
// catalog that best matches Locale.
func (c *Config) ResolvedStrings() Strings {
	tag := language.English
	if c.Locale != "" {
		if parsed, err := language.Parse(c.Locale); err == nil {
			_, idx, _ := localeMatcher.Match(parsed)
			tag = supportedLocales[idx]
		}
	}
	base := catalogs[tag]
	s := c.Strings
	if s.NoResults == "" {
		s.NoResults = base.NoResults
	}
	if s.SearchFailed == "" {
		s.SearchFailed = base.SearchFailed
	}
	if s.RequestFailed == "" {
		s.RequestFailed = base.RequestFailed
	}
	if s.Loading == "" {
		s.Loading = base.Loading
	}
	return s
}

func GetDefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.UI.ShowLoadingOnSearch = true
	cfg.UI.EnableAutoComplete = true
	return cfg
}

func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a TOML document and fills in defaults for anything left unset.
func Parse(data []byte) (*Config, error) {
	config := Config{
		UI: UIConfig{
			ShowLoadingOnSearch: true,
			EnableAutoComplete:  true,
		},
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Timeout.Duration <= 0 {
		c.Timeout = Duration{DefaultTimeout}
	}
	if c.Endpoint.AjaxURL == "" {
		c.Endpoint.AjaxURL = DefaultAjaxURL
	}
	if c.Endpoint.SearchAction == "" {
		c.Endpoint.SearchAction = DefaultSearchAction
	}
	if c.Endpoint.SuggestAction == "" {
		c.Endpoint.SuggestAction = DefaultSuggestAction
	}
	if c.Endpoint.FavoriteAction == "" {
		c.Endpoint.FavoriteAction = DefaultFavoriteAction
	}
	if c.UI.DebounceDelay.Duration <= 0 {
		c.UI.DebounceDelay = Duration{DefaultDebounce}
	}
	if c.UI.AnimationDuration.Duration <= 0 {
		c.UI.AnimationDuration = Duration{DefaultAnimation}
	}
	if c.UI.StaggerStep.Duration <= 0 {
		c.UI.StaggerStep = Duration{DefaultStaggerStep}
	}
	if c.UI.MinSuggestLength <= 0 {
		c.UI.MinSuggestLength = DefaultMinSuggestLen
	}
	if c.Cache.MaxEntries < 0 {
		c.Cache.MaxEntries = 0
	}
	if c.Storage.SessionTTL.Duration <= 0 {
		c.Storage.SessionTTL = Duration{DefaultSessionTTL}
	}

	f := &c.Form
	if f.Amount == nil {
		f.Amount = defaultForm.Amount
	}
	if f.Status == nil {
		f.Status = defaultForm.Status
	}
	if f.Industry == nil {
		f.Industry = defaultForm.Industry
	}
	if f.Region == nil {
		f.Region = defaultForm.Region
	}
	if len(f.OrderBy) == 0 {
		f.OrderBy = defaultForm.OrderBy
	}
	if len(f.PerPage) == 0 {
		f.PerPage = defaultForm.PerPage
	}

	e := &c.Elements
	if len(e.SearchInputs) == 0 {
		e.SearchInputs = []string{"gi-search-input-unified-main"}
	}
	if e.Filters.Amount == nil {
		e.Filters.Amount = []string{"amount-filter"}
	}
	if e.Filters.Status == nil {
		e.Filters.Status = []string{"status-filter"}
	}
	if e.Filters.Industry == nil {
		e.Filters.Industry = []string{"industry-filter"}
	}
	if e.Filters.Region == nil {
		e.Filters.Region = []string{"region-filter"}
	}
	if e.SortSelect == "" {
		e.SortSelect = "sort-order"
	}
	if e.PerPageSelect == "" {
		e.PerPageSelect = "per-page-select"
	}
	if e.ResultsContainer == "" {
		e.ResultsContainer = "search-results-unified"
	}
	if e.Pagination == "" {
		e.Pagination = "pagination-unified"
	}
	if e.LoadingIndicator == "" {
		e.LoadingIndicator = "search-loading"
	}
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveTemplateConfig writes the commented sample configuration.
func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template := configTemplate
	if c.Storage.Dir != "" {
		template = strings.Replace(template, `dir = ""`, fmt.Sprintf("dir = %q", c.Storage.Dir), 1)
	}
	return os.WriteFile(configPath, []byte(template), 0644)
}

// StorageDir returns the configured storage directory or the default one,
// creating it when needed.
func (c *Config) StorageDir() (string, error) {
	if c.Storage.Dir != "" {
		if err := os.MkdirAll(c.Storage.Dir, 0755); err != nil {
			return "", fmt.Errorf("creating storage directory %s: %w", c.Storage.Dir, err)
		}
		return c.Storage.Dir, nil
	}
	return GetDefaultStorageDir()
}

// GetDefaultStorageDir returns the default storage directory for databases
func GetDefaultStorageDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	dir := filepath.Join(dataDir, "gisearch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetConfigDir returns the configuration directory for gisearch
func GetConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "gisearch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
