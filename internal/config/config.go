package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"tiger/internal/logging"
)

// ErrInvalidConfig は設定の検証に失敗したときに返される
var ErrInvalidConfig = errors.New("無効な設定")

// DefaultVersion は設定で指定されない場合のバージョン表記
const DefaultVersion = "2.0.0"

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Version string       `yaml:"version" toml:"version" validate:"required"`
	Server  ServerConfig `yaml:"server" toml:"server"`
	Log     LogConfig    `yaml:"log" toml:"log"`
	Cache   CacheConfig  `yaml:"cache" toml:"cache"`
	Admin   AdminConfig  `yaml:"admin" toml:"admin"`
}

// ServerConfig は静的ファイルサーバーの設定
type ServerConfig struct {
	Host       string `yaml:"host" toml:"host"`                                       // リッスンするホスト
	Port       int    `yaml:"port" toml:"port" validate:"min=0,max=65535"`            // リッスンするポート番号（0は自動割り当て）
	RootFolder string `yaml:"root_folder" toml:"root_folder" validate:"required,dir"` // 配信するルートフォルダ
	Workers    int    `yaml:"workers" toml:"workers" validate:"min=1"`                // ワーカー数
	PageHost   string `yaml:"page_host" toml:"page_host"`                             // エラーページに表示するホスト名

	// 1行目の読み込みタイムアウト。0 の場合は無制限
	ReadTimeout Duration `yaml:"read_timeout" toml:"read_timeout" validate:"min=0"`

	// true の場合、ファイルが見つからないときに 404 のステータスラインを返す。
	// false の場合は従来どおり 200 のステータスラインに 404 ページを載せる
	StrictNotFound bool `yaml:"strict_not_found" toml:"strict_not_found"`

	// true の場合、シンボリックリンクを解決したパスがルート外なら 403 を返す
	RejectSymlinkEscape bool `yaml:"reject_symlink_escape" toml:"reject_symlink_escape"`
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level           string   `yaml:"level" toml:"level"`                                        // info / warning / severe
	RuntimeInterval Duration `yaml:"runtime_interval" toml:"runtime_interval" validate:"min=0"` // 稼働時間の出力間隔（0で無効）
}

// CacheConfig はファイル内容キャッシュの設定
type CacheConfig struct {
	Enabled     bool  `yaml:"enabled" toml:"enabled"`
	MaxEntries  int   `yaml:"max_entries" toml:"max_entries" validate:"required_if=Enabled true,min=0"`
	MaxFileSize int64 `yaml:"max_file_size" toml:"max_file_size" validate:"min=0"` // これより大きいファイルはキャッシュしない
}

// AdminConfig は管理用HTTPサーバーの設定
type AdminConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Host    string `yaml:"host" toml:"host"`
	Port    int    `yaml:"port" toml:"port" validate:"min=0,max=65535"`
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Version: DefaultVersion,
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       8080,
			RootFolder: "www",
			Workers:    10,
		},
		Log: LogConfig{
			Level:           "info",
			RuntimeInterval: Duration(5 * time.Minute),
		},
		Cache: CacheConfig{
			Enabled:     false,
			MaxEntries:  256,
			MaxFileSize: 1 << 20, // 1 MB
		},
		Admin: AdminConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    9090,
		},
	}
}

// Load は設定を読み込む。
// デフォルト値 → 設定ファイル（path が空でなければ）→ 環境変数 の順に上書きし、最後に検証する。
func Load(path string) (*Config, error) {
	cfg, err := LoadUnvalidated(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadUnvalidated は Load と同じ順に設定を読み込むが検証は行わない。
// コマンドラインオプションで上書きしてから Validate を呼ぶ場合に使う。
func LoadUnvalidated(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	return cfg, nil
}

// loadFile は拡張子に応じて YAML または TOML の設定ファイルを読み込む
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("%w: 未対応の設定ファイル形式です: %s", ErrInvalidConfig, path)
	}
	if err != nil {
		return fmt.Errorf("設定ファイルの解析に失敗 (%s): %w", path, err)
	}

	return nil
}

// applyEnv は環境変数で設定を上書きする
func (c *Config) applyEnv() {
	c.Server.Host = getEnvOrDefault("TIGER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("TIGER_PORT", c.Server.Port)
	c.Server.RootFolder = getEnvOrDefault("TIGER_ROOT", c.Server.RootFolder)
	c.Server.Workers = getEnvAsIntOrDefault("TIGER_WORKERS", c.Server.Workers)
	c.Log.Level = getEnvOrDefault("TIGER_LOG_LEVEL", c.Log.Level)
	c.Admin.Port = getEnvAsIntOrDefault("TIGER_ADMIN_PORT", c.Admin.Port)
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Admin.Enabled && c.Admin.Port != 0 && c.Admin.Port == c.Server.Port && c.Admin.Host == c.Server.Host {
		return fmt.Errorf("%w: 管理用サーバーと同じアドレスは使えません: %s", ErrInvalidConfig, c.AdminAddress())
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// AdminAddress は管理用サーバーのリッスンアドレスを返す
func (c *Config) AdminAddress() string {
	return fmt.Sprintf("%s:%d", c.Admin.Host, c.Admin.Port)
}

// LogLevel はログレベルを解析して返す
func (c *Config) LogLevel() (logging.Level, error) {
	return logging.ParseLevel(c.Log.Level)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
