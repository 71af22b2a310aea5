package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/wfunc/monopoly-server/internal/errors"
)

// Config 全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Game      GameConfig      `mapstructure:"game"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	OpenAPIPath     string        `mapstructure:"openapi_path"`
}

// DatabaseConfig 数据库配置（仅用于对局流水记录）
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	JournalBuffer   int           `mapstructure:"journal_buffer"`
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	Path              string        `mapstructure:"path"`
	ReadBufferSize    int           `mapstructure:"read_buffer_size"`
	WriteBufferSize   int           `mapstructure:"write_buffer_size"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
	PingInterval      time.Duration `mapstructure:"ping_interval"`
	PongTimeout       time.Duration `mapstructure:"pong_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	EnableCompression bool          `mapstructure:"enable_compression"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
}

// GameConfig 游戏规则配置
type GameConfig struct {
	InitialCash  int   `mapstructure:"initial_cash"`
	InitialField int   `mapstructure:"initial_field"`
	GoCash       int   `mapstructure:"go_cash"`
	JailFine     int   `mapstructure:"jail_fine"`
	MaxJailRolls int   `mapstructure:"max_jail_rolls"`
	MinPlayers   int   `mapstructure:"min_players"`
	MaxPlayers   int   `mapstructure:"max_players"`
	DiceCount    int   `mapstructure:"dice_count"`
	DiceSides    int   `mapstructure:"dice_sides"`
	Seed         int64 `mapstructure:"seed"` // 0 表示使用随机种子
}

// Validate 校验游戏规则
func (g GameConfig) Validate() error {
	switch {
	case g.MaxPlayers < 2 || g.MaxPlayers > 4:
		return errors.Newf(errors.ErrConfigValidate, "max_players 必须在 2..4 之间: %d", g.MaxPlayers)
	case g.MinPlayers < 2 || g.MinPlayers > g.MaxPlayers:
		return errors.Newf(errors.ErrConfigValidate, "min_players 无效: %d", g.MinPlayers)
	case g.DiceCount < 1:
		return errors.Newf(errors.ErrConfigValidate, "dice_count 无效: %d", g.DiceCount)
	case g.DiceSides < 2:
		return errors.Newf(errors.ErrConfigValidate, "dice_sides 无效: %d", g.DiceSides)
	case g.InitialField < 0 || g.InitialField > 39:
		return errors.Newf(errors.ErrConfigValidate, "initial_field 无效: %d", g.InitialField)
	case g.MaxJailRolls < 1:
		return errors.Newf(errors.ErrConfigValidate, "max_jail_rolls 无效: %d", g.MaxJailRolls)
	}
	return nil
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化全局配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		var loaded *Config
		v, loaded, err = load(configPath)
		if err != nil {
			return
		}
		mu.Lock()
		cfg = loaded
		mu.Unlock()
	})

	return err
}

// Load 读取配置文件并返回独立的配置实例（不影响全局配置）
func Load(configPath string) (*Config, error) {
	_, c, err := load(configPath)
	return c, err
}

func load(configPath string) (*viper.Viper, *Config, error) {
	vp := viper.New()

	// 设置配置文件路径
	if configPath != "" {
		vp.SetConfigFile(configPath)
	} else {
		vp.SetConfigName("config")
		vp.SetConfigType("yaml")
		vp.AddConfigPath("./config")
		vp.AddConfigPath(".")
	}

	// 设置环境变量前缀
	vp.SetEnvPrefix("MONOPOLY")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	setDefaults(vp)

	// 配置文件不存在时使用默认配置
	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, errors.Wrap(err, errors.ErrConfigLoad, configPath)
		}
	}

	c := &Config{}
	if err := vp.Unmarshal(c); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrConfigParse)
	}

	if err := c.Game.Validate(); err != nil {
		return nil, nil, err
	}

	return vp, c, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.openapi_path", "docs/api/openapi.yaml")

	// 数据库默认配置
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/monopoly.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.journal_buffer", 256)

	// WebSocket默认配置
	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.max_message_size", 8192)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.enable_compression", false)
	v.SetDefault("websocket.allowed_origins", []string{})

	// 游戏规则默认配置
	v.SetDefault("game.initial_cash", 1500)
	v.SetDefault("game.initial_field", 0)
	v.SetDefault("game.go_cash", 200)
	v.SetDefault("game.jail_fine", 50)
	v.SetDefault("game.max_jail_rolls", 3)
	v.SetDefault("game.min_players", 2)
	v.SetDefault("game.max_players", 4)
	v.SetDefault("game.dice_count", 2)
	v.SetDefault("game.dice_sides", 6)
	v.SetDefault("game.seed", 0)

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "monopoly.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	if v == nil {
		return
	}
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}
		if err := newCfg.Game.Validate(); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}

		mu.Lock()
		cfg = newCfg
		mu.Unlock()

		if callback != nil {
			callback(newCfg)
		}

		fmt.Printf("配置已重新加载: %s\n", e.Name)
	})
}

