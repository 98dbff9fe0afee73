package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
	CORSOrigins     []string `mapstructure:"corsOrigins"`
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type Log struct {
	Level string
	JSON  bool
	// File 非空时按 lumberjack 轮转写文件
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

func (j JWT) TTL() time.Duration { return time.Duration(j.AccessTokenTTLMin) * time.Minute }

type Redis struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	FormTTLSec int    `mapstructure:"formTTLSec"`
}

// Store 持久化配置；driver=memory 时只有内存库
type Store struct {
	Driver             string // mongo | postgres | mysql | memory
	URI                string
	Database           string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	OpTimeoutMs        int
	ProbeIntervalSec   int
	AutoMigrate        bool
	LogLevel           string
}

func (s Store) OpTimeout() time.Duration { return time.Duration(s.OpTimeoutMs) * time.Millisecond }
func (s Store) ProbeInterval() time.Duration {
	return time.Duration(s.ProbeIntervalSec) * time.Second
}

// Blob 是 S3 兼容的对象存储（R2 / S3 / MinIO），Bucket 为空表示未启用
type Blob struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	Endpoint        string
	PresignTTLSec   int
}

func (b Blob) Enabled() bool { return b.Bucket != "" && b.AccessKeyID != "" }

type Limits struct {
	RPS          float64
	Burst        int
	SubmitRPS    float64
	SubmitBurst  int
	Concurrency  int64
	MaxBodyBytes int64
	TimeoutSec   int
}

type Config struct {
	App    App
	Log    Log
	JWT    JWT
	Store  Store
	Redis  Redis `mapstructure:"redis"`
	Blob   Blob
	Limits Limits
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "formcraft")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 5000)
	v.SetDefault("app.http.readTimeoutSec", 10)
	v.SetDefault("app.http.writeTimeoutSec", 15)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.http.corsOrigins", []string{})
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 5001)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.maxSizeMB", 100)
	v.SetDefault("log.maxBackups", 7)
	v.SetDefault("log.maxAgeDays", 14)

	// 没有默认值的 key 也要登记，否则 AutomaticEnv 在 Unmarshal 时看不到
	for _, k := range []string{
		"log.file", "jwt.secret", "store.username", "store.password",
		"redis.addr", "redis.password",
		"blob.accountID", "blob.accessKeyID", "blob.secretAccessKey", "blob.bucket", "blob.endpoint",
	} {
		v.SetDefault(k, "")
	}
	v.SetDefault("log.json", false)
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.issuer", "formcraft")
	v.SetDefault("jwt.accessTokenTTLMin", 24*60)

	v.SetDefault("store.driver", "mongo")
	v.SetDefault("store.uri", "mongodb://localhost:27017")
	v.SetDefault("store.database", "formcraft")
	v.SetDefault("store.maxOpenConns", 20)
	v.SetDefault("store.maxIdleConns", 10)
	v.SetDefault("store.connMaxLifetimeMin", 30)
	v.SetDefault("store.opTimeoutMs", 3000)
	v.SetDefault("store.probeIntervalSec", 15)
	v.SetDefault("store.autoMigrate", true)
	v.SetDefault("store.logLevel", "warn")

	v.SetDefault("redis.formTTLSec", 60)

	v.SetDefault("blob.region", "auto")
	v.SetDefault("blob.presignTTLSec", 900)

	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.submitRPS", 1)
	v.SetDefault("limits.submitBurst", 10)
	v.SetDefault("limits.concurrency", 300)
	v.SetDefault("limits.maxBodyBytes", 16<<20)
	v.SetDefault("limits.timeoutSec", 10)
}

// Read 读配置文件 + APP_ 环境变量；文件不存在时只用默认值和环境变量
func Read(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Load 同 Read，出错直接退出；签名密钥为空也拒绝启动
func Load(path string) *Config {
	c, err := Read(path)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		log.Fatalf("config: jwt.secret is required (set APP_JWT_SECRET)")
	}
	return c
}
