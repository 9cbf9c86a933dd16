package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Storage   StorageConfig   `mapstructure:"storage"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Whisper   WhisperConfig   `mapstructure:"whisper"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	OAuth     OAuthConfig     `mapstructure:"oauth"`
	Email     EmailConfig     `mapstructure:"email"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Cache     CacheConfig     `mapstructure:"cache"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Security  SecurityConfig  `mapstructure:"security"`
}

type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Mode          string `mapstructure:"mode"`
	PublicBaseURL string `mapstructure:"public_base_url"` // 用于生成密码重置链接
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql, postgres, sqlite
	URL          string `mapstructure:"url"`    // 完整 DSN，优先于下面的分项配置
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret          string `mapstructure:"secret"`
	ExpireHours     int    `mapstructure:"expire_hours"`
	ResetExpireMins int    `mapstructure:"reset_expire_minutes"`
}

type StorageConfig struct {
	Backend   string      `mapstructure:"backend"` // minio, oss, local
	LocalRoot string      `mapstructure:"local_root"`
	Minio     MinioConfig `mapstructure:"minio"`
	OSS       OSSConfig   `mapstructure:"oss"`
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketPrefix    string `mapstructure:"bucket_prefix"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	ChatModel   string  `mapstructure:"chat_model"`
	Temperature float32 `mapstructure:"temperature"`
}

type WhisperConfig struct {
	Backend    string `mapstructure:"backend"` // local, openai
	Command    string `mapstructure:"command"`
	Device     string `mapstructure:"device"`
	ModelDir   string `mapstructure:"model_dir"`
	TimeoutMin int    `mapstructure:"timeout_minutes"`
}

type ToolsConfig struct {
	YtDlpPath  string `mapstructure:"ytdlp_path"`
	FFmpegPath string `mapstructure:"ffmpeg_path"`
}

type OAuthConfig struct {
	Github GithubOAuthConfig `mapstructure:"github"`
}

type GithubOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type QueueConfig struct {
	TranscriptionQueue string `mapstructure:"transcription_queue"`
	MaxWorkers         int    `mapstructure:"max_workers"`
}

type CacheConfig struct {
	YouTubeTTLSeconds int `mapstructure:"youtube_ttl_seconds"` // 同一链接的提取结果复用时长
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type UploadConfig struct {
	TempDir     string `mapstructure:"temp_dir"`     // 临时目录
	ExpireHours int    `mapstructure:"expire_hours"` // 过期时间（小时）
}

type SecurityConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"` // 用户 API Key 加密密钥
}

func Load(configPath string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 未在配置文件中出现的 key 需要显式绑定才能被 Unmarshal 读取
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("security.encryption_key", "SECURITY_ENCRYPTION_KEY")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "transcriptflow.db")
	v.SetDefault("jwt.expire_hours", 24*7)
	v.SetDefault("jwt.reset_expire_minutes", 60)
	v.SetDefault("storage.backend", "minio")
	v.SetDefault("storage.local_root", "local_storage")
	v.SetDefault("openai.chat_model", "gpt-3.5-turbo")
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("whisper.backend", "local")
	v.SetDefault("whisper.command", "whisper")
	v.SetDefault("whisper.timeout_minutes", 60)
	v.SetDefault("tools.ytdlp_path", "yt-dlp")
	v.SetDefault("tools.ffmpeg_path", "ffmpeg")
	v.SetDefault("queue.transcription_queue", "transcription_queue")
	v.SetDefault("queue.max_workers", 2)
	v.SetDefault("cache.youtube_ttl_seconds", 3600)
	v.SetDefault("rate_limit.requests_per_minute", 30)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("upload.temp_dir", filepath.Join(os.TempDir(), "transcriptflow"))
	v.SetDefault("upload.expire_hours", 6)
}
