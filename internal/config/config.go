package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envPrefix 所有 chatsync 环境变量的公共前缀。
const envPrefix = "CHATSYNC"

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Socket  SocketConfig
	Log     LogConfig
	Auth    AuthConfig
}

// Load 从环境变量加载配置。调用方负责提前加载 .env。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	var cfg Config
	cfg.Server = server

	if err := envconfig.Process(envPrefix, &cfg.Backend); err != nil {
		return nil, fmt.Errorf("load backend config: %w", err)
	}
	if err := envconfig.Process(envPrefix, &cfg.Socket); err != nil {
		return nil, fmt.Errorf("load socket config: %w", err)
	}
	if err := envconfig.Process(envPrefix, &cfg.Log); err != nil {
		return nil, fmt.Errorf("load log config: %w", err)
	}
	if err := envconfig.Process(envPrefix, &cfg.Auth); err != nil {
		return nil, fmt.Errorf("load auth config: %w", err)
	}

	if err := cfg.Backend.validate(); err != nil {
		return nil, err
	}
	if cfg.Socket.URL == "" {
		cfg.Socket.URL = socketURLFromAPI(cfg.Backend.APIURL)
	}

	return &cfg, nil
}

// ServerConfig 描述本地适配层 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8090"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8090" 或 "127.0.0.1:8090"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// BackendConfig 描述远端 REST API。
type BackendConfig struct {
	APIURL  string        `envconfig:"API_URL" default:"http://127.0.0.1:8000"`
	Timeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`
}

// BaseURL 返回 REST 接口根路径，例如 http://127.0.0.1:8000/api。
func (c BackendConfig) BaseURL() string {
	return strings.TrimRight(c.APIURL, "/") + "/api"
}

func (c BackendConfig) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid %s_API_URL value %q: %w", envPrefix, c.APIURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s_API_URL value %q: scheme must be http or https", envPrefix, c.APIURL)
	}
	return nil
}

// SocketConfig 描述 WebSocket 连接参数。
type SocketConfig struct {
	// URL 为空时根据 API_URL 推导 (http→ws, https→wss)。
	URL              string        `envconfig:"WS_URL"`
	HandshakeTimeout time.Duration `envconfig:"WS_HANDSHAKE_TIMEOUT" default:"10s"`
	PingInterval     time.Duration `envconfig:"WS_PING_INTERVAL" default:"30s"`
	PongWait         time.Duration `envconfig:"WS_PONG_WAIT" default:"60s"`
	WriteTimeout     time.Duration `envconfig:"WS_WRITE_TIMEOUT" default:"10s"`
	MaxMessageSize   int64         `envconfig:"WS_MAX_MESSAGE_SIZE" default:"65536"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// AuthConfig 可选的启动时登录凭证。
type AuthConfig struct {
	AccessToken string `envconfig:"ACCESS_TOKEN"`
	UserID      int64  `envconfig:"USER_ID"`
}

// Enabled 表示是否在启动时自动登录。
func (c AuthConfig) Enabled() bool {
	return strings.TrimSpace(c.AccessToken) != ""
}

func socketURLFromAPI(apiURL string) string {
	trimmed := strings.TrimRight(apiURL, "/")
	switch {
	case strings.HasPrefix(trimmed, "https://"):
		return "wss://" + strings.TrimPrefix(trimmed, "https://")
	case strings.HasPrefix(trimmed, "http://"):
		return "ws://" + strings.TrimPrefix(trimmed, "http://")
	default:
		return trimmed
	}
}
