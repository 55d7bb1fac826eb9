package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config 聚合客户端的全部配置项。
type Config struct {
	Client ClientConfig
	Server ServerConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	client, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Client: client, Server: server}, nil
}

// ClientConfig 描述访问远端助手服务所需的配置。
type ClientConfig struct {
	APIKey       string
	BaseURL      string
	Title        string
	ShowImages   bool
	AudioAnswers bool
}

// loadClientConfig 解析客户端配置，API key 与基础地址为必填项。
func loadClientConfig() (ClientConfig, error) {
	apiKey := strings.TrimSpace(os.Getenv("NYMIA_API_KEY"))
	if apiKey == "" {
		return ClientConfig{}, fmt.Errorf("NYMIA_API_KEY is required")
	}

	baseURL := strings.TrimSpace(os.Getenv("NYMIA_BASE_URL"))
	if baseURL == "" {
		return ClientConfig{}, fmt.Errorf("NYMIA_BASE_URL is required")
	}

	showImages, err := parseBoolEnv("NYMIA_SHOW_IMAGES", false)
	if err != nil {
		return ClientConfig{}, err
	}

	audioAnswers, err := parseBoolEnv("NYMIA_AUDIO_ANSWERS", false)
	if err != nil {
		return ClientConfig{}, err
	}

	return ClientConfig{
		APIKey:       apiKey,
		BaseURL:      baseURL,
		Title:        getEnvOrDefault("NYMIA_APP_TITLE", "AI Assistant"),
		ShowImages:   showImages,
		AudioAnswers: audioAnswers,
	}, nil
}

// ServerConfig 描述本地联调 stub 服务的监听配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
