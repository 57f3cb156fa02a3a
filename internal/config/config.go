package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/crmchat/internal/logger"
)

// loadEnv читает .env только вне production (в prod конфиг только из env).
// Файл ищется в текущей директории и до четырёх уровней вверх.
func loadEnv() {
	if os.Getenv("APP_ENV") == "production" {
		return
	}
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			// godotenv.Load не перезаписывает уже заданные переменные окружения.
			if err := godotenv.Load(path); err != nil {
				logger.Errorf("config: .env %s: %v", path, err)
			}
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// Config содержит настройки клиента: адреса бэкенда, личность, пороги ленты, кеш и логи.
// Приоритет: переменные окружения > YAML-файл > значения по умолчанию.
type Config struct {
	// Бэкенд
	APIBaseURL   string
	RealtimeURL  string
	SessionToken string
	HTTPTimeout  time.Duration
	// Ограничение исходящих REST-запросов (в секунду); 0 — без ограничения
	RequestsPerSecond int

	// Личность пользователя (передаётся явно в ленту, не читается из глобального состояния)
	UserID   string
	UserName string

	// Лента сообщений
	PageSize            int
	NearTopThreshold    int
	NearBottomThreshold int
	TypingStopDelay     time.Duration

	// Вложения
	AttachmentsLimit int
	DownloadDir      string

	// Кеш (отделы, роли, списки вложений). RedisURL пустой — кеш в памяти.
	CacheTTL time.Duration
	RedisURL string

	// Логирование
	LogLevel string
	LogFile  string
}

// yamlConfig — промежуточная структура для парсинга YAML.
type yamlConfig struct {
	APIBaseURL          string `yaml:"api_base_url"`
	RealtimeURL         string `yaml:"realtime_url"`
	SessionToken        string `yaml:"session_token"`
	HTTPTimeout         int    `yaml:"http_timeout"`
	RequestsPerSecond   *int   `yaml:"requests_per_second"`
	UserID              string `yaml:"user_id"`
	UserName            string `yaml:"user_name"`
	PageSize            int    `yaml:"page_size"`
	NearTopThreshold    int    `yaml:"near_top_threshold"`
	NearBottomThreshold int    `yaml:"near_bottom_threshold"`
	TypingStopDelayMS   int    `yaml:"typing_stop_delay_ms"`
	AttachmentsLimit    int    `yaml:"attachments_limit"`
	DownloadDir         string `yaml:"download_dir"`
	CacheTTLMinutes     int    `yaml:"cache_ttl_minutes"`
	RedisURL            string `yaml:"redis_url"`
	LogLevel            string `yaml:"log_level"`
	LogFile             string `yaml:"log_file"`
}

func defaults() yamlConfig {
	return yamlConfig{
		APIBaseURL:          "http://localhost:8080/api",
		HTTPTimeout:         15,
		RequestsPerSecond:   intPtr(10),
		PageSize:            50,
		NearTopThreshold:    100,
		NearBottomThreshold: 150,
		TypingStopDelayMS:   3000,
		AttachmentsLimit:    50,
		DownloadDir:         "./downloads",
		CacheTTLMinutes:     10,
		LogLevel:            "info",
	}
}

// Load загружает конфигурацию.
// Сначала подгружаются переменные из .env (если есть), затем YAML и env (env имеет приоритет).
// path — явный путь к YAML (флаг -config); пустой — CONFIG_PATH, затем config/chat.yaml.
func Load(path string) *Config {
	loadEnv()
	yc := defaults()

	for _, p := range []string{path, os.Getenv("CONFIG_PATH"), "config/chat.yaml"} {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if err := parseYAML(data, &yc); err != nil {
			logger.Errorf("config: ошибка парсинга %s: %v (используются значения по умолчанию)", p, err)
		} else {
			logger.Infof("config: загружен %s", p)
		}
		break
	}
	return fromYAML(yc)
}

func parseYAML(data []byte, yc *yamlConfig) error {
	return yaml.Unmarshal(data, yc)
}

// fromYAML накладывает переменные окружения поверх YAML и нормализует значения.
func fromYAML(yc yamlConfig) *Config {
	apiBase := strings.TrimSuffix(envStr("API_BASE_URL", yc.APIBaseURL), "/")
	rtURL := envStr("REALTIME_URL", yc.RealtimeURL)
	if rtURL == "" {
		rtURL = deriveRealtimeURL(apiBase)
	}

	cfg := &Config{
		APIBaseURL:          apiBase,
		RealtimeURL:         rtURL,
		SessionToken:        envStr("SESSION_TOKEN", yc.SessionToken),
		HTTPTimeout:         time.Duration(positive(envInt("HTTP_TIMEOUT", yc.HTTPTimeout), 15)) * time.Second,
		RequestsPerSecond:   nonNegative(envInt("REQUESTS_PER_SECOND", deref(yc.RequestsPerSecond, 10)), 10),
		UserID:              envStr("USER_ID", yc.UserID),
		UserName:            envStr("USER_NAME", yc.UserName),
		PageSize:            positive(envInt("PAGE_SIZE", yc.PageSize), 50),
		NearTopThreshold:    positive(envInt("NEAR_TOP_THRESHOLD", yc.NearTopThreshold), 100),
		NearBottomThreshold: positive(envInt("NEAR_BOTTOM_THRESHOLD", yc.NearBottomThreshold), 150),
		TypingStopDelay:     time.Duration(positive(envInt("TYPING_STOP_DELAY_MS", yc.TypingStopDelayMS), 3000)) * time.Millisecond,
		AttachmentsLimit:    positive(envInt("ATTACHMENTS_LIMIT", yc.AttachmentsLimit), 50),
		DownloadDir:         envStr("DOWNLOAD_DIR", yc.DownloadDir),
		CacheTTL:            time.Duration(positive(envInt("CACHE_TTL_MINUTES", yc.CacheTTLMinutes), 10)) * time.Minute,
		RedisURL:            envStr("REDIS_URL", yc.RedisURL),
		LogLevel:            envStr("LOG_LEVEL", yc.LogLevel),
		LogFile:             envStr("LOG_FILE", yc.LogFile),
	}
	if cfg.PageSize > 100 {
		cfg.PageSize = 100
	}
	return cfg
}

// deriveRealtimeURL строит ws(s)://host/ws из базового URL API.
func deriveRealtimeURL(apiBase string) string {
	u := apiBase
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	u = strings.TrimSuffix(u, "/api")
	return u + "/ws"
}

// envStr возвращает значение переменной окружения или fallback.
func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt возвращает числовое значение переменной окружения или fallback.
func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func intPtr(v int) *int { return &v }

func deref(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}

// nonNegative оставляет 0 как явное «выключено».
func nonNegative(v, fallback int) int {
	if v < 0 {
		return fallback
	}
	return v
}

func positive(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
