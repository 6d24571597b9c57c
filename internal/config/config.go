package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// NLG-бэкенды системного агента.
const (
	BackendTemplate = "template"
	BackendOpenAI   = "openai"
)

type Config struct {
	DebugMode  bool   `env:"DEBUG_MODE"`  //Режим дебага
	ServiceURL string `env:"SERVICE_URL"` // Адрес удалённого диалогового сервиса

	// Прогон
	Seed         int64  `env:"SEED"`          // Зерно для всех генераторов случайных чисел
	TotalDialogs int    `env:"TOTAL_DIALOGS"` // Сколько диалогов прогнать
	MaxTurns     int    `env:"MAX_TURNS"`     // Предел ходов пользователя в одном диалоге
	ModelName    string `env:"MODEL_NAME"`    // Имя системы в отчёте

	// Генерация
	NLGBackend       string `env:"NLG_BACKEND"`        // template|openai
	OpenAIModel      string `env:"OPENAI_MODEL"`       // Модель для NLG_BACKEND=openai
	NLGTemplatesPath string `env:"NLG_TEMPLATES_PATH"` // Файл шаблонов; пусто — встроенные

	UserGoalsPath string `env:"USER_GOALS_PATH"` // Файл целей пользователя; пусто — встроенные
	ReportDSN     string `env:"REPORT_DSN"`      // DSN SQLite для отчёта; пусто — не сохранять

	// StubService — локальная замена диалогового сервиса
	StubService StubServiceConfig
}

// StubServiceConfig конфигурация локального диалогового сервиса.
type StubServiceConfig struct {
	BindAddr string `env:"STUB_SERVICE_BIND_ADDR"` // Адрес слушателя, напр. 127.0.0.1:8080
	Path     string `env:"STUB_SERVICE_PATH"`      // HTTP‑путь, напр. /api/multiwoz
	DBPath   string `env:"STUB_SERVICE_DB_PATH"`   // YAML с сущностями; пусто — встроенная база
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode:    false,
		ServiceURL:   "https://clwoz2.azurewebsites.net/api/multiwoz",
		Seed:         20200720,
		TotalDialogs: 1,
		MaxTurns:     20,
		ModelName:    "CL-TemplateNLG",
		NLGBackend:   BackendTemplate,
		OpenAIModel:  "gpt-4o",
		StubService: StubServiceConfig{
			BindAddr: "127.0.0.1:8080",
			Path:     "/api/multiwoz",
		},
	}
}

// NewConfig загружает конфигурацию приложения: дефолты, затем .env/окружение, затем флаги.
func NewConfig() (*Config, error) {
	return Load(flag.CommandLine, nil)
}

// Load — NewConfig с явным набором флагов и аргументами (nil — os.Args[1:]).
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага")
	fs.StringVar(&cfg.ServiceURL, "service-url", cfg.ServiceURL, "адрес удалённого диалогового сервиса")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "зерно генераторов случайных чисел")
	fs.IntVar(&cfg.TotalDialogs, "total-dialogs", cfg.TotalDialogs, "количество диалогов")
	fs.IntVar(&cfg.MaxTurns, "max-turns", cfg.MaxTurns, "предел ходов в одном диалоге")
	fs.StringVar(&cfg.ModelName, "model-name", cfg.ModelName, "имя системы в отчёте")
	fs.StringVar(&cfg.NLGBackend, "nlg-backend", cfg.NLGBackend, "генерация ответов системы: template|openai")
	fs.StringVar(&cfg.OpenAIModel, "openai-model", cfg.OpenAIModel, "модель OpenAI для nlg-backend=openai")
	fs.StringVar(&cfg.NLGTemplatesPath, "nlg-templates-path", cfg.NLGTemplatesPath, "YAML с шаблонами генерации")
	fs.StringVar(&cfg.UserGoalsPath, "user-goals-path", cfg.UserGoalsPath, "YAML с целями пользователя")
	fs.StringVar(&cfg.ReportDSN, "report-dsn", cfg.ReportDSN, "DSN SQLite для сохранения отчёта (пусто — не сохранять)")
	// StubService
	fs.StringVar(&cfg.StubService.BindAddr, "stub-service-bind-addr", cfg.StubService.BindAddr, "адрес для прослушивания стаба (напр. 127.0.0.1:8080)")
	fs.StringVar(&cfg.StubService.Path, "stub-service-path", cfg.StubService.Path, "HTTP путь стаба")
	fs.StringVar(&cfg.StubService.DBPath, "stub-service-db-path", cfg.StubService.DBPath, "YAML с сущностями стаба")

	if args == nil {
		args = os.Args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.NLGBackend = strings.ToLower(strings.TrimSpace(cfg.NLGBackend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения, без которых прогон не имеет смысла.
func (c *Config) Validate() error {
	var errs []error
	if c.TotalDialogs <= 0 {
		errs = append(errs, fmt.Errorf("total dialogs must be positive, got %d", c.TotalDialogs))
	}
	if c.MaxTurns <= 0 {
		errs = append(errs, fmt.Errorf("max turns must be positive, got %d", c.MaxTurns))
	}
	switch c.NLGBackend {
	case BackendTemplate, BackendOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown nlg backend %q", c.NLGBackend))
	}
	return errors.Join(errs...)
}
