package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	Telegram struct {
		Token       string
		BotUsername string `mapstructure:"bot_username"`
		AdminChatID int64  `mapstructure:"admin_chat_id"`
		ChannelID   int64  `mapstructure:"channel_id"`
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Redis struct {
		Enabled bool
		Addr    string
		TTL     time.Duration
	} `mapstructure:"redis"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Sweeper struct {
		Interval time.Duration
	} `mapstructure:"sweeper"`

	EventBus struct {
		HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
		MaxInflight    int           `mapstructure:"max_inflight"`
	} `mapstructure:"eventbus"`
}

func Load(path string) (Config, error) {
	// .env подхватываем до viper, чтобы APP_* переменные уже были в окружении.
	_ = gotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
