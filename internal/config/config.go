package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN            string `env:"DSN,required"`
		ConnectTimeout int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout   int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		MaxOpenConns   int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns   int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime    int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Email      string `env:"EMAIL,required"`
		Password   string `env:"PASSWORD,required"`
		EmployeeID string `env:"EMPLOYEE_ID" envDefault:"ADMIN001"`
		FirstName  string `env:"FIRST_NAME" envDefault:"Portal"`
		LastName   string `env:"LAST_NAME" envDefault:"Administrator"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		AccessSecret      string `env:"ACCESS_SECRET,required"`
		RefreshSecret     string `env:"REFRESH_SECRET,required"`
		AccessExpiration  int    `env:"ACCESS_EXPIRATION" envDefault:"900"`     // 15 minutes
		RefreshExpiration int    `env:"REFRESH_EXPIRATION" envDefault:"604800"` // 7 days
	} `envPrefix:"JWT_"`
	Metrics struct {
		// Daily submissions for "today" stay open until this local time.
		LockCutoff string `env:"LOCK_CUTOFF" envDefault:"23:59"`
		Timezone   string `env:"TIMEZONE" envDefault:"Asia/Kolkata"`
	} `envPrefix:"METRICS_"`
	Audit struct {
		RetentionDays int `env:"RETENTION_DAYS" envDefault:"365"`
	} `envPrefix:"AUDIT_"`
	Email struct {
		From string `env:"FROM,required"`
		// domain for generated staff addresses when seeding
		UserDomain string `env:"USER_DOMAIN" envDefault:"indiapost.gov.in"`
		SMTP struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD,required"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
	} `envPrefix:"REDIS_"`
	OTP struct {
		Expiration int `env:"EXPIRATION" envDefault:"900"` // 15 minutes
	} `envPrefix:"OTP_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD,required"`
		} `envPrefix:"USER_"`
	} `envPrefix:"SEED_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// only return the first error to keep the log readable
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	return cfg, nil
}
