package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env                 string
		Build               string
		AppName             string
		Debug               bool
		TestMode            bool
		SecretKey           string
		WorkDir             string
		FrontendBaseURL     string
		AllowedEmailDomains []string
		RollbarToken        string
		LogFile             string
		SendgridApiKey      string
		defaultFromEmail    string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Slack    SlackConfig
		Storage  StorageConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		GoogleClientID            string
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr           string
		Password       string
		DB             int
		LeaderboardTTL time.Duration
		SlackUserTTL   time.Duration
	}

	SlackConfig struct {
		BotToken       string
		DigestChannel  string
		DigestSchedule string
	}

	StorageConfig struct {
		Backend       string // local | gcs
		Bucket        string
		LocalDir      string
		PublicBaseURL string
		MaxUploadSize int64
	}
)

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

// IsAllowedEmail reports whether email belongs to one of the AllowedEmailDomains.
// An empty domain list allows every address.
func (c *Config) IsAllowedEmail(email string) bool {
	if len(c.AllowedEmailDomains) == 0 {
		return true
	}
	email = CleanString(email, true /* lower */)
	for _, domain := range c.AllowedEmailDomains {
		if strings.HasSuffix(email, "@"+CleanString(domain, true /* lower */)) {
			return true
		}
	}
	return false
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("build", "dev")
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("appName", "24Vibes")
	conf.SetDefault("secretKey", "v1b3s-s3cr3t(k3y)=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("frontendBaseURL", "https://24vibes.netlify.app")
	conf.SetDefault("allowedEmailDomains", []string{"24slides.com"})
	conf.SetDefault("defaultFromEmail", "24Vibes <noreply@localhost>")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("logFile", "")
	conf.SetDefault("sendgridApiKey", "")

	conf.SetDefault("serverHost", "")
	conf.SetDefault("serverPort", "8000")
	conf.SetDefault("serverDebugHost", "localhost:4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("googleClientID", "")

	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbName", "vibes")
	conf.SetDefault("dbUser", "vibes")
	conf.SetDefault("dbPassword", "vibes")
	conf.SetDefault("dbAdminUser", "")
	conf.SetDefault("dbAdminPassword", "")
	conf.SetDefault("dbDisableTLS", true)

	conf.SetDefault("redisAddr", "")
	conf.SetDefault("redisPassword", "")
	conf.SetDefault("redisDB", 0)
	conf.SetDefault("redisLeaderboardTTL", 5*time.Minute)
	conf.SetDefault("redisSlackUserTTL", 24*time.Hour)

	conf.SetDefault("slackBotToken", "")
	conf.SetDefault("slackDigestChannel", "")
	conf.SetDefault("slackDigestSchedule", "0 9 1 * *") // 09:00 on the 1st of every month

	conf.SetDefault("storageBackend", "local")
	conf.SetDefault("storageBucket", "")
	conf.SetDefault("storageLocalDir", "media")
	conf.SetDefault("storagePublicBaseURL", "http://localhost:8000/media")
	conf.SetDefault("storageMaxUploadSize", int64(5*1024*1024))

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:                 env,
		Build:               conf.GetString("build"),
		AppName:             conf.GetString("appName"),
		Debug:               conf.GetBool("debug"),
		TestMode:            conf.GetBool("testMode"),
		SecretKey:           conf.GetString("secretKey"),
		WorkDir:             wd,
		FrontendBaseURL:     strings.TrimRight(conf.GetString("frontendBaseURL"), "/"),
		AllowedEmailDomains: splitList(conf.GetStringSlice("allowedEmailDomains")),
		RollbarToken:        conf.GetString("rollbarToken"),
		LogFile:             conf.GetString("logFile"),
		SendgridApiKey:      conf.GetString("sendgridApiKey"),
		defaultFromEmail:    conf.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:                      conf.GetString("serverHost"),
			Port:                      conf.GetString("serverPort"),
			DebugHost:                 conf.GetString("serverDebugHost"),
			ShutdownTimeout:           conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
			GoogleClientID:            conf.GetString("googleClientID"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetString("dbPort"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
		Redis: RedisConfig{
			Addr:           conf.GetString("redisAddr"),
			Password:       conf.GetString("redisPassword"),
			DB:             conf.GetInt("redisDB"),
			LeaderboardTTL: conf.GetDuration("redisLeaderboardTTL"),
			SlackUserTTL:   conf.GetDuration("redisSlackUserTTL"),
		},
		Slack: SlackConfig{
			BotToken:       conf.GetString("slackBotToken"),
			DigestChannel:  conf.GetString("slackDigestChannel"),
			DigestSchedule: conf.GetString("slackDigestSchedule"),
		},
		Storage: StorageConfig{
			Backend:       conf.GetString("storageBackend"),
			Bucket:        conf.GetString("storageBucket"),
			LocalDir:      conf.GetString("storageLocalDir"),
			PublicBaseURL: strings.TrimRight(conf.GetString("storagePublicBaseURL"), "/"),
			MaxUploadSize: conf.GetInt64("storageMaxUploadSize"),
		},
	}
}

// splitList accepts both real lists and a single comma separated env value.
func splitList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Getwd tries to find the module root (the directory holding go.mod).
// go-test changes the working directory to the test package being run,
// so we walk up until we find it. Falls back to the working directory.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(fmt.Errorf("core.Getwd: %w", err))
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
