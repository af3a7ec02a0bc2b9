// Package container builds the dependencies shared by the api and admin apps.
package container

import (
	"context"
	"fmt"
	"path/filepath"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/colleague"
	"github.com/24vibes/vibes/core/leaderboard"
	"github.com/24vibes/vibes/core/messenger"
	"github.com/24vibes/vibes/core/upload"
	"github.com/24vibes/vibes/core/user"
	"github.com/24vibes/vibes/core/vibe"
	appfs "github.com/24vibes/vibes/fs"
	emailsvc "github.com/24vibes/vibes/services/email"
	"github.com/24vibes/vibes/services/filestore"
	logsvc "github.com/24vibes/vibes/services/logger"
	slacksvc "github.com/24vibes/vibes/services/slack"
	"github.com/24vibes/vibes/storage/cache"
	"github.com/24vibes/vibes/storage/database"
	inmemdb "github.com/24vibes/vibes/storage/database/inmem"
	sqlxrepos "github.com/24vibes/vibes/storage/database/sqlx"
)

const (
	EngineMemory   = "memory"
	EnginePostgres = "postgres"
)

type (
	Repositories struct {
		Colleagues colleague.Repository
		Users      user.Repository
		Vibes      vibe.Repository
	}

	Container struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		DB       *sqlx.DB // nil with the memory engine
		Repos    Repositories
		Cache    core.Cache
		MailSvc  core.EmailService
		Store    core.FileStorage
		MediaDir string // set when files are stored on the local disk

		UserSvc        *user.Service
		ColleagueSvc   *colleague.Service
		VibeSvc        *vibe.Service
		LeaderboardSvc *leaderboard.Service
		MessengerSvc   *messenger.Service
		UploadSvc      *upload.Service

		closers []func() error
	}
)

// NewLogger returns a rollbar logger printing with prefix. Rollbar reporting is off in debug mode.
func NewLogger(prefix string, conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(prefix, conf), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

// NewValidator returns a validator with every custom validation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	colleague.InitValidators(validate, translator)
	vibe.InitValidators(validate, translator)
	return validate, translator
}

// New sets up storage, external services and the domain services described by conf.
// Close must be called to release what was opened.
func New(ctx context.Context, conf *core.Config, logger core.Logger) (c *Container, err error) {
	c = &Container{Conf: conf, Logger: logger}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	c.Validate, c.Translator = NewValidator()
	core.ParseEmailTemplates(appfs.FS, conf, logger)

	if err = c.openDatabase(ctx); err != nil {
		return c, err
	}
	if err = c.openCache(ctx); err != nil {
		return c, err
	}
	if err = c.openFileStore(ctx); err != nil {
		return c, err
	}
	c.MailSvc = newEmailService(conf, logger)

	roster, err := colleague.LoadRoster(appfs.FS)
	if err != nil {
		return c, errors.Wrap(err, "loading roster")
	}
	templates, err := vibe.LoadTemplates(appfs.FS)
	if err != nil {
		return c, errors.Wrap(err, "loading card templates")
	}

	c.ColleagueSvc = colleague.NewService(c.Repos.Colleagues, c.Repos.Users, roster, c.Validate, logger)
	c.UserSvc = user.NewService(c.Repos.Users, c.ColleagueSvc, c.Validate, logger)
	c.VibeSvc = vibe.NewService(c.Repos.Vibes, c.ColleagueSvc, templates, c.Validate, logger)
	c.LeaderboardSvc = leaderboard.NewService(c.VibeSvc, c.ColleagueSvc, c.Cache, conf.Redis.LeaderboardTTL, logger)

	msgDeps := messenger.Deps{
		Vibes:    c.VibeSvc,
		Roster:   c.ColleagueSvc,
		Boards:   c.LeaderboardSvc,
		MailSvc:  c.MailSvc,
		Cache:    c.Cache,
		Conf:     conf,
		Validate: c.Validate,
		Logger:   logger,
	}
	if conf.Slack.BotToken != "" {
		msgDeps.Chat = slacksvc.NewClient(conf.Slack.BotToken, logger)
	} else {
		logger.Warn("Slack bot token not set: notifications fall back to email")
	}
	c.MessengerSvc = messenger.NewService(msgDeps)
	c.VibeSvc.Subscribe(c.LeaderboardSvc, c.MessengerSvc)
	c.ColleagueSvc.Subscribe(c.LeaderboardSvc)

	c.UploadSvc = upload.NewService(c.Store, conf.Storage.MaxUploadSize, c.Validate)
	return c, nil
}

func (c *Container) openDatabase(ctx context.Context) error {
	switch c.Conf.Database.Engine {
	case EngineMemory:
		db := inmemdb.Open()
		c.Repos = Repositories{
			Colleagues: inmemdb.NewColleagueRepository(db),
			Users:      inmemdb.NewUserRepository(db),
			Vibes:      inmemdb.NewVibeRepository(db),
		}
		return nil

	case EnginePostgres, "":
		if err := database.CreateIfNotExist(ctx, c.Conf); err != nil {
			return errors.Wrap(err, "creating database")
		}
		db, err := database.Open(ctx, c.Conf)
		if err != nil {
			return err
		}
		c.DB = db
		c.closers = append(c.closers, db.Close)

		if err = database.Migrate(ctx, db); err != nil {
			return err
		}
		c.Repos = Repositories{
			Colleagues: sqlxrepos.NewColleagueRepository(db),
			Users:      sqlxrepos.NewUserRepository(db),
			Vibes:      sqlxrepos.NewVibeRepository(db),
		}
		return nil

	default:
		return errors.Errorf("unknown database engine %q", c.Conf.Database.Engine)
	}
}

func (c *Container) openCache(ctx context.Context) error {
	if c.Conf.Redis.Addr == "" {
		c.Logger.Warn("Redis address not set: caching disabled")
		c.Cache = cache.Nop{}
		return nil
	}
	rc, err := cache.Open(ctx, c.Conf.Redis)
	if err != nil {
		return errors.Wrap(err, "opening redis")
	}
	c.Cache = rc
	c.closers = append(c.closers, rc.Close)
	return nil
}

func (c *Container) openFileStore(ctx context.Context) error {
	switch c.Conf.Storage.Backend {
	case "gcs":
		store, err := filestore.NewGCS(ctx, c.Conf.Storage.Bucket)
		if err != nil {
			return errors.Wrap(err, "opening storage bucket")
		}
		c.Store = store
		c.closers = append(c.closers, store.Close)

	case "local", "":
		dir := c.Conf.Storage.LocalDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(c.Conf.WorkDir, dir)
		}
		store := filestore.NewLocal(dir, c.Conf.Storage.PublicBaseURL)
		c.Store = store
		c.MediaDir = store.Dir()

	default:
		return errors.Errorf("unknown storage backend %q", c.Conf.Storage.Backend)
	}
	return nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// Close waits for pending notifications, then releases every opened resource in reverse order.
func (c *Container) Close() error {
	if c.MessengerSvc != nil {
		c.MessengerSvc.Wait()
	}
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, fmt.Sprintf("closing resource %d", i))
		}
	}
	c.closers = nil
	return firstErr
}
