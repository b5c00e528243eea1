package global

import (
	"time"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/dataroom/internal/dataroom"
	"github.com/Laisky/dataroom/internal/library/pdftext"
	"github.com/Laisky/dataroom/library/jwt"
	"github.com/Laisky/dataroom/library/log"
)

var (
	DataroomSvc *dataroom.Service
	AuthSvc     *dataroom.AuthService
)

// SetupServices builds the dataroom and auth services on top of the
// connections opened by SetupDB, SetupStorage and SetupRedis.
func SetupServices() {
	clock := func() time.Time { return time.Now().UTC() }
	settings := dataroom.LoadSettingsFromConfig()
	authSettings := dataroom.LoadAuthSettingsFromConfig()

	var err error
	if DataroomSvc, err = dataroom.NewService(
		DB,
		settings,
		Blobs,
		pdftext.NewPDFExtractor(settings.ExtractMaxChars, log.Logger.Named("pdftext")),
		log.Logger.Named("dataroom"),
		clock,
	); err != nil {
		log.Logger.Panic("new dataroom service", zap.Error(err))
	}

	tokens, err := jwt.New([]byte(gconfig.S.GetString("settings.secret")), authSettings.TokenTTL)
	if err != nil {
		log.Logger.Panic("new jwt", zap.Error(err))
	}

	var guard dataroom.LoginGuard
	if Redis != nil {
		guard = dataroom.NewRedisLoginGuard(Redis.Client(),
			authSettings.LoginMaxFailures, authSettings.LoginWindow, log.Logger.Named("login_guard"))
	}

	if AuthSvc, err = dataroom.NewAuthService(
		DB, tokens, guard, authSettings, log.Logger.Named("auth"), clock,
	); err != nil {
		log.Logger.Panic("new auth service", zap.Error(err))
	}

	log.Logger.Info("services ready",
		zap.Int("list_limit_max", settings.ListLimitMax),
		zap.Int64("max_upload_bytes", settings.MaxUploadBytes),
		zap.Bool("redis_login_guard", Redis != nil))
}
