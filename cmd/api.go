package cmd

import (
	"context"

	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/dataroom/internal/dataroom"
	"github.com/Laisky/dataroom/internal/global"
	"github.com/Laisky/dataroom/internal/web"
	"github.com/Laisky/dataroom/library/log"
)

var apiCMD = &cobra.Command{
	Use:   "api",
	Short: "api",
	Long:  `HTTP API service for datarooms`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}

		global.SetupDB(ctx)
		global.SetupStorage(ctx)
		global.SetupRedis(ctx)
		global.SetupServices()
	},
	Run: func(cmd *cobra.Command, args []string) {
		web.RunServer(
			gconfig.Shared.GetString("listen"),
			dataroom.NewHTTPHandler(global.DataroomSvc, global.AuthSvc, log.Logger.Named("http")),
		)
	},
}

func init() {
	rootCMD.AddCommand(apiCMD)
}
