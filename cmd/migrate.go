package cmd

import (
	"context"

	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/dataroom/internal/dataroom"
	"github.com/Laisky/dataroom/internal/global"
	"github.com/Laisky/dataroom/library/log"
)

var migrateCMD = &cobra.Command{
	Use:   "migrate",
	Short: "migrate",
	Long:  `migrate db`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
		global.SetupDB(ctx)
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := dataroom.RunMigrations(context.Background(), global.DB, log.Logger.Named("migrate")); err != nil {
			log.Logger.Panic("migrate", zap.Error(err))
		}
		log.Logger.Info("migrated")
	},
}

func init() {
	rootCMD.AddCommand(migrateCMD)
}
