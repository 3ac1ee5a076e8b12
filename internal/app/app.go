package app

import (
	"github.com/carousell/ct-go/pkg/logger"
	"github.com/rubihq/chat-sync/internal/config"
	"github.com/rubihq/chat-sync/internal/server"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"
)

func Invoke(funcs ...any) *fx.App {
	log := logger.MustNamed("app")
	conf := config.MustLoad()
	log.Debugw("config loaded", log.Reflect("config", conf))
	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{
				Logger: log.Unwrap().Desugar(),
			}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Provide(
			newPlatformClient,
			newMessageQuerier,
			newReactionQuerier,
			newProfileFetcher,
			newChangeStream,
			newBlobStore,
			newAssistClient,

			newEngine,
			newAttachments,
			newProfiles,

			server.NewHandler,
		),
		fx.Supply(conf),
		fx.Invoke(funcs...),
	)
}
