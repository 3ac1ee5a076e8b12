package app

import (
	"context"

	"github.com/rubihq/chat-sync/internal/chat"
	"github.com/rubihq/chat-sync/internal/config"
	"github.com/rubihq/chat-sync/internal/repo/assist"
	"github.com/rubihq/chat-sync/internal/repo/platform"
	"github.com/rubihq/chat-sync/internal/repo/realtime"
	"github.com/rubihq/chat-sync/internal/repo/storage"
	"go.uber.org/fx"
)

func newPlatformClient(conf *config.Config) *platform.Client {
	return platform.NewClient(conf)
}

func newMessageQuerier(c *platform.Client) chat.MessageQuerier {
	return c
}

func newReactionQuerier(c *platform.Client) chat.ReactionQuerier {
	return c
}

func newProfileFetcher(c *platform.Client) chat.ProfileFetcher {
	return c
}

func newChangeStream(conf *config.Config) (chat.ChangeStream, error) {
	return realtime.NewClient(conf)
}

func newBlobStore(conf *config.Config) chat.BlobStore {
	return storage.NewClient(conf)
}

func newAssistClient(conf *config.Config) *assist.Client {
	return assist.NewClient(conf)
}

func newEngine(
	conf *config.Config,
	stream chat.ChangeStream,
	messages chat.MessageQuerier,
	reactions chat.ReactionQuerier,
) (*chat.Engine, error) {
	return chat.NewEngine(chat.EngineParams{
		SelfID:           conf.Chat.UserID,
		DefaultRoom:      conf.Chat.DefaultRoom,
		ReconcileTimeout: conf.Chat.ReconcileTimeout,
		TypingTTL:        conf.Chat.TypingTTL,
	}, stream, messages, reactions)
}

func newAttachments(lc fx.Lifecycle, conf *config.Config, store chat.BlobStore) *chat.Attachments {
	a := chat.NewAttachments(store, conf.Chat.UploadWorkers)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			a.Close()
			return nil
		},
	})
	return a
}

func newProfiles(fetcher chat.ProfileFetcher) *chat.Profiles {
	return chat.NewProfiles(fetcher)
}

// StartEngine runs the engine loop for the process lifetime. The loop owns
// all state transitions; stopping the app cancels its context and waits for
// the teardown to finish.
func StartEngine(lc fx.Lifecycle, engine *chat.Engine) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(done)
				engine.Run(runCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
