package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-roleplay-desk/catalog"
	catalogrest "github.com/jrsteele09/go-roleplay-desk/catalog/postgrest"
	"github.com/jrsteele09/go-roleplay-desk/catalog/sqlrepo"
	"github.com/jrsteele09/go-roleplay-desk/chat"
	chatrest "github.com/jrsteele09/go-roleplay-desk/chat/postgrest"
	"github.com/jrsteele09/go-roleplay-desk/identity/gotrue"
	"github.com/jrsteele09/go-roleplay-desk/internal/config"
	"github.com/jrsteele09/go-roleplay-desk/internal/supabase"
	"github.com/jrsteele09/go-roleplay-desk/llm/openai"
	"github.com/jrsteele09/go-roleplay-desk/server"
	"github.com/jrsteele09/go-roleplay-desk/storage"
	s3store "github.com/jrsteele09/go-roleplay-desk/storage/s3"
	supabasestore "github.com/jrsteele09/go-roleplay-desk/storage/supabase"
	"github.com/jrsteele09/go-roleplay-desk/token"
)

// buildDependencies connects the adapters chosen by configuration. The returned func
// releases whatever was opened.
func buildDependencies(ctx context.Context, cfg config.Config) (server.Dependencies, func(), error) {
	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	rest := supabase.NewClient(cfg.GetSupabaseURL(), cfg.GetSupabaseKey(),
		supabase.WithTimeout(cfg.GetSupabaseTimeout()),
		supabase.WithRequestLogging("supabase"),
	)

	var items catalog.Repo
	if dsn := cfg.GetDatabaseURL(); dsn != "" {
		db, err := sqlrepo.Connect(ctx, dsn)
		if err != nil {
			return server.Dependencies{}, closeAll, err
		}
		closers = append(closers, func() { _ = db.Close() })
		items = sqlrepo.New(db)
		log.Info().Msg("Catalog stored directly in Postgres")
	} else {
		items = catalogrest.New(rest)
	}

	var images storage.ObjectStore
	if cfg.UseS3Storage() {
		client := s3store.NewClient(s3store.Options{
			Endpoint:        cfg.GetS3Endpoint(),
			Region:          cfg.GetS3Region(),
			AccessKeyID:     cfg.GetS3AccessKeyID(),
			SecretAccessKey: cfg.GetS3SecretAccessKey(),
		})
		images = s3store.New(client, cfg.GetItemBucket(), cfg.GetSupabaseURL()+supabase.StoragePath+"/object/public")
		log.Info().Str("endpoint", cfg.GetS3Endpoint()).Msg("Item images uploaded over S3")
	} else {
		images = supabasestore.New(rest, cfg.GetItemBucket())
	}

	model := openai.New(cfg.GetOpenAIBaseURL(), cfg.GetOpenAIKey(),
		openai.WithModel(cfg.GetOpenAIModel()),
		openai.WithTimeout(cfg.GetLLMTimeout()),
		openai.WithMaxRetries(cfg.GetLLMMaxRetries()),
	)

	var codecOpts []token.CodecOption
	if aud := cfg.GetJWTAudience(); aud != "" {
		codecOpts = append(codecOpts, token.WithAudience(aud))
	}

	return server.Dependencies{
		Identity: gotrue.New(rest, cfg.GetSiteURL()),
		Codec:    token.NewCodec(cfg.GetJWTSecret(), codecOpts...),
		Catalog:  catalog.NewService(items, images),
		Chat:     chat.NewService(chatrest.New(rest), model),
	}, closeAll, nil
}
