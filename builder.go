package authd

import (
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/blogforge/authd/password"
	"github.com/blogforge/authd/session"
	"github.com/blogforge/authd/token"
)

// Builder assembles a [Service] from its collaborators. Construction is
// allocation-only; no I/O happens until the first Service call.
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	users    UserStore
	profiles ProfileFetcher
	logger   *slog.Logger

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client backing the session store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the user persistence backend.
func (b *Builder) WithUserStore(us UserStore) *Builder {
	b.users = us
	return b
}

// WithProfileFetcher sets the federated provider's user-info client.
// Optional: without it, ExchangeProviderToken is unavailable but
// ReconcileFederated still works for callers that already hold a profile.
func (b *Builder) WithProfileFetcher(pf ProfileFetcher) *Builder {
	b.profiles = pf
	return b
}

// WithLogger sets the operator-facing structured logger.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Build validates the configuration, constructs the token codec, session
// store, and password hasher, and returns the ready Service. A builder can
// be used once.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.users == nil {
		return nil, errors.New("user store is required")
	}

	codec, err := token.NewCodec(token.Config{
		SecretBase64: b.config.SecretBase64,
		AccessTTL:    b.config.AccessTTL,
		RefreshTTL:   b.config.RefreshTTL,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(b.config.Password)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		config:   b.config,
		codec:    codec,
		sessions: session.NewStore(b.redis, b.config.SessionKeyPrefix, b.config.SessionTimeout),
		users:    b.users,
		hasher:   hasher,
		profiles: b.profiles,
		logger:   logger,
	}, nil
}
