package authcore

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/squadbook/authcore/audit"
	"github.com/squadbook/authcore/internal/rate"
	"github.com/squadbook/authcore/internal/stores"
	"github.com/squadbook/authcore/metrics"
	"github.com/squadbook/authcore/password"
	"github.com/squadbook/authcore/permission"
	"github.com/squadbook/authcore/token"
)

// Builder assembles an [Engine]. Construction is allocation-only until
// Build; no I/O happens before the first Engine method call.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	directory UserDirectory
	mailer    Mailer
	logger    *zap.Logger
	auditSink audit.Sink
	registry  prometheus.Registerer
	roles     map[string][]string
	built     bool
}

// New returns a Builder preloaded with defaults.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.auditSink = sink
	return b
}

// WithRoles sets the role -> permission table embedded into access tokens.
func (b *Builder) WithRoles(roles map[string][]string) *Builder {
	b.roles = roles
	return b
}

// WithMetricsRegistry overrides where collectors register; defaults to
// prometheus.DefaultRegisterer.
func (b *Builder) WithMetricsRegistry(reg prometheus.Registerer) *Builder {
	b.registry = reg
	return b
}

// Build validates the configuration and wires the engine. The builder is
// single-use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.directory == nil {
		return nil, errors.New("user directory is required")
	}
	if err := b.config.validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tokens, err := token.NewManager(token.Config{
		AccessTTL:     b.config.JWT.AccessTTL,
		SigningMethod: token.SigningMethod(b.config.JWT.SigningMethod),
		PrivateKey:    b.config.JWT.PrivateKey,
		PublicKey:     b.config.JWT.PublicKey,
		Issuer:        b.config.JWT.Issuer,
		Audience:      b.config.JWT.Audience,
		Leeway:        b.config.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Params{
		MemoryKB:    b.config.Password.MemoryKB,
		Iterations:  b.config.Password.Iterations,
		Parallelism: b.config.Password.Parallelism,
		SaltLength:  b.config.Password.SaltLength,
		KeyLength:   b.config.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	roleTable := b.roles
	if roleTable == nil {
		roleTable = map[string][]string{b.config.Registration.DefaultRole: nil}
	}
	roles, err := permission.NewRegistry(roleTable)
	if err != nil {
		return nil, err
	}
	if !roles.Known(b.config.Registration.DefaultRole) {
		return nil, errors.New("default role missing from role table")
	}

	limiter := rate.New(b.redis, b.config.Keys.RateLimit, map[string]rate.Rule{
		actionLogin:    {Limit: b.config.RateLimit.Login.Limit, Window: b.config.RateLimit.Login.Window},
		actionRefresh:  {Limit: b.config.RateLimit.Refresh.Limit, Window: b.config.RateLimit.Refresh.Window},
		actionReset:    {Limit: b.config.RateLimit.PasswordReset.Limit, Window: b.config.RateLimit.PasswordReset.Window},
		actionVerify:   {Limit: b.config.RateLimit.EmailVerification.Limit, Window: b.config.RateLimit.EmailVerification.Window},
		actionRegister: {Limit: b.config.RateLimit.Register.Limit, Window: b.config.RateLimit.Register.Window},
	})

	var m *metrics.Metrics
	if b.config.Metrics.Enabled {
		reg := b.registry
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		m = metrics.New(b.config.Metrics.Namespace, reg)
	}

	sink := b.auditSink
	if sink == nil {
		sink = audit.NewZapSink(logger)
	}

	return &Engine{
		config:    b.config,
		logger:    logger,
		directory: b.directory,
		mailer:    b.mailer,
		tokens:    tokens,
		hasher:    hasher,
		roles:     roles,
		refresh:   stores.NewRefreshStore(b.redis, b.config.Keys.Refresh),
		blacklist: stores.NewBlacklistStore(b.redis, b.config.Keys.Blacklist),
		actions:   stores.NewActionTokenStore(b.redis, b.config.Keys.Action),
		csrf:      stores.NewCsrfStore(b.redis, b.config.Keys.Csrf),
		limiter:   limiter,
		auditor: audit.NewDispatcher(audit.Config{
			Enabled:    b.config.Audit.Enabled,
			BufferSize: b.config.Audit.BufferSize,
			DropIfFull: b.config.Audit.DropIfFull,
		}, sink),
		metrics: m,
	}, nil
}
