package shim

import (
	"context"
	"fmt"

	"github.com/imposter-project/contract-shim/internal/config"
	"github.com/imposter-project/contract-shim/internal/contract"
	"github.com/imposter-project/contract-shim/internal/ratelimiter"
	"github.com/imposter-project/contract-shim/internal/store"
	"github.com/imposter-project/contract-shim/pkg/logger"
)

// Scheme names assumed when a security config section does not name one.
const (
	DefaultBasicScheme  = "basicAuth"
	DefaultBearerScheme = "bearerAuth"
	DefaultAPIKeyScheme = "apiKey"
)

// FromConfig builds an application from a shim config file. The contract is resolved relative
// to the config directory and may be remote. A named error translator must be present in
// translators. Options given explicitly are applied after those derived from the config.
func FromConfig(ctx context.Context, cfg *config.Config, translators map[string]ErrorTranslator, opts ...Option) (*Application, error) {
	c, err := contract.Resolve(ctx, cfg.Contract, cfg.ConfigDir)
	if err != nil {
		return nil, err
	}

	derived, err := optionsFromConfig(cfg, translators)
	if err != nil {
		return nil, err
	}
	return New(c, append(derived, opts...)...)
}

func optionsFromConfig(cfg *config.Config, translators map[string]ErrorTranslator) ([]Option, error) {
	opts := []Option{WithCaseFolding(cfg.IsCaseFolding())}

	if cfg.SkipResponseValidation.All {
		opts = append(opts, WithSkipResponseValidation())
	}
	if len(cfg.SkipResponseValidation.IDs) > 0 {
		opts = append(opts, WithSkipResponseValidationFor(cfg.SkipResponseValidation.IDs...))
	}
	if cfg.ECMARegex {
		opts = append(opts, WithECMARegex())
	}

	if cfg.ErrorTranslator != "" {
		translator, ok := translators[cfg.ErrorTranslator]
		if !ok {
			return nil, fmt.Errorf("error translator %s is not registered", cfg.ErrorTranslator)
		}
		logger.Debugf("using error translator %s", cfg.ErrorTranslator)
		opts = append(opts, WithErrorTranslator(translator))
	}

	if len(cfg.Concurrency) > 0 {
		limiter := ratelimiter.NewLimiter(store.NewStoreProvider(""))
		opts = append(opts, WithOperationMiddleware(limiter.Middleware(cfg.Concurrency)))
	}

	security, err := securityOptions(cfg.Security)
	if err != nil {
		return nil, err
	}
	return append(opts, security...), nil
}

func securityOptions(sec config.SecurityConfig) ([]Option, error) {
	var opts []Option

	if sec.Basic != nil {
		opts = append(opts, WithSecurityVerifier(
			schemeOrDefault(sec.Basic.Scheme, DefaultBasicScheme),
			NewBasicAuthVerifier(sec.Basic.Users)))
	}

	if sec.JWT != nil {
		if sec.JWT.Secret == "" {
			return nil, fmt.Errorf("JWT security config requires a secret")
		}
		leeway, err := sec.JWT.LeewayDuration()
		if err != nil {
			return nil, err
		}
		var jwtOpts []JWTOption
		if sec.JWT.Issuer != "" {
			jwtOpts = append(jwtOpts, WithIssuer(sec.JWT.Issuer))
		}
		if sec.JWT.Audience != "" {
			jwtOpts = append(jwtOpts, WithAudience(sec.JWT.Audience))
		}
		if leeway > 0 {
			jwtOpts = append(jwtOpts, WithLeeway(leeway))
		}
		opts = append(opts, WithSecurityVerifier(
			schemeOrDefault(sec.JWT.Scheme, DefaultBearerScheme),
			NewHMACVerifier([]byte(sec.JWT.Secret), jwtOpts...)))
	}

	if sec.APIKeys != nil {
		opts = append(opts, WithSecurityVerifier(
			schemeOrDefault(sec.APIKeys.Scheme, DefaultAPIKeyScheme),
			NewAPIKeyVerifier(sec.APIKeys.Keys...)))
	}
	return opts, nil
}

func schemeOrDefault(scheme, fallback string) string {
	if scheme == "" {
		return fallback
	}
	return scheme
}
