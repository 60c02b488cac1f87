// Package config loads resilience-lib configuration from config_<APP_ENV>.yaml,
// .env files, prefixed environment variables and Docker secrets.
//
// Usage:
//
//	import "github.com/Goden-Gun/resilience-lib/pkg/config"
//
//	cfg, err := config.Load(config.LoadOptions{EnvPrefix: "GUARD", AllowNoConfig: true})
//	if err != nil {
//	    return err
//	}
//	delay := cfg.Boundary.RetryDelay.Duration()
//
// Services embedding their own sections can call LoadConfig with any struct
// that reuses the section types.
package config
