// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package config reads the settings used to reach a registry. They come
// from an optional YAML file and from command line flags, flags winning.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/juju/schema"
	"github.com/juju/utils/v4"
	"gopkg.in/juju/environschema.v1"
	"gopkg.in/yaml.v3"

	"github.com/flowsync/flowsync/registry"
)

const (
	URLKey       = "url"
	TokenKey     = "token"
	RateLimitKey = "rate-limit"
	RateBurstKey = "rate-burst"
	TimeoutKey   = "timeout"
)

var configSchema = environschema.Fields{
	URLKey: {
		Description: "The base URL of the registry, without the API path.",
		Type:        environschema.Tstring,
		Mandatory:   true,
	},
	TokenKey: {
		Description: "A bearer token sent with every request.",
		Type:        environschema.Tstring,
		Secret:      true,
	},
	RateLimitKey: {
		Description: "The maximum number of requests per second, 0 for no limit.",
		Type:        environschema.Tint,
	},
	RateBurstKey: {
		Description: "The number of requests allowed at once over the rate limit.",
		Type:        environschema.Tint,
	},
	TimeoutKey: {
		Description: "How long to wait for a single request, as a duration such as 30s.",
		Type:        environschema.Tstring,
	},
}

var configDefaults = schema.Defaults{
	URLKey:       schema.Omit,
	TokenKey:     schema.Omit,
	RateLimitKey: 0,
	RateBurstKey: 0,
	TimeoutKey:   registry.DefaultTimeout.String(),
}

var configFields = func() schema.Fields {
	fs, _, err := configSchema.ValidationSchema()
	if err != nil {
		panic(err)
	}
	return fs
}()

// Schema returns the fields of the configuration.
func Schema() environschema.Fields {
	return configSchema
}

// Config holds validated registry settings.
type Config struct {
	validAttrs map[string]interface{}
	timeout    time.Duration
}

// New validates attrs and returns the Config they describe. Missing
// optional settings take their defaults.
func New(attrs map[string]interface{}) (*Config, error) {
	checker := schema.FieldMap(configFields, configDefaults)
	coerced, err := checker.Coerce(attrs, nil)
	if err != nil {
		return nil, errors.NewNotValid(err, "registry config")
	}
	validAttrs := coerced.(map[string]interface{})

	for key, field := range configSchema {
		value, ok := validAttrs[key]
		if field.Mandatory && (!ok || fmt.Sprintf("%v", value) == "") {
			return nil, errors.NotValidf("empty value for %q", key)
		}
	}

	cfg := &Config{validAttrs: validAttrs}
	if u, err := url.Parse(cfg.URL()); err != nil || u.Host == "" {
		return nil, errors.NotValidf("registry url %q", cfg.URL())
	}
	if cfg.RateLimit() < 0 {
		return nil, errors.NotValidf("negative %s", RateLimitKey)
	}
	if cfg.RateBurst() < 0 {
		return nil, errors.NotValidf("negative %s", RateBurstKey)
	}
	timeout, err := time.ParseDuration(validAttrs[TimeoutKey].(string))
	if err != nil {
		return nil, errors.NewNotValid(err, TimeoutKey)
	}
	if timeout <= 0 {
		return nil, errors.NotValidf("%s %v", TimeoutKey, timeout)
	}
	cfg.timeout = timeout
	return cfg, nil
}

// ReadFile reads the settings held in a YAML file. The file is not
// validated until the settings are passed to New.
func ReadFile(path string) (map[string]interface{}, error) {
	path, err := utils.NormalizePath(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "reading registry config")
	}
	attrs := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &attrs); err != nil {
		return nil, errors.Annotatef(err, "parsing %s", path)
	}
	// A document holding only null decodes to a nil map.
	if attrs == nil {
		attrs = make(map[string]interface{})
	}
	return attrs, nil
}

// URL returns the base URL of the registry.
func (c *Config) URL() string {
	return c.validAttrs[URLKey].(string)
}

// Token returns the bearer token, if any.
func (c *Config) Token() string {
	v, _ := c.validAttrs[TokenKey].(string)
	return v
}

// RateLimit returns the maximum number of requests per second.
func (c *Config) RateLimit() int {
	v, _ := c.validAttrs[RateLimitKey].(int)
	return v
}

// RateBurst returns the burst allowed over the rate limit.
func (c *Config) RateBurst() int {
	v, _ := c.validAttrs[RateBurstKey].(int)
	return v
}

// Timeout returns how long a single request may take.
func (c *Config) Timeout() time.Duration {
	return c.timeout
}

// ClientConfig returns the configuration of a registry client using
// these settings.
func (c *Config) ClientConfig(logger registry.Logger) registry.Config {
	return registry.Config{
		URL:       c.URL(),
		Token:     c.Token(),
		RateLimit: float64(c.RateLimit()),
		RateBurst: c.RateBurst(),
		Timeout:   c.Timeout(),
		Logger:    logger,
	}
}
