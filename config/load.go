package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ConfigName is the optional config file (docstore.yaml, docstore.json, ...)
// searched in the working directory
const ConfigName = "docstore"

// DotEnvFile is loaded into the environment before anything else is read
const DotEnvFile = ".env"

// environment variables for the non-credential fields
const (
	HostEnv       = "DOCSTORE_HOST"
	PortEnv       = "DOCSTORE_PORT"
	DatabaseEnv   = "DOCSTORE_DATABASE"
	CollectionEnv = "DOCSTORE_COLLECTION"
	TimeoutEnv    = "DOCSTORE_TIMEOUT"
	AuthSourceEnv = "DOCSTORE_AUTH_SOURCE"
)

var envBindings = map[string]string{
	"user":        UserEnv,
	"password":    PasswordEnv,
	"host":        HostEnv,
	"port":        PortEnv,
	"database":    DatabaseEnv,
	"collection":  CollectionEnv,
	"timeout":     TimeoutEnv,
	"auth-source": AuthSourceEnv,
}

// AddFlags registers one flag per Config field on fs, defaulting to Default()
func AddFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("user", d.User, "MongoDB username (or "+UserEnv+")")
	fs.String("password", d.Password, "MongoDB password (prefer "+PasswordEnv+")")
	fs.String("host", d.Host, "MongoDB host")
	fs.Int("port", d.Port, "MongoDB port")
	fs.String("database", d.Database, "database name")
	fs.String("collection", d.Collection, "default collection name")
	fs.String("auth-source", d.AuthSource, "authentication database")
	fs.Duration("timeout", d.ServerSelectionTimeout, "server selection timeout")
}

// Load merges, highest precedence first: flags set on fs, the environment
// (after loading .env), the optional config file and Default(). fs may be nil.
// Credentials still missing afterwards are left empty for ResolveCredentials.
func Load(fs *pflag.FlagSet) (cfg Config, err error) {
	if err = godotenv.Load(DotEnvFile); err != nil && !os.IsNotExist(errors.Cause(err)) {
		err = errors.Wrapf(err, "loading %s", DotEnvFile)
		return
	}
	err = nil

	v := viper.New()
	d := Default()
	v.SetDefault("user", d.User)
	v.SetDefault("password", d.Password)
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("database", d.Database)
	v.SetDefault("collection", d.Collection)
	v.SetDefault("auth-source", d.AuthSource)
	v.SetDefault("timeout", d.ServerSelectionTimeout)
	for key, env := range envBindings {
		if err = v.BindEnv(key, env); err != nil {
			err = errors.Wrapf(err, "binding %s", env)
			return
		}
	}
	if fs != nil {
		if err = v.BindPFlags(fs); err != nil {
			err = errors.Wrap(err, "binding flags")
			return
		}
	}

	v.SetConfigName(ConfigName)
	v.AddConfigPath(".")
	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			err = errors.Wrap(err, "reading config file")
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&cfg); err != nil {
		err = errors.Wrap(err, "decoding config")
		return
	}
	err = cfg.Validate()
	return
}
