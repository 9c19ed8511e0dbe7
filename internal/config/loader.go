package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	packerrors "github.com/tain335/svpack/internal/errors"
	"gopkg.in/yaml.v3"
)

// Environment variable prefix for svpack configuration.
const envPrefix = "SVPACK"

// DefaultConfigName is looked up in the project root when no file is given.
const DefaultConfigName = "svpack"

type LoaderOptions struct {
	// ConfigFile overrides <root>/svpack.yaml.
	ConfigFile string
	// Root is the project directory; defaults to the working directory.
	Root string
	// Watch forces watch mode when set, regardless of file and env.
	Watch *bool
}

type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The watch flag keeps the name the rollup tooling exports as well.
	_ = v.BindEnv("watch", "SVPACK_WATCH", "ROLLUP_WATCH")
	_ = v.BindEnv("sass.engine", "SVPACK_SASS_ENGINE")
	_ = v.BindEnv("sass.binary", "SVPACK_SASS_BINARY")
	_ = v.BindEnv("livereload.port", "SVPACK_LIVERELOAD_PORT")
	_ = v.BindEnv("serve.command", "SVPACK_SERVE_COMMAND")

	setDefaults(v, Default())
	return &Loader{v: v}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("root", d.Root)
	v.SetDefault("input", d.Input)
	v.SetDefault("outdir", d.Outdir)
	v.SetDefault("outfile", d.Outfile)
	v.SetDefault("globalName", d.GlobalName)
	v.SetDefault("format", d.Format)
	v.SetDefault("watch", d.Watch)
	v.SetDefault("clearScreen", d.ClearScreen)
	copies := make([]map[string]interface{}, 0, len(d.Copy))
	for _, c := range d.Copy {
		copies = append(copies, map[string]interface{}{"src": c.Src, "dest": c.Dest})
	}
	v.SetDefault("copy", copies)
	aliases := make([]map[string]interface{}, 0, len(d.Alias))
	for _, a := range d.Alias {
		aliases = append(aliases, map[string]interface{}{"find": a.Find, "replacement": a.Replacement})
	}
	v.SetDefault("alias", aliases)
	v.SetDefault("resolveExtensions", d.ResolveExtensions)
	v.SetDefault("dedupe", d.Dedupe)
	v.SetDefault("replace.delimiters", d.Replace.Delimiters)
	v.SetDefault("serve.command", d.Serve.Command)
	v.SetDefault("serve.enabled", d.Serve.Enabled)
	v.SetDefault("livereload.enabled", d.LiveReload.Enabled)
	v.SetDefault("livereload.dir", d.LiveReload.Dir)
	v.SetDefault("livereload.host", d.LiveReload.Host)
	v.SetDefault("livereload.port", d.LiveReload.Port)
	v.SetDefault("sass.engine", d.Sass.Engine)
	v.SetDefault("sass.binary", d.Sass.Binary)
	v.SetDefault("compiler.timeout", d.Compiler.Timeout)
	v.SetDefault("report", d.Report)
}

// Load reads the config file (if any), environment and overrides, then validates.
func (l *Loader) Load(opts LoaderOptions) (*Config, error) {
	root := opts.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, packerrors.Wrap(err, packerrors.ErrConfigLoad, "getting working directory")
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, packerrors.Wrap(err, packerrors.ErrConfigLoad, "resolving project root")
	}

	if opts.ConfigFile != "" {
		l.v.SetConfigFile(opts.ConfigFile)
	} else {
		l.v.SetConfigName(DefaultConfigName)
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(root)
	}
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, packerrors.Wrap(err, packerrors.ErrConfigLoad, "reading config file")
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, packerrors.Wrap(err, packerrors.ErrConfigLoad, "unmarshaling config")
	}
	values, err := replaceValues(l.v.ConfigFileUsed())
	if err != nil {
		return nil, err
	}
	if values != nil {
		cfg.Replace.Values = values
	}
	cfg.Root = root
	if opts.Watch != nil && *opts.Watch {
		cfg.Watch = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// replaceValues reads replace.values straight from the config file, since
// viper folds keys to lower case and placeholders are case sensitive.
func replaceValues(file string) (map[string]string, error) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, packerrors.Wrap(err, packerrors.ErrConfigLoad, "reading config file")
	}
	var doc struct {
		Replace struct {
			Values map[string]interface{} `yaml:"values"`
		} `yaml:"replace"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, packerrors.Wrap(err, packerrors.ErrConfigLoad, "reading replace.values")
	}
	if doc.Replace.Values == nil {
		return nil, nil
	}
	values := make(map[string]string, len(doc.Replace.Values))
	for k, v := range doc.Replace.Values {
		if v == nil {
			values[k] = ""
			continue
		}
		values[k] = fmt.Sprint(v)
	}
	return values, nil
}

// ConfigFileUsed reports the file viper read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}
