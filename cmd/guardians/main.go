package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.vocdoni.io/guardians/config"
)

const configName = "guardians"

func main() {
	if err := newCLI().Execute(); err != nil {
		os.Exit(1)
	}
}

// cli is the root command and the state shared by its subcommands.
type cli struct {
	root *cobra.Command
	app  *app
}

// Execute runs the command line and releases the resources opened by the
// commands, also when they fail.
func (c *cli) Execute() error {
	err := c.root.Execute()
	if terr := c.app.teardown(); terr != nil && err == nil {
		err = terr
	}
	return err
}

func newCLI() *cli {
	a := &app{}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	root := &cobra.Command{
		Use:          "guardians",
		Short:        "guardians inspects and exports the artifacts of election guardians",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.SortFlags = false
	flags.StringP("dataDir", "d", filepath.Join(home, ".guardians"),
		"directory where the config file and the archive are stored")
	flags.String("host", config.DefaultHost,
		"guardian service API endpoint (such as http://localhost:8080/api)")
	flags.String("token", "", "bearer auth token (uuid)")
	flags.StringP("election", "e", "", "election id used when none is given as argument")
	flags.StringP("outDir", "o", config.DefaultOutDir, "directory where exported manifests are written")
	flags.Bool("gzip", false, "compress the exported manifests")
	flags.Bool("archive", false, "keep a copy of every exported manifest in the local archive")
	flags.String("archiveDir", "", "local archive directory (dataDir/archive if empty)")
	flags.Duration("timeout", config.DefaultFetchTimeout, "timeout of every guardian retrieval")
	flags.StringP("logLevel", "l", config.DefaultLogLevel, "log level (debug, info, warn, error, fatal)")
	flags.String("logOutput", config.DefaultLogOutput, "log output (stdout, stderr or filepath)")
	flags.String("logErrorFile", "", "log errors and warnings to a file")
	flags.String("metricsAddr", "", "serve prometheus metrics on this address (disabled if empty)")
	flags.Bool("saveConfig", false, "overwrite the config file with the provided CLI flags")
	flags.String("email", "", "log in with this email before any request")
	flags.String("password", "", "password used with --email, prompted if empty")

	root.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newExportCmd(a),
		newArchiveCmd(a),
		newLoginCmd(a),
		newBrowseCmd(a),
	)
	return &cli{root: root, app: a}
}

// configKeys are the flags stored in the config file. Credentials are not.
var configKeys = []string{
	"host", "token", "election", "outDir", "gzip", "archive", "archiveDir",
	"timeout", "logLevel", "logOutput", "logErrorFile", "metricsAddr",
}

// loadConfig merges, by order of preference, the CLI flags, the GUARDIANS_
// environment variables and the config file found in the data directory.
func loadConfig(flags *flag.FlagSet) (*config.Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yml")
	v.SetEnvPrefix("GUARDIANS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.BindPFlag("dataDir", flags.Lookup("dataDir")); err != nil {
		return nil, err
	}
	if err := v.BindPFlag("saveConfig", flags.Lookup("saveConfig")); err != nil {
		return nil, err
	}
	for _, k := range configKeys {
		if err := v.BindPFlag(k, flags.Lookup(k)); err != nil {
			return nil, err
		}
	}

	dataDir := v.GetString("dataDir")
	v.AddConfigPath(dataDir)
	cfgFile := filepath.Join(dataDir, configName+".yml")
	if _, err := os.Stat(cfgFile); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, config.Error{
				Critical: true,
				Message:  fmt.Sprintf("cannot read config file %s: %s", cfgFile, err),
			}
		}
	}

	cfg := config.NewConfig()
	cfg.DataDir = dataDir
	cfg.Host = v.GetString("host")
	cfg.Token = v.GetString("token")
	cfg.ElectionID = v.GetString("election")
	cfg.OutDir = v.GetString("outDir")
	cfg.Gzip = v.GetBool("gzip")
	cfg.Archive = v.GetBool("archive")
	cfg.ArchiveDir = v.GetString("archiveDir")
	cfg.FetchTimeout = v.GetDuration("timeout")
	cfg.LogLevel = v.GetString("logLevel")
	cfg.LogOutput = v.GetString("logOutput")
	cfg.LogErrorFile = v.GetString("logErrorFile")
	cfg.MetricsAddr = v.GetString("metricsAddr")
	cfg.SaveConfig = v.GetBool("saveConfig")
	if cfg.ArchiveDir == "" {
		cfg.ArchiveDir = filepath.Join(dataDir, "archive")
	}

	if cfg.SaveConfig {
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return nil, fmt.Errorf("cannot create data directory: %w", err)
		}
		out := viper.New()
		for _, k := range configKeys {
			out.Set(k, v.Get(k))
		}
		if err := out.WriteConfigAs(cfgFile); err != nil {
			return nil, config.Error{
				Message: fmt.Sprintf("cannot write config file %s: %s", cfgFile, err),
			}
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
