package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitStartup = 2
)

var (
	cfgFile string

	// fs is the filesystem configuration, logs and local media are read from
	fs = afero.NewOsFs()
)

// ExitError carries the process exit code of a command. A nil Err exits without printing anything
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}

	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

var rootCmd = &cobra.Command{
	Use:           "playbin",
	Short:         "Play media interactively from the terminal",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return exitOK
	}

	var exit *ExitError
	if !errors.As(err, &exit) {
		fmt.Fprintln(os.Stderr, err)
		return exitStartup
	}

	if exit.Err != nil {
		fmt.Fprintln(os.Stderr, exit.Err)
	}

	return exit.Code
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.playbin.yaml)")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	viper.SetFs(fs)
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitStartup)
		}

		viper.AddConfigPath(home)
		viper.SetConfigName(".playbin")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PLAYBIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "failed to read config file: %v\n", err)
			os.Exit(exitStartup)
		}
	}
}
