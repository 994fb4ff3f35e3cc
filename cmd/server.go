package cmd

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"

	devconfig "github.com/amachie/folio/dev/config"
	"github.com/amachie/folio/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start a folio server",
	Long:  `The folio server houses the newsletter subscriber records, blog posts, projects & contact forms behind the portfolio site`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start(serverConfig(), isDevEnv)
	},
}

var serverCongFile string

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverCongFile, "sconfig", "", "Config for server")
}

func serverConfig() *viper.Viper {
	config = viper.New()

	if isDevEnv {
		serverCongFile = devConfigFilePath()
	}

	if serverCongFile == "" {
		cobra.CheckErr(formattedError("a server config is required, pass one with --sconfig or run with --dev"))
	}

	config.SetConfigFile(serverCongFile)
	config.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := config.ReadInConfig(); err != nil {
		log.Panic(fmt.Sprintf("error reading server config file: %v", err))
	}

	return config
}

// devConfigFilePath returns the path to the dev server config,
// creating the file from the packaged default if it doesn't exist yet
func devConfigFilePath() string {
	workingDir, err := os.Getwd()
	if err != nil {
		log.Panic(err)
	}

	configDir := filepath.Join(workingDir, "dev", "config")
	configFilePath := filepath.Join(configDir, "server.yml")

	if _, err := os.Stat(configFilePath); os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, warningLabel, "no dev server config found, creating one at", configFilePath)

		cobra.CheckErr(os.MkdirAll(configDir, 0755))
		cobra.CheckErr(ioutil.WriteFile(configFilePath, []byte(devconfig.SERVER_YML), 0600))
	}

	return configFilePath
}
