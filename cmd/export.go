package cmd

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/amachie/folio/server/models"
	"github.com/spf13/cobra"
)

var (
	exportOutFile string
	exportAll     bool
)

// exportCmd renders the subscriber list as CSV, for mail-merge tools
// or a spreadsheet
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export newsletter subscribers to CSV",
	Long: `Export the newsletter subscriber list as a CSV document.
By default only active subscribers are included & the CSV is written to stdout.`,
	Run: func(cmd *cobra.Command, args []string) {
		cobra.CheckErr(runExport())
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&serverCongFile, "sconfig", "", "Config for server")
	exportCmd.Flags().StringVar(&exportOutFile, "out", "", "File to write the CSV to (defaults to stdout)")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Include unsubscribed records")
}

func runExport() error {
	serverCfg := serverConfig()

	err := models.AutoMigrate(serverCfg.GetString("sqlite.passPhrase"), dataDirectory())
	if err != nil {
		return err
	}

	var subscribers []models.Subscriber
	if exportAll {
		subscribers, err = models.AllSubscribers()
	} else {
		subscribers, err = models.ActiveSubscribers()
	}
	if err != nil {
		return err
	}

	if len(subscribers) == 0 {
		fmt.Fprintln(os.Stderr, warningLabel, "no subscribers to export")
	}

	csvDoc, err := models.SubscribersToCSV(subscribers)
	if err != nil {
		return err
	}

	if exportOutFile == "" {
		fmt.Print(csvDoc)
		return nil
	}

	return ioutil.WriteFile(exportOutFile, []byte(csvDoc), 0600)
}

// dataDirectory mirrors where the server keeps its sqlite db, so the
// export command reads the same records the server writes
func dataDirectory() string {
	folderName := "folio"
	rootDir, err := os.UserHomeDir()
	cobra.CheckErr(err)

	if isDevEnv || isTestEnv {
		folderName = "dev"
		rootDir, err = os.Getwd()
		cobra.CheckErr(err)
	}

	return filepath.Join(rootDir, folderName)
}
