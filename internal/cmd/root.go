package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zero-motorcycle-community/zero-log-parser/internal/model"
)

var (
	cfgFile   string
	outputFmt string
	unitType  string
	utcOffset int
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "zlp",
	Short: "zlp — Zero MBB/BMS log decoder",
	Long: `zlp decodes the binary diagnostic log dumps pulled off Zero Motorcycles
control units (the main bike board and the battery management system) into
human-readable reports matching the manufacturer's reference decoder, so the
output can be diffed against the official text.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.zlp.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "output format: text, json, csv")
	rootCmd.PersistentFlags().StringVarP(&unitType, "type", "t", "", "unit type for unlabeled dumps: MBB or BMS")
	rootCmd.PersistentFlags().IntVar(&utcOffset, "utc-offset", 0, "timestamp UTC offset in hours (0 = reference GMT-7 convention)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".zlp")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

// declaredKind maps the --type flag (or a kind hinted in the filename) to a
// unit kind; empty means auto-detect from the signature.
func declaredKind(path string) model.UnitKind {
	switch strings.ToUpper(unitType) {
	case "MBB":
		return model.UnitMBB
	case "BMS":
		return model.UnitBMS
	}
	upper := strings.ToUpper(path)
	switch {
	case strings.Contains(upper, "MBB"):
		return model.UnitMBB
	case strings.Contains(upper, "BMS"):
		return model.UnitBMS
	}
	return ""
}

// utcOffsetSeconds converts the --utc-offset flag to seconds.
func utcOffsetSeconds() int {
	return utcOffset * 60 * 60
}
