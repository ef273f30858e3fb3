// Copyright 2024 LatentFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"patchfs/internal/config"
	"patchfs/internal/storage"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion sets the version info for --version flag
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

// getVersionString returns the version string with build info
func getVersionString() string {
	buildDate := formatBuildDate(date)
	if strings.HasSuffix(version, "-dev") {
		return fmt.Sprintf("%s (%s, commit: %s)", version, buildDate, commit)
	}
	return fmt.Sprintf("%s (%s)", version, buildDate)
}

// formatBuildDate converts epoch timestamp to readable date
func formatBuildDate(epoch string) string {
	ts, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return epoch
	}
	return time.Unix(ts, 0).Format("2006-01-02")
}

// Persistent flags
var (
	configFlag   string
	hostFlag     string
	dbFlag       string
	logLevelFlag string
)

// settings is loaded in PersistentPreRunE and shared by all subcommands
var settings *config.Settings

var rootCmd = &cobra.Command{
	Use:   "patchfs",
	Short: "View a source tree as if a patch had been applied",
	Long: `patchfs serves reads and stats of a host directory overlaid with a
stored patch (added, deleted and modified files) without writing the patch
onto the host. Every file and directory the patch touches reports the
patch version, so caches keyed on versions invalidate correctly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		if configFlag == "" {
			if err := config.Init(); err != nil {
				return fmt.Errorf("failed to initialize config: %w", err)
			}
		}

		s, err := config.Load(configFlag)
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		if hostFlag != "" {
			s.HostRoot = hostFlag
		}
		if dbFlag != "" {
			s.Database = dbFlag
		}
		if logLevelFlag != "" {
			s.LogLevel = logLevelFlag
		}
		settings = s

		storage.SetConfigBusyTimeout(s.BusyTimeout)
		setupLogging(s.NormalizedLogLevel(), os.Stderr)
		return nil
	},
}

// setupLogging points logrus at out with the given level. "off" and
// "none" discard all output.
func setupLogging(level string, out io.Writer) {
	switch level {
	case "off", "none":
		log.SetOutput(io.Discard)
		return
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}
	log.SetOutput(out)
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("patchfs version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFlag, "config", "", "Settings file (default: $PATCHFS_CONFIG_DIR/settings.yaml)")
	flags.StringVar(&hostFlag, "host", "", "Host directory (default: current directory)")
	flags.StringVar(&dbFlag, "db", "", "Patch store database")
	flags.StringVar(&logLevelFlag, "log-level", "", "Log level: trace, debug, info, warn, error, off")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
