package main

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "req",
	Short: "Inspect and manipulate requirement state",
	Long: `req is the operator-facing counterpart to the requirements hook
engine: it reads and writes the same branch-state and registry files the
hooks consult, without going through the stdin/stdout hook protocol.`,
}

func init() {
	rootCmd.PersistentFlags().String("project", "", "project directory (default: cwd)")
	rootCmd.PersistentFlags().String("session", "", "session id (default: $CLAUDE_SESSION_ID)")
	rootCmd.PersistentFlags().String("config", "", "req config file (default: $HOME/.claude/req.yaml)")

	viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
	viper.BindPFlag("session", rootCmd.PersistentFlags().Lookup("session"))
	viper.BindEnv("session", "CLAUDE_SESSION_ID")
	viper.BindEnv("project", "CLAUDE_PROJECT_DIR")

	cobra.OnInitialize(initViperConfig)

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(satisfyCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(messagesCmd)
}

// initViperConfig loads $HOME/.claude/req.yaml if present — operator
// defaults (a preferred project dir, a pinned session id for scripting)
// layered under flags and environment (spec §9 "out of scope: policy
// cascade loading", which this sidesteps: req.yaml configures the CLI
// itself, never the policy document).
func initViperConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".claude"))
		viper.SetConfigName("req")
		viper.SetConfigType("yaml")
	}
	_ = viper.ReadInConfig() // missing/malformed config is not an error for this CLI
}

// Execute runs the req CLI.
func Execute() error {
	return rootCmd.Execute()
}

func projectDir() string {
	if p := viper.GetString("project"); p != "" {
		return p
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return cwd
}

// sessionID falls back to a fresh random id for ad hoc CLI invocations not
// wrapped by a hook-derived $CLAUDE_SESSION_ID — a PID is reused across a
// machine's lifetime and would risk colliding with a stale state entry.
func sessionID() string {
	if s := viper.GetString("session"); s != "" {
		return s
	}
	return uuid.NewString()
}
