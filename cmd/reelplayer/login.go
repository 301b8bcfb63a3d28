package main

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/depeter/reelplayer/internal/auth"
	"github.com/depeter/reelplayer/internal/config"
	"github.com/depeter/reelplayer/internal/jellyfin"
)

type loginOptions struct {
	server   string
	username string
	password string
}

var loginOpts loginOptions

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd)

	f := loginCmd.Flags()
	f.StringVarP(&loginOpts.server, "server", "s", "", "Jellyfin server URL")
	f.StringVarP(&loginOpts.username, "username", "U", "", "Jellyfin user name")
	f.StringVarP(&loginOpts.password, "password", "p", "", "Password; prompted for when omitted")
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to a Jellyfin server and remember the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if loginOpts.server != "" {
			cfg.Server.URL = loginOpts.server
		}
		if loginOpts.username != "" {
			cfg.Server.Username = loginOpts.username
		}

		if cfg.Server.URL == "" {
			if err := survey.AskOne(&survey.Input{
				Message: "Jellyfin server:",
				Help:    "For example https://media.example.com or 192.168.1.10:8096",
			}, &cfg.Server.URL, survey.WithValidator(survey.Required)); err != nil {
				return err
			}
		}
		if cfg.Server.Username == "" {
			if err := survey.AskOne(&survey.Input{Message: "User name:"},
				&cfg.Server.Username, survey.WithValidator(survey.Required)); err != nil {
				return err
			}
		}
		password := loginOpts.password
		if password == "" {
			if err := survey.AskOne(&survey.Password{Message: "Password:"}, &password); err != nil {
				return err
			}
		}

		log, closeLog, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer closeLog()

		client := jellyfin.NewClient(cfg.Server.URL, deviceID(cfg), log)
		if err := client.Authenticate(cmd.Context(), cfg.Server.Username, password); err != nil {
			return err
		}
		cfg.Server.URL = client.ServerURL()
		cfg.Server.UserID = client.UserID()
		storeToken(cfg, client.Token(), log)
		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in to %s as %s\n", cfg.Server.URL, cfg.Server.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved Jellyfin session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Server.UserID == "" && cfg.Server.Token == "" {
			return errors.New("not signed in")
		}
		if err := auth.DeleteToken(cfg.Server.URL, cfg.Server.UserID); err != nil {
			logrus.WithError(err).Warn("could not remove token from keyring")
		}
		cfg.Server.Token = ""
		cfg.Server.UserID = ""
		if err := saveConfig(cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed out of %s\n", cfg.Server.URL)
		return nil
	},
}

// storeToken keeps the token in the keyring, or in the config file when no
// keyring is available.
func storeToken(cfg *config.Config, token string, log *logrus.Entry) {
	if err := auth.SetToken(cfg.Server.URL, cfg.Server.UserID, token); err != nil {
		log.WithError(err).Warn("keyring unavailable, saving token in the config file")
		cfg.Server.Token = token
		return
	}
	cfg.Server.Token = ""
}

// sessionToken returns the saved token for the configured server.
func sessionToken(cfg *config.Config) string {
	if cfg.Server.Token != "" {
		return cfg.Server.Token
	}
	if cfg.Server.URL == "" || cfg.Server.UserID == "" {
		return ""
	}
	token, err := auth.GetToken(cfg.Server.URL, cfg.Server.UserID)
	if err != nil {
		return ""
	}
	return token
}
