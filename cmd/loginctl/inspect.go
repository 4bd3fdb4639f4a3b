package main

import (
	"fmt"
	"net/http"

	"github.com/jamesread/loginmanager/authpublic"
	"github.com/jamesread/loginmanager/sessions"
	"github.com/spf13/cobra"
)

type inspectOptions struct {
	configPath string
	userAgent  string
	host       string
}

// inspectValue decodes a cookie value as a request with the given headers would.
func inspectValue(cfg *authpublic.Config, opts inspectOptions, value string) (string, bool, error) {
	codec, err := sessions.NewCookieSessionFromConfig(cfg)
	if err != nil {
		return "", false, err
	}

	h := http.Header{}
	if opts.userAgent != "" {
		h.Set("User-Agent", opts.userAgent)
	}

	fp := sessions.Fingerprint(h, opts.host)
	key, ok := codec.DecodeValue([]string{codec.Name() + "=" + value}, fp)

	return key, ok, nil
}

func inspectCmd() *cobra.Command {
	opts := inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <cookie-value>",
		Short: "Decode a session cookie value for a given User-Agent and Host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := authpublic.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}

			key, ok, err := inspectValue(cfg, opts, args[0])
			if err != nil {
				return err
			}

			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "not accepted: anonymous")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "user key: %s\n", key)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to the loginmanager config file")
	cmd.Flags().StringVar(&opts.userAgent, "user-agent", "", "User-Agent of the request the cookie was set for")
	cmd.Flags().StringVar(&opts.host, "host", "", "Host of the request the cookie was set for")

	return cmd
}
