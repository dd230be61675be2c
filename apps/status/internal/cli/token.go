package cli

import (
	"errors"
	"fmt"
	"strings"

	"StatusServer/config"
	"StatusServer/pkg/util"

	"github.com/spf13/cobra"
)

// TokenOptions token 命令参数
type TokenOptions struct {
	*RootOptions
	UserName string
	DeviceID string
}

// NewTokenCommand 签发本地调试用的访问令牌
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed access token for local testing",
		Example: `  status token --user alice --device d1
  wscat -c "ws://localhost:8080/ws?token=$(status token --user alice --device d1)&device_id=d1"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userName := strings.TrimSpace(opts.UserName)
			deviceID := strings.TrimSpace(opts.DeviceID)
			if userName == "" || deviceID == "" {
				return errors.New("--user and --device are required")
			}

			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			util.InitJWT(cfg.JWT)

			token, err := util.GenerateToken(userName, deviceID)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.UserName, "user", "", "user name (required)")
	cmd.Flags().StringVar(&opts.DeviceID, "device", "", "device id bound into the token (required)")

	return cmd
}
