package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docupload/docupload/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage docupload configuration",
		Long: `Configuration management commands for docupload.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for docupload.

The configuration is saved to config.ini in the user config directory
(or the path given with --config).

Use --force to overwrite an existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			fmt.Fprintln(out, "Document Uploader Configuration Setup")
			fmt.Fprintln(out, "=====================================")
			fmt.Fprintln(out)

			cfg, err := promptConfig(newPrompter(cmd.InOrStdin(), out))
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}

			GetLogger().Info().Str("path", path).Msg("Configuration saved")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "✓ Configuration saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// promptConfig asks for the settings that have no usable default.
func promptConfig(p *prompter) (*config.Config, error) {
	cfg := config.New()
	var err error

	if cfg.Backend, err = p.Choice("Storage backend", cfg.Backend, config.BackendDrive, config.BackendS3, config.BackendAzure); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case config.BackendDrive:
		if cfg.Drive.ParentFolderID, err = p.String("Parent folder ID (empty for My Drive)", ""); err != nil {
			return nil, err
		}
		if cfg.Auth.CallbackPort, err = p.Int("OAuth callback port", cfg.Auth.CallbackPort); err != nil {
			return nil, err
		}
	case config.BackendS3:
		if cfg.S3.Bucket, err = p.String("Bucket", ""); err != nil {
			return nil, err
		}
		if cfg.S3.Region, err = p.String("Region", "us-east-1"); err != nil {
			return nil, err
		}
		if cfg.S3.Prefix, err = p.String("Key prefix", ""); err != nil {
			return nil, err
		}
		if cfg.S3.Endpoint, err = p.String("Custom endpoint (empty for AWS)", ""); err != nil {
			return nil, err
		}
	case config.BackendAzure:
		if cfg.Azure.ServiceURL, err = p.String("Account URL with SAS token", ""); err != nil {
			return nil, err
		}
		if cfg.Azure.Container, err = p.String("Blob container", ""); err != nil {
			return nil, err
		}
		if cfg.Azure.Prefix, err = p.String("Blob prefix", ""); err != nil {
			return nil, err
		}
	}

	if cfg.Upload.FileNaming, err = p.Choice("Name uploaded files after", cfg.Upload.FileNaming, config.NamingDocument, config.NamingOriginal); err != nil {
		return nil, err
	}

	if cfg.Proxy.Mode, err = p.Choice("Proxy mode", cfg.Proxy.Mode, "no-proxy", "system", "basic", "ntlm"); err != nil {
		return nil, err
	}
	if cfg.Proxy.Mode == "basic" || cfg.Proxy.Mode == "ntlm" {
		if cfg.Proxy.Host, err = p.String("Proxy host", ""); err != nil {
			return nil, err
		}
		if cfg.Proxy.Port, err = p.Int("Proxy port", 8080); err != nil {
			return nil, err
		}
		if cfg.Proxy.User, err = p.String("Proxy user (password is asked at run time)", ""); err != nil {
			return nil, err
		}
	}

	if cfg.Notifications.Enabled, err = p.Bool("Desktop notifications", cfg.Notifications.Enabled); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			showConfig(out, cfg)

			fmt.Fprintf(out, "Configuration file: %s\n", path)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(out, "  (file does not exist - using defaults)")
			}
			return nil
		},
	}
}

func showConfig(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out, "Current Configuration")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Storage backend: %s\n", cfg.Backend)
	switch cfg.Backend {
	case config.BackendDrive:
		fmt.Fprintf(out, "  Parent folder: %s\n", orDefault(cfg.Drive.ParentFolderID, "<My Drive>"))
	case config.BackendS3:
		fmt.Fprintf(out, "  Bucket:   %s\n", cfg.S3.Bucket)
		fmt.Fprintf(out, "  Region:   %s\n", cfg.S3.Region)
		fmt.Fprintf(out, "  Prefix:   %s\n", orDefault(cfg.S3.Prefix, "<none>"))
		fmt.Fprintf(out, "  Endpoint: %s\n", orDefault(cfg.S3.Endpoint, "<AWS>"))
		if cfg.S3.AccessKeyID != "" {
			fmt.Fprintln(out, "  Credentials: <static keys set>")
		} else {
			fmt.Fprintln(out, "  Credentials: <default AWS chain>")
		}
	case config.BackendAzure:
		// The SAS query string is a credential
		url, _, _ := strings.Cut(cfg.Azure.ServiceURL, "?")
		fmt.Fprintf(out, "  Account URL: %s\n", url)
		fmt.Fprintf(out, "  Container:   %s\n", cfg.Azure.Container)
		fmt.Fprintf(out, "  Prefix:      %s\n", orDefault(cfg.Azure.Prefix, "<none>"))
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Upload Settings:")
	fmt.Fprintf(out, "  File naming:         %s\n", cfg.Upload.FileNaming)
	fmt.Fprintf(out, "  Detect content type: %t\n", cfg.Upload.DetectContentType)
	fmt.Fprintf(out, "  Include hidden:      %t\n", cfg.Upload.IncludeHidden)
	fmt.Fprintf(out, "  Skip subdirectories: %t\n", cfg.Upload.SkipSubdirectories)
	if len(cfg.Upload.Exclude) > 0 {
		fmt.Fprintf(out, "  Exclude:             %s\n", strings.Join(cfg.Upload.Exclude, ", "))
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Auth Settings:")
	fmt.Fprintf(out, "  Callback port: %d\n", cfg.Auth.CallbackPort)
	if dir, err := cfg.CacheDirectory(); err == nil {
		fmt.Fprintf(out, "  Cache dir:     %s\n", dir)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Proxy Settings:")
	fmt.Fprintf(out, "  Proxy Mode: %s\n", cfg.Proxy.Mode)
	if cfg.Proxy.Host != "" {
		fmt.Fprintf(out, "  Proxy Host: %s\n", cfg.Proxy.Host)
		fmt.Fprintf(out, "  Proxy Port: %d\n", cfg.Proxy.Port)
	}
	if cfg.Proxy.User != "" {
		fmt.Fprintf(out, "  Proxy User: %s\n", cfg.Proxy.User)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Notifications:")
	fmt.Fprintf(out, "  Enabled:       %t\n", cfg.Notifications.Enabled)
	fmt.Fprintf(out, "  Show failures: %t\n", cfg.Notifications.ShowFailures)
	fmt.Fprintf(out, "  Show summary:  %t\n", cfg.Notifications.ShowSummary)
	fmt.Fprintln(out)

	if cfg.Metrics.ListenAddr != "" {
		fmt.Fprintf(out, "Metrics endpoint: http://%s/metrics\n\n", cfg.Metrics.ListenAddr)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cfgFile == "" {
				fmt.Fprintln(out, "Default configuration path:")
			} else {
				fmt.Fprintln(out, "Configuration path (from --config flag):")
			}
			fmt.Fprintf(out, "  %s\n\n", path)

			if info, err := os.Stat(path); err == nil {
				fmt.Fprintln(out, "Status: ✓ File exists")
				fmt.Fprintf(out, "Size:   %d bytes\n", info.Size())
				fmt.Fprintf(out, "Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintln(out, "Status: File does not exist")
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Create a configuration file with: docupload config init")
			}
			return nil
		},
	}
}
