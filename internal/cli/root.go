// Package cli provides the command-line interface for cloudsocks.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xenitz/cloudsocks/internal/doctor"
	"github.com/xenitz/cloudsocks/internal/events"
	"github.com/xenitz/cloudsocks/internal/history"
	"github.com/xenitz/cloudsocks/internal/launcher"
	"github.com/xenitz/cloudsocks/internal/model"
	"github.com/xenitz/cloudsocks/internal/resolver"
	"github.com/xenitz/cloudsocks/internal/settings"
	"github.com/xenitz/cloudsocks/internal/sshexec"
	"github.com/xenitz/cloudsocks/internal/supervisor"
	"github.com/xenitz/cloudsocks/internal/sysproxy"
	"github.com/xenitz/cloudsocks/internal/ui"
	"github.com/xenitz/cloudsocks/internal/update"
	"github.com/xenitz/cloudsocks/internal/util"
)

// Version is the build version, overridden at link time.
var Version = "dev"

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "cloudsocks",
		Short: "SOCKS proxy over SSH to a cloud VM",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ui.Run()
		},
	}

	root.AddCommand(newConnectCmd())
	root.AddCommand(newShellCmd())
	root.AddCommand(newProxyCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newEventsCmd())
	root.AddCommand(newUpdateCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// targetFlags are the provider/target options shared by connect and shell.
type targetFlags struct {
	provider   string
	project    string
	zone       string
	instance   string
	region     string
	instanceID string
	host       string
	user       string
	keyFile    string
	port       int
}

func (f *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "cloud provider: gcp or aws (default from settings)")
	cmd.Flags().StringVar(&f.project, "project", "", "GCP project id")
	cmd.Flags().StringVar(&f.zone, "zone", "", "GCP zone")
	cmd.Flags().StringVar(&f.instance, "instance", "", "GCP instance name")
	cmd.Flags().StringVar(&f.region, "region", "", "AWS region")
	cmd.Flags().StringVar(&f.instanceID, "instance-id", "", "AWS EC2 instance id")
	cmd.Flags().StringVar(&f.host, "host", "", "connect to this address directly, skipping EC2 resolution")
	cmd.Flags().StringVar(&f.user, "user", "", "SSH user for AWS targets")
	cmd.Flags().StringVar(&f.keyFile, "key", "", "SSH private key file for AWS targets")
	cmd.Flags().IntVar(&f.port, "port", 0, "local SOCKS port")
}

// request merges flags over the persisted last-used values, so a bare
// `cloudsocks connect` repeats the previous session.
func (f *targetFlags) request(cfg settings.Config) model.TunnelRequest {
	req := model.TunnelRequest{
		Provider:   model.Provider(util.DefaultString(f.provider, cfg.Provider)),
		Project:    util.DefaultString(f.project, cfg.GCP.Project),
		Zone:       util.DefaultString(f.zone, cfg.GCP.Zone),
		Instance:   util.DefaultString(f.instance, cfg.GCP.Instance),
		Region:     util.DefaultString(f.region, cfg.AWS.Region),
		InstanceID: util.DefaultString(f.instanceID, cfg.AWS.InstanceID),
		Host:       util.DefaultString(f.host, cfg.AWS.Host),
		User:       util.DefaultString(f.user, cfg.AWS.User),
		KeyFile:    util.DefaultString(f.keyFile, cfg.AWS.KeyFile),
		SocksPort:  cfg.Proxy.Port,
	}
	if f.port > 0 {
		req.SocksPort = f.port
	}
	return req
}

// remember persists the accepted request as the new defaults.
func remember(cfg settings.Config, req model.TunnelRequest) {
	cfg.Provider = string(req.Provider)
	cfg.Proxy.Port = req.SocksPort
	switch req.Provider {
	case model.ProviderGCP:
		cfg.GCP = settings.GCPConfig{Project: req.Project, Zone: req.Zone, Instance: req.Instance}
	case model.ProviderAWS:
		cfg.AWS = settings.AWSConfig{
			Region: req.Region, InstanceID: req.InstanceID,
			Host: req.Host, User: req.User, KeyFile: req.KeyFile,
		}
	}
	if err := settings.Save(cfg); err != nil {
		slog.Warn("failed to save settings", "error", err)
	}
}

func newConnectCmd() *cobra.Command {
	flags := &targetFlags{}
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Start the SSH SOCKS tunnel and stream its output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := settings.Load()
			if err != nil {
				return err
			}
			req := flags.request(cfg)
			if err := req.Validate(); err != nil {
				return err
			}
			remember(cfg, req)

			opts := supervisor.Options{}
			if req.NeedsResolution() {
				r, err := resolver.NewEC2(cmd.Context(), req.Region)
				if err != nil {
					return fmt.Errorf("init EC2 client: %w", err)
				}
				opts.Resolver = r
			}
			sup := supervisor.New(launcher.New(), opts)

			journal := events.NewStore()
			logEvent(journal, req, events.TypeStartRequested, "")

			ch, err := sup.Start(cmd.Context(), req)
			if err != nil {
				return err
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				<-sigCh
				fmt.Fprintln(os.Stderr, "stopping tunnel...")
				sup.Stop()
			}()

			connected := false
			for evt := range ch {
				switch evt.Kind {
				case supervisor.EventLog:
					fmt.Println(evt.Line)
				case supervisor.EventStatus:
					if evt.Connected && !connected {
						connected = true
						fmt.Printf("tunnel up: SOCKS proxy on 127.0.0.1:%d\n", req.SocksPort)
						logEvent(journal, req, events.TypeConnected, "")
						if err := history.Touch(req.Target()); err != nil {
							slog.Warn("failed to record history", "error", err)
						}
					}
				}
			}

			switch sup.State() {
			case model.StateFailed:
				logEvent(journal, req, events.TypeFailed, "")
				return fmt.Errorf("tunnel failed")
			default:
				logEvent(journal, req, events.TypeStopped, "")
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newShellCmd() *cobra.Command {
	flags := &targetFlags{}
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Open an interactive SSH session on the target VM",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := settings.Load()
			if err != nil {
				return err
			}
			req := flags.request(cfg)
			if err := req.Validate(); err != nil {
				return err
			}

			addr := ""
			if req.NeedsResolution() {
				r, err := resolver.NewEC2(cmd.Context(), req.Region)
				if err != nil {
					return fmt.Errorf("init EC2 client: %w", err)
				}
				addr, err = r.Resolve(cmd.Context(), req.InstanceID)
				if err != nil {
					return err
				}
			}
			// Interactive sessions may last hours; bound them anyway.
			ctx, cancel := context.WithTimeout(cmd.Context(), 24*time.Hour)
			defer cancel()
			return sshexec.RunInteractive(ctx, req, addr)
		},
	}
	flags.register(cmd)
	return cmd
}

func newProxyCmd() *cobra.Command {
	root := &cobra.Command{Use: "proxy", Short: "Toggle the OS HTTP/HTTPS proxy"}

	on := &cobra.Command{
		Use:   "on",
		Short: "Point the system proxy at the local SOCKS listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := settings.Load()
			if err != nil {
				return err
			}
			if err := sysproxy.New().Enable(cfg.Proxy.Host, cfg.Proxy.Port); err != nil {
				return err
			}
			fmt.Printf("system proxy enabled: %s:%d\n", cfg.Proxy.Host, cfg.Proxy.Port)
			appendEvent(events.Event{
				EventType: events.TypeProxyEnabled,
				Message:   cfg.Proxy.Host + ":" + strconv.Itoa(cfg.Proxy.Port),
			})
			return nil
		},
	}

	off := &cobra.Command{
		Use:   "off",
		Short: "Disable the system proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sysproxy.New().Disable(); err != nil {
				return err
			}
			fmt.Println("system proxy disabled")
			appendEvent(events.Event{EventType: events.TypeProxyDisabled})
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current system proxy state",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := sysproxy.New().Current()
			if err != nil {
				return err
			}
			if st.Enabled {
				fmt.Printf("system proxy enabled: %s\n", st.Server)
			} else {
				fmt.Println("system proxy disabled")
			}
			return nil
		},
	}

	root.AddCommand(on, off, status)
	return root
}

func newDoctorCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := doctor.Run()
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			if len(report.Issues) == 0 {
				fmt.Println("no issues found")
				return nil
			}
			fmt.Printf("%-8s %-18s %-28s %s\n", "SEV", "CHECK", "TARGET", "MESSAGE")
			for _, issue := range report.Issues {
				fmt.Printf("%-8s %-18s %-28s %s\n", issue.Severity, issue.Check, issue.Target, issue.Message)
				if issue.Recommendation != "" {
					fmt.Printf("         -> %s\n", issue.Recommendation)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newEventsCmd() *cobra.Command {
	var (
		provider  string
		target    string
		eventType string
		since     time.Duration
		limit     int
		jsonOut   bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the tunnel event journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := events.Query{Provider: provider, Target: target, EventType: eventType, Limit: limit}
			if since > 0 {
				q.Since = time.Now().Add(-since)
			}
			evts, err := events.NewStore().Read(q)
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(evts)
			}
			fmt.Printf("%-25s %-6s %-24s %-16s %s\n", "TIMESTAMP", "PROV", "TARGET", "TYPE", "MESSAGE")
			for _, evt := range evts {
				fmt.Printf("%-25s %-6s %-24s %-16s %s\n",
					evt.Timestamp.Format(time.RFC3339), util.EmptyDash(string(evt.Provider)),
					util.EmptyDash(evt.Target), evt.EventType, util.EmptyDash(evt.Message))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "filter by provider (gcp or aws)")
	cmd.Flags().StringVar(&target, "target", "", "filter by tunnel target label")
	cmd.Flags().StringVar(&eventType, "type", "", "filter by event type")
	cmd.Flags().DurationVar(&since, "since", 0, "only events newer than this duration (e.g. 2h)")
	cmd.Flags().IntVar(&limit, "limit", 0, "keep only the last N events")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newUpdateCmd() *cobra.Command {
	var skip bool
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Check GitHub for a newer release",
		RunE: func(cmd *cobra.Command, args []string) error {
			current := Version
			if current == "dev" {
				current = "0.0.0"
			}
			res, err := update.NewChecker().Check(cmd.Context(), current)
			if err != nil {
				return err
			}
			switch res.Status {
			case update.StatusUpdateAvailable:
				if skip {
					if err := recordSkippedVersion(res.Latest); err != nil {
						return err
					}
					fmt.Printf("skipping version %s\n", res.Latest)
					return nil
				}
				if cfg, err := settings.Load(); err == nil && cfg.SkipUpdateVersion == res.Latest {
					fmt.Printf("up to date (%s, skipping %s)\n", Version, res.Latest)
					return nil
				}
				fmt.Printf("version %s is available (current %s): %s\n", res.Latest, Version, update.ReleaseURL())
			case update.StatusNoReleases:
				fmt.Println("no releases published yet")
			default:
				fmt.Printf("up to date (%s)\n", Version)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skip, "skip", false, "skip the latest version in future checks")
	return cmd
}

// recordSkippedVersion persists version so future checks treat it as current.
func recordSkippedVersion(version string) error {
	cfg, err := settings.Load()
	if err != nil {
		return fmt.Errorf("record skipped version: %w", err)
	}
	cfg.SkipUpdateVersion = version
	if err := settings.Save(cfg); err != nil {
		return fmt.Errorf("record skipped version: %w", err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version)
		},
	}
}

// logEvent appends a tunnel lifecycle record best-effort; journal trouble
// never blocks tunnel operations.
func logEvent(s *events.Store, req model.TunnelRequest, eventType, message string) {
	if err := s.Append(events.Event{
		Provider:  req.Provider,
		Target:    req.Target(),
		EventType: eventType,
		Message:   message,
	}); err != nil {
		slog.Warn("failed to append event", "type", eventType, "error", err)
	}
}

func appendEvent(evt events.Event) {
	if err := events.NewStore().Append(evt); err != nil {
		slog.Warn("failed to append event", "type", evt.EventType, "error", err)
	}
}
