// Command corelinkctl opens the radio link against a single shared MAVLink
// transport, runs discovery, and drives the link's Core API from the
// terminal: listing vehicles, arming/disarming, setting flight modes, and
// commanding a copter takeoff.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/skylink-gs/corelink/internal/config"
	"github.com/skylink-gs/corelink/internal/link"
)

var (
	configFile  string
	transportURL string
	baud        int
	logLevel    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "corelinkctl",
		Short: "corelinkctl - ground-station MAVLink radio link controller",
		Long:  "Opens the shared MAVLink transport, discovers vehicles, and issues commands.",
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a corelink.yaml config file")
	rootCmd.PersistentFlags().StringVar(&transportURL, "transport", "", "transport URL override (serial path or udp:host:port)")
	rootCmd.PersistentFlags().IntVar(&baud, "baud", 0, "serial baud rate override")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(
		listCmd(),
		armCmd(),
		disarmCmd(),
		modeCmd(),
		takeoffCmd(),
		portsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, err
	}
	if transportURL != "" {
		cfg.Transport.URL = transportURL
	}
	if baud != 0 {
		cfg.Transport.Baud = baud
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logrus.Entry {
	l := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		l.SetLevel(lvl)
	}
	if cfg.Logging.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return logrus.NewEntry(l)
}

// openLink loads configuration, opens the link, and prints discovery
// progress to stderr as it happens.
func openLink() (*link.Link, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg)

	l, err := link.Open(cfg, log, func(u link.DiscoveryUpdate) {
		switch {
		case u.Message != "":
			fmt.Fprintln(os.Stderr, u.Message)
		case u.SecondsWaited > 0:
			fmt.Fprintf(os.Stderr, "discovering... %ds elapsed\n", u.SecondsWaited)
		}
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// runWithLink opens a link, runs fn, and closes the link afterward,
// also closing it early on SIGINT/SIGTERM.
func runWithLink(fn func(*link.Link) error) error {
	l, err := openLink()
	if err != nil {
		return err
	}
	defer l.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigCh:
			l.Close()
		case <-done:
		}
	}()

	return fn(l)
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every vehicle discovered on the link",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithLink(func(l *link.Link) error {
				vehicles, err := l.ListVehicles()
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SYSTEM\tCLASS\tARMED\tMODE\tGROUND SPEED\tALTITUDE\tBATTERY")
				for _, v := range vehicles {
					fmt.Fprintf(w, "%d\t%s\t%v\t%s\t%.1f m/s\t%.1f m\t%.1fV / %.1fA\n",
						v.SystemID, v.Class, v.Armed, v.FlightMode, v.GroundSpeed, v.Altitude, v.BattVolts, v.BattCurr)
				}
				return w.Flush()
			})
		},
	}
}

func armCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "arm <system-id>",
		Short: "Arm a vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := parseSystemID(args[0])
			if err != nil {
				return err
			}
			return runWithLink(func(l *link.Link) error {
				result, err := l.ArmVehicle(sys, force)
				if err != nil {
					return err
				}
				return printResult(result)
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "bypass arming preconditions")
	return cmd
}

func disarmCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "disarm <system-id>",
		Short: "Disarm a vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := parseSystemID(args[0])
			if err != nil {
				return err
			}
			return runWithLink(func(l *link.Link) error {
				result, err := l.DisarmVehicle(sys, force)
				if err != nil {
					return err
				}
				return printResult(result)
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "bypass disarming preconditions")
	return cmd
}

func modeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mode <system-id> <custom-mode-number>",
		Short: "Set a vehicle's flight mode by its raw custom-mode number",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := parseSystemID(args[0])
			if err != nil {
				return err
			}
			var modeInt int
			if _, err := fmt.Sscanf(args[1], "%d", &modeInt); err != nil {
				return fmt.Errorf("invalid custom-mode number: %s", args[1])
			}
			return runWithLink(func(l *link.Link) error {
				result, err := l.SetFlightMode(sys, modeInt)
				if err != nil {
					return err
				}
				return printResult(result)
			})
		},
	}
}

func takeoffCmd() *cobra.Command {
	var altitude float64
	cmd := &cobra.Command{
		Use:   "takeoff <system-id>",
		Short: "Command a copter to take off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := parseSystemID(args[0])
			if err != nil {
				return err
			}
			return runWithLink(func(l *link.Link) error {
				result, err := l.CopterTakeoff(sys, altitude)
				if err != nil {
					return err
				}
				return printResult(result)
			})
		},
	}
	cmd.Flags().Float64VarP(&altitude, "altitude", "a", 10, "target altitude in meters")
	return cmd
}

func portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List candidate serial ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := link.ListSerialPorts()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Println("no serial ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Println(p)
			}
			return nil
		},
	}
}

func parseSystemID(s string) (uint8, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n < 0 || n > 255 {
		return 0, fmt.Errorf("invalid system id: %s", s)
	}
	return uint8(n), nil
}

func printResult(r link.Result) error {
	if r.Success {
		fmt.Println(r.Message)
		return nil
	}
	fmt.Fprintln(os.Stderr, r.Message)
	os.Exit(1)
	return nil
}
