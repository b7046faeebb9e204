package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/doc-tools-mcp/internal/folder"
	"github.com/ironsheep/doc-tools-mcp/internal/llm"
	"github.com/ironsheep/doc-tools-mcp/internal/monitor"
)

var (
	folderSuffixes  []string
	folderRecursive bool

	umlOutDir string

	monitorInterval  time.Duration
	monitorThreshold uint64
)

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "List, clean up and convert files in a directory",
}

var folderListCmd = &cobra.Command{
	Use:   "list <dir>",
	Short: "List files by suffix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := folder.List(args[0], folderSuffixes, folderRecursive)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	},
}

var folderDeleteCmd = &cobra.Command{
	Use:   "delete <dir>",
	Short: "Delete files by suffix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(folderSuffixes) == 0 {
			return errors.New("--suffix is required")
		}
		files, err := folder.List(args[0], folderSuffixes, folderRecursive)
		if err != nil {
			return err
		}
		removed, err := folder.Delete(files)
		for _, f := range removed {
			logger.Info("deleted", zap.String("file", f))
		}
		return err
	},
}

var notebookCmd = &cobra.Command{
	Use:   "nb2py <notebook.ipynb>...",
	Short: "Export Jupyter notebooks as Python scripts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, nb := range args {
			out, err := folder.NotebookToScript(nb)
			if err != nil {
				return fmt.Errorf("%s: %w", nb, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
		}
		return nil
	},
}

var umlCmd = &cobra.Command{
	Use:   "uml <file-or-dir>",
	Short: "Generate PlantUML activity diagrams from Python code",
	Long: `Ask the configured language model for a PlantUML activity diagram of
each .py or .txt file and save it as <name>.puml in --out.`,
	Args: cobra.ExactArgs(1),
	RunE: runUML,
}

var paramsCmd = &cobra.Command{
	Use:   "params <file>",
	Short: "Describe the model parameters used in a Python file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		analyzer, err := newAnalyzer(cmd)
		if err != nil {
			return err
		}
		code, err := llm.ReadCode(args[0])
		if err != nil {
			return err
		}
		params, err := analyzer.ModelParams(ctx, code)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), params)
		return nil
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor <pid>",
	Short: "Watch a process's disk I/O and alert above a threshold",
	Long: `Poll the cumulative read and write byte counters of a process and log an
alert whenever either exceeds --threshold. When monitor.mqtt.broker (or
MQTT_BROKER) is set, alerts are also published to <prefix>/alerts.`,
	Args: cobra.ExactArgs(1),
	RunE: runMonitor,
}

func init() {
	folderCmd.PersistentFlags().StringSliceVarP(&folderSuffixes, "suffix", "s", nil, "File suffixes such as .jpg (repeatable)")
	folderCmd.PersistentFlags().BoolVarP(&folderRecursive, "recursive", "r", false, "Descend into subdirectories")

	folderCmd.AddCommand(folderListCmd)
	folderCmd.AddCommand(folderDeleteCmd)
	folderCmd.AddCommand(notebookCmd)

	umlCmd.Flags().StringVarP(&umlOutDir, "out", "o", "uml", "Output directory")

	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 0, "Polling interval (default from config)")
	monitorCmd.Flags().Uint64Var(&monitorThreshold, "threshold", 0, "Alert threshold in bytes (default from config)")

	rootCmd.AddCommand(folderCmd)
	rootCmd.AddCommand(umlCmd)
	rootCmd.AddCommand(paramsCmd)
	rootCmd.AddCommand(monitorCmd)
}

func newAnalyzer(cmd *cobra.Command) (*llm.Analyzer, error) {
	p, err := llm.NewProvider(cmd.Context(), cfg.LLM)
	if err != nil {
		return nil, err
	}
	return llm.NewAnalyzer(p, cfg.LLM.Timeout, logger.Named("llm")), nil
}

func runUML(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	analyzer, err := newAnalyzer(cmd)
	if err != nil {
		return err
	}

	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	files := []string{args[0]}
	if info.IsDir() {
		if files, err = folder.List(args[0], []string{".py", ".txt"}, false); err != nil {
			return err
		}
	}

	var failed int
	for _, f := range files {
		out, err := analyzer.ConvertFile(ctx, f, umlOutDir)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			logger.Warn("diagram failed", zap.String("file", f), zap.Error(err))
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	pid, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid pid %q: %w", args[0], err)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	src, err := monitor.NewProcessSource(ctx, int32(pid))
	if err != nil {
		return err
	}

	m := &monitor.Monitor{
		Source:    src,
		PID:       int32(pid),
		Interval:  cfg.Monitor.Interval,
		Threshold: cfg.Monitor.ThresholdBytes,
		Alerters:  []monitor.Alerter{monitor.LogAlerter{Logger: logger}},
		Logger:    logger.Named("monitor"),
	}
	if monitorInterval > 0 {
		m.Interval = monitorInterval
	}
	if monitorThreshold > 0 {
		m.Threshold = monitorThreshold
	}

	if mc := cfg.Monitor.MQTT; mc.Broker != "" {
		client, err := monitor.ConnectMQTT(mc, 10*time.Second)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)

		alerter := monitor.NewMQTTAlerter(client, mc.Prefix)
		m.Alerters = append(m.Alerters, alerter)
		logger.Info("publishing alerts", zap.String("broker", mc.Broker), zap.String("topic", alerter.Topic()))
	}

	return m.Run(ctx)
}
