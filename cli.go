package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hitarthk9/ai-bug-reporter/clients"
	cfg "github.com/hitarthk9/ai-bug-reporter/config"
	"github.com/hitarthk9/ai-bug-reporter/orchestrator"
	"github.com/hitarthk9/ai-bug-reporter/tracker"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type globalOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	var g globalOptions
	root := &cobra.Command{
		Use:           "bugreporter",
		Short:         "Turn a QA screen recording into Jira bugs with video evidence",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default config/$CONFIG_ENV/config.yaml)")

	root.AddCommand(
		newRunCmd(&g),
		newCandidatesCmd(&g),
		newAttachCmd(&g),
		newVersionCmd(),
	)
	return root
}

func newRunCmd(g *globalOptions) *cobra.Command {
	var (
		out    string
		noFile bool
	)
	cmd := &cobra.Command{
		Use:   "run <video>",
		Short: "Transcribe, extract bugs, cut clips and file tickets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, log, err := setup(g)
			if err != nil {
				return err
			}
			if err := checkVideo(args[0]); err != nil {
				return err
			}
			if out == "" {
				out = conf.Paths.Outputs
			}

			res, err := orchestrator.NewPipeline(conf, log).Run(cmd.Context(), args[0], orchestrator.RunOptions{NoFile: noFile, OutDir: out})
			if res != nil {
				if perr := printYAML(cmd.OutOrStdout(), res); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write a session bundle under this directory (default paths.outputs)")
	cmd.Flags().BoolVar(&noFile, "no-file", false, "stop after clip extraction, do not create tickets")
	return cmd
}

func newCandidatesCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "candidates <video>",
		Short: "List the seconds where something likely went wrong",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, log, err := setup(g)
			if err != nil {
				return err
			}
			if err := checkVideo(args[0]); err != nil {
				return err
			}
			res, err := orchestrator.NewPipeline(conf, log).Candidates(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printYAML(cmd.OutOrStdout(), res)
		},
	}
}

func newAttachCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <issue-key> <clip.mp4>",
		Short: "Upload a clip to an existing issue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, log, err := setup(g)
			if err != nil {
				return err
			}
			if missing := conf.Jira.Missing(); len(missing) > 0 {
				return fmt.Errorf("missing Jira environment variables: %s", strings.Join(missing, ", "))
			}

			jira := clients.NewJira(conf.Jira.URL, conf.Jira.Email, conf.Jira.Token)
			up := tracker.NewUploader(jira, conf.Attachments.MaxRetries, conf.Attachments.MaxBytes)
			up.Log = log

			out := up.Upload(cmd.Context(), args[0], args[1])
			if err := printYAML(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if !out.OK {
				return errors.New(out.Message)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bugreporter %s\n", version)
		},
	}
}

func setup(g *globalOptions) (*cfg.Root, *logrus.Logger, error) {
	conf, err := cfg.Load(g.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return conf, conf.NewLogger(), nil
}

func checkVideo(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("video: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("video: %s is a directory", path)
	}
	return nil
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
