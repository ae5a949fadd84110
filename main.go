// minsh is an interactive Unix shell with pipelines, redirection and
// POSIX-style job control.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"minsh/internal/config"
	"minsh/internal/repl"
)

var (
	cfgPath string
	noRC    bool
	oneShot string
)

var rootCmd = &cobra.Command{
	Use:   "minsh",
	Short: "A small interactive shell with pipelines and job control",
	Long: `minsh is an interactive command interpreter. It runs external
programs, connects them into pipelines, redirects their I/O, and manages
them as jobs: foreground and background execution, stop and continue,
and termination, all on a process-group model.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVar(&cfgPath, "config", "", "path to the rc file (default ~/.minshrc)")
	rootCmd.Flags().BoolVar(&noRC, "norc", false, "skip the rc file")
	rootCmd.Flags().StringVarP(&oneShot, "command", "c", "", "run a single command line and exit")
}

func run() error {
	cfg := config.Default()
	if !noRC {
		path := cfgPath
		if path == "" {
			path = config.DefaultPath()
		}
		loaded, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "minsh: %v\n", err)
		} else {
			cfg = loaded
		}
	}

	r := repl.New(cfg)
	if oneShot != "" {
		status, err := r.RunCommand(oneShot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "minsh: %v\n", err)
		}
		os.Exit(status)
	}
	return r.Run()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "minsh: %v\n", err)
		os.Exit(1)
	}
}
