package inferctl

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Execute runs the CLI against argv.
func Execute(args []string) error {
	root := buildRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

// buildRootCmd constructs the Cobra command tree wired to a Client.
func buildRootCmd() *cobra.Command {
	var (
		baseURL string
		timeout time.Duration
		asJSON  bool
	)
	root := &cobra.Command{
		Use:           "inferctl",
		Short:         "Control a running inferd daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&baseURL, "addr", envOr("INFERCTL_ADDR", DefaultBaseURL), "Daemon base URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	root.PersistentFlags().BoolVar(&asJSON, "json", false, "Print raw JSON responses")

	client := func() *Client { return NewClient(baseURL, timeout) }
	emit := func(v any, plain func()) {
		if asJSON {
			b, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(b))
			return
		}
		plain()
	}

	statusCmd := &cobra.Command{Use: "status", Short: "Show backend, hardware and session state", RunE: func(cmd *cobra.Command, args []string) error {
		st, err := client().Status(cmd.Context())
		if err != nil {
			return err
		}
		emit(st, func() {
			fmt.Printf("state:    %s\n", st.Backend.State)
			fmt.Printf("backend:  %s\n", st.Backend.ActiveBackend)
			fmt.Printf("model:    %s\n", st.Backend.SelectedModel)
			if st.Backend.Reason != "" {
				fmt.Printf("reason:   %s\n", st.Backend.Reason)
			}
			fmt.Printf("host:     %s, %.1fGB RAM, %d CPUs (%s)\n", st.Hardware.OS, st.Hardware.TotalMemoryGB, st.Hardware.CPUCount, st.Environment)
			fmt.Printf("session:  %d messages, %d thread notes\n", st.Session.Messages, st.Session.Threads)
		})
		return nil
	}}

	modelsCmd := &cobra.Command{Use: "models", Short: "List the model catalog with install state", RunE: func(cmd *cobra.Command, args []string) error {
		ms, err := client().Models(cmd.Context())
		if err != nil {
			return err
		}
		emit(ms, func() {
			for _, m := range ms.Models {
				mark := " "
				if m.Installed {
					mark = "*"
				}
				line := fmt.Sprintf("%s %-16s %.1fGB", mark, m.Name, m.SizeGB)
				if m.Tier == ms.RecommendedTier {
					line += "  (recommended)"
				}
				if m.Advisory != "" {
					line += "  ! " + m.Advisory
				}
				fmt.Println(line)
			}
		})
		return nil
	}}

	pullCmd := &cobra.Command{Use: "pull <model>", Short: "Download a model and watch progress", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		c := client()
		acc, err := c.Pull(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("pulling %s\n", acc.Model)
		for {
			time.Sleep(time.Second)
			p, err := c.Progress(cmd.Context(), args[0])
			if err != nil {
				// The record disappears once the download settles.
				fmt.Println("done")
				return nil
			}
			if p.Error != "" {
				return fmt.Errorf("download failed: %s", p.Error)
			}
			fmt.Printf("%3d%%\n", p.Percent)
			if p.Done {
				fmt.Println("done")
				return nil
			}
		}
	}}

	selectCmd := &cobra.Command{Use: "select <model>", Short: "Set the preferred model", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		if err := client().Select(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("selected %s\n", args[0])
		return nil
	}}

	generateCmd := &cobra.Command{Use: "generate [prompt...]", Short: "Request a completion from the active backend", Args: cobra.MinimumNArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		model, _ := cmd.Flags().GetString("model")
		resp, err := client().Generate(cmd.Context(), model, strings.Join(args, " "))
		if err != nil {
			return err
		}
		emit(resp, func() {
			fmt.Println(resp.Response)
			fmt.Fprintf(os.Stderr, "[%s/%s]\n", resp.Backend, resp.Model)
		})
		return nil
	}}
	generateCmd.Flags().String("model", "", "Model override for this request")

	startCmd := &cobra.Command{Use: "start", Short: "Launch the local inference service", RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := client().StartBackend(cmd.Context())
		if err != nil {
			return err
		}
		emit(snap, func() { fmt.Printf("state: %s\n", snap.State) })
		return nil
	}}

	credentialCmd := &cobra.Command{Use: "credential", Short: "Manage the cloud API credential", RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("credential requires a subcommand: set|test")
	}}
	credentialSet := &cobra.Command{Use: "set <api-key>", Short: "Store the cloud API key on the daemon host", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := client().SaveCredential(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		emit(snap, func() { fmt.Printf("stored; state: %s\n", snap.State) })
		return nil
	}}
	credentialTest := &cobra.Command{Use: "test <api-key>", Short: "Classify a key without storing it", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		res, err := client().TestCredential(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(res.Result)
		if res.Result != "ok" {
			os.Exit(1)
		}
		return nil
	}}
	credentialCmd.AddCommand(credentialSet, credentialTest)

	sessionCmd := &cobra.Command{Use: "session", Short: "Inspect the conversation log", RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("session requires a subcommand: log|append")
	}}
	sessionLog := &cobra.Command{Use: "log", Short: "Print the session messages", RunE: func(cmd *cobra.Command, args []string) error {
		msgs, err := client().Messages(cmd.Context())
		if err != nil {
			return err
		}
		emit(msgs, func() {
			for _, m := range msgs {
				fmt.Printf("%s [%s] %s\n", m.CreatedAt.Format(time.RFC3339), m.Role, m.Content)
			}
		})
		return nil
	}}
	sessionAppend := &cobra.Command{Use: "append <role> <content...>", Short: "Append a message to the session log", Args: cobra.MinimumNArgs(2), RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := client().Append(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Println(msg.ID)
		return nil
	}}
	sessionCmd.AddCommand(sessionLog, sessionAppend)

	root.AddCommand(statusCmd, modelsCmd, pullCmd, selectCmd, generateCmd, startCmd, credentialCmd, sessionCmd)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
