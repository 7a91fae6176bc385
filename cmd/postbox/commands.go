// ABOUTME: Cobra command tree for the postbox CLI
// ABOUTME: Each command loads the TOML profile, talks to the gateway and saves state back

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vida/postbox-gateway/internal/client"
)

// cliState is shared by all subcommands of one invocation.
type cliState struct {
	profilePath string
	server      string
	profile     *client.Profile
}

func newRootCmd() *cobra.Command {
	st := &cliState{}

	root := &cobra.Command{
		Use:           "postbox",
		Short:         "Command-line client for postbox-gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.load()
		},
	}
	root.PersistentFlags().StringVar(&st.profilePath, "profile", "", "profile file (default $XDG_CONFIG_HOME/postbox/profile.toml)")
	root.PersistentFlags().StringVar(&st.server, "server", "", "gateway URL, saved to the profile")

	root.AddCommand(
		newKeygenCmd(st),
		newRegisterCmd(st),
		newLoginCmd(st),
		newWhoamiCmd(st),
		newSendCmd(st),
		newInboxCmd(st),
		newDeleteCmd(st),
		newUsersCmd(st),
		newHealthCmd(st),
	)
	return root
}

func (st *cliState) load() error {
	if st.profilePath == "" {
		dir, err := client.DefaultProfileDir()
		if err != nil {
			return err
		}
		st.profilePath = filepath.Join(dir, "profile.toml")
	}
	p, err := client.LoadProfile(st.profilePath)
	if err != nil {
		return err
	}
	if st.server != "" {
		p.Server = st.server
	}
	st.profile = p
	return nil
}

func (st *cliState) save() error {
	return st.profile.Save(st.profilePath)
}

func (st *cliState) client() (*client.Client, error) {
	var opts []client.Option
	if st.profile.TokenValid(time.Now()) {
		opts = append(opts, client.WithToken(st.profile.Token))
	}
	return client.New(st.profile.Server, opts...)
}

// authedClient returns a client with a live token, logging in again with
// the saved key when the stored token has expired.
func (st *cliState) authedClient(cmd *cobra.Command) (*client.Client, error) {
	c, err := st.client()
	if err != nil {
		return nil, err
	}
	if c.Token() != "" {
		return c, nil
	}
	if err := st.login(cmd, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (st *cliState) login(cmd *cobra.Command, c *client.Client) error {
	if st.profile.UserID == 0 {
		return errors.New("no user id in profile; run 'postbox register' first")
	}
	key, err := client.LoadPrivateKey(st.profile.PrivateKey)
	if err != nil {
		return err
	}
	tok, err := c.Login(cmd.Context(), st.profile.UserID, key)
	if err != nil {
		return err
	}
	st.profile.SetToken(tok)
	return st.save()
}

func newKeygenCmd(st *cliState) *cobra.Command {
	var kind string
	var force bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a login key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force && fileExists(st.profile.PrivateKey) {
				return fmt.Errorf("%s already exists; use --force to replace it", st.profile.PrivateKey)
			}
			key, err := client.GenerateKey(client.KeyType(kind))
			if err != nil {
				return err
			}
			if err := client.SaveKeyPair(st.profile.PrivateKey, st.profile.PublicKey, key); err != nil {
				return err
			}
			if err := st.save(); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Generated %s key\n", strings.ToUpper(kind))
			fmt.Fprintf(cmd.OutOrStdout(), "  private: %s\n  public:  %s\n", st.profile.PrivateKey, st.profile.PublicKey)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "type", string(client.KeyTypeEC), "key type: rsa or ec")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key pair")
	return cmd
}

func newRegisterCmd(st *cliState) *cobra.Command {
	var name, bio string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a user on the gateway with the profile's public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := client.LoadPrivateKey(st.profile.PrivateKey)
			if err != nil {
				return fmt.Errorf("%w (run 'postbox keygen' first)", err)
			}
			pub, err := client.PublicKeyPEM(key)
			if err != nil {
				return err
			}
			c, err := st.client()
			if err != nil {
				return err
			}
			u, err := c.Register(cmd.Context(), name, bio, pub)
			if err != nil {
				return err
			}

			st.profile.UserID = u.ID
			st.profile.Token = ""
			st.profile.TokenExpiresAt = time.Time{}
			if err := st.save(); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Registered %s as user %d\n", u.Name, u.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "  fingerprint: %s\n", u.Fingerprint)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&bio, "bio", "", "short bio")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newLoginCmd(st *cliState) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign a fresh nonce and store the issued token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID != 0 {
				st.profile.UserID = userID
			}
			st.profile.Token = ""
			c, err := st.client()
			if err != nil {
				return err
			}
			if err := st.login(cmd, c); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Logged in as user %d\n", st.profile.UserID)
			fmt.Fprintf(cmd.OutOrStdout(), "  token expires %s\n", st.profile.TokenExpiresAt.Local().Format(time.RFC1123))
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id (defaults to the profile's)")
	return cmd
}

func newWhoamiCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the profile's user as the gateway sees it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := st.authedClient(cmd)
			if err != nil {
				return err
			}
			u, err := c.GetUser(cmd.Context(), st.profile.UserID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			color.New(color.FgCyan).Fprintf(out, "%s", u.Name)
			fmt.Fprintf(out, " (user %d, %s)\n", u.ID, u.Algorithm)
			if u.Bio != "" {
				fmt.Fprintf(out, "  %s\n", u.Bio)
			}
			fmt.Fprintf(out, "  fingerprint: %s\n  server:      %s\n", u.Fingerprint, st.profile.Server)
			return nil
		},
	}
}

func newSendCmd(st *cliState) *cobra.Command {
	var to int64
	var body string

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send a message to another user",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				body = args[0]
			}
			if strings.TrimSpace(body) == "" {
				return errors.New("message body is empty")
			}
			c, err := st.authedClient(cmd)
			if err != nil {
				return err
			}
			m, err := c.SendMessage(cmd.Context(), to, body)
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Sent message %d to user %d\n", m.ID, m.To)
			return nil
		},
	}
	cmd.Flags().Int64Var(&to, "to", 0, "recipient user id")
	cmd.Flags().StringVar(&body, "body", "", "message text")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newInboxCmd(st *cliState) *cobra.Command {
	var limit int
	var after int64

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List messages addressed to you",
		Long:  "List messages addressed to you, oldest first. Without --limit every page is read.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := st.authedClient(cmd)
			if err != nil {
				return err
			}

			var msgs []client.Message
			var next int64
			if limit > 0 || after > 0 {
				page, err := c.ListInbox(cmd.Context(), after, limit)
				if err != nil {
					return err
				}
				msgs, next = page.Messages, page.NextAfter
			} else if msgs, err = c.Inbox(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(msgs) == 0 {
				fmt.Fprintln(out, "Inbox is empty.")
				return nil
			}
			gray := color.New(color.FgHiBlack)
			cyan := color.New(color.FgCyan)
			for _, m := range msgs {
				gray.Fprintf(out, "#%d %s ", m.ID, m.CreatedAt.Local().Format("2006-01-02 15:04"))
				cyan.Fprintf(out, "from %d", m.From)
				fmt.Fprintf(out, ": %s\n", m.Body)
			}
			if next > 0 {
				gray.Fprintf(out, "more: postbox inbox --after %d\n", next)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "show one page of at most this many messages")
	cmd.Flags().Int64Var(&after, "after", 0, "start after this message id")
	return cmd
}

func newUsersCmd(st *cliState) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Find users by name to learn their ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := st.authedClient(cmd)
			if err != nil {
				return err
			}
			users, err := c.FindUsers(cmd.Context(), name)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintf(out, "No users named %q.\n", name)
				return nil
			}
			cyan := color.New(color.FgCyan)
			for _, u := range users {
				cyan.Fprintf(out, "%d", u.ID)
				fmt.Fprintf(out, "  %s (%s) %s\n", u.Name, u.Algorithm, u.Fingerprint)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "exact user name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newHealthCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the profile's gateway is ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := st.client()
			if err != nil {
				return err
			}
			if err := c.Health(cmd.Context()); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ %s is ready\n", st.profile.Server)
			return nil
		},
	}
}

func newDeleteCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <message-id>",
		Short: "Delete a message from your inbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid message id %q", args[0])
			}
			c, err := st.authedClient(cmd)
			if err != nil {
				return err
			}
			if err := c.DeleteMessage(cmd.Context(), id); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Deleted message %d\n", id)
			return nil
		},
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
