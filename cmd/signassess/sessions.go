package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/signassess/internal/auth"
	"github.com/ayusman/signassess/internal/session"
	"github.com/ayusman/signassess/internal/sink"
	"github.com/ayusman/signassess/internal/store"
	"github.com/ayusman/signassess/internal/summary"
)

func newSessionsCmd(opts *options) *cobra.Command {
	var (
		token  string
		remote bool
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List the stored sessions of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return errors.New("--token is required")
			}

			cfg, _, err := load(opts)
			if err != nil {
				return err
			}

			st, err := store.New(cfg.DBPath())
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			identity, err := auth.Authenticate(st, token)
			if err != nil {
				return err
			}

			if !remote {
				return listLocal(st, identity, cmd.OutOrStdout())
			}

			if len(cfg.Cassandra.Hosts) == 0 {
				return errors.New("--remote needs cassandra.hosts to be configured")
			}
			cs, err := sink.ConnectCassandra(cfg.Cassandra.Hosts, cfg.Cassandra.Keyspace)
			if err != nil {
				return err
			}
			defer cs.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			records, err := cs.ListByUser(ctx, identity.UserID)
			if err != nil {
				return err
			}
			return writeRecords(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "access token returned at registration")
	cmd.Flags().BoolVar(&remote, "remote", false, "read from the Cassandra archive instead of the local store")
	return cmd
}

func listLocal(st *store.Store, identity session.Identity, out io.Writer) error {
	stored, err := st.Sessions().ListByUser(identity.UserID)
	if err != nil {
		return err
	}

	records := make([]*session.Record, 0, len(stored))
	for _, s := range stored {
		signs := make([]summary.SignCount, len(s.TopSigns))
		for i, sc := range s.TopSigns {
			signs[i] = summary.SignCount{Label: sc.Label, Count: sc.Count}
		}
		records = append(records, &session.Record{
			ID:           s.ID,
			UserID:       s.UserID,
			Username:     s.Username,
			TopSigns:     signs,
			SecondsSpent: s.SecondsSpent,
			Score:        s.Score,
			Questions:    s.Questions,
			CreatedAt:    s.CreatedAt,
		})
	}
	return writeRecords(out, records)
}

func writeRecords(out io.Writer, records []*session.Record) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
