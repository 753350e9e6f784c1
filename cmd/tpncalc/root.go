package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"NeoNest/internal/remote"
	"NeoNest/internal/storage"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// keyDeviceID holds the id this install presents to the profile proxy.
const keyDeviceID = "device_id"

// errRejected is returned after validation messages have been printed.
var errRejected = errors.New("inputs rejected")

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DBPath  string
	Format  string // "text" | "json"
	Proxy   string
	Verbose bool
}

var ValidFormats = []string{"text", "json"}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "neonest.db"
	}
	return filepath.Join(dir, "neonest", "neonest.db")
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "tpncalc",
		Short:         "Neonatal TPN, GIR and feed calculators",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", defaultDBPath(), "local store (\":memory:\" for none)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Proxy, "proxy", os.Getenv("NEONEST_PROXY"), "profile/feedback proxy base URL")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewTPNCommand(opts))
	cmd.AddCommand(NewGIRCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewDefaultsCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewProfileCommand(opts))
	cmd.AddCommand(NewFeedbackCommand(opts))

	return cmd
}

// session is an opened local store, wrapped for remote profile sync when
// a proxy is configured.
type session struct {
	store  storage.Store
	synced *storage.SyncedStore
	client *remote.Client
	log    *zap.Logger
	local  *storage.SQLiteStore
}

func (o *RootOptions) open(ctx context.Context) (*session, error) {
	log := zap.NewNop()
	if o.Verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		log = l
	}
	local, err := storage.OpenSQLite(o.DBPath)
	if err != nil {
		return nil, err
	}
	s := &session{store: local, log: log, local: local}
	if o.Proxy == "" {
		return s, nil
	}
	device, err := deviceID(ctx, local)
	if err != nil {
		_ = local.Close()
		return nil, err
	}
	s.client = remote.NewClient(o.Proxy, device)
	s.synced = storage.NewSyncedStore(local, remote.ProfileSync{Client: s.client, Local: local}, log, nil)
	s.store = s.synced
	return s, nil
}

// Close waits for pending profile pushes before closing the database.
func (s *session) Close() error {
	if s.synced != nil {
		s.synced.Wait()
	}
	_ = s.log.Sync()
	return s.local.Close()
}

func deviceID(ctx context.Context, s storage.Store) (string, error) {
	id, ok, err := s.Get(ctx, keyDeviceID)
	if err != nil {
		return "", err
	}
	if ok && id != "" {
		return id, nil
	}
	id = uuid.NewString()
	return id, s.Set(ctx, keyDeviceID, id)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// applySets overlays key=value pairs on v using its JSON field names.
func applySets(v any, sets []string) error {
	if len(sets) == 0 {
		return nil
	}
	fields := map[string]any{}
	for _, s := range sets {
		k, val, ok := strings.Cut(s, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return fmt.Errorf("bad setting %q: want key=value", s)
		}
		fields[k] = scalar(strings.TrimSpace(val))
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func scalar(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// applyFile overlays the JSON object in path on v.
func applyFile(v any, path string) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// rejected prints each message to stderr and returns errRejected.
func rejected(cmd *cobra.Command, msgs []string) error {
	for _, m := range msgs {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", m)
	}
	return errRejected
}
