package cli

import (
	"errors"
	"fmt"

	"flags-challenge/internal/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewSnapshotCmd prints the persisted engine snapshot.
func NewSnapshotCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the persisted quiz snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			b, err := openBackends(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer b.Close()

			rec, err := b.snapshots.LoadRecord(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := domain.SnapshotFromRecord(rec); err != nil {
				if errors.Is(err, domain.ErrSnapshotNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), "no snapshot saved")
					return nil
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "snapshot would be discarded on start: %v\n", err)
			}

			out, err := yaml.Marshal(rec)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
