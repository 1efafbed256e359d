package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/trackdl/internal/formatter"
	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/repositories"
	"github.com/desertthunder/trackdl/internal/shared"
	"github.com/desertthunder/trackdl/internal/tasks"
)

// History prints recorded downloads as a table, CSV or JSON.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	criteria := map[string]any{}
	if track := cmd.String("track"); track != "" {
		id, err := parseTrackArg(track)
		if err != nil {
			return err
		}
		criteria["track_id"] = id.Base62()
	}
	if limit := cmd.Int("limit"); limit > 0 {
		criteria["limit"] = int(limit)
	}

	db, err := shared.OpenHistory(config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	downloads, err := repositories.NewDownloadRepository(db).List(criteria)
	if err != nil {
		return err
	}
	r.logger.Debug("loaded history", "rows", len(downloads))

	data, err := formatter.History(cmd.String("format"), downloads)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write history: %w", err)
		}
		return r.writePlain("✓ Wrote %d downloads to %s\n", len(downloads), path)
	}
	return r.writeBytes(data)
}

// parseTrackArg accepts a track link or a bare base62 id.
func parseTrackArg(arg string) (models.ID, error) {
	if id, err := tasks.ExtractID(arg); err == nil {
		return id, nil
	}
	id, err := models.ParseID(arg)
	if err != nil {
		return models.ID{}, fmt.Errorf("%w: --track: %w", shared.ErrInvalidArgument, err)
	}
	return id, nil
}
