// Package update checks GitHub releases for a newer build and can replace the
// running binary in place.
package update

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/rs/zerolog"
)

const repositorySlug = "joshuasalcedo-dev/fx"

type Checker struct {
	version string
	source  selfupdate.Source
	log     zerolog.Logger
}

func NewChecker(version string, log zerolog.Logger) (*Checker, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create update source: %w", err)
	}

	return &Checker{
		version: version,
		source:  source,
		log:     log.With().Str("component", "update").Logger(),
	}, nil
}

func (c *Checker) newUpdater() (*selfupdate.Updater, error) {
	return selfupdate.NewUpdater(selfupdate.Config{
		Source: c.source,
		Validator: &selfupdate.ChecksumValidator{
			UniqueFilename: "checksums.txt",
		},
	})
}

// Check reports whether a newer release exists. A nil release with nil error
// means the current build is up to date.
func (c *Checker) Check(ctx context.Context) (*selfupdate.Release, error) {
	updater, err := c.newUpdater()
	if err != nil {
		return nil, err
	}

	release, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(repositorySlug))
	if err != nil {
		return nil, err
	}
	if !found || !release.GreaterThan(c.version) {
		return nil, nil
	}
	return release, nil
}

// CheckAndLog is the startup path: never fails the daemon, just reports.
func (c *Checker) CheckAndLog(ctx context.Context) {
	release, err := c.Check(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("update check failed")
		return
	}
	if release == nil {
		c.log.Debug().Str("version", c.version).Msg("running the latest version")
		return
	}
	c.log.Info().
		Str("current", c.version).
		Str("latest", release.Version()).
		Msg("a newer release is available, restart with -update to apply")
}

// Apply downloads the release and replaces the current executable.
func (c *Checker) Apply(ctx context.Context, release *selfupdate.Release) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	updater, err := c.newUpdater()
	if err != nil {
		return err
	}

	if err := updater.UpdateTo(ctx, release, exe); err != nil {
		return fmt.Errorf("failed to apply update: %w", err)
	}
	c.log.Info().Str("version", release.Version()).Msg("update applied, restart to use the new build")
	return nil
}
