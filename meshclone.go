package fesomdata

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/reconquest/karma-go"
	"github.com/reconquest/pkg/log"
)

const (
	lfsProbeTimeout = 10 * time.Second
	cloneTimeout    = 5 * time.Minute
)

// cloneMesh clones the PI mesh repository with git-lfs into the cache
// directory, reusing an existing clone when one is already there.
func cloneMesh(ctx context.Context, repo string, cacheDir string) (string, error) {
	meshdir := filepath.Join(cacheDir, "pi_mesh_git")

	if _, err := os.Stat(filepath.Join(meshdir, ".git")); err == nil {
		log.Debugf(nil, "using cached mesh clone: %s", meshdir)

		return meshdir, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, lfsProbeTimeout)
	defer cancel()

	if err := exec.CommandContext(probeCtx, "git", "lfs", "version").Run(); err != nil {
		return "", karma.Format(
			err,
			"git-lfs is not available, it is required to download the "+
				"mesh data (see https://git-lfs.github.com/)",
		)
	}

	// Drop an incomplete clone left over from an interrupted run.
	if _, err := os.Stat(meshdir); err == nil {
		if err := os.RemoveAll(meshdir); err != nil {
			return "", karma.Format(
				err,
				"unable to remove incomplete mesh clone %q",
				meshdir,
			)
		}
	}

	log.Infof(nil, "cloning FESOM PI mesh from %s", repo)

	cloneCtx, cancel := context.WithTimeout(ctx, cloneTimeout)
	defer cancel()

	clone := exec.CommandContext(cloneCtx, "git", "clone", repo, meshdir)

	output, err := clone.CombinedOutput()
	if err != nil {
		return "", karma.
			Describe("repo", repo).
			Describe("output", string(output)).
			Format(err, "unable to clone mesh repository")
	}

	log.Infof(nil, "mesh repository cloned to %s", meshdir)

	return meshdir, nil
}
