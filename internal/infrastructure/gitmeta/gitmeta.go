// Package gitmeta resolves source metadata for the catalog from CI
// environment variables, falling back to the local git repository.
package gitmeta

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/davarch/deploy-pilot/internal/domain"
	"github.com/go-git/go-git/v5"
	"github.com/pkg/errors"
	giturls "github.com/whilp/git-urls"
)

const remoteName = "origin"

type Lookup struct {
	dir    string
	getenv func(string) string
}

func New(dir string) *Lookup {
	return &Lookup{dir: dir, getenv: os.Getenv}
}

// Lookup returns what it could find. The error reports the first gap that
// neither the environment nor the repository could fill.
func (l *Lookup) Lookup(ctx context.Context) (domain.SourceMetadata, error) {
	meta := l.fromEnv()
	if complete(meta) {
		return meta, nil
	}

	if err := ctx.Err(); err != nil {
		return meta, err
	}

	repo, err := git.PlainOpenWithOptions(l.dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return meta, errors.Wrapf(err, "open repository at %s", l.dir)
	}
	err = fillFromRepo(repo, &meta)
	return meta, err
}

func (l *Lookup) fromEnv() domain.SourceMetadata {
	var m domain.SourceMetadata

	switch {
	case l.getenv("GITHUB_ACTIONS") == "true":
		m.Branch = l.getenv("GITHUB_HEAD_REF")
		if m.Branch == "" {
			m.Branch = l.getenv("GITHUB_REF_NAME")
		}
		server, repo := l.getenv("GITHUB_SERVER_URL"), l.getenv("GITHUB_REPOSITORY")
		if server != "" && repo != "" {
			m.SourceURI = strings.TrimRight(server, "/") + "/" + repo
			if run := l.getenv("GITHUB_RUN_ID"); run != "" {
				m.ReleaseURI = fmt.Sprintf("%s/actions/runs/%s", m.SourceURI, run)
			}
		}
	case l.getenv("TF_BUILD") != "":
		m.Branch = l.getenv("BUILD_SOURCEBRANCHNAME")
		m.CommitterMail = l.getenv("BUILD_REQUESTEDFOREMAIL")
		if uri := l.getenv("BUILD_REPOSITORY_URI"); uri != "" {
			if c, err := Canonical(uri); err == nil {
				m.SourceURI = c
			}
		}
		coll, project, build := l.getenv("SYSTEM_COLLECTIONURI"), l.getenv("SYSTEM_TEAMPROJECT"), l.getenv("BUILD_BUILDID")
		if coll != "" && project != "" && build != "" {
			m.ReleaseURI = fmt.Sprintf("%s/%s/_build/results?buildId=%s", strings.TrimRight(coll, "/"), project, build)
		}
	}

	return m
}

func fillFromRepo(repo *git.Repository, m *domain.SourceMetadata) error {
	head, err := repo.Head()
	if err != nil {
		return errors.Wrap(err, "resolve HEAD")
	}

	if m.Branch == "" && head.Name().IsBranch() {
		m.Branch = head.Name().Short()
	}

	if m.CommitterMail == "" {
		commit, err := repo.CommitObject(head.Hash())
		if err != nil {
			return errors.Wrap(err, "read HEAD commit")
		}
		m.CommitterMail = commit.Author.Email
	}

	if m.SourceURI == "" {
		remote, err := repo.Remote(remoteName)
		if err != nil {
			return errors.Wrapf(err, "remote %s", remoteName)
		}
		urls := remote.Config().URLs
		if len(urls) == 0 {
			return errors.Errorf("remote %s has no url", remoteName)
		}
		if m.SourceURI, err = Canonical(urls[0]); err != nil {
			return err
		}
	}

	if m.ReleaseURI == "" {
		m.ReleaseURI = m.SourceURI + "/commit/" + head.Hash().String()
	}

	return nil
}

// Canonical rewrites any git remote URL (ssh, scp-like, https with
// credentials) to https://host/path without a .git suffix.
func Canonical(raw string) (string, error) {
	u, err := giturls.Parse(raw)
	if err != nil {
		return "", errors.Wrapf(err, "parse remote url %q", raw)
	}
	if u.Host == "" {
		return "", errors.Errorf("remote url %q has no host", raw)
	}

	host := u.Hostname()
	path := strings.TrimSuffix(strings.Trim(u.Path, "/"), ".git")
	return "https://" + host + "/" + path, nil
}

func complete(m domain.SourceMetadata) bool {
	return m.Branch != "" && m.CommitterMail != "" && m.SourceURI != "" && m.ReleaseURI != ""
}
