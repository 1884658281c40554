package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/ezvcpkg/internal/vcpkg"
)

// StatusCmd implements the 'status' command.
type StatusCmd struct {
	Format string `help:"Output format" enum:"text,yaml" default:"text"`
}

// statusReport is the yaml form of a status.
type statusReport struct {
	Root           string    `yaml:"root"`
	Commit         string    `yaml:"commit"`
	Packages       []string  `yaml:"packages"`
	UpToDate       bool      `yaml:"up_to_date"`
	TagCommit      string    `yaml:"tag_commit,omitempty"`
	TagPackages    []string  `yaml:"tag_packages,omitempty"`
	TagWrittenAt   time.Time `yaml:"tag_written_at,omitempty"`
	HasExecutable  bool      `yaml:"has_executable"`
	BuildDirs      int       `yaml:"build_dirs"`
	StaleBuildDirs []string  `yaml:"stale_build_dirs,omitempty"`
}

func (s *StatusCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	mgr, _, err := newManager(g, cfg)
	if err != nil {
		return err
	}
	st, err := mgr.Status(g.Ctx)
	if err != nil {
		return err
	}
	return writeStatus(g.Out, newStatusReport(st), s.Format)
}

func newStatusReport(st *vcpkg.Status) statusReport {
	r := statusReport{
		Root:          st.Root,
		Commit:        st.Commit,
		Packages:      st.Packages,
		UpToDate:      st.UpToDate,
		HasExecutable: st.HasExecutable,
		BuildDirs:     len(st.BuildDirs),
	}
	if st.Tag != nil {
		r.TagCommit = st.Tag.Commit
		r.TagPackages = st.Tag.Packages
		r.TagWrittenAt = st.Tag.WrittenAt
	}
	for _, d := range st.StaleBuildDirs() {
		r.StaleBuildDirs = append(r.StaleBuildDirs, d.Path)
	}
	return r
}

func writeStatus(w io.Writer, r statusReport, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	}

	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}
	_, _ = fmt.Fprintf(w, "Installation:   %s\n", r.Root)
	_, _ = fmt.Fprintf(w, "Commit:         %s\n", r.Commit)
	_, _ = fmt.Fprintf(w, "Packages:       %s\n", strings.Join(r.Packages, ", "))
	_, _ = fmt.Fprintf(w, "Up to date:     %s\n", yesNo(r.UpToDate))
	if r.TagCommit != "" {
		_, _ = fmt.Fprintf(w, "Tag:            %s [%s] at %s\n",
			r.TagCommit, strings.Join(r.TagPackages, ", "), r.TagWrittenAt.Format(time.RFC3339))
	} else {
		_, _ = fmt.Fprintln(w, "Tag:            none")
	}
	_, _ = fmt.Fprintf(w, "vcpkg binary:   %s\n", yesNo(r.HasExecutable))
	_, _ = fmt.Fprintf(w, "Build trees:    %d (%d out of date)\n", r.BuildDirs, len(r.StaleBuildDirs))
	return nil
}
