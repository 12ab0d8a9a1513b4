package cmd

import (
	"fmt"
	"strings"

	"agentdesk/internal/cli"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

// EnvUpdateRepository names the GitHub repository (owner/repo) that
// publishes agentdesk releases.
const EnvUpdateRepository = "AGENTDESK_UPDATE_REPOSITORY"

// releaseRepository is the default release repository. Builds that publish
// releases set it with -ldflags "-X agentdesk/cmd.releaseRepository=owner/repo".
var releaseRepository = ""

// newReleaseSource returns where releases are listed and downloaded from.
var newReleaseSource = func() (selfupdate.Source, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, err
	}
	return source, nil
}

type selfUpdateFlags struct {
	repository string
	checkOnly  bool
}

// newSelfUpdateCmd creates the Cobra command for the self-update functionality.
func newSelfUpdateCmd() *cobra.Command {
	flags := &selfUpdateFlags{}
	cmd := &cobra.Command{
		Use:   "self-update",
		Short: "Update agentdesk to the latest version",
		Long: `Checks the release repository for the latest agentdesk release and
replaces the current binary if a newer version is found.

The repository is taken from --repository, then $` + EnvUpdateRepository + `,
then the value built into the binary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelfUpdate(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.repository, "repository", "", "GitHub repository publishing releases (owner/repo)")
	cmd.Flags().BoolVar(&flags.checkOnly, "check", false, "Only report whether a newer version exists")
	return cmd
}

// resolveRepository picks the release repository and checks it is owner/repo.
func resolveRepository(flag string) (selfupdate.RepositorySlug, string, error) {
	slug := flag
	if slug == "" {
		slug = cli.Getenv(EnvUpdateRepository)
	}
	if slug == "" {
		slug = releaseRepository
	}
	if slug == "" {
		return selfupdate.RepositorySlug{}, "", fmt.Errorf("no release repository configured: use --repository or $%s", EnvUpdateRepository)
	}

	owner, repo, ok := strings.Cut(slug, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return selfupdate.RepositorySlug{}, "", fmt.Errorf("invalid release repository %q: expected owner/repo", slug)
	}
	return selfupdate.NewRepositorySlug(owner, repo), slug, nil
}

// runSelfUpdate checks the current version against the latest release and updates if necessary.
func runSelfUpdate(cmd *cobra.Command, flags *selfUpdateFlags) error {
	currentVersion := version
	// Development builds do not follow semantic versioning.
	if currentVersion == "" || currentVersion == "dev" {
		return fmt.Errorf("cannot self-update a development version")
	}

	repository, slug, err := resolveRepository(flags.repository)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Current version: %s\n", currentVersion)
	fmt.Fprintf(out, "Checking %s for updates...\n", slug)

	source, err := newReleaseSource()
	if err != nil {
		return fmt.Errorf("failed to create release source: %w", err)
	}
	updater, err := selfupdate.NewUpdater(selfupdate.Config{Source: source})
	if err != nil {
		return fmt.Errorf("failed to create updater: %w", err)
	}

	latest, found, err := updater.DetectLatest(ctx, repository)
	if err != nil {
		return fmt.Errorf("error detecting latest version: %w", err)
	}
	if !found {
		return fmt.Errorf("latest release for %s could not be found", slug)
	}

	if !latest.GreaterThan(currentVersion) {
		fmt.Fprintln(out, "Current version is the latest.")
		return nil
	}

	fmt.Fprintf(out, "Found newer version: %s (published at %s)\n", latest.Version(), latest.PublishedAt.Format("2006-01-02"))
	if flags.checkOnly {
		return nil
	}
	if latest.ReleaseNotes != "" {
		fmt.Fprintf(out, "Release notes:\n%s\n", latest.ReleaseNotes)
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	fmt.Fprintf(out, "Updating %s to version %s...\n", exe, latest.Version())

	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	fmt.Fprintf(out, "Successfully updated to version %s\n", latest.Version())
	return nil
}
