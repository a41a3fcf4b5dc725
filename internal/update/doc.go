// Package update keeps a desktop build current with its GitHub releases.
//
// A Resolver finds the latest release, trying a short-lived in-memory cache,
// the GitHub REST API and finally the public releases page. A Pipeline
// compares that release with the running version and, when it is newer,
// picks the installer package for the host architecture, downloads it and
// hands it to the operating system:
//
//	cache := update.NewReleaseCache()
//	repo := update.DefaultRepository
//	resolver := update.NewResolver(cache, update.NewGitHubAPI(repo), update.NewReleasePage(repo))
//	p := update.NewPipeline(version, resolver, update.WithSelector(update.NewArtifactSelector(repo)))
//	msg, err := p.CheckAndUpdate(ctx)
//
// Failures after a release has been found degrade to a message pointing at
// the release page, so the user can always finish the update by hand.
package update
