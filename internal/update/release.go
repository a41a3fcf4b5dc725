package update

import "context"

// Release describes one published version. It is a value type and is never
// mutated after construction.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
	Name    string `json:"name"`
	Body    string `json:"body"`
}

// Strategy is one method of discovering the latest release.
type Strategy interface {
	// Name identifies the strategy in logs and errors.
	Name() string
	// Latest returns the most recent published release.
	Latest(ctx context.Context) (Release, error)
}

// Repository identifies the GitHub repository releases are published to.
type Repository struct {
	Owner string
	Name  string
}

// DefaultRepository is where mirror publishes its releases.
var DefaultRepository = Repository{Owner: "Godi13", Name: "mirror"}

func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}
