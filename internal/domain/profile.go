package domain

// Profile is a viewer's public identity as stored by the hosted backend.
// Only ID is guaranteed; everything else is whatever the viewer filled in.
type Profile struct {
	ID          string
	Username    *string
	FirstName   *string
	LastName    *string
	Email       *string
	AvatarURL   *string
	LinkedinURL *string
	GithubURL   *string
}

// Viewer is the ambient identity extracted from the host's auth token.
// A zero Viewer means signed out.
type Viewer struct {
	ID            string
	EmailOrHandle string
}

func (v Viewer) SignedIn() bool { return v.ID != "" }
