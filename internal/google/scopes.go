package google

// DefaultOAuthScopes are the Google OAuth scopes the labeler needs.
//
// gmail.modify covers everything the workflow does: reading message
// metadata, listing and creating labels, and applying labels to messages.
// No broader Gmail scope and no other Google services are requested.
var DefaultOAuthScopes = []string{
	"https://www.googleapis.com/auth/gmail.modify",
}
