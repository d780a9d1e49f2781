package flows

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow implementation.
type Deps struct {
	Credentials CredentialDeps
	Login       LoginDeps
	Validate    ValidateDeps
	Refresh     RefreshDeps
	Logout      LogoutDeps
}
