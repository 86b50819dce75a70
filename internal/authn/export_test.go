package authn

import "certis/internal/keyring"

// Test-only accessors for the external test package (service_test.go lives in
// authn_test to avoid an import cycle with the challenge store).

const DefaultChallengeTTL = defaultChallengeTTL

func SetDirectory(s *Service, d keyring.Directory) {
	s.directory = d
}
