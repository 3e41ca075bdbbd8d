package testhelpers

import (
	"encoding/base64"
	"fmt"
)

// GenerateTestJWT creates an unsigned test JWT (alg: none) for servers running with
// verification disabled. The token carries aud "inspection-engine".
func GenerateTestJWT(sub, tenantID, email string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))

	payload := fmt.Sprintf(`{"sub":"%s","aud":"inspection-engine"`, sub)
	if tenantID != "" {
		payload += fmt.Sprintf(`,"tid":"%s"`, tenantID)
	}
	if email != "" {
		payload += fmt.Sprintf(`,"email":"%s"`, email)
	}
	payload += "}"

	return fmt.Sprintf("%s.%s.", header, base64.RawURLEncoding.EncodeToString([]byte(payload)))
}

// GenerateTestJWTWithBearer returns the token with a "Bearer " prefix for the Authorization header.
func GenerateTestJWTWithBearer(sub, tenantID, email string) string {
	return "Bearer " + GenerateTestJWT(sub, tenantID, email)
}
