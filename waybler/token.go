package waybler

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

const userDataClaim = "http://schemas.microsoft.com/ws/2008/06/identity/claims/userdata"

// userIDFromToken reads the user id embedded in the vendor token.
// The signature is not verified: the token comes straight from the login response.
func userIDFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("unable to decode token: %w", err)
	}

	switch v := claims[userDataClaim].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("token has no %q claim", userDataClaim)
}
