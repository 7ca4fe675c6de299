package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/Dosada05/carnival-system/models"
	"github.com/golang-jwt/jwt/v4"
)

const (
	jwtClaimUserID = "user_id"
	jwtClaimRole   = "role"
)

var errNoClaims = errors.New("user claims not found in context")

func claimsFromContext(ctx context.Context) (jwt.MapClaims, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return nil, errNoClaims
	}
	return claims, nil
}

// positiveIntClaim reads a numeric claim. JSON decoding yields float64; string ids are accepted too.
func positiveIntClaim(claims jwt.MapClaims, name string) (int, error) {
	raw, ok := claims[name]
	if !ok {
		return 0, fmt.Errorf("missing %q claim", name)
	}

	var id int
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt32 {
			return 0, fmt.Errorf("%q claim is not an integer id: %v", name, v)
		}
		id = int(v)
	case int:
		id = v
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%q claim is not an integer id: %q", name, v)
		}
		id = n
	default:
		return 0, fmt.Errorf("unexpected type %T for %q claim", raw, name)
	}

	if id <= 0 {
		return 0, fmt.Errorf("%q claim must be positive, got %d", name, id)
	}
	return id, nil
}

func GetUserIDFromContext(ctx context.Context) (int, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return 0, err
	}
	return positiveIntClaim(claims, jwtClaimUserID)
}

func GetUserRoleFromContext(ctx context.Context) (models.UserRole, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return "", err
	}
	roleStr, ok := claims[jwtClaimRole].(string)
	if !ok {
		return "", fmt.Errorf("missing or non-string %q claim", jwtClaimRole)
	}

	switch role := models.UserRole(roleStr); role {
	case models.RoleAdmin, models.RolePrimaryDelegate, models.RoleDelegate:
		return role, nil
	}
	return "", fmt.Errorf("unknown role %q in token", roleStr)
}
