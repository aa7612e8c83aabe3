package session

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sorynturda/link-sharing/types"
)

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// DecodeClaims reads the payload segment of a token without verifying its
// signature. It reports false for anything that is not three dot-separated
// segments with a base64url JSON object in the middle.
func DecodeClaims(token string) (types.Claims, bool) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 || parts[1] == "" {
		return types.Claims{}, false
	}

	payload, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return types.Claims{}, false
	}

	raw := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &raw); err != nil || raw == nil {
		return types.Claims{}, false
	}

	claims := types.Claims{Raw: raw}
	if sub, err := raw.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if role, ok := raw["role"].(string); ok {
		claims.Role = role
	}
	if id, ok := numericClaim(raw["id"]); ok {
		claims.UserID = id
	}
	exp, err := raw.GetExpirationTime()
	if err != nil {
		return types.Claims{}, false
	}
	if exp != nil {
		t := exp.Time
		claims.ExpiresAt = &t
	}
	return claims, true
}

// IsExpired reports whether the claims carry an expiry at or before now.
// Claims without "exp" are left to the backend to judge.
func IsExpired(claims types.Claims, now time.Time) bool {
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.After(now)
}

func numericClaim(value any) (int64, bool) {
	switch v := value.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
