package model

// AuthClaims is the verified identity attached to a request.
type AuthClaims struct {
	UserID   string   `json:"sub"`
	Username string   `json:"username"`
	Groups   []string `json:"groups,omitempty"`
	TokenUse string   `json:"token_use,omitempty"`
}

// HasAnyGroup reports whether the caller belongs to one of groups.
func (c *AuthClaims) HasAnyGroup(groups map[string]struct{}) bool {
	if c == nil {
		return false
	}

	for _, group := range c.Groups {
		if _, ok := groups[group]; ok {
			return true
		}
	}

	return false
}
