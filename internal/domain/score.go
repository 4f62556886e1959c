package domain

// AudienceScore is the two-party percentage split. User + Opponent is always 100.
type AudienceScore struct {
	User     int `json:"user"`
	Opponent int `json:"opponent"`
}

// EvenScore is the split every debate starts from.
func EvenScore() AudienceScore {
	return AudienceScore{User: 50, Opponent: 50}
}

// ClampScore bounds a percentage to [0, 100].
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// WithUser returns the split after setting the user's share; the opponent gets the rest.
func (s AudienceScore) WithUser(v int) AudienceScore {
	v = ClampScore(v)
	return AudienceScore{User: v, Opponent: 100 - v}
}

// WithOpponent returns the split after setting the opponent's share; the user gets the rest.
func (s AudienceScore) WithOpponent(v int) AudienceScore {
	v = ClampScore(v)
	return AudienceScore{User: 100 - v, Opponent: v}
}

// For returns the share of the given role.
func (s AudienceScore) For(role Role) int {
	if role == RoleAI {
		return s.Opponent
	}
	return s.User
}
