package combat

import "time"

// SkillContest is a two-sided opposed roll, independent of turn order
type SkillContest struct {
	ID          string        `json:"id"`
	InitiatorID string        `json:"initiatorId"`
	TargetID    string        `json:"targetId"`
	Skill       string        `json:"skill"`
	Status      ContestStatus `json:"status"`

	InitiatorTotal int `json:"initiatorTotal,omitempty"`
	TargetTotal    int `json:"targetTotal,omitempty"`

	WinnerID string       `json:"winnerId,omitempty"`
	Margin   int          `json:"margin,omitempty"`
	Tier     CriticalTier `json:"tier,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// SkillCheck is a one-sided GM-requested roll against an optional target
// number. TargetNumber is withheld from players until resolution; the
// gateway redacts it from every outbound snapshot and delta.
type SkillCheck struct {
	ID       string        `json:"id"`
	EntityID string        `json:"entityId"`
	Skill    string        `json:"skill"`
	Domain   SkillDomain   `json:"domain"`
	Status   ContestStatus `json:"status"`

	TargetNumber *int `json:"targetNumber,omitempty"`
	Total        int  `json:"total,omitempty"`
	Success      *bool `json:"success,omitempty"`

	RequestedBy string    `json:"requestedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}
