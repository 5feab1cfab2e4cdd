package entities

// MatchBreakdown holds the six criterion scores, each in [0,100]
type MatchBreakdown struct {
	Condition  int `json:"condition"`
	Doctors    int `json:"doctors"`
	Outcomes   int `json:"outcomes"`
	Price      int `json:"price"`
	Location   int `json:"location"`
	Preference int `json:"preference"`
}

// HospitalMatch is a candidate with its breakdown and aggregated score
type HospitalMatch struct {
	Hospital   *CandidateProvider `json:"hospital"`
	Breakdown  MatchBreakdown     `json:"breakdown"`
	MatchScore int                `json:"match_score"`
}
